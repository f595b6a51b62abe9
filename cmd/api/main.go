package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/auth"
	"github.com/ariefcatur/go-realtime-points/internal/config"
	"github.com/ariefcatur/go-realtime-points/internal/events"
	"github.com/ariefcatur/go-realtime-points/internal/httpx"
	kafkax "github.com/ariefcatur/go-realtime-points/internal/kafka"
	"github.com/ariefcatur/go-realtime-points/internal/ledger"
	"github.com/ariefcatur/go-realtime-points/internal/memstore"
	"github.com/ariefcatur/go-realtime-points/internal/messages"
	"github.com/ariefcatur/go-realtime-points/internal/obs"
	"github.com/ariefcatur/go-realtime-points/internal/orders"
	"github.com/ariefcatur/go-realtime-points/internal/postgres"
	"github.com/ariefcatur/go-realtime-points/internal/realtime"
	"github.com/ariefcatur/go-realtime-points/internal/redisx"
	"github.com/ariefcatur/go-realtime-points/internal/shop"
	"github.com/ariefcatur/go-realtime-points/internal/stats"
	"github.com/joho/godotenv"
)

type stores struct {
	accounts ledger.Store
	orders   orders.Store
	messages messages.Store
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		obs.Logger.WithError(err).Fatal("config")
	}
	obs.Init(cfg.LogLevel)
	log := obs.Component("api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	var st stores
	if cfg.InMemory() {
		mem := memstore.New()
		st = stores{accounts: mem, orders: mem, messages: mem}
		log.Warn("using in-memory storage; data is lost on restart")
	} else {
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.WithError(err).Fatal("db connect")
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("db migrate")
		}
		st = stores{
			accounts: &ledger.Repo{DB: db},
			orders:   &orders.Repo{DB: db},
			messages: &messages.Repo{DB: db},
		}
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.WithError(err).Fatal("redis")
	}

	// Kafka mirror of the event bus
	prod := kafkax.NewProducer(cfg.Brokers(), cfg.EventsTopic, 1024)
	prod.Start(ctx)

	// Services
	bus := events.NewBus(&events.KafkaSink{Producer: prod, Service: cfg.ServiceName})
	ledgerSvc := &ledger.Service{Store: st.accounts, Bus: bus}
	msgSvc := &messages.Service{Store: st.messages, Accounts: ledgerSvc}
	shopSvc := &shop.Service{Orders: st.orders, Messages: msgSvc, Bus: bus}
	authSvc := &auth.Service{Accounts: st.accounts, Sessions: &auth.RedisSessions{RDB: rdb, TTL: cfg.SessionTTL}}

	// Realtime
	registry := realtime.NewRegistry(cfg.WSSendBuffer, 54*time.Second)
	gateway := realtime.NewGateway(registry, st.orders, msgSvc)
	gateway.Identify = httpx.RealtimeIdentity
	bus.Subscribe(gateway)

	if cfg.SeedAdminPassword != "" {
		if err := seed(ctx, authSvc, ledgerSvc, shopSvc, cfg.SeedAdminPassword); err != nil {
			log.WithError(err).Fatal("seed")
		}
	}

	router := httpx.NewRouter(authSvc)
	router.Handle("/ws", gateway)
	httpx.MountAPI(router,
		&httpx.AuthHandler{Auth: authSvc, SessionTTL: cfg.SessionTTL},
		&httpx.OrdersHandler{Orders: st.orders, Accounts: st.accounts, Shop: shopSvc},
		&httpx.MessagesHandler{Messages: msgSvc, Shop: shopSvc},
		&httpx.TransfersHandler{Ledger: ledgerSvc, Redis: rdb},
		&httpx.AdminHandler{Accounts: st.accounts, Ledger: ledgerSvc, Orders: st.orders, Shop: shopSvc, Stats: &stats.Reader{Redis: rdb}},
	)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	registry.CloseAll()
	prod.Close()
	prod.WaitClosed()
	cancel()
}
