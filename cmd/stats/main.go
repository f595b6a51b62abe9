package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-realtime-points/internal/config"
	kafkax "github.com/ariefcatur/go-realtime-points/internal/kafka"
	"github.com/ariefcatur/go-realtime-points/internal/obs"
	"github.com/ariefcatur/go-realtime-points/internal/redisx"
	"github.com/ariefcatur/go-realtime-points/internal/stats"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		obs.Logger.WithError(err).Fatal("config")
	}
	obs.Init(cfg.LogLevel)
	log := obs.Component("stats")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.WithError(err).Fatal("redis")
	}

	svc := &stats.Service{Redis: rdb}
	cons := kafkax.NewConsumer(cfg.Brokers(), cfg.StatsGroup, cfg.EventsTopic, cfg.StatsWorkers)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.WithFields(map[string]any{
			"group":   cfg.StatsGroup,
			"topic":   cfg.EventsTopic,
			"workers": cfg.StatsWorkers,
		}).Info("stats consumer started")
		if err := cons.Start(ctx, svc.HandleEvent); err != nil {
			log.WithError(err).Error("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer")
	cancel()
	<-done
}
