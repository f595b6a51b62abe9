// watch tails the realtime gateway: it prints every frame it receives and stays attached
// across server restarts. SIGCONT (resume after ^Z) forces an immediate reconnect.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/config"
	"github.com/ariefcatur/go-realtime-points/internal/obs"
	"github.com/ariefcatur/go-realtime-points/internal/wsclient"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		obs.Logger.WithError(err).Fatal("config")
	}
	url := flag.String("url", cfg.WSURL, "gateway websocket url")
	only := flag.String("type", wsclient.AllMessages, "print only frames of this type")
	ping := flag.Duration("ping", wsclient.DefaultPingInterval, "keep-alive interval")
	flag.Parse()

	obs.Init(cfg.LogLevel)
	log := obs.Component("watch")

	wake := make(chan struct{}, 1)
	cont := make(chan os.Signal, 1)
	signal.Notify(cont, syscall.SIGCONT)
	go func() {
		for range cont {
			select {
			case wake <- struct{}{}:
			default:
			}
		}
	}()

	m := wsclient.New(*url,
		wsclient.WithPingInterval(*ping),
		wsclient.WithWakeSignal(wake),
		wsclient.WithStateCallback(func(s wsclient.State) {
			log.WithField("state", s.String()).Info("connection state")
		}),
	)
	m.AddMessageHandler(*only, func(msg wsclient.Message) {
		fmt.Printf("%s %s\n", time.Now().Format(time.RFC3339), msg.Raw)
	})
	m.Connect()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	signal.Stop(cont)
	if err := m.Close(); err != nil {
		log.WithError(err).Warn("close")
	}
}
