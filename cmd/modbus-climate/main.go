// cmd/modbus-climate/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/tamzrod/modbus-climate/internal/config"
	"github.com/tamzrod/modbus-climate/internal/metrics"
	"github.com/tamzrod/modbus-climate/internal/mqtt"
	"github.com/tamzrod/modbus-climate/internal/poller"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: modbus-climate <config.yaml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	lvl, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Publishers
	// --------------------

	exporter := metrics.New()
	if cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", exporter.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}

		go func() {
			log.Infof("metrics listening on %s", cfg.Metrics.Listen)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("metrics server failed: %v", err)
			}
		}()
		defer srv.Close()
	}

	var bridge *mqtt.Bridge
	if cfg.MQTT.Broker != "" {
		bridge = mqtt.New(mqtt.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Prefix:   cfg.MQTT.Prefix,
		})
		if err := bridge.Connect(); err != nil {
			log.Warnf("could not connect to MQTT initially, will retry in background: %v", err)
		}
		defer bridge.Close()
	}

	// --------------------
	// Build per-climate pollers
	// --------------------

	var wg sync.WaitGroup

	for _, c := range cfg.Climates {
		p, closePoller, err := poller.Build(c)
		if err != nil {
			log.Fatalf("poller build failed (climate=%s): %v", c.ID, err)
		}
		defer closePoller()

		p.AddPublisher(exporter)
		if bridge != nil {
			p.AddPublisher(bridge)
			for _, name := range p.DeviceNames() {
				bridge.Route(name, p)
			}
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Run(ctx)
		}()
	}

	<-ctx.Done()
	log.Info("shutting down")
	wg.Wait()
}
