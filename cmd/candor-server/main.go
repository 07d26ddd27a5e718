// candor-server: behavioral analysis service.
// Accepts landmark frames over WebSocket, runs per-session stress analysis
// and streams metrics, tells and alerts back out.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/candormetrics/go-candor/internal/config"
	"github.com/candormetrics/go-candor/internal/log"
	"github.com/candormetrics/go-candor/pkg/emotion"
	"github.com/candormetrics/go-candor/pkg/session"
	"github.com/candormetrics/go-candor/pkg/web"
)

var (
	version = "1.0.0"
	port    = flag.String("port", "", "HTTP server port (overrides PORT env)")
)

func main() {
	flag.Parse()

	log.Init(config.LogLevel())

	listenPort := config.Port()
	if *port != "" {
		listenPort = *port
	}

	cfg := session.DefaultConfig()
	cfg.Calibration.Duration = config.CalibrationDuration(cfg.Calibration.Duration)
	cfg.Geometry.EyeBlinkThreshold = config.BlinkThreshold(cfg.Geometry.EyeBlinkThreshold)

	var opts []session.Option
	if endpoint := config.EmotionEndpoint(); endpoint != "" {
		provider, err := emotion.NewHTTPProvider(emotion.WithEndpoint(endpoint))
		if err != nil {
			log.Error("emotion provider", "error", err)
			os.Exit(1)
		}
		opts = append(opts, session.WithProvider(provider))
		log.Info("emotion classifier wired", "endpoint", endpoint)
	} else {
		log.Warn("no EMOTION_ENDPOINT set, running on geometry alone")
	}

	manager := session.NewManager(cfg, opts...)
	server := web.NewServer(listenPort, manager)

	go func() {
		if err := server.Start(); err != nil {
			log.Error("server", "error", err)
			os.Exit(1)
		}
	}()

	fmt.Printf("candor-server v%s listening on :%s\n", version, listenPort)
	fmt.Printf("  ingest:  ws://localhost:%s/ws/ingest/:id\n", listenPort)
	fmt.Printf("  metrics: ws://localhost:%s/ws/metrics/:id\n", listenPort)
	fmt.Printf("  health:  http://localhost:%s/health\n", listenPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := server.Shutdown(); err != nil {
		log.Error("shutdown", "error", err)
	}
}
