package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/pagepulse/internal/adapters/http/api"
	app "github.com/okian/pagepulse/internal/app"
	"github.com/okian/pagepulse/internal/config"
	"github.com/okian/pagepulse/internal/domain/sensor"
	"github.com/okian/pagepulse/internal/experiments"
	"github.com/okian/pagepulse/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	assigner := experiments.New(
		experiments.WithWeights(experiments.Weights{
			CopyA:  cfg.CopyWeightA,
			CopyB:  cfg.CopyWeightB,
			StyleA: cfg.StyleWeightA,
			StyleB: cfg.StyleWeightB,
		}),
	)

	// Create and start the session registry with configuration options
	svc := app.NewService(
		app.WithServiceLogger(log),
		app.WithWebhookURL(cfg.WebhookURL),
		app.WithFlushInterval(time.Duration(cfg.FlushIntervalMS)*time.Millisecond),
		app.WithBufferCap(cfg.PayloadBufferCap),
		app.WithRetryKeep(cfg.RetryKeep),
		app.WithBeaconQueueSize(cfg.BeaconQueueSize),
		app.WithSendTimeout(time.Duration(cfg.SendTimeoutMS)*time.Millisecond),
		app.WithServiceRingCapacity(cfg.EventRingCapacity),
		app.WithSessionTTL(time.Duration(cfg.SessionTTLSeconds)*time.Second),
		app.WithJanitorInterval(time.Duration(cfg.JanitorIntervalSeconds)*time.Second),
		app.WithServiceScrollDebounce(time.Duration(cfg.ScrollDebounceMS)*time.Millisecond),
		app.WithServiceThresholds(sensor.Thresholds{
			RageClickCount:    cfg.RageClickThreshold,
			RageClickWindow:   time.Duration(cfg.RageClickWindowMS) * time.Millisecond,
			FlybyVelocity:     cfg.FlybyVelocity,
			Idle:              time.Duration(cfg.IdleThresholdMS) * time.Millisecond,
			FastScrollArrival: time.Duration(cfg.FastScrollMS) * time.Millisecond,
			HoverHesitation:   time.Duration(cfg.HoverHesitationMS) * time.Millisecond,
			FieldSequenceCap:  sensor.DefaultThresholds().FieldSequenceCap,
			ClickMapSendCap:   sensor.DefaultThresholds().ClickMapSendCap,
		}),
		app.WithAssigner(assigner),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop(context.Background())

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register ingest API routes with the registry dependency.
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}
