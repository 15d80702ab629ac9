// Package main provides the mentor backend entry point.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/thebtf/mentor/internal/catalog"
	"github.com/thebtf/mentor/internal/config"
	"github.com/thebtf/mentor/internal/engine"
	"github.com/thebtf/mentor/internal/gateway"
	"github.com/thebtf/mentor/internal/intent"
	"github.com/thebtf/mentor/internal/retrieval"
	"github.com/thebtf/mentor/internal/scheduler"
	"github.com/thebtf/mentor/internal/server"
	"github.com/thebtf/mentor/internal/store"
	"github.com/thebtf/mentor/internal/telemetry"
	"github.com/thebtf/mentor/internal/watcher"
	"github.com/thebtf/mentor/internal/websearch"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	port := flag.Int("port", 0, "HTTP port (default: settings file)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	// Ensure data directory and settings exist
	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directories")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if *port != 0 {
		cfg.Port = *port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down")
		cancel()
	}()

	// Metrics write to a file in the data directory; a failed setup only
	// disables recording, not the service.
	var metrics *telemetry.Metrics
	metricsFile, err := os.OpenFile(config.MetricsPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Warn().Err(err).Msg("Metrics file unavailable, telemetry disabled")
	} else {
		defer metricsFile.Close()
		var shutdown func()
		metrics, shutdown, err = telemetry.Init(ctx, Version, metricsFile)
		if err != nil {
			log.Warn().Err(err).Msg("Telemetry setup failed, continuing without metrics")
		} else {
			defer shutdown()
		}
	}

	// Session store. Redis connects lazily; a down instance surfaces as
	// 503s on session endpoints, not a startup failure.
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	sessionStore := store.New(store.NewPool(cfg.RedisAddr), store.Options{
		ChatTTL:    time.Duration(cfg.ChatTTLHours) * time.Hour,
		TaskTTL:    time.Duration(cfg.TaskTTLHours) * time.Hour,
		StudyTTL:   time.Duration(cfg.StudyTTLHours) * time.Hour,
		HistoryCap: cfg.HistoryCap,
	})
	defer sessionStore.Close()
	if err := sessionStore.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unreachable, session features degraded")
	}

	gw := gateway.New(gateway.Config{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Providers: cfg.Providers,
		Timeout:   timeout,
		SiteName:  "mentor",
	}, gateway.NewRotation(), metrics)
	if !gw.HasCredentials() {
		log.Warn().Msg("No API key configured, model responses disabled")
	}

	var index retrieval.Index
	if cfg.RetrievalURL != "" {
		index = retrieval.NewClient(cfg.RetrievalURL, timeout)
	}

	eng := engine.New(engine.Config{
		Store:        sessionStore,
		Gateway:      gw,
		Classifier:   intent.New(gw),
		Search:       websearch.New(cfg.SearchURL, timeout),
		Index:        index,
		Metrics:      metrics,
		ContextLimit: cfg.ContextLimit,
	})

	cat, err := catalog.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load resource catalog")
	}

	svc := server.New(Version, eng, sessionStore, cat)

	// Exit on settings changes so the supervisor restarts with fresh config.
	settingsWatcher, err := watcher.New(config.SettingsPath(), func() {
		log.Info().Msg("Settings changed, restarting")
		cancel()
	})
	if err != nil {
		log.Warn().Err(err).Msg("Settings watcher unavailable")
	} else {
		if err := settingsWatcher.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start settings watcher")
		} else {
			defer settingsWatcher.Stop()
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Run(gctx, cfg.Port)
	})
	g.Go(func() error {
		return scheduler.New(scheduler.DefaultInterval).Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
	log.Info().Msg("Shutdown complete")
}
