package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/SteelMorgan/admin-gluster/internal/config"
	"github.com/SteelMorgan/admin-gluster/internal/hostinfo"
	"github.com/SteelMorgan/admin-gluster/internal/influx"
	"github.com/SteelMorgan/admin-gluster/internal/mapping"
	"github.com/SteelMorgan/admin-gluster/internal/observability"
	"github.com/SteelMorgan/admin-gluster/internal/retry"
	"github.com/SteelMorgan/admin-gluster/internal/service"
	"github.com/SteelMorgan/admin-gluster/internal/volumes"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	observability.InitLogger(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("version", version).
		Str("config", cfg.ConfigPath).
		Bool("config_loaded", cfg.FileLoaded).
		Bool("read_only", cfg.ReadOnly).
		Msg("Starting gluster brick stats collector")

	if !cfg.FileLoaded {
		log.Info().Str("config", cfg.ConfigPath).Msg("Config file not found, using defaults and environment")
	}

	hostname, err := hostinfo.Resolve(cfg.HostnameFile, cfg.Hostname)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve hostname")
	}

	// Initialize tracer (no-op when disabled)
	shutdown, err := observability.InitTracer(observability.TracerConfig{
		ServiceName:    "admin-gluster",
		ServiceVersion: version,
		Hostname:       hostname,
		Endpoint:       cfg.TracingEndpoint,
		Protocol:       cfg.TracingProtocol,
		SampleRatio:    cfg.TracingSampleRatio,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer shutdown(context.Background())
	}

	discovery, err := newDiscovery(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up volume discovery")
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := service.NewCollectionLoop(service.LoopConfig{
		StatsDir:     cfg.StatsDir,
		Hostname:     hostname,
		Interval:     cfg.ScanInterval,
		Warmup:       cfg.WarmupDelay,
		CycleTimeout: cfg.CycleTimeout,
	}, service.Deps{
		Discovery: discovery,
		Sink:      newEmitter(cfg),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})

	log.Info().Msg("Collector started successfully")

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Collector error")
	}

	log.Info().Msg("Collector stopped")
}

func newDiscovery(cfg *config.Config) (*volumes.Discovery, error) {
	var bricks map[string]string
	if cfg.BrickMapPath != "" {
		bm, err := mapping.LoadBrickMap(cfg.BrickMapPath)
		if err != nil {
			return nil, err
		}
		bricks = bm.Index()
		log.Info().
			Str("path", cfg.BrickMapPath).
			Int("bricks", len(bricks)).
			Msg("Brick map loaded")
	}

	var lister volumes.Lister
	switch cfg.Discovery {
	case config.DiscoveryGluster:
		lister = volumes.NewGlusterLister(cfg.GlusterBinary)
	case config.DiscoveryStatic:
		lister = volumes.StaticLister(cfg.Volumes)
	case config.DiscoveryFilename:
		// every name in the stats directory is accepted
	default:
		return nil, fmt.Errorf("unknown discovery mode: %s", cfg.Discovery)
	}

	log.Info().Str("mode", cfg.Discovery).Msg("Volume discovery configured")
	return volumes.NewDiscovery(lister, bricks), nil
}

func newEmitter(cfg *config.Config) service.Emitter {
	if cfg.ReadOnly {
		log.Warn().Msg("Read-only mode: measurements are logged, not sent")
		return influx.LogSink{}
	}

	sinkCfg := cfg.Sink()
	log.Info().
		Str("url", sinkCfg.BaseURL).
		Str("database", sinkCfg.Database).
		Msg("InfluxDB sink configured")

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.RetryMaxAttempts
	retryCfg.InitialDelay = cfg.RetryInitialDelay()
	retryCfg.MaxDelay = cfg.RetryMaxDelay()

	return influx.NewSink(sinkCfg, influx.Options{
		Timeout:        cfg.WriteTimeout,
		Retry:          retryCfg,
		AlertThreshold: cfg.FailureAlertThreshold,
	})
}
