// Command apiserver serves the NeedsFine HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/NeedsFine/internal/app"
	"github.com/turtacn/NeedsFine/internal/config"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/NeedsFine/internal/interfaces/http"
	"github.com/turtacn/NeedsFine/internal/interfaces/http/handlers"
	"github.com/turtacn/NeedsFine/internal/interfaces/http/middleware"
)

// Build-time variables injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logging.SetDefault(logger)

	if err := run(cfg, *configPath, logger); err != nil {
		logger.Error("API server exited", logging.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

func run(cfg *config.Config, configPath string, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Open(ctx, cfg, logger, app.Options{
		Source:    "needsfine-api",
		Migrate:   true,
		Messaging: true,
		Metrics:   true,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("closing dependencies", logging.Err(err))
		}
	}()
	if deps.Metrics != nil {
		deps.Metrics.SetBuildInfo(version, scoring.LogicVersion)
	}

	if cfg.Kafka.Enabled {
		if cfg.Kafka.AutoCreateTopics {
			app.EnsureTopics(ctx, cfg.Kafka, logger)
		}
		consumer, err := deps.StartPromotionListener(ctx)
		if err != nil {
			return err
		}
		defer consumer.Close()
	}

	if configPath != "" {
		watchConfig(configPath, logger)
	}

	analysisSvc := deps.AnalysisService()
	var observer handlers.HealthObserver
	routerCfg := httpserver.RouterConfig{
		ReviewHandler: handlers.NewReviewHandler(analysisSvc, logger),
		AdminHandler:  handlers.NewAdminHandler(analysisSvc, deps.CurationService(), logger),
		CORS:          middleware.CORSConfig{AllowedOrigins: cfg.Server.CORSOrigins, MaxAge: 86400},
		Logging:       middleware.DefaultLoggingConfig(),
		AdminPassword: cfg.Admin.Password,
		MaxBodySize:   cfg.Server.MaxBodySize,
		Logger:        logger,
	}
	if deps.Metrics != nil {
		observer = deps.Metrics
		routerCfg.MetricsHandler = deps.Collector.Handler()
		routerCfg.Recorder = deps.Metrics
	}
	routerCfg.HealthHandler = handlers.NewHealthHandler(
		handlers.BuildInfo{Version: version, Policy: deps.Engine.Policy},
		observer,
		handlers.CheckersFrom(deps.Checks())...,
	)

	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.Info("NeedsFine API server started",
		logging.String("addr", srv.Addr()),
		logging.String("version", version),
		logging.String("logic_version", scoring.LogicVersion),
		logging.Bool("mine_in_process", cfg.MineInProcess()),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}
	return srv.Stop(context.Background())
}

// watchConfig applies log level changes without a restart.
func watchConfig(path string, logger logging.Logger) {
	err := config.Watch(path, func(c *config.Config) {
		if logging.SetLevel(logger, c.Log.Level) {
			logger.Info("log level updated", logging.String("level", c.Log.Level))
		}
	}, func(err error) {
		logger.Warn("ignoring invalid config change", logging.Err(err))
	})
	if err != nil {
		logger.Warn("config watch disabled", logging.Err(err))
	}
}
