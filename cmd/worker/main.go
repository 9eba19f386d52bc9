// Command worker mines submitted reviews for lexicon candidates. It consumes
// review.analyzed, so it only has work when mining is async.
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
	"github.com/turtacn/NeedsFine/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/NeedsFine/internal/interfaces/http"
	"github.com/turtacn/NeedsFine/internal/interfaces/http/handlers"
	"github.com/turtacn/NeedsFine/internal/interfaces/http/middleware"
)

const defaultHealthPort = 8081

// Build-time variables injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	healthPort := flag.Int("health-port", defaultHealthPort, "port for /healthz, /readyz and /metrics")
	groupID := flag.String("group", "", "consumer group (overrides config)")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath == "" {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load(*configPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("worker")
	logging.SetDefault(logger)

	if err := run(cfg, *healthPort, *groupID, logger); err != nil {
		logger.Error("worker exited", logging.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(cfg *config.Config, healthPort int, groupID string, logger logging.Logger) error {
	if err := app.CheckWorkerConfig(cfg); err != nil {
		return err
	}
	if !cfg.Mining.Enabled {
		logger.Warn("mining is disabled; review.analyzed records will be consumed without effect")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Open(ctx, cfg, logger, app.Options{
		Source:    "needsfine-worker",
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

	var observer app.MessageObserver
	var health handlers.HealthObserver
	if deps.Metrics != nil {
		deps.Metrics.SetBuildInfo(version, scoring.LogicVersion)
		observer = deps.Metrics
		health = deps.Metrics
	}

	if cfg.Kafka.AutoCreateTopics {
		app.EnsureTopics(ctx, cfg.Kafka, logger)
	}

	promotions, err := deps.StartPromotionListener(ctx)
	if err != nil {
		return err
	}
	defer promotions.Close()

	consumer, err := kafka.NewConsumer(
		app.ConsumerConfig(cfg.Kafka, groupID, kafka.TopicReviewAnalyzed),
		logger,
		kafka.WithDeadLetterPublisher(deps.Producer),
	)
	if err != nil {
		return err
	}
	consumer.Subscribe(kafka.TopicReviewAnalyzed, app.ReviewAnalyzedHandler(deps.Learner, observer, logger))
	if err := consumer.Start(ctx); err != nil {
		_ = consumer.Close()
		return err
	}

	routerCfg := httpserver.RouterConfig{
		HealthHandler: handlers.NewHealthHandler(
			handlers.BuildInfo{Version: version, Policy: deps.Engine.Policy},
			health,
			handlers.CheckersFrom(deps.Checks())...,
		),
		Logging: middleware.DefaultLoggingConfig(),
		Logger:  logger,
	}
	if deps.Collector != nil {
		routerCfg.MetricsHandler = deps.Collector.Handler()
	}
	serverCfg := cfg.Server
	serverCfg.Port = healthPort
	srv := httpserver.NewServer(serverCfg, httpserver.NewRouter(routerCfg), logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.Info("NeedsFine worker started",
		logging.String("topic", kafka.TopicReviewAnalyzed),
		logging.String("version", version),
		logging.String("logic_version", scoring.LogicVersion),
	)

	select {
	case err = <-errCh:
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	// Stop consuming first so in-flight records finish before the
	// producer used for dead letters closes.
	if cerr := consumer.Close(); cerr != nil {
		logger.Warn("consumer close failed", logging.Err(cerr))
	}
	processed, failed, dead := consumer.Processed()
	logger.Info("worker stopped",
		logging.Int64("processed", processed),
		logging.Int64("failed", failed),
		logging.Int64("dead_lettered", dead),
	)
	if err != nil {
		return err
	}
	return srv.Stop(context.Background())
}
