// Package app wires configuration into the infrastructure and services
// shared by the needsfine binaries.
package app

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/turtacn/NeedsFine/internal/application/analysis"
	"github.com/turtacn/NeedsFine/internal/application/curation"
	"github.com/turtacn/NeedsFine/internal/application/learning"
	"github.com/turtacn/NeedsFine/internal/config"
	"github.com/turtacn/NeedsFine/internal/domain/lexicon"
	"github.com/turtacn/NeedsFine/internal/domain/review"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	"github.com/turtacn/NeedsFine/internal/infrastructure/database/postgres"
	"github.com/turtacn/NeedsFine/internal/infrastructure/database/postgres/repositories"
	redisinfra "github.com/turtacn/NeedsFine/internal/infrastructure/database/redis"
	"github.com/turtacn/NeedsFine/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/NeedsFine/pkg/errors"
)

const recalcLockName = "recalculate"

// Options selects the optional parts of the graph.
type Options struct {
	// Source names the process in published events.
	Source string
	// Migrate applies pending migrations when the database config asks for it.
	Migrate bool
	// Messaging connects the Kafka producer when Kafka is enabled.
	Messaging bool
	// Metrics builds the Prometheus registry when metrics are enabled.
	Metrics bool
}

// Deps is the assembled dependency graph. Optional members are nil when
// their backend is disabled.
type Deps struct {
	Config *config.Config
	Logger logging.Logger
	Engine scoring.EngineConfig

	DB       *postgres.Connection
	Redis    *redisinfra.Client
	Cache    redisinfra.Cache
	Producer *kafka.Producer
	Events   *kafka.EventPublisher

	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	Lexicon  *lexicon.Cache
	Reviews  review.Repository
	Promoter lexicon.Promoter
	Learner  learning.Learner

	closers []func() error
}

// Open connects every enabled backend. On failure whatever was opened is
// closed again.
func Open(ctx context.Context, cfg *config.Config, logger logging.Logger, opts Options) (d *Deps, err error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	engine, err := cfg.EngineConfig()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid engine config")
	}
	d = &Deps{Config: cfg, Logger: logger, Engine: engine}
	defer func() {
		if err != nil {
			_ = d.Close()
		}
	}()

	if opts.Metrics && cfg.Metrics.Enabled {
		d.Collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableGoMetrics:      cfg.Metrics.EnableGoMetrics,
			EnableProcessMetrics: cfg.Metrics.EnableProcessMetrics,
		}, logger)
		if err != nil {
			return nil, err
		}
		d.Metrics = prometheus.NewAppMetrics(d.Collector)
	}

	if d.DB, err = OpenDatabase(cfg.Database, logger); err != nil {
		return nil, err
	}
	d.closers = append(d.closers, d.DB.Close)

	if opts.Migrate && cfg.Database.AutoMigrate {
		if err = migrateUp(cfg.Database, logger); err != nil {
			return nil, err
		}
	}

	if cfg.Redis.Enabled {
		d.Redis, err = redisinfra.NewClient(&redisinfra.RedisConfig{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			KeyPrefix:    cfg.Redis.KeyPrefix,
		}, logger)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, d.Redis.Close)
		d.Cache = redisinfra.NewRedisCache(d.Redis, logger, redisinfra.WithDefaultTTL(cfg.Redis.StatsTTL))
	}

	if opts.Messaging && cfg.Kafka.Enabled {
		d.Producer, err = kafka.NewProducer(ProducerConfig(cfg.Kafka), logger)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, d.Producer.Close)
		d.Events = kafka.NewEventPublisher(d.Producer, opts.Source, logger)
	}

	d.buildDomain()
	return d, nil
}

func (d *Deps) buildDomain() {
	cfg, logger := d.Config, d.Logger

	var cacheOpts []lexicon.CacheOption
	if d.Cache != nil {
		cacheOpts = append(cacheOpts, lexicon.WithSnapshot(redisinfra.NewLexiconSnapshot(d.Cache, cfg.Lexicon.SnapshotTTL)))
	}
	if d.Metrics != nil {
		cacheOpts = append(cacheOpts, lexicon.WithCacheMetrics(d.Metrics.LexiconCacheMetrics()))
	}
	d.Lexicon = lexicon.NewCache(repositories.NewPostgresCueRepo(d.DB, logger), cfg.Lexicon.CacheTTL, logger, cacheOpts...)
	d.Reviews = repositories.NewPostgresReviewRepo(d.DB, logger)
	d.Promoter = lexicon.NewPromoter(repositories.NewPostgresCandidateRepo(d.DB, logger), d.Lexicon, cfg.Mining.MiningConfig, logger)

	var learnOpts []learning.Option
	if d.Events != nil {
		learnOpts = append(learnOpts, learning.WithPublisher(d.Events))
	}
	if d.Metrics != nil {
		learnOpts = append(learnOpts, learning.WithMetrics(d.Metrics))
	}
	d.Learner = learning.NewLearner(d.Promoter, d.Lexicon, d.Engine, cfg.Mining.MiningConfig, logger, learnOpts...)
}

// AnalysisService builds the scoring service. Submitted reviews are mined
// in-process unless mining is delegated to the worker.
func (d *Deps) AnalysisService() analysis.Service {
	var opts []analysis.Option
	if d.Config.MineInProcess() {
		opts = append(opts, analysis.WithLearner(d.Learner))
	}
	if d.Events != nil {
		opts = append(opts, analysis.WithPublisher(d.Events))
	}
	if d.Metrics != nil {
		opts = append(opts, analysis.WithMetrics(d.Metrics))
	}
	if d.Redis != nil {
		opts = append(opts,
			analysis.WithRecalcMutex(redisinfra.NewMutex(d.Redis, recalcLockName, d.Logger,
				redisinfra.WithLockTTL(time.Minute), redisinfra.WithWatchdog(20*time.Second))),
			analysis.WithStatsCache(d.Cache, d.Config.Redis.StatsTTL),
		)
	}
	return analysis.NewService(d.Reviews, d.Lexicon, d.Engine, d.Logger, opts...)
}

// CurationService builds the admin term curation service.
func (d *Deps) CurationService() curation.Service {
	var pub curation.PromotionPublisher
	if d.Events != nil {
		pub = d.Events
	}
	return curation.NewService(d.Promoter, d.Lexicon, pub, d.Logger)
}

// Checks returns a ping per connected backend, keyed by component name.
func (d *Deps) Checks() map[string]func(context.Context) error {
	checks := make(map[string]func(context.Context) error, 2)
	if d.DB != nil {
		checks["postgres"] = d.DB.HealthCheck
	}
	if d.Redis != nil {
		checks["redis"] = d.Redis.Ping
	}
	return checks
}

// Close releases every opened backend in reverse order.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return stderrors.Join(errs...)
}

// OpenDatabase opens the Postgres pool described by cfg.
func OpenDatabase(cfg config.DatabaseConfig, logger logging.Logger) (*postgres.Connection, error) {
	return postgres.NewConnection(PostgresConfig(cfg), logger)
}

// NewMigrator opens a dedicated connection for migrations. Closing the
// Migrator closes that connection.
func NewMigrator(cfg config.DatabaseConfig, logger logging.Logger) (*postgres.Migrator, error) {
	conn, err := OpenDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}
	m, err := postgres.NewMigrator(conn.DB(), logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return m, nil
}

func migrateUp(cfg config.DatabaseConfig, logger logging.Logger) error {
	m, err := NewMigrator(cfg, logger)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}

// PostgresConfig maps the database section onto the connection settings.
func PostgresConfig(cfg config.DatabaseConfig) postgres.PostgresConfig {
	return postgres.PostgresConfig{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Database:        cfg.DBName,
		Username:        cfg.User,
		Password:        cfg.Password,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
}

// ProducerConfig maps the Kafka section onto the producer settings.
func ProducerConfig(cfg config.KafkaConfig) kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:      cfg.Brokers,
		Acks:         "all",
		MaxRetries:   cfg.ProducerRetries,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
	}
}

// ConsumerConfig maps the Kafka section onto a consumer of topics.
func ConsumerConfig(cfg config.KafkaConfig, groupID string, topics ...string) kafka.ConsumerConfig {
	if groupID == "" {
		groupID = cfg.GroupID
	}
	return kafka.ConsumerConfig{
		Brokers:         cfg.Brokers,
		GroupID:         groupID,
		Topics:          topics,
		AutoOffsetReset: cfg.AutoOffsetReset,
		RetryConfig: kafka.RetryConfig{
			MaxRetries:      cfg.MaxRetries,
			RetryBackoff:    cfg.RetryBackoff,
			MaxRetryBackoff: 30 * time.Second,
			DeadLetterTopic: kafka.TopicDeadLetter,
		},
	}
}
