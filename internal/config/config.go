// Package config defines all configuration structures for NeedsFine. The
// data types and their validation live here; loading lives in loader.go.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/NeedsFine/internal/domain/lexicon"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig holds Redis connection parameters. Redis backs the shared
// lexicon snapshot; without it every process reads Postgres directly.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	StatsTTL     time.Duration `mapstructure:"stats_ttl"`
}

// KafkaConfig holds producer and consumer parameters.
type KafkaConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Brokers           []string      `mapstructure:"brokers"`
	GroupID           string        `mapstructure:"group_id"`
	AutoOffsetReset   string        `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	ProducerRetries   int           `mapstructure:"producer_retries"`
	BatchSize         int           `mapstructure:"batch_size"`
	BatchTimeout      time.Duration `mapstructure:"batch_timeout"`
	AutoCreateTopics  bool          `mapstructure:"auto_create_topics"`
	ReplicationFactor int           `mapstructure:"replication_factor"`
	NumPartitions     int           `mapstructure:"num_partitions"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
}

// MetricsConfig controls the Prometheus registry.
type MetricsConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Namespace            string `mapstructure:"namespace"`
	Path                 string `mapstructure:"path"`
	EnableGoMetrics      bool   `mapstructure:"enable_go_metrics"`
	EnableProcessMetrics bool   `mapstructure:"enable_process_metrics"`
}

// LexiconConfig controls dynamic cue caching.
type LexiconConfig struct {
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

// MiningConfig extends the miner thresholds with where mining runs. With
// Async set and Kafka enabled the API only publishes review.analyzed and
// the worker mines; otherwise the API mines in-process.
type MiningConfig struct {
	lexicon.MiningConfig `mapstructure:",squash"`
	Async                bool `mapstructure:"async"`
}

// AdminConfig guards the admin endpoints. An empty password disables them.
type AdminConfig struct {
	Password string `mapstructure:"password"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure. Every infrastructure component
// and application service reads its settings from the relevant sub-struct.
type Config struct {
	Server   ServerConfig       `mapstructure:"server"`
	Database DatabaseConfig     `mapstructure:"database"`
	Redis    RedisConfig        `mapstructure:"redis"`
	Kafka    KafkaConfig        `mapstructure:"kafka"`
	Log      logging.LogConfig  `mapstructure:"log"`
	Metrics  MetricsConfig      `mapstructure:"metrics"`
	Engine   EngineOverrides    `mapstructure:"engine"`
	Lexicon  LexiconConfig      `mapstructure:"lexicon"`
	Mining   MiningConfig       `mapstructure:"mining"`
	Admin    AdminConfig        `mapstructure:"admin"`
}

// MineInProcess reports whether the API server should mine submitted
// reviews itself.
func (c *Config) MineInProcess() bool {
	return c.Mining.Enabled && !(c.Mining.Async && c.Kafka.Enabled)
}

// EngineConfig resolves the scoring policy with overrides applied and
// validates it.
func (c *Config) EngineConfig() (scoring.EngineConfig, error) {
	base, err := scoring.ConfigForPolicy(c.Engine.Policy)
	if err != nil {
		return scoring.EngineConfig{}, err
	}
	cfg := c.Engine.Apply(base)
	if err := cfg.Validate(); err != nil {
		return scoring.EngineConfig{}, err
	}
	return cfg, nil
}

// DSN renders the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.MaxBodySize < 0 {
		return fmt.Errorf("config: server.max_body_size must be ≥ 0, got %d", c.Server.MaxBodySize)
	}

	// Database
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be ≥ 1, got %d", c.Database.MaxConns)
	}

	// Redis
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when redis is enabled")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("config: kafka.group_id is required")
		}
		switch c.Kafka.AutoOffsetReset {
		case "earliest", "latest":
		default:
			return fmt.Errorf("config: kafka.auto_offset_reset %q is invalid; expected earliest|latest", c.Kafka.AutoOffsetReset)
		}
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("config: metrics.namespace is required when metrics are enabled")
	}

	// Lexicon
	if c.Lexicon.CacheTTL <= 0 {
		return fmt.Errorf("config: lexicon.cache_ttl must be positive, got %s", c.Lexicon.CacheTTL)
	}

	// Mining
	m := c.Mining
	if m.MinTokenLen < 1 || m.MaxTokenLen < m.MinTokenLen {
		return fmt.Errorf("config: mining token length bounds [%d, %d] are invalid", m.MinTokenLen, m.MaxTokenLen)
	}
	if m.MinConfidence < 0 || m.MinConfidence > 1 || m.PromoteMinConfidence < 0 || m.PromoteMinConfidence > 1 {
		return fmt.Errorf("config: mining confidences must be in [0, 1]")
	}
	if m.PromoteMinCount < 1 {
		return fmt.Errorf("config: mining.promote_min_count must be ≥ 1, got %d", m.PromoteMinCount)
	}

	// Engine
	if _, err := c.EngineConfig(); err != nil {
		return fmt.Errorf("config: engine: %w", err)
	}

	return nil
}
