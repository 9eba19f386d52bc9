package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/NeedsFine/internal/config"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
)

// validConfig returns a Config that passes Validate() with defaults only.
func validConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Failures(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"server port", func(c *config.Config) { c.Server.Port = 70000 }, "server.port"},
		{"body size", func(c *config.Config) { c.Server.MaxBodySize = -1 }, "server.max_body_size"},
		{"db host", func(c *config.Config) { c.Database.Host = "" }, "database.host"},
		{"db user", func(c *config.Config) { c.Database.User = "" }, "database.user"},
		{"db name", func(c *config.Config) { c.Database.DBName = "" }, "database.db_name"},
		{"redis addr", func(c *config.Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }, "redis.addr"},
		{"kafka brokers", func(c *config.Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }, "kafka.brokers"},
		{"kafka offset", func(c *config.Config) { c.Kafka.Enabled = true; c.Kafka.AutoOffsetReset = "middle" }, "auto_offset_reset"},
		{"log level", func(c *config.Config) { c.Log.Level = "verbose" }, "log.level"},
		{"log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
		{"cache ttl", func(c *config.Config) { c.Lexicon.CacheTTL = -1 }, "lexicon.cache_ttl"},
		{"token bounds", func(c *config.Config) { c.Mining.MaxTokenLen = 1 }, "token length"},
		{"confidence", func(c *config.Config) { c.Mining.MinConfidence = 1.5 }, "confidences"},
		{"policy", func(c *config.Config) { c.Engine.Policy = "16.0" }, "engine"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestConfig_Validate_KafkaDisabledSkipsBrokerCheck(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Kafka.Brokers = nil
	assert.NoError(t, cfg.Validate())
}

func TestConfig_EngineConfig_AppliesOverrides(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	lift := true
	lt2 := 2.0
	cfg.Engine.EnableUserRatingLift = &lift
	cfg.Engine.ScoreCapUserRatingLt2 = &lt2

	ec, err := cfg.EngineConfig()
	require.NoError(t, err)
	assert.True(t, ec.EnableUserRatingLift)
	assert.Equal(t, 2.0, ec.ScoreCapUserRatingLt2)
	assert.Equal(t, scoring.DefaultEngineConfig().ScoreCapUserRatingLt3, ec.ScoreCapUserRatingLt3)
	assert.Equal(t, scoring.PolicyHybrid, ec.Policy)
}

func TestConfig_EngineConfig_InvalidOverride(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	step := 0.0
	cfg.Engine.RoundingStep = &step
	_, err := cfg.EngineConfig()
	assert.Error(t, err)
}

func TestEngineOverrides_ApplyDoesNotAliasBase(t *testing.T) {
	t.Parallel()
	base := scoring.DefaultEngineConfig()
	out := config.EngineOverrides{}.Apply(base)
	out.PosCoef[scoring.AspectTaste] = 9
	assert.NotEqual(t, 9.0, base.PosCoef[scoring.AspectTaste])
}

func TestConfig_MineInProcess(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Mining.Enabled = true
	assert.True(t, cfg.MineInProcess())

	cfg.Mining.Async = true
	assert.True(t, cfg.MineInProcess(), "async without kafka falls back to in-process")

	cfg.Kafka.Enabled = true
	assert.False(t, cfg.MineInProcess())

	cfg.Mining.Enabled = false
	cfg.Kafka.Enabled = false
	assert.False(t, cfg.MineInProcess())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()
	d := config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "nf", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5433/nf?sslmode=disable", d.DSN())
}
