package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  port: 9090
  read_timeout: 5s
database:
  host: "pg"
  user: "nf"
  password: "secret"
  db_name: "reviews"
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
  group_id: "nf-worker"
log:
  level: "debug"
  format: "console"
engine:
  enable_anchoring: false
  score_cap_user_rating_lt3: 3.4
mining:
  enabled: true
  async: true
  promote_min_count: 3
lexicon:
  cache_ttl: 30s
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, DefaultServerWriteTimeout, cfg.Server.WriteTimeout)
	assert.Equal(t, "pg", cfg.Database.Host)
	assert.Equal(t, "reviews", cfg.Database.DBName)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 30*time.Second, cfg.Lexicon.CacheTTL)

	assert.True(t, cfg.Mining.Async)
	assert.True(t, cfg.Mining.AutoPromote)
	assert.Equal(t, 3, cfg.Mining.PromoteMinCount)
	assert.False(t, cfg.MineInProcess())

	ec, err := cfg.EngineConfig()
	require.NoError(t, err)
	assert.False(t, ec.EnableAnchoring)
	assert.Equal(t, 3.4, ec.ScoreCapUserRatingLt3)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	path := createTempConfigFile(t, "log:\n  level: loud\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	t.Setenv("NEEDSFINE_SERVER_PORT", "7070")
	t.Setenv("NEEDSFINE_DATABASE_HOST", "pg-from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "pg-from-env", cfg.Database.Host)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("NEEDSFINE_MINING_ENABLED", "false")
	t.Setenv("ADMIN_PASSWORD", "hunter2")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.False(t, cfg.Mining.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "hunter2", cfg.Admin.Password)
}

func TestLoad_EmptyPathUsesEnv(t *testing.T) {
	t.Setenv("NEEDSFINE_SERVER_PORT", "6060")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.Port)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "absent.yaml")) })
}

func TestWatch_ReportsChanges(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	changed := make(chan *Config, 1)

	require.NoError(t, Watch(path, func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	}, nil))

	updated := validConfigYAML + "\nmetrics:\n  namespace: nf2\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	select {
	case c := <-changed:
		assert.Equal(t, "nf2", c.Metrics.Namespace)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "absent.yaml"), func(*Config) {}, nil)
	assert.Error(t, err)
}
