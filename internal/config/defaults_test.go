package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/NeedsFine/internal/domain/lexicon"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultDBName, cfg.Database.DBName)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultLexiconCacheTTL, cfg.Lexicon.CacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.Lexicon.CacheTTL)
	assert.Equal(t, lexicon.DefaultMiningConfig().PromoteMinCount, cfg.Mining.PromoteMinCount)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Mining.PromoteMinCount = 2
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Mining.PromoteMinCount)
}

func TestApplyDefaults_Nil(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}
