package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/NeedsFine/internal/config"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	"github.com/turtacn/NeedsFine/internal/infrastructure/database/postgres"
	"github.com/turtacn/NeedsFine/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/NeedsFine/pkg/errors"
)

func defaultConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestOpen_UnknownPolicy(t *testing.T) {
	t.Parallel()
	cfg := defaultConfig()
	cfg.Engine.Policy = "16.0-legacy"

	_, err := Open(context.Background(), cfg, nil, Options{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestPostgresConfig(t *testing.T) {
	t.Parallel()
	pc := PostgresConfig(config.DatabaseConfig{
		Host: "db", Port: 5433, User: "nf", Password: "pw", DBName: "needsfine",
		SSLMode: "disable", MaxConns: 12, MaxIdleConns: 3, ConnMaxLifetime: time.Hour,
	})
	assert.Equal(t, postgres.PostgresConfig{
		Host: "db", Port: 5433, Database: "needsfine", Username: "nf", Password: "pw",
		SSLMode: "disable", MaxOpenConns: 12, MaxIdleConns: 3, ConnMaxLifetime: time.Hour,
	}, pc)
}

func TestConsumerConfig(t *testing.T) {
	t.Parallel()
	kc := config.KafkaConfig{
		Brokers:         []string{"k1:9092"},
		GroupID:         "needsfine-worker",
		AutoOffsetReset: "earliest",
		MaxRetries:      4,
		RetryBackoff:    time.Second,
	}

	cc := ConsumerConfig(kc, "", kafka.TopicReviewAnalyzed)
	assert.Equal(t, "needsfine-worker", cc.GroupID)
	assert.Equal(t, []string{kafka.TopicReviewAnalyzed}, cc.Topics)
	assert.Equal(t, 4, cc.RetryConfig.MaxRetries)
	assert.Equal(t, kafka.TopicDeadLetter, cc.RetryConfig.DeadLetterTopic)
	require.NoError(t, kafka.ValidateConsumerConfig(cc))

	cc = ConsumerConfig(kc, "needsfine-api-host1", kafka.TopicTermPromoted)
	assert.Equal(t, "needsfine-api-host1", cc.GroupID)
}

func TestProducerConfig(t *testing.T) {
	t.Parallel()
	pc := ProducerConfig(config.KafkaConfig{Brokers: []string{"k1:9092"}, ProducerRetries: 5, BatchSize: 10})
	assert.Equal(t, []string{"k1:9092"}, pc.Brokers)
	assert.Equal(t, 5, pc.MaxRetries)
	assert.Equal(t, "all", pc.Acks)
}

func TestDeps_BuildServices(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	cfg := defaultConfig()
	d := &Deps{
		Config: cfg,
		Logger: logging.NewNopLogger(),
		Engine: scoring.DefaultEngineConfig(),
		DB:     postgres.NewConnectionWithDB(db, nil),
	}
	d.closers = append(d.closers, d.DB.Close)
	d.buildDomain()

	assert.NotNil(t, d.Lexicon)
	assert.NotNil(t, d.Learner)
	assert.NotNil(t, d.AnalysisService())
	assert.NotNil(t, d.CurationService())

	checks := d.Checks()
	require.Len(t, checks, 1)
	require.Contains(t, checks, "postgres")
	assert.NoError(t, checks["postgres"](context.Background()))

	require.NoError(t, d.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeps_CloseReverseOrder(t *testing.T) {
	t.Parallel()
	var order []int
	boom := errors.New("boom")
	d := &Deps{closers: []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return boom },
	}}

	err := d.Close()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{2, 1}, order)
	assert.NoError(t, d.Close())
}
