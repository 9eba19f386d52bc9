package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/NeedsFine/pkg/errors"
)

func newMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr
}

func newRedisClient(addr string) redis.UniversalClient {
	return redis.NewClient(&redis.Options{Addr: addr})
}

func TestNewClient_Success(t *testing.T) {
	t.Parallel()
	mr := newMiniredis(t)

	cfg := &RedisConfig{Addr: mr.Addr()}
	client, err := NewClient(cfg, logging.NewNopLogger())
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, "needsfine:", cfg.KeyPrefix)
	assert.Equal(t, "needsfine:lexicon:cues", client.Key(LexiconSnapshotKey))
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	t.Parallel()
	mr := newMiniredis(t)
	addr := mr.Addr()
	mr.Close()

	client, err := NewClient(&RedisConfig{Addr: addr, MaxRetries: -1}, logging.NewNopLogger())
	assert.Nil(t, client)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func TestClient_Commands(t *testing.T) {
	t.Parallel()
	mr := newMiniredis(t)
	client, err := NewClient(&RedisConfig{Addr: mr.Addr(), KeyPrefix: "nf:"}, nil)
	require.NoError(t, err)
	defer client.Close()
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, client.Key("foo"), "bar", 0).Err())
	val, err := client.Get(ctx, "nf:foo").Result()
	require.NoError(t, err)
	assert.Equal(t, "bar", val)

	ok, err := client.SetNX(ctx, "nf:foo", "baz", 0).Result()
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err := client.Del(ctx, "nf:foo").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestClient_Close(t *testing.T) {
	t.Parallel()
	mr := newMiniredis(t)
	client, err := NewClient(&RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)

	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())

	ctx := context.Background()
	assert.Equal(t, ErrClientClosed, client.Ping(ctx))
	assert.ErrorIs(t, client.Get(ctx, "foo").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.SetNX(ctx, "foo", 1, 0).Err(), ErrClientClosed)
}
