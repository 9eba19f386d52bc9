package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/NeedsFine/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	client *Client
	mock   redismock.ClientMock
	cache  Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.client = NewClientFromUniversal(db, "test:", logging.NewNopLogger())
	s.cache = NewRedisCache(s.client, logging.NewNopLogger(), WithJitter(0), WithDefaultTTL(time.Minute))
}

func (s *CacheTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

type storeSummary struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func (s *CacheTestSuite) TestGet_CacheHit() {
	val := storeSummary{Name: "을지면옥", Score: 4.2}
	data, _ := json.Marshal(val)
	s.mock.ExpectGet("test:key1").SetVal(string(data))

	var dest storeSummary
	err := s.cache.Get(context.Background(), "key1", &dest)

	s.Require().NoError(err)
	s.Equal(val, dest)
}

func (s *CacheTestSuite) TestGet_CacheMiss() {
	s.mock.ExpectGet("test:key1").RedisNil()

	var dest storeSummary
	err := s.cache.Get(context.Background(), "key1", &dest)

	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeNotFound))
	s.Equal(ErrCacheMiss, err)
}

func (s *CacheTestSuite) TestGet_RedisError() {
	s.mock.ExpectGet("test:key1").SetErr(errors.New("connection reset"))

	var dest storeSummary
	err := s.cache.Get(context.Background(), "key1", &dest)

	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestGet_CorruptValue() {
	s.mock.ExpectGet("test:key1").SetVal("{not json")

	var dest storeSummary
	err := s.cache.Get(context.Background(), "key1", &dest)

	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeSerialization))
}

func (s *CacheTestSuite) TestSet_DefaultTTL() {
	val := storeSummary{Name: "a", Score: 3}
	data, _ := json.Marshal(val)
	s.mock.ExpectSet("test:key1", data, time.Minute).SetVal("OK")

	s.NoError(s.cache.Set(context.Background(), "key1", val, 0))
}

func (s *CacheTestSuite) TestSet_Error() {
	data, _ := json.Marshal(1)
	s.mock.ExpectSet("test:key1", data, time.Second).SetErr(errors.New("readonly"))

	err := s.cache.Set(context.Background(), "key1", 1, time.Second)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:a", "test:b").SetVal(2)

	s.NoError(s.cache.Delete(context.Background(), "a", "b"))
	s.NoError(s.cache.Delete(context.Background()))
}

func (s *CacheTestSuite) TestGetOrSet_Hit() {
	data, _ := json.Marshal(storeSummary{Name: "hit"})
	s.mock.ExpectGet("test:k").SetVal(string(data))

	var dest storeSummary
	err := s.cache.GetOrSet(context.Background(), "k", &dest, time.Minute, func(context.Context) (interface{}, error) {
		s.Fail("loader must not run on a hit")
		return nil, nil
	})
	s.NoError(err)
	s.Equal("hit", dest.Name)
}

func (s *CacheTestSuite) TestGetOrSet_MissLoadsAndStores() {
	val := storeSummary{Name: "loaded", Score: 2.5}
	data, _ := json.Marshal(val)
	s.mock.ExpectGet("test:k").RedisNil()
	s.mock.ExpectSet("test:k", data, 30*time.Second).SetVal("OK")

	var dest storeSummary
	err := s.cache.GetOrSet(context.Background(), "k", &dest, 30*time.Second, func(context.Context) (interface{}, error) {
		return val, nil
	})
	s.NoError(err)
	s.Equal(val, dest)
}

func (s *CacheTestSuite) TestGetOrSet_LoaderError() {
	s.mock.ExpectGet("test:k").RedisNil()

	var dest storeSummary
	err := s.cache.GetOrSet(context.Background(), "k", &dest, time.Minute, func(context.Context) (interface{}, error) {
		return nil, pkgerrors.New(pkgerrors.ErrCodeDatabaseError, "db down")
	})
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))
}

func (s *CacheTestSuite) TestGetOrSet_ReadErrorFallsThrough() {
	val := storeSummary{Name: "direct"}
	data, _ := json.Marshal(val)
	s.mock.ExpectGet("test:k").SetErr(errors.New("timeout"))
	s.mock.ExpectSet("test:k", data, time.Minute).SetErr(errors.New("timeout"))

	var dest storeSummary
	err := s.cache.GetOrSet(context.Background(), "k", &dest, 0, func(context.Context) (interface{}, error) {
		return val, nil
	})
	s.NoError(err)
	s.Equal(val, dest)
}

func (s *CacheTestSuite) TestPing() {
	s.mock.ExpectPing().SetVal("PONG")
	s.NoError(s.cache.Ping(context.Background()))
}

func TestCacheTestSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestCache_JitterStaysInBounds(t *testing.T) {
	t.Parallel()
	c := &redisCache{jitter: 0.1}
	for i := 0; i < 100; i++ {
		got := c.jitterTTL(10 * time.Second)
		assert.GreaterOrEqual(t, got, 9*time.Second)
		assert.LessOrEqual(t, got, 11*time.Second)
	}
	assert.Zero(t, c.jitterTTL(0))
}

func TestCache_GetOrSet_SharesConcurrentLoads(t *testing.T) {
	t.Parallel()
	mr := newMiniredis(t)
	client := NewClientFromUniversal(newRedisClient(mr.Addr()), "nf:", nil)
	cache := NewRedisCache(client, nil, WithJitter(0))

	var loads int32
	release := make(chan struct{})
	loader := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return storeSummary{Name: "once"}, nil
	}

	var wg sync.WaitGroup
	results := make([]storeSummary, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, cache.GetOrSet(context.Background(), "k", &results[i], time.Minute, loader))
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	for _, r := range results {
		assert.Equal(t, "once", r.Name)
	}
	assert.True(t, mr.Exists("nf:k"))
}
