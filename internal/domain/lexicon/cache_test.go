package lexicon_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/NeedsFine/internal/domain/lexicon"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	"github.com/turtacn/NeedsFine/internal/testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memSnapshot struct {
	mu      sync.Mutex
	cues    []scoring.DynamicCue
	present bool
	sets    int
	deletes int
}

func (s *memSnapshot) Get(context.Context) ([]scoring.DynamicCue, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cues, s.present, nil
}

func (s *memSnapshot) Set(_ context.Context, cues []scoring.DynamicCue, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cues, s.present = cues, true
	s.sets++
	return nil
}

func (s *memSnapshot) Delete(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cues, s.present = nil, false
	s.deletes++
	return nil
}

type countingMetrics struct {
	mu                   sync.Mutex
	hits, misses, failed int
}

func (m *countingMetrics) CacheHit()   { m.mu.Lock(); m.hits++; m.mu.Unlock() }
func (m *countingMetrics) CacheMiss()  { m.mu.Lock(); m.misses++; m.mu.Unlock() }
func (m *countingMetrics) LoadFailed() { m.mu.Lock(); m.failed++; m.mu.Unlock() }

func seedCue(t *testing.T, store *testutil.LexiconStore, term string) {
	t.Helper()
	require.NoError(t, store.Upsert(context.Background(), scoring.DynamicCue{
		Term: term, Aspect: scoring.AspectTaste, Polarity: scoring.Positive, BaseWeight: 0.4, Priority: 40, Enabled: true,
	}))
}

func TestCache_ServesWithinTTL(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewLexiconStore()
	seedCue(t, store, "꾸덕")
	clock := &fakeClock{now: t0}
	metrics := &countingMetrics{}
	cache := lexicon.NewCache(store, time.Minute, nil, lexicon.WithClock(clock.Now), lexicon.WithCacheMetrics(metrics))

	assert.Len(t, cache.Load(ctx), 1)
	seedCue(t, store, "쫀득")
	assert.Len(t, cache.Load(ctx), 1)
	assert.Equal(t, 1, store.ListCalls)

	clock.Advance(61 * time.Second)
	assert.Len(t, cache.Load(ctx), 2)
	assert.Equal(t, 2, store.ListCalls)
	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 2, metrics.misses)
}

func TestCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewLexiconStore()
	cache := lexicon.NewCache(store, time.Hour, nil)

	assert.Empty(t, cache.Load(ctx))
	seedCue(t, store, "꾸덕")
	assert.Empty(t, cache.Load(ctx))

	cache.Invalidate(ctx)
	assert.Len(t, cache.Load(ctx), 1)
}

func TestCache_LoadFailureReturnsEmptyAndRetries(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewLexiconStore()
	store.ListErr = errors.New("connection refused")
	logger := testutil.NewMockLogger()
	metrics := &countingMetrics{}
	cache := lexicon.NewCache(store, time.Hour, logger, lexicon.WithCacheMetrics(metrics))

	cues := cache.Load(ctx)
	assert.NotNil(t, cues)
	assert.Empty(t, cues)
	assert.True(t, logger.HasMessage("warn", "lexicon load failed, scoring without dynamic cues"))
	assert.Equal(t, 1, metrics.failed)

	store.ListErr = nil
	seedCue(t, store, "꾸덕")
	assert.Len(t, cache.Load(ctx), 1)
}

func TestCache_ConcurrentLoadsShareOneFetch(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewLexiconStore()
	seedCue(t, store, "꾸덕")
	cache := lexicon.NewCache(store, time.Hour, nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Len(t, cache.Load(ctx), 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, store.ListCalls)
}

func TestCache_SnapshotIsSecondLevel(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewLexiconStore()
	seedCue(t, store, "꾸덕")
	snap := &memSnapshot{}

	first := lexicon.NewCache(store, time.Hour, nil, lexicon.WithSnapshot(snap))
	assert.Len(t, first.Load(ctx), 1)
	assert.Equal(t, 1, snap.sets)

	// a second process is served from the snapshot
	second := lexicon.NewCache(store, time.Hour, nil, lexicon.WithSnapshot(snap))
	assert.Len(t, second.Load(ctx), 1)
	assert.Equal(t, 1, store.ListCalls)

	first.Invalidate(ctx)
	assert.Equal(t, 1, snap.deletes)
	second.InvalidateLocal()
	seedCue(t, store, "쫀득")
	assert.Len(t, second.Load(ctx), 2)
}

// gatedRepo blocks ListEnabled until release is closed.
type gatedRepo struct {
	*testutil.LexiconStore
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedRepo(store *testutil.LexiconStore) *gatedRepo {
	return &gatedRepo{LexiconStore: store, started: make(chan struct{}), release: make(chan struct{})}
}

func (r *gatedRepo) ListEnabled(ctx context.Context) ([]scoring.DynamicCue, error) {
	cues, err := r.LexiconStore.ListEnabled(ctx)
	r.once.Do(func() { close(r.started) })
	<-r.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cues, err
}

func TestCache_InvalidateDuringLoadSkipsSnapshotWrite(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewLexiconStore()
	seedCue(t, store, "꾸덕")
	repo := newGatedRepo(store)
	snap := &memSnapshot{}
	cache := lexicon.NewCache(repo, time.Hour, nil, lexicon.WithSnapshot(snap))

	done := make(chan []scoring.DynamicCue)
	go func() { done <- cache.Load(ctx) }()
	<-repo.started

	cache.Invalidate(ctx)
	close(repo.release)
	assert.Len(t, <-done, 1)

	assert.Equal(t, 0, snap.sets)
	assert.Equal(t, 1, snap.deletes)
	_, present, err := snap.Get(ctx)
	require.NoError(t, err)
	assert.False(t, present)

	// the local copy was not kept either
	seedCue(t, store, "쫀득")
	assert.Len(t, cache.Load(ctx), 2)
	assert.Equal(t, 1, snap.sets)
}

func TestCache_SharedLoadSurvivesCanceledCaller(t *testing.T) {
	store := testutil.NewLexiconStore()
	seedCue(t, store, "꾸덕")
	repo := newGatedRepo(store)
	cache := lexicon.NewCache(repo, time.Hour, nil)

	callerCtx, cancel := context.WithCancel(context.Background())
	first := make(chan []scoring.DynamicCue)
	go func() { first <- cache.Load(callerCtx) }()
	<-repo.started

	second := make(chan []scoring.DynamicCue)
	go func() { second <- cache.Load(context.Background()) }()

	cancel()
	close(repo.release)
	assert.Len(t, <-first, 1)
	assert.Len(t, <-second, 1)
}

func TestCache_DefaultTTL(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewLexiconStore()
	clock := &fakeClock{now: t0}
	cache := lexicon.NewCache(store, 0, nil, lexicon.WithClock(clock.Now))

	cache.Load(ctx)
	clock.Advance(4 * time.Minute)
	cache.Load(ctx)
	assert.Equal(t, 1, store.ListCalls)

	clock.Advance(time.Minute)
	cache.Load(ctx)
	assert.Equal(t, 2, store.ListCalls)
}
