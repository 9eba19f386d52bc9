package lexicon

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
)

// DefaultCacheTTL is how long a loaded cue list is served before reloading.
const DefaultCacheTTL = 5 * time.Minute

// loadTimeout bounds a shared load, which outlives the caller that started it.
const loadTimeout = 10 * time.Second

// Snapshot is an optional shared second-level cache for the cue list, so a
// fleet of API servers does not reload from the database in lockstep.
type Snapshot interface {
	Get(ctx context.Context) ([]scoring.DynamicCue, bool, error)
	Set(ctx context.Context, cues []scoring.DynamicCue, ttl time.Duration) error
	Delete(ctx context.Context) error
}

// CacheMetrics receives cache outcomes. Implementations must be cheap.
type CacheMetrics interface {
	CacheHit()
	CacheMiss()
	LoadFailed()
}

// Cache serves the enabled dynamic cues with a TTL. Concurrent misses share
// one load. The zero value is not usable; call NewCache.
type Cache struct {
	repo     CueRepository
	snapshot Snapshot
	metrics  CacheMetrics
	logger   logging.Logger
	ttl      time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	cues     []scoring.DynamicCue
	loadedAt time.Time
	valid    bool
	gen      uint64

	// snapMu orders snapshot writes against Invalidate.
	snapMu sync.Mutex
	group  singleflight.Group
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithSnapshot adds a shared second-level cache.
func WithSnapshot(s Snapshot) CacheOption { return func(c *Cache) { c.snapshot = s } }

// WithCacheMetrics reports hits, misses and failures.
func WithCacheMetrics(m CacheMetrics) CacheOption { return func(c *Cache) { c.metrics = m } }

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) CacheOption { return func(c *Cache) { c.now = now } }

// NewCache creates a lexicon cache over repo. A non-positive ttl uses
// DefaultCacheTTL.
func NewCache(repo CueRepository, ttl time.Duration, logger logging.Logger, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &Cache{repo: repo, ttl: ttl, logger: logger.Named("lexicon_cache"), now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Load returns the current cues. On a load failure it logs a warning and
// returns an empty list; the failure is not cached.
func (c *Cache) Load(ctx context.Context) []scoring.DynamicCue {
	if cues, ok := c.fresh(); ok {
		c.hit()
		return cues
	}
	c.miss()

	v, err, _ := c.group.Do("cues", func() (interface{}, error) {
		// a load that finished while we waited for the group
		if cues, ok := c.fresh(); ok {
			return cues, nil
		}
		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		cues, err := c.fetch(loadCtx, gen)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		// an Invalidate during the load wins
		if c.gen == gen {
			c.cues, c.loadedAt, c.valid = cues, c.now(), true
		}
		c.mu.Unlock()
		return cues, nil
	})
	if err != nil {
		if c.metrics != nil {
			c.metrics.LoadFailed()
		}
		c.logger.Warn("lexicon load failed, scoring without dynamic cues", logging.Err(err))
		return []scoring.DynamicCue{}
	}
	return v.([]scoring.DynamicCue)
}

func (c *Cache) fresh() ([]scoring.DynamicCue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.valid && c.now().Sub(c.loadedAt) < c.ttl {
		return c.cues, true
	}
	return nil, false
}

func (c *Cache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// fetch reads the snapshot, then the repository. The snapshot is refilled
// only if no invalidation happened since gen was taken.
func (c *Cache) fetch(ctx context.Context, gen uint64) ([]scoring.DynamicCue, error) {
	if c.snapshot != nil {
		cues, ok, err := c.snapshot.Get(ctx)
		if err != nil {
			c.logger.Warn("lexicon snapshot read failed", logging.Err(err))
		} else if ok {
			return cues, nil
		}
	}

	cues, err := c.repo.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}
	if cues == nil {
		cues = []scoring.DynamicCue{}
	}
	if c.snapshot != nil {
		c.snapMu.Lock()
		if c.generation() == gen {
			if err := c.snapshot.Set(ctx, cues, c.ttl); err != nil {
				c.logger.Warn("lexicon snapshot write failed", logging.Err(err))
			}
		} else {
			c.logger.Debug("lexicon invalidated during load, snapshot not written")
		}
		c.snapMu.Unlock()
	}
	c.logger.Debug("lexicon loaded", logging.Int("cues", len(cues)))
	return cues, nil
}

// Invalidate drops the local copy and the shared snapshot.
func (c *Cache) Invalidate(ctx context.Context) {
	if c.snapshot == nil {
		c.InvalidateLocal()
		return
	}
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	c.InvalidateLocal()
	if err := c.snapshot.Delete(ctx); err != nil {
		c.logger.Warn("lexicon snapshot delete failed", logging.Err(err))
	}
}

// InvalidateLocal drops only the in-process copy. It is used when another
// process already cleared the snapshot.
func (c *Cache) InvalidateLocal() {
	c.mu.Lock()
	c.valid = false
	c.cues = nil
	c.gen++
	c.mu.Unlock()
}

func (c *Cache) hit() {
	if c.metrics != nil {
		c.metrics.CacheHit()
	}
}

func (c *Cache) miss() {
	if c.metrics != nil {
		c.metrics.CacheMiss()
	}
}
