package redis

import (
	"context"
	"time"

	"github.com/turtacn/NeedsFine/internal/domain/lexicon"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	"github.com/turtacn/NeedsFine/pkg/errors"
)

// LexiconSnapshotKey holds the enabled cue list shared by all processes.
const LexiconSnapshotKey = "lexicon:cues"

type lexiconSnapshot struct {
	cache Cache
	ttl   time.Duration
}

// NewLexiconSnapshot stores the cue list in cache. A positive ttl overrides
// the one the lexicon cache passes in.
func NewLexiconSnapshot(cache Cache, ttl time.Duration) lexicon.Snapshot {
	return &lexiconSnapshot{cache: cache, ttl: ttl}
}

func (s *lexiconSnapshot) Get(ctx context.Context) ([]scoring.DynamicCue, bool, error) {
	var cues []scoring.DynamicCue
	err := s.cache.Get(ctx, LexiconSnapshotKey, &cues)
	if errors.IsCode(err, errors.ErrCodeNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if cues == nil {
		cues = []scoring.DynamicCue{}
	}
	return cues, true, nil
}

func (s *lexiconSnapshot) Set(ctx context.Context, cues []scoring.DynamicCue, ttl time.Duration) error {
	if s.ttl > 0 {
		ttl = s.ttl
	}
	return s.cache.Set(ctx, LexiconSnapshotKey, cues, ttl)
}

func (s *lexiconSnapshot) Delete(ctx context.Context) error {
	return s.cache.Delete(ctx, LexiconSnapshotKey)
}
