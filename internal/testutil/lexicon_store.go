package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/turtacn/NeedsFine/internal/domain/lexicon"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
)

// LexiconStore is an in-memory lexicon.CueRepository and
// lexicon.CandidateRepository. Mutate holds a single lock for the whole
// callback, which serializes writers the way a row lock would.
type LexiconStore struct {
	mu         sync.Mutex
	cues       map[string]scoring.DynamicCue
	candidates map[string]*lexicon.Candidate

	ListCalls int
	// ListErr, when set, is returned by ListEnabled.
	ListErr error
}

// NewLexiconStore returns an empty store.
func NewLexiconStore() *LexiconStore {
	return &LexiconStore{cues: make(map[string]scoring.DynamicCue), candidates: make(map[string]*lexicon.Candidate)}
}

func (s *LexiconStore) ListEnabled(_ context.Context) ([]scoring.DynamicCue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListCalls++
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]scoring.DynamicCue, 0, len(s.cues))
	for _, c := range s.cues {
		if c.Enabled {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Term < out[j].Term })
	return out, nil
}

func (s *LexiconStore) Upsert(_ context.Context, cue scoring.DynamicCue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cues[cue.Term] = cue
	return nil
}

func (s *LexiconStore) Mutate(_ context.Context, term string, fn lexicon.MutateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.candidates[term]
	var c *lexicon.Candidate
	if exists {
		c = cloneCandidate(existing)
	} else {
		c = lexicon.NewCandidate(term, timeNow())
	}
	m, err := fn(c, exists)
	if err != nil {
		return err
	}
	if m.Cue != nil {
		s.cues[m.Cue.Term] = *m.Cue
	}
	if m.Delete {
		delete(s.candidates, term)
	} else {
		s.candidates[term] = c
	}
	return nil
}

func (s *LexiconStore) ListPending(_ context.Context, limit int) ([]*lexicon.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*lexicon.Candidate
	for _, c := range s.candidates {
		if !c.Promoted {
			out = append(out, cloneCandidate(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalCount != out[j].TotalCount {
			return out[i].TotalCount > out[j].TotalCount
		}
		return out[i].Term < out[j].Term
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *LexiconStore) Get(_ context.Context, term string) (*lexicon.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[term]
	if !ok {
		return nil, errCandidateNotFound(term)
	}
	return cloneCandidate(c), nil
}

// Cue returns a stored cue by term.
func (s *LexiconStore) Cue(term string) (scoring.DynamicCue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cues[term]
	return c, ok
}

// Candidate returns a stored candidate by term.
func (s *LexiconStore) Candidate(term string) (*lexicon.Candidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[term]
	if !ok {
		return nil, false
	}
	return cloneCandidate(c), true
}

func cloneCandidate(c *lexicon.Candidate) *lexicon.Candidate {
	out := *c
	out.Stats = make(map[string]int, len(c.Stats))
	for k, v := range c.Stats {
		out.Stats[k] = v
	}
	return &out
}

// CountingInvalidator records Invalidate calls.
type CountingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *CountingInvalidator) Invalidate(context.Context) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

// Calls returns the number of Invalidate calls.
func (c *CountingInvalidator) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
