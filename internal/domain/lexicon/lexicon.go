// Package lexicon owns the dynamic cue vocabulary: the cached list of
// curated and auto-promoted terms fed to the scoring engine, and the
// candidate pipeline that mines new terms from analyzed reviews.
package lexicon

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/turtacn/NeedsFine/internal/domain/scoring"
)

const (
	// PromotedPriority sits below every static rule.
	PromotedPriority = 40

	autoWeightBase   = 0.2
	autoWeightPerLog = 0.12
	maxCueWeight     = 0.65
	minCueWeight     = 0.2
	manualWeightGain = 0.3

	// PendingListLimit bounds the curation queue listing.
	PendingListLimit = 100
)

// TermEvent is one mined observation: term co-occurred with evidence of
// the given aspect and polarity.
type TermEvent struct {
	Term       string           `json:"term"`
	Aspect     scoring.Aspect   `json:"aspect"`
	Polarity   scoring.Polarity `json:"polarity"`
	Confidence float64          `json:"confidence"`
}

// UpsertResult counts what an upsert batch changed.
type UpsertResult struct {
	Updated       int      `json:"updated"`
	Promoted      int      `json:"promoted"`
	PromotedTerms []string `json:"promoted_terms,omitempty"`
}

// Candidate accumulates observations for a term not yet in the lexicon.
type Candidate struct {
	Term         string           `json:"term"`
	Stats        map[string]int   `json:"stats"`
	TotalCount   int              `json:"total_count"`
	BestAspect   scoring.Aspect   `json:"best_aspect"`
	BestPolarity scoring.Polarity `json:"best_polarity"`
	Confidence   float64          `json:"confidence"`
	Promoted     bool             `json:"promoted"`
	FirstSeen    time.Time        `json:"first_seen"`
	LastSeen     time.Time        `json:"last_seen"`
}

// NewCandidate returns an empty candidate first seen at now.
func NewCandidate(term string, now time.Time) *Candidate {
	return &Candidate{Term: term, Stats: make(map[string]int), FirstSeen: now, LastSeen: now}
}

// StatKey is the "aspect|polarity" key used in Candidate.Stats.
func StatKey(a scoring.Aspect, p scoring.Polarity) string {
	return string(a) + "|" + string(p)
}

// ParseStatKey splits a stats key. ok is false for malformed keys.
func ParseStatKey(key string) (scoring.Aspect, scoring.Polarity, bool) {
	i := strings.IndexByte(key, '|')
	if i < 0 {
		return "", "", false
	}
	a, p := scoring.Aspect(key[:i]), scoring.Polarity(key[i+1:])
	return a, p, a.Valid() && p.Valid()
}

// Record merges one observation and recomputes the best key.
func (c *Candidate) Record(a scoring.Aspect, p scoring.Polarity, now time.Time) {
	if c.Stats == nil {
		c.Stats = make(map[string]int)
	}
	c.Stats[StatKey(a, p)]++
	c.TotalCount++
	c.LastSeen = now
	c.recompute()
}

func (c *Candidate) recompute() {
	keys := make([]string, 0, len(c.Stats))
	for k := range c.Stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bestKey, best := "", 0
	for _, k := range keys {
		if c.Stats[k] > best {
			bestKey, best = k, c.Stats[k]
		}
	}
	if a, p, ok := ParseStatKey(bestKey); ok {
		c.BestAspect, c.BestPolarity = a, p
	}
	if c.TotalCount > 0 {
		c.Confidence = float64(best) / float64(c.TotalCount)
	}
}

// Eligible reports whether c meets the auto-promotion thresholds.
func (c *Candidate) Eligible(minCount int, minConfidence float64) bool {
	return !c.Promoted && c.TotalCount >= minCount && c.Confidence >= minConfidence &&
		c.BestAspect.Valid() && c.BestPolarity.Valid()
}

// AutoCue builds the lexicon entry for an auto-promoted candidate.
func (c *Candidate) AutoCue(now time.Time) scoring.DynamicCue {
	w := autoWeightBase + autoWeightPerLog*math.Log(1+float64(c.TotalCount))*c.Confidence
	return scoring.DynamicCue{
		Term:        c.Term,
		Aspect:      c.BestAspect,
		Polarity:    c.BestPolarity,
		BaseWeight:  math.Min(maxCueWeight, w),
		Priority:    PromotedPriority,
		Source:      scoring.CueSourceAuto,
		Confidence:  c.Confidence,
		Occurrences: c.TotalCount,
		Enabled:     true,
		UpdatedAt:   now,
	}
}

// ManualCue builds the lexicon entry for an admin-approved candidate.
// Empty overrides fall back to the candidate's best aspect and polarity.
func (c *Candidate) ManualCue(aspect scoring.Aspect, polarity scoring.Polarity, now time.Time) scoring.DynamicCue {
	if aspect == "" {
		aspect = c.BestAspect
	}
	if polarity == "" {
		polarity = c.BestPolarity
	}
	conf := c.Confidence
	if conf == 0 {
		conf = 0.5
	}
	w := math.Max(minCueWeight, math.Min(maxCueWeight, autoWeightBase+manualWeightGain*conf))
	return scoring.DynamicCue{
		Term:        c.Term,
		Aspect:      aspect,
		Polarity:    polarity,
		BaseWeight:  w,
		Priority:    PromotedPriority,
		Source:      scoring.CueSourceManual,
		Confidence:  conf,
		Occurrences: c.TotalCount,
		Enabled:     true,
		UpdatedAt:   now,
	}
}

// NormalizeTerm canonicalizes a term the way review text is normalized.
func NormalizeTerm(term string) string {
	return scoring.Normalize(term)
}

// ─────────────────────────────────────────────────────────────────────────────
// Persistence
// ─────────────────────────────────────────────────────────────────────────────

// CueRepository is the durable lexicon store.
type CueRepository interface {
	ListEnabled(ctx context.Context) ([]scoring.DynamicCue, error)
	Upsert(ctx context.Context, cue scoring.DynamicCue) error
}

// Mutation is what a MutateFunc asks the store to persist.
type Mutation struct {
	// Cue, when set, is upserted into the lexicon in the same transaction.
	Cue *scoring.DynamicCue
	// Delete removes the candidate instead of saving it.
	Delete bool
}

// MutateFunc edits a locked candidate. exists is false when the term has no
// row yet; c is then a fresh candidate.
type MutateFunc func(c *Candidate, exists bool) (Mutation, error)

// CandidateRepository is the durable candidate store. Mutate must run fn
// with the term's row locked and persist the result atomically, so
// concurrent writers never lose increments.
type CandidateRepository interface {
	Mutate(ctx context.Context, term string, fn MutateFunc) error
	ListPending(ctx context.Context, limit int) ([]*Candidate, error)
	Get(ctx context.Context, term string) (*Candidate, error)
}
