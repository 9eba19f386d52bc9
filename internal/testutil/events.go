package testutil

import (
	"context"
	"sync"

	"github.com/turtacn/NeedsFine/internal/domain/lexicon"
	"github.com/turtacn/NeedsFine/internal/domain/review"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
)

// StaticCues is a fixed lexicon.
type StaticCues []scoring.DynamicCue

func (s StaticCues) Load(context.Context) []scoring.DynamicCue { return s }

// EventRecorder captures published events in memory. Err, when set, is
// returned from every publish after recording.
type EventRecorder struct {
	mu       sync.Mutex
	analyzed []review.AnalyzedEvent
	mined    []lexicon.MinedEvent
	promoted []lexicon.PromotedEvent

	Err error
}

func (r *EventRecorder) PublishReviewAnalyzed(_ context.Context, ev review.AnalyzedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyzed = append(r.analyzed, ev)
	return r.Err
}

func (r *EventRecorder) PublishTermsMined(_ context.Context, ev lexicon.MinedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mined = append(r.mined, ev)
	return r.Err
}

func (r *EventRecorder) PublishTermsPromoted(_ context.Context, ev lexicon.PromotedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.promoted = append(r.promoted, ev)
	return r.Err
}

// Analyzed returns the recorded review.analyzed events.
func (r *EventRecorder) Analyzed() []review.AnalyzedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]review.AnalyzedEvent{}, r.analyzed...)
}

// Mined returns the recorded lexicon.term.mined events.
func (r *EventRecorder) Mined() []lexicon.MinedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]lexicon.MinedEvent{}, r.mined...)
}

// Promoted returns the recorded lexicon.term.promoted events.
func (r *EventRecorder) Promoted() []lexicon.PromotedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]lexicon.PromotedEvent{}, r.promoted...)
}
