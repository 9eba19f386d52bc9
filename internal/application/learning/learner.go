// Package learning closes the lexicon feedback loop: analyzed reviews are
// mined for unseen terms, the terms accumulate as candidates and qualifying
// candidates are promoted into the lexicon.
package learning

import (
	"context"
	"time"

	"github.com/turtacn/NeedsFine/internal/domain/lexicon"
	"github.com/turtacn/NeedsFine/internal/domain/review"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
)

// CueLoader supplies the current dynamic lexicon.
type CueLoader interface {
	Load(ctx context.Context) []scoring.DynamicCue
}

// EventPublisher announces mining results and lexicon changes.
type EventPublisher interface {
	PublishTermsMined(ctx context.Context, ev lexicon.MinedEvent) error
	PublishTermsPromoted(ctx context.Context, ev lexicon.PromotedEvent) error
}

// Metrics records mining outcomes.
type Metrics interface {
	ObserveMining(mined, updated, promoted int)
}

// Result summarizes one learning pass.
type Result struct {
	Mined            int      `json:"mined"`
	CandidateUpdated int      `json:"candidate_updated"`
	Promoted         int      `json:"promoted"`
	PromotedTerms    []string `json:"promoted_terms,omitempty"`
}

// Learner mines analyzed reviews and feeds the candidate store.
type Learner interface {
	// Learn mines an analysis produced with the given cues. The analysis
	// should carry all evidence.
	Learn(ctx context.Context, reviewID string, a scoring.Analysis, cues []scoring.DynamicCue) (*Result, error)
	// HandleReviewAnalyzed re-analyzes a published review against the
	// current lexicon and learns from it.
	HandleReviewAnalyzed(ctx context.Context, ev review.AnalyzedEvent) (*Result, error)
}

// Option configures a Learner.
type Option func(*learnerImpl)

// WithPublisher publishes mined and promoted events.
func WithPublisher(p EventPublisher) Option { return func(l *learnerImpl) { l.publisher = p } }

// WithMetrics records mining outcomes.
func WithMetrics(m Metrics) Option { return func(l *learnerImpl) { l.metrics = m } }

type learnerImpl struct {
	promoter  lexicon.Promoter
	cues      CueLoader
	engine    scoring.EngineConfig
	mining    lexicon.MiningConfig
	publisher EventPublisher
	metrics   Metrics
	logger    logging.Logger
	now       func() time.Time
}

// NewLearner creates a Learner.
func NewLearner(promoter lexicon.Promoter, cues CueLoader, engine scoring.EngineConfig, mining lexicon.MiningConfig, logger logging.Logger, opts ...Option) Learner {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	l := &learnerImpl{
		promoter: promoter,
		cues:     cues,
		engine:   engine,
		mining:   mining,
		logger:   logger.Named("learner"),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *learnerImpl) Learn(ctx context.Context, reviewID string, a scoring.Analysis, cues []scoring.DynamicCue) (*Result, error) {
	res := &Result{}
	if !l.mining.Enabled {
		return res, nil
	}
	evidence := a.AllEvidence
	if evidence == nil {
		evidence = append(append([]scoring.EvidenceHit{}, a.Evidence.Positive...), a.Evidence.Negative...)
	}
	events := lexicon.MineTermEvents(a.Normalized, evidence, cues, l.mining)
	res.Mined = len(events)
	if len(events) == 0 {
		return res, nil
	}

	if l.publisher != nil {
		ev := lexicon.MinedEvent{ReviewID: reviewID, Events: events, MinedAt: l.now()}
		if err := l.publisher.PublishTermsMined(ctx, ev); err != nil {
			l.logger.Warn("publish mined terms failed", logging.String("review_id", reviewID), logging.Err(err))
		}
	}

	up, err := l.promoter.UpsertCandidateTerms(ctx, events)
	res.CandidateUpdated = up.Updated
	res.Promoted = up.Promoted
	res.PromotedTerms = up.PromotedTerms
	if l.metrics != nil {
		l.metrics.ObserveMining(res.Mined, res.CandidateUpdated, res.Promoted)
	}
	if err != nil {
		return res, err
	}

	if up.Promoted > 0 && l.publisher != nil {
		ev := lexicon.PromotedEvent{Terms: up.PromotedTerms, Source: string(scoring.CueSourceAuto), PromotedAt: l.now()}
		if err := l.publisher.PublishTermsPromoted(ctx, ev); err != nil {
			l.logger.Warn("publish promoted terms failed", logging.Strings("terms", up.PromotedTerms), logging.Err(err))
		}
	}
	l.logger.Debug("review mined",
		logging.String("review_id", reviewID),
		logging.Int("mined", res.Mined),
		logging.Int("promoted", res.Promoted))
	return res, nil
}

func (l *learnerImpl) HandleReviewAnalyzed(ctx context.Context, ev review.AnalyzedEvent) (*Result, error) {
	cues := l.cues.Load(ctx)
	in := scoring.ReviewInput{Text: ev.ReviewText, UserRating: ev.UserRating, HasPhoto: ev.HasPhoto}
	a := scoring.Analyze(in, scoring.Options{ReturnAllEvidence: true}, l.engine, cues)
	return l.Learn(ctx, ev.ReviewID, a, cues)
}
