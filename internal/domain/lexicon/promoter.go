package lexicon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/NeedsFine/pkg/errors"
)

// CurationAction is an admin decision on a candidate.
type CurationAction string

const (
	ActionApprove CurationAction = "approve"
	ActionReject  CurationAction = "reject"
)

// Invalidator is notified after the lexicon changes.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Promoter merges mined events into candidates, promotes the ones that
// qualify and serves manual curation.
type Promoter interface {
	UpsertCandidateTerms(ctx context.Context, events []TermEvent) (UpsertResult, error)
	ListPending(ctx context.Context) ([]*Candidate, error)
	Approve(ctx context.Context, term string, aspect scoring.Aspect, polarity scoring.Polarity) (*scoring.DynamicCue, error)
	Reject(ctx context.Context, term string) error
}

type promoterImpl struct {
	candidates  CandidateRepository
	invalidator Invalidator
	cfg         MiningConfig
	logger      logging.Logger
	now         func() time.Time
}

// NewPromoter creates a Promoter. invalidator may be nil.
func NewPromoter(candidates CandidateRepository, invalidator Invalidator, cfg MiningConfig, logger logging.Logger) Promoter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &promoterImpl{
		candidates:  candidates,
		invalidator: invalidator,
		cfg:         cfg,
		logger:      logger.Named("lexicon_promoter"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// UpsertCandidateTerms records each event under its term, one transaction
// per term. It stops at the first storage error and returns what was done.
func (p *promoterImpl) UpsertCandidateTerms(ctx context.Context, events []TermEvent) (UpsertResult, error) {
	var res UpsertResult
	for _, ev := range events {
		term := strings.TrimSpace(ev.Term)
		if term == "" || !ev.Aspect.Valid() || !ev.Polarity.Valid() {
			continue
		}
		promoted := false
		err := p.candidates.Mutate(ctx, term, func(c *Candidate, _ bool) (Mutation, error) {
			now := p.now()
			c.Record(ev.Aspect, ev.Polarity, now)
			if !p.cfg.AutoPromote || !c.Eligible(p.cfg.PromoteMinCount, p.cfg.PromoteMinConfidence) {
				return Mutation{}, nil
			}
			cue := c.AutoCue(now)
			c.Promoted = true
			promoted = true
			return Mutation{Cue: &cue}, nil
		})
		if err != nil {
			return res, apperrors.Wrap(err, apperrors.ErrCodeCandidateUpsertFailed,
				fmt.Sprintf("upsert candidate %q", term))
		}
		res.Updated++
		if promoted {
			res.Promoted++
			res.PromotedTerms = append(res.PromotedTerms, term)
			p.logger.Info("term auto-promoted",
				logging.String("term", term),
				logging.String("aspect", string(ev.Aspect)))
		}
	}
	if res.Promoted > 0 && p.invalidator != nil {
		p.invalidator.Invalidate(ctx)
	}
	return res, nil
}

func (p *promoterImpl) ListPending(ctx context.Context) ([]*Candidate, error) {
	return p.candidates.ListPending(ctx, PendingListLimit)
}

// Approve moves a candidate into the lexicon as a manual cue. Empty
// overrides keep the candidate's best aspect and polarity.
func (p *promoterImpl) Approve(ctx context.Context, term string, aspect scoring.Aspect, polarity scoring.Polarity) (*scoring.DynamicCue, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperrors.New(apperrors.ErrCodeTermInvalid, "term is required")
	}
	if aspect != "" && !aspect.Valid() {
		return nil, apperrors.New(apperrors.ErrCodeTermInvalid, fmt.Sprintf("unknown aspect %q", aspect))
	}
	if polarity != "" && !polarity.Valid() {
		return nil, apperrors.New(apperrors.ErrCodeTermInvalid, fmt.Sprintf("unknown polarity %q", polarity))
	}

	var out scoring.DynamicCue
	err := p.candidates.Mutate(ctx, term, func(c *Candidate, exists bool) (Mutation, error) {
		if !exists {
			return Mutation{}, apperrors.New(apperrors.ErrCodeCandidateNotFound, fmt.Sprintf("candidate %q not found", term))
		}
		cue := c.ManualCue(aspect, polarity, p.now())
		if !cue.Aspect.Valid() || !cue.Polarity.Valid() {
			return Mutation{}, apperrors.New(apperrors.ErrCodeTermInvalid, "missing aspect or polarity")
		}
		out = cue
		return Mutation{Cue: &cue, Delete: true}, nil
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info("term approved", logging.String("term", term), logging.String("aspect", string(out.Aspect)))
	if p.invalidator != nil {
		p.invalidator.Invalidate(ctx)
	}
	return &out, nil
}

// Reject drops a candidate. Rejected terms may be mined again later.
func (p *promoterImpl) Reject(ctx context.Context, term string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return apperrors.New(apperrors.ErrCodeTermInvalid, "term is required")
	}
	err := p.candidates.Mutate(ctx, term, func(_ *Candidate, exists bool) (Mutation, error) {
		if !exists {
			return Mutation{}, apperrors.New(apperrors.ErrCodeCandidateNotFound, fmt.Sprintf("candidate %q not found", term))
		}
		return Mutation{Delete: true}, nil
	})
	if err != nil {
		return err
	}
	p.logger.Info("term rejected", logging.String("term", term))
	return nil
}

// ParseAction validates a curation action name.
func ParseAction(s string) (CurationAction, error) {
	switch a := CurationAction(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionApprove, ActionReject:
		return a, nil
	default:
		return "", apperrors.New(apperrors.ErrCodeCurationActionInvalid, fmt.Sprintf("invalid action %q", s))
	}
}
