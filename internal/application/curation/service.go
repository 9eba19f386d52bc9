// Package curation serves the admin workflow over mined candidate terms.
package curation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/NeedsFine/internal/domain/lexicon"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/NeedsFine/pkg/errors"
)

// Service defines the curation operations.
type Service interface {
	ListCandidates(ctx context.Context) ([]*lexicon.Candidate, error)
	Act(ctx context.Context, input *ActionInput) (*ActionResult, error)
	InvalidateLexicon(ctx context.Context) error
}

// ActionInput is an approve or reject decision. Overrides apply to approve
// only and may be empty.
type ActionInput struct {
	Term             string
	Action           string
	OverrideAspect   string
	OverridePolarity string
}

// ActionResult reports a decision.
type ActionResult struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Cue     *scoring.DynamicCue `json:"cue,omitempty"`
}

// PromotionPublisher tells other processes that the lexicon changed.
type PromotionPublisher interface {
	PublishTermsPromoted(ctx context.Context, ev lexicon.PromotedEvent) error
}

type serviceImpl struct {
	promoter  lexicon.Promoter
	cache     lexicon.Invalidator
	publisher PromotionPublisher
	logger    logging.Logger
}

// NewService creates the curation service. publisher may be nil.
func NewService(promoter lexicon.Promoter, cache lexicon.Invalidator, publisher PromotionPublisher, logger logging.Logger) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &serviceImpl{
		promoter:  promoter,
		cache:     cache,
		publisher: publisher,
		logger:    logger.Named("curation_service"),
	}
}

func (s *serviceImpl) ListCandidates(ctx context.Context) ([]*lexicon.Candidate, error) {
	out, err := s.promoter.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*lexicon.Candidate{}
	}
	return out, nil
}

func (s *serviceImpl) Act(ctx context.Context, input *ActionInput) (*ActionResult, error) {
	if input == nil || strings.TrimSpace(input.Term) == "" || strings.TrimSpace(input.Action) == "" {
		return nil, apperrors.InvalidParam("term and action are required")
	}
	action, err := lexicon.ParseAction(input.Action)
	if err != nil {
		return nil, err
	}
	term := strings.TrimSpace(input.Term)

	switch action {
	case lexicon.ActionApprove:
		aspect, polarity, err := parseOverrides(input.OverrideAspect, input.OverridePolarity)
		if err != nil {
			return nil, err
		}
		cue, err := s.promoter.Approve(ctx, term, aspect, polarity)
		if err != nil {
			return nil, err
		}
		s.announce(ctx, []string{term}, string(scoring.CueSourceManual))
		return &ActionResult{Success: true, Message: fmt.Sprintf("Term '%s' approved.", term), Cue: cue}, nil
	default:
		if err := s.promoter.Reject(ctx, term); err != nil {
			return nil, err
		}
		return &ActionResult{Success: true, Message: fmt.Sprintf("Term '%s' rejected.", term)}, nil
	}
}

func parseOverrides(aspect, polarity string) (scoring.Aspect, scoring.Polarity, error) {
	var (
		a   scoring.Aspect
		p   scoring.Polarity
		err error
	)
	if strings.TrimSpace(aspect) != "" {
		if a, err = scoring.ParseAspect(aspect); err != nil {
			return "", "", apperrors.Wrap(err, apperrors.ErrCodeTermInvalid, "invalid override_aspect")
		}
	}
	if strings.TrimSpace(polarity) != "" {
		if p, err = scoring.ParsePolarity(polarity); err != nil {
			return "", "", apperrors.Wrap(err, apperrors.ErrCodeTermInvalid, "invalid override_polarity")
		}
	}
	return a, p, nil
}

func (s *serviceImpl) InvalidateLexicon(ctx context.Context) error {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	s.announce(ctx, nil, "admin")
	s.logger.Info("lexicon cache invalidated")
	return nil
}

func (s *serviceImpl) announce(ctx context.Context, terms []string, source string) {
	if s.publisher == nil {
		return
	}
	if terms == nil {
		terms = []string{}
	}
	ev := lexicon.PromotedEvent{Terms: terms, Source: source, PromotedAt: time.Now().UTC()}
	if err := s.publisher.PublishTermsPromoted(ctx, ev); err != nil {
		s.logger.Warn("publish lexicon change failed", logging.Err(err))
	}
}
