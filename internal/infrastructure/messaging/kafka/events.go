package kafka

import (
	"context"
	"strings"

	"github.com/turtacn/NeedsFine/internal/domain/lexicon"
	"github.com/turtacn/NeedsFine/internal/domain/review"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/NeedsFine/pkg/errors"
)

// EventPublisher publishes the NeedsFine domain events. It satisfies the
// publisher ports of the analysis, learning and curation services.
type EventPublisher struct {
	publisher Publisher
	source    string
	logger    logging.Logger
}

// NewEventPublisher wraps p. source names the emitting process.
func NewEventPublisher(p Publisher, source string, logger logging.Logger) *EventPublisher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &EventPublisher{publisher: p, source: source, logger: logger.Named("event_publisher")}
}

// PublishReviewAnalyzed keys by review id.
func (e *EventPublisher) PublishReviewAnalyzed(ctx context.Context, ev review.AnalyzedEvent) error {
	return e.publish(ctx, TopicReviewAnalyzed, EventReviewAnalyzed, ev.ReviewID, ev)
}

// PublishTermsMined keys by review id.
func (e *EventPublisher) PublishTermsMined(ctx context.Context, ev lexicon.MinedEvent) error {
	return e.publish(ctx, TopicTermMined, EventTermsMined, ev.ReviewID, ev)
}

// PublishTermsPromoted uses a single key so promotions stay ordered.
func (e *EventPublisher) PublishTermsPromoted(ctx context.Context, ev lexicon.PromotedEvent) error {
	return e.publish(ctx, TopicTermPromoted, EventTermsPromoted, "lexicon", ev)
}

func (e *EventPublisher) publish(ctx context.Context, topic, eventType, key string, payload interface{}) error {
	env, err := NewEventEnvelope(eventType, e.source, payload)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(topic, key)
	if err != nil {
		return err
	}
	if err := e.publisher.Publish(ctx, msg); err != nil {
		return err
	}
	e.logger.Debug("Event published",
		logging.String("topic", topic),
		logging.String("event_id", env.EventID))
	return nil
}

// DecodeReviewAnalyzed parses a review.analyzed record.
func DecodeReviewAnalyzed(msg *Message) (review.AnalyzedEvent, error) {
	var ev review.AnalyzedEvent
	if err := decode(msg, EventReviewAnalyzed, &ev); err != nil {
		return ev, err
	}
	if strings.TrimSpace(ev.ReviewText) == "" {
		return ev, errors.New(errors.ErrCodeValidation, "review.analyzed without review_text")
	}
	return ev, nil
}

// DecodeTermsPromoted parses a lexicon.term.promoted record.
func DecodeTermsPromoted(msg *Message) (lexicon.PromotedEvent, error) {
	var ev lexicon.PromotedEvent
	err := decode(msg, EventTermsPromoted, &ev)
	return ev, err
}

func decode(msg *Message, eventType string, target interface{}) error {
	env, err := MessageToEventEnvelope(msg)
	if err != nil {
		return err
	}
	if env.EventType != eventType {
		return errors.Newf(errors.ErrCodeValidation, "unexpected event type %q, want %q", env.EventType, eventType)
	}
	return env.DecodePayload(target)
}
