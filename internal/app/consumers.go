package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/turtacn/NeedsFine/internal/application/learning"
	"github.com/turtacn/NeedsFine/internal/config"
	"github.com/turtacn/NeedsFine/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/NeedsFine/pkg/errors"
)

// MessageObserver records consumed records.
type MessageObserver interface {
	ObserveMessage(topic string, err error, elapsed time.Duration)
}

// LocalInvalidator drops an in-process lexicon copy.
type LocalInvalidator interface {
	InvalidateLocal()
}

// CheckWorkerConfig rejects configurations under which a worker would mine
// reviews that the API server already mines inline.
func CheckWorkerConfig(cfg *config.Config) error {
	if !cfg.Kafka.Enabled {
		return errors.New(errors.ErrCodeValidation, "worker requires kafka.enabled")
	}
	if cfg.MineInProcess() {
		return errors.New(errors.ErrCodeValidation,
			"worker requires mining.async: the API server mines inline and would count every review twice")
	}
	return nil
}

// ReviewAnalyzedHandler mines each review.analyzed record. observer may be
// nil.
func ReviewAnalyzedHandler(learner learning.Learner, observer MessageObserver, logger logging.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.Message) (err error) {
		start := time.Now()
		defer func() {
			if observer != nil {
				observer.ObserveMessage(msg.Topic, err, time.Since(start))
			}
		}()

		ev, err := kafka.DecodeReviewAnalyzed(msg)
		if err != nil {
			return err
		}
		res, err := learner.HandleReviewAnalyzed(ctx, ev)
		if err != nil {
			return err
		}
		logger.Debug("review mined",
			logging.String("review_id", ev.ReviewID),
			logging.Int("mined", res.Mined),
			logging.Int("candidate_updated", res.CandidateUpdated),
			logging.Int("promoted", res.Promoted),
		)
		return nil
	}
}

// PromotionHandler drops the local lexicon on every lexicon.term.promoted
// record.
func PromotionHandler(lex LocalInvalidator, logger logging.Logger) kafka.MessageHandler {
	return func(_ context.Context, msg *kafka.Message) error {
		ev, err := kafka.DecodeTermsPromoted(msg)
		if err != nil {
			return err
		}
		lex.InvalidateLocal()
		logger.Debug("lexicon invalidated by promotion",
			logging.String("source", ev.Source),
			logging.Strings("terms", ev.Terms))
		return nil
	}
}

// PromotionConsumerConfig reads only new promotions under a group of its
// own, so that every replica sees every event.
func PromotionConsumerConfig(cfg config.KafkaConfig, host string) kafka.ConsumerConfig {
	c := ConsumerConfig(cfg, fmt.Sprintf("%s-lexicon-%s", cfg.GroupID, host), kafka.TopicTermPromoted)
	c.AutoOffsetReset = "latest"
	c.RetryConfig.DeadLetterTopic = ""
	return c
}

// StartPromotionListener keeps d.Lexicon coherent with promotions made by
// other processes. The caller closes the returned consumer.
func (d *Deps) StartPromotionListener(ctx context.Context) (*kafka.Consumer, error) {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = fmt.Sprintf("pid-%d", os.Getpid())
	}
	consumer, err := kafka.NewConsumer(PromotionConsumerConfig(d.Config.Kafka, host), d.Logger)
	if err != nil {
		return nil, err
	}
	consumer.Subscribe(kafka.TopicTermPromoted, PromotionHandler(d.Lexicon, d.Logger))
	if err := consumer.Start(ctx); err != nil {
		_ = consumer.Close()
		return nil, err
	}
	return consumer, nil
}

// EnsureTopics creates the event topics. Failures are logged only; the
// broker may create topics itself.
func EnsureTopics(ctx context.Context, cfg config.KafkaConfig, logger logging.Logger) {
	tm, err := kafka.NewTopicManager(cfg.Brokers, logger)
	if err != nil {
		logger.Warn("topic manager unavailable", logging.Err(err))
		return
	}
	defer tm.Close()
	if err := tm.EnsureTopics(ctx, kafka.DefaultTopics(cfg.NumPartitions, cfg.ReplicationFactor)); err != nil {
		logger.Warn("topic creation failed", logging.Err(err))
	}
}
