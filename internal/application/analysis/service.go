// Package analysis provides the application service behind review scoring:
// live previews, persisted reviews and batch recalculation.
package analysis

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/NeedsFine/internal/application/learning"
	"github.com/turtacn/NeedsFine/internal/domain/review"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/NeedsFine/pkg/errors"
)

const (
	// EvidenceAll returns every selected hit; EvidenceTop the two strongest
	// per polarity.
	EvidenceAll = "all"
	EvidenceTop = "top"

	// DefaultRecalcBatchSize is the number of reviews rescored per write.
	DefaultRecalcBatchSize = 50
	// DefaultTopStores bounds the per-store summary in Stats.
	DefaultTopStores = 10

	statsCacheKey = "stats:reviews"
)

// Service defines the review analysis operations.
type Service interface {
	Analyze(ctx context.Context, input *AnalyzeInput) (*AnalyzeResult, error)
	CreateReview(ctx context.Context, input *CreateReviewInput) (*review.Review, error)
	GetReview(ctx context.Context, id string) (*review.Review, error)
	ListReviews(ctx context.Context, input *ListInput) ([]*review.Review, error)
	Stats(ctx context.Context) (*review.Stats, error)
	Recalculate(ctx context.Context) (*RecalcResult, error)
}

// AnalyzeInput is a preview request.
type AnalyzeInput struct {
	Text         string
	UserRating   *float64
	HasPhoto     bool
	Tags         []string
	Debug        bool
	Learn        bool
	EvidenceMode string
}

// AnalyzeResult is the preview response.
type AnalyzeResult struct {
	Score        float64             `json:"needsfine_score"`
	Trust        int                 `json:"trust_level"`
	Label        string              `json:"label"`
	Mode         scoring.Mode        `json:"mode"`
	Tags         []scoring.TagResult `json:"tags"`
	Message      string              `json:"message"`
	IsWarning    bool                `json:"is_warning"`
	LogicVersion string              `json:"logic_version"`
	Evidence     scoring.Evidence    `json:"evidence"`
	Learning     *learning.Result    `json:"learning,omitempty"`
	Debug        *scoring.Debug      `json:"debug,omitempty"`
}

// CreateReviewInput is a review submission.
type CreateReviewInput struct {
	UserID       string
	StoreName    string
	StoreAddress string
	ReviewText   string
	UserRating   *float64
	PhotoURLs    []string
}

// ListInput narrows ListReviews.
type ListInput struct {
	StoreName string
	Limit     int
}

// RecalcResult reports a recalculation run.
type RecalcResult struct {
	Success      bool   `json:"success"`
	Count        int    `json:"count"`
	Total        int    `json:"total"`
	LogicVersion string `json:"logic_version"`
	Error        string `json:"error,omitempty"`
}

// ReviewPublisher announces analyzed reviews.
type ReviewPublisher interface {
	PublishReviewAnalyzed(ctx context.Context, ev review.AnalyzedEvent) error
}

// Metrics records analysis outcomes.
type Metrics interface {
	ObserveAnalysis(mode string, score float64, trust int, elapsed time.Duration)
	ObserveRecalculation(succeeded, failed int)
}

// Mutex keeps recalculation runs from overlapping across processes.
type Mutex interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// StatsCache memoizes the review summary.
type StatsCache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
}

// Option configures the service.
type Option func(*serviceImpl)

// WithLearner mines submitted reviews in-process. Without it mining is left
// to whoever consumes the review.analyzed events.
func WithLearner(l learning.Learner) Option { return func(s *serviceImpl) { s.learner = l } }

// WithPublisher publishes review.analyzed events.
func WithPublisher(p ReviewPublisher) Option { return func(s *serviceImpl) { s.publisher = p } }

// WithMetrics records analysis metrics.
func WithMetrics(m Metrics) Option { return func(s *serviceImpl) { s.metrics = m } }

// WithRecalcMutex guards Recalculate with a distributed lock.
func WithRecalcMutex(m Mutex) Option { return func(s *serviceImpl) { s.recalcMu = m } }

// WithStatsCache serves Stats from c for ttl.
func WithStatsCache(c StatsCache, ttl time.Duration) Option {
	return func(s *serviceImpl) {
		s.statsCache = c
		s.statsTTL = ttl
	}
}

// WithRecalcBatchSize overrides DefaultRecalcBatchSize.
func WithRecalcBatchSize(n int) Option {
	return func(s *serviceImpl) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

type serviceImpl struct {
	reviews   review.Repository
	cues      learning.CueLoader
	engine    scoring.EngineConfig
	learner   learning.Learner
	publisher ReviewPublisher
	metrics   Metrics
	recalcMu  Mutex
	batchSize int

	statsCache StatsCache
	statsTTL   time.Duration

	logger logging.Logger
}

// NewService creates the analysis service.
func NewService(reviews review.Repository, cues learning.CueLoader, engine scoring.EngineConfig, logger logging.Logger, opts ...Option) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &serviceImpl{
		reviews:   reviews,
		cues:      cues,
		engine:    engine,
		batchSize: DefaultRecalcBatchSize,
		logger:    logger.Named("analysis_service"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *serviceImpl) analyze(in scoring.ReviewInput, opts scoring.Options, cues []scoring.DynamicCue) scoring.Analysis {
	start := time.Now()
	a := scoring.Analyze(in, opts, s.engine, cues)
	if s.metrics != nil {
		s.metrics.ObserveAnalysis(string(a.Mode), a.Score, a.Trust, time.Since(start))
	}
	return a
}

func (s *serviceImpl) Analyze(ctx context.Context, input *AnalyzeInput) (*AnalyzeResult, error) {
	if input == nil {
		return nil, apperrors.InvalidParam("input is required")
	}
	if len([]rune(input.Text)) > review.MaxReviewTextLen {
		return nil, apperrors.New(apperrors.ErrCodeEngineInputTooLarge, "review_text is too long")
	}
	mode := input.EvidenceMode
	if mode != EvidenceAll {
		mode = EvidenceTop
	}
	learn := input.Learn && s.learner != nil

	cues := s.cues.Load(ctx)
	a := s.analyze(
		scoring.ReviewInput{Text: input.Text, UserRating: input.UserRating, HasPhoto: input.HasPhoto},
		scoring.Options{Debug: input.Debug, ReturnAllEvidence: learn || mode == EvidenceAll},
		cues,
	)

	fb := FeedbackFor(input.Text, input.Tags)
	out := &AnalyzeResult{
		Score:        a.Score,
		Trust:        a.Trust,
		Label:        a.Label,
		Mode:         a.Mode,
		Tags:         scoring.SortTagsByPriority(a.Tags),
		Message:      fb.Message,
		IsWarning:    a.IsCritical() || fb.IsWarning,
		LogicVersion: scoring.LogicVersion,
		Evidence:     a.Evidence,
		Debug:        a.Debug,
	}
	if mode == EvidenceAll {
		out.Evidence = splitEvidence(a)
	}
	if learn {
		res, err := s.learner.Learn(ctx, "", a, cues)
		if err != nil {
			s.logger.Error("term mining failed", logging.Err(err))
		}
		out.Learning = res
	}
	return out, nil
}

func splitEvidence(a scoring.Analysis) scoring.Evidence {
	ev := scoring.Evidence{
		Positive:       []scoring.EvidenceHit{},
		Negative:       []scoring.EvidenceHit{},
		StrongNegative: a.Evidence.StrongNegative,
	}
	for _, h := range a.AllEvidence {
		if h.Polarity == scoring.Positive {
			ev.Positive = append(ev.Positive, h)
		} else {
			ev.Negative = append(ev.Negative, h)
		}
	}
	return ev
}

func (s *serviceImpl) CreateReview(ctx context.Context, input *CreateReviewInput) (*review.Review, error) {
	if input == nil {
		return nil, apperrors.InvalidParam("input is required")
	}
	if strings.TrimSpace(input.ReviewText) == "" {
		return nil, apperrors.New(apperrors.ErrCodeReviewInvalid, "review_text is required")
	}
	r, err := review.NewReview(input.UserID, input.StoreName, input.StoreAddress, input.ReviewText, input.UserRating, input.PhotoURLs)
	if err != nil {
		return nil, err
	}

	cues := s.cues.Load(ctx)
	a := s.analyze(r.Input(), scoring.Options{ReturnAllEvidence: s.learner != nil}, cues)
	r.ApplyAnalysis(a)

	if r.UserID != "" {
		n, err := s.reviews.CountByUserStore(ctx, r.UserID, r.StoreName)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "count previous visits")
		}
		r.VisitCount = n + 1
	}

	if err := s.reviews.Create(ctx, r); err != nil {
		s.logger.Error("failed to persist review", logging.String("store_name", r.StoreName), logging.Err(err))
		return nil, err
	}
	s.logger.Info("review created",
		logging.String("review_id", r.ID),
		logging.Float64("score", r.Score),
		logging.Int("trust", r.Trust))

	if s.learner != nil {
		if _, err := s.learner.Learn(ctx, r.ID, a, cues); err != nil {
			s.logger.Error("term mining failed", logging.String("review_id", r.ID), logging.Err(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishReviewAnalyzed(ctx, review.NewAnalyzedEvent(r)); err != nil {
			s.logger.Warn("publish review.analyzed failed", logging.String("review_id", r.ID), logging.Err(err))
		}
	}
	return r, nil
}

func (s *serviceImpl) GetReview(ctx context.Context, id string) (*review.Review, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.InvalidParam("id is required")
	}
	return s.reviews.FindByID(ctx, id)
}

func (s *serviceImpl) ListReviews(ctx context.Context, input *ListInput) ([]*review.Review, error) {
	f := review.ListFilter{}
	if input != nil {
		f.StoreName = strings.TrimSpace(input.StoreName)
		f.Limit = input.Limit
	}
	f.Normalize()
	return s.reviews.List(ctx, f)
}

func (s *serviceImpl) Stats(ctx context.Context) (*review.Stats, error) {
	if s.statsCache == nil {
		return s.reviews.Stats(ctx, DefaultTopStores)
	}
	var out review.Stats
	err := s.statsCache.GetOrSet(ctx, statsCacheKey, &out, s.statsTTL, func(ctx context.Context) (interface{}, error) {
		return s.reviews.Stats(ctx, DefaultTopStores)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Recalculate rescores every stored review with the current engine and
// lexicon, writing one batch at a time. A failed batch is logged and
// skipped. The run reports failure only when nothing could be written.
func (s *serviceImpl) Recalculate(ctx context.Context) (*RecalcResult, error) {
	if s.recalcMu != nil {
		ok, err := s.recalcMu.TryLock(ctx)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeRecalculationFailed, "acquire recalculation lock")
		}
		if !ok {
			return nil, apperrors.New(apperrors.ErrCodeConflict, "recalculation already running")
		}
		defer func() {
			if err := s.recalcMu.Unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("release recalculation lock failed", logging.Err(err))
			}
		}()
	}

	cues := s.cues.Load(ctx)
	res := &RecalcResult{LogicVersion: scoring.LogicVersion}
	var lastErr error
	afterID := ""
	for {
		page, err := s.reviews.ListPage(ctx, afterID, s.batchSize)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeRecalculationFailed, "list reviews")
		}
		if len(page) == 0 {
			break
		}
		res.Total += len(page)
		for _, r := range page {
			r.ApplyAnalysis(s.analyze(r.Input(), scoring.Options{}, cues))
		}
		if err := s.reviews.UpsertAnalyses(ctx, page); err != nil {
			lastErr = err
			s.logger.Error("recalculation batch failed",
				logging.String("after_id", afterID),
				logging.Int("size", len(page)),
				logging.Err(err))
		} else {
			res.Count += len(page)
		}
		afterID = page[len(page)-1].ID
		if len(page) < s.batchSize {
			break
		}
	}

	res.Success = res.Count > 0 || res.Total == 0
	if !res.Success && lastErr != nil {
		res.Error = "recalculation failed: " + lastErr.Error()
	}
	if s.metrics != nil {
		s.metrics.ObserveRecalculation(res.Count, res.Total-res.Count)
	}
	s.logger.Info("recalculation finished",
		logging.Int("count", res.Count),
		logging.Int("total", res.Total),
		logging.Bool("success", res.Success))
	return res, nil
}
