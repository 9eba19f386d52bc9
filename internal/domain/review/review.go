// Package review models a persisted restaurant review together with the
// engine analysis stored alongside it.
package review

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	apperrors "github.com/turtacn/NeedsFine/pkg/errors"
)

const (
	authenticityMinTrust = 70
	hiddenTrustMax       = 2

	maxStoreNameLen = 200

	// MaxReviewTextLen bounds review text in runes.
	MaxReviewTextLen = 5000
)

// Review is a stored review and its latest analysis.
type Review struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id,omitempty"`
	StoreName    string              `json:"store_name"`
	StoreAddress string              `json:"store_address,omitempty"`
	ReviewText   string              `json:"review_text"`
	UserRating   *float64            `json:"user_rating"`
	PhotoURLs    []string            `json:"photo_urls"`
	Score        float64             `json:"needsfine_score"`
	Trust        int                 `json:"trust_level"`
	Label        string              `json:"label"`
	Authenticity bool                `json:"authenticity"`
	Tags         []scoring.TagResult `json:"tags"`
	IsCritical   bool                `json:"is_critical"`
	IsHidden     bool                `json:"is_hidden"`
	LogicVersion string              `json:"logic_version"`
	VisitCount   int                 `json:"visit_count"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// NewReview validates input and returns an unscored review with a fresh id.
func NewReview(userID, storeName, storeAddress, text string, rating *float64, photos []string) (*Review, error) {
	storeName = strings.TrimSpace(storeName)
	if storeName == "" {
		return nil, apperrors.New(apperrors.ErrCodeReviewInvalid, "store_name is required")
	}
	if len([]rune(storeName)) > maxStoreNameLen {
		return nil, apperrors.New(apperrors.ErrCodeReviewInvalid, "store_name is too long")
	}
	if len([]rune(text)) > MaxReviewTextLen {
		return nil, apperrors.New(apperrors.ErrCodeReviewInvalid, "review_text is too long")
	}
	if photos == nil {
		photos = []string{}
	}
	now := time.Now().UTC()
	return &Review{
		ID:           uuid.New().String(),
		UserID:       userID,
		StoreName:    storeName,
		StoreAddress: strings.TrimSpace(storeAddress),
		ReviewText:   text,
		UserRating:   scoring.NormalizeRating(rating),
		PhotoURLs:    photos,
		VisitCount:   1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// HasPhoto reports whether any photo was attached.
func (r *Review) HasPhoto() bool {
	for _, u := range r.PhotoURLs {
		if strings.TrimSpace(u) != "" {
			return true
		}
	}
	return false
}

// Input is the engine input for this review.
func (r *Review) Input() scoring.ReviewInput {
	return scoring.ReviewInput{Text: r.ReviewText, UserRating: r.UserRating, HasPhoto: r.HasPhoto()}
}

// ApplyAnalysis copies the engine result and the flags derived from it.
func (r *Review) ApplyAnalysis(a scoring.Analysis) {
	r.Score = a.Score
	r.Trust = a.Trust
	r.Label = a.Label
	r.Tags = scoring.SortTagsByPriority(a.Tags)
	r.IsCritical = a.IsCritical()
	r.Authenticity = a.Trust >= authenticityMinTrust
	r.IsHidden = a.Trust <= hiddenTrustMax
	r.LogicVersion = scoring.LogicVersion
	r.UpdatedAt = time.Now().UTC()
}

// ListFilter narrows List.
type ListFilter struct {
	StoreName     string
	IncludeHidden bool
	Limit         int
}

// Normalize applies default and maximum limits.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
}

// StoreStat is one row of the per-store summary.
type StoreStat struct {
	StoreName    string  `json:"store_name"`
	ReviewCount  int     `json:"review_count"`
	AverageScore float64 `json:"average_score"`
}

// Stats summarizes stored reviews.
type Stats struct {
	TotalReviews int         `json:"total_reviews"`
	AverageScore float64     `json:"average_score"`
	TopStores    []StoreStat `json:"top_stores"`
}

// Repository is the durable review store.
type Repository interface {
	Create(ctx context.Context, r *Review) error
	FindByID(ctx context.Context, id string) (*Review, error)
	List(ctx context.Context, f ListFilter) ([]*Review, error)
	// CountByUserStore counts the user's earlier reviews of a store.
	CountByUserStore(ctx context.Context, userID, storeName string) (int, error)
	// ListPage returns reviews ordered by id after the given id, for batch
	// recalculation. An empty afterID starts from the beginning.
	ListPage(ctx context.Context, afterID string, limit int) ([]*Review, error)
	// UpsertAnalyses writes the analysis columns of each review by id.
	UpsertAnalyses(ctx context.Context, reviews []*Review) error
	Stats(ctx context.Context, topStores int) (*Stats, error)
}
