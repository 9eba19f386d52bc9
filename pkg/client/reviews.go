package client

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// Evidence modes for AnalyzeRequest.EvidenceMode.
const (
	EvidenceTop = "top"
	EvidenceAll = "all"
)

// AnalyzeRequest scores a review without storing it. UserRating accepts a
// number or a string such as "4.5점". Learn defaults to true on the server.
type AnalyzeRequest struct {
	ReviewText   string      `json:"review_text"`
	UserRating   interface{} `json:"user_rating,omitempty"`
	HasPhoto     bool        `json:"has_photo,omitempty"`
	Tags         []string    `json:"tags,omitempty"`
	Debug        bool        `json:"debug,omitempty"`
	Learn        *bool       `json:"learn,omitempty"`
	EvidenceMode string      `json:"evidence_mode,omitempty"`
}

// Tag is one aspect summary.
type Tag struct {
	Aspect    string  `json:"aspect"`
	Label     string  `json:"label"`
	Mentioned bool    `json:"mentioned"`
	Polarity  string  `json:"polarity"`
	Strength  float64 `json:"strength"`
}

// EvidenceHit is one matched cue.
type EvidenceHit struct {
	Aspect   string  `json:"aspect"`
	Polarity string  `json:"polarity"`
	Weight   float64 `json:"weight"`
	Cue      string  `json:"cue"`
	Snippet  string  `json:"snippet"`
	RuleID   string  `json:"rule_id"`
}

// StrongNegative reports a dealbreaker complaint and the score ceiling it
// imposed.
type StrongNegative struct {
	Flag     bool     `json:"flag"`
	Category string   `json:"type"`
	Ceiling  float64  `json:"ceiling"`
	Matched  []string `json:"matched"`
}

// Evidence groups the hits that drove a score.
type Evidence struct {
	Positive       []EvidenceHit  `json:"positive"`
	Negative       []EvidenceHit  `json:"negative"`
	StrongNegative StrongNegative `json:"strong_negative"`
}

// LearningResult reports what mining did with an analyzed review.
type LearningResult struct {
	Mined            int      `json:"mined"`
	CandidateUpdated int      `json:"candidate_updated"`
	Promoted         int      `json:"promoted"`
	PromotedTerms    []string `json:"promoted_terms,omitempty"`
}

// AnalyzeResult is the response of Analyze. Debug is left raw; its shape
// follows the scoring engine.
type AnalyzeResult struct {
	Score        float64                `json:"needsfine_score"`
	Trust        int                    `json:"trust_level"`
	Label        string                 `json:"label"`
	Mode         string                 `json:"mode"`
	Tags         []Tag                  `json:"tags"`
	Message      string                 `json:"message"`
	IsWarning    bool                   `json:"is_warning"`
	LogicVersion string                 `json:"logic_version"`
	Evidence     Evidence               `json:"evidence"`
	Learning     *LearningResult        `json:"learning,omitempty"`
	Debug        map[string]interface{} `json:"debug,omitempty"`
}

// CreateReviewRequest submits a review for scoring and storage.
type CreateReviewRequest struct {
	UserID       string      `json:"user_id,omitempty"`
	StoreName    string      `json:"store_name"`
	StoreAddress string      `json:"store_address,omitempty"`
	ReviewText   string      `json:"review_text"`
	UserRating   interface{} `json:"user_rating,omitempty"`
	PhotoURLs    []string    `json:"photo_urls,omitempty"`
}

// Review is a stored, scored review.
type Review struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	StoreName    string    `json:"store_name"`
	StoreAddress string    `json:"store_address,omitempty"`
	ReviewText   string    `json:"review_text"`
	UserRating   *float64  `json:"user_rating"`
	PhotoURLs    []string  `json:"photo_urls"`
	Score        float64   `json:"needsfine_score"`
	Trust        int       `json:"trust_level"`
	Label        string    `json:"label"`
	Authenticity bool      `json:"authenticity"`
	Tags         []Tag     `json:"tags"`
	IsCritical   bool      `json:"is_critical"`
	IsHidden     bool      `json:"is_hidden"`
	LogicVersion string    `json:"logic_version"`
	VisitCount   int       `json:"visit_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListReviewsOptions filters List. Zero values mean the server defaults.
type ListReviewsOptions struct {
	StoreName string
	Limit     int
}

// StoreStat summarizes one store.
type StoreStat struct {
	StoreName    string  `json:"store_name"`
	ReviewCount  int     `json:"review_count"`
	AverageScore float64 `json:"average_score"`
}

// Stats summarizes visible reviews.
type Stats struct {
	TotalReviews int         `json:"total_reviews"`
	AverageScore float64     `json:"average_score"`
	TopStores    []StoreStat `json:"top_stores"`
}

// ---------------------------------------------------------------------------
// ReviewsClient
// ---------------------------------------------------------------------------

// ReviewsClient calls the public scoring endpoints.
type ReviewsClient struct {
	client *Client
}

// Analyze scores a review without storing it.
func (r *ReviewsClient) Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResult, error) {
	var res AnalyzeResult
	if err := r.client.post(ctx, "/api/v1/analyze", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Create scores and stores a review.
func (r *ReviewsClient) Create(ctx context.Context, req *CreateReviewRequest) (*Review, error) {
	var rev Review
	if err := r.client.post(ctx, "/api/v1/reviews", req, &rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

// Get fetches one review.
func (r *ReviewsClient) Get(ctx context.Context, id string) (*Review, error) {
	var rev Review
	if err := r.client.get(ctx, "/api/v1/reviews/"+url.PathEscape(id), &rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

// List returns visible reviews, newest first.
func (r *ReviewsClient) List(ctx context.Context, opts ListReviewsOptions) ([]Review, error) {
	q := url.Values{}
	if opts.StoreName != "" {
		q.Set("store_name", opts.StoreName)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	path := "/api/v1/reviews"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp struct {
		Reviews []Review `json:"reviews"`
	}
	if err := r.client.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Reviews, nil
}

// Stats returns the aggregate over visible reviews.
func (r *ReviewsClient) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	if err := r.client.get(ctx, "/api/v1/stats", &s); err != nil {
		return nil, err
	}
	return &s, nil
}
