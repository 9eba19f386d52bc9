package review

import "time"

// AnalyzedEvent is published after a review is persisted with its analysis.
// It carries what a consumer needs to re-run the engine without a lookup.
type AnalyzedEvent struct {
	ReviewID     string    `json:"review_id"`
	StoreName    string    `json:"store_name"`
	ReviewText   string    `json:"review_text"`
	UserRating   *float64  `json:"user_rating"`
	HasPhoto     bool      `json:"has_photo"`
	Score        float64   `json:"needsfine_score"`
	Trust        int       `json:"trust_level"`
	LogicVersion string    `json:"logic_version"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
}

// NewAnalyzedEvent builds the event for a scored review.
func NewAnalyzedEvent(r *Review) AnalyzedEvent {
	return AnalyzedEvent{
		ReviewID:     r.ID,
		StoreName:    r.StoreName,
		ReviewText:   r.ReviewText,
		UserRating:   r.UserRating,
		HasPhoto:     r.HasPhoto(),
		Score:        r.Score,
		Trust:        r.Trust,
		LogicVersion: r.LogicVersion,
		AnalyzedAt:   r.UpdatedAt,
	}
}
