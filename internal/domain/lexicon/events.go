package lexicon

import "time"

// MinedEvent reports the term events mined from one review.
type MinedEvent struct {
	ReviewID string      `json:"review_id,omitempty"`
	Events   []TermEvent `json:"events"`
	MinedAt  time.Time   `json:"mined_at"`
}

// PromotedEvent tells every process holding a lexicon cache that the
// lexicon changed.
type PromotedEvent struct {
	Terms      []string  `json:"terms"`
	Source     string    `json:"source"`
	PromotedAt time.Time `json:"promoted_at"`
}
