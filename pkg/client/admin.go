package client

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/turtacn/NeedsFine/pkg/errors"
)

// RecalcResult reports a batch rescore.
type RecalcResult struct {
	Success      bool   `json:"success"`
	Count        int    `json:"count"`
	Total        int    `json:"total"`
	LogicVersion string `json:"logic_version"`
	Error        string `json:"error,omitempty"`
}

// Candidate is a mined term awaiting promotion.
type Candidate struct {
	Term         string         `json:"term"`
	Stats        map[string]int `json:"stats"`
	TotalCount   int            `json:"total_count"`
	BestAspect   string         `json:"best_aspect"`
	BestPolarity string         `json:"best_polarity"`
	Confidence   float64        `json:"confidence"`
	Promoted     bool           `json:"promoted"`
	FirstSeen    time.Time      `json:"first_seen"`
	LastSeen     time.Time      `json:"last_seen"`
}

// Cue is a learned lexicon entry.
type Cue struct {
	Term       string  `json:"term"`
	Aspect     string  `json:"aspect"`
	Polarity   string  `json:"polarity"`
	Confidence float64 `json:"confidence"`
}

// ActionResult reports an approve or reject.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Cue     *Cue   `json:"cue,omitempty"`
}

type termAction struct {
	Term             string `json:"term"`
	Action           string `json:"action"`
	OverrideAspect   string `json:"override_aspect,omitempty"`
	OverridePolarity string `json:"override_polarity,omitempty"`
}

// AdminClient calls the password-guarded maintenance endpoints.
type AdminClient struct {
	client *Client
}

// Recalculate rescores every stored review. When the server reports a run
// that wrote nothing, the result is returned together with the error.
func (a *AdminClient) Recalculate(ctx context.Context) (*RecalcResult, error) {
	var res RecalcResult
	err := a.client.post(ctx, "/api/v1/admin/recalculate", nil, &res)
	if err == nil {
		return &res, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest && apiErr.Code == "" {
		if jerr := json.Unmarshal(apiErr.body, &res); jerr == nil {
			apiErr.Message = res.Error
			return &res, apiErr
		}
	}
	return nil, err
}

// Candidates lists unpromoted candidates, most frequent first.
func (a *AdminClient) Candidates(ctx context.Context) ([]Candidate, error) {
	var resp struct {
		Candidates []Candidate `json:"candidates"`
	}
	if err := a.client.get(ctx, "/api/v1/admin/term-candidates", &resp); err != nil {
		return nil, err
	}
	return resp.Candidates, nil
}

// Approve promotes term. Empty overrides keep the candidate's best aspect
// and polarity.
func (a *AdminClient) Approve(ctx context.Context, term, aspect, polarity string) (*ActionResult, error) {
	return a.act(ctx, termAction{Term: term, Action: "approve", OverrideAspect: aspect, OverridePolarity: polarity})
}

// Reject discards term.
func (a *AdminClient) Reject(ctx context.Context, term string) (*ActionResult, error) {
	return a.act(ctx, termAction{Term: term, Action: "reject"})
}

func (a *AdminClient) act(ctx context.Context, body termAction) (*ActionResult, error) {
	var res ActionResult
	if err := a.client.post(ctx, "/api/v1/admin/term-candidates/action", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// InvalidateLexicon drops every cached copy of the learned lexicon.
func (a *AdminClient) InvalidateLexicon(ctx context.Context) error {
	return a.client.post(ctx, "/api/v1/admin/lexicon/invalidate", nil, nil)
}
