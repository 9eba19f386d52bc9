package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/NeedsFine/internal/application/analysis"
	"github.com/turtacn/NeedsFine/internal/domain/review"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
)

// ReviewHandler serves the public scoring endpoints.
type ReviewHandler struct {
	svc    analysis.Service
	logger logging.Logger
}

// NewReviewHandler creates a ReviewHandler.
func NewReviewHandler(svc analysis.Service, logger logging.Logger) *ReviewHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ReviewHandler{svc: svc, logger: logger.Named("review_handler")}
}

// AnalyzeRequest is the body of POST /api/v1/analyze. UserRating accepts a
// number or a string such as "4.5점".
type AnalyzeRequest struct {
	ReviewText   string      `json:"review_text"`
	UserRating   interface{} `json:"user_rating"`
	HasPhoto     bool        `json:"has_photo"`
	Tags         []string    `json:"tags"`
	Debug        bool        `json:"debug"`
	Learn        *bool       `json:"learn"`
	EvidenceMode string      `json:"evidence_mode"`
}

// CreateReviewRequest is the body of POST /api/v1/reviews.
type CreateReviewRequest struct {
	UserID       string      `json:"user_id"`
	StoreName    string      `json:"store_name"`
	StoreAddress string      `json:"store_address"`
	ReviewText   string      `json:"review_text"`
	UserRating   interface{} `json:"user_rating"`
	PhotoURLs    []string    `json:"photo_urls"`
}

// Analyze handles POST /api/v1/analyze. Learning is on unless the body sets
// "learn": false.
func (h *ReviewHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	learn := true
	if req.Learn != nil {
		learn = *req.Learn
	}

	res, err := h.svc.Analyze(r.Context(), &analysis.AnalyzeInput{
		Text:         req.ReviewText,
		UserRating:   scoring.ParseRating(req.UserRating),
		HasPhoto:     req.HasPhoto,
		Tags:         req.Tags,
		Debug:        req.Debug,
		Learn:        learn,
		EvidenceMode: req.EvidenceMode,
	})
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Create handles POST /api/v1/reviews.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	rev, err := h.svc.CreateReview(r.Context(), &analysis.CreateReviewInput{
		UserID:       req.UserID,
		StoreName:    req.StoreName,
		StoreAddress: req.StoreAddress,
		ReviewText:   req.ReviewText,
		UserRating:   scoring.ParseRating(req.UserRating),
		PhotoURLs:    req.PhotoURLs,
	})
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, rev)
}

// List handles GET /api/v1/reviews?store_name=&limit=.
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	reviews, err := h.svc.ListReviews(r.Context(), &analysis.ListInput{
		StoreName: r.URL.Query().Get("store_name"),
		Limit:     limit,
	})
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if reviews == nil {
		reviews = []*review.Review{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reviews": reviews, "count": len(reviews)})
}

// Get handles GET /api/v1/reviews/{reviewID}.
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	rev, err := h.svc.GetReview(r.Context(), chi.URLParam(r, "reviewID"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

// Stats handles GET /api/v1/stats.
func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
