package handlers

import (
	"net/http"

	"github.com/turtacn/NeedsFine/internal/application/analysis"
	"github.com/turtacn/NeedsFine/internal/application/curation"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
)

// AdminHandler serves the password-guarded maintenance endpoints.
type AdminHandler struct {
	analysis analysis.Service
	curation curation.Service
	logger   logging.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(a analysis.Service, c curation.Service, logger logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &AdminHandler{analysis: a, curation: c, logger: logger.Named("admin_handler")}
}

// TermActionRequest is the body of POST /api/v1/admin/term-candidates/action.
type TermActionRequest struct {
	Term             string `json:"term"`
	Action           string `json:"action"`
	OverrideAspect   string `json:"override_aspect"`
	OverridePolarity string `json:"override_polarity"`
}

// Recalculate handles POST /api/v1/admin/recalculate. A run that wrote
// nothing answers 400 with the result body.
func (h *AdminHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	res, err := h.analysis.Recalculate(r.Context())
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, res)
}

// ListCandidates handles GET /api/v1/admin/term-candidates.
func (h *AdminHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.curation.ListCandidates(r.Context())
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"candidates": candidates, "count": len(candidates)})
}

// ActOnCandidate handles POST /api/v1/admin/term-candidates/action.
func (h *AdminHandler) ActOnCandidate(w http.ResponseWriter, r *http.Request) {
	var req TermActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	res, err := h.curation.Act(r.Context(), &curation.ActionInput{
		Term:             req.Term,
		Action:           req.Action,
		OverrideAspect:   req.OverrideAspect,
		OverridePolarity: req.OverridePolarity,
	})
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// InvalidateLexicon handles POST /api/v1/admin/lexicon/invalidate.
func (h *AdminHandler) InvalidateLexicon(w http.ResponseWriter, r *http.Request) {
	if err := h.curation.InvalidateLexicon(r.Context()); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
