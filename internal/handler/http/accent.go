package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/windfall/vntutor_service/internal/errors"
	"github.com/windfall/vntutor_service/internal/service"
	"github.com/windfall/vntutor_service/pkg/response"
)

// AccentHandler handles accent detection endpoints.
type AccentHandler struct {
	log         zerolog.Logger
	assessments *service.AssessmentService
}

// NewAccentHandler creates a new Accent handler.
func NewAccentHandler(log zerolog.Logger, assessments *service.AssessmentService) *AccentHandler {
	return &AccentHandler{log: log, assessments: assessments}
}

// DetectAccentRequest carries the text to classify. Text is a pointer so a
// missing field can be told apart from an empty one.
type DetectAccentRequest struct {
	Text *string `json:"text"`
}

// Detect handles POST /api/v1/detect-accent
// A missing "text" is rejected; an empty one yields the default result.
func (h *AccentHandler) Detect(w http.ResponseWriter, r *http.Request) {
	var req DetectAccentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, err)
		return
	}
	if req.Text == nil {
		handleError(h.log, w, errors.Validation("Thiếu văn bản"))
		return
	}

	response.JSON(w, http.StatusOK, h.assessments.DetectAccent(r.Context(), *req.Text))
}

// Region handles GET /api/v1/accent/regions/{region}
func (h *AccentHandler) Region(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.assessments.RegionInfo(chi.URLParam(r, "region")))
}
