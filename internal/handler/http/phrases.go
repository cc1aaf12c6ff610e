package http

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/windfall/vntutor_service/internal/errors"
	"github.com/windfall/vntutor_service/internal/service"
	"github.com/windfall/vntutor_service/pkg/response"
)

const maxPhraseLimit = 100

// PhraseHandler serves the practice phrase catalog.
type PhraseHandler struct {
	log         zerolog.Logger
	assessments *service.AssessmentService
}

// NewPhraseHandler creates a new Phrase handler.
func NewPhraseHandler(log zerolog.Logger, assessments *service.AssessmentService) *PhraseHandler {
	return &PhraseHandler{log: log, assessments: assessments}
}

// List handles GET /api/v1/phrases?region=&limit=
func (h *PhraseHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPhraseLimit {
			handleError(h.log, w, errors.Validation("Giới hạn không hợp lệ"))
			return
		}
		limit = n
	}

	phrases, err := h.assessments.ListPhrases(r.Context(), r.URL.Query().Get("region"), limit)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	response.JSONWithMeta(w, http.StatusOK, phrases, &response.Meta{Total: len(phrases)})
}
