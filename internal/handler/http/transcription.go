package http

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/windfall/vntutor_service/internal/service"
	"github.com/windfall/vntutor_service/pkg/response"
)

// TranscriptionHandler handles speech-to-text endpoints.
type TranscriptionHandler struct {
	log         zerolog.Logger
	assessments *service.AssessmentService
	maxBytes    int64
}

// NewTranscriptionHandler creates a new Transcription handler.
func NewTranscriptionHandler(log zerolog.Logger, assessments *service.AssessmentService, maxAudioBytes int64) *TranscriptionHandler {
	if maxAudioBytes <= 0 {
		maxAudioBytes = DefaultMaxAudioBytes
	}
	return &TranscriptionHandler{log: log, assessments: assessments, maxBytes: maxAudioBytes}
}

// Transcribe handles POST /api/v1/transcribe
//
// Request: multipart/form-data with "audio" (or "audio_uri"), optional
// "language" (default vi) and "detect_accent" (default false).
func (h *TranscriptionHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	audio, err := readAudioForm(w, r, h.maxBytes)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	result, err := h.assessments.Transcribe(r.Context(), audio, r.FormValue("language"), formBool(r, "detect_accent", false))
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// ModelInfo handles GET /api/v1/model/info
func (h *TranscriptionHandler) ModelInfo(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.assessments.EngineInfo())
}
