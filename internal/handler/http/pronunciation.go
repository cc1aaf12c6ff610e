package http

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/windfall/vntutor_service/internal/errors"
	"github.com/windfall/vntutor_service/internal/service"
	"github.com/windfall/vntutor_service/pkg/response"
)

// PronunciationHandler handles pronunciation assessment endpoints,
// including the 2-step async flow.
type PronunciationHandler struct {
	log         zerolog.Logger
	assessments *service.AssessmentService
	async       *service.AsyncService
	maxBytes    int64
}

// NewPronunciationHandler creates a new Pronunciation handler. async may be
// nil when no result queue is configured.
func NewPronunciationHandler(
	log zerolog.Logger,
	assessments *service.AssessmentService,
	async *service.AsyncService,
	maxAudioBytes int64,
) *PronunciationHandler {
	if maxAudioBytes <= 0 {
		maxAudioBytes = DefaultMaxAudioBytes
	}
	return &PronunciationHandler{
		log:         log,
		assessments: assessments,
		async:       async,
		maxBytes:    maxAudioBytes,
	}
}

func (h *PronunciationHandler) assessRequest(w http.ResponseWriter, r *http.Request) (service.AssessRequest, error) {
	audio, err := readAudioForm(w, r, h.maxBytes)
	if err != nil {
		return service.AssessRequest{}, err
	}
	return service.AssessRequest{
		Audio:      audio,
		TargetText: r.FormValue("target_text"),
		PhraseID:   r.FormValue("phrase_id"),
		Language:   r.FormValue("language"),
		WantAccent: formBool(r, "detect_accent", false),
	}, nil
}

// Assess handles POST /api/v1/pronunciation
//
// Request: multipart/form-data with "audio" (or "audio_uri"), "target_text"
// (or "phrase_id"), optional "language" and "detect_accent".
func (h *PronunciationHandler) Assess(w http.ResponseWriter, r *http.Request) {
	req, err := h.assessRequest(w, r)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	result, err := h.assessments.Assess(r.Context(), req)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// ScoreRequest scores text that was transcribed elsewhere.
type ScoreRequest struct {
	TargetText      string `json:"target_text"`
	TranscribedText string `json:"transcribed_text"`
}

// Score handles POST /api/v1/pronunciation/score
func (h *PronunciationHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, err)
		return
	}

	result, err := h.assessments.ScoreText(r.Context(), req.TargetText, req.TranscribedText)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// Submit handles POST /api/v1/pronunciation/async
// This is the PRODUCER endpoint - validates the request, returns a request
// id immediately and runs the assessment in the background.
//
// Response: 202 { "request_id": "req_xxx" }
func (h *PronunciationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.async == nil {
		handleError(h.log, w, errors.Internal("Chức năng chấm điểm bất đồng bộ chưa được bật"))
		return
	}

	req, err := h.assessRequest(w, r)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	ticket, err := h.async.SubmitAsync(r.Context(), req)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	response.Accepted(w, ticket)
}

// Result handles GET /api/v1/pronunciation/result
// This is the CONSUMER endpoint - uses BLPOP to wait for the assessment.
//
// Query param: request_id
// Response (timeout): 504 Gateway Timeout
func (h *PronunciationHandler) Result(w http.ResponseWriter, r *http.Request) {
	if h.async == nil {
		handleError(h.log, w, errors.Internal("Chức năng chấm điểm bất đồng bộ chưa được bật"))
		return
	}

	requestID := r.URL.Query().Get("request_id")
	if requestID == "" {
		handleError(h.log, w, errors.Validation("Thiếu mã yêu cầu"))
		return
	}

	// Blocks until the result arrives or the wait window closes
	result, err := h.async.AsyncResult(r.Context(), requestID)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}
