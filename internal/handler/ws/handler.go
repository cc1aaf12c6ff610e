package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/windfall/vntutor_service/internal/errors"
	"github.com/windfall/vntutor_service/internal/service"
)

// MessageType constants
const (
	TypePing          = "ping"
	TypePong          = "pong"
	TypeAccent        = "accent"
	TypeScore         = "score"
	TypePronunciation = "pronunciation"
	TypeError         = "error"
	TypeSuccess       = "success"
)

// Handler handles WebSocket messages.
type Handler struct {
	log         zerolog.Logger
	assessments *service.AssessmentService
	maxBytes    int64
}

// NewHandler creates a new WebSocket handler. maxAudioBytes bounds decoded
// audio in pronunciation messages.
func NewHandler(log zerolog.Logger, assessments *service.AssessmentService, maxAudioBytes int64) *Handler {
	return &Handler{log: log, assessments: assessments, maxBytes: maxAudioBytes}
}

// Response represents a WebSocket response.
type Response struct {
	Type    string      `json:"type"`
	Request string      `json:"request,omitempty"`
	Payload interface{} `json:"payload"`
}

// Handle processes incoming WebSocket messages. Errors are answered with an
// error message; the returned Go error is reserved for encoding failures.
func (h *Handler) Handle(ctx context.Context, clientID string, msgType string, payload json.RawMessage) ([]byte, error) {
	h.log.Debug().
		Str("client_id", clientID).
		Str("type", msgType).
		Msg("Handling WebSocket message")

	switch msgType {
	case TypePing:
		return h.handlePing()

	case TypeAccent:
		return h.handleAccent(ctx, payload)

	case TypeScore:
		return h.handleScore(ctx, payload)

	case TypePronunciation:
		return h.handlePronunciation(ctx, clientID, payload)

	default:
		return h.errorResponse(msgType, "unknown message type: "+msgType)
	}
}

func (h *Handler) handlePing() ([]byte, error) {
	return h.response(TypePong, "", map[string]string{
		"message": "pong",
	})
}

// AccentPayload asks for accent detection on text.
type AccentPayload struct {
	Text *string `json:"text"`
}

func (h *Handler) handleAccent(ctx context.Context, payload json.RawMessage) ([]byte, error) {
	var p AccentPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.Text == nil {
		return h.errorResponse(TypeAccent, "Thiếu văn bản")
	}
	return h.response(TypeSuccess, TypeAccent, h.assessments.DetectAccent(ctx, *p.Text))
}

// ScorePayload scores already transcribed text.
type ScorePayload struct {
	TargetText      string `json:"target_text"`
	TranscribedText string `json:"transcribed_text"`
}

func (h *Handler) handleScore(ctx context.Context, payload json.RawMessage) ([]byte, error) {
	var p ScorePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return h.errorResponse(TypeScore, "Dữ liệu gửi lên không hợp lệ")
	}
	result, err := h.assessments.ScoreText(ctx, p.TargetText, p.TranscribedText)
	if err != nil {
		return h.appErrorResponse(TypeScore, err)
	}
	return h.response(TypeSuccess, TypeScore, result)
}

// PronunciationPayload carries base64 audio for a full assessment.
type PronunciationPayload struct {
	AudioBase64  string `json:"audio_base64"`
	TargetText   string `json:"target_text"`
	PhraseID     string `json:"phrase_id"`
	Language     string `json:"language"`
	DetectAccent bool   `json:"detect_accent"`
}

func (h *Handler) handlePronunciation(ctx context.Context, clientID string, payload json.RawMessage) ([]byte, error) {
	var p PronunciationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return h.errorResponse(TypePronunciation, "Dữ liệu gửi lên không hợp lệ")
	}
	if h.maxBytes > 0 && int64(base64.StdEncoding.DecodedLen(len(p.AudioBase64))) > h.maxBytes {
		return h.errorResponse(TypePronunciation, "Tệp âm thanh quá lớn")
	}
	audio, err := base64.StdEncoding.DecodeString(p.AudioBase64)
	if err != nil {
		return h.errorResponse(TypePronunciation, "Dữ liệu âm thanh không hợp lệ")
	}

	result, err := h.assessments.Assess(ctx, service.AssessRequest{
		Audio:      service.AudioRef{Data: audio},
		TargetText: p.TargetText,
		PhraseID:   p.PhraseID,
		Language:   p.Language,
		WantAccent: p.DetectAccent,
	})
	if err != nil {
		h.log.Warn().Err(err).Str("client_id", clientID).Msg("Assessment over WebSocket failed")
		return h.appErrorResponse(TypePronunciation, err)
	}

	return h.response(TypeSuccess, TypePronunciation, result)
}

func (h *Handler) response(msgType, request string, payload interface{}) ([]byte, error) {
	resp := Response{
		Type:    msgType,
		Request: request,
		Payload: payload,
	}
	return json.Marshal(resp)
}

// appErrorResponse reports the user-facing message of an AppError.
func (h *Handler) appErrorResponse(request string, err error) ([]byte, error) {
	if appErr, ok := errors.As(err); ok {
		return h.errorResponse(request, appErr.Message)
	}
	return h.errorResponse(request, "Lỗi hệ thống, vui lòng thử lại sau")
}

func (h *Handler) errorResponse(request, message string) ([]byte, error) {
	return h.response(TypeError, request, map[string]string{
		"error": message,
	})
}
