package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/vntutor_service/internal/accent"
	"github.com/windfall/vntutor_service/internal/errors"
	"github.com/windfall/vntutor_service/internal/observe"
	"github.com/windfall/vntutor_service/internal/pronunciation"
	"github.com/windfall/vntutor_service/internal/repository"
	"github.com/windfall/vntutor_service/internal/transcription"
)

// User-facing messages.
const (
	MsgMissingAudio        = "Thiếu tệp âm thanh"
	MsgMissingTarget       = "Thiếu văn bản mẫu"
	MsgPhraseNotFound      = "Không tìm thấy câu mẫu"
	MsgInvalidPhraseID     = "Mã câu mẫu không hợp lệ"
	MsgInvalidRegion       = "Vùng miền không hợp lệ"
	MsgTranscriptionFailed = "Không thể nhận dạng giọng nói. Vui lòng thử lại sau."
	MsgTextTooLong         = "Văn bản quá dài, tối đa 2000 ký tự"
	MsgTranscriptTooLong   = "Đoạn ghi âm quá dài để chấm điểm"
)

// MaxTextRunes bounds every text handed to the scorer. Character alignment
// is quadratic in the input length.
const MaxTextRunes = 2000

// CheckTextLength rejects texts longer than MaxTextRunes.
func CheckTextLength(texts ...string) error {
	for _, t := range texts {
		if utf8.RuneCountInString(t) > MaxTextRunes {
			return errors.Validation(MsgTextTooLong)
		}
	}
	return nil
}

// Languages the engines are asked to handle, and capabilities advertised by
// the model info endpoint.
var (
	SupportedLanguages = []string{"vi", "en", "zh", "ja", "ko", "th", "id", "ms"}
	vietnameseFeatures = []string{
		"Tone recognition",
		"Regional accent detection",
		"Pronunciation scoring",
		"Multi-speaker support",
	}
)

// Transcriber is satisfied by *transcription.Adapter.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) transcription.Result
	EngineName() string
	DefaultLanguage() string
	Ready() bool
}

// AudioSource resolves audio references into bytes.
type AudioSource interface {
	Resolve(ctx context.Context, uri string) ([]byte, error)
}

// AudioRef is either inline audio or a storage URI.
type AudioRef struct {
	Data []byte
	URI  string
}

// Empty reports whether neither bytes nor a URI were supplied.
func (a AudioRef) Empty() bool {
	return len(a.Data) == 0 && strings.TrimSpace(a.URI) == ""
}

// AssessRequest asks for one pronunciation assessment. TargetText wins over
// PhraseID when both are set.
type AssessRequest struct {
	Audio      AudioRef
	TargetText string
	PhraseID   string
	Language   string
	WantAccent bool
}

// PronunciationAssessment is the scorer result with the overall score
// repeated as "score".
type PronunciationAssessment struct {
	Score float64 `json:"score"`
	pronunciation.Result
}

// Assessment is the merged orchestrator response.
type Assessment struct {
	RequestID     string                  `json:"request_id,omitempty"`
	TargetText    string                  `json:"target_text"`
	Transcription transcription.Result    `json:"transcription"`
	Pronunciation PronunciationAssessment `json:"pronunciation_assessment"`
	Accent        *accent.Result          `json:"accent,omitempty"`
}

// TranscriptionResult is a transcription with optional accent detection.
type TranscriptionResult struct {
	transcription.Result
	Accent *accent.Result `json:"accent,omitempty"`
}

// EngineInfo describes the configured transcription backend.
type EngineInfo struct {
	Engine             string   `json:"engine"`
	ModelLoaded        bool     `json:"model_loaded"`
	DefaultLanguage    string   `json:"default_language"`
	SupportedLanguages []string `json:"supported_languages"`
	Features           []string `json:"vietnamese_features"`
	Regions            []string `json:"accent_regions"`
}

// AssessmentService sequences transcription, scoring and accent detection.
type AssessmentService struct {
	transcriber Transcriber
	scorer      *pronunciation.Scorer
	classifier  *accent.Classifier
	phrases     repository.PracticePhraseRepository
	audio       AudioSource
	events      EventPublisher
	metrics     *observe.Metrics
	log         zerolog.Logger
}

// Option configures optional collaborators of AssessmentService.
type Option func(*AssessmentService)

// WithPhraseRepository enables phrase_id lookups.
func WithPhraseRepository(repo repository.PracticePhraseRepository) Option {
	return func(s *AssessmentService) { s.phrases = repo }
}

// WithAudioSource enables audio URIs.
func WithAudioSource(src AudioSource) Option {
	return func(s *AssessmentService) { s.audio = src }
}

// WithEventPublisher publishes a summary event after each assessment.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *AssessmentService) { s.events = p }
}

// WithMetrics records operation metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *AssessmentService) { s.metrics = m }
}

// NewAssessmentService creates a new AssessmentService.
func NewAssessmentService(
	transcriber Transcriber,
	scorer *pronunciation.Scorer,
	classifier *accent.Classifier,
	log zerolog.Logger,
	opts ...Option,
) *AssessmentService {
	s := &AssessmentService{
		transcriber: transcriber,
		scorer:      scorer,
		classifier:  classifier,
		log:         log.With().Str("component", "assessment").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assess transcribes the learner's audio and scores it against the target.
// A failed transcription aborts the assessment; nothing is scored.
func (s *AssessmentService) Assess(ctx context.Context, req AssessRequest) (*Assessment, error) {
	p, err := s.prepare(ctx, req)
	if err != nil {
		s.metrics.RecordAssessment(ctx, "assess", false)
		return nil, err
	}
	return s.run(ctx, p)
}

// prepared is a request whose target and audio have been resolved.
type prepared struct {
	requestID  string
	target     string
	audio      []byte
	language   string
	wantAccent bool
}

func (s *AssessmentService) prepare(ctx context.Context, req AssessRequest) (*prepared, error) {
	if req.Audio.Empty() {
		return nil, errors.Validation(MsgMissingAudio)
	}

	target := strings.TrimSpace(req.TargetText)
	if target == "" && strings.TrimSpace(req.PhraseID) != "" {
		phrase, err := s.lookupPhrase(ctx, req.PhraseID)
		if err != nil {
			return nil, err
		}
		target = phrase.Text
	}
	if target == "" {
		return nil, errors.Validation(MsgMissingTarget)
	}
	if err := CheckTextLength(target); err != nil {
		return nil, err
	}

	audio := req.Audio.Data
	if len(audio) == 0 {
		if s.audio == nil {
			return nil, errors.Validation("Không hỗ trợ đường dẫn âm thanh")
		}
		data, err := s.audio.Resolve(ctx, req.Audio.URI)
		if err != nil {
			return nil, err
		}
		audio = data
	}

	return &prepared{
		target:     target,
		audio:      audio,
		language:   req.Language,
		wantAccent: req.WantAccent,
	}, nil
}

func (s *AssessmentService) lookupPhrase(ctx context.Context, rawID string) (*repository.PracticePhrase, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return nil, errors.Validation(MsgInvalidPhraseID)
	}
	if s.phrases == nil {
		return nil, errors.Validation(MsgPhraseNotFound)
	}
	phrase, err := s.phrases.GetByID(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.Validation(MsgPhraseNotFound)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "Không thể tải câu mẫu", err)
	}
	return phrase, nil
}

func (s *AssessmentService) run(ctx context.Context, p *prepared) (*Assessment, error) {
	tr := s.transcribe(ctx, p.audio, p.language)
	if !tr.Success {
		s.metrics.RecordAssessment(ctx, "assess", false)
		return nil, errors.Wrap(errors.ErrTranscription, MsgTranscriptionFailed, fmt.Errorf("%s", tr.Error))
	}
	if utf8.RuneCountInString(tr.Text) > MaxTextRunes {
		s.metrics.RecordAssessment(ctx, "assess", false)
		s.log.Warn().Int("runes", utf8.RuneCountInString(tr.Text)).Msg("Transcript too long to score")
		return nil, errors.Validation(MsgTranscriptTooLong)
	}

	pron := s.scorer.Score(p.target, tr.Text)
	if !pron.Empty() {
		s.metrics.RecordScore(ctx, pron.OverallScore)
	}

	result := &Assessment{
		RequestID:     p.requestID,
		TargetText:    p.target,
		Transcription: tr,
		Pronunciation: PronunciationAssessment{Score: pron.OverallScore, Result: pron},
	}
	if p.wantAccent {
		result.Accent = s.classify(ctx, tr.Text)
	}

	s.metrics.RecordAssessment(ctx, "assess", true)
	s.log.Info().
		Str("engine", tr.Engine).
		Float64("overall_score", pron.OverallScore).
		Bool("accent", result.Accent != nil).
		Msg("Pronunciation assessed")

	s.publish(result)
	return result, nil
}

// Transcribe runs transcription only, optionally classifying the accent of
// a non-empty transcript.
func (s *AssessmentService) Transcribe(ctx context.Context, audio AudioRef, language string, wantAccent bool) (*TranscriptionResult, error) {
	if audio.Empty() {
		s.metrics.RecordAssessment(ctx, "transcribe", false)
		return nil, errors.Validation(MsgMissingAudio)
	}
	data := audio.Data
	if len(data) == 0 {
		if s.audio == nil {
			s.metrics.RecordAssessment(ctx, "transcribe", false)
			return nil, errors.Validation("Không hỗ trợ đường dẫn âm thanh")
		}
		var err error
		if data, err = s.audio.Resolve(ctx, audio.URI); err != nil {
			s.metrics.RecordAssessment(ctx, "transcribe", false)
			return nil, err
		}
	}

	tr := s.transcribe(ctx, data, language)
	if !tr.Success {
		s.metrics.RecordAssessment(ctx, "transcribe", false)
		return nil, errors.Wrap(errors.ErrTranscription, MsgTranscriptionFailed, fmt.Errorf("%s", tr.Error))
	}

	out := &TranscriptionResult{Result: tr}
	if wantAccent && tr.Text != "" {
		out.Accent = s.classify(ctx, tr.Text)
	}
	s.metrics.RecordAssessment(ctx, "transcribe", true)
	return out, nil
}

// ScoreText scores an already transcribed attempt. Texts over MaxTextRunes
// are validation errors.
func (s *AssessmentService) ScoreText(ctx context.Context, target, transcribed string) (pronunciation.Result, error) {
	if err := CheckTextLength(target, transcribed); err != nil {
		s.metrics.RecordAssessment(ctx, "score", false)
		return pronunciation.Result{}, err
	}
	res := s.scorer.Score(target, transcribed)
	if !res.Empty() {
		s.metrics.RecordScore(ctx, res.OverallScore)
	}
	s.metrics.RecordAssessment(ctx, "score", !res.Empty())
	return res, nil
}

// DetectAccent classifies text. It always answers.
func (s *AssessmentService) DetectAccent(ctx context.Context, text string) accent.Result {
	res := s.classify(ctx, text)
	s.metrics.RecordAssessment(ctx, "accent", true)
	return *res
}

// RegionInfo describes a dialect region.
func (s *AssessmentService) RegionInfo(region string) accent.RegionInfo {
	return s.classifier.RegionInfo(strings.ToLower(strings.TrimSpace(region)))
}

// EngineInfo reports the configured transcription engine.
func (s *AssessmentService) EngineInfo() EngineInfo {
	info := EngineInfo{
		SupportedLanguages: SupportedLanguages,
		Features:           vietnameseFeatures,
		Regions:            s.classifier.Regions(),
	}
	if s.transcriber != nil {
		info.Engine = s.transcriber.EngineName()
		info.ModelLoaded = s.transcriber.Ready()
		info.DefaultLanguage = s.transcriber.DefaultLanguage()
	}
	return info
}

// Ready reports whether a transcription engine is configured.
func (s *AssessmentService) Ready() bool {
	return s.transcriber != nil && s.transcriber.Ready()
}

// ListPhrases returns active practice phrases, optionally for one region.
func (s *AssessmentService) ListPhrases(ctx context.Context, region string, limit int) ([]*repository.PracticePhrase, error) {
	region = strings.ToLower(strings.TrimSpace(region))
	if region != "" && !s.knownRegion(region) {
		return nil, errors.Validation(MsgInvalidRegion)
	}
	if s.phrases == nil {
		return []*repository.PracticePhrase{}, nil
	}
	phrases, err := s.phrases.List(ctx, region, limit)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "Không thể tải danh sách câu mẫu", err)
	}
	if phrases == nil {
		phrases = []*repository.PracticePhrase{}
	}
	return phrases, nil
}

func (s *AssessmentService) knownRegion(region string) bool {
	for _, r := range s.classifier.Regions() {
		if r == region {
			return true
		}
	}
	return false
}

func (s *AssessmentService) transcribe(ctx context.Context, audio []byte, language string) transcription.Result {
	if s.transcriber == nil {
		return transcription.Result{Language: language, Error: "transcription engine not configured"}
	}
	start := time.Now()
	tr := s.transcriber.Transcribe(ctx, audio, language)
	s.metrics.RecordTranscription(ctx, tr.Engine, tr.Success, time.Since(start).Seconds())
	if !tr.Success {
		s.log.Error().
			Str("engine", tr.Engine).
			Str("error", tr.Error).
			Msg("Transcription failed, skipping scoring")
	}
	return tr
}

func (s *AssessmentService) classify(ctx context.Context, text string) *accent.Result {
	res := s.classifier.Classify(text)
	s.metrics.RecordAccent(ctx, res.Region, res.Fallback)
	return &res
}

func (s *AssessmentService) publish(a *Assessment) {
	if s.events == nil {
		return
	}
	event := newAssessmentEvent(a)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
		defer cancel()
		if err := s.events.Publish(ctx, event, event.attributes()); err != nil {
			s.log.Warn().Err(err).Msg("Failed to publish assessment event")
		}
	}()
}
