package transcription

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout bounds a single engine call.
	DefaultTimeout = 30 * time.Second
	// DefaultConfidence is reported when no segment carries a log-probability.
	DefaultConfidence = 0.8
)

var errEmptyAudio = errors.New("empty audio")

// Result is the adapter's answer for one clip. Failures are reported through
// Success and Error, never as a Go error.
type Result struct {
	Success    bool    `json:"success"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
	Engine     string  `json:"engine"`
	Error      string  `json:"error,omitempty"`
}

// Adapter wraps an Engine with a timeout, a language default and confidence
// derivation.
type Adapter struct {
	engine   Engine
	timeout  time.Duration
	language string
	log      zerolog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithDefaultLanguage overrides DefaultLanguage.
func WithDefaultLanguage(lang string) Option {
	return func(a *Adapter) {
		if lang != "" {
			a.language = lang
		}
	}
}

// NewAdapter creates an adapter over engine.
func NewAdapter(engine Engine, log zerolog.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		engine:   engine,
		timeout:  DefaultTimeout,
		language: DefaultLanguage,
		log:      log.With().Str("component", "transcription").Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// EngineName returns the name of the wrapped engine.
func (a *Adapter) EngineName() string {
	if a.engine == nil {
		return ""
	}
	return a.engine.Name()
}

// DefaultLanguage returns the language used when no hint is given.
func (a *Adapter) DefaultLanguage() string { return a.language }

// Timeout returns the per-call timeout.
func (a *Adapter) Timeout() time.Duration { return a.timeout }

// Ready reports whether an engine is configured.
func (a *Adapter) Ready() bool { return a.engine != nil }

// Transcribe runs the engine on audio. An empty language falls back to the
// adapter default.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte, language string) Result {
	if language == "" {
		language = a.language
	}
	res := Result{Language: language, Engine: a.EngineName()}

	if a.engine == nil {
		res.Error = "transcription engine not configured"
		return res
	}
	if len(audio) == 0 {
		res.Error = errEmptyAudio.Error()
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	out, err := a.engine.Transcribe(ctx, audio, language)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = errors.New("transcription timed out after " + a.timeout.String())
		}
		a.log.Error().Err(err).
			Str("engine", res.Engine).
			Int("audio_bytes", len(audio)).
			Msg("Transcription failed")
		res.Error = err.Error()
		return res
	}

	res.Success = true
	res.Text = strings.TrimSpace(out.Text)
	res.Confidence = Confidence(out.Segments)
	if out.Language != "" {
		res.Language = out.Language
	}

	a.log.Info().
		Str("engine", res.Engine).
		Dur("took", time.Since(start)).
		Int("chars", len([]rune(res.Text))).
		Float64("confidence", res.Confidence).
		Msg("Transcription completed")
	return res
}

// Confidence is the mean of exp(avg_logprob) over segments that carry a
// log-probability, each clamped to [0, 1]. Without any it is
// DefaultConfidence.
func Confidence(segments []Segment) float64 {
	var sum float64
	n := 0
	for _, s := range segments {
		if s.AvgLogprob == nil {
			continue
		}
		sum += math.Max(0, math.Min(1, math.Exp(*s.AvgLogprob)))
		n++
	}
	if n == 0 {
		return DefaultConfidence
	}
	return math.Round(sum/float64(n)*1000) / 1000
}
