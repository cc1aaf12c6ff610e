// Package transcription adapts speech-to-text engines to a single result
// shape with a derived confidence estimate.
package transcription

import "context"

// DefaultLanguage is used when the caller gives no language hint.
const DefaultLanguage = "vi"

// Segment is one recognized span. AvgLogprob is nil when the engine does not
// expose log-probabilities.
type Segment struct {
	Text       string
	AvgLogprob *float64
}

// EngineOutput is what an engine returns for one audio clip.
type EngineOutput struct {
	Text     string
	Language string
	Segments []Segment
}

// Engine is a speech-to-text backend.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, audio []byte, language string) (*EngineOutput, error)
}
