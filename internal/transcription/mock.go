package transcription

import (
	"context"
)

type mockEngine struct {
	transcript string
}

// NewMockEngine returns an engine that answers every clip with transcript.
// It is meant for local development without an STT backend.
func NewMockEngine(transcript string) Engine {
	return &mockEngine{transcript: transcript}
}

func (m *mockEngine) Name() string { return "mock" }

func (m *mockEngine) Transcribe(ctx context.Context, _ []byte, language string) (*EngineOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &EngineOutput{Text: m.transcript, Language: language}, nil
}
