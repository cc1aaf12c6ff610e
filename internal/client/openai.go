package client

import (
	"bytes"
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/windfall/vntutor_service/internal/transcription"
)

// OpenAIClient transcribes audio through the OpenAI audio API. Any
// OpenAI-compatible whisper server works when a base URL is set.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI transcription client. An empty baseURL
// keeps the public OpenAI endpoint.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.Whisper1,
	}
}

// WithModel sets the model to use.
func (c *OpenAIClient) WithModel(model string) *OpenAIClient {
	if model != "" {
		c.model = model
	}
	return c
}

// Name implements transcription.Engine.
func (c *OpenAIClient) Name() string { return "openai" }

// Transcribe sends a WAV clip and returns text with per-segment
// log-probabilities.
func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte, language string) (*transcription.EngineOutput, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		FilePath: "audio.wav",
		Reader:   bytes.NewReader(audio),
		Language: language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	out := &transcription.EngineOutput{
		Text:     resp.Text,
		Language: languageCode(resp.Language, language),
	}
	for _, seg := range resp.Segments {
		lp := seg.AvgLogprob
		out.Segments = append(out.Segments, transcription.Segment{Text: seg.Text, AvgLogprob: &lp})
	}
	return out, nil
}

// languageCode keeps the requested code when the server answers with a
// language name ("vietnamese") instead of an ISO code.
func languageCode(reported, requested string) string {
	if reported == "" || len(reported) > 3 {
		return requested
	}
	return reported
}
