package client

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/windfall/vntutor_service/internal/transcription"
)

const geminiTranscribePrompt = "Transcribe this audio exactly as spoken. " +
	"Language hint: %s. Return only the transcript text without punctuation changes, " +
	"translations or commentary."

// GeminiClient transcribes audio with a multimodal Gemini model.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// GeminiOptions selects the Gemini backend. With APIKey set the Gemini API is
// used, otherwise Vertex AI with application default credentials.
type GeminiOptions struct {
	APIKey    string
	ProjectID string
	Location  string
	BaseURL   string
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(ctx context.Context, opts GeminiOptions) (*GeminiClient, error) {
	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.APIKey == "" {
		cfg = &genai.ClientConfig{
			Project:  opts.ProjectID,
			Location: opts.Location,
			Backend:  genai.BackendVertexAI,
		}
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  "gemini-2.0-flash",
	}, nil
}

// WithModel sets the model to use.
func (c *GeminiClient) WithModel(model string) *GeminiClient {
	if model != "" {
		c.model = model
	}
	return c
}

// Name implements transcription.Engine.
func (c *GeminiClient) Name() string { return "gemini" }

// Transcribe sends the clip as an inline audio part. Gemini exposes no
// log-probabilities, so segments are left empty.
func (c *GeminiClient) Transcribe(ctx context.Context, audio []byte, language string) (*transcription.EngineOutput, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(fmt.Sprintf(geminiTranscribePrompt, language)),
			genai.NewPartFromBytes(audio, "audio/wav"),
		}, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini transcription: %w", err)
	}

	return &transcription.EngineOutput{
		Text:     strings.TrimSpace(resp.Text()),
		Language: language,
	}, nil
}
