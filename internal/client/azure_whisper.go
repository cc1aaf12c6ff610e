package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/windfall/vntutor_service/internal/errors"
	"github.com/windfall/vntutor_service/internal/transcription"
)

// AzureWhisperClient wraps the Azure OpenAI Whisper REST API for audio transcription.
type AzureWhisperClient struct {
	endpoint string // full deployment URL including api-version
	apiKey   string
	client   *http.Client
}

// WhisperResponse is the verbose_json response shared by Azure OpenAI Whisper
// and whisper.cpp.
type WhisperResponse struct {
	Task     string           `json:"task"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Text     string           `json:"text"`
	Segments []WhisperSegment `json:"segments"`
}

// WhisperSegment represents a sentence-level segment with timing.
type WhisperSegment struct {
	ID         int      `json:"id"`
	Start      float64  `json:"start"` // seconds
	End        float64  `json:"end"`   // seconds
	Text       string   `json:"text"`
	AvgLogprob *float64 `json:"avg_logprob,omitempty"`
}

func (r *WhisperResponse) engineOutput(requested string) *transcription.EngineOutput {
	out := &transcription.EngineOutput{
		Text:     r.Text,
		Language: languageCode(r.Language, requested),
	}
	for _, seg := range r.Segments {
		out.Segments = append(out.Segments, transcription.Segment{Text: seg.Text, AvgLogprob: seg.AvgLogprob})
	}
	return out
}

// NewAzureWhisperClient creates a new Azure OpenAI Whisper client.
func NewAzureWhisperClient(endpoint, apiKey string) *AzureWhisperClient {
	return &AzureWhisperClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Name implements transcription.Engine.
func (c *AzureWhisperClient) Name() string { return "azure" }

// Transcribe sends a WAV clip to Azure OpenAI Whisper.
// language is optional; if empty, Whisper auto-detects.
func (c *AzureWhisperClient) Transcribe(ctx context.Context, audio []byte, language string) (*transcription.EngineOutput, error) {
	if c.apiKey == "" || c.endpoint == "" {
		return nil, errors.New(errors.ErrTranscription, "Azure Whisper credentials not configured")
	}

	body, contentType, err := whisperForm(audio, map[string]string{
		"response_format": "verbose_json",
		"language":        language,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", contentType)

	result, err := doWhisperRequest(c.client, req, "azure whisper")
	if err != nil {
		return nil, err
	}
	return result.engineOutput(language), nil
}

// whisperForm builds the multipart body shared by whisper-style servers.
// Empty field values are skipped.
func whisperForm(audio []byte, fields map[string]string) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := writer.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}

func doWhisperRequest(client *http.Client, req *http.Request, name string) (*WhisperResponse, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s api error %d: %s", name, resp.StatusCode, string(respBody))
	}

	var result WhisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}
