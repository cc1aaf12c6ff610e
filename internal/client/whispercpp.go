package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/windfall/vntutor_service/internal/transcription"
)

// WhisperCppClient talks to a whisper.cpp server (POST /inference).
type WhisperCppClient struct {
	serverURL string
	client    *http.Client
}

// NewWhisperCppClient creates a client for the whisper.cpp server at serverURL.
func NewWhisperCppClient(serverURL string) (*WhisperCppClient, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("whisper.cpp server URL must not be empty")
	}
	return &WhisperCppClient{
		serverURL: strings.TrimRight(serverURL, "/"),
		client:    &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Name implements transcription.Engine.
func (c *WhisperCppClient) Name() string { return "whispercpp" }

// Transcribe posts the clip to /inference with verbose_json output.
func (c *WhisperCppClient) Transcribe(ctx context.Context, audio []byte, language string) (*transcription.EngineOutput, error) {
	body, contentType, err := whisperForm(audio, map[string]string{
		"response_format": "verbose_json",
		"language":        language,
		"temperature":     "0.0",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/inference", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	result, err := doWhisperRequest(c.client, req, "whisper.cpp")
	if err != nil {
		return nil, err
	}
	return result.engineOutput(language), nil
}
