package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/windfall/vntutor_service/internal/errors"
	"github.com/windfall/vntutor_service/internal/transcription"
)

// AzureSpeechClient wraps the Azure AI Speech short-audio REST API.
type AzureSpeechClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// speechLocales maps ISO language hints to Azure Speech locales.
var speechLocales = map[string]string{
	"vi": "vi-VN",
	"en": "en-US",
	"zh": "zh-CN",
	"ja": "ja-JP",
	"ko": "ko-KR",
	"th": "th-TH",
	"id": "id-ID",
	"ms": "ms-MY",
}

// AzureSpeechResponse is the detailed-format recognition result.
type AzureSpeechResponse struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText"`
	Offset            int64  `json:"Offset"`
	Duration          int64  `json:"Duration"`
	NBest             []struct {
		Confidence float64 `json:"Confidence"`
		Lexical    string  `json:"Lexical"`
		Display    string  `json:"Display"`
	} `json:"NBest"`
}

// NewAzureSpeechClient creates a new Azure Speech client for region.
func NewAzureSpeechClient(apiKey, region string) *AzureSpeechClient {
	return &AzureSpeechClient{
		apiKey:  apiKey,
		baseURL: fmt.Sprintf("https://%s.stt.speech.microsoft.com", region),
		client: &http.Client{
			Timeout: 30 * time.Second, // 30 second timeout
		},
	}
}

// WithBaseURL points the client at another host (sovereign clouds, tests).
func (c *AzureSpeechClient) WithBaseURL(baseURL string) *AzureSpeechClient {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// Name implements transcription.Engine.
func (c *AzureSpeechClient) Name() string { return "azurespeech" }

// Transcribe sends a 16 kHz PCM WAV clip to the short-audio endpoint.
// The top NBest confidence is reported as a log-probability so the adapter
// recovers it unchanged.
func (c *AzureSpeechClient) Transcribe(ctx context.Context, audio []byte, language string) (*transcription.EngineOutput, error) {
	if c.apiKey == "" {
		return nil, errors.New(errors.ErrTranscription, "Azure Speech credentials not configured")
	}

	locale, ok := speechLocales[language]
	if !ok {
		locale = language
	}

	// Docs: https://learn.microsoft.com/en-us/azure/ai-services/speech-service/rest-speech-to-text-short
	u, err := url.Parse(c.baseURL + "/speech/recognition/conversation/cognitiveservices/v1")
	if err != nil {
		return nil, fmt.Errorf("invalid azure speech url: %w", err)
	}
	q := u.Query()
	q.Set("language", locale)
	q.Set("format", "detailed")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(audio))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Content-Type", "audio/wav; codecs=audio/pcm; samplerate=16000")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("azure speech api error %d: %s", resp.StatusCode, string(body))
	}

	var result AzureSpeechResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	switch result.RecognitionStatus {
	case "Success":
	case "NoMatch", "InitialSilenceTimeout", "BabbleTimeout":
		// Nothing intelligible: an empty transcript, not an engine failure.
		return &transcription.EngineOutput{Language: language}, nil
	default:
		return nil, fmt.Errorf("azure speech recognition status %q", result.RecognitionStatus)
	}

	out := &transcription.EngineOutput{
		Text:     result.DisplayText,
		Language: language,
	}
	if len(result.NBest) > 0 && result.NBest[0].Confidence > 0 {
		lp := math.Log(result.NBest[0].Confidence)
		out.Segments = []transcription.Segment{{Text: result.DisplayText, AvgLogprob: &lp}}
	}
	return out, nil
}
