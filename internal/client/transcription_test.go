package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/windfall/vntutor_service/internal/transcription"
)

const verboseJSON = `{
	"task": "transcribe",
	"language": "vi",
	"duration": 1.2,
	"text": " xin chào ",
	"segments": [
		{"id": 0, "start": 0, "end": 0.6, "text": "xin", "avg_logprob": -0.2},
		{"id": 1, "start": 0.6, "end": 1.2, "text": "chào", "avg_logprob": -0.4}
	]
}`

func newWhisperServer(t *testing.T, path string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(verboseJSON))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWhisperCppTranscribe(t *testing.T) {
	var gotFormat, gotLang string
	srv := newWhisperServer(t, "/inference", func(r *http.Request) {
		gotFormat = r.FormValue("response_format")
		gotLang = r.FormValue("language")
	})

	c, err := NewWhisperCppClient(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.Transcribe(context.Background(), []byte("RIFF...."), "vi")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotFormat != "verbose_json" || gotLang != "vi" {
		t.Fatalf("form fields: format=%q language=%q", gotFormat, gotLang)
	}
	if out.Text != " xin chào " {
		t.Fatalf("text = %q", out.Text)
	}
	if len(out.Segments) != 2 || out.Segments[1].AvgLogprob == nil || *out.Segments[1].AvgLogprob != -0.4 {
		t.Fatalf("segments = %+v", out.Segments)
	}
}

func TestWhisperCppEmptyURL(t *testing.T) {
	if _, err := NewWhisperCppClient(""); err == nil {
		t.Fatal("expected error for empty server URL")
	}
}

func TestWhisperCppServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := NewWhisperCppClient(srv.URL)
	_, err := c.Transcribe(context.Background(), []byte("x"), "vi")
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("err = %v", err)
	}
}

func TestAzureWhisperTranscribe(t *testing.T) {
	var gotKey string
	srv := newWhisperServer(t, "/openai/deployments/whisper/audio/transcriptions", func(r *http.Request) {
		gotKey = r.Header.Get("api-key")
	})

	c := NewAzureWhisperClient(srv.URL+"/openai/deployments/whisper/audio/transcriptions", "secret")
	out, err := c.Transcribe(context.Background(), []byte("RIFF"), "vi")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotKey != "secret" {
		t.Fatalf("api-key header = %q", gotKey)
	}
	if out.Language != "vi" || len(out.Segments) != 2 {
		t.Fatalf("out = %+v", out)
	}
}

func TestAzureWhisperRequiresCredentials(t *testing.T) {
	c := NewAzureWhisperClient("", "")
	if _, err := c.Transcribe(context.Background(), []byte("x"), "vi"); err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestOpenAITranscribe(t *testing.T) {
	var gotModel string
	srv := newWhisperServer(t, "/v1/audio/transcriptions", func(r *http.Request) {
		gotModel = r.FormValue("model")
	})

	c := NewOpenAIClient("sk-test", srv.URL+"/v1")
	out, err := c.Transcribe(context.Background(), []byte("RIFF"), "vi")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotModel != "whisper-1" {
		t.Fatalf("model = %q", gotModel)
	}
	if len(out.Segments) != 2 || *out.Segments[0].AvgLogprob != -0.2 {
		t.Fatalf("segments = %+v", out.Segments)
	}
}

func TestGeminiTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":" tôi ở sài gòn \n"}]}}]}`))
	}))
	defer srv.Close()

	c, err := NewGeminiClient(context.Background(), GeminiOptions{APIKey: "test", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.Transcribe(context.Background(), []byte("RIFF"), "vi")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if out.Text != "tôi ở sài gòn" || len(out.Segments) != 0 {
		t.Fatalf("out = %+v", out)
	}
}

func TestLanguageCode(t *testing.T) {
	if got := languageCode("vietnamese", "vi"); got != "vi" {
		t.Fatalf("got %q", got)
	}
	if got := languageCode("en", "vi"); got != "en" {
		t.Fatalf("got %q", got)
	}
}

func TestReadLimited(t *testing.T) {
	if _, err := readLimited(strings.NewReader("abcdef"), 3); err == nil {
		t.Fatal("expected size error")
	}
	data, err := readLimited(strings.NewReader("abc"), 3)
	if err != nil || string(data) != "abc" {
		t.Fatalf("data=%q err=%v", data, err)
	}
}

func TestAzureSpeechTranscribe(t *testing.T) {
	var gotLang, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLang = r.URL.Query().Get("language")
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"RecognitionStatus":"Success","DisplayText":"Xin chào.","NBest":[{"Confidence":0.9,"Lexical":"xin chào","Display":"Xin chào."}]}`))
	}))
	defer srv.Close()

	c := NewAzureSpeechClient("key", "southeastasia").WithBaseURL(srv.URL)
	out, err := c.Transcribe(context.Background(), []byte("RIFF"), "vi")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotLang != "vi-VN" || gotKey != "key" {
		t.Fatalf("language=%q key=%q", gotLang, gotKey)
	}
	if out.Text != "Xin chào." || len(out.Segments) != 1 {
		t.Fatalf("out = %+v", out)
	}
	if got := transcription.Confidence(out.Segments); got != 0.9 {
		t.Fatalf("confidence = %v", got)
	}
}

func TestAzureSpeechNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"RecognitionStatus":"NoMatch"}`))
	}))
	defer srv.Close()

	out, err := NewAzureSpeechClient("key", "x").WithBaseURL(srv.URL).Transcribe(context.Background(), []byte("RIFF"), "vi")
	if err != nil || out.Text != "" {
		t.Fatalf("out=%+v err=%v", out, err)
	}

	if _, err := NewAzureSpeechClient("", "x").Transcribe(context.Background(), []byte("RIFF"), "vi"); err == nil {
		t.Fatal("expected error without key")
	}
}
