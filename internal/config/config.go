package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Supported transcription engines.
const (
	EngineOpenAI      = "openai"
	EngineAzure       = "azure"
	EngineAzureSpeech = "azurespeech"
	EngineWhisperCpp  = "whispercpp"
	EngineGemini      = "gemini"
	EngineMock        = "mock"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Host     string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	HTTPPort int    `envconfig:"SERVER_HTTP_PORT" default:"8080"`
	GRPCPort int    `envconfig:"SERVER_GRPC_PORT" default:"9090"`

	Environment string `envconfig:"SERVER_ENV" default:"development"`

	// Timeouts
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Transcription
	TranscriptionEngine   string        `envconfig:"TRANSCRIPTION_ENGINE" default:"openai"`
	TranscriptionLanguage string        `envconfig:"TRANSCRIPTION_LANGUAGE" default:"vi"`
	TranscriptionTimeout  time.Duration `envconfig:"TRANSCRIPTION_TIMEOUT" default:"30s"`
	MaxAudioBytes         int64         `envconfig:"MAX_AUDIO_BYTES" default:"26214400"`

	// OpenAI (or any OpenAI-compatible whisper server)
	OpenAIAPIKey             string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL            string `envconfig:"OPENAI_BASE_URL"`
	OpenAITranscriptionModel string `envconfig:"OPENAI_TRANSCRIPTION_MODEL" default:"whisper-1"`

	// Azure OpenAI Whisper
	AzureWhisperEndpoint string `envconfig:"AZURE_WHISPER_ENDPOINT"`
	AzureWhisperKey      string `envconfig:"AZURE_WHISPER_KEY"`

	// Azure AI Speech (short-audio REST)
	AzureSpeechKey    string `envconfig:"AZURE_SPEECH_KEY"`
	AzureSpeechRegion string `envconfig:"AZURE_SPEECH_REGION" default:"southeastasia"`

	// whisper.cpp server
	WhisperServerURL string `envconfig:"WHISPER_SERVER_URL"`

	// Gemini
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	GCPProjectID string `envconfig:"GCP_PROJECT_ID"`
	GCPLocation  string `envconfig:"GCP_LOCATION" default:"asia-southeast1"`

	// Mock engine transcript
	MockTranscript string `envconfig:"MOCK_TRANSCRIPT" default:"xin chào"`

	// Accent profiles override (YAML)
	AccentProfilesPath string `envconfig:"ACCENT_PROFILES_PATH"`

	// Redis (async results)
	RedisURL         string        `envconfig:"REDIS_URL"`
	AsyncResultTTL   time.Duration `envconfig:"ASYNC_RESULT_TTL" default:"60s"`
	AsyncWaitTimeout time.Duration `envconfig:"ASYNC_WAIT_TIMEOUT" default:"10s"`

	// Database (practice phrase catalog)
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`

	// Cloudflare R2
	CloudflareAccessKeyID string `envconfig:"CLOUDFLARE_ACCESS_KEY_ID"`
	CloudflareSecretKey   string `envconfig:"CLOUDFLARE_SECRET_ACCESS_KEY"`
	CloudflareR2Endpoint  string `envconfig:"CLOUDFLARE_R2_ENDPOINT"`
	CloudflareBucketName  string `envconfig:"CLOUDFLARE_BUCKET_NAME"`

	// Google Cloud Storage
	GCSEnabled           bool   `envconfig:"GCS_ENABLED" default:"false"`
	GCSBucketName        string `envconfig:"GCS_BUCKET_NAME"`
	GCSCredentialsBase64 string `envconfig:"GCS_CREDENTIALS_BASE64"`

	// Pub/Sub (assessment events)
	PubSubProjectID string `envconfig:"PUBSUB_PROJECT_ID"`
	PubSubTopicID   string `envconfig:"PUBSUB_TOPIC_ID"`

	// Auth
	JWTSecret string `envconfig:"JWT_SECRET"`

	// CORS
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	CORSAllowedMethods []string `envconfig:"CORS_ALLOWED_METHODS" default:"GET,POST,OPTIONS"`
	CORSAllowedHeaders []string `envconfig:"CORS_ALLOWED_HEADERS" default:"Accept,Authorization,Content-Type,X-Request-ID"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	cfg.TranscriptionEngine = strings.ToLower(strings.TrimSpace(cfg.TranscriptionEngine))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected engine has what it needs.
func (c *Config) Validate() error {
	switch c.TranscriptionEngine {
	case EngineOpenAI:
		if c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
			return fmt.Errorf("engine %q requires OPENAI_API_KEY or OPENAI_BASE_URL", c.TranscriptionEngine)
		}
	case EngineAzure:
		if c.AzureWhisperEndpoint == "" || c.AzureWhisperKey == "" {
			return fmt.Errorf("engine %q requires AZURE_WHISPER_ENDPOINT and AZURE_WHISPER_KEY", c.TranscriptionEngine)
		}
	case EngineAzureSpeech:
		if c.AzureSpeechKey == "" || c.AzureSpeechRegion == "" {
			return fmt.Errorf("engine %q requires AZURE_SPEECH_KEY and AZURE_SPEECH_REGION", c.TranscriptionEngine)
		}
	case EngineWhisperCpp:
		if c.WhisperServerURL == "" {
			return fmt.Errorf("engine %q requires WHISPER_SERVER_URL", c.TranscriptionEngine)
		}
	case EngineGemini:
		if c.GeminiAPIKey == "" && c.GCPProjectID == "" {
			return fmt.Errorf("engine %q requires GEMINI_API_KEY or GCP_PROJECT_ID", c.TranscriptionEngine)
		}
	case EngineMock:
	default:
		return fmt.Errorf("unknown TRANSCRIPTION_ENGINE %q", c.TranscriptionEngine)
	}
	if c.TranscriptionTimeout <= 0 {
		return fmt.Errorf("TRANSCRIPTION_TIMEOUT must be positive")
	}
	if c.GCSEnabled && c.GCSBucketName == "" {
		return fmt.Errorf("GCS_ENABLED requires GCS_BUCKET_NAME")
	}
	return nil
}

// HTTPAddress returns the HTTP server address.
func (c *Config) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// GRPCAddress returns the gRPC server address.
func (c *Config) GRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// R2Enabled reports whether Cloudflare R2 audio references can be resolved.
func (c *Config) R2Enabled() bool {
	return c.CloudflareR2Endpoint != "" && c.CloudflareBucketName != "" && c.CloudflareAccessKeyID != ""
}

// GCSCredentials decodes GCS_CREDENTIALS_BASE64. Nil means application
// default credentials.
func (c *Config) GCSCredentials() ([]byte, error) {
	if c.GCSCredentialsBase64 == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(c.GCSCredentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("invalid GCS_CREDENTIALS_BASE64: %w", err)
	}
	return data, nil
}
