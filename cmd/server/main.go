package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/windfall/vntutor_service/internal/accent"
	"github.com/windfall/vntutor_service/internal/client"
	"github.com/windfall/vntutor_service/internal/config"
	"github.com/windfall/vntutor_service/internal/handler/http"
	"github.com/windfall/vntutor_service/internal/handler/ws"
	"github.com/windfall/vntutor_service/internal/logger"
	"github.com/windfall/vntutor_service/internal/middleware"
	"github.com/windfall/vntutor_service/internal/observe"
	"github.com/windfall/vntutor_service/internal/pronunciation"
	"github.com/windfall/vntutor_service/internal/repository"
	"github.com/windfall/vntutor_service/internal/server"
	"github.com/windfall/vntutor_service/internal/service"
	"github.com/windfall/vntutor_service/internal/transcription"
)

const (
	serviceName    = "vntutor_service"
	serviceVersion = "1.0.0"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("env", cfg.Environment).
		Str("engine", cfg.TranscriptionEngine).
		Msg("Starting " + serviceName)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	provider, err := observe.InitProvider(serviceName, serviceVersion)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Transcription engine
	engine, err := newEngine(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize transcription engine")
	}
	adapter := transcription.NewAdapter(engine, log,
		transcription.WithTimeout(cfg.TranscriptionTimeout),
		transcription.WithDefaultLanguage(cfg.TranscriptionLanguage),
	)
	log.Info().Str("engine", adapter.EngineName()).Msg("Transcription engine initialized")

	// Accent profiles
	classifier, err := newClassifier(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load accent profiles")
	}

	scorer := pronunciation.NewScorer(log)

	// Initialize Redis client (async results)
	var redisClient *client.RedisClient
	if cfg.RedisURL != "" {
		redisClient, err = client.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Redis client, async assessments disabled")
			redisClient = nil
		} else {
			log.Info().Msg("Redis client initialized")
		}
	}

	// Initialize Postgres client (practice phrases)
	var postgresClient *client.PostgresClient
	var phrases repository.PracticePhraseRepository
	if cfg.DatabaseURL != "" {
		postgresClient, err = client.NewPostgresClient(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Postgres client, using built-in phrases")
			postgresClient = nil
		} else {
			phrases = repository.NewPostgresPracticePhraseRepository(postgresClient)
			log.Info().Msg("Postgres client initialized")
		}
	}
	if phrases == nil {
		phrases, err = repository.NewInMemoryPracticePhraseRepository(repository.DefaultPracticePhrases()...)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build built-in phrase catalog")
		}
	}

	// Initialize Cloudflare R2 client (using S3 protocol)
	var cloudflareClient *client.CloudflareClient
	if cfg.R2Enabled() {
		cloudflareClient, err = client.NewCloudflareClient(ctx,
			cfg.CloudflareAccessKeyID,
			cfg.CloudflareSecretKey,
			cfg.CloudflareR2Endpoint,
			cfg.CloudflareBucketName,
			cfg.MaxAudioBytes,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Cloudflare client")
			cloudflareClient = nil
		} else {
			log.Info().Msg("Cloudflare R2 client initialized")
		}
	}

	// Initialize GCS client
	var storageClient *client.StorageClient
	if cfg.GCSEnabled {
		creds, err := cfg.GCSCredentials()
		if err != nil {
			log.Error().Err(err).Msg("Invalid GCS credentials")
		} else if storageClient, err = client.NewStorageClient(ctx, creds, cfg.GCSBucketName, cfg.MaxAudioBytes); err != nil {
			log.Error().Err(err).Msg("Failed to initialize GCS client")
			storageClient = nil
		} else {
			log.Info().Msg("GCS client initialized")
		}
	}

	// Initialize Pub/Sub client (assessment events)
	var pubsubClient *client.PubSubClient
	if cfg.PubSubProjectID != "" && cfg.PubSubTopicID != "" {
		pubsubClient, err = client.NewPubSubClient(ctx, cfg.PubSubProjectID, cfg.PubSubTopicID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Pub/Sub client")
			pubsubClient = nil
		} else {
			log.Info().Str("topic", cfg.PubSubTopicID).Msg("Pub/Sub client initialized")
		}
	}

	// Initialize services
	opts := []service.Option{
		service.WithPhraseRepository(phrases),
		service.WithMetrics(provider.Metrics),
	}
	if cloudflareClient != nil || storageClient != nil {
		opts = append(opts, service.WithAudioSource(newAudioResolver(cloudflareClient, storageClient)))
	}
	if pubsubClient != nil {
		opts = append(opts, service.WithEventPublisher(pubsubClient))
	}
	assessmentService := service.NewAssessmentService(adapter, scorer, classifier, log, opts...)

	var asyncService *service.AsyncService
	if redisClient != nil {
		asyncService = service.NewAsyncService(assessmentService, redisClient, log,
			service.WithResultTTL(cfg.AsyncResultTTL),
			service.WithWaitTimeout(cfg.AsyncWaitTimeout),
			service.WithJobTimeout(cfg.TranscriptionTimeout),
			service.WithAsyncMetrics(provider.Metrics),
		)
	}

	var tokenValidator middleware.TokenValidator
	if cfg.JWTSecret != "" {
		tokenValidator = service.NewAuthService(cfg.JWTSecret)
	} else {
		log.Warn().Msg("JWT_SECRET not set, API routes are unauthenticated")
	}

	// Initialize handlers
	healthHandler := http.NewHealthHandler(serviceName, adapter.EngineName(), adapter)
	if redisClient != nil {
		healthHandler.AddDependency("redis", redisClient)
	}
	if postgresClient != nil {
		healthHandler.AddDependency("postgres", postgresClient)
	}
	handlers := server.Handlers{
		Health:        healthHandler,
		Pronunciation: http.NewPronunciationHandler(log, assessmentService, asyncService, cfg.MaxAudioBytes),
		Accent:        http.NewAccentHandler(log, assessmentService),
		Transcription: http.NewTranscriptionHandler(log, assessmentService, cfg.MaxAudioBytes),
		Phrases:       http.NewPhraseHandler(log, assessmentService),
		WebSocket:     ws.NewHandler(log, assessmentService, cfg.MaxAudioBytes),
	}

	// Initialize servers
	hub := server.NewWebSocketHub(log)
	go hub.Run(ctx)

	httpServer := server.NewHTTPServer(cfg, log, handlers, tokenValidator, hub, provider.Metrics, provider.Handler)
	grpcServer := server.NewGRPCServer(cfg, log)
	grpcServer.SetServing(assessmentService.Ready())

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server error")
			cancel()
		}
	}()
	go func() {
		if err := grpcServer.Start(); err != nil {
			log.Error().Err(err).Msg("gRPC server error")
			cancel()
		}
	}()

	log.Info().
		Str("http_addr", cfg.HTTPAddress()).
		Str("grpc_addr", cfg.GRPCAddress()).
		Msg("Servers started")

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down servers...")
	healthHandler.SetReady(false)
	grpcServer.SetServing(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	grpcServer.GracefulStop()
	cancel()

	// Close clients
	if redisClient != nil {
		redisClient.Close()
	}
	if postgresClient != nil {
		postgresClient.Close()
	}
	if storageClient != nil {
		storageClient.Close()
	}
	if pubsubClient != nil {
		pubsubClient.Close()
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Metrics shutdown error")
	}

	log.Info().Msg("Server stopped")
}

// newEngine builds the transcription engine selected by TRANSCRIPTION_ENGINE.
func newEngine(ctx context.Context, cfg *config.Config) (transcription.Engine, error) {
	switch cfg.TranscriptionEngine {
	case config.EngineOpenAI:
		return client.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL).
			WithModel(cfg.OpenAITranscriptionModel), nil
	case config.EngineAzure:
		return client.NewAzureWhisperClient(cfg.AzureWhisperEndpoint, cfg.AzureWhisperKey), nil
	case config.EngineAzureSpeech:
		return client.NewAzureSpeechClient(cfg.AzureSpeechKey, cfg.AzureSpeechRegion), nil
	case config.EngineWhisperCpp:
		return client.NewWhisperCppClient(cfg.WhisperServerURL)
	case config.EngineGemini:
		c, err := client.NewGeminiClient(ctx, client.GeminiOptions{
			APIKey:    cfg.GeminiAPIKey,
			ProjectID: cfg.GCPProjectID,
			Location:  cfg.GCPLocation,
		})
		if err != nil {
			return nil, err
		}
		return c.WithModel(cfg.GeminiModel), nil
	case config.EngineMock:
		return transcription.NewMockEngine(cfg.MockTranscript), nil
	default:
		return nil, fmt.Errorf("unknown transcription engine %q", cfg.TranscriptionEngine)
	}
}

// newClassifier uses the embedded region profiles unless
// ACCENT_PROFILES_PATH points at a replacement.
func newClassifier(cfg *config.Config, log zerolog.Logger) (*accent.Classifier, error) {
	if cfg.AccentProfilesPath == "" {
		return accent.NewDefault(log)
	}
	profiles, err := accent.LoadProfiles(cfg.AccentProfilesPath)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", cfg.AccentProfilesPath).Msg("Loaded accent profiles")
	return accent.New(profiles, log)
}

// newAudioResolver avoids handing typed-nil clients to the resolver.
func newAudioResolver(r2 *client.CloudflareClient, gcs *client.StorageClient) *service.AudioResolver {
	var (
		r2Reader  service.R2Reader
		gcsReader service.GCSReader
	)
	if r2 != nil {
		r2Reader = r2
	}
	if gcs != nil {
		gcsReader = gcs
	}
	return service.NewAudioResolver(r2Reader, gcsReader)
}
