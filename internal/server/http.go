package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/windfall/vntutor_service/internal/config"
	httphandler "github.com/windfall/vntutor_service/internal/handler/http"
	wshandler "github.com/windfall/vntutor_service/internal/handler/ws"
	"github.com/windfall/vntutor_service/internal/middleware"
	"github.com/windfall/vntutor_service/internal/observe"
)

// Handlers groups the HTTP handlers mounted by NewHTTPServer.
type Handlers struct {
	Health        *httphandler.HealthHandler
	Pronunciation *httphandler.PronunciationHandler
	Accent        *httphandler.AccentHandler
	Transcription *httphandler.TranscriptionHandler
	Phrases       *httphandler.PhraseHandler
	WebSocket     *wshandler.Handler
}

// HTTPServer represents the HTTP server.
type HTTPServer struct {
	server *http.Server
	log    zerolog.Logger
}

// NewHTTPServer creates a new HTTP server. API routes require a bearer
// token only when auth is non-nil.
func NewHTTPServer(
	cfg *config.Config,
	log zerolog.Logger,
	h Handlers,
	auth middleware.TokenValidator,
	hub *WebSocketHub,
	metrics *observe.Metrics,
	metricsHandler http.Handler,
) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:         cfg.HTTPAddress(),
			Handler:      NewRouter(cfg, log, h, auth, hub, metrics, metricsHandler),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

// NewRouter builds the chi router.
func NewRouter(
	cfg *config.Config,
	log zerolog.Logger,
	h Handlers,
	auth middleware.TokenValidator,
	hub *WebSocketHub,
	metrics *observe.Metrics,
	metricsHandler http.Handler,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Metrics(metrics))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORSAllowedHeaders,
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (public)
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)
	r.Get("/live", h.Health.Live)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	protect := func(r chi.Router) {
		if auth != nil {
			r.Use(middleware.Auth(auth))
		}
	}

	// WebSocket (compression breaks the upgrade, so it stays outside Compress)
	if hub != nil && h.WebSocket != nil {
		r.Group(func(r chi.Router) {
			protect(r)
			r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
				hub.HandleWebSocket(w, req, h.WebSocket)
			})
		})
	}

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Compress(5))

		// Public reference data
		r.Get("/model/info", h.Transcription.ModelInfo)
		r.Get("/accent/regions/{region}", h.Accent.Region)
		r.Get("/phrases", h.Phrases.List)

		// Protected endpoints (require JWT when configured)
		r.Group(func(r chi.Router) {
			protect(r)

			r.Post("/transcribe", h.Transcription.Transcribe)

			r.Post("/pronunciation", h.Pronunciation.Assess)
			r.Post("/pronunciation/score", h.Pronunciation.Score)

			// Async pronunciation endpoints (2-step pattern)
			r.Post("/pronunciation/async", h.Pronunciation.Submit)
			r.Get("/pronunciation/result", h.Pronunciation.Result)

			r.Post("/detect-accent", h.Accent.Detect)
		})
	})

	return r
}

// Start starts the HTTP server.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
