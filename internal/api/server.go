// Package api provides the HTTP API server and handlers for markertrack.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/listenupapp/markertrack/internal/ratelimit"
	"github.com/listenupapp/markertrack/internal/session"
	"github.com/listenupapp/markertrack/internal/sse"
)

// Options configures the middleware stack.
type Options struct {
	CORSOrigins []string
	// RateLimit is requests per second per client IP. Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	sessions   *session.Manager
	sseManager *sse.Manager
	sseHandler *sse.Handler
	limiter    *ratelimit.KeyedRateLimiter
	router     *chi.Mux
	api        huma.API
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(sessions *session.Manager, sseManager *sse.Manager, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		sessions:   sessions,
		sseManager: sseManager,
		sseHandler: sse.NewHandler(sseManager, sessions.Exists, logger),
		router:     chi.NewRouter(),
		logger:     logger,
	}
	if opts.RateLimit > 0 {
		s.limiter = ratelimit.New(opts.RateLimit, max(opts.RateBurst, 1))
	}

	s.setupMiddleware(opts)

	s.api = humachi.New(s.router, newConfig())
	RegisterErrorHandler()

	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases the rate limiter.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// setupMiddleware configures middleware stack. chi requires it before any route.
func (s *Server) setupMiddleware(opts Options) {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))
	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
	}
}

// setupRoutes registers the huma operations and the event streams.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerSessionRoutes()
	s.registerMarkerRoutes()
	s.registerPlaybackRoutes()

	// Event streams are long-lived and written by the sse package directly.
	s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
	s.router.Get("/api/v1/sessions/{id}/events", s.sseHandler.ServeHTTP)
}
