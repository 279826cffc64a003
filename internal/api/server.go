package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/terra-clan/daywise/internal/config"
	"github.com/terra-clan/daywise/internal/health"
	"github.com/terra-clan/daywise/internal/metrics"
	"github.com/terra-clan/daywise/internal/models"
	"github.com/terra-clan/daywise/internal/store"
	"github.com/terra-clan/daywise/internal/templates"
)

// requestTimeout bounds every route except generation and the event stream
const requestTimeout = 60 * time.Second

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	store          *store.Store
	templateLoader *templates.Loader
	health         *health.Registry
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	st *store.Store,
	loader *templates.Loader,
	registry *health.Registry,
	clients []*models.ApiClient,
) *Server {
	s := &Server{
		config:         cfg,
		store:          st,
		templateLoader: loader,
		health:         registry,
		authMiddleware: NewAuthMiddleware(clients),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public endpoints
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		read := s.authMiddleware.RequirePermission(models.PermissionRoadmapsRead)
		write := s.authMiddleware.RequirePermission(models.PermissionRoadmapsWrite)

		// Generation waits on the model and the event stream is long-lived,
		// so neither sits behind the request timeout.
		r.With(write).Post("/roadmaps/generate", s.handleGenerate)
		r.With(read).Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Route("/roadmaps", func(r chi.Router) {
				r.With(read).Get("/", s.handleListRoadmaps)

				r.Route("/{id}", func(r chi.Router) {
					r.With(read).Get("/", s.handleGetRoadmap)
					r.With(write).Delete("/", s.handleDeleteRoadmap)
					r.With(write).Put("/topics/{topicId}/status", s.handleUpdateTopicStatus)
				})
			})

			r.Route("/generation", func(r chi.Router) {
				r.With(read).Get("/", s.handleGetGeneration)
				r.With(write).Delete("/", s.handleResetGeneration)
			})

			r.Route("/templates", func(r chi.Router) {
				r.With(read).Get("/", s.handleListTemplates)
				r.With(read).Get("/{name}", s.handleGetTemplate)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog and records their latency
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(ww.Status()), time.Since(start).Seconds())

			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
