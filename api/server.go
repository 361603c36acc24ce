// Package api provides the HTTP server for the census grid: the page, the
// execute/merge endpoints and the webhook receiver.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"census-grid/db"
	"census-grid/i18n"
	"census-grid/internal/master"
	"census-grid/internal/metrics"
)

// Version is reported by /version and /health.
var Version = "0.1.0"

// Server is the HTTP API server
type Server struct {
	service   *master.Service
	source    db.Source
	catalog   *i18n.Catalog
	metrics   *metrics.Recorder
	inbox     *Inbox
	config    *Config
	startedAt time.Time
}

// Config holds server configuration
type Config struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxRequestSize  int64
	CORSOrigins     []string
	DefaultLanguage string
	EnableMerge     bool
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Port:            8050,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		MaxRequestSize:  10 * 1024 * 1024, // 10MB
		CORSOrigins:     []string{"*"},
		DefaultLanguage: i18n.DefaultLanguage,
	}
}

// Option customises a Server.
type Option func(*Server)

// WithSource attaches the census source probed by /ready.
func WithSource(src db.Source) Option {
	return func(s *Server) { s.source = src }
}

// WithMetrics attaches a Prometheus recorder served on /metrics.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Server) { s.metrics = m }
}

// WithCatalog replaces the label catalog.
func WithCatalog(c *i18n.Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

// WithInbox replaces the webhook inbox.
func WithInbox(in *Inbox) Option {
	return func(s *Server) { s.inbox = in }
}

// NewServer creates a new API server
func NewServer(svc *master.Service, config *Config, opts ...Option) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.DefaultLanguage == "" {
		config.DefaultLanguage = i18n.DefaultLanguage
	}
	s := &Server{
		service:   svc,
		config:    config,
		inbox:     NewInbox(DefaultInboxCapacity),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		s.catalog = i18n.MustCatalog()
	}
	return s
}

// Inbox returns the webhook inbox.

// Router builds the HTTP handler with every route and middleware attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(i18n.ContentLanguage(s.config.DefaultLanguage))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	r.Get("/", s.handlePage)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/version", s.handleVersion)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Post("/webhook", s.handleWebhook)
	r.Get("/webhook", s.handleDeliveries)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/execute", s.handleExecute)
		r.Get("/options", s.handleOptions)
		r.Get("/views/{id}", s.handleView)
		r.Post("/merge", s.handleMerge)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.jsonError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// StartWithGracefulShutdown starts server with graceful shutdown handling.
// It returns when ctx is done, on SIGINT/SIGTERM, or when the listener fails.
func (s *Server) StartWithGracefulShutdown(ctx context.Context) error {
	srv := s.newHTTPServer()
	errChan := make(chan error, 1)
	go func() {
		if err := s.listen(srv); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errChan:
		return err
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) newHTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
}

func (s *Server) listen(srv *http.Server) error {
	log.Info().
		Int("port", s.config.Port).
		Str("version", Version).
		Str("default_language", s.config.DefaultLanguage).
		Bool("merge_enabled", s.config.EnableMerge).
		Msg("Starting census grid server")
	return srv.ListenAndServe()
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		allowed := false
		for _, o := range s.config.CORSOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
