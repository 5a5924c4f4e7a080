// Package server is the HTTP surface: the deploy API on the control
// plane and Host-header multiplexing of published tenant sites.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"deployerdock/internal/config"
	"deployerdock/internal/history"
	"deployerdock/internal/site"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// HTTP server timeouts. There is deliberately no write timeout:
	// a deploy request holds its response open for the whole
	// clone+build+publish, which can take minutes.
	HTTPReadHeaderTimeout = 10 * time.Second
	HTTPIdleTimeout       = 60 * time.Second

	// Rate limiting - deploy requests per minute per IP
	DeployRateLimit = 6
)

// Deployer runs one deployment and returns the slug it published
// under. Satisfied by *pipeline.Pipeline; tests substitute stubs.
type Deployer interface {
	Deploy(ctx context.Context, sourceURL string) (string, error)
}

// Server represents the HTTP server
type Server struct {
	Config   *config.Config
	Sites    *site.Registry
	Pipeline Deployer
	History  *history.History
	Logger   *slog.Logger
	TestMode bool
}

// NewServer creates a new server instance. History may be nil (test
// mode); deploys then go unrecorded.
func NewServer(cfg *config.Config, sites *site.Registry, deployer Deployer, hist *history.History, logger *slog.Logger, testMode bool) *Server {
	return &Server{
		Config:   cfg,
		Sites:    sites,
		Pipeline: deployer,
		History:  hist,
		Logger:   logger,
		TestMode: testMode,
	}
}

// Router creates and configures the HTTP router
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				s.Logger.Info("http_request",
					"method", r.Method,
					"host", r.Host,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds())
			}()

			next.ServeHTTP(ww, r)
		})
	})

	// Host-header demux: GETs for tenant subdomains never reach the
	// control-plane routes below.
	r.Use(s.VHost)

	// Control-plane routes
	if !s.TestMode {
		r.With(NewDeployRateLimitMiddleware(DeployRateLimit, s.Logger)).Post("/api/deploy", s.HandleDeploy)
	} else {
		r.Post("/api/deploy", s.HandleDeploy)
	}
	r.Get("/api/health", s.HandleHealth)
	r.Get("/api/history", s.HandleHistory)
	r.Get("/*", s.HandleControlPlane)

	return r
}

// Start starts the HTTP server
func (s *Server) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.Logger.Info("Starting server", "addr", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: HTTPReadHeaderTimeout,
		IdleTimeout:       HTTPIdleTimeout,
	}

	return server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.History != nil {
		return s.History.Close()
	}
	return nil
}
