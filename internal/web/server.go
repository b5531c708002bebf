// Package web provides the HTTP API for building geoscience objects.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/geobuild/internal/config"
	"github.com/JonMunkholm/geobuild/internal/metrics"
	"github.com/JonMunkholm/geobuild/internal/service"
	mw "github.com/JonMunkholm/geobuild/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxRequestBody bounds JSON request bodies; source files are read from
// the data directory, never uploaded.
const maxRequestBody = 1 << 20

// Server is the HTTP server for the build API.
type Server struct {
	cfg     *config.Config
	service *service.Service
	metrics *metrics.Recorder
	router  *chi.Mux
	server  *http.Server

	stop context.CancelFunc
}

// NewServer creates a Server. rec may be nil to disable /metrics.
func NewServer(cfg *config.Config, svc *service.Service, rec *metrics.Recorder) *Server {
	ctx, stop := context.WithCancel(context.Background())
	s := &Server{
		cfg:     cfg,
		service: svc,
		metrics: rec,
		router:  chi.NewRouter(),
		stop:    stop,
	}
	s.setupMiddleware(ctx)
	s.setupRoutes(ctx)
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(ctx context.Context) {
	var obs mw.RequestObserver
	if s.metrics != nil {
		obs = s.metrics
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger(obs))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		go limiter.run(ctx)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(ctx context.Context) {
	s.router.Get("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(s.cfg.Security))

		r.Get("/object-types", s.handleObjectTypes)
		r.Post("/preview", s.handlePreview)

		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				builds := newRateLimiter(s.cfg.Rate.BuildLimit, time.Minute)
				go builds.run(ctx)
				r.Use(builds.middleware)
			}
			r.Post("/build", s.handleBuild)
		})

		r.Get("/builds", s.handleListBuilds)
		r.Get("/builds/status", s.handleBuildStatus)
		r.Get("/objects", s.handleListObjects)
		r.Get("/objects/*", s.handleGetObject)
	})
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
