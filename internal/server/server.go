// Package server provides the HTTP API for Trendlens.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hyperjump/trendlens/internal/config"
	"github.com/hyperjump/trendlens/internal/search"
	"github.com/hyperjump/trendlens/pkg/utils"
)

// Server is the HTTP server for the Trendlens API.
type Server struct {
	search *search.Service
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server answering queries with svc.
func NewServer(svc *search.Service, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		search: svc,
		config: cfg,
		logger: utils.LoggerOrNop(logger),
	}
}

// Handler returns the router with all middleware and routes installed.
func (s *Server) Handler() http.Handler {
	timeout := time.Duration(s.config.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(s.corsOptions()))

	r.Post("/search", s.handleSearch)
	r.Get("/list_collections", s.handleListCollections)
	r.Get("/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// corsOptions allows credentialed requests from the configured origins. A "*"
// entry admits any origin; the request origin is echoed back because browsers
// reject a literal "*" on credentialed responses.
func (s *Server) corsOptions() cors.Options {
	opts := cors.Options{
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodHead, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	for _, origin := range s.config.AllowedOrigins {
		if origin == "*" {
			opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
			continue
		}
		opts.AllowedOrigins = append(opts.AllowedOrigins, origin)
	}
	return opts
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server",
		zap.String("addr", addr),
		zap.String("collection", s.search.Collection()),
		zap.Strings("allowed_origins", s.config.AllowedOrigins))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
