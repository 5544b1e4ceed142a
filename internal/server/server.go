// Package server provides the HTTP API for tategaki.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/tategaki/internal/config"
	"github.com/hyperjump/tategaki/internal/generator"
	"github.com/hyperjump/tategaki/internal/models"
	"github.com/hyperjump/tategaki/internal/storage"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Generator produces a book for a request.
type Generator interface {
	Generate(ctx context.Context, req *models.GenerateRequest) (*generator.Output, error)
}

// WatchService is the subset of the directory watcher the API manages.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the tategaki API.
type Server struct {
	generator  Generator
	storage    storage.Storage
	config     *config.Config
	configMu   sync.Mutex
	configPath string
	watch      WatchService
	schema     *jsonschema.Schema
	limiter    *rate.Limiter
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server with the given dependencies. store and watch may be nil;
// the endpoints that need them then answer 501. When configPath is set, watch directory
// changes are persisted to it.
func NewServer(
	gen Generator,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
	watch WatchService,
	configPath string,
) (*Server, error) {
	schema, err := compileRequestSchema()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		generator:  gen,
		storage:    store,
		config:     cfg,
		configPath: configPath,
		watch:      watch,
		schema:     schema,
		logger:     logger,
	}
	if rl := cfg.Server.RateLimit; rl.RPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(rl.RPS), max(rl.Burst, 1))
	}
	return s, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.config.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.Server.RequestTimeout))
	}
	r.Use(middleware.Compress(5, "application/json"))

	r.With(s.rateLimit).Post("/api/v1/epub", s.handleGenerate)
	r.Get("/api/v1/history", s.handleHistory)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/api/v1/watch/directories", s.handleWatchDirectoriesList)
	r.Post("/api/v1/watch/directories", s.handleWatchDirectoriesAdd)
	r.Delete("/api/v1/watch/directories", s.handleWatchDirectoriesRemove)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
