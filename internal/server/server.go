// Package server provides the HTTP API for zapdm.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dangill-59/zapdm/internal/config"
	"github.com/dangill-59/zapdm/internal/ingest"
	"github.com/dangill-59/zapdm/internal/ocr"
	"github.com/dangill-59/zapdm/internal/search"
	"github.com/dangill-59/zapdm/internal/storage"
)

// watchService is the slice of the hot-folder watcher the API manages.
// *watcher.Watcher satisfies it.
type watchService interface {
	Directories() []string
	AddDirectory(path string, importExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the zapdm API.
type Server struct {
	pipeline *ingest.Pipeline
	engine   *search.Engine
	ocr      *ocr.Orchestrator
	storage  storage.Storage
	watch    watchService // nil when hot-folder import is disabled
	cfg      *config.Config
	cfgPath  string
	cfgMu    sync.Mutex
	logger   *zap.Logger
	server   *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithWatcher attaches a hot-folder watcher so its roots can be managed over
// the API. cfgPath, when non-empty, is where root changes are persisted.
func WithWatcher(w watchService, cfgPath string) ServerOption {
	return func(s *Server) {
		s.watch = w
		s.cfgPath = cfgPath
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(
	pipeline *ingest.Pipeline,
	engine *search.Engine,
	ocrOrch *ocr.Orchestrator,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...ServerOption,
) *Server {
	s := &Server{
		pipeline: pipeline,
		engine:   engine,
		ocr:      ocrOrch,
		storage:  store,
		cfg:      cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// A large PDF upload or a full OCR reprocess can run for many minutes, so
	// these routes carry no request timeout.
	r.Group(func(r chi.Router) {
		r.Post("/api/v1/documents/{id}/pages", s.handleUploadPages)
		r.Post("/api/v1/documents/{id}/ocr", s.handleReprocessOCR)
		r.Post("/api/v1/index/rebuild", s.handleRebuildIndex)
	})

	timeout := time.Duration(s.cfg.Server.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))

		r.Post("/api/v1/projects", s.handleCreateProject)
		r.Post("/api/v1/documents", s.handleCreateDocument)
		r.Get("/api/v1/documents/{id}", s.handleGetDocument)
		r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
		r.Get("/api/v1/documents/{id}/pages", s.handleListPages)
		r.Post("/api/v1/documents/{id}/reorder", s.handleReorderPages)
		r.Post("/api/v1/documents/{id}/fix-count", s.handleFixPageCount)
		r.Delete("/api/v1/pages/{id}", s.handleDeletePage)
		r.Post("/api/v1/search", s.handleSearch)
		r.Get("/api/v1/status", s.handleStatus)
		r.Get("/api/v1/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/api/v1/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/api/v1/watch/directories", s.handleWatchDirectoriesRemove)
		r.Get("/health", s.handleHealth)
	})

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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
