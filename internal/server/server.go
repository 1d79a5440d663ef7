// Package server provides the HTTP API for emotags.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/emotags/internal/applier"
	"github.com/hyperjump/emotags/internal/config"
	"github.com/hyperjump/emotags/internal/models"
	"github.com/hyperjump/emotags/internal/storage"
	"go.uber.org/zap"
)

// WatchService manages watched directories. Implemented by *watcher.Watcher.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// NoteLister lists the notes of the vault. Implemented by *vault.Vault.
type NoteLister interface {
	List(ctx context.Context) ([]*models.Document, error)
	SetRoots(roots []string)
}

// Server is the HTTP server for the emotags API.
type Server struct {
	applier    *applier.Applier
	notes      NoteLister
	journal    storage.Journal
	watch      WatchService
	config     *config.Config
	configPath string
	configMu   sync.Mutex
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server with the given dependencies. watch may be nil, in
// which case the watch endpoints answer 501. configPath may be empty, in which
// case directory changes are not persisted.
func NewServer(
	apl *applier.Applier,
	notes NoteLister,
	journal storage.Journal,
	cfg *config.Config,
	configPath string,
	watch WatchService,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		applier:    apl,
		notes:      notes,
		journal:    journal,
		watch:      watch,
		config:     cfg,
		configPath: configPath,
		logger:     logger,
	}
}

// Routes returns the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/decide", s.handleDecide)
		r.Post("/apply", s.handleApply)
		r.Post("/strip", s.handleStrip)
		r.Get("/renames", s.handleRenames)
		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Address()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
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
