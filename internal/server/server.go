// Package server provides the HTTP API for Kashf.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/hyperjump/kashf/internal/collection"
	"github.com/hyperjump/kashf/internal/config"
	"github.com/hyperjump/kashf/internal/keyword"
	"github.com/hyperjump/kashf/internal/search"
	"github.com/hyperjump/kashf/internal/storage"
	"github.com/hyperjump/kashf/internal/verses"
	"go.uber.org/zap"
)

// EmbeddingStatus reports whether query embeddings can be requested.
type EmbeddingStatus interface {
	Configured() bool
}

// Deps bundles the components served by the API. Verses, Text, Corpus and
// Embeddings may be nil; the endpoints that need them then answer 503.
type Deps struct {
	Engine      *search.Engine
	Collections *collection.Store
	Verses      storage.VerseStore
	Text        keyword.VerseIndex
	Corpus      *verses.Corpus
	Embeddings  EmbeddingStatus
}

// Server is the HTTP server for the Kashf API.
type Server struct {
	deps    Deps
	config  *config.Config
	version string
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg *config.Config, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		deps:    deps,
		config:  cfg,
		version: version,
		logger:  logger,
	}
}

// Routes returns the API handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/debug", s.handleDebug)
		r.Post("/search", s.handleSearch)
		r.Get("/verses", s.handleVerseRange)
		r.Get("/verses/roots", s.handleRootSearch)
		r.Get("/verses/text", s.handleTextSearch)
		r.Get("/subtitle-range", s.handleSubtitleRange)
		r.Post("/attribution", s.handleAttribution)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
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

const requestIDHeader = "X-Request-ID"

// requestID tags every request with an ID, reusing the caller's when present, and
// exposes it through middleware.GetReqID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
