// Package api exposes the extraction and export pipeline over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/docsift/docsift/internal/async"
	"github.com/docsift/docsift/internal/extract"
	"github.com/docsift/docsift/internal/history"
	"github.com/docsift/docsift/internal/templates"
)

// Server is the HTTP API server for docsift.
type Server struct {
	router    chi.Router
	orch      *extract.Orchestrator
	queue     *async.Queue
	board     *extract.Board
	history   history.Store
	templates *templates.Store
	log       *slog.Logger
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *extract.Orchestrator, queue *async.Queue, board *extract.Board, hist history.Store, tmpl *templates.Store, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		orch:      orch,
		queue:     queue,
		board:     board,
		history:   hist,
		templates: tmpl,
		log:       log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Post("/api/extract", s.handleExtract)
	r.Post("/api/extract/batch", s.handleExtractBatch)
	r.Get("/api/extract/{docID}/status", s.handleExtractStatus)

	r.Get("/api/history", s.handleListHistory)
	r.Delete("/api/history", s.handleClearHistory)

	r.Get("/api/templates", s.handleListTemplates)
	r.Post("/api/templates", s.handleSaveTemplate)
	r.Delete("/api/templates/{templateID}", s.handleDeleteTemplate)

	r.Post("/api/export/{format}", s.handleExport)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
