package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/pdfdoc"
	"github.com/dgallion1/docsplit/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docsplit.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	pages        *pdfdoc.Counter
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		pages:        &pdfdoc.Counter{FallbackPdfcpu: cfg.PDFFallbackPdfcpu, Log: log},
		log:          log,
		cfg:          cfg,
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

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.DocsplitAPIKey, s.log))

		r.Post("/api/split", s.handleSplit)
		r.Get("/api/split/{jobID}/status", s.handleSplitStatus)
		r.Get("/api/split/{jobID}/files/{name}", s.handleSplitFile)
		r.Post("/api/count", s.handleCount)
		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
