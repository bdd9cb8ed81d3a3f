package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/semaphore"

	"github.com/dgallion1/docbind/internal/config"
	"github.com/dgallion1/docbind/internal/metrics"
	"github.com/dgallion1/docbind/internal/normalize"
	"github.com/dgallion1/docbind/internal/ocr"
	"github.com/dgallion1/docbind/internal/pipeline"
	"github.com/dgallion1/docbind/internal/raster"
	"github.com/dgallion1/docbind/internal/workspace"
)

// Deps are the components the handlers call into.
type Deps struct {
	Store      *workspace.Store
	Jobs       *pipeline.Orchestrator
	Normalizer *normalize.Normalizer
	Raster     raster.Rasterizer
	OCR        *ocr.Recognizer
	Stats      *metrics.Registry
}

// Server is the HTTP API server for docbind.
type Server struct {
	router  chi.Router
	deps    Deps
	limiter *RateLimiter
	ocrSem  *semaphore.Weighted
	log     *slog.Logger
	cfg     config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	if deps.Stats == nil {
		deps.Stats = metrics.NewRegistry(0)
	}
	s := &Server{
		deps:    deps,
		limiter: NewRateLimiter(cfg.RateLimitEvery, cfg.RateLimitBurst),
		ocrSem:  semaphore.NewWeighted(max(cfg.MaxConcurrentOCR, 1)),
		log:     log,
		cfg:     cfg,
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
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		r.Use(RateLimit(s.limiter))

		r.Post("/api/workspaces", s.handleCreateWorkspace)
		r.Route("/api/workspaces/{wsID}", func(r chi.Router) {
			r.Get("/", s.handleGetWorkspace)
			r.Delete("/", s.handleDeleteWorkspace)

			r.Post("/listings", s.handleAddListing)
			r.Patch("/listings/{listingID}", s.handleUpdateListing)
			r.Delete("/listings/{listingID}", s.handleRemoveListing)
			r.Get("/listings/{listingID}/pages", s.handleListingPages)
			r.Get("/listings/{listingID}/pages/{pageID}", s.handleListingPage)

			r.Post("/documents", s.handleGenerate)
		})

		r.Get("/api/jobs/{jobID}/status", s.handleJobStatus)
		r.Get("/api/jobs/{jobID}/document", s.handleJobDocument)

		r.Post("/api/ocr", s.handleOCR)
		r.Get("/api/stats/render", s.handleRenderStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
