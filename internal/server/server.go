// Package server implements the scribe HTTP API.
//
// Notes are generated over Server-Sent Events: POST /api/notes answers with
// a "snapshot" event for every change of the growing tree (note plus its
// layout), then "done" carrying the stored document id, or "error".
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/scribetree/pkg/layout"
	"github.com/matzehuels/scribetree/pkg/observability"
	"github.com/matzehuels/scribetree/pkg/pipeline"
	"github.com/matzehuels/scribetree/pkg/store"
)

// DefaultMaxUploadBytes bounds uploaded transcript files.
const DefaultMaxUploadBytes = 32 << 20

// Options configures a Server.
type Options struct {
	// Runner generates notes. Without one the generation endpoints answer 503.
	Runner *pipeline.Runner
	// Store keeps generated documents. Defaults to an in-memory store.
	Store store.Store
	// Logger receives request logs.
	Logger *log.Logger
	// Metrics records request metrics and Gatherer backs GET /metrics.
	// Both are optional.
	Metrics  *observability.Prometheus
	Gatherer prometheus.Gatherer
	// Layout is the default layout configuration.
	Layout layout.Options
	// AllowOrigins lists CORS origins; "*" allows any.
	AllowOrigins []string
	// MaxUploadBytes bounds request bodies.
	MaxUploadBytes int64
}

// Server is the HTTP API server for scribe.
type Server struct {
	router chi.Router
	opts   Options
	log    *log.Logger
}

// New creates and configures the HTTP server.
func New(opts Options) *Server {
	if opts.Store == nil {
		opts.Store = store.NewMemory()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	s := &Server{opts: opts, log: opts.Logger}
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
	r.Use(requestLogger(s.log, s.opts.Metrics))
	r.Use(cors(s.opts.AllowOrigins))

	r.Get("/health", s.handleHealth)
	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/layout", s.handleLayout)
		r.Post("/arrange", s.handleArrange)

		r.Route("/notes", func(r chi.Router) {
			r.Post("/", s.handleCreateNotes)
			r.Get("/", s.handleListNotes)
			r.Route("/{docID}", func(r chi.Router) {
				r.Get("/", s.handleGetNotes)
				r.Delete("/", s.handleDeleteNotes)
				r.Get("/layout", s.handleNotesLayout)
				r.Get("/export", s.handleExport)
				r.Post("/expand", s.handleExpand)
			})
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
