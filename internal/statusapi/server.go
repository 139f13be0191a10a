// Package statusapi provides the optional read-only status surface
// named in §6.2: a small HTTP server exposing each lane's current run
// state and a live event stream over SSE. It is a consumer of
// internal/core.StatusPublisher and internal/events.EventBus, never a
// new authority over run state.
package statusapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/core"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/events"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/logging"
)

// Server exposes the status surface over chi, mirroring the teacher's
// own HTTP server shape (internal/api.Server) scaled down to this
// engine's one read-only concern.
type Server struct {
	router    chi.Router
	publisher core.StatusPublisher
	bus       *events.EventBus
	logger    *logging.Logger
}

// New builds a Server. bus may be nil, in which case the SSE endpoint
// responds 503 rather than hanging forever on a nil subscribe.
func New(publisher core.StatusPublisher, bus *events.EventBus, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{publisher: publisher, bus: bus, logger: logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}).Handler)

	r.Get("/runs/{runID}/lanes", s.handleLaneStatus)
	r.Get("/runs/{runID}/events", s.handleEvents)
	r.Get("/healthz", s.handleHealthz)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the status surface on addr. It blocks until the
// server stops or ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
