package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kvasari/surehash/internal/api/handlers"
	"github.com/kvasari/surehash/internal/scheduler"
)

// Server holds the HTTP status API.
type Server struct {
	addr string
	srv  *http.Server
}

// New wires the status API routes and returns a Server ready to Run.
func New(addr string, db *sql.DB, sched *scheduler.Scheduler, version string) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	statusH := &handlers.StatusHandler{DB: db, Sched: sched, Version: version}
	runsH := &handlers.RunsHandler{DB: db}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", statusH.ServeHTTP)
		r.Get("/runs/{id}", runsH.Get)
	})

	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: r},
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down HTTP server")
		return s.srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
