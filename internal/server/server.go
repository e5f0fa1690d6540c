// Package server exposes views over HTTP: snapshot ingestion, layout
// retrieval, interaction endpoints, and a server-sent event stream of
// committed layouts.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mfeltner/lattice/pkg/archive"
	"github.com/mfeltner/lattice/pkg/view"
)

const (
	readHeaderTimeout = 5 * time.Second
	handlerTimeout    = 60 * time.Second
	shutdownGrace     = 10 * time.Second
)

// Options configures a Server.
type Options struct {
	// Addr to listen on, e.g. ":8080".
	Addr string

	// View is the single server-managed view. Required.
	View *view.View

	// Archive receives every accepted snapshot. Nil disables archiving.
	Archive archive.Store

	Logger *log.Logger
}

// ValidateAndSetDefaults checks options and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.View == nil {
		return errors.New("server: view is required")
	}
	if o.Addr == "" {
		o.Addr = ":8080"
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return nil
}

// Server serves the layout API for one view.
type Server struct {
	opts Options
	http *http.Server
}

// New creates a Server with its routes mounted.
func New(opts Options) (*Server, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	s := &Server{opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		// The SSE stream must outlive the handler timeout, so only the
		// plain endpoints get one.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(handlerTimeout))

			r.Post("/snapshot", s.handleSnapshot)
			r.Get("/layout", s.handleLayout)
			r.Post("/groups/{id}/toggle", s.handleToggleGroup)
			r.Post("/aggregates/{id}/expand", s.handleExpandAggregate)
			r.Post("/aggregates/{id}/collapse", s.handleCollapseAggregate)
			r.Post("/retry", s.handleRetry)
			r.Post("/mode", s.handleMode)

			if opts.Archive != nil {
				r.Get("/archive", s.handleArchiveList)
				r.Get("/archive/{id}", s.handleArchiveGet)
			}
		})

		r.Get("/stream", s.handleStream)
	})

	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s, nil
}

// Handler returns the mounted route tree.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// ListenAndServe blocks serving requests until ctx is cancelled or the
// listener fails, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("listening", "addr", s.opts.Addr)
		errc <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
