// Package api provides HTTP handlers and the main API server logic for DraftPipe.
//
// It exposes RESTful endpoints for drafting emails and for managing the
// template and profile stores backing the workflow.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/DraftPipe/internal/store"
	"github.com/BTreeMap/DraftPipe/internal/workflow"
)

// Opts holds configuration for the API server.
type Opts struct {
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address for the HTTP server.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// Server hosts the HTTP API on top of the drafting workflow and its store.
type Server struct {
	wf   *workflow.Workflow
	st   store.Store
	addr string
	srv  *http.Server
}

// NewServer creates an API server around the given workflow and store.
func NewServer(wf *workflow.Workflow, st store.Store, opts ...Option) *Server {
	o := Opts{Addr: ":8080"}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{wf: wf, st: st, addr: o.Addr}
}

// Handler builds the request mux. Exposed separately so tests can drive
// handlers without a listening socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/draft", s.draftHandler)
	mux.HandleFunc("/templates", s.templatesHandler)
	mux.HandleFunc("/profiles", s.profilesHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the listener fails.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API server listening", "addr", s.addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("Server.Run: shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down API server: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	}
}
