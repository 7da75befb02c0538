// Package server exposes statement splitting and table introspection over
// HTTP, returning the cache headers a caching proxy needs.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/querytables/internal/state"
	"github.com/leapstack-labs/querytables/pkg/tables"
	"golang.org/x/sync/errgroup"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Introspector resolves the tables a query reads.
type Introspector interface {
	Metadata(ctx context.Context, query string) (*tables.Metadata, error)
}

// Index is the invalidation index the server records queries into.
type Index interface {
	RecordQuery(ctx context.Context, query string, md *tables.Metadata) (*state.QueryRecord, error)
	Dependents(ctx context.Context, dbname, schema, table string) ([]state.QueryRecord, error)
}

// Config holds the server dependencies.
type Config struct {
	Addr         string
	Introspector Introspector
	// Index is optional. Without it queries are not recorded and the
	// dependents endpoint is unavailable.
	Index  Index
	Logger *slog.Logger
}

// Server is the HTTP service.
type Server struct {
	addr     string
	intro    Introspector
	index    Index
	logger   *slog.Logger
	notifier *Notifier
}

// New creates a server. A nil logger discards logs.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		addr:     cfg.Addr,
		intro:    cfg.Introspector,
		index:    cfg.Index,
		logger:   logger,
		notifier: NewNotifier(),
	}
}

// Notifier returns the notifier publishing cache channels of recorded
// queries.
func (s *Server) Notifier() *Notifier {
	return s.notifier
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(s.logger),
		middleware.Recoverer,
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/split", s.handleSplit)
		r.Post("/tables", s.handleTables)
		r.Get("/dependents", s.handleDependents)
		r.Get("/events", s.handleEvents)
	})
	return r
}

// Serve listens on the configured address and blocks until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting server", slog.String("addr", ln.Addr().String()))

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
