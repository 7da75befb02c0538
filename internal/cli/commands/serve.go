package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/querytables/internal/server"
	"github.com/spf13/cobra"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	Listen   string
	NoRecord bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Long: `Serve statement splitting and table introspection over HTTP.

Routes:
  POST /v1/split        split the SQL body into statements
  POST /v1/tables       introspect the SQL body; sets X-Cache-Channel,
                        Surrogate-Key and Last-Modified
  GET  /v1/dependents   recorded queries reading ?dbname=&schema=&table=
  GET  /v1/events       server-sent cache channels of recorded queries
  GET  /healthz`,
		Example: `  querytables serve --listen :8080
  querytables serve --no-record --database gis`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, NewCommandContext(cmd), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "Address to listen on (default from server.listen)")
	cmd.Flags().BoolVar(&opts.NoRecord, "no-record", false, "Do not record queries in the invalidation index")

	return cmd
}

func runServe(ctx context.Context, c *CommandContext, opts *ServeOptions) error {
	db, err := c.ConnectTarget(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	in, err := c.NewIntrospector(db)
	if err != nil {
		return err
	}

	addr := c.Cfg.Server.Listen
	if opts.Listen != "" {
		addr = opts.Listen
	}

	cfg := server.Config{
		Addr:         addr,
		Introspector: in,
		Logger:       c.Logger,
	}
	if c.Cfg.Server.Record && !opts.NoRecord {
		index, err := c.OpenIndex(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = index.Close() }()
		cfg.Index = index
		c.Logger.Info("recording queries", slog.String("index", c.Cfg.StatePath))
	}

	return server.New(cfg).Serve(ctx)
}
