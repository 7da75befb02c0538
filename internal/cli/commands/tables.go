package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/querytables/pkg/tables"
	"github.com/spf13/cobra"
)

// TablesOptions holds flags for the tables command.
type TablesOptions struct {
	Input            string
	SkipNotUpdatedAt bool
	SkipAnalysis     bool
	Record           bool
}

type tablesResult struct {
	CacheChannel  string         `json:"cache_channel" yaml:"cache_channel"`
	SurrogateKeys []string       `json:"surrogate_keys" yaml:"surrogate_keys"`
	LastUpdatedAt *time.Time     `json:"last_updated_at,omitempty" yaml:"last_updated_at,omitempty"`
	Tables        []tables.Table `json:"tables" yaml:"tables"`
	Fingerprint   string         `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
}

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	opts := &TablesOptions{}

	cmd := &cobra.Command{
		Use:   "tables [SQL]",
		Short: "List the tables a query reads",
		Long: `Plan every statement of a query against the target database (it is never
executed) and report the physical tables it reads, with the cache channel,
surrogate keys and last modification time derived from them.`,
		Example: `  # Inspect an inline query
  querytables tables "SELECT * FROM parcels p JOIN zones z USING (zone_id)"

  # Ignore tables without a known modification time
  querytables tables --skip-not-updated-at --input query.sql

  # Record the query in the invalidation index
  querytables tables --record "TABLE parcels"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := readQuery(cmd, args, opts.Input)
			if err != nil {
				return err
			}
			return runTables(cmd.Context(), NewCommandContext(cmd), query, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read the query from a file")
	cmd.Flags().BoolVar(&opts.SkipNotUpdatedAt, "skip-not-updated-at", false, "Ignore tables without a modification time")
	cmd.Flags().BoolVar(&opts.SkipAnalysis, "skip-analysis", false, "Hide generated analysis tables from the table list")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "Store the query in the invalidation index")

	return cmd
}

func runTables(ctx context.Context, c *CommandContext, query string, opts *TablesOptions) error {
	db, err := c.ConnectTarget(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	in, err := c.NewIntrospector(db)
	if err != nil {
		return err
	}

	md, err := in.Metadata(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to introspect query: %w", err)
	}

	res := tablesResult{
		CacheChannel:  md.CacheChannel(opts.SkipNotUpdatedAt),
		SurrogateKeys: md.Key(opts.SkipNotUpdatedAt),
		Tables:        md.Tables(opts.SkipNotUpdatedAt, opts.SkipAnalysis),
	}
	if res.Tables == nil {
		res.Tables = []tables.Table{}
	}
	if last := md.LastUpdatedAt(time.Time{}); !last.IsZero() {
		res.LastUpdatedAt = &last
	}

	if opts.Record {
		index, err := c.OpenIndex(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = index.Close() }()

		rec, err := index.RecordQuery(ctx, query, md)
		if err != nil {
			return err
		}
		res.Fingerprint = rec.Fingerprint
		c.Logger.Info("recorded query", slog.String("fingerprint", rec.Fingerprint), slog.String("index", c.Cfg.StatePath))
	}

	if done, err := c.Renderer.Structured(res); done {
		return err
	}
	renderTablesText(c, res)
	return nil
}

func renderTablesText(c *CommandContext, res tablesResult) {
	rows := make([][]string, 0, len(res.Tables))
	for _, t := range res.Tables {
		updated := "-"
		if t.UpdatedAt != nil {
			updated = t.UpdatedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []string{t.DBName, t.QualifiedName(), updated, tables.SurrogateKey(t)})
	}
	c.Renderer.Table([]string{"dbname", "table", "updated at", "key"}, rows)
	c.Renderer.Println()

	last := "-"
	if res.LastUpdatedAt != nil {
		last = res.LastUpdatedAt.UTC().Format(time.RFC3339)
	}
	pairs := [][2]string{
		{"cache channel", orDash(res.CacheChannel)},
		{"surrogate keys", orDash(strings.Join(res.SurrogateKeys, " "))},
		{"last updated", last},
	}
	if res.Fingerprint != "" {
		pairs = append(pairs, [2]string{"fingerprint", res.Fingerprint})
	}
	c.Renderer.KeyValues(pairs)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
