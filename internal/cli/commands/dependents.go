package commands

import (
	"context"
	"strings"
	"time"

	"github.com/leapstack-labs/querytables/internal/state"
	"github.com/spf13/cobra"
)

const sqlPreviewLength = 60

type dependentsResult struct {
	Queries []state.QueryRecord `json:"queries" yaml:"queries"`
}

// NewDependentsCommand creates the dependents command.
func NewDependentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dependents <dbname> <schema> <table>",
		Short: "List recorded queries that read a table",
		Long: `List the queries in the invalidation index that read a table, most recent
first. These are the cache entries to purge when the table changes.`,
		Example: `  querytables dependents db1 public tableone
  querytables dependents db1 public tableone -o json`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDependents(cmd.Context(), NewCommandContext(cmd), args[0], args[1], args[2])
		},
	}
}

func runDependents(ctx context.Context, c *CommandContext, dbname, schema, table string) error {
	index, err := c.OpenIndex(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = index.Close() }()

	records, err := index.Dependents(ctx, dbname, schema, table)
	if err != nil {
		return err
	}
	if records == nil {
		records = []state.QueryRecord{}
	}

	if done, err := c.Renderer.Structured(dependentsResult{Queries: records}); done {
		return err
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.Fingerprint[:12],
			rec.RecordedAt.Format(time.RFC3339),
			rec.CacheChannel,
			preview(rec.SQL),
		})
	}
	c.Renderer.Table([]string{"fingerprint", "recorded at", "cache channel", "sql"}, rows)
	return nil
}

// preview collapses whitespace and truncates sql for table display.
func preview(sql string) string {
	s := []rune(strings.Join(strings.Fields(sql), " "))
	if len(s) <= sqlPreviewLength {
		return string(s)
	}
	return string(s[:sqlPreviewLength-3]) + "..."
}
