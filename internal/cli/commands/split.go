package commands

import (
	"github.com/leapstack-labs/querytables/pkg/statements"
	"github.com/spf13/cobra"
)

type splitResult struct {
	Statements []string `json:"statements" yaml:"statements"`
}

// NewSplitCommand creates the split command.
func NewSplitCommand() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "split [SQL]",
		Short: "Split a query into statements",
		Long: `Split a multi-statement query on top-level semicolons.

Semicolons inside single-quoted strings, double-quoted identifiers and
dollar-quoted bodies do not end a statement. Empty statements are dropped.`,
		Example: `  # Split an inline query
  querytables split "SELECT 1; SELECT ';'"

  # Split a file and print JSON
  querytables split --input migration.sql -o json

  # Read from stdin
  cat query.sql | querytables split`,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := readQuery(cmd, args, inputPath)
			if err != nil {
				return err
			}
			return runSplit(NewCommandContext(cmd), query)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Read the query from a file")
	return cmd
}

func runSplit(c *CommandContext, query string) error {
	stmts := statements.Split(query)
	if stmts == nil {
		stmts = []string{}
	}

	if done, err := c.Renderer.Structured(splitResult{Statements: stmts}); done {
		return err
	}

	for _, stmt := range stmts {
		c.Renderer.Printf("%s;\n", stmt)
	}
	return nil
}
