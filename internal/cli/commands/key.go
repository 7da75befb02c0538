package commands

import (
	"github.com/leapstack-labs/querytables/pkg/tables"
	"github.com/spf13/cobra"
)

type keyResult struct {
	Table string `json:"table" yaml:"table"`
	Key   string `json:"key" yaml:"key"`
}

// NewKeyCommand creates the key command.
func NewKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "key <dbname> <schema> <table>",
		Short: "Print the surrogate key of a table",
		Long: `Print the surrogate key a cache uses to purge entries that depend on a table.

Names are hashed verbatim: pass them quoted the way the catalog quotes them
(e.g. '"sch-ema"').`,
		Example: `  querytables key db1 public tableone
  querytables key db1 '"sch-ema"' tableone`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKey(NewCommandContext(cmd), tables.Table{
				DBName:     args[0],
				SchemaName: args[1],
				TableName:  args[2],
			})
		},
	}
}

func runKey(c *CommandContext, t tables.Table) error {
	res := keyResult{Table: t.DBName + ":" + t.QualifiedName(), Key: tables.SurrogateKey(t)}
	if done, err := c.Renderer.Structured(res); done {
		return err
	}
	c.Renderer.Println(res.Key)
	return nil
}
