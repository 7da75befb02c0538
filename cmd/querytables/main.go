// Command querytables reports the tables a SQL query reads and the cache
// attributes derived from them.
package main

import (
	"os"

	"github.com/leapstack-labs/querytables/internal/cli"

	// Register adapters via init()
	_ "github.com/leapstack-labs/querytables/pkg/adapters/postgres"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
