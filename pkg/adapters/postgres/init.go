package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/querytables/pkg/adapter"
)

// Importing this package registers the PostgreSQL adapter:
//
//	import _ "github.com/leapstack-labs/querytables/pkg/adapters/postgres"
func init() {
	adapter.Register("postgres", func(logger *slog.Logger) adapter.Adapter { return New(logger) }, "postgresql", "pg")
}
