// Package adapter provides the database adapter contract used by query
// introspection.
//
// Concrete adapters live in pkg/adapters/ subdirectories and register
// themselves with the registry in their init() functions.
package adapter

import (
	"context"
	"database/sql"
)

// Config holds configuration for connecting to a database.
type Config struct {
	Type     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Options  map[string]string
}

// Adapter defines the interface that all database adapters must implement.
// Introspection only needs read access: it plans statements and reads
// catalog rows, it never executes user SQL.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error

	// QueryContext executes a statement that returns rows.
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)

	// DialectName returns the SQL dialect of the database.
	DialectName() string
}
