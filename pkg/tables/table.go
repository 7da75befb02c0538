// Package tables models the set of physical tables a query reads and derives
// the cache-control artifacts that depend on it: the cache channel, the
// surrogate keys and the last-updated timestamp.
//
// A Metadata value is built once per query from descriptors that the caller
// has already deduplicated, and is read-only afterwards. All methods are
// safe for concurrent use.
package tables

import "time"

// Table describes one physical table touched by a query.
//
// SchemaName and TableName are kept exactly as introspection returned them,
// including any quoting the identifier needed (e.g. `"sch-ema"`).
type Table struct {
	DBName     string     `json:"dbname" yaml:"dbname"`
	SchemaName string     `json:"schema_name" yaml:"schema_name"`
	TableName  string     `json:"table_name" yaml:"table_name"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Identity is the comparable identity of a table, used to deduplicate
// descriptors gathered from several statements.
type Identity struct {
	DBName     string
	SchemaName string
	TableName  string
}

// Identity returns the (dbname, schema, table) identity of t.
func (t Table) Identity() Identity {
	return Identity{DBName: t.DBName, SchemaName: t.SchemaName, TableName: t.TableName}
}

// QualifiedName returns schema.table as it appears in a cache channel.
func (t Table) QualifiedName() string {
	return t.SchemaName + "." + t.TableName
}

// HasUpdatedAt reports whether the table carries a freshness timestamp.
func (t Table) HasUpdatedAt() bool {
	return t.UpdatedAt != nil
}
