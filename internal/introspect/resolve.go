package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/leapstack-labs/querytables/pkg/tables"
)

// qualifiedIdentPattern restricts the configurable metadata table to a
// plain, optionally schema-qualified identifier since it is interpolated.
var qualifiedIdentPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// resolveTemplate maps planner relations to table descriptors.
//
// Foreign tables report the dbname option of their foreign server so that
// invalidation targets the database that really owns the data. Identifiers
// come back quoted the way Postgres would need them (quote_ident).
const resolveTemplate = `WITH relations(schema_name, table_name, ord) AS (
	VALUES %s
)
SELECT
	coalesce(
		(SELECT substring(opt FROM '^dbname=(.*)$')
		   FROM unnest(s.srvoptions) AS opt
		  WHERE opt LIKE 'dbname=%%'
		  LIMIT 1),
		current_database()
	) AS dbname,
	quote_ident(n.nspname) AS schema_name,
	quote_ident(c.relname) AS table_name,
	%s AS updated_at
FROM relations r
JOIN pg_catalog.pg_namespace n ON n.nspname = r.schema_name
JOIN pg_catalog.pg_class c ON c.relnamespace = n.oid AND c.relname = r.table_name
LEFT JOIN pg_catalog.pg_foreign_table ft ON ft.ftrelid = c.oid
LEFT JOIN pg_catalog.pg_foreign_server s ON s.oid = ft.ftserver%s
ORDER BY r.ord`

// buildResolveQuery returns the resolution query and its arguments for rels.
func buildResolveQuery(rels []relation, metadataTable string) (string, []any) {
	values := make([]string, 0, len(rels))
	args := make([]any, 0, 2*len(rels))
	for i, rel := range rels {
		values = append(values, fmt.Sprintf("($%d::text, $%d::text, %d)", 2*i+1, 2*i+2, i+1))
		args = append(args, rel.Schema, rel.Name)
	}

	updatedAt := "NULL::timestamptz"
	join := ""
	if metadataTable != "" {
		updatedAt = "m.updated_at"
		join = "\nLEFT JOIN " + metadataTable + " m ON m.tabname = c.oid"
	}

	return fmt.Sprintf(resolveTemplate, strings.Join(values, ", "), updatedAt, join), args
}

// resolve looks up the descriptors of rels, in rels order.
func (i *Introspector) resolve(ctx context.Context, rels []relation) ([]tables.Table, error) {
	query, args := buildResolveQuery(rels, i.opts.MetadataTable)

	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []tables.Table
	for rows.Next() {
		var t tables.Table
		var updatedAt sql.NullTime
		if err := rows.Scan(&t.DBName, &t.SchemaName, &t.TableName, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		if updatedAt.Valid {
			ts := updatedAt.Time.In(time.UTC)
			t.UpdatedAt = &ts
		}
		result = append(result, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	return result, nil
}
