// Package introspect determines which physical tables a SQL query reads.
//
// Each statement of the query is planned with EXPLAIN (never executed), the
// scanned relations are read from the plan, and the catalog is asked for
// their database, quoted names and last modification time. Results of all
// statements are merged into a single tables.Metadata.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/querytables/pkg/statements"
	"github.com/leapstack-labs/querytables/pkg/tables"
	"github.com/leapstack-labs/querytables/pkg/tokens"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds how many statements are planned at once.
const DefaultConcurrency = 4

// Querier runs read-only catalog queries. *sql.DB and adapter.Adapter
// satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Options configures an Introspector.
type Options struct {
	// MetadataTable is a table keyed by regclass (column tabname) holding an
	// updated_at timestamptz per table, e.g. cartodb.cdb_tablemetadata.
	// Empty means freshness is unknown for every table.
	MetadataTable string

	// Concurrency bounds parallel statement planning. Zero uses DefaultConcurrency.
	Concurrency int

	// TokenValues replace renderer tokens before planning. The zero value
	// uses tokens.DefaultValues().
	TokenValues tokens.Values
}

// Introspector finds the tables read by SQL queries.
type Introspector struct {
	db     Querier
	opts   Options
	logger *slog.Logger
}

// New creates an Introspector over db.
// If logger is nil, a discard logger is used.
func New(db Querier, opts Options, logger *slog.Logger) (*Introspector, error) {
	if opts.MetadataTable != "" && !qualifiedIdentPattern.MatchString(opts.MetadataTable) {
		return nil, fmt.Errorf("invalid metadata table %q: expected [schema.]table", opts.MetadataTable)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.TokenValues == (tokens.Values{}) {
		opts.TokenValues = tokens.DefaultValues()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Introspector{db: db, opts: opts, logger: logger}, nil
}

// Metadata returns the table metadata model for query.
func (i *Introspector) Metadata(ctx context.Context, query string) (*tables.Metadata, error) {
	found, err := i.Tables(ctx, query)
	if err != nil {
		return nil, err
	}
	return tables.New(found), nil
}

// Tables returns the tables read by query, deduplicated by
// (dbname, schema, table) and in first-seen order across statements.
//
// Any database error aborts the whole query; partial results are never
// returned.
func (i *Introspector) Tables(ctx context.Context, query string) ([]tables.Table, error) {
	stmts := statements.Split(query)
	if len(stmts) == 0 {
		return nil, nil
	}

	perStatement := make([][]tables.Table, len(stmts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.opts.Concurrency)
	for idx, stmt := range stmts {
		g.Go(func() error {
			found, err := i.statementTables(gctx, stmt)
			if err != nil {
				return fmt.Errorf("statement %d: %w", idx+1, err)
			}
			perStatement[idx] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := Merge(perStatement...)
	i.logger.Debug("introspected query",
		slog.Int("statements", len(stmts)),
		slog.Int("tables", len(merged)))
	return merged, nil
}

// Merge concatenates per-statement results, keeping only the first
// occurrence of each table identity.
func Merge(perStatement ...[]tables.Table) []tables.Table {
	var merged []tables.Table
	seen := make(map[tables.Identity]bool)
	for _, found := range perStatement {
		for _, t := range found {
			id := t.Identity()
			if seen[id] {
				continue
			}
			seen[id] = true
			merged = append(merged, t)
		}
	}
	return merged
}

// statementTables plans a single statement and resolves its relations.
func (i *Introspector) statementTables(ctx context.Context, stmt string) ([]tables.Table, error) {
	if tokens.HasTokens(stmt) {
		i.logger.Debug("replacing renderer tokens", slog.Any("tokens", tokens.Find(stmt)))
		stmt = tokens.Replace(stmt, i.opts.TokenValues)
	}

	plan, err := i.explain(ctx, stmt)
	if err != nil {
		return nil, err
	}

	rels, err := parsePlanRelations(plan)
	if err != nil {
		return nil, err
	}
	if len(rels) == 0 {
		return nil, nil
	}

	return i.resolve(ctx, rels)
}

// explain returns the raw JSON plan of stmt.
func (i *Introspector) explain(ctx context.Context, stmt string) ([]byte, error) {
	rows, err := i.db.QueryContext(ctx, "EXPLAIN (FORMAT JSON, VERBOSE) "+stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to explain statement: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var plan []byte
	if rows.Next() {
		if err := rows.Scan(&plan); err != nil {
			return nil, fmt.Errorf("failed to scan query plan: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading query plan: %w", err)
	}
	if plan == nil {
		return nil, fmt.Errorf("failed to explain statement: empty plan")
	}
	return plan, nil
}
