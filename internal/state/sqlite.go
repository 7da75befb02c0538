package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/querytables/pkg/tables"
	_ "modernc.org/sqlite" // register "sqlite" driver
)

var errNotOpened = errors.New("database not opened")

// ErrQueryNotFound is returned by GetQuery for unknown fingerprints.
var ErrQueryNotFound = errors.New("query not found")

// SQLiteStore is the invalidation index backed by SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates an unopened store.
// If logger is nil, a discard logger is used.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open connects to the SQLite file at path. ":memory:" opens a private
// in-memory index.
func (s *SQLiteStore) Open(path string) error {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Every connection to ":memory:" is a different database, and SQLite
	// allows a single writer anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	s.logger.Debug("opened invalidation index", slog.String("path", path))
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the path the store was opened with.
func (s *SQLiteStore) Path() string {
	return s.path
}

// RecordQuery stores query and the tables it reads, replacing any earlier
// record of the same query text.
func (s *SQLiteStore) RecordQuery(ctx context.Context, query string, md *tables.Metadata) (*QueryRecord, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if md == nil {
		md = tables.New(nil)
	}

	rec := &QueryRecord{
		ID:           uuid.New().String(),
		Fingerprint:  Fingerprint(query),
		SQL:          query,
		CacheChannel: md.CacheChannel(false),
		RecordedAt:   time.Now().UTC(),
		Tables:       md.Tables(false, false),
	}
	if last := md.LastUpdatedAt(time.Time{}); !last.IsZero() {
		last = last.UTC()
		rec.LastUpdatedAt = &last
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO queries (id, fingerprint, sql, cache_channel, last_updated_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (fingerprint) DO UPDATE SET
			cache_channel = excluded.cache_channel,
			last_updated_at = excluded.last_updated_at,
			recorded_at = excluded.recorded_at
		RETURNING id`,
		rec.ID, rec.Fingerprint, rec.SQL, rec.CacheChannel,
		formatNullTime(rec.LastUpdatedAt), formatTime(rec.RecordedAt),
	).Scan(&rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM query_tables WHERE query_id = ?`, rec.ID); err != nil {
		return nil, fmt.Errorf("failed to clear query tables: %w", err)
	}

	for _, t := range rec.Tables {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO query_tables (query_id, dbname, schema_name, table_name, surrogate_key)
			VALUES (?, ?, ?, ?, ?)`,
			rec.ID, t.DBName, t.SchemaName, t.TableName, tables.SurrogateKey(t),
		); err != nil {
			return nil, fmt.Errorf("failed to insert query table %s: %w", t.QualifiedName(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit query record: %w", err)
	}

	s.logger.Debug("recorded query",
		slog.String("fingerprint", rec.Fingerprint),
		slog.Int("tables", len(rec.Tables)))
	return rec, nil
}

// GetQuery returns the record with the given fingerprint, including its
// tables. It returns ErrQueryNotFound when there is none.
func (s *SQLiteStore) GetQuery(ctx context.Context, fingerprint string) (*QueryRecord, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, fingerprint, sql, cache_channel, last_updated_at, recorded_at
		FROM queries WHERE fingerprint = ?`, fingerprint)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQueryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT dbname, schema_name, table_name
		FROM query_tables WHERE query_id = ?
		ORDER BY rowid`, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get query tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var t tables.Table
		if err := rows.Scan(&t.DBName, &t.SchemaName, &t.TableName); err != nil {
			return nil, fmt.Errorf("failed to scan query table: %w", err)
		}
		rec.Tables = append(rec.Tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating query tables: %w", err)
	}
	return rec, nil
}

// Dependents returns the recorded queries reading the given table, most
// recently recorded first. Names are matched as stored, i.e. quoted the
// way the catalog quotes them.
func (s *SQLiteStore) Dependents(ctx context.Context, dbname, schema, table string) ([]QueryRecord, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.fingerprint, q.sql, q.cache_channel, q.last_updated_at, q.recorded_at
		FROM queries q
		JOIN query_tables qt ON qt.query_id = q.id
		WHERE qt.dbname = ? AND qt.schema_name = ? AND qt.table_name = ?
		ORDER BY q.recorded_at DESC, q.id`, dbname, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get dependents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []QueryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dependent: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dependents: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*QueryRecord, error) {
	var rec QueryRecord
	var lastUpdated sql.NullString
	var recordedAt string
	if err := row.Scan(&rec.ID, &rec.Fingerprint, &rec.SQL, &rec.CacheChannel, &lastUpdated, &recordedAt); err != nil {
		return nil, err
	}

	var err error
	if rec.RecordedAt, err = time.Parse(timeLayout, recordedAt); err != nil {
		return nil, fmt.Errorf("invalid recorded_at %q: %w", recordedAt, err)
	}
	if lastUpdated.Valid {
		ts, err := time.Parse(timeLayout, lastUpdated.String)
		if err != nil {
			return nil, fmt.Errorf("invalid last_updated_at %q: %w", lastUpdated.String, err)
		}
		rec.LastUpdatedAt = &ts
	}
	return &rec, nil
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}
