package rowstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresStore keeps every collection in a single sheet_rows table keyed by
// (collection, row_index), with cells as a text array. Row indices are
// maintained dense and 1-based; deletes shift subsequent rows down, matching
// the tabular-store contract.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore constructs a Postgres-backed row store.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the backing tables.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS sheet_headers (
	collection TEXT PRIMARY KEY,
	headers    TEXT[] NOT NULL
);
CREATE TABLE IF NOT EXISTS sheet_rows (
	collection TEXT NOT NULL,
	row_index  INT  NOT NULL,
	cells      TEXT[] NOT NULL,
	PRIMARY KEY (collection, row_index) DEFERRABLE INITIALLY DEFERRED
);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate row store: %w", err)
	}
	return nil
}

// EnsureCollection registers the collection header. Idempotent; re-running
// re-establishes the fixed header without touching data rows.
func (s *PostgresStore) EnsureCollection(ctx context.Context, collection string) error {
	headers, ok := Headers[collection]
	if !ok {
		return fmt.Errorf("unknown collection %q", collection)
	}
	const query = `INSERT INTO sheet_headers (collection, headers) VALUES ($1, $2)
		ON CONFLICT (collection) DO UPDATE SET headers = EXCLUDED.headers`
	if _, err := s.db.ExecContext(ctx, query, collection, pq.Array(headers)); err != nil {
		return fmt.Errorf("ensure collection %s: %w", collection, err)
	}
	return nil
}

// ListRows returns all data rows ordered by row index.
func (s *PostgresStore) ListRows(ctx context.Context, collection string) ([][]string, error) {
	const query = `SELECT cells FROM sheet_rows WHERE collection = $1 ORDER BY row_index`
	rows, err := s.db.QueryxContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("list rows %s: %w", collection, err)
	}
	defer rows.Close()

	var result [][]string
	for rows.Next() {
		var cells pq.StringArray
		if err := rows.Scan(&cells); err != nil {
			return nil, fmt.Errorf("scan row %s: %w", collection, err)
		}
		result = append(result, []string(cells))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rows %s: %w", collection, err)
	}
	return result, nil
}

// AppendRow inserts after the last row. Callers serialize appends through the
// advisory write lock, so the max-plus-one index is not racy in practice.
func (s *PostgresStore) AppendRow(ctx context.Context, collection string, row []string) error {
	const query = `INSERT INTO sheet_rows (collection, row_index, cells)
		SELECT $1, COALESCE(MAX(row_index), 0) + 1, $2 FROM sheet_rows WHERE collection = $1`
	if _, err := s.db.ExecContext(ctx, query, collection, pq.Array(row)); err != nil {
		return fmt.Errorf("append row %s: %w", collection, err)
	}
	return nil
}

// WriteCell overwrites one cell.
func (s *PostgresStore) WriteCell(ctx context.Context, collection string, rowIndex, columnIndex int, value string) error {
	const query = `UPDATE sheet_rows SET cells[$3] = $4 WHERE collection = $1 AND row_index = $2`
	res, err := s.db.ExecContext(ctx, query, collection, rowIndex, columnIndex, value)
	if err != nil {
		return fmt.Errorf("write cell %s[%d,%d]: %w", collection, rowIndex, columnIndex, err)
	}
	return checkRowHit(res, collection, rowIndex)
}

// WriteRange overwrites a contiguous run of columns in a single statement.
func (s *PostgresStore) WriteRange(ctx context.Context, collection string, rowIndex, columnStart int, values []string) error {
	const query = `UPDATE sheet_rows
		SET cells = cells[1:$3-1] || $4::text[] || cells[$3+cardinality($4::text[]):cardinality(cells)]
		WHERE collection = $1 AND row_index = $2`
	res, err := s.db.ExecContext(ctx, query, collection, rowIndex, columnStart, pq.Array(values))
	if err != nil {
		return fmt.Errorf("write range %s[%d,%d..]: %w", collection, rowIndex, columnStart, err)
	}
	return checkRowHit(res, collection, rowIndex)
}

// DeleteRow removes the row and shifts subsequent indices down by one.
func (s *PostgresStore) DeleteRow(ctx context.Context, collection string, rowIndex int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete row %s[%d]: %w", collection, rowIndex, err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM sheet_rows WHERE collection = $1 AND row_index = $2`, collection, rowIndex)
	if err != nil {
		return fmt.Errorf("delete row %s[%d]: %w", collection, rowIndex, err)
	}
	if err := checkRowHit(res, collection, rowIndex); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE sheet_rows SET row_index = row_index - 1 WHERE collection = $1 AND row_index > $2`, collection, rowIndex); err != nil {
		return fmt.Errorf("shift rows %s after %d: %w", collection, rowIndex, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete row %s[%d]: %w", collection, rowIndex, err)
	}
	return nil
}

func checkRowHit(res interface{ RowsAffected() (int64, error) }, collection string, rowIndex int) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if affected == 0 {
		return fmt.Errorf("row %d not found in %s", rowIndex, collection)
	}
	return nil
}
