package kv

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/adapters/storage"
)

const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

// SQLiteStore implements Store on the kv_state table.
type SQLiteStore struct {
	db  storage.SQLDB
	now func() time.Time
}

// NewSQLiteStore creates a new kv store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) Put(ctx context.Context, scope, namespace string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_state (scope, namespace, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(scope, namespace) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		scope, namespace, string(value), s.now().UTC().Format(dateLayout))
	if err != nil {
		return fmt.Errorf("put %s: %w", namespace, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, scope string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT namespace, value FROM kv_state WHERE scope = ? ORDER BY namespace`, scope)
	if err != nil {
		return nil, fmt.Errorf("list scope: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var ns, value string
		if err := rows.Scan(&ns, &value); err != nil {
			return nil, fmt.Errorf("scan kv row: %w", err)
		}
		out[ns] = []byte(value)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteScope(ctx context.Context, scope string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_state WHERE scope = ?`, scope); err != nil {
		return fmt.Errorf("delete scope: %w", err)
	}
	return nil
}
