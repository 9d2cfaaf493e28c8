package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// DefaultTable holds the persisted stores in SQL.
const DefaultTable = "client_state"

// SQLBackend keeps each namespace as one row of a Postgres table, so several
// machines of one operator can share state.
type SQLBackend struct {
	DB    *sql.DB
	table string
}

// NewSQLBackend uses table, or DefaultTable when empty. The table must exist;
// see db.InitPostgres.
func NewSQLBackend(db *sql.DB, table string) *SQLBackend {
	if table == "" {
		table = DefaultTable
	}
	return &SQLBackend{DB: db, table: pq.QuoteIdentifier(table)}
}

func (b *SQLBackend) Load(ctx context.Context, namespace string, v any) error {
	var payload []byte
	err := b.DB.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT payload FROM %s WHERE namespace = $1`, b.table),
		namespace,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", namespace, err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode %s: %w", namespace, err)
	}
	return nil
}

func (b *SQLBackend) Save(ctx context.Context, namespace string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", namespace, err)
	}
	_, err = b.DB.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (namespace, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (namespace) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`, b.table), namespace, payload)
	if err != nil {
		return fmt.Errorf("save %s: %w", namespace, err)
	}
	return nil
}

func (b *SQLBackend) Delete(ctx context.Context, namespace string) error {
	if _, err := b.DB.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE namespace = $1`, b.table),
		namespace,
	); err != nil {
		return fmt.Errorf("delete %s: %w", namespace, err)
	}
	return nil
}
