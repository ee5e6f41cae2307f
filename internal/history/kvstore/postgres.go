package kvstore

import (
	"context"
	"fmt"

	"aichat/internal/infra"
	"aichat/internal/sqlinline"
)

// Postgres stores values in a single keyed table, one row per storage key.
type Postgres struct {
	sql infra.SQLExecutor
}

// NewPostgres wires the store to a SQL executor and ensures the backing
// table exists.
func NewPostgres(ctx context.Context, sql infra.SQLExecutor) (*Postgres, error) {
	if _, err := sql.Exec(ctx, sqlinline.QEnsureHistoryTable); err != nil {
		return nil, fmt.Errorf("kvstore: ensure history table: %w", err)
	}
	return &Postgres{sql: sql}, nil
}

func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	row := p.sql.QueryRow(ctx, sqlinline.QSelectHistoryEntry, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if infra.IsNoRows(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("kvstore: postgres get %s: %w", key, err)
	}
	return value, true, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	if _, err := p.sql.Exec(ctx, sqlinline.QUpsertHistoryEntry, key, value); err != nil {
		return fmt.Errorf("kvstore: postgres set %s: %w", key, err)
	}
	return nil
}

var _ KV = (*Postgres)(nil)
