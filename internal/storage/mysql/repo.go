package mysql

import (
	"context"
	"database/sql"
	"errors"
)

// KV implements domain.KVStore on a single MySQL table (see migrations/).
type KV struct{ db *sql.DB }

func New(db *sql.DB) *KV { return &KV{db: db} }

func (r *KV) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.db.QueryRowContext(ctx, getValueSQL, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *KV) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, upsertValueSQL, key, value)
	return err
}
