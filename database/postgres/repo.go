// Package postgres implements the metadata repo using PostgreSQL
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JohnyZhand/CoraBooks"
)

type repo struct {
	pool      *pgxpool.Pool
	tableName string
	key       string
}

func (r *repo) List(ctx context.Context) ([]corabooks.FileRecord, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, pgx.Identifier{r.tableName}.Sanitize())

	var value []byte
	err := r.pool.QueryRow(ctx, query, r.key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return []corabooks.FileRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	records, err := corabooks.DecodeRecords(value)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	return records, nil
}

// AtomicUpdate serializes writers with a row lock held for the duration of fn.
func (r *repo) AtomicUpdate(ctx context.Context, fn func([]corabooks.FileRecord) ([]corabooks.FileRecord, error)) error {
	table := pgx.Identifier{r.tableName}.Sanitize()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("atomic update: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	seed := fmt.Sprintf(`INSERT INTO %s (key) VALUES ($1) ON CONFLICT (key) DO NOTHING`, table)
	if _, err := tx.Exec(ctx, seed, r.key); err != nil {
		return fmt.Errorf("atomic update: seed document: %w", err)
	}

	var value []byte
	lock := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1 FOR UPDATE`, table)
	if err := tx.QueryRow(ctx, lock, r.key).Scan(&value); err != nil {
		return fmt.Errorf("atomic update: lock document: %w", err)
	}

	records, err := corabooks.DecodeRecords(value)
	if err != nil {
		return fmt.Errorf("atomic update: %w", err)
	}

	next, err := fn(records)
	if errors.Is(err, corabooks.ErrNoChange) {
		return nil
	}
	if err != nil {
		return err
	}

	data, err := corabooks.EncodeRecords(next)
	if err != nil {
		return fmt.Errorf("atomic update: %w", err)
	}

	update := fmt.Sprintf(`
		UPDATE %s
		SET value = $2::jsonb, version = version + 1, updated_at = NOW()
		WHERE key = $1
	`, table)
	if _, err := tx.Exec(ctx, update, r.key, string(data)); err != nil {
		return fmt.Errorf("atomic update: write document: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("atomic update: commit: %w", err)
	}

	return nil
}
