// Package sqlite implements the metadata repo using SQLite
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/JohnyZhand/CoraBooks"
)

type repo struct {
	db        *sql.DB
	tableName string
	key       string
}

func (r *repo) List(ctx context.Context) ([]corabooks.FileRecord, error) {
	records, _, err := r.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return records, nil
}

// AtomicUpdate applies fn with optimistic concurrency: the write only succeeds
// when the row version is unchanged since the read.
func (r *repo) AtomicUpdate(ctx context.Context, fn func([]corabooks.FileRecord) ([]corabooks.FileRecord, error)) error {
	if err := r.ensureRow(ctx); err != nil {
		return fmt.Errorf("atomic update: %w", err)
	}

	updateQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s SET value = ?, version = version + 1, updated_at = ?
		WHERE key = ? AND version = ?`, quoteIdentifier(r.tableName))

	for range corabooks.MaxUpdateAttempts {
		records, version, err := r.load(ctx)
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

		now := time.Now().UTC().Format(time.RFC3339Nano)
		res, err := r.db.ExecContext(ctx, updateQuery, string(data), now, r.key, version)
		if err != nil {
			return fmt.Errorf("atomic update: %w", err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("atomic update: rows affected: %w", err)
		}
		if rows == 1 {
			return nil
		}
	}

	return fmt.Errorf("atomic update: %w: version changed %d times", corabooks.ErrConflict, corabooks.MaxUpdateAttempts)
}

func (r *repo) load(ctx context.Context) ([]corabooks.FileRecord, int64, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT value, version FROM %s WHERE key = ?`, quoteIdentifier(r.tableName))

	var value string
	var version int64
	err := r.db.QueryRowContext(ctx, query, r.key).Scan(&value, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return []corabooks.FileRecord{}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load document: %w", err)
	}

	records, err := corabooks.DecodeRecords([]byte(value))
	if err != nil {
		return nil, 0, err
	}

	return records, version, nil
}

func (r *repo) ensureRow(ctx context.Context) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT OR IGNORE INTO %s (key, value, version, updated_at) VALUES (?, '[]', 0, ?)`,
		quoteIdentifier(r.tableName))

	if _, err := r.db.ExecContext(ctx, query, r.key, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("seed document: %w", err)
	}
	return nil
}
