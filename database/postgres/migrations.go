package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JohnyZhand/CoraBooks"
)

func createDocumentTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value JSONB NOT NULL DEFAULT '[]'::jsonb,
			version BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`, quotedTable)

	_, err := pool.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("create document table: %w", err)
	}
	return nil
}

// DropTables removes the document table.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables corabooks.Tables) error {
	sql := fmt.Sprintf("DROP TABLE IF EXISTS %s", pgx.Identifier{tables.MetaData}.Sanitize())

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("drop document table: %w", err)
	}
	return nil
}
