package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JohnyZhand/CoraBooks"
	"github.com/JohnyZhand/CoraBooks/database/internal/schema"
)

var documentTable = schema.Table{
	"key":        {Type: "text"},
	"value":      {Type: "jsonb"},
	"version":    {Type: "bigint"},
	"updated_at": {Type: "timestamp with time zone"},
}

// ValidateSchema checks that the metadata table in the current schema has the
// migrated layout.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, tables corabooks.Tables) error {
	name := tables.MetaData
	if !corabooks.IsValidTableName(name) {
		return fmt.Errorf("validate schema: invalid table name: %s", name)
	}

	rows, err := pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
	`, name)
	if err != nil {
		return fmt.Errorf("validate schema %s: query columns: %w", name, err)
	}
	defer rows.Close()

	got := schema.Table{}
	for rows.Next() {
		var col, dataType, nullable string
		if err := rows.Scan(&col, &dataType, &nullable); err != nil {
			return fmt.Errorf("validate schema %s: scan column: %w", name, err)
		}
		got[col] = schema.Column{Type: dataType, Nullable: nullable == "YES"}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate schema %s: %w", name, err)
	}

	if err := schema.Compare(name, documentTable, got); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}
	return nil
}
