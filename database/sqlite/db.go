package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JohnyZhand/CoraBooks"
	"github.com/JohnyZhand/CoraBooks/database/internal/schema"
)

var documentTable = schema.Table{
	"key":        {Type: "text"},
	"value":      {Type: "text"},
	"version":    {Type: "integer"},
	"updated_at": {Type: "text"},
}

// ValidateSchema checks that the metadata table has the migrated layout.
func ValidateSchema(ctx context.Context, db *sql.DB, tables corabooks.Tables) error {
	name := tables.MetaData
	if !corabooks.IsValidTableName(name) {
		return fmt.Errorf("validate schema: invalid table name: %s", name)
	}

	// PRAGMA table_info yields no rows for a missing table.
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(name)))
	if err != nil {
		return fmt.Errorf("validate schema %s: query columns: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	got := schema.Table{}
	for rows.Next() {
		var (
			cid, notNull, pk int
			col, dataType    string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &col, &dataType, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("validate schema %s: scan column: %w", name, err)
		}
		got[col] = schema.Column{Type: dataType, Nullable: notNull == 0}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate schema %s: %w", name, err)
	}

	if err := schema.Compare(name, documentTable, got); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}
	return nil
}
