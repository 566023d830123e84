package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JohnyZhand/CoraBooks"
)

// quoteIdentifier safely quotes a SQLite identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

type TableMigration struct {
	TableName string
	Up        func(ctx context.Context, db *sql.DB) error
	Down      func(ctx context.Context, db *sql.DB) error
}

func getTableMigrations(tables corabooks.Tables) []TableMigration {
	return []TableMigration{
		{
			TableName: tables.MetaData,
			Up:        createDocumentTable(tables.MetaData),
			Down:      dropTable(tables.MetaData),
		},
	}
}

func Migrate(ctx context.Context, db *sql.DB, tables corabooks.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	for _, migration := range getTableMigrations(tables) {
		if err := migration.Up(ctx, db); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}

	return nil
}

func DropTables(ctx context.Context, db *sql.DB, tables corabooks.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if err := migration.Down(ctx, db); err != nil {
			return fmt.Errorf("migrate down %s: %w", migration.TableName, err)
		}
	}

	return nil
}

// createDocumentTable stores one JSON document per key with a version counter
// used for compare-and-swap updates.
func createDocumentTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				key TEXT NOT NULL PRIMARY KEY,
				value TEXT NOT NULL,
				version INTEGER NOT NULL,
				updated_at TEXT NOT NULL
			)
		`, quoteIdentifier(tableName))

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		return nil
	}
}

func dropTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(tableName))

		_, err := db.ExecContext(ctx, dropSQL)
		return err
	}
}
