package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JohnyZhand/CoraBooks"

	_ "modernc.org/sqlite" // SQLite driver
)

// database provides SQLite database operations.
type database struct {
	db     *sql.DB
	tables corabooks.Tables
	key    string
}

// Connect establishes a connection to SQLite.
// Tables should be validated before calling Connect.
func Connect(ctx context.Context, dsn string, tables corabooks.Tables, key string) (*database, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	// A single connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if key == "" {
		key = corabooks.DefaultMetadataKey
	}

	return &database{
		db:     db,
		tables: tables,
		key:    key,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate runs database migrations to create required tables.
func (d *database) Migrate(ctx context.Context) error {
	return Migrate(ctx, d.db, d.tables)
}

// Validate checks that the database schema matches expected structure.
func (d *database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db, d.tables)
}

// GetRepo returns the MetadataRepo for database operations.
func (d *database) GetRepo() corabooks.MetadataRepo {
	return &repo{db: d.db, tableName: d.tables.MetaData, key: d.key}
}

// Close closes the database connection.
func (d *database) Close() error {
	return d.db.Close()
}
