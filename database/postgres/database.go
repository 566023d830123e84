package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JohnyZhand/CoraBooks"
)

type database struct {
	pool   *pgxpool.Pool
	tables corabooks.Tables
	key    string
}

// Connect establishes a connection to PostgreSQL.
// Tables should be validated before calling Connect.
func Connect(ctx context.Context, dsn string, tables corabooks.Tables, key string) (*database, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if key == "" {
		key = corabooks.DefaultMetadataKey
	}

	return &database{
		pool:   pool,
		tables: tables,
		key:    key,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *database) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Migrate runs database migrations to create required tables.
func (d *database) Migrate(ctx context.Context) error {
	if err := d.tables.Validate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := createDocumentTable(ctx, d.pool, d.tables.MetaData); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the database schema matches expected structure.
func (d *database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.pool, d.tables)
}

// GetRepo returns the MetadataRepo for database operations.
func (d *database) GetRepo() corabooks.MetadataRepo {
	return &repo{pool: d.pool, tableName: d.tables.MetaData, key: d.key}
}

// Close closes the database connection pool.
func (d *database) Close() error {
	d.pool.Close()
	return nil
}
