package database

import (
	"context"
	"fmt"

	"github.com/JohnyZhand/CoraBooks"
	"github.com/JohnyZhand/CoraBooks/database/memory"
	"github.com/JohnyZhand/CoraBooks/database/mongo"
	"github.com/JohnyZhand/CoraBooks/database/postgres"
	"github.com/JohnyZhand/CoraBooks/database/redis"
	"github.com/JohnyZhand/CoraBooks/database/sqlite"
)

// Config holds the configuration for connecting to a metadata backend.
type Config struct {
	// Type specifies the backend: "memory", "sqlite", "postgres", "redis" or "mongo"
	Type string `mapstructure:"type" validate:"required,oneof=memory sqlite postgres redis mongo"`
	// DSN is the data source name (connection string or URL)
	DSN string `mapstructure:"dsn" validate:"required_unless=Type memory"`
	// Key is the name of the metadata document
	Key string `mapstructure:"key"`
	// Name is the database name, used by the mongo backend
	Name string `mapstructure:"name"`
	// Tables holds the table (or key prefix, or collection) names
	Tables corabooks.Tables `mapstructure:"tables"`
	// AutoMigrate creates missing tables on startup
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// Database is a connected metadata backend.
type Database interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Validate(ctx context.Context) error
	GetRepo() corabooks.MetadataRepo
	Close() error
}

// Connect opens the configured backend. It does not migrate or validate;
// callers decide whether to run Migrate before Validate.
func Connect(ctx context.Context, cfg Config) (Database, error) {
	if cfg.Type != "memory" {
		if err := cfg.Tables.Validate(); err != nil {
			return nil, fmt.Errorf("connect %s: %w", cfg.Type, err)
		}
	}

	switch cfg.Type {
	case "memory":
		return memory.Connect(), nil
	case "sqlite":
		return sqlite.Connect(ctx, cfg.DSN, cfg.Tables, cfg.Key)
	case "postgres":
		return postgres.Connect(ctx, cfg.DSN, cfg.Tables, cfg.Key)
	case "redis":
		return redis.Connect(ctx, cfg.DSN, cfg.Tables, cfg.Key)
	case "mongo":
		return mongo.Connect(ctx, cfg.DSN, cfg.Name, cfg.Tables, cfg.Key)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

// Open connects, pings, optionally migrates and validates the backend.
func Open(ctx context.Context, cfg Config, migrate bool) (Database, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Type, err)
	}

	if migrate {
		if err = db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate %s: %w", cfg.Type, err)
		}
	}

	if err = db.Validate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("validate %s: %w", cfg.Type, err)
	}

	return db, nil
}
