package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/JohnyZhand/CoraBooks"
)

type database struct {
	client *redis.Client
	tables corabooks.Tables
	key    string
}

// Connect parses a redis:// URL and creates a client. The document is stored
// under "<meta_data table>:<key>".
func Connect(ctx context.Context, url string, tables corabooks.Tables, key string) (*database, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("connect redis: parse url: %w", err)
	}

	if key == "" {
		key = corabooks.DefaultMetadataKey
	}

	return &database{
		client: redis.NewClient(opts),
		tables: tables,
		key:    key,
	}, nil
}

// Ping verifies the server is reachable.
func (d *database) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// Migrate is a no-op: redis needs no schema.
func (d *database) Migrate(context.Context) error {
	return nil
}

// Validate checks the configured key prefix.
func (d *database) Validate(context.Context) error {
	return d.tables.Validate()
}

// GetRepo returns the MetadataRepo for database operations.
func (d *database) GetRepo() corabooks.MetadataRepo {
	return &repo{client: d.client, key: d.tables.MetaData + ":" + d.key}
}

// Close closes the client.
func (d *database) Close() error {
	return d.client.Close()
}
