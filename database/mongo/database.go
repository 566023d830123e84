package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/JohnyZhand/CoraBooks"
)

// DefaultDatabaseName is used when no database name is configured.
const DefaultDatabaseName = "corabooks"

type database struct {
	client *mongo.Client
	db     string
	tables corabooks.Tables
	key    string
}

// Connect creates a client for uri. The metadata document lives in the
// collection named by tables.MetaData with _id equal to key.
func Connect(ctx context.Context, uri, dbName string, tables corabooks.Tables, key string) (*database, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if dbName == "" {
		dbName = DefaultDatabaseName
	}
	if key == "" {
		key = corabooks.DefaultMetadataKey
	}

	return &database{
		client: client,
		db:     dbName,
		tables: tables,
		key:    key,
	}, nil
}

// Ping verifies the server is reachable.
func (d *database) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

// Migrate is a no-op: collections are created on first write.
func (d *database) Migrate(context.Context) error {
	return nil
}

// Validate checks the configured collection name.
func (d *database) Validate(context.Context) error {
	return d.tables.Validate()
}

// GetRepo returns the MetadataRepo for database operations.
func (d *database) GetRepo() corabooks.MetadataRepo {
	return &repo{
		coll: d.client.Database(d.db).Collection(d.tables.MetaData),
		key:  d.key,
	}
}

// Close disconnects the client.
func (d *database) Close() error {
	return d.client.Disconnect(context.Background())
}
