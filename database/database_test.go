package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnyZhand/CoraBooks"
	"github.com/JohnyZhand/CoraBooks/database"
)

func newTestConfig(tableName string) database.Config {
	return database.Config{
		Type:   "sqlite",
		DSN:    ":memory:",
		Key:    "files",
		Tables: corabooks.Tables{MetaData: tableName},
	}
}

func TestConnect_SQLite(t *testing.T) {
	ctx := context.Background()

	db, err := database.Connect(ctx, newTestConfig("corabooks_kv"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.NoError(t, db.Ping(ctx))
	assert.Error(t, db.Validate(ctx), "schema is missing before migration")
	require.NoError(t, db.Migrate(ctx))
	assert.NoError(t, db.Validate(ctx))
}

func TestConnect_Memory(t *testing.T) {
	ctx := context.Background()

	db, err := database.Connect(ctx, database.Config{Type: "memory"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Ping(ctx))
	records, err := db.GetRepo().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestConnect_UnsupportedType(t *testing.T) {
	_, err := database.Connect(context.Background(), database.Config{
		Type:   "cassandra",
		Tables: corabooks.Tables{MetaData: "kv"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestConnect_InvalidTableName(t *testing.T) {
	_, err := database.Connect(context.Background(), newTestConfig("DROP TABLE"))
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("migrates and validates", func(t *testing.T) {
		db, err := database.Open(ctx, newTestConfig("corabooks_kv"), true)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		repo := db.GetRepo()
		err = repo.AtomicUpdate(ctx, func(records []corabooks.FileRecord) ([]corabooks.FileRecord, error) {
			return append(records, corabooks.FileRecord{ID: "a"}), nil
		})
		require.NoError(t, err)

		records, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("fails validation without migration", func(t *testing.T) {
		_, err := database.Open(ctx, newTestConfig("corabooks_kv"), false)
		assert.Error(t, err)
	})
}
