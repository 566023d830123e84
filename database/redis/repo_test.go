package redis_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnyZhand/CoraBooks"
	"github.com/JohnyZhand/CoraBooks/database/internal/repotest"
	"github.com/JohnyZhand/CoraBooks/database/redis"
)

func redisURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("CORABOOKS_TEST_REDIS_URL")
	if url == "" {
		t.Skip("CORABOOKS_TEST_REDIS_URL not set")
	}
	return url
}

func uniqueTables(t *testing.T) corabooks.Tables {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err)
	return corabooks.Tables{MetaData: fmt.Sprintf("test%x", n.Int64())}
}

func TestRepo_Contract(t *testing.T) {
	url := redisURL(t)

	repotest.Run(t, func(t *testing.T) (corabooks.MetadataRepo, func()) {
		ctx := context.Background()
		db, err := redis.Connect(ctx, url, uniqueTables(t), "")
		require.NoError(t, err)
		require.NoError(t, db.Ping(ctx))
		return db.GetRepo(), func() { _ = db.Close() }
	})
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := redis.Connect(context.Background(), "not a url", corabooks.Tables{MetaData: "kv"}, "")
	assert.Error(t, err)
}

func TestDatabase_ValidateTables(t *testing.T) {
	ctx := context.Background()

	db, err := redis.Connect(ctx, "redis://localhost:6379/0", corabooks.Tables{MetaData: "Bad-Prefix"}, "")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.Error(t, db.Validate(ctx))
	assert.NoError(t, db.Migrate(ctx))
}
