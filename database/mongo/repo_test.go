package mongo_test

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
	"github.com/JohnyZhand/CoraBooks/database/mongo"
)

func mongoURI(t *testing.T) string {
	t.Helper()
	uri := os.Getenv("CORABOOKS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CORABOOKS_TEST_MONGO_URI not set")
	}
	return uri
}

func uniqueTables(t *testing.T) corabooks.Tables {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err)
	return corabooks.Tables{MetaData: fmt.Sprintf("test%x", n.Int64())}
}

func TestRepo_Contract(t *testing.T) {
	uri := mongoURI(t)

	repotest.Run(t, func(t *testing.T) (corabooks.MetadataRepo, func()) {
		ctx := context.Background()
		db, err := mongo.Connect(ctx, uri, "corabooks_test", uniqueTables(t), "")
		require.NoError(t, err)
		require.NoError(t, db.Ping(ctx))
		return db.GetRepo(), func() { _ = db.Close() }
	})
}

func TestDatabase_ValidateTables(t *testing.T) {
	ctx := context.Background()

	db, err := mongo.Connect(ctx, "mongodb://localhost:27017", "", corabooks.Tables{MetaData: "Files!"}, "")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.Error(t, db.Validate(ctx))
	assert.NoError(t, db.Migrate(ctx))
}
