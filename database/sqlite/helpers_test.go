package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JohnyZhand/CoraBooks"
	"github.com/JohnyZhand/CoraBooks/database/sqlite"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestRepo creates a repo backed by a fresh database file.
func setupTestRepo(t *testing.T) (corabooks.MetadataRepo, func()) {
	t.Helper()

	ctx := context.Background()
	tables := corabooks.Tables{MetaData: fmt.Sprintf("kv_%s", getRandomString(t))}
	dsn := filepath.Join(t.TempDir(), "meta.db")

	db, err := sqlite.Connect(ctx, dsn, tables, "")
	require.NoError(t, err, "failed to connect")

	require.NoError(t, db.Migrate(ctx), "failed to migrate")

	return db.GetRepo(), func() { _ = db.Close() }
}
