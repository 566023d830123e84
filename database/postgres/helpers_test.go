package postgres_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/JohnyZhand/CoraBooks"
	"github.com/JohnyZhand/CoraBooks/database/postgres"
)

var (
	testPool     *pgxpool.Pool
	testPoolOnce sync.Once
	testPoolErr  error
)

// getSharedTestDatabase returns a pool on a postgres container shared by all tests.
func getSharedTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	testPoolOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("testdb"),
			pgcontainer.WithUsername("testuser"),
			pgcontainer.WithPassword("testpass"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			testPoolErr = fmt.Errorf("start postgres container: %w", err)
			return
		}

		connectionStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			_ = testcontainers.TerminateContainer(pgContainer)
			testPoolErr = fmt.Errorf("connection string: %w", err)
			return
		}

		testPool, testPoolErr = pgxpool.New(ctx, connectionStr)
	})

	require.NoError(t, testPoolErr)
	return testPool
}

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// getDSN extracts the DSN from the pool config.
func getDSN(pool *pgxpool.Pool) string {
	return pool.Config().ConnString()
}

// setupTestRepo creates a repo with a unique table name for test isolation.
func setupTestRepo(t *testing.T) (corabooks.MetadataRepo, func()) {
	t.Helper()

	pool := getSharedTestDatabase(t)
	ctx := context.Background()
	tables := corabooks.Tables{MetaData: fmt.Sprintf("kv_%s", getRandomString(t))}

	db, err := postgres.Connect(ctx, getDSN(pool), tables, "")
	require.NoError(t, err, "failed to connect")
	require.NoError(t, db.Migrate(ctx), "failed to migrate")

	cleanup := func() {
		_ = postgres.DropTables(ctx, pool, tables)
		_ = db.Close()
	}

	return db.GetRepo(), cleanup
}
