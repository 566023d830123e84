// Package repotest holds the behaviour every MetadataRepo backend must share.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnyZhand/CoraBooks"
)

// Factory returns an empty repo and a cleanup function.
type Factory func(t *testing.T) (corabooks.MetadataRepo, func())

func pending(id string, size int64) corabooks.FileRecord {
	ready := false
	return corabooks.FileRecord{
		ID:                id,
		StorageObjectName: id + ".pdf",
		DisplayName:       id,
		OriginalName:      id + ".pdf",
		ContentType:       "application/pdf",
		Size:              size,
		UploadedAt:        time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Ready:             &ready,
	}
}

func appendRecord(rec corabooks.FileRecord) func([]corabooks.FileRecord) ([]corabooks.FileRecord, error) {
	return func(records []corabooks.FileRecord) ([]corabooks.FileRecord, error) {
		return append(records, rec), nil
	}
}

// Run exercises a backend against the MetadataRepo contract.
func Run(t *testing.T, newRepo Factory) {
	t.Helper()

	t.Run("list on empty document", func(t *testing.T) {
		repo, cleanup := newRepo(t)
		defer cleanup()

		records, err := repo.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("append and list preserves order", func(t *testing.T) {
		repo, cleanup := newRepo(t)
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, repo.AtomicUpdate(ctx, appendRecord(pending("a", 10))))
		require.NoError(t, repo.AtomicUpdate(ctx, appendRecord(pending("b", 20))))

		records, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "a", records[0].ID)
		assert.Equal(t, "b", records[1].ID)
		assert.Equal(t, int64(20), records[1].Size)
		assert.True(t, records[0].IsPending())
		assert.True(t, records[0].UploadedAt.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))
	})

	t.Run("update modifies a record", func(t *testing.T) {
		repo, cleanup := newRepo(t)
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, repo.AtomicUpdate(ctx, appendRecord(pending("a", 10))))

		err := repo.AtomicUpdate(ctx, func(records []corabooks.FileRecord) ([]corabooks.FileRecord, error) {
			ready := true
			records[0].Ready = &ready
			return records, nil
		})
		require.NoError(t, err)

		records, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.True(t, records[0].IsReady())
		assert.False(t, records[0].IsPending())
	})

	t.Run("no change skips write", func(t *testing.T) {
		repo, cleanup := newRepo(t)
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, repo.AtomicUpdate(ctx, appendRecord(pending("a", 10))))

		err := repo.AtomicUpdate(ctx, func([]corabooks.FileRecord) ([]corabooks.FileRecord, error) {
			return nil, corabooks.ErrNoChange
		})
		require.NoError(t, err)

		records, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("mutation error is returned and nothing is written", func(t *testing.T) {
		repo, cleanup := newRepo(t)
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, repo.AtomicUpdate(ctx, appendRecord(pending("a", 10))))

		boom := errors.New("boom")
		err := repo.AtomicUpdate(ctx, func([]corabooks.FileRecord) ([]corabooks.FileRecord, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)

		records, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("list result is detached from storage", func(t *testing.T) {
		repo, cleanup := newRepo(t)
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, repo.AtomicUpdate(ctx, appendRecord(pending("a", 10))))

		records, err := repo.List(ctx)
		require.NoError(t, err)
		*records[0].Ready = true

		again, err := repo.List(ctx)
		require.NoError(t, err)
		assert.True(t, again[0].IsPending())
	})

	t.Run("concurrent appends keep every record", func(t *testing.T) {
		repo, cleanup := newRepo(t)
		defer cleanup()
		ctx := context.Background()

		const writers = 5
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := range writers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- repo.AtomicUpdate(ctx, appendRecord(pending(fmt.Sprintf("w%d", i), int64(i+1))))
			}(i)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		records, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, records, writers)
	})
}
