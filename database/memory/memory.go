// Package memory implements the metadata repo in process memory.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JohnyZhand/CoraBooks"
)

// Repo keeps the metadata document in memory. It is safe for concurrent use.
type Repo struct {
	mu      sync.Mutex
	records []corabooks.FileRecord
}

// NewRepo returns a repo seeded with a copy of records.
func NewRepo(records ...corabooks.FileRecord) *Repo {
	return &Repo{records: corabooks.CloneRecords(records)}
}

func (r *Repo) List(ctx context.Context) ([]corabooks.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return corabooks.CloneRecords(r.records), nil
}

func (r *Repo) AtomicUpdate(ctx context.Context, fn func([]corabooks.FileRecord) ([]corabooks.FileRecord, error)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("atomic update: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := fn(corabooks.CloneRecords(r.records))
	if errors.Is(err, corabooks.ErrNoChange) {
		return nil
	}
	if err != nil {
		return err
	}

	r.records = corabooks.CloneRecords(next)
	return nil
}

type database struct {
	repo *Repo
}

// Connect returns an empty in-memory database.
func Connect() *database {
	return &database{repo: NewRepo()}
}

func (d *database) Ping(ctx context.Context) error { return ctx.Err() }

func (d *database) Migrate(context.Context) error { return nil }

func (d *database) Validate(context.Context) error { return nil }

// GetRepo returns the MetadataRepo for database operations.
func (d *database) GetRepo() corabooks.MetadataRepo { return d.repo }

func (d *database) Close() error { return nil }
