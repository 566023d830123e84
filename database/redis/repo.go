// Package redis implements the metadata repo on a single redis string key.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/JohnyZhand/CoraBooks"
)

type repo struct {
	client *redis.Client
	key    string
}

func (r *repo) List(ctx context.Context) ([]corabooks.FileRecord, error) {
	records, err := read(ctx, r.client, r.key)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return records, nil
}

// AtomicUpdate runs fn inside WATCH/MULTI and retries when another client
// modified the key before EXEC.
func (r *repo) AtomicUpdate(ctx context.Context, fn func([]corabooks.FileRecord) ([]corabooks.FileRecord, error)) error {
	var fnErr error

	txf := func(tx *redis.Tx) error {
		records, err := read(ctx, tx, r.key)
		if err != nil {
			return err
		}

		next, err := fn(records)
		if err != nil {
			fnErr = err
			return err
		}

		data, err := corabooks.EncodeRecords(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key, data, 0)
			return nil
		})
		return err
	}

	for range corabooks.MaxUpdateAttempts {
		fnErr = nil
		err := r.client.Watch(ctx, txf, r.key)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case fnErr != nil && errors.Is(fnErr, corabooks.ErrNoChange):
			return nil
		case fnErr != nil:
			return fnErr
		default:
			return fmt.Errorf("atomic update: %w", err)
		}
	}

	return fmt.Errorf("atomic update: %w: key changed %d times", corabooks.ErrConflict, corabooks.MaxUpdateAttempts)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func read(ctx context.Context, c getter, key string) ([]corabooks.FileRecord, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []corabooks.FileRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	return corabooks.DecodeRecords(data)
}
