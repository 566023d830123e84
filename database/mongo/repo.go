// Package mongo implements the metadata repo as a single MongoDB document.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/JohnyZhand/CoraBooks"
)

type document struct {
	ID        string    `bson:"_id"`
	Value     string    `bson:"value"`
	Version   int64     `bson:"version"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type repo struct {
	coll *mongo.Collection
	key  string
}

func (r *repo) List(ctx context.Context) ([]corabooks.FileRecord, error) {
	doc, _, err := r.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	records, err := corabooks.DecodeRecords([]byte(doc.Value))
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	return records, nil
}

// AtomicUpdate replaces the document only if its version is unchanged since
// the read. The first write inserts the document and loses to a concurrent
// insert through the unique _id.
func (r *repo) AtomicUpdate(ctx context.Context, fn func([]corabooks.FileRecord) ([]corabooks.FileRecord, error)) error {
	for range corabooks.MaxUpdateAttempts {
		doc, exists, err := r.load(ctx)
		if err != nil {
			return fmt.Errorf("atomic update: %w", err)
		}

		records, err := corabooks.DecodeRecords([]byte(doc.Value))
		if err != nil {
			return fmt.Errorf("atomic update: %w", err)
		}

		next, err := fn(records)
		if errors.Is(err, corabooks.ErrNoChange) {
			return nil
		}
		if err != nil {
			return err
		}

		data, err := corabooks.EncodeRecords(next)
		if err != nil {
			return fmt.Errorf("atomic update: %w", err)
		}

		now := time.Now().UTC()

		if !exists {
			_, err := r.coll.InsertOne(ctx, document{ID: r.key, Value: string(data), Version: 1, UpdatedAt: now})
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			if err != nil {
				return fmt.Errorf("atomic update: insert document: %w", err)
			}
			return nil
		}

		filter := bson.D{{Key: "_id", Value: r.key}, {Key: "version", Value: doc.Version}}
		update := bson.D{{Key: "$set", Value: bson.D{
			{Key: "value", Value: string(data)},
			{Key: "version", Value: doc.Version + 1},
			{Key: "updated_at", Value: now},
		}}}

		res, err := r.coll.UpdateOne(ctx, filter, update)
		if err != nil {
			return fmt.Errorf("atomic update: update document: %w", err)
		}
		if res.MatchedCount == 1 {
			return nil
		}
	}

	return fmt.Errorf("atomic update: %w: version changed %d times", corabooks.ErrConflict, corabooks.MaxUpdateAttempts)
}

func (r *repo) load(ctx context.Context) (document, bool, error) {
	var doc document
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: r.key}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return document{ID: r.key}, false, nil
	}
	if err != nil {
		return document{}, false, fmt.Errorf("load document: %w", err)
	}
	return doc, true, nil
}
