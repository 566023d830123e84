package corabooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// DefaultMetadataKey is the key under which the metadata document is stored.
const DefaultMetadataKey = "files"

// MaxUpdateAttempts bounds the compare-and-swap retries of optimistic backends.
const MaxUpdateAttempts = 8

// MetadataRepo stores the whole list of file records as one document.
// Implementations must be safe for concurrent use.
type MetadataRepo interface {
	// List returns the current records in stored order. A missing document
	// is an empty list.
	List(ctx context.Context) ([]FileRecord, error)

	// AtomicUpdate reads the list, applies fn and writes the result back as a
	// single atomic step. fn receives a copy it may modify in place and may be
	// invoked more than once when a concurrent
	// writer wins, so it must not have side effects outside its return value.
	// If fn returns ErrNoChange nothing is written and AtomicUpdate returns nil.
	// Any other error from fn is returned unchanged.
	AtomicUpdate(ctx context.Context, fn func([]FileRecord) ([]FileRecord, error)) error
}

// EncodeRecords serializes the metadata document.
func EncodeRecords(records []FileRecord) ([]byte, error) {
	if records == nil {
		records = []FileRecord{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}

	return data, nil
}

// DecodeRecords parses the metadata document. Empty input and JSON null
// decode to an empty list.
func DecodeRecords(data []byte) ([]FileRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []FileRecord{}, nil
	}

	var records []FileRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	return records, nil
}

// CloneRecords returns a copy of records that shares no Ready pointers with the input.
func CloneRecords(records []FileRecord) []FileRecord {
	out := make([]FileRecord, len(records))
	for i, r := range records {
		if r.Ready != nil {
			r.Ready = boolPtr(*r.Ready)
		}
		out[i] = r
	}
	return out
}

func findRecord(records []FileRecord, id string) (int, bool) {
	for i := range records {
		if records[i].ID == id {
			return i, true
		}
	}
	return -1, false
}
