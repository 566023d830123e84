package corabooks

import (
	"context"
	"io"
	"time"
)

// ObjectStore authenticates with the blob backend. Every protocol operation
// authorizes afresh; sessions are not cached between operations.
type ObjectStore interface {
	// Authorize returns a session or an error wrapping ErrAuth when the
	// credentials are rejected.
	Authorize(ctx context.Context) (ObjectSession, error)
}

// ObjectSession performs object operations with one authorization.
type ObjectSession interface {
	Authorization() Authorization

	// UploadTicket returns a fresh one-time upload grant for name.
	UploadTicket(ctx context.Context, name, contentType string, size int64) (UploadTicket, error)

	// FindByExactName returns the object whose name equals name, or ErrNotFound.
	FindByExactName(ctx context.Context, name string) (ObjectInfo, error)

	// DeleteObject removes the object described by info.
	DeleteObject(ctx context.Context, info ObjectInfo) error

	// DownloadAuthorization grants read access to names starting with prefix.
	DownloadAuthorization(ctx context.Context, prefix string, ttl time.Duration) (DownloadGrant, error)

	// Open returns a seekable reader over the object, or ErrNotFound.
	Open(ctx context.Context, name string) (io.ReadSeekCloser, ObjectInfo, error)
}
