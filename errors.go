package corabooks

import "errors"

var (
	// ErrNotFound is returned when a file record or storage object does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when the caller is not allowed to perform an admin operation
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAuth is returned when the service could not authenticate with the object store
	ErrAuth = errors.New("object store authorization failed")
	// ErrObjectMissing is returned by commit when no object with the expected name exists
	ErrObjectMissing = errors.New("object missing")
	// ErrSizeMismatch is returned by commit when the stored object size differs from the declared size
	ErrSizeMismatch = errors.New("size mismatch")
	// ErrConflict is returned when a metadata update could not be applied after repeated retries
	ErrConflict = errors.New("conflict")
	// ErrNoChange may be returned by an AtomicUpdate mutation to skip the write
	ErrNoChange = errors.New("no change")
)
