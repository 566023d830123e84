package client

import (
	"errors"
	"net/http"
	"strconv"
)

// Errors for input validation.
var (
	ErrConfigRequired = errors.New("config is required")
	ErrEmptyPath      = errors.New("path is required")
	ErrNoIDs          = errors.New("no ids provided")
)

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"error"`
	Message    string `json:"message"`
	Reason     string `json:"reason"`
}

func (e *APIError) Error() string {
	msg := "server error: " + strconv.Itoa(e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += " - " + e.Message
	}
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrNotFound is returned when the record does not exist (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrUnauthorized is returned when the admin key is missing or wrong (401).
	ErrUnauthorized = &APIError{StatusCode: http.StatusUnauthorized}

	// ErrObjectMissing is returned by commit when nothing was uploaded (410).
	// The record has been purged.
	ErrObjectMissing = &APIError{StatusCode: http.StatusGone}

	// ErrSizeMismatch is returned by commit when the uploaded object has the
	// wrong size (422). The object and the record have been purged.
	ErrSizeMismatch = &APIError{StatusCode: http.StatusUnprocessableEntity}

	// ErrStorageUnavailable is returned when the server cannot reach its
	// object store (502).
	ErrStorageUnavailable = &APIError{StatusCode: http.StatusBadGateway}
)
