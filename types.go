package corabooks

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// FileRecord is one entry of the metadata document.
type FileRecord struct {
	ID                string    `json:"id"`
	StorageObjectName string    `json:"storageObjectName"`
	DisplayName       string    `json:"displayName"`
	OriginalName      string    `json:"originalName"`
	ContentType       string    `json:"contentType"`
	Size              int64     `json:"size"`
	UploadedAt        time.Time `json:"uploadedAt"`
	// Ready is nil for records written before the commit protocol existed.
	Ready            *bool  `json:"ready,omitempty"`
	CoverObjectName  string `json:"coverObjectName,omitempty"`
	CoverContentType string `json:"coverContentType,omitempty"`
	Description      string `json:"description,omitempty"`
}

// IsReady reports whether the record is visible. Legacy records without a
// ready flag are treated as ready.
func (r FileRecord) IsReady() bool {
	return r.Ready == nil || *r.Ready
}

// IsPending reports whether the record is explicitly waiting for a commit.
func (r FileRecord) IsPending() bool {
	return r.Ready != nil && !*r.Ready
}

// Age returns how long ago the intent was recorded. A zero UploadedAt yields
// an age larger than any sweep threshold.
func (r FileRecord) Age(now time.Time) time.Duration {
	if r.UploadedAt.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return now.Sub(r.UploadedAt)
}

// UnmarshalJSON accepts the field names used by documents written before the
// storage backend became pluggable.
func (r *FileRecord) UnmarshalJSON(data []byte) error {
	type plain FileRecord
	aux := struct {
		*plain
		B2FileName  string `json:"b2FileName"`
		Filename    string `json:"filename"`
		CoverB2Name string `json:"coverB2Name"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decode file record: %w", err)
	}

	if r.StorageObjectName == "" {
		r.StorageObjectName = aux.B2FileName
	}
	if r.DisplayName == "" {
		r.DisplayName = aux.Filename
	}
	if r.OriginalName == "" {
		r.OriginalName = aux.Filename
	}
	if r.CoverObjectName == "" {
		r.CoverObjectName = aux.CoverB2Name
	}

	return nil
}

func boolPtr(b bool) *bool {
	return &b
}

// Authorization is the result of authenticating with the object store.
type Authorization struct {
	Token       string
	APIURL      string
	DownloadURL string
}

// UploadTicket grants a single direct upload of one named object.
type UploadTicket struct {
	UploadURL          string            `json:"uploadUrl"`
	AuthorizationToken string            `json:"authorizationToken,omitempty"`
	ObjectName         string            `json:"objectName"`
	Method             string            `json:"method"`
	Headers            map[string]string `json:"headers,omitempty"`
	ExpiresAt          time.Time         `json:"expiresAt"`
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Name         string
	ID           string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// DownloadGrant is a short-lived credential for reading objects under a prefix.
type DownloadGrant struct {
	URL       string    `json:"url"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IntentRequest declares a file the client is about to upload.
type IntentRequest struct {
	Filename         string
	OriginalFilename string
	ContentType      string
	Size             int64
}

// IntentResult carries the new record id and the upload ticket.
type IntentResult struct {
	ID     string
	Ticket UploadTicket
}

// CommitResult reports the outcome of a successful commit.
type CommitResult struct {
	Already bool
}

// CleanupOptions controls a sweep. A non-positive Threshold uses the service default.
type CleanupOptions struct {
	Threshold time.Duration
}

// CleanupResult holds the counters of one sweep.
type CleanupResult struct {
	Scanned        int `json:"scanned"`
	Kept           int `json:"kept"`
	Removed        int `json:"removed"`
	Promoted       int `json:"promoted"`
	DeletedObjects int `json:"deletedFromB2"`
}

// CoverIntentRequest declares a cover image for an existing record.
type CoverIntentRequest struct {
	ID               string
	OriginalFilename string
	ContentType      string
	Size             int64
}

// UpdateRequest changes the editable fields of a record. Nil fields are left as is.
type UpdateRequest struct {
	DisplayName *string
	Description *string
}

// Tables holds configurable table names for metadata storage.
// This allows multi-tenant deployments to use different table names.
type Tables struct {
	MetaData string `mapstructure:"meta_data"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.MetaData == "" {
		return errors.New("validate tables: metadata table name cannot be empty")
	}

	if !IsValidTableName(t.MetaData) {
		return fmt.Errorf("validate tables: invalid metadata table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.MetaData)
	}

	return nil
}
