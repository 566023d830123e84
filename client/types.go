package client

import (
	"github.com/JohnyZhand/CoraBooks"
)

// UploadOptions configures an upload.
type UploadOptions struct {
	LocalPath string
	// Filename is the display name; defaults to the base name of LocalPath.
	Filename    string
	ContentType string // optional, auto-detect if empty
}

// UploadResult is the outcome of an upload.
type UploadResult struct {
	ID        string `json:"id"`
	LocalPath string `json:"local_path"`
	Size      int64  `json:"size_bytes"`
	// Already is set when the server had committed the record before.
	Already bool `json:"already,omitempty"`
}

// DownloadOptions configures a download.
type DownloadOptions struct {
	ID        string
	LocalPath string // empty = name from Content-Disposition, "-" = stdout
}

// DownloadResult describes a downloaded book.
type DownloadResult struct {
	ID          string `json:"id"`
	LocalPath   string `json:"local_path"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size_bytes"`
}

// DeleteResult is the outcome of deleting a single record.
type DeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
	Err     error  `json:"-"` // nil on success
}

// Record is a book record as returned by the server.
type Record = corabooks.FileRecord

// CleanupResult holds the counters of one server-side sweep.
type CleanupResult = corabooks.CleanupResult

type intentBody struct {
	Filename         string `json:"filename"`
	OriginalFilename string `json:"originalFilename"`
	ContentType      string `json:"contentType"`
	Size             int64  `json:"size"`
}

type intentResponse struct {
	ID string `json:"id"`
	corabooks.UploadTicket
}

type commitResponse struct {
	Already bool `json:"already"`
}

type cleanupBody struct {
	ThresholdMs int64 `json:"thresholdMs,omitempty"`
}

type linkResponse struct {
	corabooks.DownloadGrant
}
