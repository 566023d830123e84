package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	cbhttp "github.com/JohnyZhand/CoraBooks/http"
)

const (
	// DefaultEndpoint is used when Config.Endpoint is empty.
	DefaultEndpoint = "http://localhost:8080"

	// DefaultTimeout bounds a single JSON API call. Transfers of book
	// content are bounded only by the caller's context.
	DefaultTimeout = 30 * time.Second
)

// Config holds the server address and credentials.
type Config struct {
	Endpoint string
	AdminKey string
}

// Client performs operations against a CoraBooks server.
type Client struct {
	endpoint   string
	adminKey   string
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the timeout of JSON API calls.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	c := &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		adminKey:   cfg.AdminKey,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Upload declares, sends and commits a single book.
// A commit failure (ErrObjectMissing, ErrSizeMismatch) means the server purged
// the record; call Upload again to retry.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) (UploadResult, error) {
	if opts.LocalPath == "" {
		return UploadResult{}, fmt.Errorf("upload: %w", ErrEmptyPath)
	}

	file, err := os.Open(opts.LocalPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return UploadResult{}, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return UploadResult{}, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return UploadResult{}, fmt.Errorf("upload %s: is a directory", opts.LocalPath)
	}

	base := filepath.Base(opts.LocalPath)
	filename := opts.Filename
	if filename == "" {
		filename = base
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(opts.LocalPath)
	}

	var intent intentResponse
	err = c.doJSON(ctx, http.MethodPost, "/upload-intent", false, intentBody{
		Filename:         filename,
		OriginalFilename: base,
		ContentType:      contentType,
		Size:             info.Size(),
	}, &intent)
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload intent: %w", err)
	}

	if err := c.send(ctx, intent, file, info.Size()); err != nil {
		return UploadResult{}, fmt.Errorf("upload %s: %w", intent.ID, err)
	}

	var commit commitResponse
	err = c.doJSON(ctx, http.MethodPost, "/commit", false, map[string]string{"id": intent.ID}, &commit)
	if err != nil {
		return UploadResult{}, fmt.Errorf("commit %s: %w", intent.ID, err)
	}

	return UploadResult{
		ID:        intent.ID,
		LocalPath: opts.LocalPath,
		Size:      info.Size(),
		Already:   commit.Already,
	}, nil
}

// send streams content to the ticket URL with the ticket's headers.
func (c *Client) send(ctx context.Context, ticket intentResponse, content io.Reader, size int64) error {
	method := ticket.Method
	if method == "" {
		method = http.MethodPut
	}

	req, err := http.NewRequestWithContext(ctx, method, ticket.UploadURL, content)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.ContentLength = size
	for k, v := range ticket.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return parseServerError(resp.StatusCode, body)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// List returns the committed records.
func (c *Client) List(ctx context.Context) ([]Record, error) {
	var records []Record
	if err := c.doJSON(ctx, http.MethodGet, "/files", false, nil, &records); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return records, nil
}

// Get returns a single committed record.
func (c *Client) Get(ctx context.Context, id string) (Record, error) {
	var rec Record
	if err := c.doJSON(ctx, http.MethodGet, "/files/"+url.PathEscape(id), false, nil, &rec); err != nil {
		return Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	return rec, nil
}

// Link returns a time-limited direct download URL for a record.
func (c *Client) Link(ctx context.Context, id string) (string, error) {
	var link linkResponse
	if err := c.doJSON(ctx, http.MethodGet, "/download/"+url.PathEscape(id)+"/link", false, nil, &link); err != nil {
		return "", fmt.Errorf("link %s: %w", id, err)
	}
	return link.URL, nil
}

// Download fetches a book through the server.
// If opts.LocalPath is "-", the content is returned via the io.ReadCloser and must be closed by the caller.
// Otherwise, the content is written to the file and the io.ReadCloser is nil.
func (c *Client) Download(ctx context.Context, opts DownloadOptions) (*DownloadResult, io.ReadCloser, error) {
	if opts.ID == "" {
		return nil, nil, fmt.Errorf("download: %w", ErrEmptyPath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/download/"+url.PathEscape(opts.ID), http.NoBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
		return nil, nil, parseServerError(resp.StatusCode, body)
	}

	result := &DownloadResult{
		ID:          opts.ID,
		Filename:    dispositionFilename(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}

	if opts.LocalPath == "-" {
		result.LocalPath = "-"
		return result, resp.Body, nil
	}

	localPath := opts.LocalPath
	if localPath == "" {
		localPath = result.Filename
	}
	if localPath == "" {
		localPath = opts.ID
	}
	result.LocalPath = localPath

	dir := filepath.Dir(localPath)
	if dir != "" && dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0o750); mkdirErr != nil {
			_ = resp.Body.Close()
			return nil, nil, fmt.Errorf("create directory: %w", mkdirErr)
		}
	}

	file, createErr := os.Create(localPath) //#nosec G304 -- localPath is user-provided input
	if createErr != nil {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("create file: %w", createErr)
	}

	written, copyErr := io.Copy(file, resp.Body)
	_ = resp.Body.Close()
	if copyErr != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("write file: %w", copyErr)
	}

	if closeErr := file.Close(); closeErr != nil {
		return nil, nil, fmt.Errorf("close file: %w", closeErr)
	}

	result.Size = written
	return result, nil, nil
}

// Delete removes records. Requires the admin key.
// Continues on error, collecting results for all ids.
func (c *Client) Delete(ctx context.Context, ids []string) ([]DeleteResult, error) {
	if len(ids) == 0 {
		return nil, ErrNoIDs
	}

	results := make([]DeleteResult, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		err := c.doJSON(ctx, http.MethodDelete, "/files/"+url.PathEscape(id), true, nil, nil)
		results = append(results, DeleteResult{ID: id, Deleted: err == nil, Err: err})
	}

	return results, nil
}

// HasDeleteErrors returns true if any delete operation failed.
func HasDeleteErrors(results []DeleteResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// Cleanup runs a server-side sweep. A zero threshold uses the server default.
// Requires the admin key.
func (c *Client) Cleanup(ctx context.Context, threshold time.Duration) (CleanupResult, error) {
	var result CleanupResult
	err := c.doJSON(ctx, http.MethodPost, "/admin/cleanup", true, cleanupBody{ThresholdMs: threshold.Milliseconds()}, &result)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("cleanup: %w", err)
	}
	return result, nil
}

// doJSON performs a JSON API call bounded by the client timeout.
func (c *Client) doJSON(ctx context.Context, method, path string, admin bool, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set(cbhttp.AdminKeyHeader, c.adminKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseServerError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// dispositionFilename extracts the file name from a Content-Disposition
// header, preferring the UTF-8 filename* parameter.
func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := params["filename"]
	if name == "" {
		return ""
	}
	return filepath.Base(filepath.Clean("/" + name))
}

// detectContentType returns MIME type based on file extension.
func detectContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "application/octet-stream"
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "application/octet-stream"
	}

	return mimeType
}

// parseServerError decodes the server's JSON error body when there is one.
func parseServerError(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
