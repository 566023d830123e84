// Package filesystem provides a local directory object store for CoraBooks.
// Uploads and downloads go through the server's own /blob endpoints and are
// authorized with signed tokens, mirroring how a remote object store hands
// out upload URLs. Writes are atomic using temp files with SHA256-based etags.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JohnyZhand/CoraBooks"
)

// BlobPath is the route prefix under which the HTTP layer serves objects.
const BlobPath = "/blob/"

const defaultTicketTTL = time.Hour

// Config holds the filesystem store settings.
type Config struct {
	// PublicURL is the externally reachable base URL of the server.
	PublicURL string
	// SigningSecret signs upload and download tokens. Authorize fails when empty.
	SigningSecret string
	// TicketTTL is the lifetime of upload tickets (default: 1h).
	TicketTTL time.Duration
	// MaxObjectSize caps writes whose ticket carries no declared size.
	MaxObjectSize int64
}

// Store provides file system storage operations.
type Store struct {
	root      *os.Root
	signer    *Signer
	publicURL string
	ticketTTL time.Duration
	maxSize   int64
}

// NewStore creates a Store on root. The root provides sandboxed file
// operations preventing path traversal.
func NewStore(root *os.Root, cfg Config) *Store {
	ttl := cfg.TicketTTL
	if ttl <= 0 {
		ttl = defaultTicketTTL
	}
	maxSize := cfg.MaxObjectSize
	if maxSize <= 0 {
		maxSize = corabooks.DefaultMaxUploadSize
	}

	return &Store{
		root:      root,
		signer:    NewSigner(cfg.SigningSecret),
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
		ticketTTL: ttl,
		maxSize:   maxSize,
	}
}

// Authorize returns a session. It fails with corabooks.ErrAuth when no signing
// secret is configured.
func (s *Store) Authorize(ctx context.Context) (corabooks.ObjectSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(s.signer.secret) == 0 {
		return nil, fmt.Errorf("authorize: %w: signing secret is not configured", corabooks.ErrAuth)
	}

	return &session{
		store: s,
		auth: corabooks.Authorization{
			APIURL:      s.publicURL,
			DownloadURL: s.publicURL + strings.TrimSuffix(BlobPath, "/"),
		},
	}, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Write stores content under name after verifying an upload token for it.
// An existing object is never overwritten, so each ticket yields at most one
// object. When the ticket declares a size, at most one byte more than declared
// is stored; the commit size check rejects the result.
func (s *Store) Write(ctx context.Context, token, name string, content io.Reader) (corabooks.ObjectInfo, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return corabooks.ObjectInfo{}, ctxErr
	}

	if !corabooks.IsValidObjectName(name) {
		return corabooks.ObjectInfo{}, fmt.Errorf("write %s: %w: invalid object name", name, corabooks.ErrInvalidInput)
	}

	claims, err := s.signer.Verify(token, ScopeUpload)
	if err != nil {
		return corabooks.ObjectInfo{}, fmt.Errorf("write %s: %w", name, err)
	}
	if claims.Subject != name {
		return corabooks.ObjectInfo{}, fmt.Errorf("write %s: %w: token issued for another object", name, corabooks.ErrUnauthorized)
	}

	if _, statErr := s.root.Stat(name); statErr == nil {
		return corabooks.ObjectInfo{}, fmt.Errorf("write %s: %w: object already exists", name, corabooks.ErrConflict)
	}

	limit := s.maxSize
	if claims.Size > 0 {
		limit = claims.Size + 1
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return corabooks.ObjectInfo{}, fmt.Errorf("could not open temp file: %w", createErr)
	}

	defer func() {
		if closeErr := t.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if rmErr := s.root.Remove(tmpFile); rmErr != nil {
			slog.Warn("failed to remove tmp file", "err", rmErr)
		}
	}()

	h := sha256.New()
	w := io.MultiWriter(h, t)

	size, err := io.Copy(w, &ctxReader{ctx: ctx, r: io.LimitReader(content, limit)})
	if err != nil {
		return corabooks.ObjectInfo{}, fmt.Errorf("could not copy file contents: %w", err)
	}

	if err = t.Sync(); err != nil {
		return corabooks.ObjectInfo{}, fmt.Errorf("could not sync written file: %w", err)
	}

	// Link fails when name exists, so concurrent writers cannot replace a published object.
	if linkErr := s.root.Link(tmpFile, name); linkErr != nil {
		if errors.Is(linkErr, fs.ErrExist) {
			return corabooks.ObjectInfo{}, fmt.Errorf("write %s: %w: object already exists", name, corabooks.ErrConflict)
		}
		return corabooks.ObjectInfo{}, fmt.Errorf("failed to publish file: %w", linkErr)
	}

	return corabooks.ObjectInfo{
		Name:         name,
		ID:           name,
		Size:         size,
		ContentType:  detectContentType(name),
		ETag:         hex.EncodeToString(h.Sum(nil)),
		LastModified: time.Now().UTC(),
	}, nil
}

// Read opens name after verifying a download token whose subject is a prefix of name.
func (s *Store) Read(ctx context.Context, token, name string) (io.ReadSeekCloser, corabooks.ObjectInfo, error) {
	claims, err := s.signer.Verify(token, ScopeDownload)
	if err != nil {
		return nil, corabooks.ObjectInfo{}, fmt.Errorf("read %s: %w", name, err)
	}
	if !strings.HasPrefix(name, claims.Subject) {
		return nil, corabooks.ObjectInfo{}, fmt.Errorf("read %s: %w: token does not cover object", name, corabooks.ErrUnauthorized)
	}

	return s.open(ctx, name)
}

func (s *Store) open(ctx context.Context, name string) (io.ReadSeekCloser, corabooks.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, corabooks.ObjectInfo{}, err
	}

	if !corabooks.IsValidObjectName(name) {
		return nil, corabooks.ObjectInfo{}, corabooks.ErrNotFound
	}

	f, err := s.root.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, corabooks.ObjectInfo{}, corabooks.ErrNotFound
		}
		return nil, corabooks.ObjectInfo{}, fmt.Errorf("failed to open file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, corabooks.ObjectInfo{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if fi.IsDir() {
		_ = f.Close()
		return nil, corabooks.ObjectInfo{}, corabooks.ErrNotFound
	}

	return f, infoFor(name, fi), nil
}

func (s *Store) stat(ctx context.Context, name string) (corabooks.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return corabooks.ObjectInfo{}, err
	}

	if !corabooks.IsValidObjectName(name) {
		return corabooks.ObjectInfo{}, corabooks.ErrNotFound
	}

	fi, err := s.root.Stat(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return corabooks.ObjectInfo{}, corabooks.ErrNotFound
		}
		return corabooks.ObjectInfo{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if fi.IsDir() {
		return corabooks.ObjectInfo{}, corabooks.ErrNotFound
	}

	return infoFor(name, fi), nil
}

func (s *Store) remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.root.Remove(name); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return corabooks.ErrNotFound
		}
		return fmt.Errorf("could not delete file: %w", err)
	}
	return nil
}

func (s *Store) blobURL(name string) string {
	return s.publicURL + BlobPath + url.PathEscape(name)
}

func infoFor(name string, fi os.FileInfo) corabooks.ObjectInfo {
	return corabooks.ObjectInfo{
		Name:         name,
		ID:           name,
		Size:         fi.Size(),
		ContentType:  detectContentType(name),
		LastModified: fi.ModTime().UTC(),
	}
}

func detectContentType(name string) string {
	contentType := mime.TypeByExtension(filepath.Ext(name))

	if contentType == "" {
		return "application/octet-stream"
	}

	return contentType
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
