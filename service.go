package corabooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMaxUploadSize is the largest declared size accepted by CreateIntent (2 GiB).
	DefaultMaxUploadSize int64 = 2 * 1024 * 1024 * 1024
	// DefaultCleanupThreshold is the age after which a pending record is verified by Cleanup.
	DefaultCleanupThreshold = 6 * time.Hour
	// DefaultDownloadTTL is the lifetime of download grants.
	DefaultDownloadTTL = time.Hour

	defaultCleanupTimeout = 30 * time.Second
	defaultContentType    = "application/octet-stream"
	defaultCoverType      = "image/jpeg"
)

// DefaultAllowedExtensions lists the book formats accepted by CreateIntent.
var DefaultAllowedExtensions = []string{"pdf", "epub", "mobi"}

var errRecordGone = errors.New("record gone")

type Service struct {
	repo              MetadataRepo
	store             ObjectStore
	maxUploadSize     int64
	allowedExtensions map[string]struct{}
	cleanupThreshold  time.Duration
	cleanupTimeout    time.Duration
	downloadTTL       time.Duration
	now               func() time.Time
	logger            *slog.Logger
}

// ServiceConfig holds configuration options for Service. Zero values select defaults.
type ServiceConfig struct {
	MaxUploadSize     int64
	AllowedExtensions []string
	CleanupThreshold  time.Duration
	CleanupTimeout    time.Duration // Timeout for best-effort deletes after a failed request (default: 30s)
	DownloadTTL       time.Duration
	Now               func() time.Time
	Logger            *slog.Logger
}

func NewService(repo MetadataRepo, store ObjectStore, cfg ServiceConfig) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("new service: %w: metadata repo is required", ErrInvalidInput)
	}
	if store == nil {
		return nil, fmt.Errorf("new service: %w: object store is required", ErrInvalidInput)
	}

	s := &Service{
		repo:              repo,
		store:             store,
		maxUploadSize:     cfg.MaxUploadSize,
		allowedExtensions: normalizeExtensions(cfg.AllowedExtensions),
		cleanupThreshold:  cfg.CleanupThreshold,
		cleanupTimeout:    cfg.CleanupTimeout,
		downloadTTL:       cfg.DownloadTTL,
		now:               cfg.Now,
		logger:            cfg.Logger,
	}

	if s.maxUploadSize <= 0 {
		s.maxUploadSize = DefaultMaxUploadSize
	}
	if len(s.allowedExtensions) == 0 {
		s.allowedExtensions = normalizeExtensions(DefaultAllowedExtensions)
	}
	if s.cleanupThreshold <= 0 {
		s.cleanupThreshold = DefaultCleanupThreshold
	}
	if s.cleanupTimeout <= 0 {
		s.cleanupTimeout = defaultCleanupTimeout
	}
	if s.downloadTTL <= 0 {
		s.downloadTTL = DefaultDownloadTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

// CreateIntent validates a declared upload, obtains an upload ticket and records
// a pending entry. Nothing is written when authorization or ticket issuance fails.
func (s *Service) CreateIntent(ctx context.Context, req IntentRequest) (IntentResult, error) {
	if err := ctx.Err(); err != nil {
		return IntentResult{}, fmt.Errorf("create intent: %w", err)
	}

	original := strings.TrimSpace(req.OriginalFilename)
	display := strings.TrimSpace(req.Filename)
	if original == "" {
		original = display
	}
	if display == "" {
		display = original
	}

	if original == "" {
		return IntentResult{}, fmt.Errorf("create intent: %w: filename is required", ErrInvalidInput)
	}
	if req.Size <= 0 {
		return IntentResult{}, fmt.Errorf("create intent: %w: size must be positive", ErrInvalidInput)
	}
	if req.Size > s.maxUploadSize {
		return IntentResult{}, fmt.Errorf("create intent: %w: size %d exceeds limit of %d bytes", ErrInvalidInput, req.Size, s.maxUploadSize)
	}

	ext := FileExtension(original)
	if _, ok := s.allowedExtensions[ext]; !ok {
		return IntentResult{}, fmt.Errorf("create intent: %w: file type .%s is not allowed", ErrInvalidInput, ext)
	}

	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = defaultContentType
	}

	id := uuid.NewString()
	objectName := ObjectNameFor(id, original)

	session, err := s.store.Authorize(ctx)
	if err != nil {
		return IntentResult{}, fmt.Errorf("create intent: %w", err)
	}

	ticket, err := session.UploadTicket(ctx, objectName, contentType, req.Size)
	if err != nil {
		return IntentResult{}, fmt.Errorf("create intent: upload ticket: %w", err)
	}

	record := FileRecord{
		ID:                id,
		StorageObjectName: objectName,
		DisplayName:       SanitizeDisplayName(display),
		OriginalName:      SanitizeDisplayName(original),
		ContentType:       contentType,
		Size:              req.Size,
		UploadedAt:        s.now().UTC(),
		Ready:             boolPtr(false),
	}

	err = s.repo.AtomicUpdate(ctx, func(records []FileRecord) ([]FileRecord, error) {
		return append(records, record), nil
	})
	if err != nil {
		return IntentResult{}, fmt.Errorf("create intent: record pending file: %w", err)
	}

	return IntentResult{ID: id, Ticket: ticket}, nil
}

// Commit verifies that the object announced by a pending record exists with the
// declared size and promotes the record. A missing object or a size mismatch
// purges the record; the client must start over with a new intent.
func (s *Service) Commit(ctx context.Context, id string) (CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return CommitResult{}, fmt.Errorf("commit: %w", err)
	}

	if strings.TrimSpace(id) == "" {
		return CommitResult{}, fmt.Errorf("commit: %w: id is required", ErrInvalidInput)
	}

	records, err := s.repo.List(ctx)
	if err != nil {
		return CommitResult{}, fmt.Errorf("commit %s: %w", id, err)
	}

	i, ok := findRecord(records, id)
	if !ok {
		return CommitResult{}, fmt.Errorf("commit %s: %w", id, ErrNotFound)
	}

	rec := records[i]
	if rec.IsReady() {
		return CommitResult{Already: true}, nil
	}

	session, err := s.store.Authorize(ctx)
	if err != nil {
		return CommitResult{}, fmt.Errorf("commit %s: %w", id, err)
	}

	info, err := s.findObject(ctx, session, rec.StorageObjectName)
	if errors.Is(err, ErrNotFound) {
		s.purgePending(id)
		return CommitResult{}, fmt.Errorf("commit %s: %w", id, ErrObjectMissing)
	}
	if err != nil {
		return CommitResult{}, fmt.Errorf("commit %s: %w", id, err)
	}

	if info.Size != rec.Size {
		s.deleteBestEffort(session, info)
		s.purgePending(id)
		return CommitResult{}, fmt.Errorf("commit %s: %w: expected %d bytes, found %d", id, ErrSizeMismatch, rec.Size, info.Size)
	}

	var already bool
	err = s.repo.AtomicUpdate(ctx, func(records []FileRecord) ([]FileRecord, error) {
		already = false
		i, ok := findRecord(records, id)
		if !ok {
			return nil, errRecordGone
		}
		if records[i].IsReady() {
			already = true
			return nil, ErrNoChange
		}
		records[i].Ready = boolPtr(true)
		return records, nil
	})
	if errors.Is(err, errRecordGone) {
		return CommitResult{}, fmt.Errorf("commit %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return CommitResult{}, fmt.Errorf("commit %s: %w", id, err)
	}

	return CommitResult{Already: already}, nil
}

type sweepDecision int

const (
	sweepDrop sweepDecision = iota + 1
	sweepPromote
)

// Cleanup reconciles pending records older than the threshold with the object
// store. Ready and legacy records are never touched. Decisions are applied in
// one metadata update against a fresh read, so records added or changed while
// the sweep runs are preserved.
func (s *Service) Cleanup(ctx context.Context, opts CleanupOptions) (CleanupResult, error) {
	if err := ctx.Err(); err != nil {
		return CleanupResult{}, fmt.Errorf("cleanup: %w", err)
	}

	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = s.cleanupThreshold
	}

	records, err := s.repo.List(ctx)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("cleanup: %w", err)
	}

	result := CleanupResult{Scanned: len(records)}
	if len(records) == 0 {
		return result, nil
	}

	now := s.now()
	decisions := make(map[string]sweepDecision)
	var session ObjectSession

	for _, rec := range records {
		if rec.IsReady() || rec.Age(now) < threshold {
			result.Kept++
			continue
		}

		if session == nil {
			session, err = s.store.Authorize(ctx)
			if err != nil {
				return CleanupResult{}, fmt.Errorf("cleanup: %w", err)
			}
		}

		info, err := s.findObject(ctx, session, rec.StorageObjectName)
		switch {
		case errors.Is(err, ErrNotFound):
			decisions[rec.ID] = sweepDrop
			result.Removed++
		case err != nil:
			s.logger.Warn("cleanup: verify object failed, keeping record",
				"id", rec.ID, "object", rec.StorageObjectName, "error", err)
			result.Kept++
		case info.Size != rec.Size:
			if err := session.DeleteObject(ctx, info); err != nil {
				s.logger.Warn("cleanup: delete mismatched object failed",
					"id", rec.ID, "object", info.Name, "error", err)
			} else {
				result.DeletedObjects++
			}
			decisions[rec.ID] = sweepDrop
			result.Removed++
		default:
			decisions[rec.ID] = sweepPromote
			result.Promoted++
			result.Kept++
		}
	}

	if len(decisions) == 0 {
		return result, nil
	}

	err = s.repo.AtomicUpdate(ctx, func(records []FileRecord) ([]FileRecord, error) {
		out := make([]FileRecord, 0, len(records))
		for _, rec := range records {
			d, ok := decisions[rec.ID]
			if !ok || !rec.IsPending() {
				out = append(out, rec)
				continue
			}
			if d == sweepPromote {
				rec.Ready = boolPtr(true)
				out = append(out, rec)
			}
		}
		return out, nil
	})
	if err != nil {
		return CleanupResult{}, fmt.Errorf("cleanup: apply decisions: %w", err)
	}

	return result, nil
}

// Delete removes a record. Deleting the stored object and cover is best-effort;
// the metadata removal happens even when the object store is unreachable.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	records, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("delete file %s: %w", id, err)
	}

	i, ok := findRecord(records, id)
	if !ok {
		return fmt.Errorf("delete file %s: %w", id, ErrNotFound)
	}
	rec := records[i]

	session, err := s.store.Authorize(ctx)
	if err != nil {
		s.logger.Warn("delete file: object store authorization failed, removing metadata only",
			"id", id, "error", err)
	} else {
		for _, name := range []string{rec.StorageObjectName, rec.CoverObjectName} {
			if name == "" {
				continue
			}
			info, err := s.findObject(ctx, session, name)
			if err != nil {
				if !errors.Is(err, ErrNotFound) {
					s.logger.Warn("delete file: lookup object failed", "id", id, "object", name, "error", err)
				}
				continue
			}
			if err := session.DeleteObject(ctx, info); err != nil {
				s.logger.Warn("delete file: delete object failed", "id", id, "object", name, "error", err)
			}
		}
	}

	err = s.repo.AtomicUpdate(ctx, func(records []FileRecord) ([]FileRecord, error) {
		i, ok := findRecord(records, id)
		if !ok {
			return nil, ErrNoChange
		}
		return append(records[:i:i], records[i+1:]...), nil
	})
	if err != nil {
		return fmt.Errorf("delete file %s: %w", id, err)
	}

	return nil
}

// List returns the ready and legacy records in stored order.
func (s *Service) List(ctx context.Context) ([]FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	visible := make([]FileRecord, 0, len(records))
	for _, rec := range records {
		if rec.IsReady() {
			visible = append(visible, rec)
		}
	}

	return visible, nil
}

// Get returns a ready record. Pending records are reported as not found.
func (s *Service) Get(ctx context.Context, id string) (FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, fmt.Errorf("get file: %w", err)
	}

	records, err := s.repo.List(ctx)
	if err != nil {
		return FileRecord{}, fmt.Errorf("get file %s: %w", id, err)
	}

	i, ok := findRecord(records, id)
	if !ok || !records[i].IsReady() {
		return FileRecord{}, fmt.Errorf("get file %s: %w", id, ErrNotFound)
	}

	return records[i], nil
}

// Open returns a ready record with a seekable reader over its object.
// The caller must close the reader.
func (s *Service) Open(ctx context.Context, id string) (FileRecord, ObjectInfo, io.ReadSeekCloser, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return FileRecord{}, ObjectInfo{}, nil, fmt.Errorf("open file: %w", err)
	}

	session, err := s.store.Authorize(ctx)
	if err != nil {
		return FileRecord{}, ObjectInfo{}, nil, fmt.Errorf("open file %s: %w", id, err)
	}

	content, info, err := session.Open(ctx, rec.StorageObjectName)
	if err != nil {
		return FileRecord{}, ObjectInfo{}, nil, fmt.Errorf("open file %s: %w", id, err)
	}

	return rec, info, content, nil
}

// DownloadLink returns a short-lived grant for fetching a ready record's
// object directly from the object store.
func (s *Service) DownloadLink(ctx context.Context, id string) (DownloadGrant, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return DownloadGrant{}, fmt.Errorf("download link: %w", err)
	}

	session, err := s.store.Authorize(ctx)
	if err != nil {
		return DownloadGrant{}, fmt.Errorf("download link %s: %w", id, err)
	}

	grant, err := session.DownloadAuthorization(ctx, rec.StorageObjectName, s.downloadTTL)
	if err != nil {
		return DownloadGrant{}, fmt.Errorf("download link %s: %w", id, err)
	}

	return grant, nil
}

// CreateCoverIntent issues an upload ticket for a record's cover image and
// stores the cover name on the record. Readiness is not affected.
func (s *Service) CreateCoverIntent(ctx context.Context, req CoverIntentRequest) (UploadTicket, error) {
	if err := ctx.Err(); err != nil {
		return UploadTicket{}, fmt.Errorf("create cover intent: %w", err)
	}

	if strings.TrimSpace(req.ID) == "" {
		return UploadTicket{}, fmt.Errorf("create cover intent: %w: id is required", ErrInvalidInput)
	}
	if req.Size < 0 || req.Size > s.maxUploadSize {
		return UploadTicket{}, fmt.Errorf("create cover intent: %w: invalid size %d", ErrInvalidInput, req.Size)
	}

	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if contentType == "" {
		contentType = defaultCoverType
	}
	if !strings.HasPrefix(contentType, "image/") {
		return UploadTicket{}, fmt.Errorf("create cover intent: %w: content type %s is not an image", ErrInvalidInput, contentType)
	}

	records, err := s.repo.List(ctx)
	if err != nil {
		return UploadTicket{}, fmt.Errorf("create cover intent %s: %w", req.ID, err)
	}
	if _, ok := findRecord(records, req.ID); !ok {
		return UploadTicket{}, fmt.Errorf("create cover intent %s: %w", req.ID, ErrNotFound)
	}

	name := CoverObjectNameFor(req.ID, req.OriginalFilename)

	session, err := s.store.Authorize(ctx)
	if err != nil {
		return UploadTicket{}, fmt.Errorf("create cover intent %s: %w", req.ID, err)
	}

	ticket, err := session.UploadTicket(ctx, name, contentType, req.Size)
	if err != nil {
		return UploadTicket{}, fmt.Errorf("create cover intent %s: upload ticket: %w", req.ID, err)
	}

	err = s.repo.AtomicUpdate(ctx, func(records []FileRecord) ([]FileRecord, error) {
		i, ok := findRecord(records, req.ID)
		if !ok {
			return nil, errRecordGone
		}
		records[i].CoverObjectName = name
		records[i].CoverContentType = contentType
		return records, nil
	})
	if errors.Is(err, errRecordGone) {
		return UploadTicket{}, fmt.Errorf("create cover intent %s: %w", req.ID, ErrNotFound)
	}
	if err != nil {
		return UploadTicket{}, fmt.Errorf("create cover intent %s: %w", req.ID, err)
	}

	return ticket, nil
}

// OpenCover returns a reader over a record's cover image.
func (s *Service) OpenCover(ctx context.Context, id string) (FileRecord, ObjectInfo, io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, ObjectInfo{}, nil, fmt.Errorf("open cover: %w", err)
	}

	records, err := s.repo.List(ctx)
	if err != nil {
		return FileRecord{}, ObjectInfo{}, nil, fmt.Errorf("open cover %s: %w", id, err)
	}

	i, ok := findRecord(records, id)
	if !ok || records[i].CoverObjectName == "" {
		return FileRecord{}, ObjectInfo{}, nil, fmt.Errorf("open cover %s: %w", id, ErrNotFound)
	}
	rec := records[i]

	session, err := s.store.Authorize(ctx)
	if err != nil {
		return FileRecord{}, ObjectInfo{}, nil, fmt.Errorf("open cover %s: %w", id, err)
	}

	content, info, err := session.Open(ctx, rec.CoverObjectName)
	if err != nil {
		return FileRecord{}, ObjectInfo{}, nil, fmt.Errorf("open cover %s: %w", id, err)
	}

	return rec, info, content, nil
}

// Update changes the display name or description of a ready record.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, fmt.Errorf("update file: %w", err)
	}

	if req.DisplayName == nil && req.Description == nil {
		return FileRecord{}, fmt.Errorf("update file %s: %w: nothing to update", id, ErrInvalidInput)
	}

	var displayName string
	if req.DisplayName != nil {
		if strings.TrimSpace(*req.DisplayName) == "" {
			return FileRecord{}, fmt.Errorf("update file %s: %w: display name cannot be empty", id, ErrInvalidInput)
		}
		displayName = SanitizeDisplayName(*req.DisplayName)
	}

	var updated FileRecord
	err := s.repo.AtomicUpdate(ctx, func(records []FileRecord) ([]FileRecord, error) {
		i, ok := findRecord(records, id)
		if !ok || !records[i].IsReady() {
			return nil, errRecordGone
		}
		if req.DisplayName != nil {
			records[i].DisplayName = displayName
		}
		if req.Description != nil {
			records[i].Description = strings.TrimSpace(*req.Description)
		}
		updated = records[i]
		return records, nil
	})
	if errors.Is(err, errRecordGone) {
		return FileRecord{}, fmt.Errorf("update file %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return FileRecord{}, fmt.Errorf("update file %s: %w", id, err)
	}

	return updated, nil
}

// Ping checks that the metadata document can be read.
func (s *Service) Ping(ctx context.Context) error {
	if _, err := s.repo.List(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Service) findObject(ctx context.Context, session ObjectSession, name string) (ObjectInfo, error) {
	if name == "" {
		return ObjectInfo{}, ErrNotFound
	}
	return session.FindByExactName(ctx, name)
}

// purgePending removes a record that can no longer be committed. It runs on a
// background context so a cancelled request still cleans up.
func (s *Service) purgePending(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
	defer cancel()

	err := s.repo.AtomicUpdate(ctx, func(records []FileRecord) ([]FileRecord, error) {
		i, ok := findRecord(records, id)
		if !ok || !records[i].IsPending() {
			return nil, ErrNoChange
		}
		return append(records[:i:i], records[i+1:]...), nil
	})
	if err != nil {
		s.logger.Warn("commit: purge pending record failed", "id", id, "error", err)
	}
}

func (s *Service) deleteBestEffort(session ObjectSession, info ObjectInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
	defer cancel()

	if err := session.DeleteObject(ctx, info); err != nil {
		s.logger.Warn("delete object failed", "object", info.Name, "error", err)
	}
}
