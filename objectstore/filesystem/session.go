package filesystem

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JohnyZhand/CoraBooks"
)

type session struct {
	store *Store
	auth  corabooks.Authorization
}

func (s *session) Authorization() corabooks.Authorization {
	return s.auth
}

// UploadTicket signs a fresh token for a PUT to the blob endpoint.
func (s *session) UploadTicket(ctx context.Context, name, contentType string, size int64) (corabooks.UploadTicket, error) {
	if err := ctx.Err(); err != nil {
		return corabooks.UploadTicket{}, err
	}

	if !corabooks.IsValidObjectName(name) {
		return corabooks.UploadTicket{}, fmt.Errorf("upload ticket %s: %w: invalid object name", name, corabooks.ErrInvalidInput)
	}

	token, expiresAt, err := s.store.signer.Sign(ScopeUpload, name, size, s.store.ticketTTL)
	if err != nil {
		return corabooks.UploadTicket{}, fmt.Errorf("upload ticket %s: %w", name, err)
	}

	headers := map[string]string{"Authorization": "Bearer " + token}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}

	return corabooks.UploadTicket{
		UploadURL:          s.store.blobURL(name),
		AuthorizationToken: token,
		ObjectName:         name,
		Method:             http.MethodPut,
		Headers:            headers,
		ExpiresAt:          expiresAt,
	}, nil
}

func (s *session) FindByExactName(ctx context.Context, name string) (corabooks.ObjectInfo, error) {
	return s.store.stat(ctx, name)
}

func (s *session) DeleteObject(ctx context.Context, info corabooks.ObjectInfo) error {
	return s.store.remove(ctx, info.Name)
}

// DownloadAuthorization signs a token readable by the blob endpoint's GET.
func (s *session) DownloadAuthorization(ctx context.Context, prefix string, ttl time.Duration) (corabooks.DownloadGrant, error) {
	if err := ctx.Err(); err != nil {
		return corabooks.DownloadGrant{}, err
	}

	token, expiresAt, err := s.store.signer.Sign(ScopeDownload, prefix, 0, ttl)
	if err != nil {
		return corabooks.DownloadGrant{}, fmt.Errorf("download authorization %s: %w", prefix, err)
	}

	return corabooks.DownloadGrant{
		URL:       s.store.blobURL(prefix) + "?token=" + token,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *session) Open(ctx context.Context, name string) (io.ReadSeekCloser, corabooks.ObjectInfo, error) {
	return s.store.open(ctx, name)
}
