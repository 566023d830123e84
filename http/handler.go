package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JohnyZhand/CoraBooks"
)

type Service interface {
	CreateIntent(ctx context.Context, req corabooks.IntentRequest) (corabooks.IntentResult, error)
	Commit(ctx context.Context, id string) (corabooks.CommitResult, error)
	Cleanup(ctx context.Context, opts corabooks.CleanupOptions) (corabooks.CleanupResult, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]corabooks.FileRecord, error)
	Get(ctx context.Context, id string) (corabooks.FileRecord, error)
	Open(ctx context.Context, id string) (corabooks.FileRecord, corabooks.ObjectInfo, io.ReadSeekCloser, error)
	DownloadLink(ctx context.Context, id string) (corabooks.DownloadGrant, error)
	CreateCoverIntent(ctx context.Context, req corabooks.CoverIntentRequest) (corabooks.UploadTicket, error)
	OpenCover(ctx context.Context, id string) (corabooks.FileRecord, corabooks.ObjectInfo, io.ReadSeekCloser, error)
	Update(ctx context.Context, id string, req corabooks.UpdateRequest) (corabooks.FileRecord, error)
	Ping(ctx context.Context) error
}

// BlobStore serves direct uploads and downloads for object stores that have no
// endpoint of their own. Both operations verify the signed token.
type BlobStore interface {
	Write(ctx context.Context, token, name string, content io.Reader) (corabooks.ObjectInfo, error)
	Read(ctx context.Context, token, name string) (io.ReadSeekCloser, corabooks.ObjectInfo, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	AdminKey string
	CORS     CORSConfig
	// Blobs mounts /blob/{name} when set.
	Blobs  BlobStore
	Logger *slog.Logger
}

// Handler provides the CoraBooks HTTP API.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:  *config,
		service: service,
	}
}

func (h *Handler) logger() *slog.Logger {
	if h.config.Logger == nil {
		return slog.Default()
	}
	return h.config.Logger
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	handleError(h.logger(), w, err)
}

// Router returns an http.Handler with all routes configured.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.config.Logger))
	r.Use(middleware.Recoverer)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/healthz", h.handleHealth)

	r.Post("/upload-intent", h.handleUploadIntent)
	r.Post("/commit", h.handleCommit)
	r.Post("/cover-intent", h.handleCoverIntent)

	r.Get("/files", h.handleList)
	r.Get("/files/{id}", h.handleGetFile)
	r.Get("/download/{id}", h.handleDownload)
	r.Get("/download/{id}/link", h.handleDownloadLink)
	r.Get("/cover/{id}", h.handleCover)

	r.Group(func(r chi.Router) {
		r.Use(AdminMiddleware(h.config.AdminKey))
		r.Patch("/files/{id}", h.handleUpdate)
		r.Delete("/files/{id}", h.handleDelete)
		r.Post("/admin/cleanup", h.handleCleanup)
		r.Get("/admin/status", h.handleAdminStatus)
	})

	if h.config.Blobs != nil {
		r.Put("/blob/{name}", h.handleBlobPut)
		r.Get("/blob/{name}", h.handleBlobGet)
	}

	return r
}

type okResponse struct {
	OK bool `json:"ok"`
}

type intentResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
	corabooks.UploadTicket
}

type commitResponse struct {
	OK      bool `json:"ok"`
	Already bool `json:"already,omitempty"`
}

type linkResponse struct {
	OK bool `json:"ok"`
	corabooks.DownloadGrant
}

type coverIntentResponse struct {
	OK bool `json:"ok"`
	corabooks.UploadTicket
}

type blobResponse struct {
	OK         bool   `json:"ok"`
	ObjectName string `json:"objectName"`
	Size       int64  `json:"size"`
	ETag       string `json:"etag"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger().Error("health check failed", "error", err)
		_ = WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}

	_ = WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *Handler) handleUploadIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.handleError(w, err)
		return
	}

	result, err := h.service.CreateIntent(r.Context(), corabooks.IntentRequest{
		Filename:         req.Filename,
		OriginalFilename: req.OriginalFilename,
		ContentType:      req.ContentType,
		Size:             req.Size,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, intentResponse{OK: true, ID: result.ID, UploadTicket: result.Ticket})
}

func (h *Handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.handleError(w, err)
		return
	}

	result, err := h.service.Commit(r.Context(), req.ID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, commitResponse{OK: true, Already: result.Already})
}

func (h *Handler) handleCoverIntent(w http.ResponseWriter, r *http.Request) {
	var req coverIntentRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.handleError(w, err)
		return
	}

	ticket, err := h.service.CreateCoverIntent(r.Context(), corabooks.CoverIntentRequest{
		ID:               req.ID,
		OriginalFilename: req.OriginalFilename,
		ContentType:      req.ContentType,
		Size:             req.Size,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, coverIntentResponse{OK: true, UploadTicket: ticket})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) handleGetFile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.handleError(w, err)
		return
	}

	rec, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), corabooks.UpdateRequest{
		DisplayName: req.DisplayName,
		Description: req.Description,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	rec, info, content, err := h.service.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	defer func() { _ = content.Close() }()

	kind := "attachment"
	if r.URL.Query().Get("inline") == "1" {
		kind = "inline"
	}

	w.Header().Set("Content-Type", firstNonEmpty(rec.ContentType, info.ContentType, "application/octet-stream"))
	w.Header().Set("Content-Disposition", contentDisposition(kind, rec.DownloadName()))
	if info.ETag != "" {
		w.Header().Set("ETag", `"`+info.ETag+`"`)
	}

	http.ServeContent(w, r, "", info.LastModified, content)
}

func (h *Handler) handleDownloadLink(w http.ResponseWriter, r *http.Request) {
	grant, err := h.service.DownloadLink(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, linkResponse{OK: true, DownloadGrant: grant})
}

func (h *Handler) handleCover(w http.ResponseWriter, r *http.Request) {
	rec, info, content, err := h.service.OpenCover(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	defer func() { _ = content.Close() }()

	w.Header().Set("Content-Type", firstNonEmpty(rec.CoverContentType, info.ContentType, "image/jpeg"))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if info.ETag != "" {
		w.Header().Set("ETag", `"`+info.ETag+`"`)
	}

	http.ServeContent(w, r, "", info.LastModified, content)
}

func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		h.logger().Debug("ignoring cleanup body", "error", err)
		req = cleanupRequest{}
	}

	result, err := h.service.Cleanup(r.Context(), corabooks.CleanupOptions{Threshold: req.threshold()})
	if err != nil {
		h.handleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleAdminStatus(w http.ResponseWriter, _ *http.Request) {
	_ = WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) handleBlobPut(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !corabooks.IsValidObjectName(name) {
		WriteError(w, http.StatusBadRequest, "invalid_path", "Invalid object name")
		return
	}

	info, err := h.config.Blobs.Write(r.Context(), blobToken(r), name, r.Body)
	if err != nil {
		h.handleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, blobResponse{OK: true, ObjectName: info.Name, Size: info.Size, ETag: info.ETag})
}

func (h *Handler) handleBlobGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !corabooks.IsValidObjectName(name) {
		WriteError(w, http.StatusBadRequest, "invalid_path", "Invalid object name")
		return
	}

	content, info, err := h.config.Blobs.Read(r.Context(), blobToken(r), name)
	if err != nil {
		h.handleError(w, err)
		return
	}
	defer func() { _ = content.Close() }()

	w.Header().Set("Content-Type", firstNonEmpty(info.ContentType, "application/octet-stream"))
	http.ServeContent(w, r, "", info.LastModified, content)
}

// blobToken reads a bearer token, falling back to the token query parameter
// used by download links.
func blobToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
