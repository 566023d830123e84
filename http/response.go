package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JohnyZhand/CoraBooks"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	writeError(slog.Default(), w, code, ErrorResponse{Error: errCode, Message: message})
}

func writeError(logger *slog.Logger, w http.ResponseWriter, code int, resp ErrorResponse) {
	resp.OK = false
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error type.
// Unexpected errors are logged through slog.Default.
func HandleError(w http.ResponseWriter, err error) {
	handleError(slog.Default(), w, err)
}

func handleError(logger *slog.Logger, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, corabooks.ErrNotFound):
		writeError(logger, w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "File not found"})
	case errors.Is(err, corabooks.ErrInvalidInput):
		writeError(logger, w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: err.Error()})
	case errors.Is(err, corabooks.ErrUnauthorized):
		writeError(logger, w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Unauthorized"})
	case errors.Is(err, corabooks.ErrObjectMissing):
		writeError(logger, w, http.StatusGone, ErrorResponse{
			Error:   "object_missing",
			Message: "Uploaded object not found, start a new upload",
			Reason:  "object_missing",
		})
	case errors.Is(err, corabooks.ErrSizeMismatch):
		writeError(logger, w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "size_mismatch",
			Message: "Uploaded object does not match the declared size, start a new upload",
			Reason:  "size_mismatch",
		})
	case errors.Is(err, corabooks.ErrConflict):
		writeError(logger, w, http.StatusConflict, ErrorResponse{
			Error:   "conflict",
			Message: "Concurrent update, try again",
			Reason:  "conflict",
		})
	case errors.Is(err, corabooks.ErrAuth):
		logger.Error("object store authorization failed", "error", err)
		writeError(logger, w, http.StatusBadGateway, ErrorResponse{Error: "storage_unavailable", Message: "Object store rejected the credentials"})
	default:
		logger.Error("request error", "error", err)
		writeError(logger, w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Internal server error"})
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
