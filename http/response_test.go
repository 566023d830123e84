package http_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JohnyZhand/CoraBooks"
	cbhttp "github.com/JohnyZhand/CoraBooks/http"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "not found", err: corabooks.ErrNotFound, wantCode: http.StatusNotFound, wantErr: "not_found"},
		{name: "invalid input", err: corabooks.ErrInvalidInput, wantCode: http.StatusBadRequest, wantErr: "invalid_request"},
		{name: "unauthorized", err: corabooks.ErrUnauthorized, wantCode: http.StatusUnauthorized, wantErr: "unauthorized"},
		{name: "object missing", err: corabooks.ErrObjectMissing, wantCode: http.StatusGone, wantErr: "object_missing"},
		{name: "size mismatch", err: corabooks.ErrSizeMismatch, wantCode: http.StatusUnprocessableEntity, wantErr: "size_mismatch"},
		{name: "conflict", err: corabooks.ErrConflict, wantCode: http.StatusConflict, wantErr: "conflict"},
		{name: "upstream auth", err: corabooks.ErrAuth, wantCode: http.StatusBadGateway, wantErr: "storage_unavailable"},
		{name: "internal", err: errors.New("some unexpected error"), wantCode: http.StatusInternalServerError, wantErr: "internal_error"},
		{name: "wrapped not found", err: fmt.Errorf("get file x: %w", corabooks.ErrNotFound), wantCode: http.StatusNotFound, wantErr: "not_found"},
		{name: "joined not found", err: errors.Join(errors.New("context"), corabooks.ErrNotFound), wantCode: http.StatusNotFound, wantErr: "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			cbhttp.HandleError(rec, tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), `"ok":false`)
			assert.Contains(t, rec.Body.String(), `"error":"`+tt.wantErr+`"`)
		})
	}
}

func TestWriteError_Success(t *testing.T) {
	rec := httptest.NewRecorder()

	cbhttp.WriteError(rec, http.StatusBadRequest, "bad_request", "Invalid request")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":false,"error":"bad_request","message":"Invalid request"}`, rec.Body.String())
}

func TestWriteJSON_Success(t *testing.T) {
	rec := httptest.NewRecorder()

	data := map[string]string{"key": "value"}
	err := cbhttp.WriteJSON(rec, http.StatusOK, data)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"key":"value"`)
}
