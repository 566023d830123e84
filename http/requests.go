package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/JohnyZhand/CoraBooks"
)

const maxJSONBodySize = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type intentRequest struct {
	Filename         string `json:"filename" validate:"required_without=OriginalFilename,max=1024"`
	OriginalFilename string `json:"originalFilename" validate:"max=1024"`
	ContentType      string `json:"contentType" validate:"max=255"`
	Size             int64  `json:"size" validate:"gt=0"`
}

type commitRequest struct {
	ID string `json:"id" validate:"required,max=128"`
}

// maxThresholdMs is the largest threshold in milliseconds that fits a time.Duration.
const maxThresholdMs = math.MaxInt64 / int64(time.Millisecond)

type cleanupRequest struct {
	ThresholdMs *int64 `json:"thresholdMs"`
}

// threshold converts ThresholdMs. Zero means the service default and values
// past the Duration range are clamped to the maximum.
func (r cleanupRequest) threshold() time.Duration {
	switch {
	case r.ThresholdMs == nil || *r.ThresholdMs <= 0:
		return 0
	case *r.ThresholdMs > maxThresholdMs:
		return time.Duration(math.MaxInt64)
	default:
		return time.Duration(*r.ThresholdMs) * time.Millisecond
	}
}

type coverIntentRequest struct {
	ID               string `json:"id" validate:"required,max=128"`
	OriginalFilename string `json:"originalFilename" validate:"max=1024"`
	ContentType      string `json:"contentType" validate:"max=255"`
	Size             int64  `json:"size" validate:"gte=0"`
}

type updateRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,max=1024"`
	Description *string `json:"description" validate:"omitempty,max=4096"`
}

// decodeJSON reads a JSON body into dst and validates it. An empty body is
// accepted when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)

	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) && allowEmpty {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", corabooks.ErrInvalidInput, err)
	}

	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", corabooks.ErrInvalidInput, err)
	}

	return nil
}
