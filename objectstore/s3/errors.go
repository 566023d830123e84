package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"github.com/JohnyZhand/CoraBooks"
)

func httpStatusCode(err error) (int, bool) {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode(), true
	}
	var statusErr interface{ HTTPStatusCode() int }
	if errors.As(err, &statusErr) {
		return statusErr.HTTPStatusCode(), true
	}
	return 0, false
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	if status, ok := httpStatusCode(err); ok {
		return status == http.StatusNotFound
	}
	return false
}

func isAuthFailure(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken",
			"InvalidToken", "Forbidden", "Unauthorized", "NoSuchBucket":
			return true
		}
	}
	if status, ok := httpStatusCode(err); ok {
		return status == http.StatusUnauthorized || status == http.StatusForbidden
	}
	return false
}

// classifyError maps S3 errors onto the corabooks sentinels.
func classifyError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", operation, err)
	}

	if isNotFound(err) {
		return fmt.Errorf("%s: %w", operation, corabooks.ErrNotFound)
	}

	if isAuthFailure(err) {
		return fmt.Errorf("%s: %w: %v", operation, corabooks.ErrAuth, err)
	}

	return fmt.Errorf("%s: %w", operation, err)
}
