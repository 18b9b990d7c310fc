package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tamteklipy/tkcli/internal/common"
)

// mapTransportError classifies request failures that produced no HTTP
// response: cooperative aborts, deadlines and plain connectivity loss.
func mapTransportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return common.NewUploadError(common.KindCancelled, "upload cancelled")
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return common.NewUploadError(common.KindUploadTimeout, "upload deadline exceeded")
	default:
		return &common.UploadError{
			Kind:    common.KindNetworkUnavailable,
			Message: fmt.Sprintf("no response from server: %v", err),
		}
	}
}

// mapStatusError translates a backend error response into an upload error
// kind. The backend reports detail as JSON {"detail": ...}; raw text is kept
// when the payload does not parse.
func mapStatusError(status int, body []byte) error {
	msg := errorDetail(body)

	kind := common.KindUnknown
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = common.KindPermissionDenied
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		kind = common.KindValidationFailed
	case status == http.StatusInsufficientStorage:
		kind = common.KindDiskFull
	case status == http.StatusInternalServerError:
		kind = classifyServerError(msg)
	}

	return &common.UploadError{Kind: kind, Message: msg, StatusCode: status}
}

// classifyServerError picks apart 500 responses: the backend reports an
// unwritable storage volume and an exhausted disk through the same status.
func classifyServerError(msg string) common.ErrorKind {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "no space") ||
		strings.Contains(lower, "disk full") ||
		strings.Contains(lower, "insufficient space"):
		return common.KindDiskFull
	case strings.Contains(lower, "read-only") ||
		strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "not writable") ||
		strings.Contains(lower, "no such file or directory"):
		return common.KindStorageUnavailable
	default:
		return common.KindUnknown
	}
}

func errorDetail(body []byte) string {
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Detail) > 0 {
		var s string
		if err := json.Unmarshal(parsed.Detail, &s); err == nil {
			return s
		}
		// field-level validation detail: keep the raw JSON
		return string(parsed.Detail)
	}
	return strings.TrimSpace(string(body))
}
