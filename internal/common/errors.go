package common

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable, user-visible classification of an upload failure.
// Kinds are surfaced on upload records and matched by the CLI when rendering
// errors; they are part of the client's observable contract, not transient
// implementation detail.
type ErrorKind string

const (
	KindNetworkUnavailable ErrorKind = "network_unavailable"
	KindStorageUnavailable ErrorKind = "storage_unavailable"
	KindPermissionDenied   ErrorKind = "permission_denied"
	KindValidationFailed   ErrorKind = "validation_failed"
	KindDiskFull           ErrorKind = "disk_full"
	KindUploadTimeout      ErrorKind = "upload_timeout"
	KindCancelled          ErrorKind = "cancelled"
	KindCompressionFailed  ErrorKind = "compression_failed"
	KindHashUnavailable    ErrorKind = "hash_unavailable"
	KindUnknown            ErrorKind = "unknown_error"
)

// UploadError carries the kind, a human-readable message and, when the
// failure originated from an HTTP response, the status code.
type UploadError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
}

func (e *UploadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewUploadError builds an UploadError without an HTTP status.
func NewUploadError(kind ErrorKind, msg string) *UploadError {
	return &UploadError{Kind: kind, Message: msg}
}

// KindOf extracts the ErrorKind from err. Errors that do not wrap an
// UploadError are classified as KindUnknown.
func KindOf(err error) ErrorKind {
	var ue *UploadError
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return KindUnknown
}

var (
	// ErrUnauthorized is returned when the stored token is missing, expired
	// or rejected by the server.
	ErrUnauthorized = errors.New("unauthorized")
)
