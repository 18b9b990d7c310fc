package models

import (
	"io"

	"github.com/tamteklipy/tkcli/internal/common"
)

// UploadStatus is the observable lifecycle state of an upload record.
type UploadStatus string

const (
	StatusPending    UploadStatus = "pending"
	StatusUploading  UploadStatus = "uploading"
	StatusFinalizing UploadStatus = "finalizing"
	StatusComplete   UploadStatus = "complete"
	StatusError      UploadStatus = "error"
	StatusCancelled  UploadStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed from s.
func (s UploadStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError || s == StatusCancelled
}

// UploadMode selects the transfer path for one upload.
type UploadMode string

const (
	ModeSingleShot UploadMode = "single-shot"
	ModeChunked    UploadMode = "chunked"
)

// UploadRecord is the observable state of one logical upload, keyed by a
// client-generated id. Records are mutated only by the upload coordinator
// and scheduler and reach exactly one terminal status.
type UploadRecord struct {
	ID        string
	Filename  string
	Size      int64
	MediaType string
	Mode      UploadMode

	// Chunked path only.
	TotalChunks int
	ChunksDone  int

	// Progress is an integer percent in [0,100], monotonically
	// non-decreasing while the record is non-terminal.
	Progress int

	Status UploadStatus

	// ClipID is the backend-assigned resource id, set only on StatusComplete.
	ClipID int64

	// ErrKind and ErrMessage describe the terminal failure, set only on
	// StatusError.
	ErrKind    common.ErrorKind
	ErrMessage string
}

// Chunk describes one outbound chunk request of a chunked upload. All chunks
// of an upload share the same UploadID so the backend can reassemble them;
// FileHash is set only on the chunk whose Index equals Total-1.
type Chunk struct {
	UploadID string
	Index    int
	Total    int
	Filename string
	Size     int64
	Data     io.Reader
	FileHash string
}
