// Package models defines the domain types shared by the TamteKlipy client:
// upload payloads, upload records, chunk descriptors and clip metadata.
package models

import (
	"io"
	"strings"
)

// Payload is the byte source of one logical upload: an immutable, randomly
// seekable sequence with a size, a declared media type and a display name.
// Data must stay valid for the lifetime of the upload.
type Payload struct {
	Filename  string
	Size      int64
	MediaType string
	Data      io.ReaderAt
}

// IsImage reports whether the declared media type is an image and the
// payload is therefore eligible for pre-upload compression.
func (p Payload) IsImage() bool {
	return strings.HasPrefix(p.MediaType, "image/")
}

// Reader returns a fresh reader over the whole payload. Each call seeks
// from the beginning, so the payload can be consumed repeatedly (hashing,
// then transfer).
func (p Payload) Reader() io.Reader {
	return io.NewSectionReader(p.Data, 0, p.Size)
}
