package imagex

import "errors"

var (
	// ErrDecode indicates the payload declared an image media type but could
	// not be decoded.
	ErrDecode = errors.New("image decode failed")

	// ErrEncode indicates the re-encode produced no usable bytes, or no
	// encoder exists for the requested output media type.
	ErrEncode = errors.New("image encode failed")
)
