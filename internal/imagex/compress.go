// Package imagex re-encodes image payloads before upload so that typical
// screenshots fit the single-shot transfer path. Non-image payloads pass
// through untouched.
package imagex

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/tamteklipy/tkcli/internal/client/models"
)

const (
	// DefaultMaxDimension caps the longest edge of a re-encoded image.
	DefaultMaxDimension = 1920

	// DefaultQuality is the lossy-encoder quality in [0,1]. Lossless formats
	// (PNG, GIF) ignore it.
	DefaultQuality = 0.85
)

// Options tune one compression pass. Zero values mean defaults; an empty
// OutputMediaType keeps the input's media type.
type Options struct {
	MaxDimension    int
	Quality         float64
	OutputMediaType string
}

func (o Options) withDefaults() Options {
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.Quality <= 0 || o.Quality > 1 {
		o.Quality = DefaultQuality
	}
	return o
}

// Compress re-encodes an image payload with its longest edge clamped to
// opts.MaxDimension, preserving aspect ratio. Payloads whose declared media
// type is not an image are returned unchanged, as is any image whose
// re-encode turns out larger than the original.
func Compress(p models.Payload, opts Options) (models.Payload, error) {
	if !p.IsImage() {
		return p, nil
	}
	opts = opts.withDefaults()

	raw, err := io.ReadAll(p.Reader())
	if err != nil {
		return models.Payload{}, fmt.Errorf("reading image: %w", err)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return models.Payload{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	newW, newH := clampLongestEdge(w, h, opts.MaxDimension)

	if newW != w || newH != h {
		dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
		draw.BiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
		src = dst
	}

	target := opts.OutputMediaType
	if target == "" {
		target = p.MediaType
	}

	encoded, err := encode(src, target, opts.Quality)
	if err != nil {
		return models.Payload{}, err
	}
	if len(encoded) == 0 {
		return models.Payload{}, ErrEncode
	}

	// Keep the original when re-encoding did not help.
	if int64(len(encoded)) >= p.Size {
		return p, nil
	}

	return models.Payload{
		Filename:  p.Filename,
		Size:      int64(len(encoded)),
		MediaType: target,
		Data:      bytes.NewReader(encoded),
	}, nil
}

// clampLongestEdge scales (w,h) down so the longer edge equals max,
// preserving aspect ratio. Images already within the cap keep their size.
func clampLongestEdge(w, h, max int) (int, int) {
	longest := w
	if h > w {
		longest = h
	}
	if longest <= max {
		return w, h
	}

	scale := float64(max) / float64(longest)
	newW := int(math.Round(float64(w) * scale))
	newH := int(math.Round(float64(h) * scale))
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	return newW, newH
}

func encode(img image.Image, mediaType string, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch mediaType {
	case "image/jpeg", "image/jpg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: int(math.Round(quality * 100))})
	case "image/png":
		err = png.Encode(&buf, img)
	case "image/gif":
		err = gif.Encode(&buf, img, nil)
	default:
		// webp and friends are decodable but not encodable here
		return nil, fmt.Errorf("%w: no encoder for %s", ErrEncode, mediaType)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}
