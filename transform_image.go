// Package optimize implements a website archive optimization pipeline.
// This file contains the image transform: lossless-ish re-encoding.
package optimize

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"image/png"

	_ "image/gif" // registered for format detection only; GIFs pass through
)

// DefaultJPEGQuality is the JPEG re-encode quality used when the caller
// does not configure one.
const DefaultJPEGQuality = 85

// imageTransformer re-encodes raster images:
//   - PNG at maximum compression
//   - JPEG at the configured quality
//   - everything else (GIF, WebP, ICO, ...) passes through Skipped;
//     re-encoding those either needs cgo encoders or loses animation
//
// A re-encode that fails to shrink the file keeps the original bytes, which
// also makes the transform idempotent: its own output never shrinks again.
type imageTransformer struct{}

func newImageTransformer() *imageTransformer {
	return &imageTransformer{}
}

// Transform re-encodes src when a smaller encoding is possible.
func (t *imageTransformer) Transform(_ context.Context, src []byte, opts TransformOptions) ([]byte, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrSkipTransform
		}
		return nil, err
	}

	switch format {
	case "png":
		return t.reencodePNG(src)
	case "jpeg":
		return t.reencodeJPEG(src, opts.JPEGQuality)
	default:
		return nil, ErrSkipTransform
	}
}

func (t *imageTransformer) reencodePNG(src []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	if buf.Len() >= len(src) {
		return nil, ErrSkipTransform
	}
	return buf.Bytes(), nil
}

func (t *imageTransformer) reencodeJPEG(src []byte, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	img, err := jpeg.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	if buf.Len() >= len(src) {
		return nil, ErrSkipTransform
	}
	return buf.Bytes(), nil
}
