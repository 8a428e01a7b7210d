package camera

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// DefaultQuality is the JPEG quality used when none is given
const DefaultQuality = 90

// ErrNilFrame is returned when EncodeJPEG is called without a frame
var ErrNilFrame = errors.New("no frame to encode")

// EncodeJPEG transcodes a frame to JPEG, downscaling first if the frame
// is wider than maxWidth (0 disables scaling). Pure function; safe to
// call concurrently against separate frames.
func EncodeJPEG(frame image.Image, quality, maxWidth int) ([]byte, error) {
	if frame == nil {
		return nil, ErrNilFrame
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	if maxWidth > 0 && frame.Bounds().Dx() > maxWidth {
		frame = downscale(frame, maxWidth)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// downscale resizes src to maxWidth, preserving aspect ratio
func downscale(src image.Image, maxWidth int) image.Image {
	b := src.Bounds()
	height := b.Dy() * maxWidth / b.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
