package camera

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeJPEG(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 64, 48))

	data, err := EncodeJPEG(frame, 80, 0)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 48, cfg.Height)
}

func TestEncodeJPEGDownscales(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 64, 48))

	data, err := EncodeJPEG(frame, 80, 32)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 24, cfg.Height)
}

func TestEncodeJPEGNarrowFrameNotScaled(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 20, 10))

	data, err := EncodeJPEG(frame, 80, 32)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Width)
}

func TestEncodeJPEGNilFrame(t *testing.T) {
	_, err := EncodeJPEG(nil, 80, 0)
	assert.ErrorIs(t, err, ErrNilFrame)
}

func TestEncodeJPEGQualityFallback(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 8, 8))

	data, err := EncodeJPEG(frame, -5, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
