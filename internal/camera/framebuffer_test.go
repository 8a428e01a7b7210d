package camera

import (
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformFrame(v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, color.RGBA{R: v, A: 255})
		}
	}
	return img
}

func TestFrameBufferEmptyUntilFirstPublish(t *testing.T) {
	buf := NewFrameBuffer()

	_, _, ok := buf.Read()
	assert.False(t, ok)

	published := time.Now()
	buf.Publish(uniformFrame(7), published)

	frame, capturedAt, ok := buf.Read()
	require.True(t, ok)
	assert.Equal(t, published, capturedAt)
	assert.Equal(t, uint8(7), frame.(*image.RGBA).RGBAAt(0, 0).R)
}

func TestFrameBufferLastWriterWins(t *testing.T) {
	buf := NewFrameBuffer()
	buf.Publish(uniformFrame(1), time.Unix(1, 0))
	buf.Publish(uniformFrame(2), time.Unix(2, 0))

	frame, capturedAt, ok := buf.Read()
	require.True(t, ok)
	assert.Equal(t, int64(2), capturedAt.Unix())
	assert.Equal(t, uint8(2), frame.(*image.RGBA).RGBAAt(0, 0).R)
}

// Each published frame's pixel value matches its capture timestamp, so a
// reader observing a frame from one publish with the timestamp of
// another proves a torn read.
func TestFrameBufferNoTornReads(t *testing.T) {
	buf := NewFrameBuffer()

	var torn, readsAfterFirst atomic.Int64
	done := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				frame, capturedAt, ok := buf.Read()
				if !ok {
					continue
				}
				readsAfterFirst.Add(1)
				v := frame.(*image.RGBA).RGBAAt(0, 0).R
				if int64(v) != capturedAt.Unix() {
					torn.Add(1)
				}
			}
		}()
	}

	for i := 0; i < 2000; i++ {
		v := uint8(i % 256)
		buf.Publish(uniformFrame(v), time.Unix(int64(v), 0))
	}
	close(done)
	wg.Wait()

	assert.Zero(t, torn.Load(), "observed torn reads")
	assert.Positive(t, readsAfterFirst.Load())
}

func TestFrameBufferMonotonicAvailability(t *testing.T) {
	buf := NewFrameBuffer()
	buf.Publish(uniformFrame(1), time.Now())

	for i := 0; i < 100; i++ {
		_, _, ok := buf.Read()
		require.True(t, ok)
	}
}
