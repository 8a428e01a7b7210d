package camera

import (
	"image"
	"sync"
	"time"
)

// FrameBuffer is a single-slot cache of the most recent frame. The
// capture loop is the only writer; any number of request handlers read
// concurrently. All access goes through one mutex, so a reader never
// observes a partially published frame.
type FrameBuffer struct {
	mu         sync.Mutex
	frame      image.Image
	capturedAt time.Time
}

// NewFrameBuffer creates an empty FrameBuffer
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// Publish replaces the slot unconditionally. Last-writer-wins is fine
// here because there is exactly one writer per buffer.
func (b *FrameBuffer) Publish(frame image.Image, capturedAt time.Time) {
	b.mu.Lock()
	b.frame = frame
	b.capturedAt = capturedAt
	b.mu.Unlock()
}

// Read returns the current frame and its capture time, or ok=false if no
// frame has ever been published. Once a frame has been published the
// buffer never reports empty again; the last good frame is retained even
// if the source later fails.
func (b *FrameBuffer) Read() (frame image.Image, capturedAt time.Time, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame == nil {
		return nil, time.Time{}, false
	}
	return b.frame, b.capturedAt, true
}
