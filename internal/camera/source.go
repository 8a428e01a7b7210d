// Package camera keeps a camera or network video stream open and serves
// the most recent frame to concurrent readers.
package camera

import (
	"errors"
	"fmt"
	"image"
	"strconv"

	"gocv.io/x/gocv"
)

// Kind distinguishes local devices from network streams. The two use
// different read rates and reopen delays.
type Kind int

const (
	KindDevice Kind = iota
	KindStream
)

// Handle is one open connection to a video source. A Handle is owned
// exclusively by the capture loop and is never shared.
type Handle interface {
	// Read decodes the next frame. Any error means the handle is broken
	// and must be closed and reopened.
	Read() (image.Image, error)
	Close() error
}

// Source opens capture handles. Open may be called repeatedly over the
// life of the process as handles fail or age out.
type Source interface {
	Open() (Handle, error)
	Kind() Kind
	String() string
}

// VideoSource is a gocv-backed Source. A numeric source is treated as a
// local device index, anything else as a stream URL.
type VideoSource struct {
	source string
	kind   Kind
}

var _ Source = (*VideoSource)(nil)

// NewVideoSource creates a VideoSource for a device index or stream URL
func NewVideoSource(source string) *VideoSource {
	kind := KindStream
	if _, err := strconv.Atoi(source); err == nil {
		kind = KindDevice
	}
	return &VideoSource{source: source, kind: kind}
}

// Open opens a new capture handle
func (s *VideoSource) Open() (Handle, error) {
	var cap *gocv.VideoCapture
	var err error

	if s.kind == KindDevice {
		idx, _ := strconv.Atoi(s.source)
		cap, err = gocv.OpenVideoCapture(idx)
	} else {
		cap, err = gocv.OpenVideoCapture(s.source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.source, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("source %s did not open", s.source)
	}

	mat := gocv.NewMat()
	return &gocvHandle{cap: cap, mat: &mat}, nil
}

// Kind returns whether this is a device or stream source
func (s *VideoSource) Kind() Kind {
	return s.kind
}

func (s *VideoSource) String() string {
	return s.source
}

// gocvHandle wraps an open gocv capture. The scratch Mat is reused
// between reads; ToImage copies it out, so published frames never alias
// the capture buffer.
type gocvHandle struct {
	cap *gocv.VideoCapture
	mat *gocv.Mat
}

func (h *gocvHandle) Read() (image.Image, error) {
	if ok := h.cap.Read(h.mat); !ok {
		return nil, errors.New("capture read failed")
	}
	if h.mat.Empty() {
		return nil, errors.New("capture returned empty frame")
	}
	img, err := h.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	return img, nil
}

func (h *gocvHandle) Close() error {
	h.mat.Close()
	return h.cap.Close()
}
