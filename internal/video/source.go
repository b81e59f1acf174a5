// Package video defines the frame source consumed by the pipeline. Decoding
// lives in the capture subpackage so that callers without OpenCV can use the
// synthetic sources here.
package video

import (
	"errors"
	"fmt"
	"io"
)

// ErrOpen is returned when a source cannot be opened. It is the only fatal
// condition of a run.
var ErrOpen = errors.New("could not open video source")

// Info describes a source.
type Info struct {
	FPS         float64
	TotalFrames int // <= 0 when unknown
	Width       int
	Height      int
}

func (i Info) String() string {
	return fmt.Sprintf("%dx%d, %g fps, %d total frames", i.Width, i.Height, i.FPS, i.TotalFrames)
}

// Frame is one decoded frame. Implementations holding native resources also
// implement io.Closer.
type Frame interface {
	Index() int
}

// Source yields frames in increasing index order. Next returns io.EOF (or
// any other error) once no further frame can be read.
type Source interface {
	Info() Info
	Seek(frameIndex int) error
	Next() (Frame, error)
	Close() error
}

// Release closes f when it holds resources.
func Release(f Frame) {
	if c, ok := f.(io.Closer); ok {
		_ = c.Close()
	}
}

// IndexFrame is a frame carrying only its index.
type IndexFrame int

// Index returns the frame index.
func (f IndexFrame) Index() int { return int(f) }

// NullSource produces image-less frames. It drives replay runs where the
// tracker output was recorded ahead of time.
type NullSource struct {
	info Info
	next int
}

// NewNullSource returns a source of total frames at fps.
func NewNullSource(fps float64, total int) *NullSource {
	return &NullSource{info: Info{FPS: fps, TotalFrames: total}}
}

// Info returns the configured frame rate and length.
func (s *NullSource) Info() Info { return s.info }

// Seek positions the source at frameIndex.
func (s *NullSource) Seek(frameIndex int) error {
	if frameIndex < 0 {
		return fmt.Errorf("seek to negative frame %d", frameIndex)
	}
	s.next = frameIndex
	return nil
}

// Next returns the next frame or io.EOF past the end.
func (s *NullSource) Next() (Frame, error) {
	if s.info.TotalFrames > 0 && s.next >= s.info.TotalFrames {
		return nil, io.EOF
	}
	f := IndexFrame(s.next)
	s.next++
	return f, nil
}

// Close is a no-op.
func (s *NullSource) Close() error { return nil }
