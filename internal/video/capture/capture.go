// Package capture decodes video files with OpenCV and renders the per-frame
// images kept with a run.
package capture

import (
	"fmt"
	"io"

	"github.com/banshee-data/rinkspeed/internal/video"
	"gocv.io/x/gocv"
)

// MatFrame is a decoded frame. Close releases the native image.
type MatFrame struct {
	index int
	Mat   gocv.Mat
}

// Index returns the frame index within the source.
func (f *MatFrame) Index() int { return f.index }

// Close releases the image.
func (f *MatFrame) Close() error { return f.Mat.Close() }

// Source reads frames from a video file.
type Source struct {
	vc   *gocv.VideoCapture
	info video.Info
	next int
}

// Open opens a video file. Errors wrap video.ErrOpen.
func Open(path string) (*Source, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", video.ErrOpen, path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w %s", video.ErrOpen, path)
	}
	return &Source{
		vc: vc,
		info: video.Info{
			FPS:         vc.Get(gocv.VideoCaptureFPS),
			TotalFrames: int(vc.Get(gocv.VideoCaptureFrameCount)),
			Width:       int(vc.Get(gocv.VideoCaptureFrameWidth)),
			Height:      int(vc.Get(gocv.VideoCaptureFrameHeight)),
		},
	}, nil
}

// Info returns the properties reported by the container.
func (s *Source) Info() video.Info { return s.info }

// Seek positions the decoder at frameIndex.
func (s *Source) Seek(frameIndex int) error {
	if frameIndex < 0 {
		return fmt.Errorf("seek to negative frame %d", frameIndex)
	}
	s.vc.Set(gocv.VideoCapturePosFrames, float64(frameIndex))
	s.next = frameIndex
	return nil
}

// Next decodes the next frame. A failed read is reported as io.EOF.
func (s *Source) Next() (video.Frame, error) {
	m := gocv.NewMat()
	if ok := s.vc.Read(&m); !ok || m.Empty() {
		m.Close()
		return nil, io.EOF
	}
	f := &MatFrame{index: s.next, Mat: m}
	s.next++
	return f, nil
}

// Close releases the decoder.
func (s *Source) Close() error {
	return s.vc.Close()
}
