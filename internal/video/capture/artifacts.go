package capture

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/rinkspeed/internal/monitoring"
	"github.com/banshee-data/rinkspeed/internal/pipeline"
	"github.com/banshee-data/rinkspeed/internal/tracking"
	"github.com/banshee-data/rinkspeed/internal/video"
	"gocv.io/x/gocv"
)

var (
	boxColor    = color.RGBA{G: 255, A: 255}
	playerColor = color.RGBA{R: 255, A: 255}
	goalieColor = color.RGBA{B: 255, A: 255}
)

// ArtifactWriter saves the original frame, a copy with the detections drawn
// and, when a rink image is loaded, the players marked on the rink.
type ArtifactWriter struct {
	outputDir string
	rink      gocv.Mat
	hasRink   bool
}

// NewArtifactWriter writes under outputDir/frames. rinkImage may be empty;
// an unreadable rink image is logged and the tracking view is skipped.
func NewArtifactWriter(outputDir, rinkImage string) *ArtifactWriter {
	w := &ArtifactWriter{outputDir: outputDir}
	if rinkImage == "" {
		return w
	}
	m := gocv.IMRead(rinkImage, gocv.IMReadColor)
	if m.Empty() {
		m.Close()
		monitoring.Logf("Warning: could not load rink image from %s", rinkImage)
		return w
	}
	w.rink = m
	w.hasRink = true
	return w
}

// Close releases the rink image.
func (w *ArtifactWriter) Close() error {
	if w.hasRink {
		return w.rink.Close()
	}
	return nil
}

// WriteFrame implements pipeline.ArtifactWriter. Frames without pixel data
// produce no files.
func (w *ArtifactWriter) WriteFrame(f video.Frame, res *tracking.FrameResult) (pipeline.FramePaths, error) {
	var paths pipeline.FramePaths
	mf, ok := f.(*MatFrame)
	if !ok {
		return paths, nil
	}

	rel := filepath.Join("frames", strconv.Itoa(f.Index()))
	dir := filepath.Join(w.outputDir, rel)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return paths, fmt.Errorf("create frame directory: %w", err)
	}

	if !gocv.IMWrite(filepath.Join(dir, "original.jpg"), mf.Mat) {
		return paths, fmt.Errorf("write original frame %d", f.Index())
	}
	paths.Original = filepath.Join(rel, "original.jpg")

	det := mf.Mat.Clone()
	defer det.Close()
	if err := drawDetections(&det, res.Players); err != nil {
		return paths, err
	}
	if !gocv.IMWrite(filepath.Join(dir, "detections.jpg"), det) {
		return paths, fmt.Errorf("write detections frame %d", f.Index())
	}
	paths.Detections = filepath.Join(rel, "detections.jpg")

	if w.hasRink {
		view := w.rink.Clone()
		defer view.Close()
		if err := drawRinkPositions(&view, res.Players); err != nil {
			return paths, err
		}
		if gocv.IMWrite(filepath.Join(dir, "tracking.jpg"), view) {
			paths.Tracking = filepath.Join(rel, "tracking.jpg")
		}
	}
	return paths, nil
}

func drawDetections(img *gocv.Mat, players []tracking.Observation) error {
	for _, p := range players {
		r := image.Rect(int(p.BBox[0]), int(p.BBox[1]), int(p.BBox[2]), int(p.BBox[3]))
		if err := gocv.Rectangle(img, r, boxColor, 2); err != nil {
			return fmt.Errorf("draw box for %s: %w", p.PlayerID, err)
		}
		label := image.Pt(r.Min.X, r.Min.Y-10)
		if err := gocv.PutText(img, p.PlayerID, label, gocv.FontHersheySimplex, 0.5, boxColor, 2); err != nil {
			return fmt.Errorf("draw label for %s: %w", p.PlayerID, err)
		}
	}
	return nil
}

// drawRinkPositions marks players on the rink image. Plane coordinates are
// rink image pixels.
func drawRinkPositions(img *gocv.Mat, players []tracking.Observation) error {
	for _, p := range players {
		if p.RinkPosition == nil {
			continue
		}
		c := playerColor
		if p.Type == "goalie" {
			c = goalieColor
		}
		pt := image.Pt(int(p.RinkPosition.X), int(p.RinkPosition.Y))
		if err := gocv.Circle(img, pt, 6, c, -1); err != nil {
			return fmt.Errorf("mark %s: %w", p.PlayerID, err)
		}
		if err := gocv.PutText(img, p.PlayerID, image.Pt(pt.X+8, pt.Y-8), gocv.FontHersheySimplex, 0.4, c, 1); err != nil {
			return fmt.Errorf("label %s: %w", p.PlayerID, err)
		}
	}
	return nil
}

var _ pipeline.ArtifactWriter = (*ArtifactWriter)(nil)
