package capture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/rinkspeed/internal/kinematics"
	"github.com/banshee-data/rinkspeed/internal/tracking"
	"github.com/banshee-data/rinkspeed/internal/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestOpen_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "missing.mp4"))
	require.Error(t, err)
	assert.ErrorIs(t, err, video.ErrOpen)
}

func TestArtifactWriter_NoPixels(t *testing.T) {
	t.Parallel()

	w := NewArtifactWriter(t.TempDir(), "")
	defer w.Close()

	paths, err := w.WriteFrame(video.IndexFrame(3), &tracking.FrameResult{})
	require.NoError(t, err)
	assert.Empty(t, paths.Original)
}

func TestArtifactWriter_WriteFrame(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rinkPath := filepath.Join(dir, "rink.png")
	rink := gocv.NewMatWithSize(100, 200, gocv.MatTypeCV8UC3)
	require.True(t, gocv.IMWrite(rinkPath, rink))
	rink.Close()

	w := NewArtifactWriter(dir, rinkPath)
	defer w.Close()

	f := &MatFrame{index: 42, Mat: gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)}
	defer f.Close()

	res := &tracking.FrameResult{Players: []tracking.Observation{
		{PlayerID: "P1", Type: "player", BBox: tracking.BBox{10, 20, 40, 80}, RinkPosition: &kinematics.Point{X: 50, Y: 50}},
		{PlayerID: "G1", Type: "goalie", BBox: tracking.BBox{100, 20, 130, 80}},
	}}
	paths, err := w.WriteFrame(f, res)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("frames", "42", "original.jpg"), paths.Original)
	assert.Equal(t, filepath.Join("frames", "42", "detections.jpg"), paths.Detections)
	assert.Equal(t, filepath.Join("frames", "42", "tracking.jpg"), paths.Tracking)

	for _, p := range []string{paths.Original, paths.Detections, paths.Tracking} {
		_, err := os.Stat(filepath.Join(dir, p))
		assert.NoError(t, err, p)
	}
}

func TestArtifactWriter_BadRinkImage(t *testing.T) {
	t.Parallel()

	w := NewArtifactWriter(t.TempDir(), "/nonexistent/rink.png")
	defer w.Close()
	assert.False(t, w.hasRink)
}
