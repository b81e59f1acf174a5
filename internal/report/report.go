package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"path/filepath"

	"github.com/banshee-data/rinkspeed/internal/fsutil"
	"github.com/banshee-data/rinkspeed/internal/monitoring"
	"github.com/banshee-data/rinkspeed/internal/record"
)

// Output file names, relative to a run's output directory.
const (
	VisualizationFile = "visualization.html"
	ChartsFile        = "charts.html"
	SpeedPlotFile     = "speed.png"
)

// playbackInterval is the viewer's autoplay step, 10 frames per second.
const playbackInterval = 100

//go:embed templates/visualization.html.tmpl
var templatesFS embed.FS

var viewerTmpl = template.Must(template.ParseFS(templatesFS, "templates/visualization.html.tmpl"))

type viewerData struct {
	Title      string
	RunID      string
	RinkImage  string
	SpeedUnits string
	Frames     []record.FrameRecord
	FrameCount int
	LastIndex  int
	PlaybackMs int
}

// WriteVisualization renders the frame-by-frame viewer. rinkImage is the
// viewer-relative path of the rink picture.
func WriteVisualization(w io.Writer, data *record.TrackingData, rinkImage string) error {
	frames := data.Frames
	if frames == nil {
		frames = []record.FrameRecord{}
	}
	last := len(frames) - 1
	if last < 0 {
		last = 0
	}
	err := viewerTmpl.Execute(w, viewerData{
		Title:      "Player Tracking Visualization",
		RunID:      data.RunID,
		RinkImage:  rinkImage,
		SpeedUnits: data.Params.SpeedUnits,
		Frames:     frames,
		FrameCount: len(frames),
		LastIndex:  last,
		PlaybackMs: playbackInterval,
	})
	if err != nil {
		return fmt.Errorf("render visualization: %w", err)
	}
	return nil
}

// Options controls WriteAll.
type Options struct {
	// RinkImage is the rink picture relative to the output directory. The
	// viewer is only written when it is set.
	RinkImage string
}

// WriteAll writes every report for data into dir and returns the paths
// written. A failing report is logged and the others are still attempted.
func WriteAll(fsys fsutil.FileSystem, dir string, data *record.TrackingData, o Options) []string {
	type job struct {
		name   string
		render func(io.Writer) error
	}
	jobs := []job{
		{ChartsFile, func(w io.Writer) error { return WriteCharts(w, data) }},
		{SpeedPlotFile, func(w io.Writer) error { return WriteSpeedPlot(w, data) }},
	}
	if o.RinkImage != "" {
		jobs = append(jobs, job{VisualizationFile, func(w io.Writer) error { return WriteVisualization(w, data, o.RinkImage) }})
	}

	var written []string
	for _, j := range jobs {
		var buf bytes.Buffer
		if err := j.render(&buf); err != nil {
			monitoring.Logf("Warning: %s: %v", j.name, err)
			continue
		}
		path := filepath.Join(dir, j.name)
		if err := fsys.WriteFile(path, buf.Bytes(), 0644); err != nil {
			monitoring.Logf("Warning: write %s: %v", path, err)
			continue
		}
		written = append(written, path)
	}
	return written
}
