// Package pipeline runs a clip through the tracker and the kinematics
// estimator and assembles the persisted frame records.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/rinkspeed/internal/config"
	"github.com/banshee-data/rinkspeed/internal/fsutil"
	"github.com/banshee-data/rinkspeed/internal/kinematics"
	"github.com/banshee-data/rinkspeed/internal/monitoring"
	"github.com/banshee-data/rinkspeed/internal/record"
	"github.com/banshee-data/rinkspeed/internal/timeutil"
	"github.com/banshee-data/rinkspeed/internal/tracking"
	"github.com/banshee-data/rinkspeed/internal/video"
	"github.com/google/uuid"
)

// RinkImageName is the copy of the rink image kept with a run's output.
const RinkImageName = "rink_resized.png"

// FramePaths are the per-frame images written for a record, relative to the
// output directory. Empty fields were not written.
type FramePaths struct {
	Original   string
	Detections string
	Tracking   string
}

// ArtifactWriter renders the images kept for each processed frame.
type ArtifactWriter interface {
	WriteFrame(frame video.Frame, res *tracking.FrameResult) (FramePaths, error)
}

// Interpolator fills plane-mapping gaps once every frame has been seen. It
// may rewrite the pass-through mapping metadata of the records.
type Interpolator interface {
	InterpolateMissing(ctx context.Context, frames []record.FrameRecord) error
}

// Inputs names the files a run was produced from. They are recorded in the
// tracking data and otherwise unused here.
type Inputs struct {
	VideoPath         string
	DetectionModel    string
	OrientationModel  string
	SegmentationModel string
	RinkImagePath     string
}

// Driver processes one clip. Open, Tracker and FS are required; the rest
// are optional.
type Driver struct {
	Open         func() (video.Source, error)
	Tracker      tracking.Tracker
	Artifacts    ArtifactWriter
	Interpolator Interpolator
	FS           fsutil.FileSystem
	Clock        timeutil.Clock
	Config       *config.KinematicsConfig
	Inputs       Inputs
	OutputDir    string
}

// Result is what a completed run produced.
type Result struct {
	Data *record.TrackingData
	Path string // tracking data file
}

// Window is the frame range selected from a source.
type Window struct {
	Start int // first frame index
	End   int // exclusive
}

// ClipWindow computes the frame range for a start offset and duration in
// seconds. totalFrames <= 0 means the length is unknown and does not bound
// the window.
func ClipWindow(fps, startSecond, numSeconds float64, totalFrames int) Window {
	start := int(startSecond * fps)
	end := start + int(numSeconds*fps)
	if totalFrames > 0 && end > totalFrames {
		end = totalFrames
	}
	return Window{Start: start, End: end}
}

// Run processes the configured clip and writes the tracking data file.
// Failure to open the source is the only fatal condition of the frame loop:
// read errors end it early and per-frame failures are logged and skipped.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	cfg := d.Config
	if cfg == nil {
		cfg = config.DefaultKinematicsConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	clock := d.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	if err := d.FS.MkdirAll(filepath.Join(d.OutputDir, "frames"), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if d.Inputs.RinkImagePath != "" {
		if err := fsutil.CopyFile(d.FS, d.Inputs.RinkImagePath, filepath.Join(d.OutputDir, RinkImageName)); err != nil {
			monitoring.Logf("Warning: could not copy rink image: %v", err)
		}
	}

	src, err := d.Open()
	if err != nil {
		if !errors.Is(err, video.ErrOpen) {
			err = fmt.Errorf("%w: %w", video.ErrOpen, err)
		}
		return nil, err
	}
	defer src.Close()

	info := src.Info()
	monitoring.Logf("Video properties: %s", info)

	params := kinematics.ParamsFromConfig(cfg, info.FPS)
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("kinematics parameters: %w", err)
	}

	win := ClipWindow(params.FPS, cfg.GetStartSecond(), cfg.GetNumSeconds(), info.TotalFrames)
	monitoring.Logf("Processing from frame %d to %d (%d frames)", win.Start, win.End, win.End-win.Start)

	data := &record.TrackingData{
		RunID:             uuid.NewString(),
		Frames:            []record.FrameRecord{},
		VideoFPS:          info.FPS,
		VideoPath:         d.Inputs.VideoPath,
		DetectionModel:    d.Inputs.DetectionModel,
		OrientationModel:  d.Inputs.OrientationModel,
		SegmentationModel: d.Inputs.SegmentationModel,
		StartFrame:        win.Start,
		EndFrame:          win.End,
		FrameStep:         cfg.GetFrameStep(),
		Params:            record.ParametersOf(params),
	}

	if err := src.Seek(win.Start); err != nil {
		monitoring.Logf("Warning: seek to frame %d failed, decoding forward: %v", win.Start, err)
	}

	start := clock.Now()
	if err := d.loop(ctx, src, win, params, cfg, data); err != nil {
		return nil, err
	}
	elapsed := clock.Since(start).Seconds()

	data.FramesProcessed = len(data.Frames)
	data.ProcessingTime = elapsed
	if elapsed > 0 {
		data.FPS = float64(data.FramesProcessed) / elapsed
	}
	monitoring.Logf("Processed %d frames in %.2f seconds", data.FramesProcessed, elapsed)
	monitoring.Logf("Average frame rate: %.2f fps", data.FPS)

	if d.Interpolator != nil {
		monitoring.Logf("Running two-pass homography interpolation...")
		if err := d.Interpolator.InterpolateMissing(ctx, data.Frames); err != nil {
			monitoring.Logf("Warning: homography interpolation failed: %v", err)
		}
	}

	path, err := record.WriteTrackingData(d.FS, d.OutputDir, data, clock.Now())
	if err != nil {
		return nil, err
	}
	monitoring.Logf("Player detection data saved to %s", path)
	return &Result{Data: data, Path: path}, nil
}

func (d *Driver) loop(ctx context.Context, src video.Source, win Window, params kinematics.Params, cfg *config.KinematicsConfig, data *record.TrackingData) error {
	est := kinematics.NewEstimator(params)
	step := cfg.GetFrameStep()
	maxFrames := cfg.GetMaxFrames()
	span := win.End - win.Start

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := src.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				monitoring.Debugf("frame read failed, ending run: %v", err)
			}
			return nil
		}
		idx := frame.Index()
		if idx >= win.End {
			video.Release(frame)
			return nil
		}
		// Frames before the window only arrive when the seek failed.
		if idx < win.Start || (idx-win.Start)%step != 0 {
			video.Release(frame)
			continue
		}

		if span > 0 {
			monitoring.Logf("Processing frame %d/%d (%.1f%%)", idx, win.End, float64(idx-win.Start)/float64(span)*100)
		}
		rec, ok := d.processFrame(ctx, frame, idx, win.Start, params.FPS, est)
		video.Release(frame)
		if !ok {
			continue
		}
		data.Frames = append(data.Frames, rec)
		if len(data.Frames) >= maxFrames {
			return nil
		}
	}
}

func (d *Driver) processFrame(ctx context.Context, frame video.Frame, idx, startFrame int, fps float64, est *kinematics.Estimator) (record.FrameRecord, bool) {
	res, err := d.Tracker.ProcessFrame(ctx, frame)
	if err != nil {
		monitoring.Logf("Warning: tracker failed on frame %d: %v", idx, err)
		return record.FrameRecord{}, false
	}
	res.FrameIndex = idx

	rec := NewFrameRecord(res, startFrame, fps)
	applyStep(est, &rec)

	if d.Artifacts != nil {
		paths, err := d.Artifacts.WriteFrame(frame, res)
		if err != nil {
			monitoring.Logf("Warning: frame %d artefacts: %v", idx, err)
		}
		rec.OriginalFramePath = paths.Original
		rec.DetectionsPath = paths.Detections
		rec.TrackingPath = paths.Tracking
	}
	return rec, true
}

// applyStep runs one frame of rec through est and stores the results on rec.
func applyStep(est *kinematics.Estimator, rec *record.FrameRecord) {
	rec.ApplyEstimates(est.Step(rec.FrameIndex, rec.KinematicsInput()))
}

// NewFrameRecord builds the persisted record for a tracker result, before
// metrics are applied. Mapping metadata is copied through: the matrix only
// when the mapping succeeded and segmentation reduced to line features.
func NewFrameRecord(res *tracking.FrameResult, startFrame int, fps float64) record.FrameRecord {
	rec := record.FrameRecord{
		FrameID:                res.FrameIndex,
		FrameIndex:             res.FrameIndex,
		Timestamp:              float64(res.FrameIndex-startFrame) / fps,
		Players:                make([]record.Entity, len(res.Players)),
		HomographySuccess:      res.HomographySuccess,
		HomographyInterpolated: res.HomographyInterpolated,
		HomographySource:       res.HomographySource,
		InterpolationDetails:   res.InterpolationDetails,
		SegmentationFeatures:   record.FilterSegmentationFeatures(res.SegmentationFeatures),
	}
	if res.HomographySuccess {
		rec.HomographyMatrix = res.HomographyMatrix
	}
	for i, p := range res.Players {
		rec.Players[i] = record.Entity{
			PlayerID:     p.PlayerID,
			Type:         p.Type,
			BBox:         p.BBox,
			RinkPosition: p.RinkPosition,
		}
	}
	return rec
}
