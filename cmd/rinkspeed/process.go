package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/banshee-data/rinkspeed/internal/config"
	"github.com/banshee-data/rinkspeed/internal/db"
	"github.com/banshee-data/rinkspeed/internal/fsutil"
	"github.com/banshee-data/rinkspeed/internal/monitoring"
	"github.com/banshee-data/rinkspeed/internal/pipeline"
	"github.com/banshee-data/rinkspeed/internal/report"
	"github.com/banshee-data/rinkspeed/internal/timeutil"
	"github.com/banshee-data/rinkspeed/internal/tracking"
	"github.com/banshee-data/rinkspeed/internal/video"
	"github.com/banshee-data/rinkspeed/internal/video/capture"
)

type processFlags struct {
	video             string
	detectionModel    string
	orientationModel  string
	segmentationModel string
	rinkCoordinates   string
	rinkImage         string
	outputDir         string
	observations      string
	configPath        string
	dbPath            string
	startSecond       float64
	numSeconds        float64
	frameStep         int
	maxFrames         int
	fps               float64
	units             string
	debug             bool
}

func parseProcessFlags(args []string) (*processFlags, *config.KinematicsConfig, error) {
	f := &processFlags{}
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	fs.StringVar(&f.video, "video", "", "Path to the input video (optional with -observations)")
	fs.StringVar(&f.detectionModel, "detection-model", "", "Detection model the tracker output was produced with")
	fs.StringVar(&f.orientationModel, "orientation-model", "", "Orientation model the tracker output was produced with")
	fs.StringVar(&f.segmentationModel, "segmentation-model", "", "Segmentation model the tracker output was produced with")
	fs.StringVar(&f.rinkCoordinates, "rink-coordinates", "", "Rink coordinates file used by the tracker")
	fs.StringVar(&f.rinkImage, "rink-image", "", "Rink image for the tracking view and the viewer")
	fs.StringVar(&f.outputDir, "output-dir", "", "Output directory (required)")
	fs.StringVar(&f.observations, "observations", "", "JSON-lines tracker output, one frame result per line (required)")
	fs.StringVar(&f.configPath, "config", "", "Kinematics config JSON; flags override its values")
	fs.StringVar(&f.dbPath, "db", "", "Store the run in this sqlite database")
	fs.Float64Var(&f.startSecond, "start-second", 0, "Clip start in seconds")
	fs.Float64Var(&f.numSeconds, "num-seconds", config.DefaultNumSeconds, "Clip length in seconds")
	fs.IntVar(&f.frameStep, "frame-step", config.DefaultFrameStep, "Process every n-th frame")
	fs.IntVar(&f.maxFrames, "max-frames", config.DefaultMaxFrames, "Maximum number of frames to process")
	fs.Float64Var(&f.fps, "fps", 0, "Override the frame rate reported by the video")
	fs.StringVar(&f.units, "units", "", "Speed display units (mps, mph, kmph)")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if f.outputDir == "" {
		return nil, nil, errors.New("-output-dir is required")
	}
	if f.observations == "" {
		return nil, nil, errors.New("-observations is required; detection runs outside rinkspeed")
	}

	cfg := config.DefaultKinematicsConfig()
	if f.configPath != "" {
		loaded, err := config.LoadKinematicsConfig(f.configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "start-second":
			cfg.StartSecond = &f.startSecond
		case "num-seconds":
			cfg.NumSeconds = &f.numSeconds
		case "frame-step":
			cfg.FrameStep = &f.frameStep
		case "max-frames":
			cfg.MaxFrames = &f.maxFrames
		case "fps":
			cfg.FPS = &f.fps
		case "units":
			cfg.SpeedUnits = &f.units
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return f, cfg, nil
}

func runProcess(ctx context.Context, args []string, w io.Writer) error {
	f, cfg, err := parseProcessFlags(args)
	if err != nil {
		return err
	}
	monitoring.SetDebug(f.debug)
	if f.rinkCoordinates != "" {
		monitoring.Debugf("rink coordinates %s are applied by the tracker", f.rinkCoordinates)
	}

	tracker, err := tracking.LoadReplay(f.observations)
	if err != nil {
		return err
	}

	d := &pipeline.Driver{
		Tracker:   tracker,
		FS:        fsutil.OSFileSystem{},
		Clock:     timeutil.RealClock{},
		Config:    cfg,
		OutputDir: f.outputDir,
		Inputs: pipeline.Inputs{
			VideoPath:         f.video,
			DetectionModel:    f.detectionModel,
			OrientationModel:  f.orientationModel,
			SegmentationModel: f.segmentationModel,
			RinkImagePath:     f.rinkImage,
		},
	}
	if f.video != "" {
		artifacts := capture.NewArtifactWriter(f.outputDir, f.rinkImage)
		defer artifacts.Close()
		d.Artifacts = artifacts
		d.Open = func() (video.Source, error) { return capture.Open(f.video) }
	} else {
		fps := cfg.GetFPS(config.DefaultFPS)
		total := tracker.FrameCount()
		d.Open = func() (video.Source, error) { return video.NewNullSource(fps, total), nil }
	}

	res, err := d.Run(ctx)
	if err != nil {
		return err
	}

	opts := report.Options{}
	if f.rinkImage != "" {
		opts.RinkImage = pipeline.RinkImageName
	}
	written := report.WriteAll(d.FS, f.outputDir, res.Data, opts)

	if f.dbPath != "" {
		database, err := db.NewDB(f.dbPath)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		absOut, _ := filepath.Abs(f.outputDir)
		if err := database.SaveRun(ctx, res.Data, absOut, res.Path, time.Now()); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
	}

	fmt.Fprintf(w, "Run %s: %d frames in %.2fs (%.2f fps)\n", res.Data.RunID, res.Data.FramesProcessed, res.Data.ProcessingTime, res.Data.FPS)
	fmt.Fprintf(w, "Tracking data: %s\n", res.Path)
	for _, p := range written {
		fmt.Fprintf(w, "Report: %s\n", p)
	}
	return nil
}
