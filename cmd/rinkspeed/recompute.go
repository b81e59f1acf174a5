package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/banshee-data/rinkspeed/internal/fsutil"
	"github.com/banshee-data/rinkspeed/internal/pipeline"
	"github.com/banshee-data/rinkspeed/internal/record"
	"github.com/banshee-data/rinkspeed/internal/report"
)

func runRecompute(args []string, w io.Writer) error {
	return recompute(fsutil.OSFileSystem{}, args, w, time.Now())
}

func recompute(fsys fsutil.FileSystem, args []string, w io.Writer, now time.Time) error {
	fs := flag.NewFlagSet("recompute", flag.ContinueOnError)
	in := fs.String("in", "", "Tracking data file to recompute (required)")
	out := fs.String("out", "", "Output file (default: a new timestamped file next to -in)")
	units := fs.String("units", "", "Speed display units (mps, mph, kmph)")
	window := fs.Int("window", 0, "Moving average window")
	history := fs.Int("history", 0, "Position history capacity")
	scale := fs.Float64("scale", 0, "Metres per rink plane unit")
	fps := fs.Float64("fps", 0, "Sampling rate")
	reports := fs.Bool("reports", false, "Also write charts and the speed plot next to the output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("-in is required")
	}

	data, err := record.ReadTrackingData(fsys, *in)
	if err != nil {
		return err
	}

	p := data.Params.Params()
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "units":
			p.SpeedUnits = *units
		case "window":
			p.WindowSize = *window
		case "history":
			p.HistoryCapacity = *history
		case "scale":
			p.SpatialScale = *scale
		case "fps":
			p.FPS = *fps
		}
	})

	result, err := pipeline.Recompute(data, &p)
	if err != nil {
		return err
	}

	dir := filepath.Dir(*in)
	path := *out
	if path == "" {
		if path, err = record.WriteTrackingData(fsys, dir, result, now); err != nil {
			return err
		}
	} else {
		b, err := record.Encode(result)
		if err != nil {
			return err
		}
		if err := fsys.WriteFile(path, b, 0644); err != nil {
			return fmt.Errorf("write tracking data: %w", err)
		}
		dir = filepath.Dir(path)
	}
	fmt.Fprintf(w, "Recomputed %d frames of run %s: %s\n", len(result.Frames), result.RunID, path)

	if *reports {
		for _, r := range report.WriteAll(fsys, dir, result, report.Options{}) {
			fmt.Fprintf(w, "Report: %s\n", r)
		}
	}
	return nil
}
