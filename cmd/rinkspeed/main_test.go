package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/rinkspeed/internal/db"
	"github.com/banshee-data/rinkspeed/internal/fsutil"
	"github.com/banshee-data/rinkspeed/internal/kinematics"
	"github.com/banshee-data/rinkspeed/internal/monitoring"
	"github.com/banshee-data/rinkspeed/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

// writeObservations writes n frames of P1 moving one plane unit per frame
// next to a goalie without a rink position.
func writeObservations(t *testing.T, dir string, n int) string {
	t.Helper()
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `{"frame_idx":%d,"players":[{"player_id":"P1","type":"player","bbox":[0,0,10,20],"rink_position":{"x":%d,"y":0}},{"player_id":"G1","type":"goalie","bbox":[5,5,9,9]}],"homography_success":true}`+"\n", i, i)
	}
	path := filepath.Join(dir, "tracks.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

// ----

func TestParseProcessFlags(t *testing.T) {
	t.Parallel()

	_, _, err := parseProcessFlags([]string{"-observations", "x.jsonl"})
	assert.ErrorContains(t, err, "-output-dir")

	_, _, err = parseProcessFlags([]string{"-output-dir", "out"})
	assert.ErrorContains(t, err, "-observations")

	_, _, err = parseProcessFlags([]string{"-output-dir", "out", "-observations", "x.jsonl", "-units", "furlongs"})
	assert.Error(t, err)

	f, cfg, err := parseProcessFlags([]string{"-output-dir", "out", "-observations", "x.jsonl", "-frame-step", "2", "-units", "mph"})
	require.NoError(t, err)
	assert.Equal(t, "out", f.outputDir)
	assert.Equal(t, 2, cfg.GetFrameStep())
	assert.Equal(t, "mph", cfg.GetSpeedUnits())
	assert.Equal(t, 60, cfg.GetMaxFrames())
}

func TestParseProcessFlags_ConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "kin.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"moving_average_window": 3, "frame_step": 4}`), 0644))

	_, cfg, err := parseProcessFlags([]string{"-output-dir", "out", "-observations", "x.jsonl", "-config", path, "-frame-step", "1"})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.GetMovingAverageWindow())
	assert.Equal(t, 1, cfg.GetFrameStep(), "flags override the file")
}

func TestRunProcess_Replay(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	obs := writeObservations(t, dir, 6)
	out := filepath.Join(dir, "out")
	dbPath := filepath.Join(dir, "runs.db")

	var stdout bytes.Buffer
	err := runProcess(context.Background(), []string{
		"-observations", obs, "-output-dir", out, "-frame-step", "1", "-db", dbPath,
	}, &stdout)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "6 frames")

	matches, err := filepath.Glob(filepath.Join(out, record.FilePrefix+"*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := record.ReadTrackingData(fsutil.OSFileSystem{}, matches[0])
	require.NoError(t, err)
	require.Len(t, data.Frames, 6)
	assert.Equal(t, 10.8, data.Frames[2].Players[0].Speed)
	assert.Equal(t, 0.0, data.Frames[2].Players[1].Speed)
	assert.FileExists(t, filepath.Join(out, "charts.html"))
	assert.FileExists(t, filepath.Join(out, "speed.png"))
	assert.NoFileExists(t, filepath.Join(out, "visualization.html"))

	database, err := db.NewDB(dbPath)
	require.NoError(t, err)
	defer database.Close()
	run, err := database.GetRun(context.Background(), data.RunID)
	require.NoError(t, err)
	assert.Equal(t, 6, run.FramesProcessed)
	assert.Equal(t, matches[0], run.DataPath)
}

func TestRunProcess_MissingObservations(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := runProcess(context.Background(), []string{
		"-observations", filepath.Join(dir, "missing.jsonl"), "-output-dir", dir,
	}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRecompute(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	data := &record.TrackingData{RunID: "r1", Params: record.ParametersOf(kinematics.DefaultParams(30))}
	for i := 0; i < 4; i++ {
		data.Frames = append(data.Frames, record.FrameRecord{
			FrameID: i, FrameIndex: i, Timestamp: float64(i) / 30,
			Players: []record.Entity{{PlayerID: "P1", Type: "player", RinkPosition: &kinematics.Point{X: float64(i)}}},
		})
	}
	in, err := record.WriteTrackingData(fsys, "/runs", data, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	var stdout bytes.Buffer
	now := time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC)
	require.NoError(t, recompute(fsys, []string{"-in", in, "-units", "mps", "-reports"}, &stdout, now))

	outPath := "/runs/" + record.FileName(now)
	assert.Contains(t, stdout.String(), outPath)
	got, err := record.ReadTrackingData(fsys, outPath)
	require.NoError(t, err)
	assert.Equal(t, "mps", got.Params.SpeedUnits)
	assert.Equal(t, 3.0, got.Frames[3].Players[0].Speed)
	assert.True(t, fsys.Exists("/runs/charts.html"))

	require.NoError(t, recompute(fsys, []string{"-in", in, "-out", "/runs/explicit.json", "-window", "2"}, &bytes.Buffer{}, now))
	got, err = record.ReadTrackingData(fsys, "/runs/explicit.json")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Params.MovingAverageWindow)
}

func TestRecompute_Errors(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	now := time.Now()
	assert.ErrorContains(t, recompute(fsys, nil, &bytes.Buffer{}, now), "-in")
	assert.Error(t, recompute(fsys, []string{"-in", "/nope.json"}, &bytes.Buffer{}, now))

	data := &record.TrackingData{RunID: "r1", Params: record.ParametersOf(kinematics.DefaultParams(30))}
	in, err := record.WriteTrackingData(fsys, "/runs", data, now)
	require.NoError(t, err)
	assert.Error(t, recompute(fsys, []string{"-in", in, "-fps", "0"}, &bytes.Buffer{}, now))
	assert.Error(t, recompute(fsys, []string{"-in", in, "-fps", "NaN"}, &bytes.Buffer{}, now))
}
