package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/banshee-data/rinkspeed/internal/fsutil"
	"github.com/banshee-data/rinkspeed/internal/kinematics"
)

// FilePrefix starts the name of every tracking data file.
const FilePrefix = "player_detection_data_"

// Parameters are the kinematics constants a run was computed with.
type Parameters struct {
	FPS                 float64 `json:"fps"`
	SpatialScale        float64 `json:"spatial_scale"`
	HistoryCapacity     int     `json:"history_capacity"`
	MovingAverageWindow int     `json:"moving_average_window"`
	SpeedUnits          string  `json:"speed_units"`
}

// ParametersOf captures p for persistence.
func ParametersOf(p kinematics.Params) Parameters {
	return Parameters{
		FPS:                 p.FPS,
		SpatialScale:        p.SpatialScale,
		HistoryCapacity:     p.HistoryCapacity,
		MovingAverageWindow: p.WindowSize,
		SpeedUnits:          p.SpeedUnits,
	}
}

// Params converts back to estimator parameters.
func (p Parameters) Params() kinematics.Params {
	return kinematics.Params{
		FPS:             p.FPS,
		SpatialScale:    p.SpatialScale,
		HistoryCapacity: p.HistoryCapacity,
		WindowSize:      p.MovingAverageWindow,
		SpeedUnits:      p.SpeedUnits,
	}
}

// TrackingData is the complete output of one run.
type TrackingData struct {
	RunID  string        `json:"run_id"`
	Frames []FrameRecord `json:"frames"`

	ProcessingTime  float64 `json:"processing_time"` // seconds
	FramesProcessed int     `json:"frames_processed"`
	FPS             float64 `json:"fps"` // processing rate, frames per second of wall time
	VideoFPS        float64 `json:"video_fps"`

	VideoPath         string `json:"video_path"`
	DetectionModel    string `json:"detection_model"`
	OrientationModel  string `json:"orientation_model"`
	SegmentationModel string `json:"segmentation_model,omitempty"`

	StartFrame int `json:"start_frame"`
	EndFrame   int `json:"end_frame"`
	FrameStep  int `json:"frame_step"`

	Params Parameters `json:"params"`
}

// FileName returns the tracking data file name for a run finished at now.
func FileName(now time.Time) string {
	return FilePrefix + now.Format("20060102_150405") + ".json"
}

// Encode serializes data with two-space indentation.
func Encode(data *TrackingData) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("encode tracking data: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a tracking data document.
func Decode(b []byte) (*TrackingData, error) {
	var data TrackingData
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("decode tracking data: %w", err)
	}
	return &data, nil
}

// WriteTrackingData writes data into dir under the name from FileName and
// returns the path written.
func WriteTrackingData(fsys fsutil.FileSystem, dir string, data *TrackingData, now time.Time) (string, error) {
	b, err := Encode(data)
	if err != nil {
		return "", err
	}
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, FileName(now))
	if err := fsys.WriteFile(path, b, 0644); err != nil {
		return "", fmt.Errorf("write tracking data: %w", err)
	}
	return path, nil
}

// ReadTrackingData loads a tracking data file.
func ReadTrackingData(fsys fsutil.FileSystem, path string) (*TrackingData, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".json") {
		return nil, fmt.Errorf("tracking data file must have .json extension: %s", path)
	}
	b, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tracking data: %w", err)
	}
	return Decode(b)
}
