package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/rinkspeed/internal/units"
)

// DefaultConfigPath is the path to the canonical kinematics defaults file.
const DefaultConfigPath = "config/kinematics.defaults.json"

// Built-in defaults used when a field is absent from the loaded file.
const (
	DefaultFPS                 = 30.0
	DefaultMovingAverageWindow = 5
	DefaultHistoryCapacity     = 10
	DefaultSpatialScale        = 0.1
	DefaultFrameStep           = 5
	DefaultMaxFrames           = 60
	DefaultNumSeconds          = 5.0
)

// KinematicsConfig is the run configuration for the clip processor and the
// kinematics core. Nil fields fall back to the built-in defaults through the
// Get* accessors, so partial files are safe.
type KinematicsConfig struct {
	// FPS overrides the frame rate reported by the video source.
	FPS *float64 `json:"fps,omitempty"`

	MovingAverageWindow *int     `json:"moving_average_window,omitempty"`
	HistoryCapacity     *int     `json:"history_capacity,omitempty"`
	SpatialScale        *float64 `json:"spatial_scale,omitempty"` // metres per plane unit
	SpeedUnits          *string  `json:"speed_units,omitempty"`

	// Clip window
	FrameStep   *int     `json:"frame_step,omitempty"`
	MaxFrames   *int     `json:"max_frames,omitempty"`
	StartSecond *float64 `json:"start_second,omitempty"`
	NumSeconds  *float64 `json:"num_seconds,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyKinematicsConfig returns a config with every field unset.
func EmptyKinematicsConfig() *KinematicsConfig {
	return &KinematicsConfig{}
}

// DefaultKinematicsConfig returns a config with every field populated from
// the built-in defaults. FPS stays unset so the video rate is used.
func DefaultKinematicsConfig() *KinematicsConfig {
	return &KinematicsConfig{
		MovingAverageWindow: ptrInt(DefaultMovingAverageWindow),
		HistoryCapacity:     ptrInt(DefaultHistoryCapacity),
		SpatialScale:        ptrFloat64(DefaultSpatialScale),
		SpeedUnits:          ptrString(units.KMPH),
		FrameStep:           ptrInt(DefaultFrameStep),
		MaxFrames:           ptrInt(DefaultMaxFrames),
		StartSecond:         ptrFloat64(0),
		NumSeconds:          ptrFloat64(DefaultNumSeconds),
	}
}

// LoadKinematicsConfig loads a KinematicsConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadKinematicsConfig(path string) (*KinematicsConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyKinematicsConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upwards from the
// working directory. Panics if the file cannot be loaded; intended for tests.
func MustLoadDefaultConfig() *KinematicsConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadKinematicsConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *KinematicsConfig) Validate() error {
	if c.FPS != nil && !positiveFinite(*c.FPS) {
		return fmt.Errorf("fps must be positive and finite, got %f", *c.FPS)
	}
	if c.MovingAverageWindow != nil && *c.MovingAverageWindow < 1 {
		return fmt.Errorf("moving_average_window must be at least 1, got %d", *c.MovingAverageWindow)
	}
	if c.HistoryCapacity != nil && *c.HistoryCapacity < 1 {
		return fmt.Errorf("history_capacity must be at least 1, got %d", *c.HistoryCapacity)
	}
	if c.SpatialScale != nil && !positiveFinite(*c.SpatialScale) {
		return fmt.Errorf("spatial_scale must be positive and finite, got %f", *c.SpatialScale)
	}
	if c.SpeedUnits != nil && !units.IsValid(*c.SpeedUnits) {
		return fmt.Errorf("speed_units %q is not one of %s", *c.SpeedUnits, units.GetValidUnitsString())
	}
	if c.FrameStep != nil && *c.FrameStep < 1 {
		return fmt.Errorf("frame_step must be at least 1, got %d", *c.FrameStep)
	}
	if c.MaxFrames != nil && *c.MaxFrames < 1 {
		return fmt.Errorf("max_frames must be at least 1, got %d", *c.MaxFrames)
	}
	if c.StartSecond != nil && !(*c.StartSecond >= 0 && !math.IsInf(*c.StartSecond, 0)) {
		return fmt.Errorf("start_second must be non-negative and finite, got %f", *c.StartSecond)
	}
	if c.NumSeconds != nil && !positiveFinite(*c.NumSeconds) {
		return fmt.Errorf("num_seconds must be positive and finite, got %f", *c.NumSeconds)
	}
	return nil
}

// GetFPS returns the configured frame rate, or sourceFPS when unset. A
// non-positive sourceFPS falls back to DefaultFPS.
func (c *KinematicsConfig) GetFPS(sourceFPS float64) float64 {
	if c.FPS != nil {
		return *c.FPS
	}
	if sourceFPS > 0 {
		return sourceFPS
	}
	return DefaultFPS
}

// GetMovingAverageWindow returns the moving_average_window value or the default.
func (c *KinematicsConfig) GetMovingAverageWindow() int {
	if c.MovingAverageWindow == nil {
		return DefaultMovingAverageWindow
	}
	return *c.MovingAverageWindow
}

// GetHistoryCapacity returns the history_capacity value or the default.
func (c *KinematicsConfig) GetHistoryCapacity() int {
	if c.HistoryCapacity == nil {
		return DefaultHistoryCapacity
	}
	return *c.HistoryCapacity
}

// GetSpatialScale returns the spatial_scale value or the default.
func (c *KinematicsConfig) GetSpatialScale() float64 {
	if c.SpatialScale == nil {
		return DefaultSpatialScale
	}
	return *c.SpatialScale
}

// GetSpeedUnits returns the speed_units value or the default (km/h).
func (c *KinematicsConfig) GetSpeedUnits() string {
	if c.SpeedUnits == nil || *c.SpeedUnits == "" {
		return units.KMPH
	}
	return *c.SpeedUnits
}

// GetFrameStep returns the frame_step value or the default.
func (c *KinematicsConfig) GetFrameStep() int {
	if c.FrameStep == nil {
		return DefaultFrameStep
	}
	return *c.FrameStep
}

// GetMaxFrames returns the max_frames value or the default.
func (c *KinematicsConfig) GetMaxFrames() int {
	if c.MaxFrames == nil {
		return DefaultMaxFrames
	}
	return *c.MaxFrames
}

// GetStartSecond returns the start_second value or the default.
func (c *KinematicsConfig) GetStartSecond() float64 {
	if c.StartSecond == nil {
		return 0
	}
	return *c.StartSecond
}

// GetNumSeconds returns the num_seconds value or the default.
func (c *KinematicsConfig) GetNumSeconds() float64 {
	if c.NumSeconds == nil {
		return DefaultNumSeconds
	}
	return *c.NumSeconds
}

// positiveFinite is false for NaN as well as for zero, negative and infinite
// values.
func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
