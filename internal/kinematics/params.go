package kinematics

import (
	"fmt"
	"math"

	"github.com/banshee-data/rinkspeed/internal/config"
	"github.com/banshee-data/rinkspeed/internal/units"
	"gonum.org/v1/gonum/floats/scalar"
)

// Params holds the fixed-formula constants of the estimator.
type Params struct {
	FPS             float64 // sampling rate; dt = 1/FPS
	SpatialScale    float64 // metres per plane unit
	HistoryCapacity int     // position history entries kept per entity
	WindowSize      int     // moving-average window per metric
	SpeedUnits      string  // display unit for Metrics.Speed
}

// DefaultParams returns the standard parameters for the given frame rate.
func DefaultParams(fps float64) Params {
	return Params{
		FPS:             fps,
		SpatialScale:    config.DefaultSpatialScale,
		HistoryCapacity: config.DefaultHistoryCapacity,
		WindowSize:      config.DefaultMovingAverageWindow,
		SpeedUnits:      units.KMPH,
	}
}

// ParamsFromConfig builds Params from a loaded KinematicsConfig. sourceFPS is
// the rate reported by the frame source and is used unless the config
// overrides it.
func ParamsFromConfig(cfg *config.KinematicsConfig, sourceFPS float64) Params {
	return Params{
		FPS:             cfg.GetFPS(sourceFPS),
		SpatialScale:    cfg.GetSpatialScale(),
		HistoryCapacity: cfg.GetHistoryCapacity(),
		WindowSize:      cfg.GetMovingAverageWindow(),
		SpeedUnits:      cfg.GetSpeedUnits(),
	}
}

// Validate reports parameters the estimator cannot work with.
func (p Params) Validate() error {
	if !positiveFinite(p.FPS) {
		return fmt.Errorf("fps must be positive and finite, got %f", p.FPS)
	}
	if !positiveFinite(p.SpatialScale) {
		return fmt.Errorf("spatial scale must be positive and finite, got %f", p.SpatialScale)
	}
	if p.HistoryCapacity < 1 {
		return fmt.Errorf("history capacity must be at least 1, got %d", p.HistoryCapacity)
	}
	if p.WindowSize < 1 {
		return fmt.Errorf("moving average window must be at least 1, got %d", p.WindowSize)
	}
	if !units.IsValid(p.SpeedUnits) {
		return fmt.Errorf("speed units %q is not one of %s", p.SpeedUnits, units.GetValidUnitsString())
	}
	return nil
}

// Dt returns the sampling interval in seconds.
func (p Params) Dt() float64 {
	return 1 / p.FPS
}

// Round2 rounds half away from zero to two decimal places.
func Round2(x float64) float64 {
	return scalar.Round(x, 2)
}

// roundHeading rounds a heading and keeps it inside [0, 360).
func roundHeading(deg float64) float64 {
	r := Round2(deg)
	if r >= 360 {
		r -= 360
	}
	return r
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
