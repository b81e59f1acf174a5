package kinematics

import (
	"math"

	"github.com/banshee-data/rinkspeed/internal/units"
)

// Observation is the calculator's view of one entity in one frame.
type Observation struct {
	EntityID string
	Position *Point // nil when the plane projection failed
}

// Metrics are the instantaneous kinematics of one entity in one frame.
type Metrics struct {
	Speed        float64 // display units (Params.SpeedUnits), 2 decimals
	Acceleration float64 // m/s², 2 decimals
	Orientation  float64 // degrees in [0, 360), 2 decimals

	SpeedMPS float64 // unrounded m/s, as stored in history
}

// Calculator derives Metrics from consecutive planar positions using the
// HistoryStore as its only state.
type Calculator struct {
	params  Params
	history *HistoryStore
}

// NewCalculator returns a calculator writing to history.
func NewCalculator(params Params, history *HistoryStore) *Calculator {
	return &Calculator{params: params, history: history}
}

// Compute returns the metrics for one observation and records its position.
//
// The previous sample is whatever the history holds last for the entity, so
// an entity missing from intermediate frames is compared against its last
// seen position over a single dt.
func (c *Calculator) Compute(frameIndex int, obs Observation) Metrics {
	if obs.Position == nil {
		return Metrics{}
	}
	cur := *obs.Position

	prev, n := c.history.last(obs.EntityID)
	if n == 0 {
		c.history.Record(obs.EntityID, frameIndex, cur, 0)
		return Metrics{}
	}

	dt := c.params.Dt()
	dx := cur.X - prev.Position.X
	dy := cur.Y - prev.Position.Y
	dist := math.Sqrt(dx*dx + dy*dy)

	speedMPS := units.PlaneToMeters(dist, c.params.SpatialScale) / dt

	m := Metrics{
		SpeedMPS:    speedMPS,
		Speed:       Round2(units.ConvertSpeed(speedMPS, c.params.SpeedUnits)),
		Orientation: roundHeading(units.HeadingDegrees(dx, dy)),
	}
	if n >= 2 {
		m.Acceleration = Round2((speedMPS - prev.SpeedMPS) / dt)
	}

	c.history.Record(obs.EntityID, frameIndex, cur, speedMPS)
	return m
}

// ComputeFrame applies Compute to every observation of one frame, returning
// metrics in the same order.
func (c *Calculator) ComputeFrame(frameIndex int, frame []Observation) []Metrics {
	out := make([]Metrics, len(frame))
	for i, obs := range frame {
		out[i] = c.Compute(frameIndex, obs)
	}
	return out
}
