package pipeline

import (
	"fmt"

	"github.com/banshee-data/rinkspeed/internal/kinematics"
	"github.com/banshee-data/rinkspeed/internal/record"
)

// Recompute re-derives every metric of a saved run with fresh estimator
// state, in stored frame order. When params is nil the parameters recorded
// in data are used. Timestamps follow the recomputed frame rate. The input
// is not modified.
func Recompute(data *record.TrackingData, params *kinematics.Params) (*record.TrackingData, error) {
	p := data.Params.Params()
	if params != nil {
		p = *params
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("kinematics parameters: %w", err)
	}

	batch := make([]kinematics.Frame, len(data.Frames))
	for i := range data.Frames {
		batch[i] = kinematics.Frame{Index: data.Frames[i].FrameIndex, Observations: data.Frames[i].KinematicsInput()}
	}
	results := kinematics.Recompute(p, batch)

	out := *data
	out.Params = record.ParametersOf(p)
	out.Frames = make([]record.FrameRecord, len(data.Frames))
	for i, f := range data.Frames {
		players := make([]record.Entity, len(f.Players))
		copy(players, f.Players)
		f.Players = players
		f.Timestamp = float64(f.FrameIndex-data.StartFrame) / p.FPS
		f.ApplyEstimates(results[i])
		out.Frames[i] = f
	}
	return &out, nil
}
