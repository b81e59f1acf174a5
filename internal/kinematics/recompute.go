package kinematics

// Frame is one frame of observations for batch processing.
type Frame struct {
	Index        int
	Observations []Observation
}

// Recompute derives metrics for a complete, ordered frame list with fresh
// state. It runs the same Estimator as the streaming path, so the result for
// a given input is identical to what a live run produced.
func Recompute(params Params, frames []Frame) [][]Estimate {
	est := NewEstimator(params)
	out := make([][]Estimate, len(frames))
	for i, f := range frames {
		out[i] = est.Step(f.Index, f.Observations)
	}
	return out
}
