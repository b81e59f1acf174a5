package kinematics

// Estimate pairs an entity's instantaneous metrics with their moving averages.
type Estimate struct {
	EntityID  string
	Metrics   Metrics
	MovingAvg Averages
}

// Estimator owns all per-run state: the position history and the
// moving-average windows. One Estimator serves one run.
type Estimator struct {
	params   Params
	history  *HistoryStore
	calc     *Calculator
	smoother *Smoother
}

// NewEstimator creates an estimator with empty state.
func NewEstimator(params Params) *Estimator {
	history := NewHistoryStore(params.HistoryCapacity)
	return &Estimator{
		params:   params,
		history:  history,
		calc:     NewCalculator(params, history),
		smoother: NewSmoother(params.WindowSize),
	}
}

// Params returns the parameters the estimator was built with.
func (e *Estimator) Params() Params { return e.params }

// History exposes the position history, mainly for inspection in tests.
func (e *Estimator) History() *HistoryStore { return e.history }

// Smoother exposes the moving-average windows.
func (e *Estimator) Smoother() *Smoother { return e.smoother }

// Step processes one frame. Observations are handled in the order given and
// the returned slice matches that order.
func (e *Estimator) Step(frameIndex int, frame []Observation) []Estimate {
	metrics := e.calc.ComputeFrame(frameIndex, frame)
	out := make([]Estimate, len(frame))
	for i, m := range metrics {
		id := frame[i].EntityID
		out[i] = Estimate{
			EntityID:  id,
			Metrics:   m,
			MovingAvg: e.smoother.Smooth(id, m),
		}
	}
	return out
}
