package kinematics

import "gonum.org/v1/gonum/stat"

// Averages are the trailing means of each metric.
type Averages struct {
	Speed        float64
	Acceleration float64
	Orientation  float64
}

type metricWindows struct {
	speed        *Ring[float64]
	acceleration *Ring[float64]
	orientation  *Ring[float64]
}

// Smoother keeps a window of the last WindowSize values per entity and per
// metric. It is independent of the HistoryStore: entities without a planar
// position still contribute their zero metrics.
type Smoother struct {
	size    int
	windows map[string]*metricWindows
}

// NewSmoother creates a smoother with the given window size.
func NewSmoother(size int) *Smoother {
	if size < 1 {
		size = 1
	}
	return &Smoother{size: size, windows: make(map[string]*metricWindows)}
}

// Smooth pushes m into the entity's windows and returns the rounded means.
// The divisor is the number of values held, not the window size.
func (s *Smoother) Smooth(entityID string, m Metrics) Averages {
	w, ok := s.windows[entityID]
	if !ok {
		w = &metricWindows{
			speed:        NewRing[float64](s.size),
			acceleration: NewRing[float64](s.size),
			orientation:  NewRing[float64](s.size),
		}
		s.windows[entityID] = w
	}
	w.speed.Push(m.Speed)
	w.acceleration.Push(m.Acceleration)
	w.orientation.Push(m.Orientation)

	return Averages{
		Speed:        mean(w.speed),
		Acceleration: mean(w.acceleration),
		Orientation:  mean(w.orientation),
	}
}

// WindowLen returns how many values the entity's windows currently hold.
func (s *Smoother) WindowLen(entityID string) int {
	w, ok := s.windows[entityID]
	if !ok {
		return 0
	}
	return w.speed.Len()
}

func mean(r *Ring[float64]) float64 {
	if r.Len() == 0 {
		return 0
	}
	return Round2(stat.Mean(r.Slice(), nil))
}
