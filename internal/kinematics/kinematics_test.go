package kinematics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/banshee-data/rinkspeed/internal/config"
	"github.com/banshee-data/rinkspeed/internal/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(x, y float64) *Point { return &Point{X: x, Y: y} }

// ---------------------------------------------------------------------------
// Ring
// ---------------------------------------------------------------------------

func TestRing(t *testing.T) {
	t.Parallel()

	t.Run("fills then evicts oldest first", func(t *testing.T) {
		t.Parallel()
		r := NewRing[int](3)
		for i := 1; i <= 3; i++ {
			_, evicted := r.Push(i)
			assert.False(t, evicted)
		}
		assert.Equal(t, []int{1, 2, 3}, r.Slice())

		old, evicted := r.Push(4)
		require.True(t, evicted)
		assert.Equal(t, 1, old)
		assert.Equal(t, []int{2, 3, 4}, r.Slice())

		last, ok := r.Last()
		require.True(t, ok)
		assert.Equal(t, 4, last)
		assert.Equal(t, 2, r.At(0))
	})

	t.Run("length never exceeds capacity", func(t *testing.T) {
		t.Parallel()
		r := NewRing[int](5)
		for i := 0; i < 100; i++ {
			r.Push(i)
			assert.LessOrEqual(t, r.Len(), r.Cap())
		}
		assert.Equal(t, []int{95, 96, 97, 98, 99}, r.Slice())
	})

	t.Run("empty ring", func(t *testing.T) {
		t.Parallel()
		r := NewRing[float64](0)
		assert.Equal(t, 1, r.Cap())
		_, ok := r.Last()
		assert.False(t, ok)
		assert.Empty(t, r.Slice())
		assert.Panics(t, func() { r.At(0) })
	})
}

// ---------------------------------------------------------------------------
// HistoryStore
// ---------------------------------------------------------------------------

func TestHistoryStore(t *testing.T) {
	t.Parallel()

	t.Run("unknown entity has empty history", func(t *testing.T) {
		t.Parallel()
		s := NewHistoryStore(10)
		assert.Empty(t, s.HistoryOf("nobody"))
		assert.Equal(t, 0, s.Len())
	})

	t.Run("bounded to capacity, oldest evicted", func(t *testing.T) {
		t.Parallel()
		s := NewHistoryStore(10)
		for i := 0; i < 25; i++ {
			s.Record("P1", i, Point{X: float64(i)}, float64(i))
		}
		h := s.HistoryOf("P1")
		require.Len(t, h, 10)
		assert.Equal(t, 15, h[0].FrameIndex)
		assert.Equal(t, 24, h[9].FrameIndex)
		assert.Equal(t, 24.0, h[9].SpeedMPS)
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		t.Parallel()
		s := NewHistoryStore(4)
		s.Record("P1", 0, Point{X: 1}, 0)
		h := s.HistoryOf("P1")
		h[0].Position.X = 99
		assert.Equal(t, 1.0, s.HistoryOf("P1")[0].Position.X)
	})
}

// ---------------------------------------------------------------------------
// Calculator
// ---------------------------------------------------------------------------

func TestCalculator_SingleObservation(t *testing.T) {
	t.Parallel()
	s := NewHistoryStore(10)
	c := NewCalculator(DefaultParams(30), s)

	m := c.Compute(0, Observation{EntityID: "P1", Position: pt(4, 5)})
	assert.Equal(t, Metrics{}, m)
	require.Len(t, s.HistoryOf("P1"), 1)
	assert.Equal(t, 0.0, s.HistoryOf("P1")[0].SpeedMPS)
}

func TestCalculator_ConstantVelocity(t *testing.T) {
	t.Parallel()
	s := NewHistoryStore(10)
	c := NewCalculator(DefaultParams(30), s)

	var got []Metrics
	for i := 0; i < 6; i++ {
		got = append(got, c.Compute(i, Observation{EntityID: "P1", Position: pt(float64(i), 0)}))
	}

	assert.Equal(t, 0.0, got[0].Speed)
	for i := 1; i < len(got); i++ {
		// 1 unit · 0.1 m · 30 fps = 3 m/s = 10.8 km/h
		assert.InDelta(t, 10.8, got[i].Speed, 1e-9, "frame %d", i)
		assert.InDelta(t, 3.0, got[i].SpeedMPS, 1e-9, "frame %d", i)
		assert.Equal(t, 0.0, got[i].Orientation, "frame %d", i)
		assert.Equal(t, 0.0, got[i].Acceleration, "frame %d", i)
	}

	// History stores m/s, not the display value.
	h := s.HistoryOf("P1")
	assert.InDelta(t, 3.0, h[len(h)-1].SpeedMPS, 1e-9)
}

func TestCalculator_Acceleration(t *testing.T) {
	t.Parallel()
	s := NewHistoryStore(10)
	c := NewCalculator(DefaultParams(10), s)

	c.Compute(0, Observation{EntityID: "P1", Position: pt(0, 0)})
	m1 := c.Compute(1, Observation{EntityID: "P1", Position: pt(1, 0)}) // 1 m/s
	m2 := c.Compute(2, Observation{EntityID: "P1", Position: pt(3, 0)}) // 2 m/s

	assert.Equal(t, 0.0, m1.Acceleration, "needs two prior samples")
	// (2 − 1) m/s over 0.1 s
	assert.InDelta(t, 10.0, m2.Acceleration, 1e-9)
	assert.InDelta(t, 7.2, m2.Speed, 1e-9)
}

func TestCalculator_MissingPosition(t *testing.T) {
	t.Parallel()
	s := NewHistoryStore(10)
	c := NewCalculator(DefaultParams(30), s)

	c.Compute(0, Observation{EntityID: "P1", Position: pt(0, 0)})
	m := c.Compute(1, Observation{EntityID: "P1"})

	assert.Equal(t, Metrics{}, m)
	assert.Len(t, s.HistoryOf("P1"), 1, "history untouched without a position")
}

func TestCalculator_GapUsesSingleInterval(t *testing.T) {
	t.Parallel()
	s := NewHistoryStore(10)
	c := NewCalculator(DefaultParams(30), s)

	c.Compute(0, Observation{EntityID: "P2", Position: pt(0, 0)})
	m := c.Compute(2, Observation{EntityID: "P2", Position: pt(2, 0)})

	// Two steps of displacement divided by one dt.
	assert.InDelta(t, 21.6, m.Speed, 1e-9)
}

func TestCalculator_Orientation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		dx, dy float64
		want   float64
	}{
		{"east", 1, 0, 0},
		{"north", 0, 1, 90},
		{"west", -1, 0, 180},
		{"south", 0, -1, 270},
		{"stationary", 0, 0, 0},
		{"rounds up to full turn", 1, -1e-9, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewHistoryStore(10)
			c := NewCalculator(DefaultParams(30), s)
			c.Compute(0, Observation{EntityID: "P3", Position: pt(5, 5)})
			m := c.Compute(1, Observation{EntityID: "P3", Position: pt(5+tt.dx, 5+tt.dy)})
			assert.InDelta(t, tt.want, m.Orientation, 1e-9)
		})
	}
}

func TestCalculator_OrientationRange(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(42))
	s := NewHistoryStore(10)
	c := NewCalculator(DefaultParams(30), s)

	x, y := 0.0, 0.0
	for i := 0; i < 500; i++ {
		x += rng.Float64()*2 - 1
		y += rng.Float64()*2 - 1
		m := c.Compute(i, Observation{EntityID: "P", Position: pt(x, y)})
		assert.GreaterOrEqual(t, m.Orientation, 0.0)
		assert.Less(t, m.Orientation, 360.0)
		assert.LessOrEqual(t, len(s.HistoryOf("P")), 10)
	}
}

func TestCalculator_SpeedUnits(t *testing.T) {
	t.Parallel()
	p := DefaultParams(30)
	p.SpeedUnits = units.MPS
	c := NewCalculator(p, NewHistoryStore(10))

	c.Compute(0, Observation{EntityID: "P1", Position: pt(0, 0)})
	m := c.Compute(1, Observation{EntityID: "P1", Position: pt(1, 0)})
	assert.InDelta(t, 3.0, m.Speed, 1e-9)
}

func TestCalculator_ComputeFrameKeepsOrder(t *testing.T) {
	t.Parallel()
	c := NewCalculator(DefaultParams(30), NewHistoryStore(10))

	c.ComputeFrame(0, []Observation{
		{EntityID: "A", Position: pt(0, 0)},
		{EntityID: "B", Position: pt(0, 0)},
	})
	out := c.ComputeFrame(1, []Observation{
		{EntityID: "B", Position: pt(0, 2)},
		{EntityID: "A", Position: pt(1, 0)},
	})
	require.Len(t, out, 2)
	assert.InDelta(t, 21.6, out[0].Speed, 1e-9)
	assert.InDelta(t, 10.8, out[1].Speed, 1e-9)
}

// ---------------------------------------------------------------------------
// Smoother
// ---------------------------------------------------------------------------

func TestSmoother(t *testing.T) {
	t.Parallel()

	t.Run("first value averages to itself", func(t *testing.T) {
		t.Parallel()
		s := NewSmoother(5)
		avg := s.Smooth("P1", Metrics{Speed: 10.8, Acceleration: 1.5, Orientation: 90})
		assert.Equal(t, Averages{Speed: 10.8, Acceleration: 1.5, Orientation: 90}, avg)
	})

	t.Run("identical values average exactly", func(t *testing.T) {
		t.Parallel()
		s := NewSmoother(5)
		var avg Averages
		for i := 0; i < 4; i++ {
			avg = s.Smooth("P1", Metrics{Speed: 12.34})
		}
		assert.Equal(t, 12.34, avg.Speed)
	})

	t.Run("divisor is the observed count", func(t *testing.T) {
		t.Parallel()
		s := NewSmoother(5)
		s.Smooth("P4", Metrics{Speed: 0})
		s.Smooth("P4", Metrics{Speed: 10.8})
		avg := s.Smooth("P4", Metrics{Speed: 10.8})
		assert.InDelta(t, 7.2, avg.Speed, 1e-9)
	})

	t.Run("window slides after capacity", func(t *testing.T) {
		t.Parallel()
		s := NewSmoother(5)
		var avg Averages
		for i := 1; i <= 8; i++ {
			avg = s.Smooth("P1", Metrics{Acceleration: float64(i)})
			assert.LessOrEqual(t, s.WindowLen("P1"), 5)
		}
		// mean(4..8)
		assert.InDelta(t, 6.0, avg.Acceleration, 1e-9)
	})

	t.Run("entities are independent", func(t *testing.T) {
		t.Parallel()
		s := NewSmoother(5)
		s.Smooth("A", Metrics{Speed: 100})
		avg := s.Smooth("B", Metrics{Speed: 1})
		assert.Equal(t, 1.0, avg.Speed)
		assert.Equal(t, 0, s.WindowLen("C"))
	})
}

// ---------------------------------------------------------------------------
// Estimator
// ---------------------------------------------------------------------------

func TestEstimator_Scenario(t *testing.T) {
	t.Parallel()
	e := NewEstimator(DefaultParams(30))

	f0 := e.Step(0, []Observation{{EntityID: "P1", Position: pt(0, 0)}})
	f1 := e.Step(1, []Observation{{EntityID: "P1", Position: pt(1, 0)}})
	f2 := e.Step(2, []Observation{{EntityID: "P1", Position: pt(2, 0)}, {EntityID: "P9"}})

	assert.Equal(t, 0.0, f0[0].Metrics.Speed)
	assert.InDelta(t, 10.8, f1[0].Metrics.Speed, 1e-9)
	assert.InDelta(t, 5.4, f1[0].MovingAvg.Speed, 1e-9)
	assert.InDelta(t, 10.8, f2[0].Metrics.Speed, 1e-9)
	assert.InDelta(t, 7.2, f2[0].MovingAvg.Speed, 1e-9)
	assert.Equal(t, 0.0, f2[0].Metrics.Acceleration)

	require.Len(t, f2, 2)
	assert.Equal(t, "P9", f2[1].EntityID)
	assert.Equal(t, Averages{}, f2[1].MovingAvg)
	assert.Len(t, e.History().HistoryOf("P1"), 3)
	assert.Empty(t, e.History().HistoryOf("P9"))
	assert.Equal(t, 1, e.Smoother().WindowLen("P9"))
}

func TestEstimator_Deterministic(t *testing.T) {
	t.Parallel()

	run := func() []Estimate {
		e := NewEstimator(DefaultParams(25))
		var out []Estimate
		for i := 0; i < 40; i++ {
			out = append(out, e.Step(i, []Observation{
				{EntityID: "A", Position: pt(float64(i)*0.7, float64(i*i)*0.01)},
				{EntityID: "B", Position: pt(float64(-i), 3)},
			})...)
		}
		return out
	}

	assert.Equal(t, run(), run())
}

func TestRecompute_MatchesStreaming(t *testing.T) {
	t.Parallel()

	params := DefaultParams(30)
	var frames []Frame
	for i := 0; i < 25; i++ {
		obs := []Observation{{EntityID: "A", Position: pt(float64(i)*1.5, float64(i%3))}}
		if i%4 != 0 {
			obs = append(obs, Observation{EntityID: "B", Position: pt(10, float64(i))})
		} else {
			obs = append(obs, Observation{EntityID: "B"})
		}
		frames = append(frames, Frame{Index: i * 5, Observations: obs})
	}

	live := NewEstimator(params)
	var streamed [][]Estimate
	for _, f := range frames {
		streamed = append(streamed, live.Step(f.Index, f.Observations))
	}

	assert.Equal(t, streamed, Recompute(params, frames))
	assert.Empty(t, Recompute(params, nil))
}

func TestParams(t *testing.T) {
	t.Parallel()

	p := ParamsFromConfig(config.DefaultKinematicsConfig(), 50)
	require.NoError(t, p.Validate())
	assert.Equal(t, 50.0, p.FPS)
	assert.InDelta(t, 0.02, p.Dt(), 1e-12)
	assert.Equal(t, 10, p.HistoryCapacity)
	assert.Equal(t, 5, p.WindowSize)
	assert.Equal(t, 0.1, p.SpatialScale)

	invalid := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero fps", func(p *Params) { p.FPS = 0 }},
		{"NaN fps", func(p *Params) { p.FPS = math.NaN() }},
		{"infinite fps", func(p *Params) { p.FPS = math.Inf(1) }},
		{"negative scale", func(p *Params) { p.SpatialScale = -0.1 }},
		{"NaN scale", func(p *Params) { p.SpatialScale = math.NaN() }},
		{"infinite scale", func(p *Params) { p.SpatialScale = math.Inf(1) }},
		{"zero history", func(p *Params) { p.HistoryCapacity = 0 }},
		{"zero window", func(p *Params) { p.WindowSize = 0 }},
		{"unknown units", func(p *Params) { p.SpeedUnits = "furlongs" }},
	}
	for _, tt := range invalid {
		bad := p
		tt.mutate(&bad)
		assert.Error(t, bad.Validate(), tt.name)
	}
}

func TestRound2(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 10.8, Round2(10.800000000000002))
	assert.Equal(t, 1.24, Round2(1.236))
	assert.Equal(t, -1.24, Round2(-1.236))
	assert.Equal(t, 3.0, Round2(2.9999999))
	assert.Equal(t, 0.0, roundHeading(359.999))
}
