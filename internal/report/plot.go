package report

import (
	"fmt"
	"io"

	"github.com/banshee-data/rinkspeed/internal/record"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// WriteSpeedPlot draws each player's smoothed speed against time as a PNG.
// Players without any positioned sample are left out.
func WriteSpeedPlot(w io.Writer, data *record.TrackingData) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Smoothed speed, run %s", data.RunID)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = fmt.Sprintf("Speed (%s)", data.Params.SpeedUnits)
	p.Add(plotter.NewGrid())

	n := 0
	for _, s := range PlayerSeries(data.Frames) {
		pts := make(plotter.XYs, 0, len(s.Samples))
		for _, smp := range s.Samples {
			if smp.Entity.RinkPosition == nil {
				continue
			}
			pts = append(pts, plotter.XY{X: smp.Time, Y: smp.Entity.SpeedMovingAvg})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("speed line for %s: %w", s.PlayerID, err)
		}
		line.Width = vg.Points(1)
		line.Color = plotutil.Color(n)
		p.Add(line)
		p.Legend.Add(s.PlayerID, line)
		n++
	}
	p.Legend.Top = true

	wt, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("speed plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write speed plot: %w", err)
	}
	return nil
}
