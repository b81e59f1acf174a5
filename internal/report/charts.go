package report

import (
	"fmt"
	"io"

	"github.com/banshee-data/rinkspeed/internal/record"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

type metric struct {
	title string
	unit  string
	value func(record.Entity) float64
}

// WriteCharts renders an HTML page with the smoothed metrics of every player
// over time and their positions on the rink plane.
func WriteCharts(w io.Writer, data *record.TrackingData) error {
	series := PlayerSeries(data.Frames)
	subtitle := fmt.Sprintf("run=%s frames=%d players=%d", data.RunID, len(data.Frames), len(series))

	metrics := []metric{
		{"Speed (moving average)", data.Params.SpeedUnits, func(e record.Entity) float64 { return e.SpeedMovingAvg }},
		{"Acceleration (moving average)", "m/s²", func(e record.Entity) float64 { return e.AccelerationMovingAvg }},
		{"Orientation (moving average)", "°", func(e record.Entity) float64 { return e.OrientationMovingAvg }},
	}

	page := components.NewPage()
	page.PageTitle = "Player Kinematics"
	for _, m := range metrics {
		page.AddCharts(metricChart(series, m, subtitle))
	}
	page.AddCharts(rinkChart(series, subtitle))

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render charts: %w", err)
	}
	return nil
}

func metricChart(series []Series, m metric, subtitle string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: m.title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: m.unit}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	)
	for _, s := range series {
		points := make([]opts.LineData, 0, len(s.Samples))
		for _, smp := range s.Samples {
			points = append(points, opts.LineData{Value: []interface{}{smp.Time, m.value(smp.Entity)}})
		}
		line.AddSeries(s.PlayerID, points, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}
	return line
}

func rinkChart(series []Series, subtitle string) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Rink positions", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "x"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "y"}),
	)
	for _, s := range series {
		points := make([]opts.ScatterData, 0, len(s.Samples))
		for _, smp := range s.Samples {
			if p := smp.Entity.RinkPosition; p != nil {
				points = append(points, opts.ScatterData{Value: []interface{}{p.X, p.Y, smp.FrameIndex}})
			}
		}
		if len(points) == 0 {
			continue
		}
		scatter.AddSeries(s.PlayerID, points, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	}
	return scatter
}
