package components

import (
	"time"

	"github.com/NimbleMarkets/ntcharts/linechart"
	tslc "github.com/NimbleMarkets/ntcharts/linechart/timeserieslinechart"
	"github.com/charmbracelet/lipgloss"

	"github.com/waterwallet/wwdash/internal/model"
	"github.com/waterwallet/wwdash/internal/tui/theme"
)

// FlowWindow is how many samples the flow-rate chart plots.
const FlowWindow = 7

// FlowPoint is one plotted flow-rate reading.
type FlowPoint struct {
	Time  time.Time
	Value float64
}

// FlowPoints picks the last FlowWindow samples carrying a flow rate and
// returns them oldest first. Samples arrive most recent first. Samples
// with no timestamp are spaced one minute apart ending at now.
func FlowPoints(samples []model.Sample, now time.Time) []FlowPoint {
	var picked []model.Sample
	for _, s := range samples {
		if s.FlowRate == nil {
			continue
		}
		picked = append(picked, s)
		if len(picked) == FlowWindow {
			break
		}
	}

	out := make([]FlowPoint, len(picked))
	for i, s := range picked {
		ts := s.Timestamp
		if ts.IsZero() {
			ts = now.Add(-time.Duration(i) * time.Minute)
		}
		out[len(picked)-1-i] = FlowPoint{Time: ts, Value: *s.FlowRate}
	}
	return out
}

// FlowChart renders flow-rate readings (L/min) as a braille line chart.
func FlowChart(points []FlowPoint, width, height int) string {
	t := theme.Active
	if len(points) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextDim).Render("No flow-rate readings")
	}
	width = max(width, 20)
	height = max(height, 5)

	start, end := points[0].Time, points[len(points)-1].Time
	if !end.After(start) {
		end = start.Add(time.Minute)
	}

	peak := 0.0
	for _, p := range points {
		peak = max(peak, p.Value)
	}
	if peak <= 0 {
		peak = 1
	}
	yMax := peak * 1.1

	chart := tslc.New(width, height)
	chart.SetStyle(lipgloss.NewStyle().Foreground(t.Accent))
	chart.AxisStyle = lipgloss.NewStyle().Foreground(t.TextDim)
	chart.LabelStyle = lipgloss.NewStyle().Foreground(t.TextMuted)
	chart.SetTimeRange(start, end)
	chart.SetViewTimeRange(start, end)
	chart.SetYRange(0, yMax)
	chart.SetViewYRange(0, yMax)
	chart.Model.XLabelFormatter = flowTimeLabel(end.Sub(start))
	chart.Model.YLabelFormatter = flowValueLabel

	for _, p := range points {
		chart.Push(tslc.TimePoint{Time: p.Time, Value: p.Value})
	}
	chart.DrawBraille()

	return chart.View()
}

func flowTimeLabel(span time.Duration) linechart.LabelFormatter {
	layout := "15:04"
	if span > 24*time.Hour {
		layout = "Jan 02"
	}
	return func(_ int, v float64) string {
		return time.Unix(int64(v), 0).Local().Format(layout)
	}
}

func flowValueLabel(_ int, v float64) string {
	return formatChartLabel(v)
}
