package tui

import (
	"fmt"
	"strings"

	"github.com/waterwallet/wwdash/internal/cli"
	"github.com/waterwallet/wwdash/internal/metrics"
	"github.com/waterwallet/wwdash/internal/present"
	"github.com/waterwallet/wwdash/internal/tui/components"
	"github.com/waterwallet/wwdash/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

const maxSampleRows = 10

func (a App) renderUsageTab(cw int) string {
	t := theme.Active
	reg := a.coord.Registry()
	var b strings.Builder

	chartH := 10
	if a.isCompactLayout() {
		chartH = 7
	}

	usage := present.ChartSeries(a.snap.Usage, reg)
	points := components.FlowPoints(a.snap.Samples, a.now())

	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("Latest Usage by Category",
			components.BarChart(usage, components.CardInnerWidth(cw), chartH), cw))
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Flow Rate (L/min)",
			components.FlowChart(points, components.CardInnerWidth(cw), chartH), cw))
		b.WriteString("\n")
	} else {
		halves := components.LayoutRow(cw, 2)
		b.WriteString(components.CardRow([]string{
			components.ContentCard("Latest Usage by Category",
				components.BarChart(usage, components.CardInnerWidth(halves[0]), chartH), halves[0]),
			components.ContentCard("Flow Rate (L/min)",
				components.FlowChart(points, components.CardInnerWidth(halves[1]), chartH), halves[1]),
		}))
		b.WriteString("\n")
	}

	headStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	leakStyle := lipgloss.NewStyle().Foreground(t.Red).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	var body strings.Builder
	body.WriteString(headStyle.Render(fmt.Sprintf("%-14s %10s %12s %10s  %s", "Time", "Total", "Flow", "Pressure", "Leak")))
	body.WriteString("\n")
	if len(a.snap.Samples) == 0 {
		body.WriteString(dimStyle.Render("No usage readings reported"))
	}
	for i, s := range a.snap.Samples {
		if i == maxSampleRows {
			body.WriteString(dimStyle.Render(fmt.Sprintf("… %d older readings", len(a.snap.Samples)-maxSampleRows)))
			break
		}
		row := fmt.Sprintf("%-14s %10s %12s %10s  ",
			cli.FormatTimestamp(s.Timestamp),
			cli.FormatLiters(metrics.Total(s.Record, reg)),
			cli.FormatReading(s.FlowRate, "L/min"),
			cli.FormatReading(s.PipePressure, "PSI"))
		body.WriteString(rowStyle.Render(row))
		if s.LeakDetected {
			body.WriteString(leakStyle.Render("yes"))
		} else {
			body.WriteString(dimStyle.Render("no"))
		}
		body.WriteString("\n")
	}

	b.WriteString(components.ContentCard(
		fmt.Sprintf("Recent Readings (%d)", len(a.snap.Samples)),
		strings.TrimRight(body.String(), "\n"), cw))
	return b.String()
}
