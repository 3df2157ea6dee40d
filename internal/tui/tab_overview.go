package tui

import (
	"fmt"
	"strings"

	"github.com/waterwallet/wwdash/internal/cli"
	"github.com/waterwallet/wwdash/internal/gateway"
	"github.com/waterwallet/wwdash/internal/present"
	"github.com/waterwallet/wwdash/internal/tui/components"
	"github.com/waterwallet/wwdash/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// maxLeakRows bounds the leak alert card.
const maxLeakRows = 3

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	m := a.snap.Metrics
	var b strings.Builder

	if a.snap.IsZero() && a.lastErr != nil {
		b.WriteString(components.AlertCard("Could not load water data", a.failureBody(), cw))
		return b.String()
	}
	if a.lastErr != nil {
		b.WriteString(components.AlertCard("Last refresh failed, showing previous data", a.failureBody(), cw))
		b.WriteString("\n")
	}

	// Row 1: headline numbers
	effTone := t.Band(present.StatusBand(float64(m.Efficiency)))
	savedTone := t.Saved
	if m.SavedLiters < 0 {
		savedTone = t.Red
	}
	stats := []components.Stat{
		{Label: "Allocated", Value: cli.FormatLiters(m.AllocatedTotal), Note: "predicted"},
		{Label: "Used", Value: cli.FormatLiters(m.UsedTotal), Note: fmt.Sprintf("%d%% of allocation", m.Efficiency), Tone: effTone},
		{Label: "Saved", Value: cli.FormatSignedLiters(m.SavedLiters), Note: fmt.Sprintf("%d%% saving", m.SavingPercentage), Tone: savedTone},
		{Label: "Rainwater", Value: cli.FormatLiters(a.snap.Allocation.RainwaterHarvested), Note: "harvested", Tone: t.Rain},
	}
	b.WriteString(components.MetricCardRow(stats, cw))
	b.WriteString("\n")

	// Row 2: leaks and over-limit categories
	if leaks := gateway.Leaks(a.snap.Samples); len(leaks) > 0 {
		var body strings.Builder
		for i, s := range leaks {
			if i == maxLeakRows {
				fmt.Fprintf(&body, "… and %d more", len(leaks)-maxLeakRows)
				break
			}
			fmt.Fprintf(&body, "%s  flow %s  pressure %s\n",
				cli.FormatTimestamp(s.Timestamp),
				cli.FormatReading(s.FlowRate, "L/min"),
				cli.FormatReading(s.PipePressure, "PSI"))
		}
		b.WriteString(components.AlertCard(fmt.Sprintf("Leak detected (%d readings)", len(leaks)),
			strings.TrimRight(body.String(), "\n"), cw))
		b.WriteString("\n")
	}

	if over := m.Over(); len(over) > 0 {
		var body strings.Builder
		for i, c := range over {
			if i > 0 {
				body.WriteString("\n")
			}
			fmt.Fprintf(&body, "%-12s %s of %s (%s)", c.Label,
				cli.FormatLiters(c.Used), cli.FormatLiters(c.Allocated), cli.FormatPercent(c.UsagePercent))
		}
		b.WriteString(components.AlertCard("Over allocation", body.String(), cw))
		b.WriteString("\n")
	}

	// Row 3: allocation vs usage, plus efficiency gauge
	allocated, used := present.UsageSeries(m)
	compare := components.CompareBars(allocated, used, components.CardInnerWidth(cw))
	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("Allocation vs Usage", compare, cw))
		return b.String()
	}

	halves := components.LayoutRow(cw, 2)
	compare = components.CompareBars(allocated, used, components.CardInnerWidth(halves[0]))

	muted := lipgloss.NewStyle().Foreground(t.TextMuted)
	var eff strings.Builder
	eff.WriteString(components.CompactBandBar("Efficiency", float64(m.Efficiency), components.CardInnerWidth(halves[1])))
	eff.WriteString("\n\n")
	for _, c := range m.Categories {
		eff.WriteString(components.CompactBandBar(fmt.Sprintf("%-10s", truncStr(c.Label, 10)), c.UsagePercent, components.CardInnerWidth(halves[1])))
		eff.WriteString("\n")
	}
	eff.WriteString(muted.Render(fmt.Sprintf("cycle %s", truncStr(a.snap.CycleID, 8))))

	b.WriteString(components.CardRow([]string{
		components.ContentCard("Allocation vs Usage", compare, halves[0]),
		components.ContentCard("Status", eff.String(), halves[1]),
	}))
	return b.String()
}

// failureBody explains the last failed cycle, naming the half that arrived.
func (a App) failureBody() string {
	out := a.lastOutcome
	var lines []string
	if out.AllocationErr != nil {
		lines = append(lines, "allocation: "+out.AllocationErr.Error())
	}
	if out.UsageErr != nil {
		lines = append(lines, "usage: "+out.UsageErr.Error())
	}
	if len(lines) == 0 && a.lastErr != nil {
		lines = append(lines, a.lastErr.Error())
	}
	switch {
	case out.PartialAllocation != nil:
		lines = append(lines, "allocation arrived but was not applied without matching usage")
	case out.PartialSamples != nil:
		lines = append(lines, "usage arrived but was not applied without a matching allocation")
	}
	lines = append(lines, "press r to retry")
	return strings.Join(lines, "\n")
}
