package components

import (
	"fmt"
	"math"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/waterwallet/wwdash/internal/present"
	"github.com/waterwallet/wwdash/internal/tui/theme"
)

// BandBar renders a labeled usage bar. pct is the unclamped usage
// percentage; the bar fill is clamped to 100 while the printed value is not.
func BandBar(label string, pct float64, labelW, barWidth int) string {
	t := theme.Active
	band := present.StatusBand(pct)
	color := t.Band(band)

	fill := barFill(pct)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	pctStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	bandStyle := lipgloss.NewStyle().Foreground(color)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		" " + bar.ViewAs(fill) +
		" " + pctStyle.Render(fmt.Sprintf("%4.0f%%", pct)) +
		"  " + bandStyle.Render(band.String())
}

// CompactBandBar renders a status-bar-sized efficiency indicator.
func CompactBandBar(label string, pct float64, width int) string {
	t := theme.Active
	color := t.Band(present.StatusBand(pct))

	barW := width - lipgloss.Width(label) - 7
	if barW < 4 {
		barW = 4
	}

	fill := barFill(pct)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barW),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	return lipgloss.NewStyle().Foreground(t.TextMuted).Render(label) +
		" " + bar.ViewAs(fill) +
		" " + lipgloss.NewStyle().Foreground(color).Bold(true).Render(fmt.Sprintf("%3.0f%%", pct))
}

// barFill maps a usage percentage to a progress fraction in [0, 1].
func barFill(pct float64) float64 {
	if math.IsNaN(pct) {
		return 0
	}
	return math.Min(math.Max(pct/100, 0), 1)
}
