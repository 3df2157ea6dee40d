package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/waterwallet/wwdash/internal/present"
	"github.com/waterwallet/wwdash/internal/tui/theme"
)

// Sparkline renders a unicode sparkline from values.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := values[0]
	for _, v := range values[1:] {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		peak = 1
	}

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int(v / peak * float64(len(blocks)-1))
		if idx >= len(blocks) {
			idx = len(blocks) - 1
		}
		if idx < 0 {
			idx = 0
		}
		buf.WriteRune(blocks[idx])
	}

	return lipgloss.NewStyle().Foreground(color).Render(buf.String())
}

// BarChart renders a vertical bar chart of one series, each bar in its
// palette colour so it matches the share view.
func BarChart(s present.Series, width, height int) string {
	n := s.Len()
	if n == 0 {
		return ""
	}
	t := theme.Active
	if width < 15 || height < 3 {
		return Sparkline(s.Values, t.Accent)
	}

	maxVal := s.Max()
	if maxVal <= 0 {
		maxVal = 1
	}

	// Y-axis: nice tick step, at most one tick per two rows.
	tickStep := chartTickStep(maxVal)
	maxIntervals := max(height/2, 2)
	for int(math.Ceil(maxVal/tickStep)) > maxIntervals {
		tickStep *= 2
	}
	ceiling := math.Ceil(maxVal/tickStep) * tickStep
	numIntervals := max(int(math.Round(ceiling/tickStep)), 1)
	rowsPerTick := max(height/numIntervals, 2)
	chartH := rowsPerTick * numIntervals

	yLabelW := max(len(formatChartLabel(ceiling))+1, 4)
	tickLabels := make(map[int]string, numIntervals)
	for i := 1; i <= numIntervals; i++ {
		tickLabels[i*rowsPerTick] = formatChartLabel(tickStep * float64(i))
	}

	chartW := max(width-yLabelW-1, 5)
	gap := 2
	barW := (chartW - (n-1)*gap) / n
	barW = min(max(barW, 2), 10)
	axisLen := n*barW + (n-1)*gap

	blocks := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	var b strings.Builder
	for row := chartH; row >= 1; row-- {
		rowTop := ceiling * float64(row) / float64(chartH)
		rowBottom := ceiling * float64(row-1) / float64(chartH)

		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, tickLabels[row])))
		b.WriteString(axisStyle.Render("│"))

		for i, v := range s.Values {
			if i > 0 {
				b.WriteString(strings.Repeat(" ", gap))
			}
			barStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(present.PaletteColor(i)))
			switch {
			case v >= rowTop:
				b.WriteString(barStyle.Render(strings.Repeat("█", barW)))
			case v > rowBottom:
				idx := int((v - rowBottom) / (rowTop - rowBottom) * 8)
				idx = min(max(idx, 1), 8)
				b.WriteString(barStyle.Render(strings.Repeat(string(blocks[idx]), barW)))
			default:
				b.WriteString(strings.Repeat(" ", barW))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, "0")))
	b.WriteString(axisStyle.Render("└" + strings.Repeat("─", axisLen)))

	// Category labels centred under each bar, truncated to the bar slot.
	b.WriteString("\n")
	b.WriteString(strings.Repeat(" ", yLabelW+1))
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	slot := barW + gap
	for i, lbl := range s.Labels {
		w := slot
		if i == n-1 {
			w = barW
		}
		if len(lbl) > w {
			lbl = lbl[:w]
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-*s", w, lbl)))
	}

	return b.String()
}

// CompareBars renders one row per category with the allocated and used
// bars stacked, scaled to the largest value across both series.
func CompareBars(allocated, used present.Series, width int) string {
	n := min(allocated.Len(), used.Len())
	if n == 0 {
		return ""
	}
	t := theme.Active

	labelW := 0
	for _, l := range allocated.Labels[:n] {
		labelW = max(labelW, lipgloss.Width(l))
	}
	valueW := 9
	barW := max(width-labelW-valueW-4, 4)

	peak := math.Max(allocated.Max(), used.Max())
	if peak <= 0 {
		peak = 1
	}

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	allocStyle := lipgloss.NewStyle().Foreground(t.Allocated)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	scaled := func(v float64) int {
		return min(max(int(v/peak*float64(barW)), 0), barW)
	}

	var rows []string
	for i := 0; i < n; i++ {
		a, u := allocated.Values[i], used.Values[i]
		band := present.StatusBand(percentOf(u, a))
		usedStyle := lipgloss.NewStyle().Foreground(t.Band(band))

		aw, uw := scaled(a), scaled(u)
		rows = append(rows,
			labelStyle.Render(fmt.Sprintf("%-*s", labelW, allocated.Labels[i]))+"  "+
				allocStyle.Render(strings.Repeat("▔", aw))+strings.Repeat(" ", barW-aw)+" "+
				valueStyle.Render(fmt.Sprintf("%*s", valueW, formatChartLabel(a)+" L")),
			strings.Repeat(" ", labelW)+"  "+
				usedStyle.Render(strings.Repeat("█", uw))+strings.Repeat(" ", barW-uw)+" "+
				usedStyle.Render(fmt.Sprintf("%*s", valueW, formatChartLabel(u)+" L")),
		)
	}
	legend := allocStyle.Render("▔ allocated") + "  " + lipgloss.NewStyle().Foreground(t.Used).Render("█ used")
	return strings.Join(rows, "\n") + "\n" + legend
}

// ShareBars renders the allocation share view: one coloured bar per category.
func ShareBars(shares []present.Share, width int) string {
	if len(shares) == 0 {
		return ""
	}
	t := theme.Active

	labelW := 0
	for _, s := range shares {
		labelW = max(labelW, lipgloss.Width(s.Label))
	}
	barW := max(width-labelW-18, 4)

	var b strings.Builder
	for i, s := range shares {
		if i > 0 {
			b.WriteString("\n")
		}
		filled := min(max(int(s.Percent/100*float64(barW)), 0), barW)
		b.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Render(fmt.Sprintf("%-*s", labelW, s.Label)))
		b.WriteString("  ")
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)).Render(strings.Repeat("█", filled)))
		b.WriteString(strings.Repeat(" ", barW-filled))
		b.WriteString(lipgloss.NewStyle().Foreground(t.TextDim).Render(
			fmt.Sprintf(" %8s %5.1f%%", formatChartLabel(s.Liters)+" L", s.Percent)))
	}
	return b.String()
}

func percentOf(used, allocated float64) float64 {
	if allocated == 0 {
		return 0
	}
	return used * 100 / allocated
}

// chartTickStep computes a nice tick interval targeting ~5 ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	exp := math.Floor(math.Log10(rough))
	base := math.Pow(10, exp)
	frac := rough / base

	switch {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

// formatChartLabel formats liters compactly for axes: 1500 -> "1.5k".
func formatChartLabel(v float64) string {
	switch {
	case v >= 1e6:
		if v == math.Trunc(v/1e6)*1e6 {
			return fmt.Sprintf("%.0fM", v/1e6)
		}
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		if v == math.Trunc(v/1e3)*1e3 {
			return fmt.Sprintf("%.0fk", v/1e3)
		}
		return fmt.Sprintf("%.1fk", v/1e3)
	case v == math.Trunc(v):
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.1f", v)
	}
}
