package tui

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/waterwallet/wwdash/internal/logging"
	"github.com/waterwallet/wwdash/internal/tui/components"
	"github.com/waterwallet/wwdash/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// logsKey scrolls the log panel. logsScroll counts lines up from the
// newest entry, so 0 follows the tail.
func (a *App) logsKey(key string) bool {
	total := 0
	if a.logs != nil {
		total = a.logs.Len()
	}
	halfPage := max((a.height-scrollOverhead)/2, minHalfPageScroll)

	switch key {
	case "k", "up":
		a.logsScroll++
	case "j", "down":
		a.logsScroll--
	case "ctrl+u":
		a.logsScroll += halfPage
	case "ctrl+d":
		a.logsScroll -= halfPage
	case "g":
		a.logsScroll = total
	case "G":
		a.logsScroll = 0
	default:
		return false
	}
	a.logsScroll = max(0, min(a.logsScroll, total-1))
	return true
}

// logWindow returns the slice of lines visible for a scroll offset.
func logWindow(lines []logging.Line, scroll, rows int) []logging.Line {
	if rows <= 0 || len(lines) == 0 {
		return nil
	}
	end := max(len(lines)-scroll, 0)
	start := max(end-rows, 0)
	return lines[start:end]
}

func (a App) renderLogsTab(cw, contentH int) string {
	t := theme.Active
	dim := lipgloss.NewStyle().Foreground(t.TextDim)

	var lines []logging.Line
	if a.logs != nil {
		lines = a.logs.Lines()
	}

	// Card border, title and hint rows.
	rows := max(contentH-5, 1)
	innerW := components.CardInnerWidth(cw)

	var body strings.Builder
	if len(lines) == 0 {
		body.WriteString(dim.Render("No log entries yet"))
	}
	for _, l := range logWindow(lines, a.logsScroll, rows) {
		body.WriteString(renderLogLine(l, innerW))
		body.WriteString("\n")
	}
	body.WriteString(dim.Render("[j/k] scroll  [g/G] oldest/newest"))

	title := fmt.Sprintf("Logs (%d)", len(lines))
	if a.logsScroll > 0 {
		title += fmt.Sprintf(" · %d newer hidden", a.logsScroll)
	}
	return components.ContentCard(title, body.String(), cw)
}

func renderLogLine(l logging.Line, width int) string {
	t := theme.Active
	color := t.TextMuted
	switch {
	case l.Level >= slog.LevelError:
		color = t.Red
	case l.Level >= slog.LevelWarn:
		color = t.Orange
	case l.Level < slog.LevelInfo:
		color = t.TextDim
	}
	return lipgloss.NewStyle().Foreground(color).Render(truncStr(l.String(), width))
}
