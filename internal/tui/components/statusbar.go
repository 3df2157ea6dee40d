package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/waterwallet/wwdash/internal/tui/theme"
)

// RenderStatusBar renders the bottom status bar. msg is shown in the
// middle-left (errors, refresh hints); right is usually the data age.
func RenderStatusBar(width int, msg, right string, alert bool) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Width(width)

	left := " [r]efresh  [?]help  [q]uit"
	if msg != "" {
		color := t.TextMuted
		if alert {
			color = t.Red
		}
		left += "  " + lipgloss.NewStyle().Foreground(color).Render(msg)
	}
	if right != "" {
		right += " "
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}

	return style.Render(left + strings.Repeat(" ", padding) + right)
}
