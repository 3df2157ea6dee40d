package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/waterwallet/wwdash/internal/cli"
	"github.com/waterwallet/wwdash/internal/config"
	"github.com/waterwallet/wwdash/internal/present"
	"github.com/waterwallet/wwdash/internal/refresh"
	"github.com/waterwallet/wwdash/internal/tui/components"
	"github.com/waterwallet/wwdash/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// allocState tracks the allocation tab: a cursor over categories and an
// optional input for a local override.
type allocState struct {
	cursor  int
	editing bool
	input   textinput.Model
	err     error
}

func (s *allocState) clamp(n int) {
	if s.cursor >= n {
		s.cursor = n - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// allocKey handles navigation keys; ok is false for keys it does not own.
func (a App) allocKey(key string) (tea.Model, tea.Cmd, bool) {
	n := a.coord.Registry().Len()
	switch key {
	case "j", "down":
		if a.alloc.cursor < n-1 {
			a.alloc.cursor++
		}
	case "k", "up":
		if a.alloc.cursor > 0 {
			a.alloc.cursor--
		}
	case "enter":
		m, cmd := a.allocStartEdit()
		return m, cmd, true
	case "d":
		a.setOverride(a.selectedKey(), nil)
	default:
		return a, nil, false
	}
	return a, nil, true
}

func (a App) selectedKey() string {
	cats := a.coord.Registry().Categories()
	if a.alloc.cursor < 0 || a.alloc.cursor >= len(cats) {
		return ""
	}
	return string(cats[a.alloc.cursor].Key)
}

func (a App) allocStartEdit() (tea.Model, tea.Cmd) {
	key := a.selectedKey()
	if key == "" {
		return a, nil
	}
	ti := textinput.New()
	ti.CharLimit = 16
	ti.Width = 16
	ti.Placeholder = "liters"
	if v, ok := a.cfg.Allocation.Overrides[key]; ok {
		ti.SetValue(strconv.FormatFloat(v, 'f', -1, 64))
	}
	ti.Focus()

	a.alloc.editing = true
	a.alloc.err = nil
	a.alloc.input = ti
	return a, ti.Cursor.BlinkCmd()
}

func (a App) updateAllocInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.alloc.editing = false
		val := strings.TrimSpace(a.alloc.input.Value())
		if val == "" {
			a.setOverride(a.selectedKey(), nil)
			return a, nil
		}
		_, liters, err := config.ParseOverride(a.selectedKey() + "=" + val)
		if err != nil {
			a.alloc.err = err
			return a, nil
		}
		a.setOverride(a.selectedKey(), &liters)
		return a, nil
	case "esc":
		a.alloc.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.alloc.input, cmd = a.alloc.input.Update(msg)
	return a, cmd
}

// setOverride stores or clears (liters == nil) a local override, persists
// it, and recomputes the committed metrics in place.
func (a *App) setOverride(key string, liters *float64) {
	if key == "" {
		return
	}
	if liters == nil {
		delete(a.cfg.Allocation.Overrides, key)
	} else {
		if a.cfg.Allocation.Overrides == nil {
			a.cfg.Allocation.Overrides = make(map[string]float64)
		}
		a.cfg.Allocation.Overrides[key] = *liters
	}
	a.coord.SetOverrides(config.Overrides(a.cfg))
	a.snap = a.coord.Snapshot()

	a.alloc.err = a.persist(a.cfg)
	if a.alloc.err != nil {
		a.log.Warn("saving allocation override", "category", key, "error", a.alloc.err)
		return
	}
	a.log.Info("allocation override updated", "category", key, "cleared", liters == nil)
}

func (a App) renderAllocationTab(cw int) string {
	t := theme.Active
	reg := a.coord.Registry()
	m := a.snap.Metrics
	var b strings.Builder

	labelW := 12
	barW := max(components.CardInnerWidth(cw)-labelW-48, 10)

	muted := lipgloss.NewStyle().Foreground(t.TextMuted)
	dim := lipgloss.NewStyle().Foreground(t.TextDim)
	marker := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true)
	override := lipgloss.NewStyle().Foreground(t.Override)

	var body strings.Builder
	for i, c := range m.Categories {
		prefix := "  "
		if i == a.alloc.cursor {
			prefix = marker.Render("▸ ")
		}
		body.WriteString(prefix)
		body.WriteString(components.BandBar(truncStr(c.Label, labelW), c.UsagePercent, labelW, barW))

		detail := fmt.Sprintf("  %s / %s", cli.FormatLiters(c.Used), cli.FormatLiters(c.Allocated))
		body.WriteString(muted.Render(detail))
		if _, ok := a.cfg.Allocation.Overrides[string(c.Key)]; ok {
			body.WriteString(override.Render("  (local)"))
		}
		body.WriteString("\n")

		if a.alloc.editing && i == a.alloc.cursor {
			body.WriteString("    " + muted.Render("New allocation: ") + a.alloc.input.View() + "\n")
		}
	}
	if a.alloc.err != nil {
		body.WriteString(lipgloss.NewStyle().Foreground(t.Orange).Render(a.alloc.err.Error()))
		body.WriteString("\n")
	}
	body.WriteString("\n")
	body.WriteString(dim.Render("[j/k] select  [Enter] set local allocation  [d] clear  [Esc] cancel"))

	b.WriteString(components.ContentCard("Allocation by Category", body.String(), cw))
	b.WriteString("\n")

	// Shares of the effective allocation and of the latest usage.
	effective := refresh.ApplyOverrides(a.snap.Allocation.Record, config.Overrides(a.cfg))
	halves := components.LayoutRow(cw, 2)
	b.WriteString(components.CardRow([]string{
		components.ContentCard("Allocation Share",
			components.ShareBars(present.Shares(effective, reg), components.CardInnerWidth(halves[0])), halves[0]),
		components.ContentCard("Usage Share",
			components.ShareBars(present.Shares(a.snap.Usage, reg), components.CardInnerWidth(halves[1])), halves[1]),
	}))
	return b.String()
}
