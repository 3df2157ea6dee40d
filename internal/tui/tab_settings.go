package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/waterwallet/wwdash/internal/cli"
	"github.com/waterwallet/wwdash/internal/config"
	"github.com/waterwallet/wwdash/internal/tui/components"
	"github.com/waterwallet/wwdash/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	settingsFieldBaseURL = iota
	settingsFieldStrict
	settingsFieldRetries
	settingsFieldTheme
	settingsFieldAutoRefresh
	settingsFieldRefreshInterval
	settingsFieldCount // sentinel
)

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool  // flash "saved" message
	saveErr error // non-nil if last save failed
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 50
	return ti
}

func (a App) settingsStartEdit() (tea.Model, tea.Cmd) {
	a.settings.editing = true
	a.settings.saved = false

	ti := newSettingsInput()
	switch a.settings.cursor {
	case settingsFieldBaseURL:
		ti.Placeholder = "http://localhost:8081"
		ti.SetValue(a.cfg.API.BaseURL)
	case settingsFieldStrict:
		ti.Placeholder = "true or false"
		ti.SetValue(strconv.FormatBool(a.cfg.API.Strict))
	case settingsFieldRetries:
		ti.Placeholder = "0"
		ti.SetValue(strconv.Itoa(a.cfg.API.Retries))
	case settingsFieldTheme:
		ti.Placeholder = strings.Join(theme.Names(), ", ")
		ti.SetValue(a.cfg.Appearance.Theme)
	case settingsFieldAutoRefresh:
		ti.Placeholder = "true or false"
		ti.SetValue(strconv.FormatBool(a.autoRefresh))
	case settingsFieldRefreshInterval:
		ti.Placeholder = "300 (seconds, minimum 10)"
		ti.SetValue(strconv.Itoa(int(a.refreshInterval.Seconds())))
	}

	ti.Focus()
	a.settings.input = ti
	return a, ti.Cursor.BlinkCmd()
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.settingsSave()
		a.settings.editing = false
		a.settings.saved = a.settings.saveErr == nil
		return a, nil
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// settingsSave applies the edited field. Connection settings take
// effect on the next start; the rest apply immediately.
func (a *App) settingsSave() {
	val := strings.TrimSpace(a.settings.input.Value())

	switch a.settings.cursor {
	case settingsFieldBaseURL:
		a.cfg.API.BaseURL = val
	case settingsFieldStrict:
		a.cfg.API.Strict = parseBool(val)
	case settingsFieldRetries:
		if n, err := strconv.Atoi(val); err == nil && n >= 0 {
			a.cfg.API.Retries = n
		}
	case settingsFieldTheme:
		for _, name := range theme.Names() {
			if name == val {
				a.cfg.Appearance.Theme = val
				theme.SetActive(val)
				break
			}
		}
	case settingsFieldAutoRefresh:
		a.autoRefresh = parseBool(val)
		a.cfg.TUI.AutoRefresh = a.autoRefresh
	case settingsFieldRefreshInterval:
		if n, err := strconv.Atoi(val); err == nil && n >= 10 {
			a.cfg.TUI.RefreshIntervalSec = n
			a.refreshInterval = time.Duration(n) * time.Second
		}
	}

	a.settings.saveErr = a.persist(a.cfg)
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.Saved).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)

	baseURL := a.cfg.API.BaseURL
	if baseURL == "" {
		baseURL = "(default)"
	}

	fields := []struct{ label, value string }{
		{"Service URL", baseURL},
		{"Strict Mode", strconv.FormatBool(a.cfg.API.Strict)},
		{"Retries", strconv.Itoa(a.cfg.API.Retries)},
		{"Theme", a.cfg.Appearance.Theme},
		{"Auto Refresh", strconv.FormatBool(a.autoRefresh)},
		{"Refresh Interval", fmt.Sprintf("%ds", int(a.refreshInterval.Seconds()))},
	}

	var formBody strings.Builder
	for i, f := range fields {
		if a.settings.editing && i == a.settings.cursor {
			formBody.WriteString(markerStyle.Render("▸ "))
			formBody.WriteString(accentStyle.Render(fmt.Sprintf("%-18s ", f.label)))
			formBody.WriteString(a.settings.input.View())
			formBody.WriteString("\n")
			continue
		}

		if i == a.settings.cursor {
			marker := markerStyle.Render("▸ ")
			label := selectedLabelStyle.Render(fmt.Sprintf("%-18s ", f.label+":"))
			value := selectedStyle.Render(f.value)
			formBody.WriteString(marker + label + value)
			usedWidth := lipgloss.Width(marker) + lipgloss.Width(label) + lipgloss.Width(value)
			if padLen := components.CardInnerWidth(cw) - usedWidth; padLen > 0 {
				formBody.WriteString(lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", padLen)))
			}
		} else {
			formBody.WriteString(lipgloss.NewStyle().Background(t.Surface).Render("  "))
			formBody.WriteString(labelStyle.Render(fmt.Sprintf("%-18s ", f.label+":")))
			formBody.WriteString(valueStyle.Render(f.value))
		}
		formBody.WriteString("\n")
	}

	if a.settings.saveErr != nil {
		warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		formBody.WriteString("\n")
		formBody.WriteString(warnStyle.Render(fmt.Sprintf("Save failed: %s", a.settings.saveErr)))
	} else if a.settings.saved {
		formBody.WriteString("\n")
		formBody.WriteString(greenStyle.Render("Saved! Connection changes apply on restart."))
	}

	formBody.WriteString("\n")
	formBody.WriteString(labelStyle.Render("[j/k] navigate  [Enter] edit  [Esc] cancel"))

	mode := "degrade"
	if a.strict {
		mode = "strict"
	}
	info := []struct{ label, value string }{
		{"Connected to:    ", a.baseURL},
		{"Failure mode:    ", mode},
		{"Categories:      ", strings.Join(a.coord.Registry().Labels(), ", ")},
		{"Last cycle:      ", truncStr(a.snap.CycleID, 36)},
		{"Cycle duration:  ", fmt.Sprintf("%.2fs", a.lastOutcome.Duration.Seconds())},
		{"Last refresh:    ", cli.FormatAgo(a.lastRefresh, a.now())},
		{"Config file:     ", config.Path()},
	}
	var infoBody strings.Builder
	for i, row := range info {
		if i > 0 {
			infoBody.WriteString("\n")
		}
		infoBody.WriteString(labelStyle.Render(row.label) + valueStyle.Render(row.value))
	}

	var b strings.Builder
	b.WriteString(components.ContentCard("Settings", formBody.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("Connection", infoBody.String(), cw))
	return b.String()
}
