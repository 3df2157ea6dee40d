// Package tui provides the interactive Bubble Tea dashboard for wwdash.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/waterwallet/wwdash/internal/cli"
	"github.com/waterwallet/wwdash/internal/config"
	"github.com/waterwallet/wwdash/internal/gateway"
	"github.com/waterwallet/wwdash/internal/logging"
	"github.com/waterwallet/wwdash/internal/refresh"
	"github.com/waterwallet/wwdash/internal/tui/components"
	"github.com/waterwallet/wwdash/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// RefreshMsg is sent when a refresh cycle finishes.
type RefreshMsg struct {
	Outcome refresh.Outcome
	Err     error
}

type tickMsg time.Time

// Options configures a dashboard.
type Options struct {
	Coordinator *refresh.Coordinator
	Config      config.Config
	Logs        *logging.Buffer // backs the Logs tab; may be nil
	Logger      *slog.Logger
	BaseURL     string
	Strict      bool
}

// App is the root Bubble Tea model.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	coord   *refresh.Coordinator
	logs    *logging.Buffer
	log     *slog.Logger
	cfg     config.Config
	persist func(config.Config) error
	now     func() time.Time
	baseURL string
	strict  bool

	// Data
	snap        refresh.Snapshot
	loaded      bool
	lastOutcome refresh.Outcome
	lastErr     error

	// Auto-refresh state
	autoRefresh     bool
	refreshInterval time.Duration
	lastRefresh     time.Time
	refreshing      bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Per-tab state
	alloc      allocState
	logsScroll int // lines scrolled up from the newest entry
	settings   settingsState

	spinner spinner.Model
}

const (
	tabOverview = iota
	tabUsage
	tabAllocation
	tabLogs
	tabSettings
)

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180

	scrollOverhead    = 10 // approximate header + status bar height for half-page calc
	minHalfPageScroll = 1
	minContentHeight  = 5

	tickInterval = time.Second
)

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	ctx, cancel := context.WithCancel(context.Background())

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	return App{
		ctx:             ctx,
		cancel:          cancel,
		coord:           opts.Coordinator,
		logs:            opts.Logs,
		log:             logger,
		cfg:             opts.Config,
		persist:         config.Save,
		now:             time.Now,
		baseURL:         opts.BaseURL,
		strict:          opts.Strict,
		autoRefresh:     opts.Config.TUI.AutoRefresh,
		refreshInterval: opts.Config.RefreshInterval(),
		refreshing:      true,
		spinner:         sp,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		refreshCmd(a.ctx, a.coord),
		a.spinner.Tick,
		tickCmd(),
	)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.MouseMsg:
		return a.updateMouse(msg)

	case tea.KeyMsg:
		return a.updateKey(msg)

	case RefreshMsg:
		return a.applyRefresh(msg), nil

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && a.autoRefresh && !a.refreshing &&
			a.now().Sub(a.lastRefresh) >= a.refreshInterval {
			a.refreshing = true
			cmds = append(cmds, refreshCmd(a.ctx, a.coord))
		}
		return a, tea.Batch(cmds...)
	}

	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a.quit()
	}

	if !a.loaded {
		if key == "q" {
			return a.quit()
		}
		return a, nil
	}

	// Text inputs swallow every key while editing.
	if a.activeTab == tabSettings && a.settings.editing {
		return a.updateSettingsInput(msg)
	}
	if a.activeTab == tabAllocation && a.alloc.editing {
		return a.updateAllocInput(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch a.activeTab {
	case tabAllocation:
		if m, cmd, ok := a.allocKey(key); ok {
			return m, cmd
		}
	case tabLogs:
		if a.logsKey(key) {
			return a, nil
		}
	case tabSettings:
		switch key {
		case "j", "down":
			if a.settings.cursor < settingsFieldCount-1 {
				a.settings.cursor++
			}
			return a, nil
		case "k", "up":
			if a.settings.cursor > 0 {
				a.settings.cursor--
			}
			return a, nil
		case "enter":
			return a.settingsStartEdit()
		}
	}

	switch key {
	case "q":
		return a.quit()
	case "r":
		if !a.refreshing {
			a.refreshing = true
			return a, refreshCmd(a.ctx, a.coord)
		}
		return a, nil
	case "R":
		a.autoRefresh = !a.autoRefresh
		a.cfg.TUI.AutoRefresh = a.autoRefresh
		if err := a.persist(a.cfg); err != nil {
			a.log.Warn("saving config", "error", err)
		}
		return a, nil
	case "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "right":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	}

	if r := []rune(key); len(r) == 1 {
		if idx := components.TabIdxByKey(r[0]); idx >= 0 {
			a.activeTab = idx
		}
	}
	return a, nil
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !a.loaded || a.showHelp {
		return a, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		switch a.activeTab {
		case tabLogs:
			a.logsKey("k")
		case tabAllocation:
			if !a.alloc.editing && a.alloc.cursor > 0 {
				a.alloc.cursor--
			}
		}
	case tea.MouseButtonWheelDown:
		switch a.activeTab {
		case tabLogs:
			a.logsKey("j")
		case tabAllocation:
			if !a.alloc.editing && a.alloc.cursor < a.coord.Registry().Len()-1 {
				a.alloc.cursor++
			}
		}
	case tea.MouseButtonLeft:
		if msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
	}
	return a, nil
}

// applyRefresh folds a finished cycle into the model. Rejected requests
// (in flight or closed) leave the state untouched.
func (a App) applyRefresh(msg RefreshMsg) App {
	if errors.Is(msg.Err, refresh.ErrInFlight) {
		return a
	}
	a.refreshing = false
	if errors.Is(msg.Err, refresh.ErrClosed) {
		return a
	}

	a.loaded = true
	a.lastRefresh = a.now()
	a.lastOutcome = msg.Outcome
	a.lastErr = msg.Err
	a.snap = msg.Outcome.Snapshot
	a.alloc.clamp(a.coord.Registry().Len())
	return a
}

func (a App) quit() (tea.Model, tea.Cmd) {
	a.cancel()
	return a, tea.Quit
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  wwdash needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)
	subtitleStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)
	spinnerStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ wwdash"))
	b.WriteString(subtitleStyle.Render(" · Water Usage Dashboard"))
	b.WriteString("\n\n")
	b.WriteString(spinnerStyle.Render(a.spinner.View()))
	b.WriteString(subtitleStyle.Render(" Fetching allocation and usage from " + a.baseURL))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")

	section := func(name string, binds [][2]string) {
		b.WriteString(sectionStyle.Render(name))
		b.WriteString("\n")
		for _, bind := range binds {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind[0])),
				descStyle.Render(bind[1]))
		}
		b.WriteString("\n")
	}

	section("Navigation", [][2]string{
		{"o u a l x", "Jump to tab"},
		{"← →", "Previous / Next tab"},
		{"j k", "Move cursor / scroll"},
		{"g G", "Oldest / newest log line"},
	})
	section("Actions", [][2]string{
		{"Enter", "Edit allocation or setting"},
		{"d", "Clear allocation override"},
		{"Esc", "Cancel edit"},
		{"r", "Refresh now"},
		{"R", "Toggle auto-refresh"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	})
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w)
	msg, alert := a.statusMessage()
	statusBar := components.RenderStatusBar(w, msg, a.statusRight(), alert)

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabOverview:
		content = a.renderOverviewTab(cw)
	case tabUsage:
		content = a.renderUsageTab(cw)
	case tabAllocation:
		content = a.renderAllocationTab(cw)
	case tabLogs:
		content = a.renderLogsTab(cw, contentH)
	case tabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// statusMessage returns the middle status-bar text and whether it is an alert.
func (a App) statusMessage() (string, bool) {
	switch {
	case a.refreshing:
		return "refreshing...", false
	case a.lastErr != nil:
		kind := gateway.KindOf(a.lastErr)
		if kind == 0 {
			return "fetch failed, press r to retry", true
		}
		return fmt.Sprintf("fetch failed (%s), press r to retry", kind), true
	case len(a.snap.Metrics.Over()) > 0:
		return fmt.Sprintf("%d categories over allocation", len(a.snap.Metrics.Over())), true
	}
	return "", false
}

func (a App) statusRight() string {
	var parts []string
	if a.autoRefresh {
		parts = append(parts, "auto "+cli.FormatDuration(int64(a.refreshInterval.Seconds())))
	} else {
		parts = append(parts, "auto off")
	}
	if !a.snap.IsZero() {
		parts = append(parts, "updated "+cli.FormatAgo(a.snap.FetchedAt, a.now()))
	}
	return strings.Join(parts, " · ")
}

// ─── Helpers ────────────────────────────────────────────────────

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refreshCmd runs one coordinator cycle off the UI goroutine.
func refreshCmd(ctx context.Context, coord *refresh.Coordinator) tea.Cmd {
	return func() tea.Msg {
		out, err := coord.Refresh(ctx)
		return RefreshMsg{Outcome: out, Err: err}
	}
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 1 {
		return string(runes[:limit])
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground clips or pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		if ansi.StringWidth(line) > w {
			line = ansi.Truncate(line, w, "")
		}
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes follow RenderTabBar: one leading space, two between tabs.
func (a App) tabAtX(x int) int {
	pos := 1
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 2
	}
	return -1
}
