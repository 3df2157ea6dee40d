package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/waterwallet/wwdash/internal/category"
	"github.com/waterwallet/wwdash/internal/config"
	"github.com/waterwallet/wwdash/internal/gateway"
	"github.com/waterwallet/wwdash/internal/logging"
	"github.com/waterwallet/wwdash/internal/model"
	"github.com/waterwallet/wwdash/internal/refresh"

	tea "github.com/charmbracelet/bubbletea"
)

type stubSource struct {
	alloc    model.Allocation
	samples  []model.Sample
	allocErr error
	usageErr error
}

func (s *stubSource) FetchAllocationDetail(context.Context) (model.Allocation, error) {
	return s.alloc, s.allocErr
}

func (s *stubSource) FetchUsageHistory(context.Context) ([]model.Sample, error) {
	return s.samples, s.usageErr
}

func rec(kv map[model.CategoryKey]float64) model.Record {
	r := model.NewRecord()
	for k, v := range kv {
		r.Set(k, v)
	}
	return r
}

func household() *stubSource {
	flow := 4.5
	return &stubSource{
		alloc: model.Allocation{
			Record:             rec(map[model.CategoryKey]float64{"kitchen": 100, "bathroom": 150, "garden": 50, "outdoor": 0}),
			RainwaterHarvested: 30,
		},
		samples: []model.Sample{
			{
				Record:       rec(map[model.CategoryKey]float64{"kitchen": 110, "bathroom": 90, "garden": 20}),
				Timestamp:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
				FlowRate:     &flow,
				LeakDetected: true,
			},
		},
	}
}

type persisted struct {
	calls int
	last  config.Config
}

func (p *persisted) save(cfg config.Config) error {
	p.calls++
	p.last = cfg
	return nil
}

func newTestApp(t *testing.T, src refresh.Source) (App, *persisted) {
	t.Helper()
	coord := refresh.New(src, category.Default(), nil)
	t.Cleanup(coord.Close)

	a := NewApp(Options{
		Coordinator: coord,
		Config:      config.DefaultConfig(),
		Logs:        logging.NewBuffer(50, nil),
		BaseURL:     "http://water.test",
	})
	p := &persisted{}
	a.persist = p.save
	a.width, a.height = 140, 50
	return a, p
}

// loaded runs one real refresh cycle and feeds its result into the model.
func loaded(t *testing.T, a App) App {
	t.Helper()
	out, err := a.coord.Refresh(context.Background())
	m, _ := a.Update(RefreshMsg{Outcome: out, Err: err})
	return m.(App)
}

func press(t *testing.T, a App, keys ...string) App {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ := a.Update(msg)
		a = m.(App)
	}
	return a
}

func TestRefreshMsgLoadsSnapshot(t *testing.T) {
	a, _ := newTestApp(t, household())
	if a.loaded || !a.refreshing {
		t.Fatal("new app should be loading")
	}

	a = loaded(t, a)
	if !a.loaded || a.refreshing {
		t.Fatalf("loaded=%v refreshing=%v after refresh", a.loaded, a.refreshing)
	}
	if got := a.snap.Metrics.AllocatedTotal; got != 300 {
		t.Errorf("AllocatedTotal = %v, want 300", got)
	}

	view := a.View()
	for _, want := range []string{"Allocated", "Leak detected", "Over allocation"} {
		if !strings.Contains(view, want) {
			t.Errorf("overview missing %q", want)
		}
	}
}

func TestStrictFailureShowsRetryHint(t *testing.T) {
	src := household()
	src.usageErr = &gateway.FetchError{Kind: gateway.KindNetwork, Endpoint: "/waterUsage/detail", Err: errors.New("refused")}
	a, _ := newTestApp(t, src)
	a = loaded(t, a)

	msg, alert := a.statusMessage()
	if !alert || !strings.Contains(msg, "network") || !strings.Contains(msg, "press r to retry") {
		t.Fatalf("status = %q (alert=%v)", msg, alert)
	}
	if !a.snap.IsZero() {
		t.Error("failed first cycle should not commit a snapshot")
	}
	if !strings.Contains(a.failureBody(), "allocation arrived") {
		t.Errorf("failure body should report the partial allocation:\n%s", a.failureBody())
	}
}

func TestInFlightResultIgnored(t *testing.T) {
	a, _ := newTestApp(t, household())
	a = loaded(t, a)
	a.refreshing = true
	before := a.snap.CycleID

	m, _ := a.Update(RefreshMsg{Err: refresh.ErrInFlight})
	a = m.(App)
	if !a.refreshing || a.snap.CycleID != before {
		t.Error("ErrInFlight result should leave state untouched")
	}
}

func TestManualRefreshGuarded(t *testing.T) {
	a, _ := newTestApp(t, household())
	a = loaded(t, a)

	m, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	a = m.(App)
	if cmd == nil || !a.refreshing {
		t.Fatal("r should start a refresh")
	}
	if _, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")}); cmd != nil {
		t.Error("r while refreshing should be a no-op")
	}
}

func TestToggleAutoRefreshPersists(t *testing.T) {
	a, p := newTestApp(t, household())
	a = loaded(t, a)
	was := a.autoRefresh

	a = press(t, a, "R")
	if a.autoRefresh == was {
		t.Fatal("R did not toggle auto-refresh")
	}
	if p.calls != 1 || p.last.TUI.AutoRefresh != a.autoRefresh {
		t.Errorf("persisted %d times, auto_refresh=%v", p.calls, p.last.TUI.AutoRefresh)
	}
}

func TestTickStartsDueRefresh(t *testing.T) {
	a, _ := newTestApp(t, household())
	a = loaded(t, a)
	a.autoRefresh = true

	now := a.lastRefresh.Add(a.refreshInterval)
	a.now = func() time.Time { return now }

	m, _ := a.Update(tickMsg(now))
	if !m.(App).refreshing {
		t.Error("tick past the interval should start a refresh")
	}

	a.now = func() time.Time { return a.lastRefresh.Add(time.Second) }
	m, _ = a.Update(tickMsg(now))
	if m.(App).refreshing {
		t.Error("tick before the interval should not refresh")
	}
}

func TestTabKeys(t *testing.T) {
	a, _ := newTestApp(t, household())
	a = loaded(t, a)

	cases := []struct {
		key  string
		want int
	}{
		{"u", tabUsage},
		{"a", tabAllocation},
		{"l", tabLogs},
		{"x", tabSettings},
		{"o", tabOverview},
	}
	for _, tc := range cases {
		a = press(t, a, tc.key)
		if a.activeTab != tc.want {
			t.Errorf("key %q -> tab %d, want %d", tc.key, a.activeTab, tc.want)
		}
	}
}

func TestAllocationOverrideRecomputes(t *testing.T) {
	a, p := newTestApp(t, household())
	a = loaded(t, a)
	a = press(t, a, "a")

	// Kitchen is first in the default registry.
	a = press(t, a, "enter", "2", "0", "0", "enter")
	if a.alloc.editing {
		t.Fatal("enter should close the editor")
	}
	if got := a.cfg.Allocation.Overrides["kitchen"]; got != 200 {
		t.Fatalf("override = %v, want 200", got)
	}
	if p.calls == 0 {
		t.Error("override was not persisted")
	}
	kitchen := a.snap.Metrics.Categories[0]
	if kitchen.Allocated != 200 || kitchen.UsagePercent != 55 {
		t.Errorf("kitchen allocated=%v pct=%v, want 200 and 55", kitchen.Allocated, kitchen.UsagePercent)
	}
	if !strings.Contains(a.View(), "(local)") {
		t.Error("allocation tab should mark local overrides")
	}

	a = press(t, a, "d")
	if _, ok := a.cfg.Allocation.Overrides["kitchen"]; ok {
		t.Error("d should clear the override")
	}
	if got := a.snap.Metrics.Categories[0].Allocated; got != 100 {
		t.Errorf("kitchen allocated after clear = %v, want 100", got)
	}
}

func TestAllocationRejectsNegative(t *testing.T) {
	a, _ := newTestApp(t, household())
	a = loaded(t, a)
	a = press(t, a, "a", "enter", "-", "5", "enter")

	if a.alloc.err == nil {
		t.Error("negative allocation should be rejected")
	}
	if _, ok := a.cfg.Allocation.Overrides["kitchen"]; ok {
		t.Error("rejected value must not be stored")
	}
}

func TestLogWindow(t *testing.T) {
	lines := make([]logging.Line, 10)
	for i := range lines {
		lines[i].Message = string(rune('a' + i))
	}

	got := logWindow(lines, 0, 3)
	if len(got) != 3 || got[2].Message != "j" {
		t.Errorf("tail window = %v", got)
	}
	got = logWindow(lines, 8, 3)
	if len(got) != 2 || got[0].Message != "a" {
		t.Errorf("scrolled window = %v", got)
	}
	if logWindow(nil, 0, 3) != nil {
		t.Error("empty input should give nil")
	}
}

func TestApplySetup(t *testing.T) {
	cfg := applySetup(config.DefaultConfig(), setupValues{
		baseURL:     " http://water.local:9000/ ",
		strict:      true,
		theme:       "deep-water",
		autoRefresh: false,
		interval:    "60",
	})
	if cfg.API.BaseURL != "http://water.local:9000" || !cfg.API.Strict {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.Appearance.Theme != "deep-water" || cfg.TUI.AutoRefresh || cfg.TUI.RefreshIntervalSec != 60 {
		t.Errorf("tui/appearance = %+v %+v", cfg.TUI, cfg.Appearance)
	}

	if validateBaseURL("localhost:8081") == nil {
		t.Error("URL without scheme should be rejected")
	}
	if validateBaseURL("") != nil {
		t.Error("blank URL means default and should pass")
	}
	if validateInterval("5") == nil {
		t.Error("interval below 10s should be rejected")
	}
}
