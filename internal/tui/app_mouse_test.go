package tui

import (
	"strings"
	"testing"

	"github.com/waterwallet/wwdash/internal/tui/components"

	"github.com/charmbracelet/lipgloss"
)

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 1 // leading space

		for i, tab := range components.Tabs {
			w := tabWidthForTest(tab.Name, i == active, tab.KeyPos >= 0)
			x := pos + w/2
			if got := a.tabAtX(x); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, x, got, i)
			}
			pos += w + 2
		}
	}
}

func TestTabAtXOutsideBar(t *testing.T) {
	a := App{}
	if got := a.tabAtX(0); got != -1 {
		t.Errorf("tabAtX(0) = %d, want -1", got)
	}
	if got := a.tabAtX(500); got != -1 {
		t.Errorf("tabAtX(500) = %d, want -1", got)
	}
}

func tabWidthForTest(name string, active, keyInName bool) int {
	switch {
	case active:
		return len(name)
	case keyInName:
		return len(name) + 2 // "[" + "]" around the key letter
	default:
		return len(name) + 3 // trailing "[x]"
	}
}

func TestFillLinesClipsWideLines(t *testing.T) {
	out := fillLinesWithBackground("short\n"+strings.Repeat("x", 30), 10, "#000000")
	for i, line := range strings.Split(out, "\n") {
		if w := lipgloss.Width(line); w != 10 {
			t.Errorf("line %d width = %d, want 10", i, w)
		}
	}
}
