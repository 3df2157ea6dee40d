package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/waterwallet/wwdash/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestCardRowMatchesTallestCard(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Kitchen", "80 L", 22)
	tallCard := ContentCard("Leaks", "08:00\n09:00\n10:00\n11:00\n12:00", 22)

	shortLines := len(strings.Split(shortCard, "\n"))
	tallLines := len(strings.Split(tallCard, "\n"))
	if shortLines >= tallLines {
		t.Fatal("Test setup error: short card should be shorter than tall card")
	}

	joined := CardRow([]string{tallCard, shortCard})
	lines := strings.Split(joined, "\n")
	if len(lines) != tallLines {
		t.Errorf("Joined height should match tallest card: got %d, want %d", len(lines), tallLines)
	}

	for i, line := range lines {
		if !strings.Contains(line, "\x1b[") {
			t.Errorf("Line %d has no ANSI styling: %q", i, line)
		}
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	theme.SetActive("flexoki-dark")

	row := MetricCardRow([]Stat{
		{Label: "Allocated", Value: "300 L"},
		{Label: "Used", Value: "220 L"},
		{Label: "Efficiency", Value: "73%", Tone: theme.Active.Green},
	}, 61)

	for i, line := range strings.Split(row, "\n") {
		if w := lipgloss.Width(line); w != 61 {
			t.Errorf("line %d width = %d, want 61", i, w)
		}
	}
}

func TestLayoutRow(t *testing.T) {
	got := LayoutRow(10, 3)
	if len(got) != 3 || got[0] != 4 || got[1] != 3 || got[2] != 3 {
		t.Fatalf("LayoutRow(10, 3) = %v, want [4 3 3]", got)
	}
	if LayoutRow(10, 0) != nil {
		t.Fatal("LayoutRow(10, 0) should be nil")
	}
}

func TestTabIdxByKey(t *testing.T) {
	if TabIdxByKey('u') != 1 {
		t.Errorf("TabIdxByKey('u') = %d, want 1", TabIdxByKey('u'))
	}
	if TabIdxByKey('x') != len(Tabs)-1 {
		t.Errorf("TabIdxByKey('x') = %d, want settings", TabIdxByKey('x'))
	}
	if TabIdxByKey('z') != -1 {
		t.Error("unknown key should map to -1")
	}
}

func TestBandBarShowsUnclampedPercent(t *testing.T) {
	out := BandBar("Bathroom", 125, 10, 20)
	if !strings.Contains(out, "125%") {
		t.Fatalf("BandBar missing unclamped percent: %q", out)
	}
	if !strings.Contains(out, "Exceeding Limit") {
		t.Fatalf("BandBar missing band label: %q", out)
	}
}
