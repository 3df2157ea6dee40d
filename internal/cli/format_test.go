package cli

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/waterwallet/wwdash/internal/present"
)

func TestFormatLiters(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0 L"},
		{12.5, "12.5 L"},
		{300, "300 L"},
		{1234, "1,234 L"},
		{15260, "15.3 kL"},
		{-80, "-80 L"},
	}
	for _, tt := range tests {
		if got := FormatLiters(tt.in); got != tt.want {
			t.Errorf("FormatLiters(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSignedLiters(t *testing.T) {
	if got := FormatSignedLiters(80); got != "+80 L" {
		t.Errorf("FormatSignedLiters(80) = %q", got)
	}
	if got := FormatSignedLiters(-12.5); got != "-12.5 L" {
		t.Errorf("FormatSignedLiters(-12.5) = %q", got)
	}
}

func TestFormatPercent(t *testing.T) {
	for in, want := range map[float64]string{80: "80%", 73.33: "73.3%", 120: "120%"} {
		if got := FormatPercent(in); got != want {
			t.Errorf("FormatPercent(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	for in, want := range map[int64]string{0: "0", 999: "999", 1000: "1,000", -1234567: "-1,234,567"} {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatReading(t *testing.T) {
	if got := FormatReading(nil, "PSI"); got != "-" {
		t.Errorf("FormatReading(nil) = %q", got)
	}
	v := 6.54
	if got := FormatReading(&v, "L/min"); got != "6.5 L/min" {
		t.Errorf("FormatReading(6.54) = %q", got)
	}
}

func TestFormatAgo(t *testing.T) {
	now := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	if got := FormatAgo(time.Time{}, now); got != "never" {
		t.Errorf("FormatAgo(zero) = %q", got)
	}
	if got := FormatAgo(now.Add(-125*time.Second), now); got != "2m ago" {
		t.Errorf("FormatAgo(125s) = %q", got)
	}
}

func TestRenderBandBarClamps(t *testing.T) {
	bar := RenderBandBar(150, 10)
	if n := strings.Count(bar, "█"); n != 10 {
		t.Fatalf("filled = %d, want 10", n)
	}
	bar = RenderBandBar(50, 10)
	if n := strings.Count(bar, "█"); n != 5 {
		t.Fatalf("filled = %d, want 5", n)
	}
	if RenderBandBar(50, 0) != "" {
		t.Fatal("zero width should render nothing")
	}
}

func TestBandColor(t *testing.T) {
	if BandColor(present.BandGood) != ColorGreen {
		t.Error("good band should be green")
	}
	if BandColor(present.BandExceedingLimit) != ColorRed {
		t.Error("exceeding band should be red")
	}
}

func TestRenderTableAlignsStyledCells(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Category", "Used"},
		Rows: [][]string{
			{"Kitchen", "80 L"},
			{"---"},
			{"Total", "220 L"},
		},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 7 {
		t.Fatalf("lines = %d, want 7:\n%s", len(lines), out)
	}
	width := len([]rune(lines[0]))
	for i, l := range lines {
		if n := len([]rune(l)); n != width {
			t.Errorf("line %d width %d, want %d", i, n, width)
		}
	}
}

func TestBarsTreatNonFiniteAsEmpty(t *testing.T) {
	bar := RenderBandBar(math.NaN(), 10)
	if n := strings.Count(bar, "█"); n != 0 {
		t.Errorf("NaN band bar filled = %d, want 0", n)
	}
	if n := strings.Count(bar, "░"); n != 10 {
		t.Errorf("NaN band bar empty cells = %d, want 10", n)
	}

	for _, pct := range []float64{math.NaN(), math.Inf(1)} {
		row := RenderShareBar(present.Share{Label: "Kitchen", Percent: pct, Color: "#FF6384"}, 8, 10)
		if strings.Contains(row, "█") {
			t.Errorf("share bar for %v filled: %q", pct, row)
		}
	}
}
