// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatLiters formats a volume with a unit suffix.
// e.g., 12.5 -> "12.5 L", 1234 -> "1,234 L", 15260 -> "15.3 kL"
func FormatLiters(l float64) string {
	if math.IsNaN(l) || math.IsInf(l, 0) {
		return "0 L"
	}
	abs := math.Abs(l)
	switch {
	case abs >= 10_000:
		return fmt.Sprintf("%.1f kL", l/1000)
	case abs >= 1000:
		return FormatNumber(int64(math.Round(l))) + " L"
	case abs == math.Trunc(abs):
		return fmt.Sprintf("%.0f L", l)
	default:
		return fmt.Sprintf("%.1f L", l)
	}
}

// FormatSignedLiters prefixes non-negative volumes with "+".
func FormatSignedLiters(l float64) string {
	if l >= 0 {
		return "+" + FormatLiters(l)
	}
	return "-" + FormatLiters(-l)
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats an already-scaled percentage (73.3 -> "73.3%").
func FormatPercent(pct float64) string {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return "0%"
	}
	if pct == math.Trunc(pct) {
		return fmt.Sprintf("%.0f%%", pct)
	}
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatReading formats an optional sensor reading, "-" when absent.
func FormatReading(v *float64, unit string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f %s", *v, unit)
}

// FormatTimestamp formats a sample time in local time, "-" when unknown.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("Jan 02 15:04")
}

// FormatDuration formats seconds into a human-readable duration.
// e.g., 3725 -> "1h 2m", 125 -> "2m", 45 -> "45s"
func FormatDuration(secs int64) string {
	if secs <= 0 {
		return "0s"
	}

	hours := secs / 3600
	mins := (secs % 3600) / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	if mins > 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%ds", secs)
}

// FormatAgo formats how long ago t was, relative to now.
func FormatAgo(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	if d < time.Second {
		return "just now"
	}
	return FormatDuration(int64(d/time.Second)) + " ago"
}
