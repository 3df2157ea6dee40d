// Package theme defines color themes for the wwdash TUI dashboard.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/waterwallet/wwdash/internal/present"
)

// Theme defines the color roles used throughout the TUI.
type Theme struct {
	Name          string
	Background    lipgloss.Color // Main app background
	Surface       lipgloss.Color // Card/panel backgrounds
	SurfaceBright lipgloss.Color // Selected row
	Border        lipgloss.Color
	BorderBright  lipgloss.Color
	BorderAccent  lipgloss.Color // Focused panels and overlays
	TextDim       lipgloss.Color // Hints, disabled
	TextMuted     lipgloss.Color // Labels, metadata
	TextPrimary   lipgloss.Color
	Accent        lipgloss.Color
	AccentBright  lipgloss.Color

	// Usage bands.
	Green  lipgloss.Color
	Orange lipgloss.Color
	Red    lipgloss.Color

	Allocated lipgloss.Color // allocation baseline in charts
	Used      lipgloss.Color // measured usage in charts
	Saved     lipgloss.Color
	Rain      lipgloss.Color // harvested rainwater
	Override  lipgloss.Color // locally edited allocations
}

// DeepWater is the default teal and navy theme.
var DeepWater = Theme{
	Name:          "deep-water",
	Background:    lipgloss.Color("#0B1622"),
	Surface:       lipgloss.Color("#122232"),
	SurfaceBright: lipgloss.Color("#244057"),
	Border:        lipgloss.Color("#2E4A63"),
	BorderBright:  lipgloss.Color("#4A6A86"),
	BorderAccent:  lipgloss.Color("#36A2EB"),
	TextDim:       lipgloss.Color("#4A6A86"),
	TextMuted:     lipgloss.Color("#8FA9C0"),
	TextPrimary:   lipgloss.Color("#E6F1FA"),
	Accent:        lipgloss.Color("#36A2EB"),
	AccentBright:  lipgloss.Color("#7CC4F5"),
	Green:         lipgloss.Color("#4BC0C0"),
	Orange:        lipgloss.Color("#FF9F40"),
	Red:           lipgloss.Color("#FF6384"),
	Allocated:     lipgloss.Color("#4A6A86"),
	Used:          lipgloss.Color("#36A2EB"),
	Saved:         lipgloss.Color("#7FDADA"),
	Rain:          lipgloss.Color("#9AD0F5"),
	Override:      lipgloss.Color("#FFCE56"),
}

// Lagoon is a lighter green-blue variant for bright terminals.
var Lagoon = Theme{
	Name:          "lagoon",
	Background:    lipgloss.Color("#0F1E1C"),
	Surface:       lipgloss.Color("#16302C"),
	SurfaceBright: lipgloss.Color("#22463F"),
	Border:        lipgloss.Color("#2F5A52"),
	BorderBright:  lipgloss.Color("#4E7E74"),
	BorderAccent:  lipgloss.Color("#3DD6B5"),
	TextDim:       lipgloss.Color("#4E7E74"),
	TextMuted:     lipgloss.Color("#9CC4BA"),
	TextPrimary:   lipgloss.Color("#EAF7F3"),
	Accent:        lipgloss.Color("#3DD6B5"),
	AccentBright:  lipgloss.Color("#86EBD4"),
	Green:         lipgloss.Color("#8BD450"),
	Orange:        lipgloss.Color("#F2A541"),
	Red:           lipgloss.Color("#EF5B5B"),
	Allocated:     lipgloss.Color("#4E7E74"),
	Used:          lipgloss.Color("#3DD6B5"),
	Saved:         lipgloss.Color("#B5E88A"),
	Rain:          lipgloss.Color("#7FC8F8"),
	Override:      lipgloss.Color("#F4D35E"),
}

// FlexokiDark is a warm paper-inspired dark theme.
var FlexokiDark = Theme{
	Name:          "flexoki-dark",
	Background:    lipgloss.Color("#100F0F"),
	Surface:       lipgloss.Color("#1C1B1A"),
	SurfaceBright: lipgloss.Color("#343331"),
	Border:        lipgloss.Color("#403E3C"),
	BorderBright:  lipgloss.Color("#575653"),
	BorderAccent:  lipgloss.Color("#3AA99F"),
	TextDim:       lipgloss.Color("#575653"),
	TextMuted:     lipgloss.Color("#878580"),
	TextPrimary:   lipgloss.Color("#FFFCF0"),
	Accent:        lipgloss.Color("#3AA99F"),
	AccentBright:  lipgloss.Color("#5BC8BE"),
	Green:         lipgloss.Color("#879A39"),
	Orange:        lipgloss.Color("#DA702C"),
	Red:           lipgloss.Color("#D14D41"),
	Allocated:     lipgloss.Color("#575653"),
	Used:          lipgloss.Color("#4385BE"),
	Saved:         lipgloss.Color("#A3B859"),
	Rain:          lipgloss.Color("#24837B"),
	Override:      lipgloss.Color("#D0A215"),
}

// Terminal uses ANSI 16 colors only.
var Terminal = Theme{
	Name:          "terminal",
	Background:    lipgloss.Color("0"),
	Surface:       lipgloss.Color("0"),
	SurfaceBright: lipgloss.Color("8"),
	Border:        lipgloss.Color("8"),
	BorderBright:  lipgloss.Color("7"),
	BorderAccent:  lipgloss.Color("6"),
	TextDim:       lipgloss.Color("8"),
	TextMuted:     lipgloss.Color("7"),
	TextPrimary:   lipgloss.Color("15"),
	Accent:        lipgloss.Color("6"),
	AccentBright:  lipgloss.Color("14"),
	Green:         lipgloss.Color("2"),
	Orange:        lipgloss.Color("3"),
	Red:           lipgloss.Color("1"),
	Allocated:     lipgloss.Color("7"),
	Used:          lipgloss.Color("4"),
	Saved:         lipgloss.Color("10"),
	Rain:          lipgloss.Color("12"),
	Override:      lipgloss.Color("11"),
}

// All available themes. The first is the default.
var All = []Theme{DeepWater, Lagoon, FlexokiDark, Terminal}

// Active is the currently selected theme.
var Active = DeepWater

// ByName returns a theme by its name, defaulting to DeepWater.
func ByName(name string) Theme {
	for _, t := range All {
		if t.Name == name {
			return t
		}
	}
	return DeepWater
}

// SetActive sets the active theme by name.
func SetActive(name string) {
	Active = ByName(name)
}

// Names lists the available theme names in display order.
func Names() []string {
	names := make([]string, len(All))
	for i, t := range All {
		names[i] = t.Name
	}
	return names
}

// Band returns the color for a usage status band.
func (t Theme) Band(b present.Band) lipgloss.Color {
	switch b {
	case present.BandExceedingLimit:
		return t.Red
	case present.BandApproachingLimit:
		return t.Orange
	default:
		return t.Green
	}
}
