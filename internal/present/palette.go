package present

// palette starts with the chart colours the dashboard has always used for
// kitchen, bathroom and outdoor, then extends with fixed hues.
var palette = []string{
	"#FF6384",
	"#36A2EB",
	"#FFCE56",
	"#4BC0C0",
	"#9966FF",
	"#FF9F40",
	"#C9CBCF",
	"#8AC926",
}

// PaletteColor returns the colour for a category position. It is a pure
// function of index so a category keeps its colour across refreshes.
func PaletteColor(index int) string {
	n := len(palette)
	return palette[(index%n+n)%n]
}

// PaletteSize returns the number of distinct colours before cycling.
func PaletteSize() int {
	return len(palette)
}
