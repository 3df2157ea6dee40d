package cmd

import (
	"fmt"
	"strings"

	"github.com/waterwallet/wwdash/internal/cli"
	"github.com/waterwallet/wwdash/internal/config"
	"github.com/waterwallet/wwdash/internal/gateway"
	"github.com/waterwallet/wwdash/internal/present"
	"github.com/waterwallet/wwdash/internal/refresh"

	"github.com/spf13/cobra"
)

const summaryBarWidth = 16

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Allocation vs usage per category with totals",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(_ *cobra.Command, _ []string) error {
	cfg := runtimeConfig(loadConfigOrDefault())
	out, coord, err := fetchOnce(cfg)
	if err != nil {
		return err
	}
	defer coord.Close()

	fmt.Print(renderSummary(out.Snapshot, cfg))
	return nil
}

// renderSummary formats one committed snapshot as CLI tables.
func renderSummary(snap refresh.Snapshot, cfg config.Config) string {
	m := snap.Metrics
	overrides := config.Overrides(cfg)
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(cli.RenderTitle("WATER USAGE  Allocation vs Usage"))
	b.WriteString("\n\n")

	rows := make([][]string, 0, len(m.Categories))
	for _, c := range m.Categories {
		label := c.Label
		if _, ok := overrides[c.Key]; ok {
			label += cli.Muted(" *")
		}
		rows = append(rows, []string{
			label,
			cli.FormatLiters(c.Allocated),
			cli.FormatLiters(c.Used),
			cli.FormatPercent(c.UsagePercent),
			cli.RenderBandBar(c.UsagePercent, summaryBarWidth),
			cli.RenderBand(present.StatusBand(c.UsagePercent)),
		})
	}
	b.WriteString(cli.RenderTable(cli.Table{
		Headers: []string{"Category", "Allocated", "Used", "Usage", "", "Status"},
		Rows:    rows,
	}))
	if len(overrides) > 0 {
		b.WriteString(cli.Muted("  * local allocation override"))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	totals := [][]string{
		{"Allocated", cli.FormatLiters(m.AllocatedTotal)},
		{"Used", cli.FormatLiters(m.UsedTotal)},
		{"Saved", cli.FormatSignedLiters(m.SavedLiters)},
		{"---"},
		{"Efficiency", fmt.Sprintf("%d%%", m.Efficiency)},
		{"Saving", fmt.Sprintf("%d%%", m.SavingPercentage)},
	}
	if r := snap.Allocation.RainwaterHarvested; r != 0 {
		totals = append(totals, []string{"Rainwater", cli.FormatLiters(r)})
	}
	b.WriteString(cli.RenderTable(cli.Table{
		Headers: []string{"Total", "Value"},
		Rows:    totals,
	}))

	for _, c := range m.Over() {
		b.WriteString(cli.Warn(fmt.Sprintf("  %s is over allocation: %s of %s",
			c.Label, cli.FormatLiters(c.Used), cli.FormatLiters(c.Allocated))))
		b.WriteString("\n")
	}
	if leaks := gateway.Leaks(snap.Samples); len(leaks) > 0 {
		b.WriteString(cli.Alert(fmt.Sprintf("  Leak detected in %d readings (latest %s)",
			len(leaks), cli.FormatTimestamp(leaks[0].Timestamp))))
		b.WriteString("\n")
	}

	return b.String()
}
