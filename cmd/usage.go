package cmd

import (
	"fmt"
	"strings"

	"github.com/waterwallet/wwdash/internal/category"
	"github.com/waterwallet/wwdash/internal/cli"
	"github.com/waterwallet/wwdash/internal/metrics"
	"github.com/waterwallet/wwdash/internal/model"

	"github.com/spf13/cobra"
)

var flagUsageLimit int

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Recent usage readings with flow, pressure and leak flags",
	RunE:  runUsage,
}

func init() {
	usageCmd.Flags().IntVarP(&flagUsageLimit, "limit", "n", 20, "Max readings to show (0 for all)")
	rootCmd.AddCommand(usageCmd)
}

func runUsage(_ *cobra.Command, _ []string) error {
	cfg := runtimeConfig(loadConfigOrDefault())
	out, coord, err := fetchOnce(cfg)
	if err != nil {
		return err
	}
	defer coord.Close()

	fmt.Print(renderUsage(out.Snapshot.Samples, coord.Registry(), flagUsageLimit))
	return nil
}

func renderUsage(samples []model.Sample, reg category.Registry, limit int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(cli.RenderTitle("WATER USAGE  Recent Readings"))
	b.WriteString("\n\n")

	if len(samples) == 0 {
		b.WriteString("  No usage readings reported.\n")
		return b.String()
	}

	shown := samples
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	rows := make([][]string, 0, len(shown))
	totals := make([]float64, len(shown))
	for i, s := range shown {
		totals[len(shown)-1-i] = metrics.Total(s.Record, reg)
		leak := cli.Muted("no")
		if s.LeakDetected {
			leak = cli.Alert("yes")
		}
		rows = append(rows, []string{
			cli.FormatTimestamp(s.Timestamp),
			cli.FormatLiters(metrics.Total(s.Record, reg)),
			cli.FormatReading(s.FlowRate, "L/min"),
			cli.FormatReading(s.PipePressure, "PSI"),
			leak,
		})
	}
	b.WriteString(cli.RenderTable(cli.Table{
		Headers: []string{"Time", "Total", "Flow", "Pressure", "Leak"},
		Rows:    rows,
	}))
	b.WriteString(fmt.Sprintf("  Trend (oldest to newest): %s\n", cli.RenderSparkline(totals)))
	if len(shown) < len(samples) {
		b.WriteString(cli.Muted(fmt.Sprintf("  %d older readings hidden, use --limit 0 to show all", len(samples)-len(shown))))
		b.WriteString("\n")
	}
	return b.String()
}
