package cmd

import (
	"fmt"

	"github.com/waterwallet/wwdash/internal/cli"
	"github.com/waterwallet/wwdash/internal/config"
	"github.com/waterwallet/wwdash/internal/model"

	"github.com/spf13/cobra"
)

var (
	flagAllocSet   []string
	flagAllocUnset []string
	flagAllocClear bool
)

var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Set local allocation overrides (never sent to the service)",
	Example: `  wwdash allocate --set kitchen=120 --set garden=40
  wwdash allocate --unset garden
  wwdash allocate --clear`,
	RunE: runAllocate,
}

func init() {
	allocateCmd.Flags().StringArrayVar(&flagAllocSet, "set", nil, "Override a category as key=liters (repeatable)")
	allocateCmd.Flags().StringArrayVar(&flagAllocUnset, "unset", nil, "Remove one override (repeatable)")
	allocateCmd.Flags().BoolVar(&flagAllocClear, "clear", false, "Remove all overrides")
	rootCmd.AddCommand(allocateCmd)
}

func runAllocate(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	changed := len(flagAllocSet) > 0 || len(flagAllocUnset) > 0 || flagAllocClear
	cfg, err = applyAllocationFlags(cfg, flagAllocSet, flagAllocUnset, flagAllocClear)
	if err != nil {
		return err
	}
	if changed {
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
	}

	fmt.Print(renderOverrides(cfg))
	return nil
}

// applyAllocationFlags applies --clear, then --unset, then --set. Keys
// outside the category registry are rejected.
func applyAllocationFlags(cfg config.Config, set, unset []string, clear bool) (config.Config, error) {
	reg := config.Registry(cfg)

	if clear {
		cfg.Allocation.Overrides = nil
	}
	for _, k := range unset {
		want := config.OverrideKey(k)
		for existing := range cfg.Allocation.Overrides {
			if config.OverrideKey(existing) == want {
				delete(cfg.Allocation.Overrides, existing)
			}
		}
	}
	for _, s := range set {
		key, liters, err := config.ParseOverride(s)
		if err != nil {
			return cfg, err
		}
		if !reg.Has(model.CategoryKey(key)) {
			return cfg, fmt.Errorf("unknown category %q (known: %v)", key, reg.Keys())
		}
		if cfg.Allocation.Overrides == nil {
			cfg.Allocation.Overrides = make(map[string]float64)
		}
		cfg.Allocation.Overrides[key] = liters
	}
	return cfg, nil
}

func renderOverrides(cfg config.Config) string {
	keys := config.OverrideKeys(cfg)
	if len(keys) == 0 {
		return "  No local allocation overrides. Predicted allocation is used as is.\n"
	}

	reg := config.Registry(cfg)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{
			reg.Label(model.CategoryKey(k)),
			cli.FormatLiters(cfg.Allocation.Overrides[k]),
		})
	}
	return cli.RenderTable(cli.Table{
		Title:   "Local Allocation Overrides",
		Headers: []string{"Category", "Allocated"},
		Rows:    rows,
	}) + cli.Muted("  Overrides replace the predicted value and drop the service total.") + "\n"
}
