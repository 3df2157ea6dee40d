package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/waterwallet/wwdash/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg = runtimeConfig(cfg)

	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [API]")
	fmt.Printf("    Base URL:  %s", baseURL(cfg))
	switch {
	case flagAPIURL != "":
		fmt.Println(" (--api-url)")
	case os.Getenv(config.BaseURLEnv) != "":
		fmt.Printf(" ($%s)\n", config.BaseURLEnv)
	case cfg.API.BaseURL != "":
		fmt.Println()
	default:
		fmt.Println(" (default)")
	}
	mode := "degrade (zero readings on failure)"
	if cfg.API.Strict {
		mode = "strict (report failures)"
	}
	fmt.Printf("    Mode:      %s\n", mode)
	fmt.Printf("    Timeout:   %s\n", cfg.Timeout())
	fmt.Printf("    Retries:   %d\n", cfg.API.Retries)
	fmt.Println()

	reg := config.Registry(cfg)
	fmt.Println("  [Categories]")
	for _, c := range reg.Categories() {
		fmt.Printf("    %-10s %s\n", c.Key, c.Label)
	}
	fmt.Println()

	fmt.Println("  [Allocation]")
	if keys := config.OverrideKeys(cfg); len(keys) > 0 {
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%g", k, cfg.Allocation.Overrides[k])
		}
		fmt.Printf("    Local overrides: %s\n", strings.Join(parts, ", "))
	} else {
		fmt.Println("    Local overrides: none")
	}
	fmt.Println()

	fmt.Println("  [TUI]")
	fmt.Printf("    Auto refresh:     %v\n", cfg.TUI.AutoRefresh)
	fmt.Printf("    Refresh interval: %s\n", cfg.RefreshInterval())
	fmt.Printf("    Theme:            %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Interval: %s\n", cfg.DaemonInterval())
	fmt.Println()

	fmt.Println("  Run `wwdash setup` to reconfigure.")
	return nil
}
