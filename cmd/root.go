// Package cmd implements the wwdash CLI commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/waterwallet/wwdash/internal/config"
	"github.com/waterwallet/wwdash/internal/gateway"
	"github.com/waterwallet/wwdash/internal/logging"
	"github.com/waterwallet/wwdash/internal/refresh"

	"github.com/spf13/cobra"
)

var (
	flagAPIURL    string
	flagStrict    bool
	flagTimeout   time.Duration
	flagRetries   int
	flagQuiet     bool
	flagLogLevel  string
	flagLogFormat string
)

var rootCmd = &cobra.Command{
	Use:           "wwdash",
	Short:         "Household water allocation and usage dashboard",
	Long:          "Compare predicted water allocation against measured usage per category.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.RunE = runSummary
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagAPIURL, "api-url", "", "Water service base URL (overrides $"+config.BaseURLEnv+" and config)")
	pf.BoolVar(&flagStrict, "strict", false, "Fail on fetch errors instead of showing zero readings")
	pf.DurationVar(&flagTimeout, "timeout", 0, "Per-request timeout (default from config, 10s)")
	pf.IntVar(&flagRetries, "retries", -1, "Retries for network errors (default from config)")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Only log errors")
	pf.StringVar(&flagLogLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	pf.StringVar(&flagLogFormat, "log-format", "text", "Log format: text or json")
}

// loadConfigOrDefault loads config, returning defaults on error so the
// CLI can always start even if the file is corrupted.
func loadConfigOrDefault() config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "  Warning: %v (using defaults)\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

// runtimeConfig folds command-line flags over the loaded config.
func runtimeConfig(cfg config.Config) config.Config {
	if flagAPIURL != "" {
		cfg.API.BaseURL = flagAPIURL
	}
	if rootCmd.PersistentFlags().Changed("strict") {
		cfg.API.Strict = flagStrict
	}
	if flagTimeout > 0 {
		cfg.API.TimeoutSec = int(flagTimeout.Round(time.Second) / time.Second)
	}
	if flagRetries >= 0 {
		cfg.API.Retries = flagRetries
	}
	return cfg
}

// baseURL applies the precedence flag > env > config > default.
func baseURL(cfg config.Config) string {
	if flagAPIURL != "" {
		return flagAPIURL
	}
	return config.GetBaseURL(cfg)
}

// newLogger builds the stderr logger from --log-level and --log-format.
func newLogger() (*slog.Logger, error) {
	level, err := logging.ParseLevel(flagLogLevel)
	if err != nil {
		return nil, err
	}
	if flagQuiet {
		level = slog.LevelError
	}
	return logging.New(os.Stderr, level, flagLogFormat), nil
}

func newClient(cfg config.Config, logger *slog.Logger) *gateway.Client {
	mode := gateway.ModeDegrade
	if cfg.API.Strict {
		mode = gateway.ModeStrict
	}
	return gateway.New(gateway.Config{
		BaseURL: baseURL(cfg),
		Mode:    mode,
		Timeout: cfg.Timeout(),
		Retries: cfg.API.Retries,
		Logger:  logger,
	})
}

// newCoordinator wires gateway, registry and overrides for one process.
func newCoordinator(cfg config.Config, logger *slog.Logger) (*refresh.Coordinator, *gateway.Client) {
	client := newClient(cfg, logger)
	coord := refresh.New(client, config.Registry(cfg), logger)
	coord.SetOverrides(config.Overrides(cfg))
	return coord, client
}

// fetchOnce runs a single cycle for the one-shot commands.
func fetchOnce(cfg config.Config) (refresh.Outcome, *refresh.Coordinator, error) {
	logger, err := newLogger()
	if err != nil {
		return refresh.Outcome{}, nil, err
	}
	coord, client := newCoordinator(cfg, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Fetching from %s...\n", client.BaseURL())
	}
	out, err := coord.Refresh(ctx)
	if err != nil {
		coord.Close()
		return out, nil, fmt.Errorf("fetching water data: %w", err)
	}
	return out, coord, nil
}
