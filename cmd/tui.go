package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/waterwallet/wwdash/internal/config"
	"github.com/waterwallet/wwdash/internal/gateway"
	"github.com/waterwallet/wwdash/internal/logging"
	"github.com/waterwallet/wwdash/internal/tui"
	"github.com/waterwallet/wwdash/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

const tuiLogLines = 500

var flagTUILogFile string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&flagTUILogFile, "log-file", filepath.Join(config.RuntimeDir(), "tui.log"), "Log file while the dashboard is open")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	cfg := loadConfigOrDefault()

	if !config.Exists() {
		updated, err := tui.RunSetup(cfg)
		switch {
		case errors.Is(err, tui.ErrSetupAborted):
			// Continue with defaults; setup runs again next time.
		case err != nil:
			return err
		default:
			if err := config.Save(updated); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			cfg = updated
		}
	}
	theme.SetActive(cfg.Appearance.Theme)

	// Force TrueColor so background styling produces ANSI codes.
	lipgloss.SetColorProfile(termenv.TrueColor)

	// Stderr would draw over the alt screen: the Logs tab gets everything
	// at debug and the log file gets the configured level.
	buf := logging.NewBuffer(tuiLogLines, slog.LevelDebug)
	level, err := logging.ParseLevel(flagLogLevel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(flagTUILogFile), 0o750); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	//nolint:gosec // log path is configured by the local user
	logf, err := os.OpenFile(flagTUILogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logf.Close() }()
	logger := slog.New(logging.Tee(buf, logging.NewHandler(logf, level, flagLogFormat)))

	rc := runtimeConfig(cfg)
	coord, client := newCoordinator(rc, logger)
	defer coord.Close()

	app := tui.NewApp(tui.Options{
		Coordinator: coord,
		Config:      cfg,
		Logs:        buf,
		Logger:      logger,
		BaseURL:     client.BaseURL(),
		Strict:      client.Mode() == gateway.ModeStrict,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
