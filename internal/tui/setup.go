package tui

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/waterwallet/wwdash/internal/config"
	"github.com/waterwallet/wwdash/internal/gateway"
	"github.com/waterwallet/wwdash/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// ErrSetupAborted is returned when the user cancels the setup form.
var ErrSetupAborted = errors.New("setup aborted")

// setupValues holds the first-run form answers.
type setupValues struct {
	baseURL     string
	strict      bool
	theme       string
	autoRefresh bool
	interval    string
}

func setupValuesFrom(cfg config.Config) setupValues {
	return setupValues{
		baseURL:     cfg.API.BaseURL,
		strict:      cfg.API.Strict,
		theme:       cfg.Appearance.Theme,
		autoRefresh: cfg.TUI.AutoRefresh,
		interval:    strconv.Itoa(int(cfg.RefreshInterval().Seconds())),
	}
}

func validateBaseURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("enter an http(s) URL such as %s", gateway.DefaultBaseURL)
	}
	return nil
}

func validateInterval(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 10 {
		return errors.New("enter whole seconds, at least 10")
	}
	return nil
}

func newSetupForm(vals *setupValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to wwdash").
				Description("Point the dashboard at your water service and pick a look.\nRun `wwdash setup` anytime to change these."),
			huh.NewInput().
				Title("Service URL").
				Description("Leave blank for "+gateway.DefaultBaseURL+" or $"+config.BaseURLEnv).
				Placeholder(gateway.DefaultBaseURL).
				Validate(validateBaseURL).
				Value(&vals.baseURL),
			huh.NewConfirm().
				Title("Strict mode?").
				Description("Show fetch failures instead of falling back to zero readings.").
				Affirmative("Strict").
				Negative("Degrade").
				Value(&vals.strict),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&vals.theme),
			huh.NewConfirm().
				Title("Refresh automatically?").
				Value(&vals.autoRefresh),
			huh.NewInput().
				Title("Refresh interval (seconds)").
				Validate(validateInterval).
				Value(&vals.interval),
		),
	).WithTheme(huh.ThemeCharm())
}

// applySetup folds form answers into cfg.
func applySetup(cfg config.Config, vals setupValues) config.Config {
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(vals.baseURL), "/")
	cfg.API.Strict = vals.strict
	if vals.theme != "" {
		cfg.Appearance.Theme = vals.theme
	}
	cfg.TUI.AutoRefresh = vals.autoRefresh
	if n, err := strconv.Atoi(strings.TrimSpace(vals.interval)); err == nil && n >= 10 {
		cfg.TUI.RefreshIntervalSec = n
	}
	return cfg
}

// RunSetup runs the interactive setup form and returns the updated config.
// The caller saves it.
func RunSetup(cfg config.Config) (config.Config, error) {
	vals := setupValuesFrom(cfg)
	if err := newSetupForm(&vals).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return cfg, ErrSetupAborted
		}
		return cfg, fmt.Errorf("setup form: %w", err)
	}
	cfg = applySetup(cfg, vals)
	theme.SetActive(cfg.Appearance.Theme)
	return cfg, nil
}
