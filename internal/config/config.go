// Package config loads and saves the wwdash TOML configuration.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/waterwallet/wwdash/internal/category"
	"github.com/waterwallet/wwdash/internal/model"
)

// BaseURLEnv overrides api.base_url when set.
const BaseURLEnv = "API_BASE_URL"

const (
	defaultBaseURL         = "http://localhost:8081"
	defaultTimeoutSec      = 10
	defaultRefreshInterval = 300
	minRefreshInterval     = 10
	defaultDaemonAddr      = "127.0.0.1:8788"
	defaultDaemonInterval  = 300
)

// Config holds all wwdash configuration.
type Config struct {
	API        APIConfig        `toml:"api"`
	Categories CategoriesConfig `toml:"categories"`
	Allocation AllocationConfig `toml:"allocation"`
	TUI        TUIConfig        `toml:"tui"`
	Appearance AppearanceConfig `toml:"appearance"`
	Daemon     DaemonConfig     `toml:"daemon"`
}

// APIConfig holds remote water service settings.
type APIConfig struct {
	BaseURL    string `toml:"base_url,omitempty"`
	Strict     bool   `toml:"strict"`
	TimeoutSec int    `toml:"timeout_sec"`
	Retries    int    `toml:"retries"`
}

// CategoriesConfig overrides the canonical category set.
type CategoriesConfig struct {
	Keys   []string          `toml:"keys,omitempty"`
	Labels map[string]string `toml:"labels,omitempty"`
}

// AllocationConfig holds local allocation edits. They are applied on top
// of the predicted allocation and never sent to the service.
type AllocationConfig struct {
	Overrides map[string]float64 `toml:"overrides,omitempty"`
}

// TUIConfig holds dashboard refresh settings.
type TUIConfig struct {
	AutoRefresh        bool `toml:"auto_refresh"`
	RefreshIntervalSec int  `toml:"refresh_interval_sec"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DaemonConfig holds background monitor settings.
type DaemonConfig struct {
	Addr        string `toml:"addr,omitempty"`
	IntervalSec int    `toml:"interval_sec"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			TimeoutSec: defaultTimeoutSec,
		},
		TUI: TUIConfig{
			AutoRefresh:        true,
			RefreshIntervalSec: defaultRefreshInterval,
		},
		Appearance: AppearanceConfig{
			Theme: "deep-water",
		},
		Daemon: DaemonConfig{
			Addr:        defaultDaemonAddr,
			IntervalSec: defaultDaemonInterval,
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wwdash")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "wwdash")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// RuntimeDir returns the XDG cache directory holding daemon pid and log files.
func RuntimeDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "wwdash")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "wwdash")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(Path(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// GetBaseURL returns the service URL from env var, config, or the default, in that order.
func GetBaseURL(cfg Config) string {
	if u := strings.TrimSpace(os.Getenv(BaseURLEnv)); u != "" {
		return u
	}
	if u := strings.TrimSpace(cfg.API.BaseURL); u != "" {
		return u
	}
	return defaultBaseURL
}

// Timeout returns the per-request timeout.
func (c Config) Timeout() time.Duration {
	if c.API.TimeoutSec <= 0 {
		return defaultTimeoutSec * time.Second
	}
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// RefreshInterval returns the TUI auto-refresh period, never below the minimum.
func (c Config) RefreshInterval() time.Duration {
	sec := c.TUI.RefreshIntervalSec
	switch {
	case sec <= 0:
		sec = defaultRefreshInterval
	case sec < minRefreshInterval:
		sec = minRefreshInterval
	}
	return time.Duration(sec) * time.Second
}

// DaemonInterval returns the daemon poll period.
func (c Config) DaemonInterval() time.Duration {
	if c.Daemon.IntervalSec <= 0 {
		return defaultDaemonInterval * time.Second
	}
	return time.Duration(c.Daemon.IntervalSec) * time.Second
}

// Registry builds the category registry from [categories].
func Registry(cfg Config) category.Registry {
	return category.New(cfg.Categories.Keys, cfg.Categories.Labels)
}

// Overrides returns the local allocation edits keyed by category.
func Overrides(cfg Config) map[model.CategoryKey]float64 {
	if len(cfg.Allocation.Overrides) == 0 {
		return nil
	}
	out := make(map[model.CategoryKey]float64, len(cfg.Allocation.Overrides))
	for k, v := range cfg.Allocation.Overrides {
		out[model.CategoryKey(OverrideKey(k))] = model.CleanLiters(v)
	}
	return out
}

// OverrideKeys returns override keys in sorted order for display.
func OverrideKeys(cfg Config) []string {
	keys := make([]string, 0, len(cfg.Allocation.Overrides))
	for k := range cfg.Allocation.Overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OverrideKey normalizes a user-typed category key: " Garden " -> "garden".
func OverrideKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseOverride parses "kitchen=120" into a key and liters.
func ParseOverride(s string) (string, float64, error) {
	k, v, ok := strings.Cut(s, "=")
	k = OverrideKey(k)
	if !ok || k == "" {
		return "", 0, fmt.Errorf("override %q: want key=liters", s)
	}
	liters, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return "", 0, fmt.Errorf("override %q: %w", s, err)
	}
	if math.IsNaN(liters) || math.IsInf(liters, 0) {
		return "", 0, fmt.Errorf("override %q: liters must be a finite number", s)
	}
	if liters < 0 {
		return "", 0, fmt.Errorf("override %q: liters must not be negative", s)
	}
	return k, liters, nil
}
