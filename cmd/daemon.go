package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/waterwallet/wwdash/internal/cli"
	"github.com/waterwallet/wwdash/internal/config"
	"github.com/waterwallet/wwdash/internal/daemon"

	"github.com/spf13/cobra"
)

const (
	stopTimeout  = 8 * time.Second
	probeTimeout = 2 * time.Second
)

var (
	flagDaemonAddr         string
	flagDaemonInterval     time.Duration
	flagDaemonDetach       bool
	flagDaemonPIDFile      string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run a background water monitor with HTTP/SSE and Prometheus endpoints",
	Long: `Polls the water service on an interval and serves the latest state:

  /healthz      liveness
  /v1/status    current summary and poll counters
  /v1/events    recent snapshot, usage_delta and leak_alert events
  /v1/stream    the same events as server-sent events
  /metrics      Prometheus metrics`,
	RunE: runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and latest water summary",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	pf := daemonCmd.PersistentFlags()
	pf.StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default from config, 127.0.0.1:8788)")
	pf.DurationVar(&flagDaemonInterval, "interval", 0, "Polling interval (default from config, 5m)")
	pf.StringVar(&flagDaemonPIDFile, "pid-file", filepath.Join(config.RuntimeDir(), "wwdashd.pid"), "PID file path")
	pf.StringVar(&flagDaemonLogFile, "log-file", filepath.Join(config.RuntimeDir(), "wwdashd.log"), "Log file path for detached mode")
	pf.IntVar(&flagDaemonEventsBuffer, "events-buffer", 200, "Max in-memory events retained")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run daemon as a background process")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd, daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

// pidFile is the daemon's pid file. Its runtime state lives next to it
// with a .json suffix.
type pidFile string

// daemonState is what a running daemon records beside its pid file.
type daemonState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	BaseURL   string    `json:"base_url"`
}

func (p pidFile) statePath() string { return string(p) + ".json" }

func (p pidFile) write(pid int) error {
	if err := os.MkdirAll(filepath.Dir(string(p)), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	return os.WriteFile(string(p), []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

func (p pidFile) read() (int, error) {
	//nolint:gosec // pid path is configured by the local user
	data, err := os.ReadFile(string(p))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", p)
	}
	return pid, nil
}

func (p pidFile) saveState(st daemonState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.statePath(), append(data, '\n'), 0o600)
}

func (p pidFile) loadState() (daemonState, error) {
	var st daemonState
	//nolint:gosec // state path is derived from the pid path
	data, err := os.ReadFile(p.statePath())
	if err != nil {
		return st, err
	}
	err = json.Unmarshal(data, &st)
	return st, err
}

func (p pidFile) remove() {
	_ = os.Remove(string(p))
	_ = os.Remove(p.statePath())
}

// claim fails when a live daemon owns the file and clears stale files
// left by one that died.
func (p pidFile) claim() error {
	pid, err := p.read()
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return err
	case processAlive(pid):
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	p.remove()
	return nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func runDaemon(_ *cobra.Command, _ []string) error {
	pf := pidFile(flagDaemonPIDFile)
	switch {
	case flagDaemonDetach && flagDaemonChild:
		return errors.New("invalid daemon launch mode")
	case flagDaemonDetach:
		return startDetached(pf)
	default:
		return runDaemonForeground(pf)
	}
}

func startDetached(pf pidFile) error {
	if err := pf.claim(); err != nil {
		return err
	}
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return fmt.Errorf("create daemon log directory: %w", err)
	}
	//nolint:gosec // log path is configured by the local user
	logf, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	args := append(filterDetachArg(os.Args[1:]), "--child")
	child := exec.Command(exe, args...) //nolint:gosec // re-executes the current binary
	child.Stdout = logf
	child.Stderr = logf
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	fmt.Printf("  Started daemon (pid %d)\n", child.Process.Pid)
	fmt.Printf("  PID file: %s\n", pf)
	fmt.Printf("  API: http://%s/v1/status\n", daemonAddr(loadConfigOrDefault()))
	fmt.Printf("  Log: %s\n", flagDaemonLogFile)
	return nil
}

func runDaemonForeground(pf pidFile) error {
	if err := pf.claim(); err != nil {
		return err
	}

	cfg := runtimeConfig(loadConfigOrDefault())
	addr := daemonAddr(cfg)
	interval := flagDaemonInterval
	if interval <= 0 {
		interval = cfg.DaemonInterval()
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	coord, client := newCoordinator(cfg, logger)
	defer coord.Close()

	pid := os.Getpid()
	if err := pf.write(pid); err != nil {
		return err
	}
	defer pf.remove()
	_ = pf.saveState(daemonState{PID: pid, Addr: addr, StartedAt: time.Now(), BaseURL: client.BaseURL()})

	svc := daemon.New(daemon.Config{
		Interval:     interval,
		Addr:         addr,
		EventsBuffer: flagDaemonEventsBuffer,
		BaseURL:      client.BaseURL(),
		Strict:       cfg.API.Strict,
		Logger:       logger,
		AccessLog:    os.Stdout,
	}, coord)

	fmt.Printf("  wwdash daemon listening on http://%s\n", addr)
	fmt.Printf("  Polling %s every %s\n", client.BaseURL(), interval)
	fmt.Printf("  Stop with: wwdash daemon stop --pid-file %s\n", pf)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func daemonAddr(cfg config.Config) string {
	if flagDaemonAddr != "" {
		return flagDaemonAddr
	}
	return cfg.Daemon.Addr
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	pf := pidFile(flagDaemonPIDFile)
	pid, err := pf.read()
	if err != nil {
		fmt.Println("  Daemon: not running (pid file not found)")
		return nil
	}
	if !processAlive(pid) {
		fmt.Printf("  Daemon: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	addr := daemonAddr(loadConfigOrDefault())
	if st, err := pf.loadState(); err == nil && st.Addr != "" {
		addr = st.Addr
	}
	fmt.Printf("  Daemon PID: %d\n", pid)
	fmt.Printf("  Address: http://%s\n", addr)

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	st, err := probeDaemon(ctx, http.DefaultClient, "http://"+addr)
	if err != nil {
		fmt.Printf("  API status: %v\n", err)
		return nil
	}
	fmt.Print(renderDaemonStatus(st, time.Now()))
	return nil
}

// probeDaemon reads /v1/status from a running daemon.
func probeDaemon(ctx context.Context, hc *http.Client, base string) (daemon.Status, error) {
	var st daemon.Status
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/v1/status", nil)
	if err != nil {
		return st, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return st, fmt.Errorf("unreachable (%w)", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("malformed response (%w)", err)
	}
	return st, nil
}

func renderDaemonStatus(st daemon.Status, now time.Time) string {
	var b strings.Builder

	lastPoll := "pending"
	if !st.LastPollAt.IsZero() {
		lastPoll = cli.FormatAgo(st.LastPollAt, now)
	}
	mode := "degrade"
	if st.Strict {
		mode = "strict"
	}
	sum := st.Summary

	b.WriteString(cli.RenderTable(cli.Table{
		Title: "Daemon",
		Rows: [][]string{
			{"Service", st.BaseURL},
			{"Mode", mode},
			{"Last poll", lastPoll},
			{"Polls", cli.FormatNumber(st.PollCount)},
			{"---"},
			{"Allocated", cli.FormatLiters(sum.AllocatedL)},
			{"Used", fmt.Sprintf("%s (%d%%)", cli.FormatLiters(sum.UsedL), sum.Efficiency)},
			{"Saved", cli.FormatSignedLiters(sum.SavedL)},
		},
	}))

	if sum.OverLimit > 0 {
		b.WriteString(cli.Warn(fmt.Sprintf("  %d categories over allocation", sum.OverLimit)))
		b.WriteString("\n")
	}
	if st.LastError != "" {
		b.WriteString(cli.Alert("  Last error: " + st.LastError))
		b.WriteString("\n")
	}
	return b.String()
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	pf := pidFile(flagDaemonPIDFile)
	pid, err := pf.read()
	if err != nil {
		return errors.New("daemon is not running")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}

	for deadline := time.Now().Add(stopTimeout); time.Now().Before(deadline); time.Sleep(150 * time.Millisecond) {
		if !processAlive(pid) {
			pf.remove()
			fmt.Printf("  Stopped daemon (pid %d)\n", pid)
			return nil
		}
	}
	return fmt.Errorf("daemon (pid %d) did not exit in time", pid)
}
