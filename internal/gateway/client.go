// Package gateway fetches allocation and usage data from the remote water service.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/waterwallet/wwdash/internal/model"
)

const (
	// DefaultBaseURL is used when neither config nor API_BASE_URL set one.
	DefaultBaseURL = "http://localhost:8081"

	allocationPath = "/allocation/predict"
	usagePath      = "/waterUsage/detail"

	defaultTimeout = 10 * time.Second
	retryBackoff   = 500 * time.Millisecond
	maxBodySize    = 1 << 20 // 1 MB
	userAgent      = "wwdash/1.0"
)

// Mode selects how failures leave the gateway.
type Mode int

const (
	// ModeDegrade returns zeroed records and a nil error on failure.
	ModeDegrade Mode = iota
	// ModeStrict returns a *FetchError on failure.
	ModeStrict
)

func (m Mode) String() string {
	if m == ModeStrict {
		return "strict"
	}
	return "degrade"
}

// Config controls the gateway client.
type Config struct {
	BaseURL    string
	Mode       Mode
	Timeout    time.Duration // per request
	Retries    int           // extra attempts on network errors
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client reads allocation and usage records from the water service.
type Client struct {
	baseURL string
	mode    Mode
	timeout time.Duration
	retries int
	http    *http.Client
	log     *slog.Logger
}

// New creates a client. Missing fields fall back to defaults.
func New(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: base,
		mode:    cfg.Mode,
		timeout: cfg.Timeout,
		retries: cfg.Retries,
		http:    cfg.HTTPClient,
		log:     cfg.Logger.With("component", "gateway"),
	}
}

// BaseURL returns the normalized service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Mode returns the configured failure mode.
func (c *Client) Mode() Mode {
	return c.mode
}

// FetchAllocation returns the predicted per-category allocation.
func (c *Client) FetchAllocation(ctx context.Context) (model.Record, error) {
	a, err := c.FetchAllocationDetail(ctx)
	return a.Record, err
}

// FetchAllocationDetail is FetchAllocation plus rainwater-harvest liters.
func (c *Client) FetchAllocationDetail(ctx context.Context) (model.Allocation, error) {
	a, err := c.fetchAllocation(ctx)
	if err != nil {
		return model.Allocation{Record: model.NewRecord()}, c.fail(allocationPath, err)
	}
	return a, nil
}

func (c *Client) fetchAllocation(ctx context.Context) (model.Allocation, error) {
	body, err := c.get(ctx, allocationPath)
	if err != nil {
		return model.Allocation{}, err
	}

	var raw allocationResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.Allocation{}, malformed(allocationPath, err)
	}

	out := model.Allocation{Record: model.NewRecord()}
	if !isNull(raw.Allocations) {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw.Allocations, &fields); err != nil {
			return model.Allocation{}, malformed(allocationPath, fmt.Errorf("allocations: %w", err))
		}
		out.Record = recordFromFields(fields)
	}
	if v, ok := parseLiters(raw.PredictedTotal); ok {
		out.SetTotal(v)
	}
	out.RainwaterHarvested, _ = parseLiters(raw.RainwaterHarvested)

	return out, nil
}

// FetchUsage returns the most recent usage sample as a record.
// An empty sample list yields a zeroed record and a nil error.
func (c *Client) FetchUsage(ctx context.Context) (model.Record, error) {
	samples, err := c.FetchUsageHistory(ctx)
	if err != nil {
		return model.NewRecord(), err
	}
	return Latest(samples), nil
}

// FetchUsageHistory returns every usage sample, most recent first.
func (c *Client) FetchUsageHistory(ctx context.Context) ([]model.Sample, error) {
	samples, err := c.fetchUsage(ctx)
	if err != nil {
		return nil, c.fail(usagePath, err)
	}
	if len(samples) == 0 {
		c.log.Info("usage list empty, using zero record", "endpoint", usagePath, "kind", KindEmptyData.String())
	}
	return samples, nil
}

func (c *Client) fetchUsage(ctx context.Context) ([]model.Sample, error) {
	body, err := c.get(ctx, usagePath)
	if err != nil {
		return nil, err
	}

	var raw usageResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, malformed(usagePath, err)
	}
	if isNull(raw.Data) {
		return nil, nil
	}

	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(raw.Data, &entries); err != nil {
		return nil, malformed(usagePath, fmt.Errorf("data: %w", err))
	}

	samples := make([]model.Sample, 0, len(entries))
	for _, fields := range entries {
		s := model.Sample{
			Record:       recordFromFields(fields),
			Timestamp:    parseTimestamp(fields[fieldTimestamp]),
			FlowRate:     parseReading(fields[fieldFlowRate]),
			PipePressure: parseReading(fields[fieldPipePressure]),
			LeakDetected: parseFlag(fields[fieldLeakDetected]),
		}
		if v, ok := parseLiters(fields[fieldTotal]); ok {
			s.SetTotal(v)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// Latest returns the first sample's record, which the service orders
// most recent first, or a zeroed record when there are none.
func Latest(samples []model.Sample) model.Record {
	if len(samples) == 0 {
		return model.NewRecord()
	}
	return samples[0].Record.Clone()
}

// Leaks returns the samples flagged with a detected leak, order preserved.
func Leaks(samples []model.Sample) []model.Sample {
	var out []model.Sample
	for _, s := range samples {
		if s.LeakDetected {
			out = append(out, s)
		}
	}
	return out
}

// fail applies the configured mode to an internal error.
func (c *Client) fail(endpoint string, err error) error {
	var fe *FetchError
	if !errors.As(err, &fe) {
		fe = &FetchError{Kind: KindNetwork, Endpoint: endpoint, Err: err}
	}
	if c.mode == ModeStrict {
		c.log.Error("fetch failed", "endpoint", endpoint, "kind", fe.Kind.String(), "error", fe.Err)
		return fe
	}
	c.log.Warn("fetch failed, degrading to zero record", "endpoint", endpoint, "kind", fe.Kind.String(), "error", fe.Err)
	return nil
}

// get performs a GET with per-request timeout and network-error retries.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.log.Debug("retrying request", "endpoint", path, "attempt", attempt+1)
			select {
			case <-ctx.Done():
				return nil, network(path, ctx.Err())
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}

		body, err := c.getOnce(ctx, path)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if KindOf(err) != KindNetwork || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) getOnce(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, network(path, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	//nolint:gosec // base URL is user configuration
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, network(path, fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, network(path, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, network(path, fmt.Errorf("reading response: %w", err))
	}
	return body, nil
}

func network(endpoint string, err error) *FetchError {
	return &FetchError{Kind: KindNetwork, Endpoint: endpoint, Err: err}
}

func malformed(endpoint string, err error) *FetchError {
	return &FetchError{Kind: KindMalformedResponse, Endpoint: endpoint, Err: err}
}
