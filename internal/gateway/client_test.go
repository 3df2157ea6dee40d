package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/waterwallet/wwdash/internal/model"
)

const householdAllocation = `{
	"allocations": {"kitchen": 100, "bathroom": 150, "garden": 50},
	"predicted_total_L": 300,
	"rainwater_harvested_L": 42.5
}`

const householdUsage = `{
	"data": [
		{"kitchen": 80, "bathroom": 120, "garden": 20, "total": 220,
		 "timestamp": "2025-03-02T08:00:00Z", "flow_rate": 6.5, "pipe_pressure": 48, "leak_detected": true},
		{"kitchen": 10, "bathroom": 10, "garden": 10, "total": 30,
		 "timestamp": "2025-03-01T08:00:00Z", "flow_rate": 3.1, "leak_detected": false}
	]
}`

func newServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchAllocationHousehold(t *testing.T) {
	srv := newServer(t, map[string]string{allocationPath: householdAllocation})
	c := New(Config{BaseURL: srv.URL, Mode: ModeStrict})

	a, err := c.FetchAllocationDetail(context.Background())
	if err != nil {
		t.Fatalf("FetchAllocationDetail: %v", err)
	}
	if got := a.Get("bathroom"); got != 150 {
		t.Fatalf("bathroom = %v, want 150", got)
	}
	if a.Get("outdoor") != 0 {
		t.Fatalf("missing key should read as 0")
	}
	if a.Total == nil || *a.Total != 300 {
		t.Fatalf("Total = %v, want 300", a.Total)
	}
	if a.RainwaterHarvested != 42.5 {
		t.Fatalf("RainwaterHarvested = %v, want 42.5", a.RainwaterHarvested)
	}
}

func TestFetchAllocationBackendKeySpelling(t *testing.T) {
	srv := newServer(t, map[string]string{
		allocationPath: `{"allocations": {"Kitchen_L": "12.5L", "garden_L": 7, "outdoor": -3}}`,
	})
	c := New(Config{BaseURL: srv.URL, Mode: ModeStrict})

	rec, err := c.FetchAllocation(context.Background())
	if err != nil {
		t.Fatalf("FetchAllocation: %v", err)
	}
	if rec.Get("kitchen") != 12.5 {
		t.Fatalf("kitchen = %v, want 12.5", rec.Get("kitchen"))
	}
	if rec.Get("garden") != 7 {
		t.Fatalf("garden = %v, want 7", rec.Get("garden"))
	}
	if rec.Get("outdoor") != 0 {
		t.Fatalf("negative value should be coerced to 0, got %v", rec.Get("outdoor"))
	}
	if rec.Total != nil {
		t.Fatalf("Total should be nil when predicted_total_L is absent")
	}
}

func TestFetchAllocationBareKeyWins(t *testing.T) {
	srv := newServer(t, map[string]string{
		allocationPath: `{"allocations": {"kitchen": 100, "Kitchen_L": 999, "garden_L": 7}}`,
	})
	c := New(Config{BaseURL: srv.URL, Mode: ModeStrict})

	// Map iteration order varies per run; repeat to cover both orders.
	for i := 0; i < 20; i++ {
		rec, err := c.FetchAllocation(context.Background())
		if err != nil {
			t.Fatalf("FetchAllocation: %v", err)
		}
		if rec.Get("kitchen") != 100 {
			t.Fatalf("kitchen = %v, want the bare key's 100", rec.Get("kitchen"))
		}
		if rec.Get("garden") != 7 {
			t.Fatalf("garden = %v, want 7", rec.Get("garden"))
		}
	}
}

func TestFetchUsageSelectsMostRecent(t *testing.T) {
	srv := newServer(t, map[string]string{usagePath: householdUsage})
	c := New(Config{BaseURL: srv.URL, Mode: ModeStrict})

	rec, err := c.FetchUsage(context.Background())
	if err != nil {
		t.Fatalf("FetchUsage: %v", err)
	}
	if rec.Get("kitchen") != 80 || rec.Get("bathroom") != 120 {
		t.Fatalf("usage = %v, want first entry", rec.Values)
	}
	if rec.Total == nil || *rec.Total != 220 {
		t.Fatalf("Total = %v, want 220", rec.Total)
	}
	if _, ok := rec.Values["timestamp"]; ok {
		t.Fatal("timestamp leaked into category values")
	}
}

func TestFetchUsageHistory(t *testing.T) {
	srv := newServer(t, map[string]string{usagePath: householdUsage})
	c := New(Config{BaseURL: srv.URL})

	samples, err := c.FetchUsageHistory(context.Background())
	if err != nil {
		t.Fatalf("FetchUsageHistory: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("samples = %d, want 2", len(samples))
	}
	first := samples[0]
	want := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	if !first.Timestamp.Equal(want) {
		t.Fatalf("Timestamp = %v, want %v", first.Timestamp, want)
	}
	if first.FlowRate == nil || *first.FlowRate != 6.5 {
		t.Fatalf("FlowRate = %v, want 6.5", first.FlowRate)
	}
	if !first.LeakDetected {
		t.Fatal("LeakDetected = false, want true")
	}
	if samples[1].PipePressure != nil {
		t.Fatal("absent pipe_pressure should be nil")
	}
	if leaks := Leaks(samples); len(leaks) != 1 {
		t.Fatalf("Leaks = %d, want 1", len(leaks))
	}
}

func TestFetchUsageEmptyList(t *testing.T) {
	srv := newServer(t, map[string]string{usagePath: `{"data": []}`})

	for _, mode := range []Mode{ModeDegrade, ModeStrict} {
		c := New(Config{BaseURL: srv.URL, Mode: mode})
		rec, err := c.FetchUsage(context.Background())
		if err != nil {
			t.Fatalf("%s: FetchUsage: %v", mode, err)
		}
		if !rec.IsZero() {
			t.Fatalf("%s: record = %v, want zero", mode, rec.Values)
		}
	}
}

func TestFailurePolicy(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer failing.Close()

	garbage := newServer(t, map[string]string{
		allocationPath: `not json`,
		usagePath:      `{"data": {"kitchen": 1}}`,
	})

	unreachable := httptest.NewServer(http.NotFoundHandler())
	unreachableURL := unreachable.URL
	unreachable.Close()

	tests := []struct {
		name string
		url  string
		want error
	}{
		{"server error", failing.URL, ErrNetwork},
		{"malformed", garbage.URL, ErrMalformedResponse},
		{"unreachable", unreachableURL, ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			degrade := New(Config{BaseURL: tt.url, Mode: ModeDegrade, Timeout: time.Second})
			alloc, err := degrade.FetchAllocation(ctx)
			if err != nil {
				t.Fatalf("degrade FetchAllocation err = %v, want nil", err)
			}
			if !alloc.IsZero() {
				t.Fatalf("degrade allocation = %v, want zero", alloc.Values)
			}
			usage, err := degrade.FetchUsage(ctx)
			if err != nil || !usage.IsZero() {
				t.Fatalf("degrade FetchUsage = (%v, %v), want zero record and nil", usage.Values, err)
			}

			strict := New(Config{BaseURL: tt.url, Mode: ModeStrict, Timeout: time.Second})
			_, err = strict.FetchUsage(ctx)
			if !errors.Is(err, tt.want) {
				t.Fatalf("strict FetchUsage err = %v, want %v", err, tt.want)
			}
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("strict error %T is not *FetchError", err)
			}
			if fe.Endpoint != usagePath {
				t.Fatalf("Endpoint = %q, want %q", fe.Endpoint, usagePath)
			}
		})
	}
}

func TestRetriesNetworkErrorsOnly(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(householdAllocation))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Mode: ModeStrict, Retries: 2})
	rec, err := c.FetchAllocation(context.Background())
	if err != nil {
		t.Fatalf("FetchAllocation: %v", err)
	}
	if rec.Get("kitchen") != 100 {
		t.Fatalf("kitchen = %v, want 100", rec.Get("kitchen"))
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}

	calls.Store(0)
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[`))
	}))
	defer bad.Close()

	c = New(Config{BaseURL: bad.URL, Mode: ModeStrict, Retries: 2})
	if _, err := c.FetchAllocation(context.Background()); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("malformed response retried: calls = %d, want 1", calls.Load())
	}
}

func TestLatestEmpty(t *testing.T) {
	if rec := Latest(nil); !rec.IsZero() {
		t.Fatalf("Latest(nil) = %v, want zero", rec.Values)
	}
	samples := []model.Sample{{Record: model.NewRecord()}}
	samples[0].Set("kitchen", 5)
	got := Latest(samples)
	got.Set("kitchen", 9)
	if samples[0].Get("kitchen") != 5 {
		t.Fatal("Latest aliased the sample's values")
	}
}

func TestParseLiters(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{`12`, 12, true},
		{`"12.5"`, 12.5, true},
		{`"12.5 L"`, 12.5, true},
		{`-4`, 0, true},
		{`null`, 0, false},
		{`"n/a"`, 0, false},
		{`{}`, 0, false},
	}
	for _, tt := range tests {
		got, ok := parseLiters([]byte(tt.raw))
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseLiters(%s) = (%v, %v), want (%v, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	want := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	for _, raw := range []string{
		`"2025-03-02T08:00:00Z"`,
		`"2025-03-02T08:00:00"`,
		`"Sun, 02 Mar 2025 08:00:00 GMT"`,
	} {
		if got := parseTimestamp([]byte(raw)); !got.Equal(want) {
			t.Errorf("parseTimestamp(%s) = %v, want %v", raw, got, want)
		}
	}
	if got := parseTimestamp([]byte(`42`)); !got.IsZero() {
		t.Errorf("parseTimestamp(42) = %v, want zero", got)
	}
}
