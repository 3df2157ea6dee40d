package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/waterwallet/wwdash/internal/gateway"
	"github.com/waterwallet/wwdash/internal/model"
	"github.com/waterwallet/wwdash/internal/refresh"
)

type fakeRefresher struct {
	mu   sync.Mutex
	outs []refresh.Outcome
	errs []error
}

func (f *fakeRefresher) Refresh(context.Context) (refresh.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.outs) == 0 {
		return refresh.Outcome{}, refresh.ErrInFlight
	}
	out, err := f.outs[0], f.errs[0]
	f.outs, f.errs = f.outs[1:], f.errs[1:]
	return out, err
}

func (f *fakeRefresher) push(out refresh.Outcome, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outs = append(f.outs, out)
	f.errs = append(f.errs, err)
}

func committed(used float64, samples ...model.Sample) refresh.Outcome {
	return refresh.Outcome{
		CycleID:   "cycle",
		Committed: true,
		Snapshot: refresh.Snapshot{
			CycleID:   "cycle",
			FetchedAt: time.Now(),
			Samples:   samples,
			Metrics: model.Metrics{
				AllocatedTotal: 300,
				UsedTotal:      used,
				SavedLiters:    300 - used,
				Efficiency:     int(math.Floor(used/300*100 + 0.5)),
				Categories: []model.CategoryMetrics{
					{Key: "kitchen", Label: "Kitchen", Allocated: 100, Used: used / 2, Status: model.StatusUnder},
				},
			},
		},
	}
}

func leak(at time.Time) model.Sample {
	flow := 9.5
	return model.Sample{Record: model.NewRecord(), Timestamp: at, FlowRate: &flow, LeakDetected: true}
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{AllocatedL: 300, UsedL: 200, SavedL: 100, Efficiency: 67}
	curr := Snapshot{AllocatedL: 300, UsedL: 220, SavedL: 80, Efficiency: 73}

	delta := diffSnapshots(prev, curr)
	if delta.UsedL != 20 {
		t.Fatalf("UsedL delta = %v, want 20", delta.UsedL)
	}
	if delta.SavedL != -20 {
		t.Fatalf("SavedL delta = %v, want -20", delta.SavedL)
	}
	if delta.Efficiency != 6 {
		t.Fatalf("Efficiency delta = %d, want 6", delta.Efficiency)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffSnapshots(curr, curr).isZero() {
		t.Fatal("identical snapshots produced a non-zero delta")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{EventsBuffer: 2}, &fakeRefresher{})

	s.publishEvent(Event{Type: EventSnapshot})
	s.publishEvent(Event{Type: EventUsageDelta})
	s.publishEvent(Event{Type: EventLeakAlert})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].Seq != 2 || s.events[1].Seq != 3 {
		t.Fatalf("events ring contains seqs [%d, %d], want [2, 3]", s.events[0].Seq, s.events[1].Seq)
	}
	if s.events[0].ID == "" || s.events[0].ID == s.events[1].ID {
		t.Fatal("events missing unique IDs")
	}
}

func TestPollEmitsSnapshotThenDelta(t *testing.T) {
	src := &fakeRefresher{}
	src.push(committed(200), nil)
	src.push(committed(200), nil)
	src.push(committed(220), nil)
	s := New(Config{}, src)

	ctx := context.Background()
	s.pollOnce(ctx)
	s.pollOnce(ctx)
	s.pollOnce(ctx)
	s.pollOnce(ctx) // in flight: skipped

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pollCount != 3 {
		t.Fatalf("pollCount = %d, want 3", s.pollCount)
	}
	if len(s.events) != 2 {
		t.Fatalf("events = %d, want 2", len(s.events))
	}
	if s.events[0].Type != EventSnapshot || s.events[1].Type != EventUsageDelta {
		t.Fatalf("event types = [%s, %s]", s.events[0].Type, s.events[1].Type)
	}
	if s.events[1].Delta.UsedL != 20 {
		t.Fatalf("delta UsedL = %v, want 20", s.events[1].Delta.UsedL)
	}
}

func TestPollRecordsError(t *testing.T) {
	src := &fakeRefresher{}
	src.push(committed(200), nil)
	src.push(refresh.Outcome{}, &gateway.FetchError{Kind: gateway.KindNetwork, Endpoint: "/allocation/predict", Err: errors.New("refused")})
	s := New(Config{}, src)

	s.pollOnce(context.Background())
	s.pollOnce(context.Background())

	st := s.snapshotStatus()
	if !strings.Contains(st.LastError, "refused") {
		t.Fatalf("LastError = %q", st.LastError)
	}
	if st.Summary.UsedL != 200 {
		t.Fatalf("summary replaced after failure: UsedL = %v", st.Summary.UsedL)
	}
}

func TestLeakAlertsOnlyForNewSamples(t *testing.T) {
	t0 := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	src := &fakeRefresher{}
	src.push(committed(200, leak(t0)), nil)
	src.push(committed(200, leak(t0)), nil)
	src.push(committed(200, leak(t0.Add(time.Hour)), leak(t0)), nil)
	s := New(Config{}, src)

	for i := 0; i < 3; i++ {
		s.pollOnce(context.Background())
	}

	var alerts []Event
	s.mu.RLock()
	for _, ev := range s.events {
		if ev.Type == EventLeakAlert {
			alerts = append(alerts, ev)
		}
	}
	s.mu.RUnlock()

	if len(alerts) != 2 {
		t.Fatalf("leak alerts = %d, want 2", len(alerts))
	}
	if len(alerts[1].Leaks) != 1 || !alerts[1].Leaks[0].Timestamp.Equal(t0.Add(time.Hour)) {
		t.Fatalf("second alert = %+v, want only the new sample", alerts[1].Leaks)
	}
}

func TestNewLeaksCapped(t *testing.T) {
	t0 := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	var samples []model.Sample
	for i := 0; i < 5; i++ {
		samples = append(samples, leak(t0.Add(-time.Duration(i)*time.Hour)))
	}
	if got := newLeaks(samples, time.Time{}, false); len(got) != maxLeakAlerts {
		t.Fatalf("leaks = %d, want %d", len(got), maxLeakAlerts)
	}
}

func TestHTTPEndpoints(t *testing.T) {
	src := &fakeRefresher{}
	src.push(committed(220), nil)
	s := New(Config{BaseURL: "http://localhost:8081"}, src)
	s.pollOnce(context.Background())

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/v1/status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var st Status
	err = json.NewDecoder(resp.Body).Decode(&st)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Summary.UsedL != 220 || st.Summary.Efficiency != 73 {
		t.Fatalf("summary = %+v", st.Summary)
	}
	if len(st.Summary.Categories) != 1 || st.Summary.Categories[0].Key != "kitchen" {
		t.Fatalf("categories = %+v", st.Summary.Categories)
	}

	resp, err = http.Get(srv.URL + "/v1/events")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	var events []Event
	err = json.NewDecoder(resp.Body).Decode(&events)
	_ = resp.Body.Close()
	if err != nil || len(events) != 1 {
		t.Fatalf("events = %d (%v), want 1", len(events), err)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), `wwdash_used_liters{category="kitchen"} 110`) {
		t.Fatalf("metrics output missing kitchen gauge:\n%s", body)
	}

	resp, err = http.Post(srv.URL+"/v1/status", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d, want 405", resp.StatusCode)
	}
}

func TestUnencodableSnapshotIsServerError(t *testing.T) {
	var logs strings.Builder
	src := &fakeRefresher{}
	src.push(committed(math.NaN()), nil)
	s := New(Config{Logger: slog.New(slog.NewTextHandler(&logs, nil))}, src)
	s.pollOnce(context.Background())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status code = %d, want 500 (body %q)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "encode status") {
		t.Errorf("body = %q, want the encode error", rec.Body.String())
	}

	sse := httptest.NewRecorder()
	s.writeSSE(sse, Event{Type: EventSnapshot, Snapshot: Snapshot{UsedL: math.Inf(1)}})
	if sse.Body.Len() != 0 {
		t.Errorf("unencodable event written: %q", sse.Body.String())
	}
	if !strings.Contains(logs.String(), "dropping stream event") {
		t.Errorf("dropped event not logged:\n%s", logs.String())
	}
}
