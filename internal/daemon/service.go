// Package daemon provides the long-running background water usage monitor.
package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/waterwallet/wwdash/internal/gateway"
	"github.com/waterwallet/wwdash/internal/model"
	"github.com/waterwallet/wwdash/internal/refresh"
)

// Event types.
const (
	EventSnapshot   = "snapshot"
	EventUsageDelta = "usage_delta"
	EventLeakAlert  = "leak_alert"
)

const maxLeakAlerts = 3

// Refresher runs one fetch cycle. *refresh.Coordinator satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) (refresh.Outcome, error)
}

// Config controls the daemon runtime behavior.
type Config struct {
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	BaseURL      string // reported in status only
	Strict       bool

	Logger    *slog.Logger
	AccessLog io.Writer
}

// CategorySnapshot is one category row in a snapshot payload.
type CategorySnapshot struct {
	Key          string  `json:"key"`
	Label        string  `json:"label"`
	AllocatedL   float64 `json:"allocated_l"`
	UsedL        float64 `json:"used_l"`
	UsagePercent float64 `json:"usage_percent"`
	Status       string  `json:"status"`
}

// Snapshot is a compact allocation/usage state for status and event payloads.
type Snapshot struct {
	At                  time.Time          `json:"at"`
	CycleID             string             `json:"cycle_id,omitempty"`
	AllocatedL          float64            `json:"allocated_l"`
	UsedL               float64            `json:"used_l"`
	SavedL              float64            `json:"saved_l"`
	Efficiency          int                `json:"efficiency"`
	SavingPercentage    int                `json:"saving_percentage"`
	RainwaterHarvestedL float64            `json:"rainwater_harvested_l,omitempty"`
	OverLimit           int                `json:"over_limit"`
	Categories          []CategorySnapshot `json:"categories"`
}

// Delta captures snapshot deltas between polls.
type Delta struct {
	AllocatedL float64 `json:"allocated_l"`
	UsedL      float64 `json:"used_l"`
	SavedL     float64 `json:"saved_l"`
	Efficiency int     `json:"efficiency"`
}

func (d Delta) isZero() bool {
	return d.AllocatedL == 0 &&
		d.UsedL == 0 &&
		d.SavedL == 0 &&
		d.Efficiency == 0
}

// LeakAlert is one sample flagged with a detected leak.
type LeakAlert struct {
	Timestamp    time.Time `json:"timestamp"`
	FlowRate     *float64  `json:"flow_rate,omitempty"`
	PipePressure *float64  `json:"pipe_pressure,omitempty"`
}

// Event is emitted whenever the committed pair changes or a leak appears.
type Event struct {
	Seq       int64       `json:"seq"`
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Snapshot  Snapshot    `json:"snapshot"`
	Delta     Delta       `json:"delta"`
	Leaks     []LeakAlert `json:"leaks,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	BaseURL         string    `json:"base_url"`
	Strict          bool      `json:"strict"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	src     Refresher
	log     *slog.Logger
	metrics *metrics

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	lastLeakAt  time.Time
	nextSeq     int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service polling src.
func New(cfg Config, src Refresher) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8788"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.AccessLog == nil {
		cfg.AccessLog = io.Discard
	}

	return &Service{
		cfg:       cfg,
		src:       src,
		log:       cfg.Logger.With("component", "daemon"),
		metrics:   newMetrics(),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the HTTP API with access logging, CORS and panic recovery.
func (s *Service) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/v1/events", s.handleEvents).Methods(http.MethodGet)
	r.HandleFunc("/v1/stream", s.handleStream).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	var h http.Handler = handlers.LoggingHandler(s.cfg.AccessLog, r)
	h = handlers.CORS(handlers.AllowedMethods([]string{http.MethodGet}))(h)
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(h)
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	out, err := s.src.Refresh(ctx)
	if errors.Is(err, refresh.ErrInFlight) {
		s.log.Debug("poll skipped, refresh in flight")
		return
	}
	if errors.Is(err, refresh.ErrClosed) || ctx.Err() != nil {
		return
	}
	s.metrics.pollDuration.Observe(out.Duration.Seconds())

	now := time.Now()
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = now
		s.pollCount++
		s.mu.Unlock()
		s.metrics.pollErrors.WithLabelValues(errorKind(err)).Inc()
		s.log.Warn("poll failed", "cycle", out.CycleID, "error", err)
		return
	}

	snap := snapshotFromRefresh(out.Snapshot)
	s.metrics.observe(out.Snapshot.Metrics)

	var pending []Event

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	if !prevExists {
		pending = append(pending, Event{Type: EventSnapshot, Timestamp: now, Snapshot: snap})
	} else if delta := diffSnapshots(prev, snap); !delta.isZero() {
		pending = append(pending, Event{Type: EventUsageDelta, Timestamp: now, Snapshot: snap, Delta: delta})
	}

	leaks := newLeaks(out.Snapshot.Samples, s.lastLeakAt, prevExists)
	if len(leaks) > 0 {
		for _, l := range leaks {
			if l.Timestamp.After(s.lastLeakAt) {
				s.lastLeakAt = l.Timestamp
			}
		}
		pending = append(pending, Event{Type: EventLeakAlert, Timestamp: now, Snapshot: snap, Leaks: leaks})
	}
	s.mu.Unlock()

	if len(leaks) > 0 {
		s.metrics.leakAlerts.Add(float64(len(leaks)))
		s.log.Warn("leak detected", "samples", len(leaks))
	}
	for _, ev := range pending {
		s.publishEvent(ev)
	}
}

// newLeaks returns up to maxLeakAlerts flagged samples, most recent first.
// Once seeded, only samples newer than since are reported, so samples
// without a timestamp surface on the first poll only.
func newLeaks(samples []model.Sample, since time.Time, seeded bool) []LeakAlert {
	var out []LeakAlert
	for _, smp := range gateway.Leaks(samples) {
		if seeded && !smp.Timestamp.After(since) {
			continue
		}
		out = append(out, LeakAlert{
			Timestamp:    smp.Timestamp,
			FlowRate:     smp.FlowRate,
			PipePressure: smp.PipePressure,
		})
		if len(out) == maxLeakAlerts {
			break
		}
	}
	return out
}

func snapshotFromRefresh(rs refresh.Snapshot) Snapshot {
	m := rs.Metrics
	snap := Snapshot{
		At:                  rs.FetchedAt,
		CycleID:             rs.CycleID,
		AllocatedL:          m.AllocatedTotal,
		UsedL:               m.UsedTotal,
		SavedL:              m.SavedLiters,
		Efficiency:          m.Efficiency,
		SavingPercentage:    m.SavingPercentage,
		RainwaterHarvestedL: rs.Allocation.RainwaterHarvested,
		OverLimit:           len(m.Over()),
		Categories:          make([]CategorySnapshot, 0, len(m.Categories)),
	}
	for _, c := range m.Categories {
		snap.Categories = append(snap.Categories, CategorySnapshot{
			Key:          string(c.Key),
			Label:        c.Label,
			AllocatedL:   c.Allocated,
			UsedL:        c.Used,
			UsagePercent: c.UsagePercent,
			Status:       string(c.Status),
		})
	}
	return snap
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		AllocatedL: curr.AllocatedL - prev.AllocatedL,
		UsedL:      curr.UsedL - prev.UsedL,
		SavedL:     curr.SavedL - prev.SavedL,
		Efficiency: curr.Efficiency - prev.Efficiency,
	}
}

func errorKind(err error) string {
	if k := gateway.KindOf(err); k != 0 {
		return k.String()
	}
	return "other"
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.nextSeq++
	ev.Seq = s.nextSeq
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		BaseURL:         s.cfg.BaseURL,
		Strict:          s.cfg.Strict,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, "status", s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	s.writeJSON(w, "events", events)
}

// writeJSON encodes v before touching the response so an unencodable
// value becomes a 500 instead of an empty 200.
func (s *Service) writeJSON(w http.ResponseWriter, what string, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.log.Error("encode response failed", "endpoint", what, "error", err)
		http.Error(w, fmt.Sprintf("encode %s: %v", what, err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      EventSnapshot,
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	s.writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			s.writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func (s *Service) writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("dropping stream event", "type", ev.Type, "seq", ev.Seq, "error", err)
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
