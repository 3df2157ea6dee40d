// Package refresh runs fetch cycles and owns the current allocation/usage pair.
package refresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/waterwallet/wwdash/internal/category"
	"github.com/waterwallet/wwdash/internal/gateway"
	"github.com/waterwallet/wwdash/internal/metrics"
	"github.com/waterwallet/wwdash/internal/model"
)

var (
	// ErrInFlight is returned when a refresh is requested while one is outstanding.
	ErrInFlight = errors.New("refresh: already in flight")
	// ErrClosed is returned once the coordinator has been closed.
	ErrClosed = errors.New("refresh: coordinator closed")
)

// Source is the subset of the gateway a coordinator reads from.
type Source interface {
	FetchAllocationDetail(ctx context.Context) (model.Allocation, error)
	FetchUsageHistory(ctx context.Context) ([]model.Sample, error)
}

var _ Source = (*gateway.Client)(nil)

// Snapshot is one committed allocation/usage pair and its derived metrics.
type Snapshot struct {
	CycleID    string
	FetchedAt  time.Time
	Allocation model.Allocation
	Usage      model.Record
	Samples    []model.Sample
	Metrics    model.Metrics
}

// IsZero reports whether nothing has been committed yet.
func (s Snapshot) IsZero() bool {
	return s.FetchedAt.IsZero()
}

// Outcome describes one refresh cycle.
type Outcome struct {
	CycleID   string
	Snapshot  Snapshot // committed pair after the cycle, new or retained
	Committed bool
	Duration  time.Duration

	// Set only when the cycle failed; the half that did arrive is reported
	// here and never committed.
	Err               error
	AllocationErr     error
	UsageErr          error
	PartialAllocation *model.Allocation
	PartialSamples    []model.Sample
}

// Coordinator fetches allocation and usage concurrently and commits them as a pair.
type Coordinator struct {
	src Source
	reg category.Registry
	log *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	inFlight atomic.Bool

	mu        sync.RWMutex
	closed    bool
	snap      Snapshot
	overrides map[model.CategoryKey]float64
}

// New returns a coordinator reading from src. A nil logger discards output.
func New(src Source, reg category.Registry, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		src:    src,
		reg:    reg,
		log:    logger.With("component", "refresh"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Registry returns the category registry driving every pass.
func (c *Coordinator) Registry() category.Registry {
	return c.reg
}

// Snapshot returns the last committed pair.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// SetOverrides replaces the local allocation overrides and recomputes the
// committed metrics. Overrides never leave the process.
func (c *Coordinator) SetOverrides(overrides map[model.CategoryKey]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.overrides = make(map[model.CategoryKey]float64, len(overrides))
	for k, v := range overrides {
		c.overrides[k] = v
	}
	if !c.snap.IsZero() {
		c.snap.Metrics = c.computeLocked(c.snap.Allocation.Record, c.snap.Usage)
	}
}

// Refresh runs one cycle. It returns ErrInFlight without fetching when a
// cycle is already outstanding and ErrClosed after Close. Otherwise the
// returned error equals Outcome.Err.
func (c *Coordinator) Refresh(ctx context.Context) (Outcome, error) {
	if c.isClosed() {
		return Outcome{}, ErrClosed
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return Outcome{}, ErrInFlight
	}
	defer c.inFlight.Store(false)

	id := uuid.NewString()
	start := time.Now()
	log := c.log.With("cycle", id)
	log.Debug("refresh started")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	var (
		wg       sync.WaitGroup
		alloc    model.Allocation
		samples  []model.Sample
		allocErr error
		usageErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		alloc, allocErr = c.src.FetchAllocationDetail(ctx)
	}()
	go func() {
		defer wg.Done()
		samples, usageErr = c.src.FetchUsageHistory(ctx)
	}()
	wg.Wait()

	out := Outcome{CycleID: id, Duration: time.Since(start)}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		log.Debug("refresh discarded after close")
		return Outcome{CycleID: id}, ErrClosed
	}

	if allocErr != nil || usageErr != nil {
		out.AllocationErr = allocErr
		out.UsageErr = usageErr
		out.Err = errors.Join(allocErr, usageErr)
		if allocErr == nil {
			a := alloc
			out.PartialAllocation = &a
		}
		if usageErr == nil {
			out.PartialSamples = samples
		}
		out.Snapshot = c.snap
		log.Warn("refresh failed, keeping previous pair", "error", out.Err, "duration", out.Duration)
		return out, out.Err
	}

	if alloc.Values == nil {
		alloc.Record = model.NewRecord()
	}
	usage := gateway.Latest(samples)
	c.snap = Snapshot{
		CycleID:    id,
		FetchedAt:  time.Now(),
		Allocation: alloc,
		Usage:      usage,
		Samples:    samples,
		Metrics:    c.computeLocked(alloc.Record, usage),
	}
	out.Snapshot = c.snap
	out.Committed = true

	log.Info("refresh committed",
		"allocated_l", c.snap.Metrics.AllocatedTotal,
		"used_l", c.snap.Metrics.UsedTotal,
		"efficiency", c.snap.Metrics.Efficiency,
		"duration", out.Duration,
	)
	return out, nil
}

// Close cancels any in-flight cycle. Later results are discarded.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
}

func (c *Coordinator) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Coordinator) computeLocked(alloc, usage model.Record) model.Metrics {
	return metrics.Compute(ApplyOverrides(alloc, c.overrides), usage, c.reg)
}

// ApplyOverrides returns a copy of alloc with the override liters in place.
// An override invalidates the server total so the sum is recomputed.
func ApplyOverrides(alloc model.Record, overrides map[model.CategoryKey]float64) model.Record {
	if len(overrides) == 0 {
		return alloc
	}
	out := alloc.Clone()
	for k, v := range overrides {
		out.Set(k, model.CleanLiters(v))
	}
	out.Total = nil
	return out
}
