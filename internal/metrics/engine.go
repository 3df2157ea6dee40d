// Package metrics reconciles allocation and usage records into derived metrics.
package metrics

import (
	"math"

	"github.com/waterwallet/wwdash/internal/category"
	"github.com/waterwallet/wwdash/internal/model"
)

// Usage-percent thresholds for classification and status bands.
const (
	NearThreshold = 80.0
	OverThreshold = 100.0
)

// Compute derives totals, efficiency, savings, and per-category status
// from an allocation/usage pair. It never fails: absent keys read as 0
// and a zero allocation yields zero percentages.
func Compute(alloc, usage model.Record, reg category.Registry) model.Metrics {
	cats := reg.Categories()
	m := model.Metrics{
		Categories: make([]model.CategoryMetrics, 0, len(cats)),
	}

	var allocSum, usedSum float64
	for _, c := range cats {
		a := alloc.Get(c.Key)
		u := usage.Get(c.Key)
		allocSum += a
		usedSum += u

		pct := Percent(u, a)
		m.Categories = append(m.Categories, model.CategoryMetrics{
			Key:          c.Key,
			Label:        c.Label,
			Allocated:    a,
			Used:         u,
			UsagePercent: pct,
			BarPercent:   Clamp(pct, 0, 100),
			Status:       Classify(pct),
		})
	}

	m.AllocatedTotal = total(alloc, allocSum)
	m.UsedTotal = total(usage, usedSum)
	m.SavedLiters = m.AllocatedTotal - m.UsedTotal

	if m.AllocatedTotal != 0 {
		m.Efficiency = RoundHalfUp(m.UsedTotal / m.AllocatedTotal * 100)
		m.SavingPercentage = RoundHalfUp(m.SavedLiters / m.AllocatedTotal * 100)
	}

	return m
}

// Percent returns used as a percentage of allocated, 0 when allocated is 0.
// Multiplying first keeps whole-number results exact (120 of 150 is 80, not 80.00000000000001).
func Percent(used, allocated float64) float64 {
	if allocated == 0 {
		return 0
	}
	if scaled := used * 100; !math.IsInf(scaled, 0) {
		return scaled / allocated
	}
	return used / allocated * 100
}

// Classify maps a usage percentage to under (<=80), near (<=100) or over.
func Classify(pct float64) model.Status {
	switch {
	case pct > OverThreshold:
		return model.StatusOver
	case pct > NearThreshold:
		return model.StatusNear
	default:
		return model.StatusUnder
	}
}

// RoundHalfUp rounds to the nearest integer with .5 going toward +Inf.
func RoundHalfUp(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Floor(v + 0.5))
}

// Clamp bounds v to [lo, hi]. NaN clamps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Total returns the record's server total when present, else the sum of
// its registry categories.
func Total(r model.Record, reg category.Registry) float64 {
	var sum float64
	for _, k := range reg.Keys() {
		sum += r.Get(k)
	}
	return total(r, sum)
}

func total(r model.Record, sum float64) float64 {
	if r.Total != nil {
		return *r.Total
	}
	return sum
}
