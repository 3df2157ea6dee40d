// Package model defines domain types for wwdash allocation and usage data.
package model

import (
	"math"
	"time"
)

// CategoryKey identifies a usage category (kitchen, bathroom, ...).
type CategoryKey string

// Record holds per-category liters for one allocation or usage reading.
// Total is nil when the service did not supply one.
type Record struct {
	Values map[CategoryKey]float64
	Total  *float64
}

// NewRecord returns an empty record ready for writes.
func NewRecord() Record {
	return Record{Values: make(map[CategoryKey]float64)}
}

// Get returns the liters recorded for key, or 0 when absent.
func (r Record) Get(key CategoryKey) float64 {
	if r.Values == nil {
		return 0
	}
	return r.Values[key]
}

// Set stores liters for key, allocating the map on first use.
func (r *Record) Set(key CategoryKey, liters float64) {
	if r.Values == nil {
		r.Values = make(map[CategoryKey]float64)
	}
	r.Values[key] = liters
}

// CleanLiters coerces negative, NaN and infinite liters to 0.
func CleanLiters(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// SetTotal marks the server-supplied total as authoritative.
func (r *Record) SetTotal(liters float64) {
	r.Total = &liters
}

// IsZero reports whether the record carries no non-zero liters at all.
func (r Record) IsZero() bool {
	if r.Total != nil && *r.Total != 0 {
		return false
	}
	for _, v := range r.Values {
		if v != 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (r Record) Clone() Record {
	out := Record{Values: make(map[CategoryKey]float64, len(r.Values))}
	for k, v := range r.Values {
		out.Values[k] = v
	}
	if r.Total != nil {
		out.SetTotal(*r.Total)
	}
	return out
}

// Sample is one entry of the usage-detail list, most recent first on the wire.
type Sample struct {
	Record
	Timestamp    time.Time
	FlowRate     *float64 // L/min
	PipePressure *float64 // PSI
	LeakDetected bool
}

// Allocation is an allocation record plus the extras the predict endpoint reports.
type Allocation struct {
	Record
	RainwaterHarvested float64
}
