// Package present maps records and metrics into chart-ready shapes.
package present

import (
	"github.com/waterwallet/wwdash/internal/category"
	"github.com/waterwallet/wwdash/internal/metrics"
	"github.com/waterwallet/wwdash/internal/model"
)

// Series is a labelled value list, one entry per category in registry order.
type Series struct {
	Labels []string
	Values []float64
}

// Len returns the number of points in the series.
func (s Series) Len() int {
	return len(s.Values)
}

// Max returns the largest value, or 0 for an empty series.
func (s Series) Max() float64 {
	peak := 0.0
	for _, v := range s.Values {
		if v > peak {
			peak = v
		}
	}
	return peak
}

// ChartSeries maps a record onto the registry. It never reorders or
// filters: keys missing from the record produce 0.
func ChartSeries(rec model.Record, reg category.Registry) Series {
	cats := reg.Categories()
	s := Series{
		Labels: make([]string, len(cats)),
		Values: make([]float64, len(cats)),
	}
	for i, c := range cats {
		s.Labels[i] = c.Label
		s.Values[i] = rec.Get(c.Key)
	}
	return s
}

// UsageSeries splits computed metrics into allocated and used series.
func UsageSeries(m model.Metrics) (allocated, used Series) {
	n := len(m.Categories)
	allocated = Series{Labels: make([]string, n), Values: make([]float64, n)}
	used = Series{Labels: make([]string, n), Values: make([]float64, n)}
	for i, c := range m.Categories {
		allocated.Labels[i] = c.Label
		allocated.Values[i] = c.Allocated
		used.Labels[i] = c.Label
		used.Values[i] = c.Used
	}
	return allocated, used
}

// Share is one category's slice of a record's total, for pie-style views.
type Share struct {
	Key     model.CategoryKey
	Label   string
	Liters  float64
	Percent float64
	Color   string
}

// Shares returns each category's percentage of the summed category liters.
// All percentages are 0 when the sum is 0.
func Shares(rec model.Record, reg category.Registry) []Share {
	cats := reg.Categories()
	var sum float64
	for _, c := range cats {
		sum += rec.Get(c.Key)
	}

	out := make([]Share, len(cats))
	for i, c := range cats {
		v := rec.Get(c.Key)
		out[i] = Share{
			Key:     c.Key,
			Label:   c.Label,
			Liters:  v,
			Percent: metrics.Percent(v, sum),
			Color:   PaletteColor(i),
		}
	}
	return out
}

// Band is a coarse status for progress indicators.
type Band int

const (
	BandGood Band = iota
	BandApproachingLimit
	BandExceedingLimit
)

func (b Band) String() string {
	switch b {
	case BandApproachingLimit:
		return "Approaching Limit"
	case BandExceedingLimit:
		return "Exceeding Limit"
	default:
		return "Good"
	}
}

// StatusBand maps an unclamped usage percentage onto a band using the
// same 80/100 thresholds as metrics.Classify.
func StatusBand(pct float64) Band {
	switch metrics.Classify(pct) {
	case model.StatusOver:
		return BandExceedingLimit
	case model.StatusNear:
		return BandApproachingLimit
	default:
		return BandGood
	}
}
