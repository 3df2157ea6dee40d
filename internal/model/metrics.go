package model

// Status classifies a category's usage against its allocation.
type Status string

const (
	StatusUnder Status = "under"
	StatusNear  Status = "near"
	StatusOver  Status = "over"
)

// CategoryMetrics holds reconciled numbers for one category.
type CategoryMetrics struct {
	Key       CategoryKey
	Label     string
	Allocated float64
	Used      float64

	// UsagePercent is unclamped; values above 100 mean the limit was exceeded.
	UsagePercent float64
	// BarPercent is UsagePercent clamped to [0, 100] for bar widths.
	BarPercent float64
	Status     Status
}

// Metrics holds the derived view of one allocation/usage pair.
type Metrics struct {
	AllocatedTotal   float64
	UsedTotal        float64
	Efficiency       int
	SavedLiters      float64
	SavingPercentage int
	Categories       []CategoryMetrics
}

// Over returns the categories whose usage exceeded their allocation.
func (m Metrics) Over() []CategoryMetrics {
	var out []CategoryMetrics
	for _, c := range m.Categories {
		if c.Status == StatusOver {
			out = append(out, c)
		}
	}
	return out
}
