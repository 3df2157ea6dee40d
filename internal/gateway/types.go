package gateway

import "encoding/json"

// allocationResponse is the raw body of GET /allocation/predict.
type allocationResponse struct {
	Allocations        json.RawMessage `json:"allocations"`
	PredictedTotal     json.RawMessage `json:"predicted_total_L"`
	RainwaterHarvested json.RawMessage `json:"rainwater_harvested_L"`
}

// usageResponse is the raw body of GET /waterUsage/detail.
// Entries are kept raw so each field can be parsed defensively.
type usageResponse struct {
	Data json.RawMessage `json:"data"`
}

// Wire field names inside a usage entry that are not categories.
const (
	fieldTotal        = "total"
	fieldTimestamp    = "timestamp"
	fieldFlowRate     = "flow_rate"
	fieldPipePressure = "pipe_pressure"
	fieldLeakDetected = "leak_detected"
)

// nonCategoryFields lists entry keys that must not be read as liters.
var nonCategoryFields = map[string]struct{}{
	fieldTotal:          {},
	fieldTimestamp:      {},
	fieldFlowRate:       {},
	fieldPipePressure:   {},
	fieldLeakDetected:   {},
	"total_consumption": {},
	"prediction":        {},
	"id":                {},
}
