package gateway

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/waterwallet/wwdash/internal/model"
)

// parseLiters defensively parses a quantity that may arrive as a JSON
// number, a numeric string ("12.5", "12.5L", "12.5 L"), or null.
// ok is false when the field is absent or not numeric. Negative and
// non-finite values are coerced to 0 with ok=true.
func parseLiters(raw json.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, false
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return sanitize(f), true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "L"), "l"))
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return sanitize(v), true
		}
	}

	return 0, false
}

// parseReading is parseLiters for optional sensor readings: nil when absent.
func parseReading(raw json.RawMessage) *float64 {
	v, ok := parseLiters(raw)
	if !ok {
		return nil
	}
	return &v
}

func sanitize(v float64) float64 {
	return model.CleanLiters(v)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// normalizeKey maps wire spellings onto category keys: "Kitchen_L" -> "kitchen".
func normalizeKey(k string) model.CategoryKey {
	k = strings.ToLower(strings.TrimSpace(k))
	k = strings.TrimSuffix(k, "_l")
	return model.CategoryKey(k)
}

// parseFlag reads a boolean that may arrive as true/false, 0/1, or "true"/"false".
func parseFlag(raw json.RawMessage) bool {
	if isNull(raw) {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f != 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		b, _ := strconv.ParseBool(strings.TrimSpace(s))
		return b
	}
	return false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.RFC1123Z,
}

// parseTimestamp accepts RFC 3339, naive ISO 8601 (read as UTC) and the
// RFC 1123 form Flask emits for datetimes. Unparseable values yield zero time.
func parseTimestamp(raw json.RawMessage) time.Time {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// recordFromFields reads every category-looking field into a record.
// Unknown keys are kept; the metrics engine ignores keys outside the registry.
// When both "kitchen" and "Kitchen_L" are present the bare key wins.
func recordFromFields(fields map[string]json.RawMessage) model.Record {
	rec := model.NewRecord()
	exact := make(map[model.CategoryKey]bool)
	for k, raw := range fields {
		lower := strings.ToLower(strings.TrimSpace(k))
		if _, skip := nonCategoryFields[lower]; skip {
			continue
		}
		v, ok := parseLiters(raw)
		if !ok {
			continue
		}
		key := normalizeKey(k)
		bare := string(key) == lower
		if exact[key] && !bare {
			continue
		}
		rec.Set(key, v)
		if bare {
			exact[key] = true
		}
	}
	return rec
}
