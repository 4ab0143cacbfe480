package gateway

import (
	"encoding/json"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// timestampStrategies is tried in order; the first hit wins. Keeping the
// chain as an explicit list makes the per-resource quirks visible in one
// place instead of scattered type switches.
var timestampStrategies = []func(*Record) (time.Time, bool){
	fromCreatedAt,
	fromTimeField,
	fromRawBody,
}

// ResolveCreatedAt extracts the creation instant of a raw gateway record.
// ok=false means no strategy produced a usable instant; callers skip the
// record rather than fail.
func ResolveCreatedAt(r *Record) (time.Time, bool) {
	for _, strategy := range timestampStrategies {
		if ts, ok := strategy(r); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

func fromCreatedAt(r *Record) (time.Time, bool) {
	if r.CreatedAt <= 0 {
		return time.Time{}, false
	}
	return time.Unix(r.CreatedAt, 0).UTC(), true
}

func fromTimeField(r *Record) (time.Time, bool) {
	if r.Time == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(timeLayout, r.Time)
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}

// fromRawBody is the last resort for resource kinds whose wrapper hides the
// timestamp: scan the captured body for a known date key.
func fromRawBody(r *Record) (time.Time, bool) {
	if len(r.raw) == 0 {
		return time.Time{}, false
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(r.raw, &body); err != nil {
		return time.Time{}, false
	}
	for _, key := range []string{"date", "created_at", "validity"} {
		raw, ok := body[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			for _, layout := range []string{timeLayout, "2006-01-02"} {
				if ts, err := time.Parse(layout, s); err == nil {
					return ts.UTC(), true
				}
			}
		}
		var n int64
		if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
			return time.Unix(n, 0).UTC(), true
		}
	}
	return time.Time{}, false
}
