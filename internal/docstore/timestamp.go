package docstore

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Timestamp is the uniform in-memory time representation. Stored documents
// may carry times in any of the encodings older clients wrote: RFC 3339
// strings, epoch milliseconds, or {seconds, nanos} objects. Unmarshal
// accepts all three; Marshal always emits RFC 3339.
type Timestamp struct {
	time.Time
}

// Now returns the current time as a Timestamp, truncated to millisecond
// precision so round-trips through the store are stable.
func Now() Timestamp {
	return Timestamp{time.Now().UTC().Truncate(time.Millisecond)}
}

// At wraps a time.Time.
func At(t time.Time) Timestamp {
	return Timestamp{t.UTC().Truncate(time.Millisecond)}
}

// MarshalJSON emits RFC 3339 with sub-second precision, or null for the
// zero value.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts RFC 3339 strings, epoch milliseconds and
// {seconds, nanos} objects.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		t.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("docstore: invalid timestamp string %q: %w", s, err)
		}
		t.Time = parsed.UTC()
		return nil
	}

	var millis float64
	if err := json.Unmarshal(b, &millis); err == nil {
		sec, frac := math.Modf(millis / 1000)
		t.Time = time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
		return nil
	}

	var obj struct {
		Seconds int64 `json:"seconds"`
		Nanos   int64 `json:"nanos"`
	}
	if err := json.Unmarshal(b, &obj); err == nil && (obj.Seconds != 0 || obj.Nanos != 0) {
		t.Time = time.Unix(obj.Seconds, obj.Nanos).UTC()
		return nil
	}

	return fmt.Errorf("docstore: unrecognized timestamp encoding %s", string(b))
}

// NormalizeTimestamps walks a decoded document and rewrites {seconds, nanos}
// objects into RFC 3339 strings. It runs before every defensive parse so the
// typed decode above only ever sees the uniform encodings.
func NormalizeTimestamps(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if ts, ok := timestampObject(t); ok {
			return ts.UTC().Format(time.RFC3339Nano)
		}
		for k, val := range t {
			t[k] = NormalizeTimestamps(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = NormalizeTimestamps(val)
		}
		return t
	default:
		return v
	}
}

// timestampObject recognizes {seconds, nanos} maps, tolerating a missing
// nanos key but nothing else.
func timestampObject(m map[string]any) (time.Time, bool) {
	sec, ok := m["seconds"].(float64)
	if !ok {
		return time.Time{}, false
	}
	nanos, _ := m["nanos"].(float64)
	if len(m) > 2 {
		return time.Time{}, false
	}
	if _, hasNanos := m["nanos"]; !hasNanos && len(m) != 1 {
		return time.Time{}, false
	}
	return time.Unix(int64(sec), int64(nanos)), true
}
