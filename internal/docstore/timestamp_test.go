package docstore_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shotlist/internal/docstore"
)

func TestTimestampUnmarshal(t *testing.T) {
	want := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{name: "rfc3339 string", raw: `"2026-03-14T09:26:53Z"`, want: want},
		{name: "rfc3339 with offset", raw: `"2026-03-14T11:26:53+02:00"`, want: want},
		{name: "epoch milliseconds", raw: `1773480413000`, want: want},
		{name: "seconds nanos object", raw: `{"seconds":1773480413,"nanos":0}`, want: want},
		{name: "seconds only object", raw: `{"seconds":1773480413}`, want: want},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts docstore.Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &ts))
			assert.True(t, ts.Equal(tt.want), "got %v want %v", ts.Time, tt.want)
		})
	}
}

func TestTimestampUnmarshalRejectsGarbage(t *testing.T) {
	var ts docstore.Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"not a time"`), &ts))
	assert.Error(t, json.Unmarshal([]byte(`{"foo":1}`), &ts))
}

func TestTimestampNull(t *testing.T) {
	var ts docstore.Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.True(t, ts.IsZero())

	out, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestTimestampMarshalIsRFC3339(t *testing.T) {
	ts := docstore.At(time.Date(2026, 3, 14, 9, 26, 53, 123_000_000, time.UTC))

	out, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2026-03-14T09:26:53.123Z"`, string(out))
}

func TestTimestampRoundTripIsStable(t *testing.T) {
	ts := docstore.Now()

	first, err := json.Marshal(ts)
	require.NoError(t, err)

	var back docstore.Timestamp
	require.NoError(t, json.Unmarshal(first, &back))

	second, err := json.Marshal(back)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestNormalizeTimestamps(t *testing.T) {
	var doc map[string]any
	raw := `{
		"config": {
			"createdAt": {"seconds": 1773480413, "nanos": 0},
			"updatedAt": "2026-03-14T09:26:53Z",
			"version": 3
		},
		"items": [{"dueAt": {"seconds": 1773480413}}]
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	got := docstore.NormalizeTimestamps(doc).(map[string]any)

	cfg := got["config"].(map[string]any)
	assert.Equal(t, "2026-03-14T09:26:53Z", cfg["createdAt"])
	assert.Equal(t, "2026-03-14T09:26:53Z", cfg["updatedAt"], "already-normal values pass through")
	assert.Equal(t, float64(3), cfg["version"])

	item := got["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "2026-03-14T09:26:53Z", item["dueAt"])
}

func TestNormalizeTimestampsLeavesLookalikesAlone(t *testing.T) {
	var doc map[string]any
	// An object with extra keys alongside "seconds" is not a timestamp.
	raw := `{"stats": {"seconds": 30, "nanos": 0, "label": "duration"}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	got := docstore.NormalizeTimestamps(doc).(map[string]any)
	stats, ok := got["stats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(30), stats["seconds"])
}
