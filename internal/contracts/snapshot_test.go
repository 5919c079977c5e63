package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardSnapshot_Find(t *testing.T) {
	snap := &DashboardSnapshot{
		Projects: []ProjectEntry{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}},
	}

	entry, ok := snap.Find(2)
	require.True(t, ok)
	assert.Equal(t, "B", entry.Name)

	_, ok = snap.Find(3)
	assert.False(t, ok)
}

func TestDashboardSnapshot_CountByState(t *testing.T) {
	snap := &DashboardSnapshot{
		Projects: []ProjectEntry{
			{ID: 1, State: StateOK},
			{ID: 2, State: StateError},
			{ID: 3, State: StateOK},
		},
	}

	counts := snap.CountByState()
	assert.Equal(t, 2, counts[StateOK])
	assert.Equal(t, 1, counts[StateError])
	assert.Equal(t, 0, counts[StateNoData])
}

func TestProjectEntry_JSONShape(t *testing.T) {
	entry := ProjectEntry{
		ID:           7,
		Name:         "Alpha",
		State:        StateNoData,
		Source:       SourceNone,
		Metrics:      MetricSet{},
		WinRateBasis: WinRateUnavailable,
		EquityCurve:  []EquityPoint{},
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, float64(7), raw["id"])
	assert.Equal(t, "none", raw["source"])
	assert.Equal(t, "no_data", raw["state"])
	assert.Nil(t, raw["error"], "error must be present and null")
	assert.Contains(t, raw, "error")
	assert.Equal(t, []interface{}{}, raw["equity_curve"])
	assert.NotContains(t, raw, "started_at")
}

func TestEquityPoint_Time(t *testing.T) {
	p := EquityPoint{Timestamp: 1700000000, Value: 1}
	assert.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC), p.Time())
}

func TestProjectEntry_Errored(t *testing.T) {
	msg := "run timeout"
	assert.True(t, (&ProjectEntry{Error: &msg}).Errored())
	assert.False(t, (&ProjectEntry{}).Errored())
}
