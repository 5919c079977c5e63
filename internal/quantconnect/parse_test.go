package quantconnect

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatistic(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{"12.5%", 12.5, true},
		{"-3.2 %", -3.2, true},
		{"$1,234.56", 1234.56, true},
		{" 0.75 ", 0.75, true},
		{"42", 42, true},
		{"", 0, false},
		{"%", 0, false},
		{"NaN", 0, false},
		{"Infinity", 0, false},
		{"-Inf", 0, false},
		{"n/a", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseStatistic(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestStatisticsUnmarshal(t *testing.T) {
	var stats Statistics
	require.NoError(t, json.Unmarshal([]byte(`{"Sharpe Ratio": "1.5", "Total Orders": 12, "Alpha": null}`), &stats))

	assert.Equal(t, "1.5", stats["Sharpe Ratio"])
	assert.Equal(t, "12", stats["Total Orders"])
	_, ok := stats["Alpha"]
	assert.False(t, ok)

	require.NotNil(t, stats.Int("Total Trades", "Total Orders"))
	assert.Equal(t, 12, *stats.Int("Total Trades", "Total Orders"))
	assert.Nil(t, stats.Number("Drawdown"))
}

func TestStatisticsNumberFallsThrough(t *testing.T) {
	stats := Statistics{"Net Profit": "", "Total Net Profit": "7.5%"}
	v := stats.Number("Net Profit", "Total Net Profit")
	require.NotNil(t, v)
	assert.Equal(t, 7.5, *v)
}

func TestNormalizeLiveStatus(t *testing.T) {
	tests := map[string]LiveStatus{
		"Running":      LiveRunning,
		"running":      LiveRunning,
		"Stopped":      LiveStopped,
		"Liquidated":   LiveLiquidated,
		"RuntimeError": LiveError,
		"Paused":       LiveOther,
		"":             LiveOther,
	}
	for raw, want := range tests {
		assert.Equal(t, want, NormalizeLiveStatus(raw), raw)
	}
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		wantTS int64
		wantV  float64
		wantOK bool
	}{
		{"object", `{"x": 100, "y": 5.5}`, 100, 5.5, true},
		{"pair", `[100, 5.5]`, 100, 5.5, true},
		{"candle", `[100, 1, 9, 0.5, 7]`, 100, 7, true},
		{"null value", `{"x": 100, "y": null}`, 0, 0, false},
		{"null close", `[100, 1, 2, 3, null]`, 0, 0, false},
		{"short array", `[100]`, 0, 0, false},
		{"scalar", `5`, 0, 0, false},
		{"garbage", `{"x": "a"}`, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := parsePoint(json.RawMessage(tt.raw))
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantTS, p.Timestamp)
				assert.Equal(t, tt.wantV, p.Value)
			}
		})
	}
}

func TestEquitySeriesStableSort(t *testing.T) {
	charts := map[string]rawChart{
		"Strategy Equity": {Series: map[string]rawSeries{
			"Equity": {Values: []json.RawMessage{
				json.RawMessage(`[20, 2]`),
				json.RawMessage(`[10, 1]`),
				json.RawMessage(`[20, 3]`),
			}},
		}},
	}

	points := equitySeries(charts)
	require.Len(t, points, 3)
	assert.Equal(t, int64(10), points[0].Timestamp)
	assert.Equal(t, 2.0, points[1].Value)
	assert.Equal(t, 3.0, points[2].Value)

	assert.Nil(t, equitySeries(nil))
	assert.Nil(t, equitySeries(map[string]rawChart{"Benchmark": {}}))
}

func TestParseTime(t *testing.T) {
	assert.Equal(t, 2024, parseTime("2024-01-02 03:04:05").Year())
	assert.Equal(t, 5, parseTime("2024-01-02T03:04:05Z").Second())
	assert.True(t, parseTime("").IsZero())
	assert.True(t, parseTime("yesterday").IsZero())
}

func TestParseStatisticRejectsNonFinite(t *testing.T) {
	_, ok := ParseStatistic("1e400")
	assert.False(t, ok)
}
