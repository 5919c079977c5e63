package metrics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/qcdash/internal/contracts"
)

func curveOf(values ...float64) []contracts.EquityPoint {
	curve := make([]contracts.EquityPoint, len(values))
	for i, v := range values {
		curve[i] = contracts.EquityPoint{Value: v}
	}
	return curve
}

// dailyCurve places one sample per UTC day starting 2024-01-01
func dailyCurve(values ...float64) []contracts.EquityPoint {
	const start = 1704067200
	curve := make([]contracts.EquityPoint, len(values))
	for i, v := range values {
		curve[i] = contracts.EquityPoint{Timestamp: start + int64(i)*secondsPerDay, Value: v}
	}
	return curve
}

func ptr(v float64) *float64 { return &v }

func mustFloat(t *testing.T, m contracts.Metric) float64 {
	t.Helper()
	v, ok := m.Float()
	require.True(t, ok, "metric unavailable")
	return v
}

func TestDerive_ExampleCurve(t *testing.T) {
	set, basis := Derive(curveOf(100, 110, 99, 121), PlatformStats{})

	assert.InDelta(t, 21.0, mustFloat(t, set.TotalReturn), 1e-9)
	assert.InDelta(t, -10.0, mustFloat(t, set.MaxDrawdown), 1e-9)
	// 2 up periods out of 3
	assert.InDelta(t, 200.0/3.0, mustFloat(t, set.WinRate), 1e-9)
	assert.Equal(t, contracts.WinRatePeriods, basis)
	assert.True(t, set.SharpeRatio.Available())
}

func TestDerive_EmptyCurveNoStats(t *testing.T) {
	set, basis := Derive(nil, PlatformStats{})

	assert.False(t, set.TotalReturn.Available())
	assert.False(t, set.SharpeRatio.Available())
	assert.False(t, set.MaxDrawdown.Available())
	assert.False(t, set.WinRate.Available())
	assert.False(t, set.AnyAvailable())
	assert.Equal(t, contracts.WinRateUnavailable, basis)
}

func TestDerive_PlatformStatsWin(t *testing.T) {
	trades := 12
	stats := PlatformStats{
		TotalReturn: ptr(35.5),
		SharpeRatio: ptr(1.8),
		MaxDrawdown: ptr(12.3), // platform reports a positive drawdown
		WinRate:     ptr(58),
		TotalTrades: &trades,
	}

	set, basis := Derive(curveOf(100, 110, 99, 121), stats)

	assert.Equal(t, 35.5, mustFloat(t, set.TotalReturn))
	assert.Equal(t, 1.8, mustFloat(t, set.SharpeRatio))
	assert.Equal(t, -12.3, mustFloat(t, set.MaxDrawdown))
	assert.Equal(t, 58.0, mustFloat(t, set.WinRate))
	assert.Equal(t, contracts.WinRateTrades, basis)
}

func TestDerive_NonFinitePlatformStatsFallBack(t *testing.T) {
	stats := PlatformStats{
		TotalReturn: ptr(math.NaN()),
		SharpeRatio: ptr(math.Inf(1)),
	}

	set, _ := Derive(curveOf(100, 110, 99, 121), stats)

	assert.InDelta(t, 21.0, mustFloat(t, set.TotalReturn), 1e-9)
	assert.NotEqual(t, math.Inf(1), mustFloat(t, set.SharpeRatio))
}

func TestDerive_WinRatePrecedence(t *testing.T) {
	zero := 0
	curve := curveOf(100, 101, 102, 101)

	t.Run("platform win rate with zero trades is ignored", func(t *testing.T) {
		set, basis := Derive(curve, PlatformStats{WinRate: ptr(0), TotalTrades: &zero})
		assert.Equal(t, contracts.WinRatePeriods, basis)
		assert.InDelta(t, 200.0/3.0, mustFloat(t, set.WinRate), 1e-9)
	})

	t.Run("out of range platform win rate is ignored", func(t *testing.T) {
		_, basis := Derive(curve, PlatformStats{WinRate: ptr(140)})
		assert.Equal(t, contracts.WinRatePeriods, basis)
	})

	t.Run("closed trades beat periods", func(t *testing.T) {
		set, basis := Derive(curve, PlatformStats{TradePnL: []float64{10, -5, 3, 0}})
		assert.Equal(t, contracts.WinRateTrades, basis)
		assert.Equal(t, 50.0, mustFloat(t, set.WinRate))
	})

	t.Run("platform beats closed trades", func(t *testing.T) {
		set, basis := Derive(curve, PlatformStats{WinRate: ptr(75), TradePnL: []float64{-1}})
		assert.Equal(t, contracts.WinRateTrades, basis)
		assert.Equal(t, 75.0, mustFloat(t, set.WinRate))
	})
}

func TestDerive_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	values := make([]float64, 300)
	v := 1000.0
	for i := range values {
		v *= 1 + (rng.Float64()-0.5)*0.04
		values[i] = v
	}
	curve := dailyCurve(values...)

	first, firstBasis := Derive(curve, PlatformStats{})
	for i := 0; i < 20; i++ {
		again, basis := Derive(curve, PlatformStats{})
		assert.Equal(t, first, again)
		assert.Equal(t, firstBasis, basis)
	}
}

func TestTotalReturn(t *testing.T) {
	assert.False(t, TotalReturn(nil).Available())
	assert.False(t, TotalReturn(curveOf(100)).Available())
	assert.False(t, TotalReturn(curveOf(0, 100)).Available(), "first equity must be positive")
	assert.InDelta(t, -50.0, mustFloat(t, TotalReturn(curveOf(200, 100))), 1e-9)
}

func TestSharpeRatio(t *testing.T) {
	t.Run("needs two returns", func(t *testing.T) {
		assert.False(t, SharpeRatio(curveOf(100, 110)).Available())
	})

	t.Run("zero variance is unavailable", func(t *testing.T) {
		assert.False(t, SharpeRatio(curveOf(100, 100, 100, 100)).Available())
	})

	t.Run("known value", func(t *testing.T) {
		// returns: +10%, -10%, +10%
		got := mustFloat(t, SharpeRatio(curveOf(100, 110, 99, 108.9)))
		mean := (0.1 - 0.1 + 0.1) / 3
		sd := math.Sqrt(((0.1-mean)*(0.1-mean)*2 + (-0.1-mean)*(-0.1-mean)) / 2)
		assert.InDelta(t, mean/sd*math.Sqrt(252), got, 1e-9)
	})
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name  string
		curve []contracts.EquityPoint
		want  float64
	}{
		{"single point", curveOf(100), 0},
		{"monotonic", curveOf(100, 100, 105, 120), 0},
		{"peak to trough", curveOf(100, 110, 99, 121), -10},
		{"deepest of two", curveOf(100, 80, 120, 60, 130), -50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustFloat(t, MaxDrawdown(tt.curve))
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.LessOrEqual(t, got, 0.0)
		})
	}

	assert.False(t, MaxDrawdown(nil).Available())
	assert.False(t, MaxDrawdown(curveOf(0, -1)).Available())
}

func TestMaxDrawdown_NeverPositive(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(50)
		values := make([]float64, n)
		for j := range values {
			values[j] = 1 + rng.Float64()*1000
		}
		assert.LessOrEqual(t, mustFloat(t, MaxDrawdown(curveOf(values...))), 0.0)
	}
}

func TestTradeWinRate(t *testing.T) {
	assert.False(t, TradeWinRate(nil).Available())
	assert.Equal(t, 0.0, mustFloat(t, TradeWinRate([]float64{-1, -2})))
	assert.Equal(t, 100.0, mustFloat(t, TradeWinRate([]float64{1})))
}

func TestPeriodWinRate_Unavailable(t *testing.T) {
	assert.False(t, PeriodWinRate(curveOf(100)).Available())
}

func TestPeriodCloses(t *testing.T) {
	t.Run("no timestamps", func(t *testing.T) {
		assert.Equal(t, []float64{1, 2, 3}, PeriodCloses(curveOf(1, 2, 3)))
	})

	t.Run("intraday samples collapse to day close", func(t *testing.T) {
		const day0 = 1704067200
		curve := []contracts.EquityPoint{
			{Timestamp: day0 + 60, Value: 100},
			{Timestamp: day0 + 3600, Value: 101},
			{Timestamp: day0 + secondsPerDay + 60, Value: 99},
			{Timestamp: day0 + secondsPerDay + 7200, Value: 98},
			{Timestamp: day0 + 3*secondsPerDay, Value: 105},
		}
		assert.Equal(t, []float64{101, 98, 105}, PeriodCloses(curve))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, PeriodCloses(nil))
	})
}

func TestPeriodReturns_SkipsNonPositiveBase(t *testing.T) {
	returns := PeriodReturns(curveOf(0, 100, 110))
	require.Len(t, returns, 1)
	assert.InDelta(t, 0.1, returns[0], 1e-12)
}

func TestDayOf(t *testing.T) {
	assert.Equal(t, int64(0), dayOf(0))
	assert.Equal(t, int64(0), dayOf(secondsPerDay-1))
	assert.Equal(t, int64(1), dayOf(secondsPerDay))
	assert.Equal(t, int64(-1), dayOf(-1))
}
