// Package metrics turns equity curves and platform statistics into the dashboard metric set.
//
// Every function here is pure and deterministic: identical input gives
// bit-identical output, with no clock or map iteration in numeric paths.
package metrics

import (
	"math"

	"github.com/wonny/qcdash/internal/contracts"
)

// TradingDaysPerYear annualizes daily Sharpe ratios
const TradingDaysPerYear = 252

const secondsPerDay = 86400

// PlatformStats holds the statistics reported by the platform, already parsed.
// A nil pointer means "not reported".
type PlatformStats struct {
	TotalReturn *float64 // %
	SharpeRatio *float64
	MaxDrawdown *float64 // %, any sign; normalised to <= 0
	WinRate     *float64 // %, per trade
	TotalTrades *int

	// TradePnL is the realized profit/loss of each closed trade
	TradePnL []float64
}

// Derive computes the metric set. Platform statistics win whenever they are
// present and finite; the equity curve is only the fallback.
// ⭐ SSOT: 대시보드 지표 산출은 여기서만
func Derive(curve []contracts.EquityPoint, stats PlatformStats) (contracts.MetricSet, contracts.WinRateBasis) {
	set := contracts.MetricSet{
		TotalReturn: pick(stats.TotalReturn, func() contracts.Metric { return TotalReturn(curve) }),
		SharpeRatio: pick(stats.SharpeRatio, func() contracts.Metric { return SharpeRatio(curve) }),
		MaxDrawdown: pick(negated(stats.MaxDrawdown), func() contracts.Metric { return MaxDrawdown(curve) }),
	}

	var basis contracts.WinRateBasis
	set.WinRate, basis = winRate(curve, stats)

	return set, basis
}

func winRate(curve []contracts.EquityPoint, stats PlatformStats) (contracts.Metric, contracts.WinRateBasis) {
	if platformWinRateUsable(stats) {
		return contracts.Value(*stats.WinRate), contracts.WinRateTrades
	}

	if m := TradeWinRate(stats.TradePnL); m.Available() {
		return m, contracts.WinRateTrades
	}

	if m := PeriodWinRate(curve); m.Available() {
		return m, contracts.WinRatePeriods
	}

	return contracts.Unknown(), contracts.WinRateUnavailable
}

// platformWinRateUsable rejects a win rate that contradicts the trade count,
// e.g. "0%" reported for a backtest that never traded.
func platformWinRateUsable(stats PlatformStats) bool {
	if !finite(stats.WinRate) {
		return false
	}
	if *stats.WinRate < 0 || *stats.WinRate > 100 {
		return false
	}
	if stats.TotalTrades != nil && *stats.TotalTrades == 0 {
		return false
	}
	return true
}

func pick(platform *float64, fallback func() contracts.Metric) contracts.Metric {
	if m := contracts.FromPtr(platform); m.Available() {
		return m
	}
	return fallback()
}

func negated(v *float64) *float64 {
	if v == nil {
		return nil
	}
	n := -math.Abs(*v)
	return &n
}

func finite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// TotalReturn = (last / first - 1) * 100
func TotalReturn(curve []contracts.EquityPoint) contracts.Metric {
	if len(curve) < 2 {
		return contracts.Unknown()
	}

	first := curve[0].Value
	last := curve[len(curve)-1].Value
	if first <= 0 {
		return contracts.Unknown()
	}

	return contracts.Value((last/first - 1) * 100)
}

// SharpeRatio = mean(daily returns) / stdev(daily returns) * sqrt(252).
// No risk-free rate is subtracted.
func SharpeRatio(curve []contracts.EquityPoint) contracts.Metric {
	returns := PeriodReturns(curve)
	if len(returns) < 2 {
		return contracts.Unknown()
	}

	mean, stdev := meanStdev(returns)
	if stdev == 0 || math.IsNaN(stdev) {
		return contracts.Unknown()
	}

	return contracts.Value(mean / stdev * math.Sqrt(TradingDaysPerYear))
}

// MaxDrawdown = min over t of (equity[t] / running peak - 1) * 100, always <= 0
func MaxDrawdown(curve []contracts.EquityPoint) contracts.Metric {
	peak := 0.0
	maxDD := 0.0
	seen := false

	for _, p := range curve {
		if p.Value > peak {
			peak = p.Value
		}
		if peak <= 0 {
			continue
		}
		seen = true

		dd := p.Value/peak - 1
		if dd < maxDD {
			maxDD = dd
		}
	}

	if !seen {
		return contracts.Unknown()
	}
	return contracts.Value(maxDD * 100)
}

// TradeWinRate = profitable trades / total trades * 100
func TradeWinRate(pnl []float64) contracts.Metric {
	if len(pnl) == 0 {
		return contracts.Unknown()
	}

	wins := 0
	for _, p := range pnl {
		if p > 0 {
			wins++
		}
	}

	return contracts.Value(float64(wins) / float64(len(pnl)) * 100)
}

// PeriodWinRate = profitable periods / total periods * 100
func PeriodWinRate(curve []contracts.EquityPoint) contracts.Metric {
	returns := PeriodReturns(curve)
	if len(returns) == 0 {
		return contracts.Unknown()
	}

	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}

	return contracts.Value(float64(wins) / float64(len(returns)) * 100)
}

// PeriodReturns returns simple returns between consecutive period closes.
// Periods that start from a non-positive equity are skipped.
func PeriodReturns(curve []contracts.EquityPoint) []float64 {
	closes := PeriodCloses(curve)
	if len(closes) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev <= 0 {
			continue
		}
		returns = append(returns, closes[i]/prev-1)
	}
	return returns
}

// PeriodCloses resamples the curve to the last value of each UTC day.
// A curve without timestamps is treated as one sample per period.
func PeriodCloses(curve []contracts.EquityPoint) []float64 {
	if len(curve) == 0 {
		return nil
	}

	if !hasTimestamps(curve) {
		closes := make([]float64, len(curve))
		for i, p := range curve {
			closes[i] = p.Value
		}
		return closes
	}

	closes := make([]float64, 0, len(curve))
	currentDay := dayOf(curve[0].Timestamp)
	last := curve[0].Value

	for _, p := range curve[1:] {
		day := dayOf(p.Timestamp)
		if day != currentDay {
			closes = append(closes, last)
			currentDay = day
		}
		last = p.Value
	}
	closes = append(closes, last)

	return closes
}

func hasTimestamps(curve []contracts.EquityPoint) bool {
	for _, p := range curve {
		if p.Timestamp != 0 {
			return true
		}
	}
	return false
}

// dayOf floors unix seconds to a UTC day number
func dayOf(ts int64) int64 {
	day := ts / secondsPerDay
	if ts < 0 && ts%secondsPerDay != 0 {
		day--
	}
	return day
}

// meanStdev returns the mean and sample standard deviation (n-1)
func meanStdev(xs []float64) (float64, float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var variance float64
	for _, x := range xs {
		diff := x - mean
		variance += diff * diff
	}
	variance /= float64(len(xs) - 1)

	return mean, math.Sqrt(variance)
}
