package snapshot

import (
	"github.com/wonny/qcdash/internal/metrics"
	"github.com/wonny/qcdash/internal/quantconnect"
)

// Statistic names as reported by the platform, in lookup order
var (
	totalReturnKeys = []string{"Net Profit", "Total Net Profit"}
	sharpeKeys      = []string{"Sharpe Ratio"}
	drawdownKeys    = []string{"Drawdown", "Max Drawdown"}
	winRateKeys     = []string{"Win Rate"}
	tradeCountKeys  = []string{"Total Trades", "Total Orders"}
	runtimeReturn   = []string{"Return"}
)

// BacktestStats converts a backtest's reported statistics for the deriver
func BacktestStats(bt *quantconnect.BacktestResult) metrics.PlatformStats {
	stats := platformStats(bt.Statistics, bt.RuntimeStatistics)
	if bt.TotalTrades != nil {
		stats.TotalTrades = bt.TotalTrades
	}

	if len(bt.ClosedTrades) > 0 {
		stats.TradePnL = make([]float64, len(bt.ClosedTrades))
		for i, t := range bt.ClosedTrades {
			stats.TradePnL[i] = t.ProfitLoss
		}
	}
	return stats
}

// LiveStats converts a live deployment's reported statistics for the deriver
func LiveStats(live *quantconnect.LiveResult) metrics.PlatformStats {
	return platformStats(live.Statistics, live.RuntimeStatistics)
}

func platformStats(stats, runtime quantconnect.Statistics) metrics.PlatformStats {
	totalReturn := stats.Number(totalReturnKeys...)
	if totalReturn == nil {
		totalReturn = runtime.Number(runtimeReturn...)
	}

	return metrics.PlatformStats{
		TotalReturn: totalReturn,
		SharpeRatio: stats.Number(sharpeKeys...),
		MaxDrawdown: stats.Number(drawdownKeys...),
		WinRate:     stats.Number(winRateKeys...),
		TotalTrades: stats.Int(tradeCountKeys...),
	}
}
