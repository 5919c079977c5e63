package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/qcdash/internal/contracts"
)

func TestFormatMetrics(t *testing.T) {
	assert.Equal(t, "12.35%", formatPercent(contracts.Value(12.345)))
	assert.Equal(t, "-", formatPercent(contracts.Unknown()))
	assert.Equal(t, "1.50", formatRatio(contracts.Value(1.5)))
	assert.Equal(t, "-", formatRatio(contracts.Unknown()))
}

func TestFormatWinRate(t *testing.T) {
	assert.Equal(t, "60.00% (T)", formatWinRate(contracts.Value(60), contracts.WinRateTrades))
	assert.Equal(t, "55.00% (D)", formatWinRate(contracts.Value(55), contracts.WinRatePeriods))
	assert.Equal(t, "-", formatWinRate(contracts.Unknown(), contracts.WinRateUnavailable))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Momen…", truncate("Momentum v2", 6))
	assert.Equal(t, "모멘…", truncate("모멘텀 전략", 3))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "-", formatTime(time.Time{}))
	assert.Equal(t, "2024-03-01 09:30", formatTime(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)))
}
