package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Unavailable is the JSON marker written in place of a metric that could not be computed
const Unavailable = "unavailable"

// Metric is a number or the explicit "unavailable" marker, never a silent zero
// ⭐ 계약: 값이 없으면 0이 아니라 "unavailable"
type Metric struct {
	value float64
	ok    bool
}

// Value returns an available metric. Non-finite input yields Unknown().
func Value(v float64) Metric {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Metric{}
	}
	return Metric{value: v, ok: true}
}

// Unknown returns an unavailable metric
func Unknown() Metric {
	return Metric{}
}

// FromPtr converts an optional number to a Metric. Nil and non-finite yield Unknown().
func FromPtr(v *float64) Metric {
	if v == nil {
		return Metric{}
	}
	return Value(*v)
}

// Available reports whether the metric carries a value
func (m Metric) Available() bool {
	return m.ok
}

// Float returns the value and whether it is available
func (m Metric) Float() (float64, bool) {
	return m.value, m.ok
}

func (m Metric) String() string {
	if !m.ok {
		return Unavailable
	}
	return fmt.Sprintf("%.2f", m.value)
}

// MarshalJSON writes a number or "unavailable"
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.ok {
		return json.Marshal(Unavailable)
	}
	return json.Marshal(m.value)
}

// UnmarshalJSON accepts a number, "unavailable" or null
func (m *Metric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Metric{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != Unavailable {
			return fmt.Errorf("metric: unexpected string %q", s)
		}
		*m = Metric{}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("metric: %w", err)
	}
	*m = Value(v)
	return nil
}

// WinRateBasis records which definition produced a win rate
type WinRateBasis string

const (
	WinRateTrades      WinRateBasis = "trades"  // profitable trades / total trades
	WinRatePeriods     WinRateBasis = "periods" // profitable days / total days
	WinRateUnavailable WinRateBasis = "unavailable"
)

// MetricSet is the canonical metric set shown per project
type MetricSet struct {
	TotalReturn Metric `json:"total_return"` // %
	SharpeRatio Metric `json:"sharpe_ratio"` // annualized
	MaxDrawdown Metric `json:"max_drawdown"` // %, <= 0
	WinRate     Metric `json:"win_rate"`     // %
}

// AnyAvailable reports whether at least one metric has a value
func (m MetricSet) AnyAvailable() bool {
	return m.TotalReturn.Available() || m.SharpeRatio.Available() ||
		m.MaxDrawdown.Available() || m.WinRate.Available()
}
