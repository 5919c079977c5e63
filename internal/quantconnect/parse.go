package quantconnect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/qcdash/internal/contracts"
)

// Statistics is a platform statistics table ("Sharpe Ratio" -> "1.234").
// Values arrive as display strings or bare numbers; both decode to strings.
type Statistics map[string]string

// UnmarshalJSON accepts string, number and null values
func (s *Statistics) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Statistics, len(raw))
	for k, v := range raw {
		v = bytes.TrimSpace(v)
		switch {
		case len(v) == 0 || bytes.Equal(v, []byte("null")):
			continue
		case v[0] == '"':
			var str string
			if err := json.Unmarshal(v, &str); err != nil {
				return fmt.Errorf("statistic %q: %w", k, err)
			}
			out[k] = str
		default:
			out[k] = string(v)
		}
	}
	*s = out
	return nil
}

// Number returns the first key that parses as a finite number
func (s Statistics) Number(keys ...string) *float64 {
	for _, k := range keys {
		raw, ok := s[k]
		if !ok {
			continue
		}
		if v, ok := ParseStatistic(raw); ok {
			return &v
		}
	}
	return nil
}

// Int returns the first key that parses as an integer count
func (s Statistics) Int(keys ...string) *int {
	v := s.Number(keys...)
	if v == nil {
		return nil
	}
	n := int(math.Round(*v))
	return &n
}

// ParseStatistic parses a display value like "12.5%", "$1,234.56" or "-0.3".
// Empty, NaN and infinite values report ok=false.
func ParseStatistic(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Raw payload shapes

type envelope struct {
	Success *bool    `json:"success"`
	Errors  []string `json:"errors"`
}

func (e *envelope) base() *envelope { return e }

type response interface {
	base() *envelope
}

type rawProject struct {
	ProjectID int64  `json:"projectId"`
	Name      string `json:"name"`
	Created   string `json:"created"`
	Modified  string `json:"modified"`
}

type projectsResponse struct {
	envelope
	Projects []rawProject `json:"projects"`
}

type rawBacktest struct {
	BacktestID        string              `json:"backtestId"`
	Name              string              `json:"name"`
	Created           string              `json:"created"`
	Completed         bool                `json:"completed"`
	Status            string              `json:"status"`
	Progress          float64             `json:"progress"`
	Statistics        Statistics          `json:"statistics"`
	RuntimeStatistics Statistics          `json:"runtimeStatistics"`
	Charts            map[string]rawChart `json:"charts"`
	TotalPerformance  *rawPerformance     `json:"totalPerformance"`
}

type backtestsResponse struct {
	envelope
	Backtests []rawBacktest `json:"backtests"`
}

type backtestResponse struct {
	envelope
	Backtest json.RawMessage `json:"backtest"`
}

type rawPerformance struct {
	ClosedTrades []struct {
		ProfitLoss *float64 `json:"profitLoss"`
	} `json:"closedTrades"`
	TradeStatistics struct {
		TotalNumberOfTrades *int `json:"totalNumberOfTrades"`
	} `json:"tradeStatistics"`
}

type rawChart struct {
	Name   string               `json:"name"`
	Series map[string]rawSeries `json:"series"`
}

type rawSeries struct {
	Name   string            `json:"name"`
	Values []json.RawMessage `json:"values"`
}

type rawLive struct {
	ProjectID   int64  `json:"projectId"`
	DeployID    string `json:"deployId"`
	Status      string `json:"status"`
	Launched    string `json:"launched"`
	Stopped     string `json:"stopped"`
	Brokerage   string `json:"brokerage"`
	ProjectName string `json:"projectName"`
}

type liveListResponse struct {
	envelope
	Live []rawLive `json:"live"`
}

// live/read reports the deployment either at the top level or under "live"
type rawLiveResult struct {
	rawLive
	Statistics        Statistics          `json:"statistics"`
	RuntimeStatistics Statistics          `json:"runtimeStatistics"`
	Charts            map[string]rawChart `json:"charts"`
}

type liveReadResponse struct {
	envelope
	rawLiveResult
	Live json.RawMessage `json:"live"`
}

// Conversions

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTime parses platform timestamps (UTC, several layouts). Zero on failure.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// NormalizeLiveStatus maps platform status strings onto LiveStatus
func NormalizeLiveStatus(raw string) LiveStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "running", "deployed", "launching", "initializing", "loggingin":
		return LiveRunning
	case "stopped", "completed", "deleted":
		return LiveStopped
	case "liquidated":
		return LiveLiquidated
	case "runtimeerror", "error":
		return LiveError
	default:
		return LiveOther
	}
}

func (r rawProject) toProject() Project {
	return Project{
		ID:       r.ProjectID,
		Name:     r.Name,
		Created:  parseTime(r.Created),
		Modified: parseTime(r.Modified),
	}
}

func (r rawBacktest) toBacktest(projectID int64) Backtest {
	completed := r.Completed || strings.HasPrefix(strings.ToLower(r.Status), "completed")
	return Backtest{
		ID:        r.BacktestID,
		ProjectID: projectID,
		Name:      r.Name,
		Created:   parseTime(r.Created),
		Completed: completed,
		Status:    r.Status,
		Progress:  r.Progress,
	}
}

func (r rawBacktest) toResult(projectID int64) BacktestResult {
	res := BacktestResult{
		Backtest:          r.toBacktest(projectID),
		Statistics:        r.Statistics,
		RuntimeStatistics: r.RuntimeStatistics,
		Equity:            equitySeries(r.Charts),
	}

	if perf := r.TotalPerformance; perf != nil {
		for _, t := range perf.ClosedTrades {
			if t.ProfitLoss != nil && !math.IsNaN(*t.ProfitLoss) && !math.IsInf(*t.ProfitLoss, 0) {
				res.ClosedTrades = append(res.ClosedTrades, ClosedTrade{ProfitLoss: *t.ProfitLoss})
			}
		}
		res.TotalTrades = perf.TradeStatistics.TotalNumberOfTrades
	}
	if res.TotalTrades == nil {
		res.TotalTrades = r.Statistics.Int("Total Trades", "Total Orders")
	}
	return res
}

func (r rawLive) toDeployment() LiveDeployment {
	d := LiveDeployment{
		ProjectID:   r.ProjectID,
		ProjectName: r.ProjectName,
		DeployID:    r.DeployID,
		Status:      NormalizeLiveStatus(r.Status),
		RawStatus:   r.Status,
		Launched:    parseTime(r.Launched),
		Brokerage:   r.Brokerage,
	}
	if t := parseTime(r.Stopped); !t.IsZero() {
		d.Stopped = &t
	}
	return d
}

func (r rawLiveResult) toResult(projectID int64) LiveResult {
	d := r.toDeployment()
	if d.ProjectID == 0 {
		d.ProjectID = projectID
	}
	return LiveResult{
		Deployment:        d,
		Statistics:        r.Statistics,
		RuntimeStatistics: r.RuntimeStatistics,
		Equity:            equitySeries(r.Charts),
		CurrentEquity:     r.RuntimeStatistics.Number("Equity"),
	}
}

// equitySeries extracts "Strategy Equity" / "Equity" sorted by time.
// Candle points [t, o, h, l, c] use the close.
func equitySeries(charts map[string]rawChart) []contracts.EquityPoint {
	chart, ok := charts["Strategy Equity"]
	if !ok {
		return nil
	}
	series, ok := chart.Series["Equity"]
	if !ok {
		return nil
	}

	points := make([]contracts.EquityPoint, 0, len(series.Values))
	for _, raw := range series.Values {
		if p, ok := parsePoint(raw); ok {
			points = append(points, p)
		}
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp < points[j].Timestamp
	})
	return points
}

// parsePoint accepts {"x": t, "y": v} or [t, ..., v]. Null or non-finite values are skipped.
func parsePoint(raw json.RawMessage) (contracts.EquityPoint, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return contracts.EquityPoint{}, false
	}

	var x, y *float64
	switch raw[0] {
	case '{':
		var obj struct {
			X *float64 `json:"x"`
			Y *float64 `json:"y"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return contracts.EquityPoint{}, false
		}
		x, y = obj.X, obj.Y
	case '[':
		var arr []*float64
		if err := json.Unmarshal(raw, &arr); err != nil || len(arr) < 2 {
			return contracts.EquityPoint{}, false
		}
		x, y = arr[0], arr[len(arr)-1]
	default:
		return contracts.EquityPoint{}, false
	}

	if x == nil || y == nil || math.IsNaN(*y) || math.IsInf(*y, 0) {
		return contracts.EquityPoint{}, false
	}
	return contracts.EquityPoint{Timestamp: int64(*x), Value: *y}, true
}
