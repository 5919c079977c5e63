package contracts

import "time"

// SchemaVersion is bumped whenever the artifact shape changes incompatibly
const SchemaVersion = 1

// DashboardSnapshot is the root document read by the static front end
// ⭐ SSOT: 대시보드 JSON 계약은 여기서만 정의
type DashboardSnapshot struct {
	GeneratedAt   time.Time      `json:"generated_at"`
	SchemaVersion int            `json:"schema_version"`
	Projects      []ProjectEntry `json:"projects"`
}

// Source tells where a project's numbers come from
type Source string

const (
	SourceBacktest Source = "backtest"
	SourceLive     Source = "live"
	SourceNone     Source = "none"
)

// EntryState separates "never ran" from "fetch failed" from "not fetched"
type EntryState string

const (
	StateOK         EntryState = "ok"
	StateNoData     EntryState = "no_data"     // fetched, nothing to show
	StateError      EntryState = "error"       // fetch failed
	StateNotFetched EntryState = "not_fetched" // run ended before this project was reached
)

// ProjectEntry is one project in the snapshot
type ProjectEntry struct {
	ID      int64      `json:"id"`
	Name    string     `json:"name"`
	Tracked bool       `json:"tracked"`
	State   EntryState `json:"state"`
	Source  Source     `json:"source"`

	SourceID   string     `json:"source_id,omitempty"`   // backtest id or deploy id
	SourceName string     `json:"source_name,omitempty"` // backtest name
	Status     string     `json:"status,omitempty"`      // backtest / deployment status
	StartedAt  *time.Time `json:"started_at,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`

	Metrics      MetricSet     `json:"metrics"`
	WinRateBasis WinRateBasis  `json:"win_rate_basis"`
	EquityCurve  []EquityPoint `json:"equity_curve"`
	Error        *string       `json:"error"`
}

// EquityPoint is one equity sample
type EquityPoint struct {
	Timestamp int64   `json:"timestamp"` // unix seconds
	Value     float64 `json:"value"`
}

// Time returns the sample time in UTC
func (p EquityPoint) Time() time.Time {
	return time.Unix(p.Timestamp, 0).UTC()
}

// Errored reports whether the entry carries an error
func (e *ProjectEntry) Errored() bool {
	return e.Error != nil
}

// Find returns the entry with the given project id
func (s *DashboardSnapshot) Find(id int64) (*ProjectEntry, bool) {
	for i := range s.Projects {
		if s.Projects[i].ID == id {
			return &s.Projects[i], true
		}
	}
	return nil, false
}

// CountByState counts entries per state
func (s *DashboardSnapshot) CountByState() map[EntryState]int {
	counts := make(map[EntryState]int)
	for _, p := range s.Projects {
		counts[p.State]++
	}
	return counts
}
