package snapshot

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/qcdash/internal/contracts"
	"github.com/wonny/qcdash/internal/metrics"
	"github.com/wonny/qcdash/internal/quantconnect"
)

// DefaultMaxPoints bounds the equity curve written per project
const DefaultMaxPoints = 500

// NotFetchedMessage is the error recorded for projects the run never reached
const NotFetchedMessage = "run timeout"

// Options controls assembly
type Options struct {
	Now       time.Time
	MaxPoints int // <= 0 keeps every point

	// Tracked is the explicit project selection. When empty the most
	// recently modified project is marked tracked.
	Tracked map[int64]bool
}

// Assemble merges projects and fetch results into one snapshot.
// Entries are ordered by ascending project id; every project appears exactly once.
// ⭐ SSOT: 스냅샷 조립은 여기서만
func Assemble(projects []quantconnect.Project, results []ProjectResult, opts Options) contracts.DashboardSnapshot {
	byID := make(map[int64]ProjectResult, len(results))
	for _, r := range results {
		byID[r.ProjectID] = r
	}

	ordered := dedupe(projects)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ID < ordered[j].ID
	})

	tracked := opts.Tracked
	if len(tracked) == 0 {
		tracked = mostRecentlyModified(ordered)
	}

	snap := contracts.DashboardSnapshot{
		GeneratedAt:   opts.Now.UTC().Truncate(time.Second),
		SchemaVersion: contracts.SchemaVersion,
		Projects:      make([]contracts.ProjectEntry, 0, len(ordered)),
	}

	for _, p := range ordered {
		entry := newEntry(p, tracked[p.ID])

		r, ok := byID[p.ID]
		switch {
		case !ok || !r.Fetched:
			entry.State = contracts.StateNotFetched
			entry.Error = errorString(NotFetchedMessage)
		case r.Err != nil:
			entry.State = contracts.StateError
			entry.Error = errorString(r.Err.Error())
		case r.Live != nil:
			fillLive(&entry, r.Live, opts.MaxPoints)
		case r.Backtest != nil:
			fillBacktest(&entry, r.Backtest, opts.MaxPoints)
		default:
			entry.State = contracts.StateNoData
		}

		snap.Projects = append(snap.Projects, entry)
	}

	return snap
}

func newEntry(p quantconnect.Project, tracked bool) contracts.ProjectEntry {
	name := p.Name
	if name == "" {
		name = fmt.Sprintf("Project %d", p.ID)
	}
	return contracts.ProjectEntry{
		ID:      p.ID,
		Name:    name,
		Tracked: tracked,
		Source:  contracts.SourceNone,
		Metrics: contracts.MetricSet{
			TotalReturn: contracts.Unknown(),
			SharpeRatio: contracts.Unknown(),
			MaxDrawdown: contracts.Unknown(),
			WinRate:     contracts.Unknown(),
		},
		WinRateBasis: contracts.WinRateUnavailable,
		EquityCurve:  []contracts.EquityPoint{},
	}
}

func fillLive(entry *contracts.ProjectEntry, live *quantconnect.LiveResult, maxPoints int) {
	d := live.Deployment

	entry.State = contracts.StateOK
	entry.Source = contracts.SourceLive
	entry.SourceID = d.DeployID
	entry.Status = string(d.Status)
	entry.StartedAt = timePtr(d.Launched)
	if d.Stopped != nil {
		entry.EndedAt = timePtr(*d.Stopped)
	}

	// 지표는 전체 곡선으로 계산한 뒤 다운샘플링
	entry.Metrics, entry.WinRateBasis = metrics.Derive(live.Equity, LiveStats(live))
	entry.EquityCurve = Downsample(live.Equity, maxPoints)
}

func fillBacktest(entry *contracts.ProjectEntry, bt *quantconnect.BacktestResult, maxPoints int) {
	entry.State = contracts.StateOK
	entry.Source = contracts.SourceBacktest
	entry.SourceID = bt.ID
	entry.SourceName = bt.Name
	entry.Status = "completed"
	entry.StartedAt = timePtr(bt.Created)
	entry.EndedAt = lastSampleTime(bt.Equity)

	entry.Metrics, entry.WinRateBasis = metrics.Derive(bt.Equity, BacktestStats(bt))
	entry.EquityCurve = Downsample(bt.Equity, maxPoints)
}

// lastSampleTime is the time of the last sample that carries a timestamp
func lastSampleTime(curve []contracts.EquityPoint) *time.Time {
	for i := len(curve) - 1; i >= 0; i-- {
		if curve[i].Timestamp > 0 {
			return timePtr(curve[i].Time())
		}
	}
	return nil
}

// Downsample keeps at most maxPoints samples spread evenly over the curve.
// The first and last samples are always kept. The input is not modified.
func Downsample(curve []contracts.EquityPoint, maxPoints int) []contracts.EquityPoint {
	n := len(curve)
	if maxPoints <= 0 || n <= maxPoints {
		out := make([]contracts.EquityPoint, n)
		copy(out, curve)
		return out
	}
	if maxPoints == 1 {
		return []contracts.EquityPoint{curve[n-1]}
	}

	out := make([]contracts.EquityPoint, maxPoints)
	for i := 0; i < maxPoints; i++ {
		out[i] = curve[i*(n-1)/(maxPoints-1)]
	}
	return out
}

// mostRecentlyModified marks the latest-modified project. Ties go to the lowest id.
func mostRecentlyModified(projects []quantconnect.Project) map[int64]bool {
	if len(projects) == 0 {
		return nil
	}
	best := projects[0]
	for _, p := range projects[1:] {
		if p.Modified.After(best.Modified) {
			best = p
		}
	}
	return map[int64]bool{best.ID: true}
}

func dedupe(projects []quantconnect.Project) []quantconnect.Project {
	seen := make(map[int64]bool, len(projects))
	out := make([]quantconnect.Project, 0, len(projects))
	for _, p := range projects {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func errorString(s string) *string {
	return &s
}
