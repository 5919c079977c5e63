package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/qcdash/internal/quantconnect"
	"github.com/wonny/qcdash/pkg/logger"
)

// API is the subset of the QuantConnect client the fetcher needs
type API interface {
	ListBacktests(ctx context.Context, projectID int64) ([]quantconnect.Backtest, error)
	GetBacktestResult(ctx context.Context, projectID int64, backtestID string) (*quantconnect.BacktestResult, error)
	GetLiveStatus(ctx context.Context, projectID int64) (*quantconnect.LiveResult, error)
}

// ProjectResult is everything fetched for one project.
// At most one of Live and Backtest is set.
type ProjectResult struct {
	ProjectID int64
	Fetched   bool // false when the run ended before the project was reached
	Live      *quantconnect.LiveResult
	Backtest  *quantconnect.BacktestResult
	Err       error
	Duration  time.Duration
}

// Fetcher fetches per-project data with a bounded number of workers
// ⭐ SSOT: 프로젝트별 수집은 여기서만
type Fetcher struct {
	api     API
	workers int
	logger  *logger.Logger
}

// NewFetcher creates a fetcher. workers is clamped to 1..8.
func NewFetcher(api API, workers int, log *logger.Logger) *Fetcher {
	if workers < 1 {
		workers = 1
	}
	if workers > 8 {
		workers = 8
	}
	return &Fetcher{
		api:     api,
		workers: workers,
		logger:  log.WithField("module", "snapshot"),
	}
}

// FetchAll fetches every project. Results are in input order.
// Per-project failures are captured in the result; only an AuthError
// aborts the remaining fetches and is returned.
func (f *Fetcher) FetchAll(ctx context.Context, projects []quantconnect.Project) ([]ProjectResult, error) {
	results := make([]ProjectResult, len(projects))
	for i, p := range projects {
		results[i].ProjectID = p.ID
	}

	f.logger.WithFields(map[string]interface{}{
		"project_count": len(projects),
		"workers":       f.workers,
	}).Info("Starting project fetch")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	for i := range projects {
		i := i
		g.Go(func() error {
			// 마감 이후에는 시작하지 않음
			if gctx.Err() != nil {
				return nil
			}

			start := time.Now()
			res := f.fetchProject(gctx, projects[i].ID)
			res.Duration = time.Since(start)

			if res.Err != nil && runEnded(gctx, res.Err) {
				results[i] = ProjectResult{ProjectID: projects[i].ID}
				return nil
			}
			results[i] = res

			log := f.logger.WithFields(map[string]interface{}{
				"project_id": projects[i].ID,
				"duration":   res.Duration,
			})
			if res.Err != nil {
				if quantconnect.IsAuth(res.Err) {
					return res.Err
				}
				log.WithError(res.Err).Warn("Project fetch failed")
				return nil
			}
			log.Debug("Project fetched")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	fetched, failed := 0, 0
	for _, r := range results {
		if r.Fetched {
			fetched++
		}
		if r.Err != nil {
			failed++
		}
	}
	f.logger.WithFields(map[string]interface{}{
		"fetched": fetched,
		"failed":  failed,
		"total":   len(results),
	}).Info("Project fetch completed")

	return results, nil
}

// fetchProject applies the selection rule:
// running live deployment, else latest completed backtest, else nothing.
func (f *Fetcher) fetchProject(ctx context.Context, projectID int64) ProjectResult {
	res := ProjectResult{ProjectID: projectID, Fetched: true}

	// 1. Live deployment
	live, err := f.api.GetLiveStatus(ctx, projectID)
	var remote *quantconnect.RemoteError
	switch {
	case quantconnect.IsNotFound(err):
		// never deployed
	case errors.As(err, &remote):
		// live/read rejected the project: no usable deployment, fall back to backtests
		f.logger.WithField("project_id", projectID).WithError(err).Debug("Live status unavailable")
	case err != nil:
		res.Err = fmt.Errorf("live status: %w", err)
		return res
	case live.Deployment.Running():
		res.Live = live
		return res
	}

	// 2. Latest completed backtest
	backtests, err := f.api.ListBacktests(ctx, projectID)
	if err != nil {
		res.Err = fmt.Errorf("list backtests: %w", err)
		return res
	}

	latest, ok := LatestCompleted(backtests)
	if !ok {
		return res
	}

	result, err := f.api.GetBacktestResult(ctx, projectID, latest.ID)
	if err != nil {
		res.Err = fmt.Errorf("backtest %s: %w", latest.ID, err)
		return res
	}
	res.Backtest = result
	return res
}

// LatestCompleted returns the most recently created completed backtest.
// Ties keep the platform's list order.
func LatestCompleted(backtests []quantconnect.Backtest) (quantconnect.Backtest, bool) {
	completed := make([]quantconnect.Backtest, 0, len(backtests))
	for _, b := range backtests {
		if b.Completed && b.ID != "" {
			completed = append(completed, b)
		}
	}
	if len(completed) == 0 {
		return quantconnect.Backtest{}, false
	}

	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].Created.After(completed[j].Created)
	})
	return completed[0], true
}

// runEnded reports whether err comes from the run ending rather than from the platform.
// A deadline error counts even while ctx is still live: the rate limiter refuses
// waits that would finish past the deadline. Retries that ran out are platform failures.
func runEnded(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return isContextErr(err)
	}
	var transient *quantconnect.TransientError
	return errors.Is(err, context.DeadlineExceeded) && !errors.As(err, &transient)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
