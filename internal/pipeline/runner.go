package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/qcdash/internal/contracts"
	"github.com/wonny/qcdash/internal/output"
	"github.com/wonny/qcdash/internal/quantconnect"
	"github.com/wonny/qcdash/internal/snapshot"
	"github.com/wonny/qcdash/pkg/config"
	"github.com/wonny/qcdash/pkg/logger"
)

// Client is the QuantConnect surface a run needs
type Client interface {
	snapshot.API
	Authenticate(ctx context.Context) error
	ListProjects(ctx context.Context) ([]quantconnect.Project, error)
}

// Options controls one run
type Options struct {
	OutputPath string
	Workers    int
	RunTimeout time.Duration
	MaxPoints  int

	// Tracked restricts the run to these projects. Empty means every project.
	Tracked []config.TrackedProject
}

// Result summarizes a completed run
type Result struct {
	Snapshot contracts.DashboardSnapshot
	Path     string
	Duration time.Duration
	States   map[contracts.EntryState]int
}

// Runner executes Client -> Deriver -> Assembler -> Writer once per call
// ⭐ SSOT: 파이프라인 실행 순서는 여기서만
type Runner struct {
	client  Client
	fetcher *snapshot.Fetcher
	writer  *output.Writer
	opts    Options
	logger  *logger.Logger
	now     func() time.Time
}

// NewRunner creates a runner
func NewRunner(client Client, writer *output.Writer, opts Options, log *logger.Logger) *Runner {
	if opts.MaxPoints == 0 {
		opts.MaxPoints = snapshot.DefaultMaxPoints
	}
	return &Runner{
		client:  client,
		fetcher: snapshot.NewFetcher(client, opts.Workers, log),
		writer:  writer,
		opts:    opts,
		logger:  log.WithField("module", "pipeline"),
		now:     time.Now,
	}
}

// WithClock replaces the clock used for generated_at (tests)
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run fetches, derives, assembles and writes one snapshot.
// Every returned error is fatal (authentication, project listing without an
// explicit selection, writing the artifact) and leaves the artifact untouched.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	if r.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.RunTimeout)
		defer cancel()
	}

	// 1. Credentials
	if err := r.client.Authenticate(ctx); err != nil {
		if quantconnect.IsAuth(err) {
			return nil, fmt.Errorf("authenticate: %w", err)
		}
		r.logger.WithError(err).Warn("Credential check failed, continuing")
	}

	// 2. Projects
	projects, err := r.resolveProjects(ctx)
	if err != nil {
		return nil, err
	}

	// 3. Per-project fetch
	results, err := r.fetcher.FetchAll(ctx, projects)
	if err != nil {
		return nil, fmt.Errorf("fetch projects: %w", err)
	}

	// 4. Assemble
	snap := snapshot.Assemble(projects, results, snapshot.Options{
		Now:       r.now(),
		MaxPoints: r.opts.MaxPoints,
		Tracked:   r.trackedSet(),
	})

	// 5. Write
	if err := r.writer.Write(snap, r.opts.OutputPath); err != nil {
		return nil, err
	}

	res := &Result{
		Snapshot: snap,
		Path:     r.opts.OutputPath,
		Duration: time.Since(start),
		States:   snap.CountByState(),
	}

	r.logger.WithFields(map[string]interface{}{
		"projects":    len(snap.Projects),
		"ok":          res.States[contracts.StateOK],
		"no_data":     res.States[contracts.StateNoData],
		"errors":      res.States[contracts.StateError],
		"not_fetched": res.States[contracts.StateNotFetched],
		"duration":    res.Duration,
	}).Info("Pipeline run completed")

	return res, nil
}

// resolveProjects lists projects and applies the tracked selection.
// With an explicit selection a listing failure is tolerated: names fall
// back to the tracking file or a placeholder.
func (r *Runner) resolveProjects(ctx context.Context) ([]quantconnect.Project, error) {
	listed, err := r.client.ListProjects(ctx)
	if err != nil {
		if quantconnect.IsAuth(err) || len(r.opts.Tracked) == 0 {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		r.logger.WithError(err).Warn("Project listing failed, using configured projects")
		listed = nil
	}

	if len(r.opts.Tracked) == 0 {
		return listed, nil
	}

	byID := make(map[int64]quantconnect.Project, len(listed))
	for _, p := range listed {
		byID[p.ID] = p
	}

	projects := make([]quantconnect.Project, 0, len(r.opts.Tracked))
	for _, t := range r.opts.Tracked {
		p, ok := byID[t.ID]
		if !ok {
			p = quantconnect.Project{ID: t.ID}
			if listed != nil {
				r.logger.WithField("project_id", t.ID).Warn("Tracked project not in account listing")
			}
		}
		if t.Name != "" {
			p.Name = t.Name
		}
		projects = append(projects, p)
	}
	return projects, nil
}

func (r *Runner) trackedSet() map[int64]bool {
	if len(r.opts.Tracked) == 0 {
		return nil
	}
	set := make(map[int64]bool, len(r.opts.Tracked))
	for _, t := range r.opts.Tracked {
		set[t.ID] = true
	}
	return set
}
