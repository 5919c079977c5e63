package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/qcdash/internal/contracts"
	"github.com/wonny/qcdash/internal/pipeline"
	"github.com/wonny/qcdash/pkg/logger"
)

// Runner runs the pipeline once
type Runner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// DashboardJobName is the scheduler key of the refresh job
const DashboardJobName = "dashboard_refresh"

// DashboardJob refreshes the dashboard artifact
// ⭐ SSOT: 대시보드 갱신 스케줄은 이 Job에서만
type DashboardJob struct {
	runner   Runner
	schedule string
	logger   *logger.Logger
}

// NewDashboardJob creates a new dashboard refresh job
func NewDashboardJob(runner Runner, schedule string, log *logger.Logger) *DashboardJob {
	return &DashboardJob{
		runner:   runner,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *DashboardJob) Name() string {
	return DashboardJobName
}

// Schedule returns the cron schedule (with seconds)
func (j *DashboardJob) Schedule() string {
	return j.schedule
}

// Run executes one pipeline run
func (j *DashboardJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled dashboard refresh")

	res, err := j.runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("dashboard refresh: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"path":     res.Path,
		"projects": len(res.Snapshot.Projects),
		"errors":   res.States[contracts.StateError],
	}).Info("Scheduled dashboard refresh completed")
	return nil
}
