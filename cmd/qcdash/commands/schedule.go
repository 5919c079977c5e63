package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/qcdash/internal/pipeline"
	"github.com/wonny/qcdash/internal/scheduler"
	"github.com/wonny/qcdash/internal/scheduler/jobs"
	"github.com/wonny/qcdash/pkg/config"
	"github.com/wonny/qcdash/pkg/logger"
)

var (
	scheduleSpec string
	runNow       bool
)

// scheduleCmd refreshes the artifact on a cron schedule
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Refresh the dashboard artifact on a cron schedule",
	Long: `Runs the pipeline on a cron schedule (6 fields, with seconds) until
interrupted. Runs never overlap; a run still in progress when the next one
is due is skipped.

Example:
  go run ./cmd/qcdash schedule
  go run ./cmd/qcdash schedule --cron "0 0 * * * *" --now`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().StringVar(&scheduleSpec, "cron", "", "cron expression with seconds (overrides SCHEDULE)")
	scheduleCmd.Flags().BoolVar(&runNow, "now", false, "run once immediately before waiting for the schedule")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return fail("config: %v", err)
	}

	sched, closeFn, err := newScheduler(cfg, log)
	if err != nil {
		return fail("init: %v", err)
	}
	defer closeFn()

	ctx, cancel := signalContext()
	defer cancel()

	sched.Start()
	defer sched.Stop()

	PrintSuccess(fmt.Sprintf("Scheduler started (%s)", cfg.Schedule))
	PrintInfo("Press Ctrl+C to stop")

	// 즉시 실행은 백그라운드에서, Ctrl+C 시 Stop이 취소하고 기다림
	if runNow {
		go func() {
			if err := sched.RunJob(jobs.DashboardJobName); err != nil && ctx.Err() == nil {
				PrintWarning(fmt.Sprintf("initial run failed: %v", err))
			}
		}()
	}

	<-ctx.Done()
	log.Info("Stopping scheduler...")
	return nil
}

// newScheduler wires the pipeline into a scheduler with one refresh job
func newScheduler(cfg *config.Config, log *logger.Logger) (*scheduler.Scheduler, func(), error) {
	if scheduleSpec != "" {
		cfg.Schedule = scheduleSpec
	}

	runner, closeFn, err := pipeline.Build(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewDashboardJob(runner, cfg.Schedule, log)); err != nil {
		closeFn()
		return nil, nil, err
	}

	return sched, closeFn, nil
}
