package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/qcdash/internal/contracts"
	"github.com/wonny/qcdash/internal/pipeline"
)

// fetchCmd runs the pipeline once
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch all projects and write the dashboard artifact",
	Long: `Runs the pipeline once: authenticate, list projects, fetch each project's
running live deployment or latest completed backtest, derive metrics and
atomically replace the artifact.

Exit status is non-zero on authentication failure, project listing failure
(unless projects are configured explicitly) or when the artifact cannot be written.
Per-project failures are recorded in the artifact and do not fail the run.`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return fail("config: %v", err)
	}

	runner, closeFn, err := pipeline.Build(cfg, log)
	if err != nil {
		return fail("init: %v", err)
	}
	defer closeFn()

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	res, err := runner.Run(ctx)
	if err != nil {
		return fail("run failed: %v", err)
	}

	printSnapshot(res.Snapshot)
	fmt.Fprintln(os.Stdout)
	PrintSuccess(fmt.Sprintf("Wrote %s (%d projects, %d errors) in %.2fs",
		res.Path, len(res.Snapshot.Projects), res.States[contracts.StateError], time.Since(start).Seconds()))

	return nil
}

func printSnapshot(snap contracts.DashboardSnapshot) {
	columns := []string{"ID", "NAME", "STATE", "SOURCE", "RETURN", "SHARPE", "MAX DD", "WIN RATE"}
	widths := []int{10, 24, 11, 8, 10, 8, 10, 12}

	PrintTableHeader(columns, widths)
	for _, p := range snap.Projects {
		name := p.Name
		if p.Tracked {
			name = "* " + name
		}
		PrintTableRow([]string{
			fmt.Sprint(p.ID),
			truncate(name, widths[1]),
			string(p.State),
			string(p.Source),
			formatPercent(p.Metrics.TotalReturn),
			formatRatio(p.Metrics.SharpeRatio),
			formatPercent(p.Metrics.MaxDrawdown),
			formatWinRate(p.Metrics.WinRate, p.WinRateBasis),
		}, widths)
	}

	for i := range snap.Projects {
		if p := &snap.Projects[i]; p.Errored() {
			PrintWarning(fmt.Sprintf("%d %s: %s", p.ID, p.Name, *p.Error))
		}
	}
}
