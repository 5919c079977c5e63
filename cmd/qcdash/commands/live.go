package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/qcdash/internal/pipeline"
	"github.com/wonny/qcdash/internal/quantconnect"
)

var liveDetail bool

// liveCmd prints live deployments
var liveCmd = &cobra.Command{
	Use:   "live [project_id...]",
	Short: "Show live deployments and their current results",
	Long: `Lists live deployments (all, or only the given projects). With --detail,
also reads each project's live results: statistics, chart series and equity.`,
	RunE: runLive,
}

func init() {
	rootCmd.AddCommand(liveCmd)
	liveCmd.Flags().BoolVar(&liveDetail, "detail", false, "read live results for each deployment")
}

func runLive(cmd *cobra.Command, args []string) error {
	filter := make(map[int64]bool, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return fail("invalid project id %q", a)
		}
		filter[id] = true
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return fail("config: %v", err)
	}

	client, closeFn, err := pipeline.NewAPIClient(cfg, log)
	if err != nil {
		return fail("init: %v", err)
	}
	defer closeFn()

	ctx, cancel := signalContext()
	defer cancel()

	all, err := client.ListAllLiveDeployments(ctx)
	if err != nil {
		return fail("Failed to list live deployments: %v", err)
	}

	var deployments []quantconnect.LiveDeployment
	for _, d := range all {
		if len(filter) == 0 || filter[d.ProjectID] {
			deployments = append(deployments, d)
		}
	}

	if len(deployments) == 0 {
		PrintInfo("No live deployments")
		return nil
	}

	columns := []string{"PROJECT", "NAME", "DEPLOY ID", "STATUS", "LAUNCHED"}
	widths := []int{10, 24, 34, 12, 20}
	PrintTableHeader(columns, widths)
	for _, d := range deployments {
		PrintTableRow([]string{
			fmt.Sprint(d.ProjectID),
			truncate(orDash(d.ProjectName), widths[1]),
			d.DeployID,
			string(d.Status),
			formatTime(d.Launched),
		}, widths)
	}

	if !liveDetail {
		return nil
	}

	// 프로젝트당 한 번만 조회
	seen := make(map[int64]bool)
	for _, d := range deployments {
		if seen[d.ProjectID] {
			continue
		}
		seen[d.ProjectID] = true

		fmt.Println()
		PrintDoubleSeparator()
		fmt.Printf("  Project %d  %s\n", d.ProjectID, orDash(d.ProjectName))
		PrintSeparator()

		live, err := client.GetLiveStatus(ctx, d.ProjectID)
		if err != nil {
			PrintWarning(fmt.Sprintf("live/read failed: %v", err))
			continue
		}
		printLiveResult(live)
	}
	return nil
}

func printLiveResult(live *quantconnect.LiveResult) {
	PrintKeyValue("Deploy ID", live.Deployment.DeployID, 16)
	PrintKeyValue("Status", live.Deployment.RawStatus, 16)
	PrintKeyValue("Equity points", fmt.Sprint(len(live.Equity)), 16)
	if live.CurrentEquity != nil {
		PrintKeyValue("Current equity", fmt.Sprintf("%.2f", *live.CurrentEquity), 16)
	}
	if n := len(live.Equity); n > 0 {
		last := live.Equity[n-1]
		PrintKeyValue("Last sample", fmt.Sprintf("%s  %.2f", formatTime(last.Time()), last.Value), 16)
	}

	printStatistics("Statistics", live.Statistics)
	printStatistics("Runtime statistics", live.RuntimeStatistics)
}

func printStatistics(title string, stats quantconnect.Statistics) {
	if len(stats) == 0 {
		return
	}
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("\n  %s:\n", title)
	for _, k := range keys {
		PrintKeyValue(k, stats[k], 28)
	}
}
