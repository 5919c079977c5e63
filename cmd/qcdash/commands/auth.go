package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/qcdash/internal/pipeline"
)

// authCmd verifies credentials
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Verify QuantConnect credentials",
	Long: `Calls the authenticate endpoint, then lists projects and live deployments
to confirm the account can read everything the dashboard needs.

The API token is never printed.`,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
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

	PrintDoubleSeparator()
	fmt.Printf("  Testing connection for user ID: %s\n", cfg.QC.UserID)
	PrintSeparator()

	// 1. authenticate
	if err := client.Authenticate(ctx); err != nil {
		return fail("Authentication failed: %v", err)
	}
	PrintSuccess("Authentication successful")

	// 2. projects
	projects, err := client.ListProjects(ctx)
	if err != nil {
		return fail("Failed to list projects: %v", err)
	}
	PrintSuccess(fmt.Sprintf("Found %d projects", len(projects)))
	items := make([]string, 0, len(projects))
	for _, p := range projects {
		items = append(items, fmt.Sprintf("%s (ID: %d)", p.Name, p.ID))
	}
	PrintList(items)

	// 3. live deployments
	deployments, err := client.ListAllLiveDeployments(ctx)
	if err != nil {
		return fail("Failed to list live deployments: %v", err)
	}
	PrintSuccess(fmt.Sprintf("Found %d live/paper deployments", len(deployments)))
	items = items[:0]
	for _, d := range deployments {
		items = append(items, fmt.Sprintf("%s | Status: %s | Project ID: %d", orDash(d.ProjectName), d.RawStatus, d.ProjectID))
	}
	PrintList(items)

	PrintSeparator()
	PrintInfo("Credentials are working")
	return nil
}
