package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/qcdash/internal/api"
	"github.com/wonny/qcdash/internal/api/handlers"
)

var (
	servePort     string
	serveStatic   string
	serveSchedule bool
)

// serveCmd starts the local preview server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the artifact and static front end locally",
	Long: `Starts a read-only preview server over the last written artifact.
Credentials are only required with --schedule.

Endpoints:
  GET  /health              - Health check
  GET  /dashboard.json      - The artifact as written
  GET  /api/projects        - Project summaries
  GET  /api/projects/{id}   - One project entry
  GET  /api/jobs            - Scheduler stats (with --schedule)
  GET  /*                   - Static front end (with --static)

Example:
  go run ./cmd/qcdash serve --static site
  go run ./cmd/qcdash serve --port 8089 --schedule`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "", "preview server port (overrides PORT)")
	serveCmd.Flags().StringVar(&serveStatic, "static", "", "static front-end directory (overrides STATIC_DIR)")
	serveCmd.Flags().BoolVar(&serveSchedule, "schedule", false, "also refresh the artifact on SCHEDULE")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return fail("config: %v", err)
	}
	if servePort != "" {
		cfg.Port = servePort
	}
	if serveStatic != "" {
		cfg.StaticDir = serveStatic
	}

	rc := api.RouterConfig{
		Dashboard: handlers.NewDashboardHandler(cfg.Pipeline.OutputPath, log),
		StaticDir: cfg.StaticDir,
	}

	if serveSchedule {
		sched, closeFn, err := newScheduler(cfg, log)
		if err != nil {
			return fail("init scheduler: %v", err)
		}
		defer closeFn()

		sched.Start()
		defer sched.Stop()
		rc.Jobs = handlers.NewJobsHandler(sched)
	}

	server := api.New(cfg, log, api.NewRouter(rc, log))

	ctx, cancel := signalContext()
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Printf("   Artifact: %s\n", cfg.Pipeline.OutputPath)
	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case err := <-errCh:
		if err != nil {
			return fail("server: %v", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown with timeout
	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fail("server shutdown failed: %v", err)
	}

	log.Info("Server stopped")
	return nil
}
