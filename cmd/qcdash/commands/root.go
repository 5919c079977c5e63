package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/qcdash/pkg/config"
	"github.com/wonny/qcdash/pkg/logger"
)

var (
	// Global flags
	verbose    bool
	outputPath string
)

// rootCmd runs a single fetch when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "qcdash",
	Short: "QuantConnect performance dashboard fetcher",
	Long: `qcdash fetches backtest and live results from the QuantConnect API,
derives the dashboard metrics and writes one JSON artifact for a static page.

Credentials come from QC_USER_ID and QC_API_TOKEN (environment or .env).

Usage:
  go run ./cmd/qcdash [command]

Examples:
  go run ./cmd/qcdash
  go run ./cmd/qcdash fetch --output site/data/dashboard.json
  go run ./cmd/qcdash auth
  go run ./cmd/qcdash live
  go run ./cmd/qcdash schedule
  go run ./cmd/qcdash serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runFetch,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "artifact path (overrides OUTPUT_PATH)")
}

// loadConfig reads config and applies global flag overrides
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	if verbose {
		cfg.LogLevel = "debug"
	}
	if outputPath != "" {
		cfg.Pipeline.OutputPath = outputPath
	}

	return cfg, logger.New(cfg), nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func fail(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	PrintError(msg)
	return errors.New(msg)
}
