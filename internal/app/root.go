package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	backendName string
	logLevel    string

	log = newLogger()

	// RootCmd is the root command for brewmetrics
	RootCmd = &cobra.Command{
		Use:   "brewmetrics",
		Short: "Query and publish Homebrew analytics reports",
		Long: `brewmetrics queries the Homebrew analytics backend for package
installation, build-error, and OS-version event counts and formats the
results as ranked JSON or text reports.

Credentials come from the HOMEBREW_INFLUXDB_TOKEN environment variable.
Setting HOMEBREW_NO_ANALYTICS disables all queries.

Examples:
  # Top installed formulae over the last 30 days
  brewmetrics report --category install

  # Build errors for a single formula, as JSON
  brewmetrics report --category build-error --formula openssl@3 --json

  # OS version breakdown for the last year
  brewmetrics report --category os-version --days 365

  # Regenerate the full static JSON dataset for the website
  brewmetrics publish --out public/api/analytics

  # Install backend CLI dependencies without querying
  brewmetrics setup`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q", logLevel)
			}
			log.SetLevel(level)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("brewmetrics: Homebrew analytics reporting")
			fmt.Println()
			fmt.Println("Run 'brewmetrics report' to query a category.")
			fmt.Println("Run 'brewmetrics --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: ~/.config/brewmetrics/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&backendName, "backend", "influx", "analytics backend (influx or flightsql)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return logger
}

// silenceLogs discards log output, for tests.
func silenceLogs() {
	log.SetOutput(io.Discard)
}

// getDataDir returns the brewmetrics data directory, creating it if needed.
func getDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	dir := filepath.Join(home, ".brewmetrics")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create brewmetrics directory: %w", err)
	}
	return dir, nil
}
