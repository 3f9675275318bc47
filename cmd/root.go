package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Logger is the shared logger instance for all commands
	Logger *logrus.Logger

	envFile string

	rootCmd = &cobra.Command{
		Use:   "perf-runner",
		Short: "perf-runner - performance regression harness for Node.js packages",
		Long: `perf-runner installs the published and the candidate build of a package into
fresh sandboxes, runs the same workload against both and reports the difference.

Run without arguments to launch interactive mode, or use subcommands for direct operations.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := LoadEnvFile(envFile); err != nil {
				return err
			}

			InitLogger()

			return nil
		},
	}
)

// Execute runs the root command
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// InitLogger (re)builds the shared logger from LOG_LEVEL.
func InitLogger() {
	Logger = newLogger(false)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "Environment file to load (default .env when present)")

	InitLogger()
}
