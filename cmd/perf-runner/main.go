// Package main is the entry point for the perf-runner application
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/expressjs/perf-runner/cmd"
)

const (
	envFlag      = "--env"
	envFlagEqual = "--env="
)

func main() {
	// Ctrl+C cancels the context; workloads are started with it.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envFile, interactiveMode, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !interactiveMode {
		// cobra handles --env itself
		cmd.Execute(ctx)
		return
	}

	if err := cmd.LoadEnvFile(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading env file: %v\n", err)
		os.Exit(1)
	}

	cmd.InitLogger()

	if err := cmd.RunInteractive(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseArgs extracts the --env value and reports whether nothing but it was
// given, in which case interactive mode starts.
func parseArgs(args []string) (envFile string, interactiveMode bool, err error) {
	rest := 0

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == envFlag:
			if i+1 >= len(args) {
				return "", false, fmt.Errorf("%s flag requires a value", envFlag)
			}
			envFile = args[i+1]
			i++
		case strings.HasPrefix(arg, envFlagEqual):
			envFile = arg[len(envFlagEqual):]
		default:
			rest++
		}
	}

	return envFile, rest == 0, nil
}
