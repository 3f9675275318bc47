// Package cmd contains CLI command definitions
package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/expressjs/perf-runner/internal/config"
	"github.com/expressjs/perf-runner/internal/fixture"
	"github.com/expressjs/perf-runner/internal/interactive"
	"github.com/spf13/cobra"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Launch interactive mode",
	Long:  `Pick test folders and a failure policy from menus, then run the comparison.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return RunInteractive(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

// RunInteractive shows the main menu until the user exits.
func RunInteractive(ctx context.Context) error {
	fmt.Println("perf-runner - Interactive Mode")
	fmt.Println("==============================")
	fmt.Println()

	for {
		options := []interactive.MenuOption{
			{
				Name:        "▶️  Run All",
				Description: "Compare every test folder",
				Action: func() error {
					interactiveRun(ctx, nil, "")
					return nil
				},
			},
			{
				Name:        "🧪 Select Folders",
				Description: "Choose test folders and a failure policy, then compare",
				Action: func() error {
					folders, policy, err := chooseRun()
					if err != nil {
						if errors.Is(err, interactive.ErrExit) {
							return nil
						}
						fmt.Printf("\n❌ Error: %v\n", err)
						interactive.PauseForEnter()
						return nil
					}

					if !interactive.Confirm(fmt.Sprintf("Compare %d folder(s) with %s?", len(folders), policy)) {
						fmt.Println("Run canceled.")
						interactive.PauseForEnter()
						return nil
					}

					interactiveRun(ctx, folders, policy)
					return nil
				},
			},
			{
				Name:        "📋 Show Config",
				Description: "Display current environment configuration",
				Action: func() error {
					if err := showConfig(); err != nil {
						fmt.Printf("\n❌ Error: %v\n", err)
					}
					interactive.PauseForEnter()
					return nil
				},
			},
		}

		if err := interactive.ShowMainMenu(options); err != nil {
			if errors.Is(err, interactive.ErrExit) {
				fmt.Println("Goodbye!")
				return nil
			}
			return err
		}

		fmt.Println()
	}
}

// chooseRun asks for the folders and the failure policy of a run.
func chooseRun() ([]string, string, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, "", err
	}

	loader := fixture.NewLoader(Logger, filepath.Join(cfg.CandidatePath, cfg.TestDir), fixture.Defaults{
		Connections: cfg.Connections,
		Duration:    cfg.Duration,
		Workload:    cfg.WorkloadScript,
	})

	discovered, err := loader.Discover()
	if err != nil {
		return nil, "", err
	}

	folders, err := interactive.SelectFolders(discovered)
	if err != nil {
		return nil, "", err
	}

	current, err := config.ParseFailurePolicy(string(cfg.FailurePolicy))
	if err != nil {
		current = config.FailFast
	}

	policy, err := interactive.SelectOne("Failure policy", []string{
		string(config.FailFast),
		string(config.BestEffort),
	}, string(current))
	if err != nil {
		return nil, "", err
	}

	return folders, policy, nil
}

func interactiveRun(ctx context.Context, folders []string, policy string) {
	if err := runComparison(ctx, folders, runSettings{failurePolicy: policy}); err != nil {
		fmt.Printf("\n❌ Error: %v\n", err)
	}

	interactive.PauseForEnter()
}
