package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/expressjs/perf-runner/internal/record"
	"github.com/expressjs/perf-runner/internal/report"
	"github.com/spf13/cobra"
)

const comparisonHeading = "## 📊 Performance Comparison"

var compareFolder string

var compareCmd = &cobra.Command{
	Use:   "compare <latest.json> <candidate.json>",
	Short: "Compare two persisted result files",
	Long: `Compare two result files written by a previous run and print the comparison
table. No sandbox is prepared and no workload is run. The section heading is
taken from the candidate file name unless --folder is given.

Example:
  perf-runner compare /tmp/perf-test-latest-hello-world/result-latest-hello-world-1718000000000.json \
    /tmp/perf-test-candidate-hello-world/result-candidate-hello-world-1718000042000.json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printComparison(cmd.OutOrStdout(), args[0], args[1], compareFolder)
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVar(&compareFolder, "folder", "", "Section heading (default: the folder named in the candidate file name)")
}

// folderFromFilename recovers the test folder from a conventional result file
// name, or returns "" when the name does not follow the convention.
func folderFromFilename(path string) string {
	_, folder, _, err := record.ParseFilename(path)
	if err != nil {
		return ""
	}

	return folder
}

func printComparison(w io.Writer, latestPath, candidatePath, folder string) error {
	latest, err := record.Load(latestPath)
	if err != nil {
		return err
	}

	candidate, err := record.Load(candidatePath)
	if err != nil {
		return err
	}

	if folder == "" {
		folder = folderFromFilename(candidatePath)
	}

	section := report.BuildSection(report.NewRenderer(), folder, latest, candidate)

	var sb strings.Builder
	sb.WriteString("\n" + comparisonHeading + "\n\n")

	if folder != "" {
		sb.WriteString(section.Render())
	} else {
		sb.WriteString(section.Body())
	}

	_, err = fmt.Fprint(w, sb.String())

	return err
}
