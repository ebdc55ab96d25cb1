package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalnine/autograde/internal/report"
)

var (
	reportFormat     string
	reportResultsDir string
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [run-dir]",
		Short: "Summarize stored reports",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runDir, err := resolveRunDir(args, reportResultsDir)
			if err != nil {
				return err
			}
			return report.Generate(runDir, reportFormat, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&reportFormat, "format", "table", "output format (table, markdown, json)")
	cmd.Flags().StringVar(&reportResultsDir, "results-dir", "results", "base directory holding run directories and the latest link")
	return cmd
}

// resolveRunDir picks the explicit run directory if given, otherwise the
// latest run under base, and follows symlinks.
func resolveRunDir(args []string, base string) (string, error) {
	runDir := filepath.Join(base, "latest")
	if len(args) > 0 {
		runDir = args[0]
	}
	resolved, err := filepath.EvalSymlinks(runDir)
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	return resolved, nil
}
