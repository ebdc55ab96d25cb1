package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/signalnine/autograde/internal/config"
	"github.com/signalnine/autograde/internal/loader"
	"github.com/signalnine/autograde/internal/problem"
	"github.com/signalnine/autograde/internal/problemfile"
)

var errCheckFailed = errors.New("golden solution failed its own trials")

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check PROBLEM.yaml",
		Short: "Validate the golden solution against the declared expectations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return checkProblem(cmd.Context(), args[0], cfg, cmd.OutOrStdout())
		},
	}
}

// checkProblem loads the problem file and runs the golden solution against
// every trial with an expectation, printing one line per failure.
func checkProblem(ctx context.Context, path string, cfg *config.Config, w io.Writer) error {
	def, err := problemfile.Load(ctx, path, cfg, loader.Default)
	if err != nil {
		return err
	}
	err = def.Problem.Check(ctx)
	if err == nil {
		fmt.Fprintf(w, "ok: %s (%d trials)\n", def.Problem.Name(), len(def.Problem.Trials()))
		return nil
	}
	failures := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		failures = joined.Unwrap()
	}
	for _, f := range failures {
		var ce *problem.CheckError
		if errors.As(f, &ce) {
			fmt.Fprintf(w, "FAIL %s\n%s\n\n", ce.Trial, ce.Message)
			continue
		}
		fmt.Fprintf(w, "FAIL %v\n", f)
	}
	return fmt.Errorf("%s: %w (%d failures)", def.Problem.Name(), errCheckFailed, len(failures))
}
