package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/signalnine/autograde/internal/loader"
	"github.com/signalnine/autograde/internal/metrics"
	"github.com/signalnine/autograde/internal/problem"
	"github.com/signalnine/autograde/internal/problemfile"
	"github.com/signalnine/autograde/internal/report"
	"github.com/signalnine/autograde/internal/result"
	"github.com/signalnine/autograde/internal/runner"
)

var (
	flagSubmissions []string
	flagMetadata    string
	flagPoints      float64
	flagFormat      string
	flagOut         string
	flagResultsDir  string
	flagParallel    int
	flagMetricsFile string
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run PROBLEM.yaml",
		Short: "Grade one or more submissions",
		Args:  cobra.ExactArgs(1),
		RunE:  runGrade,
	}
	cmd.Flags().StringSliceVar(&flagSubmissions, "submission", nil, "submission file or directory (repeatable)")
	cmd.Flags().StringVar(&flagMetadata, "metadata", "", "submission_metadata.json")
	cmd.Flags().Float64Var(&flagPoints, "points", 0, "override the problem's total points")
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown, json, gradescope, pretty)")
	cmd.Flags().StringVar(&flagOut, "out", "", "write the report to a file instead of stdout")
	cmd.Flags().StringVar(&flagResultsDir, "results-dir", "", "store reports under DIR/runs")
	cmd.Flags().IntVar(&flagParallel, "parallel", 0, "max concurrent trials, or submissions when grading several")
	cmd.Flags().StringVar(&flagMetricsFile, "metrics-file", "", "write Prometheus metrics in textfile format")
	cmd.MarkFlagRequired("submission")
	return cmd
}

func runGrade(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	def, err := problemfile.Load(ctx, args[0], cfg, loader.Default)
	if err != nil {
		return err
	}

	var meta result.Metadata
	if flagMetadata != "" {
		if meta, err = result.ReadMetadata(flagMetadata); err != nil {
			return err
		}
	}
	meta.TotalPoints = resolvePoints(flagPoints, meta.TotalPoints, def.Points())
	workers := workerCount(flagParallel, cfg.Problem.Workers)

	var rec *metrics.Recorder
	if flagMetricsFile != "" {
		rec = metrics.New()
	}

	var runDir string
	if flagResultsDir != "" || len(flagSubmissions) > 1 {
		base := flagResultsDir
		if base == "" {
			base = "results"
		}
		if runDir, err = result.CreateRunDir(base); err != nil {
			return err
		}
		slog.Info("storing reports", "run_dir", runDir)
	}

	out, closeOut, err := openOutput(cmd)
	if err != nil {
		return err
	}
	defer closeOut()

	if len(flagSubmissions) == 1 {
		rep, err := gradeOne(ctx, def, flagSubmissions[0], meta, runDir, trialOptions(workers, rec)...)
		if err != nil {
			return err
		}
		writeMetrics(rec)
		return report.Write(rep, flagFormat, out)
	}

	// Several submissions run side by side, each with serial trials.
	jobs := make([]runner.Job, len(flagSubmissions))
	for i, sub := range flagSubmissions {
		jobs[i] = func(ctx context.Context) error {
			slog.Info("grading", "submission", sub)
			_, err := gradeOne(ctx, def, sub, meta, runDir, trialOptions(1, rec)...)
			return err
		}
	}
	errs := runner.RunPool(ctx, max(workers, 1), jobs)
	for i, err := range errs {
		if err != nil {
			slog.Error("grading failed", "submission", flagSubmissions[i], "error", err)
		}
	}
	writeMetrics(rec)
	if err := report.Generate(runDir, summaryFormat(flagFormat), out); err != nil {
		return err
	}
	if failed := runner.Failed(errs); len(failed) > 0 {
		return fmt.Errorf("%d of %d submissions could not be graded", len(failed), len(errs))
	}
	return nil
}

func gradeOne(ctx context.Context, def *problemfile.Definition, submission string, meta result.Metadata, runDir string, opts ...problem.RunOption) (*result.Report, error) {
	rep, err := def.Grade(ctx, submission, meta, opts...)
	if err != nil {
		return nil, fmt.Errorf("grading %s: %w", submission, err)
	}
	if runDir != "" {
		if err := result.WriteReport(result.SubmissionDir(runDir, submission), rep); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

func trialOptions(workers int, rec *metrics.Recorder) []problem.RunOption {
	opts := []problem.RunOption{problem.WithLogger(slog.Default())}
	if workers > 1 {
		opts = append(opts, problem.WithWorkers(workers), problem.ConcurrentSubmission())
	}
	if rec != nil {
		opts = append(opts, problem.WithMetrics(rec))
	}
	return opts
}

func writeMetrics(rec *metrics.Recorder) {
	if rec == nil {
		return
	}
	if err := rec.WriteTextfile(flagMetricsFile); err != nil {
		slog.Warn("could not write metrics", "path", flagMetricsFile, "error", err)
	}
}

func openOutput(cmd *cobra.Command) (io.Writer, func(), error) {
	if flagOut == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(flagOut)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// resolvePoints picks the grading budget: the flag, then the submission
// metadata, then the problem file.
func resolvePoints(flag, fromMeta, fromFile float64) float64 {
	switch {
	case flag > 0:
		return flag
	case fromMeta > 0:
		return fromMeta
	default:
		return fromFile
	}
}

func workerCount(flag, fromConfig int) int {
	if flag > 0 {
		return flag
	}
	return fromConfig
}

// summaryFormat maps a per-report format onto one the run summary supports.
func summaryFormat(format string) string {
	switch format {
	case "markdown", "json":
		return format
	case "gradescope":
		return "json"
	default:
		return "table"
	}
}
