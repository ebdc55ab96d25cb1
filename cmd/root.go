package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalnine/autograde/internal/config"
	"github.com/signalnine/autograde/internal/telemetry"
)

var (
	cfgFile   string
	logLevel  string
	traceFile string

	stopTracing = func(context.Context) error { return nil }
)

// Execute runs the root command and flushes any spans still buffered when
// the command fails before its post-run hook.
func Execute() error {
	err := NewRootCmd().Execute()
	return errors.Join(err, stopTracing(context.Background()))
}

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "autograde",
		Short:         "Grade submissions against a reference solution",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLevel(logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			if traceFile != "" {
				return startTracing(traceFile)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return stopTracing(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "message configuration file (optional)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&traceFile, "trace", "", "write OpenTelemetry spans to this file as JSON")
	root.AddCommand(newRunCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newWatchCmd())
	return root
}

// startTracing installs a stdout-exporting tracer provider writing to path.
// stopTracing flushes it and closes the file.
func startTracing(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("opening trace file: %w", err)
	}
	shutdown, err := telemetry.Install(f)
	if err != nil {
		f.Close()
		return err
	}
	stopTracing = func(ctx context.Context) error {
		stopTracing = func(context.Context) error { return nil }
		if ctx == nil {
			ctx = context.Background()
		}
		return errors.Join(shutdown(ctx), f.Close())
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid --log-level %q: %w", s, err)
	}
	return level, nil
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		if _, err := os.Stat("autograde.yaml"); err == nil {
			return config.Load("autograde.yaml")
		}
	}
	return config.Load(cfgFile)
}
