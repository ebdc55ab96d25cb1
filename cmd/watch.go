package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/signalnine/autograde/internal/config"
	"github.com/signalnine/autograde/internal/problemfile"
)

const watchDebounce = 200 * time.Millisecond

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch PROBLEM.yaml",
		Short: "Re-run check whenever the problem file or golden script changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return watchProblem(ctx, args[0], cfg, cmd.OutOrStdout())
		},
	}
}

// watchProblem checks once, then again after every change to the problem
// file or its golden script, until ctx is done. Directories are watched
// rather than files so editors that replace files on save are seen.
func watchProblem(ctx context.Context, path string, cfg *config.Config, w io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	targets := map[string]bool{}
	watch := func(file string) error {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		if targets[abs] {
			return nil
		}
		targets[abs] = true
		return watcher.Add(filepath.Dir(abs))
	}
	if err := watch(path); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	recheck := func() {
		if err := checkProblem(ctx, path, cfg, w); err != nil {
			fmt.Fprintf(w, "%v\n", err)
		}
		if golden := goldenPath(path); golden != "" {
			if err := watch(golden); err != nil {
				slog.Warn("could not watch golden script", "path", golden, "error", err)
			}
		}
	}
	recheck()

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			abs, _ := filepath.Abs(event.Name)
			if !targets[abs] {
				continue
			}
			slog.Debug("change detected", "path", abs, "op", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			fmt.Fprintf(w, "\n--- %s ---\n", time.Now().Format(time.TimeOnly))
			recheck()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

// goldenPath resolves the golden script of a problem file, or "" when the
// file cannot be read or uses a registered golden.
func goldenPath(path string) string {
	f, err := problemfile.Read(path)
	if err != nil {
		return ""
	}
	return f.GoldenPath(path)
}
