package loader

import (
	"context"
	"log/slog"

	"github.com/signalnine/autograde/internal/config"
	"github.com/signalnine/autograde/internal/engine"
)

// Options describe what a submission is expected to contain.
type Options struct {
	// Symbol is the registered name to look up for function submissions.
	Symbol string
	// Script loads the single script in the directory instead.
	Script   bool
	Exts     []string
	Registry *Registry
	Runner   ScriptOptions
}

// OptionsFromConfig fills the script settings from cfg.
func OptionsFromConfig(cfg *config.Config, symbol string, script bool) Options {
	return Options{
		Symbol: symbol,
		Script: script,
		Exts:   cfg.Problem.ScriptExts,
		Runner: ScriptOptions{
			Interpreters: cfg.Runner.Interpreters,
			Image:        cfg.Runner.Image,
			Timeout:      cfg.Runner.Timeout,
		},
	}
}

// Load loads the submission at path, a directory or a single script.
func Load(ctx context.Context, path string, opts Options) (engine.Func, error) {
	if !opts.Script {
		reg := opts.Registry
		if reg == nil {
			reg = Default
		}
		return reg.Lookup(path, opts.Symbol)
	}
	script, err := FindScript(path, opts.Exts)
	if err != nil {
		return nil, err
	}
	slog.Debug("loading script", slog.String("path", script))
	return LoadScript(ctx, script, opts.Runner)
}
