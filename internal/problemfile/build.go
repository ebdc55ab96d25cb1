package problemfile

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/signalnine/autograde/internal/checks"
	"github.com/signalnine/autograde/internal/config"
	"github.com/signalnine/autograde/internal/engine"
	"github.com/signalnine/autograde/internal/loader"
	"github.com/signalnine/autograde/internal/problem"
	"github.com/signalnine/autograde/internal/result"
)

// Definition is a problem file resolved into a problem.
type Definition struct {
	File    *File
	Path    string
	Problem *problem.Problem
	Checker *checks.Checker
	cfg     *config.Config
	reg     *loader.Registry
}

// Load reads the problem file at path and builds its problem. Golden
// scripts are resolved relative to the file; registered goldens are looked
// up in reg under the file's directory.
func Load(ctx context.Context, path string, cfg *config.Config, reg *loader.Registry) (*Definition, error) {
	f, err := Read(path)
	if err != nil {
		return nil, err
	}
	return Build(ctx, f, path, cfg, reg)
}

func Build(ctx context.Context, f *File, path string, cfg *config.Config, reg *loader.Registry) (*Definition, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if reg == nil {
		reg = loader.Default
	}
	if len(f.ScriptExts) > 0 {
		c := *cfg
		c.Problem.ScriptExts = f.ScriptExts
		cfg = &c
	}
	d := &Definition{File: f, Path: path, cfg: cfg, reg: reg}

	golden, err := d.loadGolden(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading golden for %s: %w", f.Name, err)
	}

	opts := []problem.Option{problem.WithConfig(cfg)}
	if f.Symbol != "" {
		opts = append(opts, problem.WithSymbol(f.Symbol))
	}
	if f.Script {
		opts = append(opts, problem.Script())
	}
	if f.CaptureOutput {
		opts = append(opts, problem.CaptureOutput())
	}
	if f.SimulateInput {
		opts = append(opts, problem.SimulateInput())
	}

	var shared []problem.TrialOption
	if !f.Disallow.Empty() {
		d.Checker = checks.New(f.Disallow, cfg.Test)
		shared = append(shared, problem.OverrideWith(d.Checker.Override(nil)))
	}

	b := problem.NewBuilder(f.Name, golden, opts...)
	for _, g := range f.Groups {
		if err := addTrials(b, g.Trials, shared); err != nil {
			return nil, fmt.Errorf("group %q: %w", g.Name, err)
		}
		addBonuses(b, g.Bonuses)
		var gopts []problem.GroupOption
		for _, o := range scoreOptions(g.Scoring) {
			gopts = append(gopts, o)
		}
		if g.Name != "" {
			gopts = append(gopts, problem.Named(g.Name))
		}
		b.AddGroup(gopts...)
	}
	if err := addTrials(b, f.Trials, shared); err != nil {
		return nil, err
	}
	addBonuses(b, f.Bonuses)

	p, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", f.Name, err)
	}
	d.Problem = p
	return d, nil
}

// Scripted reports whether submissions are scripts.
func (d *Definition) Scripted() bool {
	return d.File.Golden != ""
}

// Points is the problem's default budget.
func (d *Definition) Points() float64 {
	if d.File.Points > 0 {
		return d.File.Points
	}
	return DefaultPoints
}

func (d *Definition) LoaderOptions() loader.Options {
	opts := loader.OptionsFromConfig(d.cfg, d.Problem.Symbol(), d.Scripted())
	opts.Registry = d.reg
	return opts
}

func (d *Definition) loadGolden(ctx context.Context) (engine.Func, error) {
	if d.File.Golden == "" {
		return d.reg.Lookup(filepath.Dir(d.Path), d.File.Symbol)
	}
	return loader.LoadScript(ctx, d.GoldenPath(), loader.OptionsFromConfig(d.cfg, "", true).Runner)
}

// GoldenPath is the golden script's path, or "" for registered goldens.
func (d *Definition) GoldenPath() string {
	return d.File.GoldenPath(d.Path)
}

// GoldenPath resolves the golden script relative to the problem file at
// path.
func (f *File) GoldenPath(path string) string {
	if f.Golden == "" || filepath.IsAbs(f.Golden) {
		return f.Golden
	}
	return filepath.Join(filepath.Dir(path), f.Golden)
}

// Grade loads the submission at path and grades it. Load errors are
// reported, not returned.
func (d *Definition) Grade(ctx context.Context, submission string, meta result.Metadata, opts ...problem.RunOption) (*result.Report, error) {
	lopts := d.LoaderOptions()
	if d.Checker != nil && lopts.Script {
		if script, err := loader.FindScript(submission, lopts.Exts); err == nil {
			ctx = checks.WithSubmission(ctx, script)
		}
	}
	load := func(ctx context.Context) (engine.Func, error) {
		return loader.Load(ctx, submission, lopts)
	}
	return d.Problem.Grade(ctx, load, meta, opts...)
}

func scoreOptions(s Scoring) []problem.ScoreOption {
	var out []problem.ScoreOption
	if s.Weight != nil {
		out = append(out, problem.Weight(*s.Weight))
	}
	if s.Value > 0 {
		out = append(out, problem.Value(s.Value))
	}
	if s.ExtraCredit > 0 {
		out = append(out, problem.ExtraCredit(s.ExtraCredit))
	}
	return out
}
