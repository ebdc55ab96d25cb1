package problem

import (
	"github.com/signalnine/autograde/internal/config"
	"github.com/signalnine/autograde/internal/engine"
	"github.com/signalnine/autograde/internal/score"
)

// TrialOption configures a trial.
type TrialOption interface {
	applyTrial(*engine.Trial)
}

// GroupOption configures a group.
type GroupOption interface {
	applyGroup(*Group)
}

// BonusOption configures a bonus.
type BonusOption interface {
	applyBonus(*Bonus)
}

type trialFunc func(*engine.Trial)

func (f trialFunc) applyTrial(t *engine.Trial) { f(t) }

// ScoreOption sets one part of a score spec on a trial, group or bonus.
type ScoreOption func(*score.Spec)

func (o ScoreOption) applyTrial(t *engine.Trial) { o(&t.Score) }
func (o ScoreOption) applyGroup(g *Group)        { o(&g.Score) }
func (o ScoreOption) applyBonus(b *Bonus)        { o(&b.Score) }

// Weight claims a share of whatever the pool has left after values.
func Weight(w int) ScoreOption { return func(s *score.Spec) { s.Weight = w } }

// Value claims a fixed number of points from the pool.
func Value(v float64) ScoreOption { return func(s *score.Spec) { s.Value = v } }

// ExtraCredit adds points on top of the pool.
func ExtraCredit(v float64) ScoreOption { return func(s *score.Spec) { s.Bonus = v } }

// NameOption sets the display name of a trial, group or bonus.
type NameOption string

func (o NameOption) applyTrial(t *engine.Trial) { t.Name = string(o) }
func (o NameOption) applyGroup(g *Group)        { g.Name = string(o) }
func (o NameOption) applyBonus(b *Bonus)        { b.Name = string(o) }

func Named(name string) NameOption { return NameOption(name) }

type descriptionOption string

func (o descriptionOption) applyTrial(t *engine.Trial) { t.Description = string(o) }
func (o descriptionOption) applyBonus(b *Bonus)        { b.Description = string(o) }

// Described sets the longer text shown under a trial or bonus name.
func Described(desc string) interface {
	TrialOption
	BonusOption
} {
	return descriptionOption(desc)
}

type hiddenOption bool

func (o hiddenOption) applyTrial(t *engine.Trial) { t.Hidden = bool(o) }
func (o hiddenOption) applyBonus(b *Bonus)        { b.Hidden = bool(o) }

// Hidden keeps a trial's or bonus's details from the student.
func Hidden() interface {
	TrialOption
	BonusOption
} {
	return hiddenOption(true)
}

// Expect declares the value the golden implementation must return.
func Expect(v any) TrialOption {
	return trialFunc(func(t *engine.Trial) {
		t.Expect = v
		t.HasExpect = true
	})
}

// ExpectOutput declares the exact text the golden implementation prints.
func ExpectOutput(out string) TrialOption {
	return trialFunc(func(t *engine.Trial) { t.ExpectOutput = out })
}

// ExpectLines declares the golden output line by line.
func ExpectLines(lines ...string) TrialOption {
	return trialFunc(func(t *engine.Trial) { t.ExpectOutput = append([]string{}, lines...) })
}

// CompareWith replaces the value comparison for a trial.
func CompareWith(c engine.ComparisonOverride) TrialOption {
	return trialFunc(func(t *engine.Trial) { t.Compare = c })
}

// OverrideWith replaces the whole run of a trial.
func OverrideWith(o engine.ExecutionOverride) TrialOption {
	return trialFunc(func(t *engine.Trial) { t.Override = o })
}

// Option configures a problem.
type Option func(*Problem)

// CaptureOutput compares what both sides print.
func CaptureOutput() Option {
	return func(p *Problem) { p.settings.CaptureOutput = true }
}

// SimulateInput feeds trial inputs through Console.Input.
func SimulateInput() Option {
	return func(p *Problem) { p.settings.SimulateInput = true }
}

// Script marks the problem as a script problem: output is captured, input
// is simulated and submissions are loaded as scripts.
func Script() Option {
	return func(p *Problem) {
		p.settings.CaptureOutput = true
		p.settings.SimulateInput = true
		p.script = true
	}
}

// WithConfig sets the message templates and defaults.
func WithConfig(cfg *config.Config) Option {
	return func(p *Problem) { p.cfg = cfg }
}

// WithSymbol names the symbol submissions must define. Defaults to the
// problem name.
func WithSymbol(symbol string) Option {
	return func(p *Problem) { p.symbol = symbol }
}
