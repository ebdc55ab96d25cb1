package problem

import (
	"errors"
	"fmt"

	"github.com/signalnine/autograde/internal/config"
	"github.com/signalnine/autograde/internal/engine"
	"github.com/signalnine/autograde/internal/score"
)

// Builder collects trials, bonuses and groups for a problem. Trials and
// bonuses belong to the next AddGroup call; whatever is left when Build
// runs forms a trailing group of weight 1.
type Builder struct {
	p       *Problem
	trials  []*engine.Trial
	bonuses []*Bonus
	errs    []error
}

func NewBuilder(name string, golden engine.Func, opts ...Option) *Builder {
	p := &Problem{name: name, symbol: name, golden: golden}
	for _, opt := range opts {
		opt(p)
	}
	if p.cfg == nil {
		p.cfg = config.Default()
	}
	p.settings.CaptureOutput = p.settings.CaptureOutput || p.cfg.Problem.CaptureOutput
	p.settings.SimulateInput = p.settings.SimulateInput || p.cfg.Problem.SimulateInput
	b := &Builder{p: p}
	if golden == nil {
		b.errs = append(b.errs, fmt.Errorf("%w: problem %q has no golden implementation", ErrDefinition, name))
	}
	return b
}

// AddTrial adds a trial with the given inputs.
func (b *Builder) AddTrial(in engine.Args, opts ...TrialOption) *Builder {
	t := &engine.Trial{Args: in.Clone(), Score: score.Default}
	for _, opt := range opts {
		opt.applyTrial(t)
	}
	b.trials = append(b.trials, t)
	return b
}

// AddPipeline adds a trial that runs ops against the instance built by
// the implementation.
func (b *Builder) AddPipeline(ops []engine.Op, opts ...TrialOption) *Builder {
	if len(ops) == 0 {
		b.errs = append(b.errs, fmt.Errorf("%w: pipeline trial without operations", ErrDefinition))
		return b
	}
	t := &engine.Trial{Ops: append([]engine.Op(nil), ops...), Score: score.Default}
	for _, opt := range opts {
		opt.applyTrial(t)
	}
	b.trials = append(b.trials, t)
	return b
}

// AddTrials adds one trial per set entry. opts apply to every trial before
// the set's per-trial options.
func (b *Builder) AddTrials(set TrialSet, opts ...TrialOption) *Builder {
	if err := set.Err(); err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	for i, in := range set.inputs {
		b.AddTrial(in, append(append([]TrialOption(nil), opts...), set.each[i]...)...)
	}
	return b
}

// AddBonus adds a bonus judged by criterion after every trial has run.
func (b *Builder) AddBonus(criterion Criterion, opts ...BonusOption) *Builder {
	bonus := &Bonus{Name: "Bonus", Criterion: criterion, Score: score.Default}
	for _, opt := range opts {
		opt.applyBonus(bonus)
	}
	if criterion == nil {
		b.errs = append(b.errs, fmt.Errorf("%w: bonus %q has no criterion", ErrDefinition, bonus.Name))
		return b
	}
	b.bonuses = append(b.bonuses, bonus)
	return b
}

// AddGroup closes a group over the trials and bonuses added since the
// previous AddGroup.
func (b *Builder) AddGroup(opts ...GroupOption) *Builder {
	g := &Group{Score: score.Default}
	for _, opt := range opts {
		opt.applyGroup(g)
	}
	if g.Name == "" {
		g.Name = fmt.Sprintf("Group %d", len(b.p.groups)+1)
	}
	g.Trials, g.Bonuses = b.trials, b.bonuses
	b.trials, b.bonuses = nil, nil
	b.p.groups = append(b.p.groups, g)
	return b
}

// Build validates the definition and returns the finished problem. The
// builder must not be used afterwards.
func (b *Builder) Build() (*Problem, error) {
	p := b.p
	if len(b.trials) > 0 || len(b.bonuses) > 0 {
		p.groups = append(p.groups, &Group{
			Name:    "Other",
			Score:   score.Default,
			Trials:  b.trials,
			Bonuses: b.bonuses,
			Virtual: true,
		})
		b.trials, b.bonuses = nil, nil
	}

	errs := append([]error(nil), b.errs...)
	for _, g := range p.groups {
		if err := g.Score.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("group %q: %w", g.Name, err))
		}
		for _, t := range g.Trials {
			if t.Name == "" {
				t.Name = engine.DefaultName(p.cfg.Test, t)
			}
			if err := t.Score.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("trial %q: %w", t.Name, err))
			}
		}
		for _, bonus := range g.Bonuses {
			if err := bonus.Score.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("bonus %q: %w", bonus.Name, err))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return p, nil
}
