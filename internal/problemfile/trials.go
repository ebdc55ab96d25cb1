package problemfile

import (
	"fmt"

	"github.com/signalnine/autograde/internal/engine"
	"github.com/signalnine/autograde/internal/problem"
)

func addTrials(b *problem.Builder, defs []Trial, shared []problem.TrialOption) error {
	for i := range defs {
		t := &defs[i]
		opts, err := t.options()
		if err != nil {
			return fmt.Errorf("trial %d: %w", i+1, err)
		}
		opts = append(append([]problem.TrialOption(nil), shared...), opts...)

		switch {
		case t.Pipeline != nil:
			b.AddPipeline(t.ops(), opts...)
		case t.Args != nil || t.Kwargs != nil:
			b.AddTrial(engine.Args{Pos: t.Args, Kw: t.Kwargs}, opts...)
		default:
			b.AddTrials(t.set(), opts...)
		}
	}
	return nil
}

func (t *Trial) options() ([]problem.TrialOption, error) {
	var opts []problem.TrialOption
	for _, o := range scoreOptions(t.Scoring) {
		opts = append(opts, o)
	}
	if t.Name != "" {
		opts = append(opts, problem.Named(t.Name))
	}
	if t.Description != "" {
		opts = append(opts, problem.Described(t.Description))
	}
	if t.Hidden {
		opts = append(opts, problem.Hidden())
	}
	if !t.Expect.IsZero() {
		var v any
		if err := t.Expect.Decode(&v); err != nil {
			return nil, fmt.Errorf("decoding expect: %w", err)
		}
		opts = append(opts, problem.Expect(v))
	}
	if t.ExpectOutput != nil {
		opts = append(opts, problem.ExpectOutput(*t.ExpectOutput))
	}
	if t.ExpectLines != nil {
		opts = append(opts, problem.ExpectLines(t.ExpectLines...))
	}
	return opts, nil
}

func (t *Trial) set() problem.TrialSet {
	var set problem.TrialSet
	switch {
	case t.Zip != nil || t.ZipKwargs != nil:
		set = problem.ZipNamed(t.Zip, t.ZipKwargs)
	case t.Product != nil || t.ProductKwargs != nil:
		set = problem.ProductNamed(t.Product, t.ProductKwargs)
	default:
		sets := make([]engine.Args, len(t.Params))
		for i, p := range t.Params {
			sets[i] = engine.Positional(p...)
		}
		set = problem.Params(sets...)
	}

	var each []problem.EachOption
	if t.ExpectEach != nil {
		each = append(each, problem.ExpectEach(t.ExpectEach...))
	}
	if t.ExpectOutputEach != nil {
		each = append(each, problem.ExpectOutputEach(t.ExpectOutputEach...))
	}
	if t.NameEach != nil {
		each = append(each, problem.NameEach(t.NameEach...))
	}
	if t.DescriptionEach != nil {
		each = append(each, problem.DescriptionEach(t.DescriptionEach...))
	}
	if t.HiddenEach != nil {
		each = append(each, problem.HiddenEach(t.HiddenEach...))
	}
	return set.With(each...)
}

func (t *Trial) hasEach() bool {
	return t.ExpectEach != nil || t.ExpectOutputEach != nil || t.NameEach != nil ||
		t.DescriptionEach != nil || t.HiddenEach != nil
}

func (t *Trial) ops() []engine.Op {
	ops := make([]engine.Op, len(t.Pipeline))
	for i, op := range t.Pipeline {
		switch op.Op {
		case "construct":
			ops[i] = engine.Construct(op.Args...)
		case "call":
			ops[i] = engine.Call(op.Name, op.Args...)
		case "get":
			ops[i] = engine.Get(op.Path...)
		}
	}
	return ops
}

func addBonuses(b *problem.Builder, defs []Bonus) {
	for _, def := range defs {
		var opts []problem.BonusOption
		for _, o := range scoreOptions(def.Scoring) {
			opts = append(opts, o)
		}
		if def.Name != "" {
			opts = append(opts, problem.Named(def.Name))
		}
		if def.Description != "" {
			opts = append(opts, problem.Described(def.Description))
		}
		if def.Hidden {
			opts = append(opts, problem.Hidden())
		}
		b.AddBonus(def.criterion(), opts...)
	}
}

func (def *Bonus) criterion() problem.Criterion {
	switch def.Criterion {
	case "all_correct":
		return problem.AllCorrect
	case "on_time":
		return problem.OnTime
	case "correct_and_on_time":
		return problem.CorrectAndOnTime
	case "resubmission":
		return problem.ResubmissionPenalty(def.Steps, def.Floor)
	default:
		return nil
	}
}
