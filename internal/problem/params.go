package problem

import (
	"errors"
	"fmt"
	"slices"

	"github.com/signalnine/autograde/internal/engine"
)

var (
	// ErrDefinition wraps every problem authoring error.
	ErrDefinition = errors.New("invalid problem definition")

	ErrEmptyTrialSet  = fmt.Errorf("%w: trial set is empty", ErrDefinition)
	ErrColumnMismatch = fmt.Errorf("%w: zipped inputs have different lengths", ErrDefinition)
	ErrEachLength     = fmt.Errorf("%w: per-trial option length differs from the trial set", ErrDefinition)
)

// TrialSet is a generated batch of trial inputs with optional per-trial
// options. Build one with Zip, Product, Params or SingularParams.
type TrialSet struct {
	inputs []engine.Args
	each   [][]TrialOption
	err    error
}

func (s TrialSet) Len() int {
	return len(s.inputs)
}

// Err is the definition error found while generating the set, if any.
func (s TrialSet) Err() error {
	return s.err
}

// Inputs returns a copy of the generated inputs.
func (s TrialSet) Inputs() []engine.Args {
	out := make([]engine.Args, len(s.inputs))
	for i, in := range s.inputs {
		out[i] = in.Clone()
	}
	return out
}

func newSet(inputs []engine.Args, err error) TrialSet {
	if err == nil && len(inputs) == 0 {
		err = ErrEmptyTrialSet
	}
	return TrialSet{inputs: inputs, each: make([][]TrialOption, len(inputs)), err: err}
}

// Zip pairs up the i-th value of every column into one trial.
func Zip(cols ...[]any) TrialSet {
	return ZipNamed(cols, nil)
}

// ZipNamed is Zip with named columns passed as keyword inputs. All columns,
// positional and named, must have the same length.
func ZipNamed(cols [][]any, named map[string][]any) TrialSet {
	keys := sortedKeys(named)
	n := -1
	for _, col := range cols {
		if n >= 0 && len(col) != n {
			return newSet(nil, ErrColumnMismatch)
		}
		n = len(col)
	}
	for _, k := range keys {
		if n >= 0 && len(named[k]) != n {
			return newSet(nil, ErrColumnMismatch)
		}
		n = len(named[k])
	}

	var inputs []engine.Args
	for i := 0; i < n; i++ {
		in := engine.Args{}
		for _, col := range cols {
			in.Pos = append(in.Pos, col[i])
		}
		for _, k := range keys {
			if in.Kw == nil {
				in.Kw = make(map[string]any, len(keys))
			}
			in.Kw[k] = named[k][i]
		}
		inputs = append(inputs, in)
	}
	return newSet(inputs, nil)
}

// Product makes one trial per combination of column values, varying the
// last column fastest.
func Product(cols ...[]any) TrialSet {
	return ProductNamed(cols, nil)
}

// ProductNamed is Product over positional columns followed by named
// columns in key order.
func ProductNamed(cols [][]any, named map[string][]any) TrialSet {
	keys := sortedKeys(named)
	if len(cols) == 0 && len(keys) == 0 {
		return newSet(nil, nil)
	}
	all := append(slices.Clone(cols), make([][]any, len(keys))...)
	for i, k := range keys {
		all[len(cols)+i] = named[k]
	}

	var inputs []engine.Args
	for _, combo := range cartesian(all) {
		in := engine.Args{Pos: combo[:len(cols):len(cols)]}
		if len(keys) > 0 {
			in.Kw = make(map[string]any, len(keys))
			for i, k := range keys {
				in.Kw[k] = combo[len(cols)+i]
			}
		}
		inputs = append(inputs, in)
	}
	return newSet(inputs, nil)
}

func cartesian(cols [][]any) [][]any {
	out := [][]any{{}}
	for _, col := range cols {
		next := make([][]any, 0, len(out)*len(col))
		for _, prefix := range out {
			for _, v := range col {
				next = append(next, append(slices.Clone(prefix), v))
			}
		}
		out = next
	}
	return out
}

// Params makes one trial per argument set.
func Params(sets ...engine.Args) TrialSet {
	inputs := make([]engine.Args, len(sets))
	for i, s := range sets {
		inputs[i] = s.Clone()
	}
	return newSet(inputs, nil)
}

// SingularParams makes one single-argument trial per value.
func SingularParams(vals ...any) TrialSet {
	inputs := make([]engine.Args, len(vals))
	for i, v := range vals {
		inputs[i] = engine.Positional(v)
	}
	return newSet(inputs, nil)
}

// EachOption supplies one option per trial of a set.
type EachOption struct {
	label string
	opts  []TrialOption
}

// With attaches per-trial options. Every EachOption must have exactly one
// entry per trial.
func (s TrialSet) With(each ...EachOption) TrialSet {
	if s.err != nil {
		return s
	}
	out := TrialSet{inputs: s.inputs, each: make([][]TrialOption, len(s.inputs))}
	for i := range s.each {
		out.each[i] = slices.Clone(s.each[i])
	}
	for _, e := range each {
		if len(e.opts) != len(s.inputs) {
			out.err = fmt.Errorf("%w: %s has %d entries for %d trials", ErrEachLength, e.label, len(e.opts), len(s.inputs))
			return out
		}
		for i, opt := range e.opts {
			out.each[i] = append(out.each[i], opt)
		}
	}
	return out
}

func ExpectEach(vals ...any) EachOption {
	opts := make([]TrialOption, len(vals))
	for i, v := range vals {
		opts[i] = Expect(v)
	}
	return EachOption{label: "ExpectEach", opts: opts}
}

func ExpectOutputEach(outs ...string) EachOption {
	opts := make([]TrialOption, len(outs))
	for i, o := range outs {
		opts[i] = ExpectOutput(o)
	}
	return EachOption{label: "ExpectOutputEach", opts: opts}
}

func NameEach(names ...string) EachOption {
	opts := make([]TrialOption, len(names))
	for i, n := range names {
		opts[i] = Named(n)
	}
	return EachOption{label: "NameEach", opts: opts}
}

func DescriptionEach(descs ...string) EachOption {
	opts := make([]TrialOption, len(descs))
	for i, d := range descs {
		opts[i] = Described(d)
	}
	return EachOption{label: "DescriptionEach", opts: opts}
}

func HiddenEach(hidden ...bool) EachOption {
	opts := make([]TrialOption, len(hidden))
	for i, h := range hidden {
		opts[i] = hiddenOption(h)
	}
	return EachOption{label: "HiddenEach", opts: opts}
}

func sortedKeys(m map[string][]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
