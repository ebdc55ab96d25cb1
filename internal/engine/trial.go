package engine

import (
	"strings"

	"github.com/signalnine/autograde/internal/config"
	"github.com/signalnine/autograde/internal/score"
)

// Func is a gradable implementation. Functions read their inputs from in,
// scripts ignore in and talk to con. For pipeline trials the Func is the
// constructor of the instance the operations run against.
type Func func(con *Console, in Args) (any, error)

// ComparisonOverride replaces the default value comparison for one trial.
// It fails by returning an error or by recording failures on tc.
type ComparisonOverride func(tc *TrialContext, expected, actual any) error

// ExecutionOverride replaces the whole run-and-compare step for one trial.
type ExecutionOverride func(tc *TrialContext, golden, submission Func) error

// Mode selects how an implementation is invoked.
type Mode int

const (
	DirectCall Mode = iota
	SimulatedInput
	Pipeline
)

func (m Mode) String() string {
	switch m {
	case SimulatedInput:
		return "simulated-input"
	case Pipeline:
		return "pipeline"
	default:
		return "direct-call"
	}
}

// Trial is one test case. It is not modified once a problem is built.
type Trial struct {
	Name        string
	Description string
	Args        Args
	// Ops makes this a pipeline trial when non-empty.
	Ops []Op

	Expect    any
	HasExpect bool
	// ExpectOutput is nil, a string compared verbatim, or a []string
	// compared line by line.
	ExpectOutput any

	Hidden   bool
	Score    score.Spec
	Compare  ComparisonOverride
	Override ExecutionOverride
}

// IsPipeline reports whether the trial runs a sequence of operations.
func (t *Trial) IsPipeline() bool {
	return len(t.Ops) > 0
}

// Mode returns the invocation mode given the problem's input setting;
// pipeline trials ignore simulated input.
func (t *Trial) Mode(simulateInput bool) Mode {
	switch {
	case t.IsPipeline():
		return Pipeline
	case simulateInput:
		return SimulatedInput
	default:
		return DirectCall
	}
}

// HasExpectations reports whether golden validation applies.
func (t *Trial) HasExpectations() bool {
	return t.HasExpect || t.ExpectOutput != nil
}

// InputText renders the trial's inputs for feedback messages.
func (t *Trial) InputText(mode Mode) string {
	switch mode {
	case Pipeline:
		return opsText(t.Ops)
	case SimulatedInput:
		return Positional(anySlice(t.Args.Strings())...).positional()
	default:
		return t.Args.String()
	}
}

// DefaultName renders the name_fmt template for a trial without a name.
func DefaultName(msgs config.TestMessages, t *Trial) string {
	args, kwargs := t.Args.positional(), t.Args.named()
	if t.IsPipeline() {
		args, kwargs = opsText(t.Ops), ""
	}
	sep := ""
	if args != "" && kwargs != "" {
		sep = msgs.NameSep
	}
	return config.Render(msgs.NameFormat, map[string]string{
		"Args":   args,
		"Kwargs": kwargs,
		"Sep":    sep,
	})
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func opsText(ops []Op) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = op.String()
	}
	return strings.Join(parts, ", ")
}
