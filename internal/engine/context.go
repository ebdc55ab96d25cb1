package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/signalnine/autograde/internal/compare"
	"github.com/signalnine/autograde/internal/config"
)

// TrialContext is handed to overrides. It implements testify's
// assert.TestingT, so assertions can record failures on it directly.
type TrialContext struct {
	ctx         context.Context
	engine      *Engine
	trial       *Trial
	mu          sync.Mutex
	name        string
	description string
	failures    []string
	// validating is set while the golden implementation is checked against
	// the trial's declared expectations.
	validating bool
}

func (e *Engine) newContext(ctx context.Context, t *Trial) *TrialContext {
	return &TrialContext{
		ctx:         ctx,
		engine:      e,
		trial:       t,
		name:        t.Name,
		description: t.Description,
	}
}

func (tc *TrialContext) Context() context.Context { return tc.ctx }

// Args returns a private copy of the trial's inputs.
func (tc *TrialContext) Args() Args { return tc.trial.Args.Clone() }

func (tc *TrialContext) Hidden() bool { return tc.trial.Hidden }

func (tc *TrialContext) Name() string {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.name
}

// SetName renames the trial in the report without touching the trial.
func (tc *TrialContext) SetName(name string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.name = name
}

func (tc *TrialContext) Description() string {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.description
}

func (tc *TrialContext) SetDescription(desc string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.description = desc
}

// Errorf records a failure.
func (tc *TrialContext) Errorf(format string, args ...any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.failures = append(tc.failures, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Failed reports whether any failure was recorded.
func (tc *TrialContext) Failed() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.failures) > 0
}

// Eval runs f on the trial's inputs in its configured mode, capturing
// output when the problem does or when an expected output is being checked.
func (tc *TrialContext) Eval(f Func) (Evaluation, error) {
	return tc.engine.eval(tc.ctx, tc.trial, f, tc.capture())
}

func (tc *TrialContext) capture() bool {
	return tc.engine.Settings.CaptureOutput || (tc.validating && tc.trial.ExpectOutput != nil)
}

// Equal applies the default comparison and returns a failure carrying the
// templated feedback message.
func (tc *TrialContext) Equal(expected, actual any) error {
	var m *compare.Mismatch
	if err := compare.Equal(expected, actual); errors.As(err, &m) {
		return errors.New(tc.engine.mismatchMessage(tc.trial, m))
	} else if err != nil {
		return err
	}
	return nil
}

// RunDefault runs the standard protocol: evaluate both sides, compare
// captured output, then compare values. During golden validation the
// submission side is the golden implementation and it is checked against
// the declared expectations only.
func (tc *TrialContext) RunDefault(golden, submission Func) error {
	if tc.validating {
		return tc.validate(submission)
	}
	capture := tc.engine.Settings.CaptureOutput
	want, err := tc.engine.eval(tc.ctx, tc.trial, golden, capture)
	if err != nil {
		return markGolden(err)
	}
	got, err := tc.engine.eval(tc.ctx, tc.trial, submission, capture)
	if err != nil {
		return err
	}
	if capture {
		if err := tc.compareOutput(compare.Text(want.Output, got.Output)); err != nil {
			return err
		}
	}
	return tc.compareValues(want.Value, got.Value)
}

func (tc *TrialContext) validate(golden Func) error {
	t := tc.trial
	capture := tc.engine.Settings.CaptureOutput || t.ExpectOutput != nil
	got, err := tc.engine.eval(tc.ctx, t, golden, capture)
	if err != nil {
		return markGolden(err)
	}
	switch want := t.ExpectOutput.(type) {
	case string:
		if err := tc.compareOutput(compare.Text(want, got.Output)); err != nil {
			return err
		}
	case []string:
		if err := compare.Equal(want, compare.Lines(got.Output)); err != nil {
			expected := strings.Join(want, "\n") + "\n"
			if err := tc.compareOutput(compare.Text(expected, got.Output)); err != nil {
				return err
			}
		}
	}
	if t.HasExpect {
		return tc.compareValues(t.Expect, got.Value)
	}
	return nil
}

func (tc *TrialContext) compareOutput(err error) error {
	var m *compare.Mismatch
	if errors.As(err, &m) {
		return errors.New(tc.engine.outputMessage(tc.trial, m))
	}
	return err
}

func (tc *TrialContext) compareValues(expected, actual any) (err error) {
	if tc.trial.Compare == nil {
		if tc.trial.IsPipeline() {
			return tc.comparePipeline(expected, actual)
		}
		return tc.Equal(expected, actual)
	}
	defer func() {
		if r := recover(); r != nil {
			err = &Fault{
				Err:   &PanicError{Value: r},
				Trace: formatFrames(userFrames(callers(), tc.engine.internal)),
			}
		}
	}()
	return tc.trial.Compare(tc, expected, actual)
}

func (tc *TrialContext) comparePipeline(expected, actual any) error {
	want, _ := expected.([]any)
	got, _ := actual.([]any)
	msgs := tc.engine.Messages
	if len(want) != len(got) {
		return errors.New(config.Render(msgs.PipelineLengthMsg, map[string]int{
			"Expected": len(want),
			"Actual":   len(got),
		}))
	}
	for i := range want {
		if compare.Equal(want[i], got[i]) == nil {
			continue
		}
		op := ""
		if i < len(tc.trial.Ops) {
			op = tc.trial.Ops[i].String()
		}
		return errors.New(config.Render(msgs.PipelineDiffMsg, map[string]any{
			"Index":    i + 1,
			"Op":       op,
			"Output":   compare.Repr(got[i]),
			"Expected": compare.Repr(want[i]),
		}))
	}
	return nil
}

func (tc *TrialContext) result(err error) Result {
	tc.mu.Lock()
	res := Result{Name: tc.name, Description: tc.description}
	failures := append([]string(nil), tc.failures...)
	tc.mu.Unlock()

	var fault *Fault
	switch {
	case errors.As(err, &fault):
		res.Fault = fault
		res.Message = tc.engine.faultMessage(tc.trial, fault)
	case err != nil:
		res.Message = err.Error()
	}
	if len(failures) > 0 {
		if res.Message != "" {
			failures = append([]string{res.Message}, failures...)
		}
		res.Message = joinMessages(failures)
	}
	res.Passed = err == nil && len(failures) == 0
	return res
}

func markGolden(err error) error {
	var fault *Fault
	if errors.As(err, &fault) {
		fault.Golden = true
	}
	return err
}
