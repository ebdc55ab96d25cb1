// Package engine runs a single trial against a reference implementation and
// an implementation under test, and decides whether they agree.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/signalnine/autograde/internal/compare"
	"github.com/signalnine/autograde/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Settings are the problem-level execution switches.
type Settings struct {
	CaptureOutput bool
	SimulateInput bool
}

type Engine struct {
	Messages config.TestMessages
	Settings Settings
	// Internal classifies stack frames hidden from fault traces.
	// Defaults to IsInternal.
	Internal func(function string) bool
	Logger   *slog.Logger
	// Tracer receives the per-trial spans. Defaults to the global
	// provider's "autograde.engine" tracer.
	Tracer trace.Tracer
}

func New(msgs config.TestMessages, settings Settings) *Engine {
	return &Engine{Messages: msgs, Settings: settings}
}

// Result is the verdict for one trial.
type Result struct {
	Name        string
	Description string
	Passed      bool
	// Message is the failure text shown to the student.
	Message string
	Fault   *Fault
}

// Evaluation is what one implementation produced for a trial.
type Evaluation struct {
	Output string
	Value  any
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Engine) tracer() trace.Tracer {
	if e.Tracer != nil {
		return e.Tracer
	}
	return otel.Tracer("autograde.engine")
}

func (e *Engine) internal(fn string) bool {
	if e.Internal != nil {
		return e.Internal(fn)
	}
	return IsInternal(fn)
}

// Run grades one trial: submission against golden.
func (e *Engine) Run(ctx context.Context, t *Trial, golden, submission Func) Result {
	ctx, span := e.tracer().Start(ctx, "engine.Run", trace.WithAttributes(
		attribute.String("trial.name", t.Name),
		attribute.Bool("trial.hidden", t.Hidden),
	))
	defer span.End()

	tc := e.newContext(ctx, t)
	var err error
	if t.Override != nil {
		err = e.override(tc, golden, submission)
	} else {
		err = tc.RunDefault(golden, submission)
	}
	res := tc.result(err)
	e.finish(span, res)
	return res
}

// Validate checks the golden implementation against the trial's declared
// expectations. Trials without expectations pass trivially.
func (e *Engine) Validate(ctx context.Context, t *Trial, golden Func) Result {
	ctx, span := e.tracer().Start(ctx, "engine.Validate", trace.WithAttributes(
		attribute.String("trial.name", t.Name),
	))
	defer span.End()

	tc := e.newContext(ctx, t)
	tc.validating = true
	if !t.HasExpectations() {
		return tc.result(nil)
	}
	var err error
	if t.Override != nil {
		err = e.override(tc, expectedFunc(t), golden)
	} else {
		err = tc.validate(golden)
	}
	res := tc.result(err)
	e.finish(span, res)
	return res
}

func (e *Engine) finish(span trace.Span, res Result) {
	span.SetAttributes(attribute.Bool("trial.passed", res.Passed))
	if res.Fault != nil {
		span.RecordError(res.Fault)
		span.SetStatus(codes.Error, res.Fault.Error())
	}
	e.logger().Debug("trial finished",
		slog.String("trial", res.Name),
		slog.Bool("passed", res.Passed),
		slog.Bool("fault", res.Fault != nil))
}

// eval invokes f under the trial's mode in a fresh console.
func (e *Engine) eval(ctx context.Context, t *Trial, f Func, capture bool) (Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return Evaluation{}, err
	}
	mode := t.Mode(e.Settings.SimulateInput)
	var inputs []string
	if mode == SimulatedInput {
		inputs = t.Args.Strings()
	}
	con := NewConsole(ctx, capture, inputs)

	var v any
	var err error
	switch mode {
	case Pipeline:
		v, err = e.invoke(con, func(con *Console, _ Args) (any, error) {
			return runPipeline(con, t.Ops, f)
		}, Args{})
	case SimulatedInput:
		v, err = e.invoke(con, f, Args{})
	default:
		v, err = e.invoke(con, f, t.Args.Clone())
	}
	return Evaluation{Output: con.Output(), Value: v}, err
}

// invoke calls f and converts returned errors and panics into faults.
func (e *Engine) invoke(con *Console, f Func, in Args) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = nil
			err = &Fault{
				Err:   &PanicError{Value: r},
				Trace: formatFrames(userFrames(callers(), e.internal)),
			}
		}
	}()
	v, err = f(con, in)
	if err != nil {
		var fault *Fault
		if !errors.As(err, &fault) {
			err = &Fault{Err: err}
		}
	}
	return v, err
}

func (e *Engine) override(tc *TrialContext, golden, submission Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Fault{
				Err:   &PanicError{Value: r},
				Trace: formatFrames(userFrames(callers(), e.internal)),
			}
		}
	}()
	return tc.trial.Override(tc, golden, submission)
}

// expectedFunc stands in for the reference side during golden validation:
// it prints the declared output and returns the declared value. Overrides
// that call RunDefault are checked against the expectations directly.
func expectedFunc(t *Trial) Func {
	return func(con *Console, _ Args) (any, error) {
		switch out := t.ExpectOutput.(type) {
		case string:
			con.Print(out)
		case []string:
			for _, line := range out {
				con.Println(line)
			}
		}
		return t.Expect, nil
	}
}

func (e *Engine) faultMessage(t *Trial, f *Fault) string {
	data := map[string]string{
		"Type":      f.Kind(),
		"Message":   f.Error(),
		"Traceback": f.Trace,
		"Input":     t.InputText(t.Mode(e.Settings.SimulateInput)),
	}
	if f.Golden {
		return config.Render(e.Messages.GoldenErrorMsg, data)
	}
	return config.Render(e.Messages.ErrorMsg, data)
}

func (e *Engine) mismatchMessage(t *Trial, m *compare.Mismatch) string {
	data := map[string]string{
		"Input":    t.InputText(t.Mode(e.Settings.SimulateInput)),
		"Output":   compare.Repr(m.Actual),
		"Expected": compare.Repr(m.Expected),
		"Diff":     m.Diff,
	}
	if m.Diff != "" {
		data["DiffExplanation"] = e.Messages.DiffExplanationMsg
	}
	return config.Render(e.Messages.FailureMsg, data)
}

func (e *Engine) outputMessage(t *Trial, m *compare.Mismatch) string {
	data := map[string]string{
		"Input":           t.InputText(t.Mode(e.Settings.SimulateInput)),
		"Output":          compare.Repr(m.Actual),
		"Expected":        compare.Repr(m.Expected),
		"Diff":            m.Diff,
		"DiffExplanation": e.Messages.DiffExplanationMsg,
	}
	return config.Render(e.Messages.StdoutDifferMsg, data)
}

func joinMessages(msgs []string) string {
	return strings.Join(msgs, "\n")
}
