// Package problem defines gradable problems: groups of trials and bonuses
// checked against a golden implementation and scored out of a
// submission's total points.
package problem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/signalnine/autograde/internal/config"
	"github.com/signalnine/autograde/internal/engine"
	"github.com/signalnine/autograde/internal/loader"
	"github.com/signalnine/autograde/internal/metrics"
	"github.com/signalnine/autograde/internal/result"
	"github.com/signalnine/autograde/internal/runner"
	"github.com/signalnine/autograde/internal/score"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Problem is immutable once built.
type Problem struct {
	name     string
	symbol   string
	golden   engine.Func
	groups   []*Group
	settings engine.Settings
	script   bool
	cfg      *config.Config
}

func (p *Problem) Name() string              { return p.name }
func (p *Problem) Symbol() string            { return p.symbol }
func (p *Problem) Golden() engine.Func       { return p.golden }
func (p *Problem) Settings() engine.Settings { return p.settings }
func (p *Problem) Config() *config.Config    { return p.cfg }

// IsScript reports whether submissions are loaded as scripts.
func (p *Problem) IsScript() bool { return p.script }

// Groups returns the problem's groups in declaration order.
func (p *Problem) Groups() []*Group {
	return append([]*Group(nil), p.groups...)
}

// Trials returns every trial in report order.
func (p *Problem) Trials() []*engine.Trial {
	var out []*engine.Trial
	for _, g := range p.groups {
		out = append(out, g.Trials...)
	}
	return out
}

func (p *Problem) engine() *engine.Engine {
	return engine.New(p.cfg.Test, p.settings)
}

// CheckError is a golden implementation disagreeing with a trial's
// declared expectations.
type CheckError struct {
	Trial   string
	Message string
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("trial %q: %s", e.Trial, e.Message)
}

// Check validates the golden implementation against every trial that
// declares an expected value or output. All failures are joined.
func (p *Problem) Check(ctx context.Context) error {
	e := p.engine()
	var errs []error
	for _, t := range p.Trials() {
		if !t.HasExpectations() {
			continue
		}
		res := e.Validate(ctx, t, p.golden)
		if !res.Passed {
			errs = append(errs, &CheckError{Trial: res.Name, Message: res.Message})
		}
	}
	return errors.Join(errs...)
}

type runOptions struct {
	workers    int
	concurrent bool
	metrics    *metrics.Recorder
	logger     *slog.Logger
	tracer     trace.Tracer
}

// RunOption configures one GenerateReport call.
type RunOption func(*runOptions)

// WithWorkers runs up to n trials at once. It only takes effect together
// with ConcurrentSubmission.
func WithWorkers(n int) RunOption {
	return func(o *runOptions) { o.workers = n }
}

// ConcurrentSubmission asserts that the submission may be called from
// several goroutines at once.
func ConcurrentSubmission() RunOption {
	return func(o *runOptions) { o.concurrent = true }
}

// WithMetrics records trial and report metrics on rec.
func WithMetrics(rec *metrics.Recorder) RunOption {
	return func(o *runOptions) { o.metrics = rec }
}

func WithLogger(l *slog.Logger) RunOption {
	return func(o *runOptions) { o.logger = l }
}

// WithTracer sends the report and per-trial spans to tr instead of the
// global tracer provider.
func WithTracer(tr trace.Tracer) RunOption {
	return func(o *runOptions) { o.tracer = tr }
}

type plannedTrial struct {
	trial    *engine.Trial
	maxScore float64
}

type plannedBonus struct {
	bonus    *Bonus
	maxScore float64
}

// plan allocates meta.TotalPoints across groups and then across each
// group's members before anything runs.
func (p *Problem) plan(total float64) ([]plannedTrial, []plannedBonus, error) {
	groupSpecs := make([]score.Spec, len(p.groups))
	for i, g := range p.groups {
		groupSpecs[i] = g.Score
	}
	groupScores, err := score.Allocate(groupSpecs, total)
	if err != nil {
		return nil, nil, fmt.Errorf("allocating %s: %w", p.name, err)
	}

	var trials []plannedTrial
	var bonuses []plannedBonus
	for i, g := range p.groups {
		scores, err := score.Allocate(g.Specs(), groupScores[i])
		if err != nil {
			return nil, nil, fmt.Errorf("allocating group %q: %w", g.Name, err)
		}
		for j, t := range g.Trials {
			trials = append(trials, plannedTrial{trial: t, maxScore: scores[j]})
		}
		for j, b := range g.Bonuses {
			bonuses = append(bonuses, plannedBonus{bonus: b, maxScore: scores[len(g.Trials)+j]})
		}
	}
	return trials, bonuses, nil
}

// GenerateReport grades submission. The only error is a score allocation
// error, which is an authoring bug; submission failures are reported as
// failed outcomes.
func (p *Problem) GenerateReport(ctx context.Context, submission engine.Func, meta result.Metadata, opts ...RunOption) (*result.Report, error) {
	o := runOptions{workers: 1}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = slog.Default()
	}

	tr := o.tracer
	if tr == nil {
		tr = otel.Tracer("autograde.problem")
	}
	ctx, span := tr.Start(ctx, "problem.GenerateReport", trace.WithAttributes(
		attribute.String("problem.name", p.name),
		attribute.Float64("problem.total_points", meta.TotalPoints),
	))
	defer span.End()

	trials, bonuses, err := p.plan(meta.TotalPoints)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	log.Debug("grading submission",
		slog.String("problem", p.name),
		slog.Int("trials", len(trials)),
		slog.Int("bonuses", len(bonuses)),
		slog.Float64("total_points", meta.TotalPoints))

	e := p.engine()
	e.Logger = log
	e.Tracer = o.tracer
	results := make([]engine.Result, len(trials))
	jobs := make([]runner.Job, len(trials))
	for i, pt := range trials {
		jobs[i] = func(ctx context.Context) error {
			start := time.Now()
			results[i] = e.Run(ctx, pt.trial, p.golden, submission)
			if o.metrics != nil {
				o.metrics.ObserveTrial(p.name, results[i].Passed, pt.trial.Hidden, time.Since(start))
			}
			return nil
		}
	}
	workers := 1
	if o.concurrent {
		workers = o.workers
	}
	errs := runner.RunPool(ctx, workers, jobs)

	agg := result.NewAggregator(p.cfg.Submission)
	for i, pt := range trials {
		info := result.Info{
			Name:        pt.trial.Name,
			Description: pt.trial.Description,
			MaxScore:    pt.maxScore,
			Hidden:      pt.trial.Hidden,
		}
		if errs[i] != nil {
			agg.Add(info, false, fmt.Sprintf("Grading stopped before this test ran: %v", errs[i]))
			continue
		}
		res := results[i]
		info.Name, info.Description = res.Name, res.Description
		agg.Add(info, res.Passed, res.Message)
	}

	outcomes := agg.Trials()
	for _, pb := range bonuses {
		award, msg := pb.bonus.award(outcomes, meta)
		outcome := agg.AddBonus(result.Info{
			Name:        pb.bonus.Name,
			Description: pb.bonus.Description,
			MaxScore:    pb.maxScore,
			Hidden:      pb.bonus.Hidden,
		}, award, msg)
		if o.metrics != nil {
			o.metrics.ObserveBonus(p.name, outcome.Passed())
		}
	}

	rep := agg.Report()
	span.SetAttributes(attribute.Float64("report.score", rep.TotalScore))
	if o.metrics != nil {
		o.metrics.ObserveReport(p.name, rep.TotalScore, rep.MaxScore())
	}
	log.Debug("submission graded",
		slog.String("problem", p.name),
		slog.Float64("score", rep.TotalScore),
		slog.Float64("max_score", rep.MaxScore()))
	return rep, nil
}

// LoadFailure is the zero-score report for a submission that could not be
// loaded.
func (p *Problem) LoadFailure(err error) *result.Report {
	return result.LoadFailure(loader.Message(p.cfg.Loader, err))
}

// LoadFunc loads a submission.
type LoadFunc func(ctx context.Context) (engine.Func, error)

// Grade loads and grades a submission. Load errors become a LoadFailure
// report; the returned error is GenerateReport's.
func (p *Problem) Grade(ctx context.Context, load LoadFunc, meta result.Metadata, opts ...RunOption) (*result.Report, error) {
	submission, err := load(ctx)
	if err != nil {
		slog.Debug("submission failed to load", slog.String("problem", p.name), slog.Any("error", err))
		return p.LoadFailure(err), nil
	}
	return p.GenerateReport(ctx, submission, meta, opts...)
}
