package problem_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/signalnine/autograde/internal/config"
	"github.com/signalnine/autograde/internal/engine"
	"github.com/signalnine/autograde/internal/loader"
	"github.com/signalnine/autograde/internal/metrics"
	"github.com/signalnine/autograde/internal/problem"
	"github.com/signalnine/autograde/internal/result"
	"github.com/signalnine/autograde/internal/score"
)

func square(_ *engine.Console, in engine.Args) (any, error) {
	x := in.Pos[0].(int)
	return x * x, nil
}

// wrongOn returns a square implementation that is off by one for bad.
func wrongOn(bad int) engine.Func {
	return func(con *engine.Console, in engine.Args) (any, error) {
		x := in.Pos[0].(int)
		if x == bad {
			return x*x - 1, nil
		}
		return x * x, nil
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func buildSquare(t *testing.T) *problem.Problem {
	t.Helper()
	p, err := problem.NewBuilder("square", square).
		AddTrial(engine.Positional(2)).
		AddTrial(engine.Positional(3)).
		AddBonus(problem.AllCorrect, problem.Named("All correct"), problem.Weight(3)).
		AddGroup(problem.Named("basics")).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return p
}

func TestAllCorrectBonus(t *testing.T) {
	p := buildSquare(t)
	meta := result.Metadata{TotalPoints: 20}

	rep, err := p.GenerateReport(context.Background(), square, meta)
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if len(rep.Trials) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(rep.Trials))
	}
	if !near(rep.TotalScore, 20) {
		t.Errorf("total: got %v, want 20", rep.TotalScore)
	}
	bonus := rep.Trials[2]
	if bonus.Name != "All correct" || !near(bonus.MaxScore, 12) || !near(bonus.Score, 12) {
		t.Errorf("bonus outcome: %+v", bonus)
	}

	rep, err = p.GenerateReport(context.Background(), wrongOn(3), meta)
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if !near(rep.TotalScore, 4) {
		t.Errorf("total with one failure: got %v, want 4", rep.TotalScore)
	}
	if rep.Trials[2].Score != 0 || rep.Trials[2].Passed() {
		t.Errorf("bonus should not be awarded: %+v", rep.Trials[2])
	}
	if rep.Summary != config.Default().Submission.FailedTestsMsg {
		t.Errorf("summary: %q", rep.Summary)
	}
}

func TestFailureMessage(t *testing.T) {
	p, err := problem.NewBuilder("square", square).
		AddTrial(engine.Positional(2), problem.Expect(4)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	three := func(*engine.Console, engine.Args) (any, error) { return 3, nil }
	rep, err := p.GenerateReport(context.Background(), three, result.Metadata{TotalPoints: 10})
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	o := rep.Trials[0]
	if o.Status != result.Failed || o.Score != 0 {
		t.Errorf("outcome: %+v", o)
	}
	for _, want := range []string{"2", "4", "3"} {
		if !strings.Contains(o.ErrorText, want) {
			t.Errorf("error text %q missing %q", o.ErrorText, want)
		}
	}
	if o.Name != "Test on 2." {
		t.Errorf("default name: got %q", o.Name)
	}
}

func TestVirtualGroup(t *testing.T) {
	p, err := problem.NewBuilder("square", square).
		AddTrial(engine.Positional(1), problem.Value(2)).
		AddGroup(problem.Named("first"), problem.Value(2)).
		AddTrial(engine.Positional(2)).
		AddTrial(engine.Positional(3)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	groups := p.Groups()
	if len(groups) != 2 || !groups[1].Virtual || len(groups[1].Trials) != 2 {
		t.Fatalf("unexpected groups %+v", groups)
	}
	rep, err := p.GenerateReport(context.Background(), square, result.Metadata{TotalPoints: 10})
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	// first group: value 2 plus weight 1 of the remaining 8 split over two groups
	want := []float64{6, 2, 2}
	for i, o := range rep.Trials {
		if !near(o.MaxScore, want[i]) {
			t.Errorf("trial %d max score: got %v, want %v", i, o.MaxScore, want[i])
		}
	}
	if !near(rep.TotalScore, 10) {
		t.Errorf("total: got %v", rep.TotalScore)
	}
}

func TestConservation(t *testing.T) {
	p, err := problem.NewBuilder("square", square).
		AddTrial(engine.Positional(1), problem.Weight(2)).
		AddTrial(engine.Positional(2), problem.Value(1.5)).
		AddGroup(problem.Weight(3)).
		AddTrial(engine.Positional(3), problem.Weight(5)).
		AddBonus(problem.OnTime).
		AddGroup().
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	rep, err := p.GenerateReport(context.Background(), square, result.Metadata{TotalPoints: 37})
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if !near(rep.MaxScore(), 37) || !near(rep.TotalScore, 37) {
		t.Errorf("max %v total %v, want 37", rep.MaxScore(), rep.TotalScore)
	}
}

func TestExtraCredit(t *testing.T) {
	p, err := problem.NewBuilder("square", square).
		AddTrial(engine.Positional(1)).
		AddTrial(engine.Positional(2), problem.ExtraCredit(2)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	rep, _ := p.GenerateReport(context.Background(), square, result.Metadata{TotalPoints: 10})
	if !near(rep.Trials[0].MaxScore, 5) || !near(rep.Trials[1].MaxScore, 7) {
		t.Errorf("extra credit should sit on top of the split: %+v", rep.Trials)
	}
}

func TestAllocationError(t *testing.T) {
	p, err := problem.NewBuilder("square", square).
		AddTrial(engine.Positional(1), problem.Value(8)).
		AddTrial(engine.Positional(2), problem.Value(8)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	_, err = p.GenerateReport(context.Background(), square, result.Metadata{TotalPoints: 10})
	if !errors.Is(err, score.ErrOverAllocated) {
		t.Errorf("got %v, want ErrOverAllocated", err)
	}
}

func TestHiddenPropagation(t *testing.T) {
	p, err := problem.NewBuilder("square", square).
		AddTrial(engine.Positional(2)).
		AddTrial(engine.Positional(5), problem.Hidden()).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	msgs := config.Default().Submission
	rep, _ := p.GenerateReport(context.Background(), wrongOn(5), result.Metadata{TotalPoints: 2})
	if !rep.Trials[1].Hidden {
		t.Error("hidden flag lost")
	}
	if rep.Summary != msgs.FailedTestsMsg+"\n\n"+msgs.FailedHiddenTestsMsg {
		t.Errorf("summary: %q", rep.Summary)
	}
	rep, _ = p.GenerateReport(context.Background(), wrongOn(2), result.Metadata{TotalPoints: 2})
	if rep.Summary != msgs.FailedTestsMsg {
		t.Errorf("visible failure summary: %q", rep.Summary)
	}
}

func TestBonusOrderIndependence(t *testing.T) {
	build := func(bonusFirst bool) *problem.Problem {
		b := problem.NewBuilder("square", square)
		if bonusFirst {
			b.AddBonus(problem.AllCorrect, problem.Named("all"))
		}
		b.AddTrial(engine.Positional(2)).AddTrial(engine.Positional(3))
		if !bonusFirst {
			b.AddBonus(problem.AllCorrect, problem.Named("all"))
		}
		p, err := b.Build()
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		return p
	}
	meta := result.Metadata{TotalPoints: 9}
	a, _ := build(true).GenerateReport(context.Background(), square, meta)
	b, _ := build(false).GenerateReport(context.Background(), square, meta)
	if a.TotalScore != b.TotalScore || a.Trials[2].Score != b.Trials[2].Score {
		t.Errorf("bonus position changed the result: %v vs %v", a.Trials, b.Trials)
	}
	if a.Trials[2].Name != "all" {
		t.Errorf("bonus outcomes must follow trials: %+v", a.Trials)
	}
}

func TestCriteria(t *testing.T) {
	passed := []result.TrialOutcome{{Status: result.Passed}}
	failed := []result.TrialOutcome{{Status: result.Passed}, {Status: result.Failed}}
	early := result.Metadata{TimeSincePastDue: -1}
	late := result.Metadata{TimeSincePastDue: 1}

	tests := []struct {
		name      string
		criterion problem.Criterion
		outcomes  []result.TrialOutcome
		meta      result.Metadata
		want      float64
	}{
		{"all correct", problem.AllCorrect, passed, early, 1},
		{"not all correct", problem.AllCorrect, failed, early, 0},
		{"on time", problem.OnTime, failed, early, 1},
		{"late", problem.OnTime, passed, late, 0},
		{"correct and on time", problem.CorrectAndOnTime, passed, early, 1},
		{"correct but late", problem.CorrectAndOnTime, passed, late, 0},
		{"first submission", problem.ResubmissionPenalty(nil, 0), nil, result.Metadata{PriorSubmissions: 1}, 1},
		{"a few resubmissions", problem.ResubmissionPenalty(nil, 0), nil, result.Metadata{PriorSubmissions: 5}, 0.8},
		{"many resubmissions", problem.ResubmissionPenalty(nil, 0), nil, result.Metadata{PriorSubmissions: 6}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := tt.criterion(tt.outcomes, tt.meta); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBonusPanic(t *testing.T) {
	p, err := problem.NewBuilder("square", square).
		AddTrial(engine.Positional(1)).
		AddBonus(func([]result.TrialOutcome, result.Metadata) (float64, string) { panic("bad criterion") }, problem.Named("broken")).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	rep, err := p.GenerateReport(context.Background(), square, result.Metadata{TotalPoints: 2})
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if b := rep.Trials[1]; b.Score != 0 || !strings.Contains(b.Message, "bad criterion") {
		t.Errorf("bonus outcome: %+v", b)
	}
}

func TestDeterminismAndWorkers(t *testing.T) {
	b := problem.NewBuilder("square", square)
	b.AddTrials(problem.SingularParams(1, 2, 3, 4, 5, 6, 7, 8))
	p, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	meta := result.Metadata{TotalPoints: 16}
	seq, _ := p.GenerateReport(context.Background(), wrongOn(4), meta)
	par, _ := p.GenerateReport(context.Background(), wrongOn(4), meta, problem.WithWorkers(4), problem.ConcurrentSubmission())
	if len(seq.Trials) != len(par.Trials) {
		t.Fatalf("lengths differ: %d vs %d", len(seq.Trials), len(par.Trials))
	}
	for i := range seq.Trials {
		if seq.Trials[i] != par.Trials[i] {
			t.Errorf("trial %d differs: %+v vs %+v", i, seq.Trials[i], par.Trials[i])
		}
	}
	if seq.TotalScore != 14 {
		t.Errorf("total: got %v, want 14", seq.TotalScore)
	}
}

func TestCancelledContext(t *testing.T) {
	p := buildSquare(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := p.GenerateReport(ctx, square, result.Metadata{TotalPoints: 20})
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	for _, o := range rep.Trials[:2] {
		if o.Passed() || !strings.Contains(o.ErrorText, "context canceled") {
			t.Errorf("expected a cancelled outcome, got %+v", o)
		}
	}
}

func TestMetrics(t *testing.T) {
	p := buildSquare(t)
	rec := metrics.New()
	if _, err := p.GenerateReport(context.Background(), square, result.Metadata{TotalPoints: 20}, problem.WithMetrics(rec)); err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	families, err := rec.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Error("no metrics recorded")
	}
}

func TestCheck(t *testing.T) {
	p, err := problem.NewBuilder("square", square).
		AddTrial(engine.Positional(2), problem.Expect(4)).
		AddTrial(engine.Positional(3), problem.Expect(10), problem.Named("bad expectation")).
		AddTrial(engine.Positional(4)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	err = p.Check(context.Background())
	var ce *problem.CheckError
	if !errors.As(err, &ce) {
		t.Fatalf("got %v, want a CheckError", err)
	}
	if ce.Trial != "bad expectation" {
		t.Errorf("failing trial: %q", ce.Trial)
	}

	good, _ := problem.NewBuilder("square", square).AddTrial(engine.Positional(2), problem.Expect(4)).Build()
	if err := good.Check(context.Background()); err != nil {
		t.Errorf("Check: %v", err)
	}
}

func TestCheckWithOverride(t *testing.T) {
	greet := func(con *engine.Console, _ engine.Args) (any, error) {
		con.Println("hello")
		return 4, nil
	}
	passThrough := problem.OverrideWith(func(tc *engine.TrialContext, golden, submission engine.Func) error {
		return tc.RunDefault(golden, submission)
	})

	ok, err := problem.NewBuilder("greet", greet).
		AddTrial(engine.Positional(2), problem.ExpectOutput("hello\n"), passThrough).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := ok.Check(context.Background()); err != nil {
		t.Errorf("output-only expectation should pass: %v", err)
	}

	wrong, err := problem.NewBuilder("greet", greet).
		AddTrial(engine.Positional(2), problem.ExpectOutput("WRONG\n"), problem.Expect(4), passThrough).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var ce *problem.CheckError
	if err := wrong.Check(context.Background()); !errors.As(err, &ce) {
		t.Errorf("got %v, want a CheckError for the wrong output", err)
	}
}

type ring struct {
	Val  int
	Next *ring
}

func TestCyclicInput(t *testing.T) {
	a := &ring{Val: 1}
	a.Next = &ring{Val: 2, Next: a}
	length := func(_ *engine.Console, in engine.Args) (any, error) {
		start := in.Pos[0].(*ring)
		n := 1
		for r := start.Next; r != start; r = r.Next {
			n++
		}
		start.Val = 100
		return n, nil
	}
	p, err := problem.NewBuilder("length", length).
		AddTrial(engine.Positional(a), problem.Expect(2)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := p.Check(context.Background()); err != nil {
		t.Fatalf("Check: %v", err)
	}
	rep, err := p.GenerateReport(context.Background(), length, result.Metadata{TotalPoints: 1})
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if !near(rep.TotalScore, 1) {
		t.Errorf("total: %v", rep.TotalScore)
	}
	if a.Val != 1 {
		t.Error("trial inputs leaked back to the caller")
	}
}

func TestLoadFailure(t *testing.T) {
	p := buildSquare(t)
	reg := loader.NewRegistry()
	load := func(ctx context.Context) (engine.Func, error) {
		return reg.Lookup("submission", "square")
	}
	rep, err := p.Grade(context.Background(), load, result.Metadata{TotalPoints: 20})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	want := config.Render(config.Default().Loader.NoMatchMsg, map[string]string{"Name": "square"})
	if len(rep.Trials) != 0 || rep.TotalScore != 0 || rep.Summary != want {
		t.Errorf("unexpected report %+v", rep)
	}
}

func TestGradeLoadsSubmission(t *testing.T) {
	p := buildSquare(t)
	reg := loader.NewRegistry()
	reg.Register("submission/square.go", "square", square)
	load := func(ctx context.Context) (engine.Func, error) { return reg.Lookup("submission", p.Symbol()) }
	rep, err := p.Grade(context.Background(), load, result.Metadata{TotalPoints: 20})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if !near(rep.TotalScore, 20) {
		t.Errorf("total: %v", rep.TotalScore)
	}
}

func TestBuildErrors(t *testing.T) {
	_, err := problem.NewBuilder("square", nil).
		AddTrial(engine.Positional(1), problem.Weight(-1)).
		AddTrials(problem.Zip([]any{1, 2}, []any{1})).
		AddBonus(nil).
		AddPipeline(nil).
		Build()
	if !errors.Is(err, problem.ErrDefinition) {
		t.Fatalf("got %v, want ErrDefinition", err)
	}
	if !errors.Is(err, score.ErrInvalidSpec) || !errors.Is(err, problem.ErrColumnMismatch) {
		t.Errorf("expected every definition error to be joined: %v", err)
	}
}
