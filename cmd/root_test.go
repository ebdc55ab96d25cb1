package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/signalnine/autograde/internal/result"
)

func TestTraceFlagWritesSpans(t *testing.T) {
	t.Cleanup(func() {
		traceFile = ""
		otel.SetTracerProvider(noop.NewTracerProvider())
	})
	path := filepath.Join(t.TempDir(), "spans.json")

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--trace", path, "check", "testdata/square.yaml"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading trace file: %v", err)
	}
	for _, want := range []string{`"engine.Validate"`, `"trial.name"`, "autograde"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("trace file missing %s:\n%s", want, data)
		}
	}
}

func TestResolveRunDir(t *testing.T) {
	base := filepath.Join(t.TempDir(), "graded")
	runDir, err := result.CreateRunDir(base)
	if err != nil {
		t.Fatal(err)
	}
	want, err := filepath.EvalSymlinks(runDir)
	if err != nil {
		t.Fatal(err)
	}

	got, err := resolveRunDir(nil, base)
	if err != nil {
		t.Fatalf("resolveRunDir: %v", err)
	}
	if got != want {
		t.Errorf("latest under %s = %q, want %q", base, got, want)
	}

	explicit := t.TempDir()
	if got, err := resolveRunDir([]string{explicit}, base); err != nil || got != mustEval(t, explicit) {
		t.Errorf("explicit dir: got %q, %v", got, err)
	}

	if _, err := resolveRunDir(nil, filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for a base without a latest run")
	}
}

func TestReportResultsDirFlag(t *testing.T) {
	base := filepath.Join(t.TempDir(), "graded")
	runDir, err := result.CreateRunDir(base)
	if err != nil {
		t.Fatal(err)
	}
	rep := &result.Report{
		Trials:     []result.TrialOutcome{{Name: "Test on 2.", MaxScore: 4, Score: 4, Status: result.Passed}},
		TotalScore: 4,
	}
	if err := result.WriteReport(result.SubmissionDir(runDir, "alice"), rep); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"report", "--results-dir", base})
	if err := root.Execute(); err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out.String(), "alice") || !strings.Contains(out.String(), "1/1") {
		t.Errorf("unexpected report:\n%s", out.String())
	}
}

func mustEval(t *testing.T, p string) string {
	t.Helper()
	r, err := filepath.EvalSymlinks(p)
	if err != nil {
		t.Fatal(err)
	}
	return r
}
