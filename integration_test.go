//go:build integration

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/signalnine/autograde/cmd"
	"github.com/signalnine/autograde/internal/report"
	"github.com/signalnine/autograde/internal/result"
)

func requireBash(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not on PATH")
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := cmd.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCheckIntegration(t *testing.T) {
	requireBash(t)
	if out, err := runCLI(t, "check", "testdata/integration/greet.yaml"); err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
}

func TestRunGradescopeIntegration(t *testing.T) {
	requireBash(t)
	outFile := filepath.Join(t.TempDir(), "results.json")
	out, err := runCLI(t, "run", "testdata/integration/greet.yaml",
		"--submission", "testdata/integration/submissions/bob",
		"--format", "gradescope", "--out", outFile)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatal(err)
	}
	var got report.GradescopeResults
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decoding results.json: %v", err)
	}
	// three trials and one bonus; bob fails the first trial and the bonus
	if len(got.Tests) != 4 {
		t.Fatalf("got %d tests, want 4", len(got.Tests))
	}
	if got.Tests[0].Score != 0 || got.Tests[1].Score == 0 {
		t.Errorf("unexpected scores: %+v", got.Tests)
	}
	if got.Tests[3].Score != 0 {
		t.Errorf("bonus should not be awarded: %+v", got.Tests[3])
	}
	if got.Score <= 0 || got.Score >= 10 {
		t.Errorf("score: got %v", got.Score)
	}
}

func TestRunManyIntegration(t *testing.T) {
	requireBash(t)
	resultsDir := t.TempDir()
	out, err := runCLI(t, "run", "testdata/integration/greet.yaml",
		"--submission", "testdata/integration/submissions/alice",
		"--submission", "testdata/integration/submissions/bob",
		"--results-dir", resultsDir, "--parallel", "2")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}

	runDir, err := filepath.EvalSymlinks(filepath.Join(resultsDir, "latest"))
	if err != nil {
		t.Fatal(err)
	}
	found, errs, err := result.CollectReports(runDir)
	if err != nil || len(errs) > 0 {
		t.Fatalf("CollectReports: %v %v", err, errs)
	}
	if len(found) != 2 {
		t.Fatalf("got %d reports, want 2", len(found))
	}
	if found[0].Submission != "alice" || found[0].Report.TotalScore != found[0].Report.MaxScore() {
		t.Errorf("alice should get full marks: %+v", found[0].Report)
	}
	if !bytes.Contains([]byte(out), []byte("bob")) {
		t.Errorf("summary missing bob:\n%s", out)
	}
}
