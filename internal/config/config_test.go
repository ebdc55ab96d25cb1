package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/signalnine/autograde/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Problem.CaptureOutput {
		t.Error("expected capture_output off by default")
	}
	if len(cfg.Problem.ScriptExts) != 1 || cfg.Problem.ScriptExts[0] != ".py" {
		t.Errorf("unexpected script_exts %v", cfg.Problem.ScriptExts)
	}
	if cfg.Runner.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", cfg.Runner.Timeout)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	cfg, err := config.Load("../../testdata/messages.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !strings.HasPrefix(cfg.Test.FailureMsg, "Expected {{.Expected}}") {
		t.Errorf("failure_msg not overridden: %q", cfg.Test.FailureMsg)
	}
	if cfg.Test.ErrorMsg != config.Default().Test.ErrorMsg {
		t.Error("error_msg should keep its default")
	}
	if cfg.Submission.NoFailedTestsMsg != "All good." {
		t.Errorf("got %q", cfg.Submission.NoFailedTestsMsg)
	}
	if !cfg.Problem.CaptureOutput {
		t.Error("expected capture_output on")
	}
	if len(cfg.Problem.ScriptExts) != 2 {
		t.Errorf("expected 2 script exts, got %v", cfg.Problem.ScriptExts)
	}
	if _, ok := cfg.Runner.Interpreters[".py"]; !ok {
		t.Error("default .py interpreter should survive the merge")
	}
	if got := cfg.Runner.Interpreters[".rb"]; len(got) != 1 || got[0] != "ruby" {
		t.Errorf("expected ruby interpreter, got %v", got)
	}
	if cfg.Runner.Timeout != 5*time.Second {
		t.Errorf("expected 5s, got %s", cfg.Runner.Timeout)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("AUTOGRADE_WORKERS", "4")
	t.Setenv("AUTOGRADE_SIMULATE_INPUT", "true")
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Problem.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Problem.Workers)
	}
	if !cfg.Problem.SimulateInput {
		t.Error("expected simulate_input from environment")
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := config.Load("nonexistent.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalid(t *testing.T) {
	for _, path := range []string{"../../testdata/bad_template.yaml", "../../testdata/bad_settings.yaml"} {
		if _, err := config.Load(path); err == nil {
			t.Errorf("%s: expected error", path)
		}
	}
}

func TestRender(t *testing.T) {
	got := config.Render("Test on {{.Args}}{{.Sep}}{{.Kwargs}}.", map[string]string{"Args": "2"})
	if got != "Test on 2." {
		t.Errorf("got %q", got)
	}
	if got := config.Render("{{.Broken", nil); got != "{{.Broken" {
		t.Errorf("unparseable template should come back unchanged, got %q", got)
	}
}
