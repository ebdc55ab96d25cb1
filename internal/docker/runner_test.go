package docker_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalnine/autograde/internal/docker"
)

func skipUnlessDocker(t *testing.T) {
	t.Helper()
	if os.Getenv("AUTOGRADE_DOCKER_TESTS") == "" {
		t.Skip("set AUTOGRADE_DOCKER_TESTS=1 to run Docker tests")
	}
}

func TestRunContainer(t *testing.T) {
	skipUnlessDocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	workDir := t.TempDir()
	os.WriteFile(filepath.Join(workDir, "greet.sh"), []byte("read name\necho \"Hello, $name\"\necho oops >&2\n"), 0o644)

	result, err := docker.RunContainer(ctx, &docker.RunOpts{
		Image:   "alpine:latest",
		Command: []string{"sh", "/workspace/greet.sh"},
		WorkDir: workDir,
		Stdin:   "Bob\n",
		Timeout: 30 * time.Second,
	})
	if err != nil {
		t.Fatalf("RunContainer: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code: got %d, want 0", result.ExitCode)
	}
	if result.TimedOut {
		t.Error("unexpected timeout")
	}
	if result.Stdout != "Hello, Bob\n" {
		t.Errorf("stdout: got %q, want %q", result.Stdout, "Hello, Bob\n")
	}
	if result.Stderr != "oops\n" {
		t.Errorf("stderr: got %q, want %q", result.Stderr, "oops\n")
	}
	if _, err := os.Stat(filepath.Join(workDir, ".autograde-stdout")); !os.IsNotExist(err) {
		t.Error("stream files left in workspace")
	}
}

func TestRunContainerTimeout(t *testing.T) {
	skipUnlessDocker(t)
	result, err := docker.RunContainer(context.Background(), &docker.RunOpts{
		Image:   "alpine:latest",
		Command: []string{"sleep", "300"},
		WorkDir: t.TempDir(),
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("RunContainer: %v", err)
	}
	if !result.TimedOut {
		t.Error("expected timeout")
	}
	if result.ExitCode != 124 {
		t.Errorf("exit code: got %d, want 124", result.ExitCode)
	}
}

func TestRunContainerCrash(t *testing.T) {
	skipUnlessDocker(t)
	result, err := docker.RunContainer(context.Background(), &docker.RunOpts{
		Image:   "alpine:latest",
		Command: []string{"sh", "-c", "exit 1"},
		WorkDir: t.TempDir(),
		Timeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("RunContainer: %v", err)
	}
	if result.ExitCode != 1 {
		t.Errorf("exit code: got %d, want 1", result.ExitCode)
	}
}

func TestRunContainerNoNetwork(t *testing.T) {
	skipUnlessDocker(t)
	result, err := docker.RunContainer(context.Background(), &docker.RunOpts{
		Image:   "alpine:latest",
		Command: []string{"wget", "-q", "-T", "2", "-O", "-", "http://example.com"},
		WorkDir: t.TempDir(),
		Timeout: 20 * time.Second,
	})
	if err != nil {
		t.Fatalf("RunContainer: %v", err)
	}
	if result.ExitCode == 0 {
		t.Error("expected network access to fail")
	}
}
