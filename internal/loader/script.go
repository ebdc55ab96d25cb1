package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/signalnine/autograde/internal/docker"
	"github.com/signalnine/autograde/internal/engine"
)

// ScriptOptions control how a script submission is executed.
type ScriptOptions struct {
	// Interpreters maps an extension to the command that runs it.
	Interpreters map[string][]string
	// Image runs the script in a container when set.
	Image   string
	Timeout time.Duration
	Env     map[string]string
}

// ScriptError is a script that ran but exited unsuccessfully.
type ScriptError struct {
	ExitCode int
	TimedOut bool
	Stderr   string
}

func (e *ScriptError) Error() string {
	if e.TimedOut {
		return "script timed out"
	}
	msg := fmt.Sprintf("script exited with status %d", e.ExitCode)
	if tail := lastLines(e.Stderr, 10); tail != "" {
		msg += "\n" + tail
	}
	return msg
}

// FindScript locates the single script in dir with one of exts. A path to
// a matching file is returned unchanged.
func FindScript(dir string, exts []string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", &Error{Kind: NoScript, Path: dir, Exts: exts, Err: err}
	}
	if !info.IsDir() {
		if slices.Contains(exts, filepath.Ext(dir)) {
			return dir, nil
		}
		return "", &Error{Kind: NoScript, Path: dir, Exts: exts}
	}

	var scripts []string
	for _, ext := range exts {
		found, err := filepath.Glob(filepath.Join(dir, "*"+ext))
		if err != nil {
			return "", fmt.Errorf("searching %s: %w", dir, err)
		}
		scripts = append(scripts, found...)
	}
	slices.Sort(scripts)
	switch len(scripts) {
	case 0:
		return "", &Error{Kind: NoScript, Path: dir, Exts: exts}
	case 1:
		return scripts[0], nil
	default:
		return "", &Error{Kind: MultipleScripts, Path: dir, Exts: exts}
	}
}

// LoadScript syntax-checks the script at path and returns a Func that runs
// it. Positional inputs become command line arguments; queued console
// inputs are fed on stdin and stdout goes to the console.
func LoadScript(ctx context.Context, path string, opts ScriptOptions) (engine.Func, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	if err := CheckSyntax(ctx, path, src); err != nil {
		return nil, err
	}
	interp, ok := opts.Interpreters[filepath.Ext(path)]
	if !ok || len(interp) == 0 {
		return nil, fmt.Errorf("no interpreter configured for %s scripts", filepath.Ext(path))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving script path: %w", err)
	}
	s := &script{path: abs, interp: interp, opts: opts}
	return s.run, nil
}

type script struct {
	path   string
	interp []string
	opts   ScriptOptions
}

func (s *script) run(con *engine.Console, in engine.Args) (any, error) {
	var argv []string
	var stdin string
	if con.Interactive() {
		if inputs := con.Drain(); len(inputs) > 0 {
			stdin = strings.Join(inputs, "\n") + "\n"
		}
	} else {
		argv = in.Strings()
	}
	if s.opts.Image != "" {
		return nil, s.runContainer(con, argv, stdin)
	}
	return nil, s.runProcess(con, argv, stdin)
}

func (s *script) runProcess(con *engine.Console, argv []string, stdin string) error {
	ctx := con.Context()
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	args := append(append(slices.Clone(s.interp[1:]), s.path), argv...)
	cmd := exec.CommandContext(ctx, s.interp[0], args...)
	cmd.Dir = filepath.Dir(s.path)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Stdout = con
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if len(s.opts.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range s.opts.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return &ScriptError{TimedOut: true, Stderr: stderr.String()}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ScriptError{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
	}
	if err != nil {
		return fmt.Errorf("running %s: %w", s.interp[0], err)
	}
	return nil
}

func (s *script) runContainer(con *engine.Console, argv []string, stdin string) error {
	workDir, err := os.MkdirTemp("", "autograde-script-*")
	if err != nil {
		return fmt.Errorf("creating workspace: %w", err)
	}
	defer os.RemoveAll(workDir)

	src, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}
	name := filepath.Base(s.path)
	if err := os.WriteFile(filepath.Join(workDir, name), src, 0o644); err != nil {
		return fmt.Errorf("copying script: %w", err)
	}

	timeout := s.opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	command := append(append(slices.Clone(s.interp), "/workspace/"+name), argv...)
	res, err := docker.RunContainer(con.Context(), &docker.RunOpts{
		Image:   s.opts.Image,
		Command: command,
		WorkDir: workDir,
		Stdin:   stdin,
		Env:     s.opts.Env,
		Timeout: timeout,
	})
	if err != nil {
		return err
	}
	con.WriteString(res.Stdout)
	if res.TimedOut || res.ExitCode != 0 {
		return &ScriptError{ExitCode: res.ExitCode, TimedOut: res.TimedOut, Stderr: res.Stderr}
	}
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
