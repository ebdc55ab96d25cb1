package loader_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalnine/autograde/internal/config"
	"github.com/signalnine/autograde/internal/engine"
	"github.com/signalnine/autograde/internal/loader"
)

func constant(v any) engine.Func {
	return func(*engine.Console, engine.Args) (any, error) { return v, nil }
}

func TestRegistryLookup(t *testing.T) {
	reg := loader.NewRegistry()
	reg.Register("subs/alice/square.go", "square", constant(1))
	reg.Register("subs/bob/square.go", "square", constant(2))
	reg.Register("subs/bob/extra.go", "square", constant(3))
	reg.Register("subs/bobby/square.go", "square", constant(4))

	fn, err := reg.Lookup("subs/alice", "square")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if v, _ := fn(nil, engine.Args{}); v != 1 {
		t.Errorf("got implementation returning %v, want 1", v)
	}

	if _, err := reg.Lookup("subs/alice", "cube"); !loader.IsKind(err, loader.NoMatchingSymbol) {
		t.Errorf("missing symbol: got %v", err)
	}
	if _, err := reg.Lookup("subs/bob", "square"); !loader.IsKind(err, loader.TooManyMatchingSymbols) {
		t.Errorf("duplicate symbol: got %v", err)
	}
	if got := reg.Symbols("subs/bobby"); len(got) != 1 || got[0] != "square" {
		t.Errorf("Symbols: got %v", got)
	}
}

func TestFindScript(t *testing.T) {
	exts := []string{".py"}
	dir := t.TempDir()
	if _, err := loader.FindScript(dir, exts); !loader.IsKind(err, loader.NoScript) {
		t.Errorf("empty dir: got %v", err)
	}

	one := filepath.Join(dir, "main.py")
	os.WriteFile(one, []byte("print(1)\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	got, err := loader.FindScript(dir, exts)
	if err != nil || got != one {
		t.Errorf("one script: got %q, %v", got, err)
	}
	if got, err := loader.FindScript(one, exts); err != nil || got != one {
		t.Errorf("direct path: got %q, %v", got, err)
	}

	os.WriteFile(filepath.Join(dir, "other.py"), []byte("print(2)\n"), 0o644)
	if _, err := loader.FindScript(dir, exts); !loader.IsKind(err, loader.MultipleScripts) {
		t.Errorf("two scripts: got %v", err)
	}
}

func TestCheckSyntax(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		path    string
		src     string
		wantErr bool
	}{
		{"valid python", "ok.py", "def f(x):\n    return x * x\n", false},
		{"broken python", "bad.py", "def f(x)\n    return x\n", true},
		{"valid bash", "ok.sh", "read name\necho \"hi $name\"\n", false},
		{"broken javascript", "bad.js", "function f( {\n", true},
		{"unknown extension", "data.txt", "((((", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := loader.CheckSyntax(ctx, tt.path, []byte(tt.src))
			if tt.wantErr != (err != nil) {
				t.Fatalf("CheckSyntax: got %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !loader.IsKind(err, loader.SyntaxError) {
				t.Errorf("expected a syntax error, got %v", err)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	msgs := config.Default().Loader
	err := &loader.Error{Kind: loader.NoMatchingSymbol, Name: "square"}
	if got := loader.Message(msgs, err); !strings.Contains(got, "`square`") {
		t.Errorf("no match message: %q", got)
	}
	err = &loader.Error{Kind: loader.NoScript, Exts: []string{".py", ".sh"}}
	if got := loader.Message(msgs, err); !strings.Contains(got, ".py, .sh") {
		t.Errorf("no script message: %q", got)
	}
	err = &loader.Error{Kind: loader.SyntaxError, Err: errors.New("main.py:2: invalid syntax")}
	if got := loader.Message(msgs, err); !strings.Contains(got, "main.py:2: invalid syntax") {
		t.Errorf("syntax message: %q", got)
	}
	if got := loader.Message(msgs, errors.New("boom")); !strings.Contains(got, "boom") {
		t.Errorf("import message: %q", got)
	}
}

func TestLoadScriptSyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.py")
	os.WriteFile(path, []byte("print('hi'\n"), 0o644)
	_, err := loader.LoadScript(context.Background(), path, loader.ScriptOptions{
		Interpreters: config.Default().Runner.Interpreters,
	})
	if !loader.IsKind(err, loader.SyntaxError) {
		t.Errorf("got %v, want syntax error", err)
	}
}

func writeGreeter(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not on PATH")
	}
	path := filepath.Join(t.TempDir(), "greet.sh")
	src := "read -p \"What's your name? \" name\necho \"Hello, $name!\"\nif [ -n \"$1\" ]; then echo \"arg $1\"; fi\n"
	os.WriteFile(path, []byte(src), 0o644)
	return path
}

func TestLoadScriptSimulatedInput(t *testing.T) {
	path := writeGreeter(t)
	fn, err := loader.LoadScript(context.Background(), path, loader.ScriptOptions{
		Interpreters: config.Default().Runner.Interpreters,
	})
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	con := engine.NewConsole(context.Background(), true, []string{"Bob"})
	if _, err := fn(con, engine.Args{}); err != nil {
		t.Fatalf("running script: %v", err)
	}
	if !strings.Contains(con.Output(), "Hello, Bob!") {
		t.Errorf("output: %q", con.Output())
	}
}

func TestLoadScriptArguments(t *testing.T) {
	path := writeGreeter(t)
	fn, err := loader.LoadScript(context.Background(), path, loader.ScriptOptions{
		Interpreters: config.Default().Runner.Interpreters,
	})
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	con := engine.NewConsole(context.Background(), true, nil)
	if _, err := fn(con, engine.Positional("x")); err != nil {
		t.Fatalf("running script: %v", err)
	}
	if !strings.Contains(con.Output(), "arg x") {
		t.Errorf("output: %q", con.Output())
	}
}

func TestLoadScriptExitStatus(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not on PATH")
	}
	path := filepath.Join(t.TempDir(), "fail.sh")
	os.WriteFile(path, []byte("echo broken >&2\nexit 3\n"), 0o644)
	fn, err := loader.LoadScript(context.Background(), path, loader.ScriptOptions{
		Interpreters: config.Default().Runner.Interpreters,
	})
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	_, err = fn(engine.NewConsole(context.Background(), true, nil), engine.Args{})
	var se *loader.ScriptError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want ScriptError", err)
	}
	if se.ExitCode != 3 || !strings.Contains(se.Error(), "broken") {
		t.Errorf("unexpected script error %+v", se)
	}
}

func TestLoadRegistry(t *testing.T) {
	reg := loader.NewRegistry()
	reg.Register("sub/square.go", "square", constant(4))
	fn, err := loader.Load(context.Background(), "sub", loader.Options{Symbol: "square", Registry: reg})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v, _ := fn(nil, engine.Args{}); v != 4 {
		t.Errorf("got %v, want 4", v)
	}
}
