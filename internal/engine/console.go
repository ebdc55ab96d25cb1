package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ErrNoInput is returned by Console.Input when the trial does not simulate
// interactive input.
var ErrNoInput = errors.New("interactive input is not available")

// Console is the execution context handed to an implementation for one
// evaluation. It owns the output sink and, in simulated-input mode, the
// queue of input lines. Every evaluation gets its own Console.
type Console struct {
	ctx         context.Context
	mu          sync.Mutex
	out         io.Writer
	buf         *strings.Builder
	inputs      []string
	interactive bool
}

// NewConsole creates a console. When capture is false output goes to the
// process stdout. A non-nil inputs slice enables simulated input.
func NewConsole(ctx context.Context, capture bool, inputs []string) *Console {
	c := &Console{ctx: ctx, out: os.Stdout}
	if capture {
		c.buf = &strings.Builder{}
		c.out = c.buf
	}
	if inputs != nil {
		c.interactive = true
		c.inputs = append([]string(nil), inputs...)
	}
	return c
}

// Context is the context of the grading run.
func (c *Console) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

func (c *Console) WriteString(s string) (int, error) {
	return c.Write([]byte(s))
}

func (c *Console) Print(a ...any) {
	fmt.Fprint(c, a...)
}

func (c *Console) Println(a ...any) {
	fmt.Fprintln(c, a...)
}

func (c *Console) Printf(format string, a ...any) {
	fmt.Fprintf(c, format, a...)
}

// Input writes the prompt followed by a newline and returns the next
// queued input line. It returns io.EOF once the queue is empty.
func (c *Console) Input(prompt ...any) (string, error) {
	if !c.interactive {
		return "", ErrNoInput
	}
	c.Println(prompt...)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inputs) == 0 {
		return "", io.EOF
	}
	line := c.inputs[0]
	c.inputs = c.inputs[1:]
	return line, nil
}

// Interactive reports whether input is simulated.
func (c *Console) Interactive() bool {
	return c.interactive
}

// Drain removes and returns every queued input line, for runners that feed
// a child process on stdin.
func (c *Console) Drain() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := c.inputs
	c.inputs = nil
	return lines
}

// Captured reports whether output is being captured.
func (c *Console) Captured() bool {
	return c.buf != nil
}

// Output returns the captured text, or "" when not capturing.
func (c *Console) Output() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.buf == nil {
		return ""
	}
	return c.buf.String()
}
