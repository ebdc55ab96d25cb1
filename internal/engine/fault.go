package engine

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// Fault is an uncaught error or panic raised by an implementation.
type Fault struct {
	// Golden is set when the reference implementation raised it.
	Golden bool
	Err    error
	// Trace holds the user frames of a panic, outermost first.
	Trace string
}

func (f *Fault) Error() string {
	return f.Err.Error()
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Kind names the fault for feedback messages.
func (f *Fault) Kind() string {
	var pe *PanicError
	if errors.As(f.Err, &pe) {
		if _, ok := pe.Value.(runtime.Error); ok {
			return "runtime error"
		}
		return "panic"
	}
	return "error"
}

// PanicError wraps a recovered panic value.
type PanicError struct {
	Value any
}

func (p *PanicError) Error() string {
	if err, ok := p.Value.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(p.Value)
}

func (p *PanicError) Unwrap() error {
	err, _ := p.Value.(error)
	return err
}

// internalPrefixes are the function name prefixes of frames that belong to
// the grading machinery rather than to graded code.
var internalPrefixes = func() []string {
	name := runtime.FuncForPC(reflect.ValueOf(userFrames).Pointer()).Name()
	pkg := name[:strings.LastIndex(name, ".")]
	root := pkg[:strings.LastIndex(pkg, "/")]
	prefixes := []string{"runtime.", "testing.", "reflect.", "os/exec."}
	for _, p := range []string{"engine", "problem", "loader", "checks", "runner", "docker"} {
		prefixes = append(prefixes, root+"/"+p+".")
	}
	return prefixes
}()

// IsInternal reports whether a frame's function belongs to the grading
// machinery.
func IsInternal(function string) bool {
	for _, p := range internalPrefixes {
		if strings.HasPrefix(function, p) {
			return true
		}
	}
	return false
}

// callers returns the current goroutine's stack, innermost first.
func callers() []runtime.Frame {
	pcs := make([]uintptr, 128)
	n := runtime.Callers(1, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var stack []runtime.Frame
	for {
		fr, more := frames.Next()
		stack = append(stack, fr)
		if !more {
			break
		}
	}
	return stack
}

// userFrames keeps the trailing contiguous run of user frames. stack is
// innermost first, as captured inside a deferred recover; the recovery and
// panic frames on top are dropped, then frames are walked from the
// outermost in and every internal frame discards what was collected so far.
// The result is outermost first.
func userFrames(stack []runtime.Frame, internal func(string) bool) []runtime.Frame {
	top := 0
	for top < len(stack) && internal(stack[top].Function) {
		top++
	}
	var kept []runtime.Frame
	for i := len(stack) - 1; i >= top; i-- {
		if internal(stack[i].Function) {
			kept = kept[:0]
			continue
		}
		kept = append(kept, stack[i])
	}
	return kept
}

func formatFrames(frames []runtime.Frame) string {
	var b strings.Builder
	for _, fr := range frames {
		fmt.Fprintf(&b, "  %s:%d in %s\n", fr.File, fr.Line, fr.Function)
	}
	return strings.TrimRight(b.String(), "\n")
}
