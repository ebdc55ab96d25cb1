// Package checks rejects submissions that use constructs a problem forbids,
// such as loops in a recursion exercise or a built-in sort.
package checks

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/signalnine/autograde/internal/config"
	"github.com/signalnine/autograde/internal/engine"
	"github.com/signalnine/autograde/internal/loader"
)

// Rules list forbidden constructs by tree-sitter node type, called
// function name and operator token.
type Rules struct {
	Nodes     []string `yaml:"nodes"`
	Calls     []string `yaml:"calls"`
	Operators []string `yaml:"operators"`
}

func (r Rules) Empty() bool {
	return len(r.Nodes) == 0 && len(r.Calls) == 0 && len(r.Operators) == 0
}

type Violation struct {
	Rule      string
	Construct string
	// Line is 1-based.
	Line int
}

func (v Violation) String() string {
	return fmt.Sprintf("line %d: %s %q", v.Line, v.Rule, v.Construct)
}

// Scan parses src and returns every forbidden construct in source order.
func Scan(ctx context.Context, path string, src []byte, rules Rules) ([]Violation, error) {
	tree, err := loader.Parse(ctx, path, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var out []Violation
	walk(tree.RootNode(), func(n *sitter.Node) {
		line := int(n.StartPoint().Row) + 1
		if n.IsNamed() && slices.Contains(rules.Nodes, n.Type()) {
			out = append(out, Violation{Rule: "node", Construct: n.Type(), Line: line})
		}
		if name, ok := callee(n, src); ok && calls(rules.Calls, name) {
			out = append(out, Violation{Rule: "call", Construct: name, Line: line})
		}
		if !n.IsNamed() && isOperatorParent(n.Parent()) && slices.Contains(rules.Operators, n.Type()) {
			out = append(out, Violation{Rule: "operator", Construct: n.Type(), Line: line})
		}
	})
	return out, nil
}

func walk(n *sitter.Node, visit func(*sitter.Node)) {
	visit(n)
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), visit)
	}
}

// callee returns the called name for call nodes of the supported grammars.
func callee(n *sitter.Node, src []byte) (string, bool) {
	var fn *sitter.Node
	switch n.Type() {
	case "call", "call_expression":
		fn = n.ChildByFieldName("function")
	case "command":
		fn = n.ChildByFieldName("name")
	}
	if fn == nil {
		return "", false
	}
	return fn.Content(src), true
}

// calls matches plain names and the final component of dotted names.
func calls(forbidden []string, name string) bool {
	for _, f := range forbidden {
		if name == f || strings.HasSuffix(name, "."+f) {
			return true
		}
	}
	return false
}

func isOperatorParent(p *sitter.Node) bool {
	if p == nil {
		return false
	}
	t := p.Type()
	return strings.Contains(t, "operator") || strings.Contains(t, "binary") ||
		strings.Contains(t, "assignment") || strings.Contains(t, "unary") ||
		strings.Contains(t, "comparison")
}

type ctxKey struct{}

// WithSubmission records the submission's source file on ctx for the
// checker's override.
func WithSubmission(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, ctxKey{}, path)
}

// SubmissionPath returns the path stored by WithSubmission.
func SubmissionPath(ctx context.Context) (string, bool) {
	path, ok := ctx.Value(ctxKey{}).(string)
	return path, ok && path != ""
}

// Checker scans each submission once and fails every trial of a
// submission that breaks a rule.
type Checker struct {
	rules Rules
	msgs  config.TestMessages

	mu    sync.Mutex
	cache map[string]scanResult
}

type scanResult struct {
	violations []Violation
	err        error
}

func New(rules Rules, msgs config.TestMessages) *Checker {
	return &Checker{rules: rules, msgs: msgs, cache: make(map[string]scanResult)}
}

// Check scans the file at path, reusing earlier results.
func (c *Checker) Check(ctx context.Context, path string) ([]Violation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.cache[path]; ok {
		return r.violations, r.err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading submission: %w", err)
	}
	v, err := Scan(ctx, path, src, c.rules)
	c.cache[path] = scanResult{violations: v, err: err}
	return v, err
}

// Override wraps next, or the default protocol when next is nil. Trials
// run without a submission path on the context, as in golden validation,
// skip the scan.
func (c *Checker) Override(next engine.ExecutionOverride) engine.ExecutionOverride {
	return func(tc *engine.TrialContext, golden, submission engine.Func) error {
		if path, ok := SubmissionPath(tc.Context()); ok {
			violations, err := c.Check(tc.Context(), path)
			if err != nil {
				return err
			}
			if len(violations) > 0 {
				v := violations[0]
				tc.Errorf("%s", config.Render(c.msgs.DisallowedMsg, map[string]any{
					"Construct": v.Construct,
					"Line":      v.Line,
				}))
				return nil
			}
		}
		if next != nil {
			return next(tc, golden, submission)
		}
		return tc.RunDefault(golden, submission)
	}
}
