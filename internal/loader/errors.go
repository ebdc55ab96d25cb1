// Package loader finds and loads student submissions: Go functions from a
// symbol registry, or scripts run through an interpreter.
package loader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/signalnine/autograde/internal/config"
)

type Kind int

const (
	SyntaxError Kind = iota + 1
	NoMatchingSymbol
	TooManyMatchingSymbols
	NoScript
	MultipleScripts
)

func (k Kind) String() string {
	switch k {
	case SyntaxError:
		return "syntax error"
	case NoMatchingSymbol:
		return "no matching symbol"
	case TooManyMatchingSymbols:
		return "too many matching symbols"
	case NoScript:
		return "no script"
	case MultipleScripts:
		return "multiple scripts"
	default:
		return "unknown"
	}
}

// Error is a submission that could not be loaded.
type Error struct {
	Kind Kind
	// Name is the symbol searched for.
	Name string
	// Path is the offending file or directory.
	Path string
	// Exts are the script extensions that were searched.
	Exts []string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Name != "" {
		fmt.Fprintf(&b, " %q", e.Name)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " in %s", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a load error of kind k.
func IsKind(err error, k Kind) bool {
	var le *Error
	return errors.As(err, &le) && le.Kind == k
}

// Message renders the student-facing text for a load error. Errors that
// are not load errors are worded as import errors.
func Message(msgs config.LoaderMessages, err error) string {
	var le *Error
	if !errors.As(err, &le) {
		return config.Render(msgs.ImportErrorMsg, map[string]string{"Message": err.Error()})
	}
	data := map[string]string{
		"Name":    le.Name,
		"Message": le.Error(),
		"Exts":    strings.Join(le.Exts, ", "),
	}
	if le.Err != nil {
		data["Message"] = le.Err.Error()
	}
	switch le.Kind {
	case NoMatchingSymbol:
		return config.Render(msgs.NoMatchMsg, data)
	case TooManyMatchingSymbols:
		return config.Render(msgs.TooManyMatchesMsg, data)
	case NoScript:
		return config.Render(msgs.NoScriptErrorMsg, data)
	case MultipleScripts:
		return config.Render(msgs.MultipleScriptsErrorMsg, data)
	default:
		return config.Render(msgs.ImportErrorMsg, data)
	}
}
