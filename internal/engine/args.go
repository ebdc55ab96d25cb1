package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/huandu/go-clone"

	"github.com/signalnine/autograde/internal/compare"
)

// Args are the positional and named inputs of one call.
type Args struct {
	Pos []any
	Kw  map[string]any
}

// Positional builds Args from positional values only.
func Positional(vals ...any) Args {
	return Args{Pos: vals}
}

// Clone returns a deep copy so a callee mutating its inputs cannot affect
// the caller's values. Aliasing between inputs is preserved, so cyclic
// values are copied as cycles.
func (a Args) Clone() Args {
	return clone.Slowly(a).(Args)
}

// Len is the total number of inputs.
func (a Args) Len() int {
	return len(a.Pos) + len(a.Kw)
}

// Strings renders the positional inputs as plain text, the form used for
// simulated input lines and script arguments.
func (a Args) Strings() []string {
	out := make([]string, len(a.Pos))
	for i, v := range a.Pos {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func (a Args) positional() string {
	parts := make([]string, len(a.Pos))
	for i, v := range a.Pos {
		parts[i] = compare.Repr(v)
	}
	return strings.Join(parts, ", ")
}

func (a Args) named() string {
	keys := make([]string, 0, len(a.Kw))
	for k := range a.Kw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + compare.Repr(a.Kw[k])
	}
	return strings.Join(parts, ", ")
}

// String renders the inputs for feedback messages, named inputs sorted by
// name so the text is stable.
func (a Args) String() string {
	pos, kw := a.positional(), a.named()
	switch {
	case pos == "":
		return kw
	case kw == "":
		return pos
	}
	return pos + ", " + kw
}

// Clone deep-copies v, following pointers, maps, slices and struct fields.
// Already visited pointers are reused, so cycles terminate. Functions are
// shared.
func Clone(v any) any {
	if v == nil {
		return nil
	}
	return clone.Slowly(v)
}
