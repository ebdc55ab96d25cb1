// Package compare holds the default equality rules used to judge whether
// a submission's result matches the reference result.
package compare

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/stretchr/testify/assert"
)

// Places is the number of decimal places two floats must agree to.
const Places = 7

// Delta is the largest difference still treated as equal for floats.
const Delta = 0.5e-7

// Mismatch describes a failed comparison. Diff is set for text values.
type Mismatch struct {
	Expected any
	Actual   any
	Diff     string
}

func (m *Mismatch) Error() string {
	msg := fmt.Sprintf("%s != %s", Repr(m.Actual), Repr(m.Expected))
	if m.Diff != "" {
		msg += "\n" + m.Diff
	}
	return msg
}

// discard satisfies assert.TestingT and drops testify's failure report;
// callers only need the verdict.
type discard struct{}

func (discard) Errorf(string, ...any) {}

// Equal compares expected and actual with the default rules: floats within
// Delta, integers by value whatever their width, text exactly with a line
// diff on mismatch, everything else by structural equality.
func Equal(expected, actual any) error {
	if isNumber(expected) && isNumber(actual) {
		if isFloat(expected) || isFloat(actual) {
			if assert.InDelta(discard{}, expected, actual, Delta) {
				return nil
			}
		} else if negative(expected) == negative(actual) && assert.ObjectsAreEqualValues(expected, actual) {
			return nil
		}
		return &Mismatch{Expected: expected, Actual: actual}
	}
	if es, ok := expected.(string); ok {
		if as, ok := actual.(string); ok {
			return Text(es, as)
		}
	}
	if assert.ObjectsAreEqual(expected, actual) {
		return nil
	}
	return &Mismatch{Expected: expected, Actual: actual}
}

// Text compares two strings exactly and reports a line diff on mismatch.
func Text(expected, actual string) error {
	if expected == actual {
		return nil
	}
	return &Mismatch{Expected: expected, Actual: actual, Diff: Diff(actual, expected)}
}

// Lines splits s into lines the way Python's str.splitlines does: line
// endings are dropped and a trailing newline does not yield an empty line.
func Lines(s string) []string {
	if s == "" {
		return []string{}
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

// Repr renders a value for use in feedback messages.
func Repr(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(x)
	case fmt.Stringer:
		return x.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = Repr(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case reflect.Pointer:
		if rv.IsNil() {
			return "nil"
		}
	}
	return fmt.Sprintf("%v", v)
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// negative keeps int(-1) from matching a uint that converts to it.
func negative(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() < 0
	}
	return false
}

func isFloat(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}
