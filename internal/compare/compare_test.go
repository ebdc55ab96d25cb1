package compare_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/signalnine/autograde/internal/compare"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		ok       bool
	}{
		{"ints", 4, 4, true},
		{"different ints", 4, 3, false},
		{"float rounding", 0.3, 0.1 + 0.2, true},
		{"float within seven places", 1.0, 1.00000004, true},
		{"float outside seven places", 1.0, 1.000001, false},
		{"int and float", 2, 2.0, true},
		{"int and int64", 4, int64(4), true},
		{"int and uint8", 200, uint8(200), true},
		{"int and different int64", 4, int64(5), false},
		{"negative int and uint", -1, ^uint(0), false},
		{"strings", "abc", "abc", true},
		{"different strings", "abc", "abd", false},
		{"slices", []int{1, 2}, []int{1, 2}, true},
		{"different slices", []int{1, 2}, []int{2, 1}, false},
		{"maps", map[string]int{"a": 1}, map[string]int{"a": 1}, true},
		{"nil", nil, nil, true},
		{"nil and value", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := compare.Equal(tt.expected, tt.actual)
			if tt.ok && err != nil {
				t.Errorf("expected match, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected mismatch")
			}
		})
	}
}

func TestEqualTextDiff(t *testing.T) {
	err := compare.Equal("Hello, Alice\nHello, Bob\n", "Hello, Bob\nHello, Alice\n")
	var m *compare.Mismatch
	if !errors.As(err, &m) {
		t.Fatalf("expected *Mismatch, got %v", err)
	}
	if !strings.Contains(m.Diff, "\n-Hello, ") || !strings.Contains(m.Diff, "\n+Hello, ") {
		t.Errorf("diff does not show moved line:\n%s", m.Diff)
	}
	if !strings.HasPrefix(m.Diff, "--- yours") {
		t.Errorf("unexpected diff header:\n%s", m.Diff)
	}
}

func TestLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"a", []string{"a"}},
		{"a\nb\n", []string{"a", "b"}},
		{"a\r\nb", []string{"a", "b"}},
		{"a\n\nb", []string{"a", "", "b"}},
	}
	for _, tt := range tests {
		got := compare.Lines(tt.in)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("Lines(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRepr(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{2, "2"},
		{"Alice", `"Alice"`},
		{[]string{"a", "b"}, `["a", "b"]`},
		{[]int{1, 2}, "[1, 2]"},
		{nil, "nil"},
		{1.5, "1.5"},
	}
	for _, tt := range tests {
		if got := compare.Repr(tt.in); got != tt.want {
			t.Errorf("Repr(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
