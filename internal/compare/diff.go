package compare

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff returns a unified line diff from got to want. Lines starting with
// "-" come from got and lines starting with "+" from want.
func Diff(got, want string) string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(got),
		B:        difflib.SplitLines(want),
		FromFile: "yours",
		ToFile:   "expected",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return strings.TrimRight(text, "\n")
}
