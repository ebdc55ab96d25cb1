package report

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/signalnine/autograde/internal/result"
)

// Formats accepted by Write.
var Formats = []string{"table", "markdown", "json", "gradescope", "pretty"}

// Write renders a single grading report.
func Write(rep *result.Report, format string, w io.Writer) error {
	switch format {
	case "markdown":
		return writeMarkdown(rep, w)
	case "json":
		return writeJSON(rep, w)
	case "gradescope":
		return writeJSON(Gradescope(rep), w)
	case "pretty":
		return writePretty(rep, w)
	case "", "table":
		return writeTable(rep, w)
	default:
		return fmt.Errorf("unknown report format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// GradescopeTest is one entry of the "tests" array in results.json.
type GradescopeTest struct {
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"max_score"`
	Status     string  `json:"status"`
	Output     string  `json:"output,omitempty"`
	Visibility string  `json:"visibility"`
}

// GradescopeResults is the results.json document Gradescope reads.
type GradescopeResults struct {
	Score  float64          `json:"score"`
	Output string           `json:"output,omitempty"`
	Tests  []GradescopeTest `json:"tests"`
}

// Gradescope converts a report to the results.json layout. Hidden outcomes
// become visible once grades are published.
func Gradescope(rep *result.Report) GradescopeResults {
	out := GradescopeResults{
		Score:  rep.TotalScore,
		Output: rep.Summary,
		Tests:  make([]GradescopeTest, 0, len(rep.Trials)),
	}
	for _, o := range rep.Trials {
		vis := "visible"
		if o.Hidden {
			vis = "after_published"
		}
		out.Tests = append(out.Tests, GradescopeTest{
			Name:       o.Name,
			Score:      o.Score,
			MaxScore:   o.MaxScore,
			Status:     string(o.Status),
			Output:     outputText(o),
			Visibility: vis,
		})
	}
	return out
}

func outputText(o result.TrialOutcome) string {
	var parts []string
	if o.Description != "" {
		parts = append(parts, o.Description)
	}
	if o.ErrorText != "" {
		parts = append(parts, o.ErrorText)
	}
	if o.Message != "" {
		parts = append(parts, o.Message)
	}
	return strings.Join(parts, "\n\n")
}

func kind(o result.TrialOutcome) string {
	if o.Bonus {
		return "bonus"
	}
	return "trial"
}

func writeTable(rep *result.Report, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tSTATUS\tSCORE\tMAX\tHIDDEN")
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	for _, o := range rep.Trials {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.2f\t%t\n",
			o.Name, kind(o), o.Status, o.Score, o.MaxScore, o.Hidden)
	}
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	fmt.Fprintf(tw, "TOTAL\t\t\t%.2f\t%.2f\t\n", rep.TotalScore, rep.MaxScore())
	if err := tw.Flush(); err != nil {
		return err
	}
	if rep.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", rep.Summary)
	}
	return nil
}

func writeMarkdown(rep *result.Report, w io.Writer) error {
	fmt.Fprintln(w, "| Name | Kind | Status | Score | Max |")
	fmt.Fprintln(w, "|---|---|---|---|---|")
	for _, o := range rep.Trials {
		fmt.Fprintf(w, "| %s | %s | %s | %.2f | %.2f |\n",
			escapeCell(o.Name), kind(o), o.Status, o.Score, o.MaxScore)
	}
	fmt.Fprintf(w, "| **Total** | | | %.2f | %.2f |\n", rep.TotalScore, rep.MaxScore())
	if rep.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", rep.Summary)
	}
	return nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func writeJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var (
	passStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	totalStyle = lipgloss.NewStyle().Bold(true)
	errStyle   = lipgloss.NewStyle().PaddingLeft(4)
)

func writePretty(rep *result.Report, w io.Writer) error {
	var b strings.Builder
	for _, o := range rep.Trials {
		mark := passStyle.Render("PASS")
		if !o.Passed() {
			mark = failStyle.Render("FAIL")
		}
		line := fmt.Sprintf("%s %s %s", mark, o.Name,
			dimStyle.Render(fmt.Sprintf("(%.2f/%.2f)", o.Score, o.MaxScore)))
		if o.Bonus {
			line += dimStyle.Render(" bonus")
		}
		b.WriteString(line + "\n")
		if text := outputText(o); text != "" && (!o.Passed() || o.Bonus) {
			b.WriteString(errStyle.Render(text) + "\n")
		}
	}
	b.WriteString(totalStyle.Render(fmt.Sprintf("Total: %.2f/%.2f", rep.TotalScore, rep.MaxScore())) + "\n")
	if rep.Summary != "" {
		b.WriteString("\n" + rep.Summary + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// SubmissionSummary is one row of a run report.
type SubmissionSummary struct {
	Submission string  `json:"submission"`
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"max_score"`
	Passed     int     `json:"passed"`
	Trials     int     `json:"trials"`
}

// Generate reads the stored reports of a run and summarizes one row per
// submission.
func Generate(runDir, format string, w io.Writer) error {
	found, errs, err := result.CollectReports(runDir)
	if err != nil {
		return err
	}
	for _, e := range errs {
		slog.Warn("skipping unreadable report", "error", e)
	}

	summaries := summarize(found)

	switch format {
	case "markdown":
		return writeRunMarkdown(summaries, w)
	case "json":
		return writeJSON(summaries, w)
	case "", "table":
		return writeRunTable(summaries, w)
	default:
		return fmt.Errorf("unknown run report format %q", format)
	}
}

func summarize(found []result.Stored) []SubmissionSummary {
	summaries := make([]SubmissionSummary, 0, len(found))
	for _, s := range found {
		row := SubmissionSummary{
			Submission: s.Submission,
			Score:      s.Report.TotalScore,
			MaxScore:   s.Report.MaxScore(),
		}
		for _, o := range s.Report.Trials {
			if o.Bonus {
				continue
			}
			row.Trials++
			if o.Passed() {
				row.Passed++
			}
		}
		summaries = append(summaries, row)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Submission < summaries[j].Submission
	})
	return summaries
}

func writeRunTable(summaries []SubmissionSummary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBMISSION\tSCORE\tMAX\tPASSED")
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%d/%d\n", s.Submission, s.Score, s.MaxScore, s.Passed, s.Trials)
	}
	return tw.Flush()
}

func writeRunMarkdown(summaries []SubmissionSummary, w io.Writer) error {
	fmt.Fprintln(w, "| Submission | Score | Max | Passed |")
	fmt.Fprintln(w, "|---|---|---|---|")
	for _, s := range summaries {
		fmt.Fprintf(w, "| %s | %.2f | %.2f | %d/%d |\n",
			escapeCell(s.Submission), s.Score, s.MaxScore, s.Passed, s.Trials)
	}
	return nil
}
