package result

import (
	"math"
	"strings"

	"github.com/signalnine/autograde/internal/config"
)

// Info identifies a trial or bonus while its outcome is being recorded.
type Info struct {
	Name        string
	Description string
	MaxScore    float64
	Hidden      bool
}

// Aggregator folds trial and bonus outcomes into a Report. Trials are added
// first; bonuses only after every trial outcome is known.
type Aggregator struct {
	msgs    config.SubmissionMessages
	trials  []TrialOutcome
	bonuses []TrialOutcome
}

func NewAggregator(msgs config.SubmissionMessages) *Aggregator {
	return &Aggregator{msgs: msgs}
}

// Add records a trial outcome. A pass earns the full score.
func (a *Aggregator) Add(info Info, passed bool, errorText string) TrialOutcome {
	o := TrialOutcome{
		Name:        info.Name,
		Description: info.Description,
		MaxScore:    info.MaxScore,
		Hidden:      info.Hidden,
		Status:      Failed,
	}
	if passed {
		o.Status = Passed
		o.Score = info.MaxScore
	} else {
		o.ErrorText = errorText
	}
	a.trials = append(a.trials, o)
	return o
}

// AddBonus records a bonus outcome; award is clamped to [0, 1] and NaN
// counts as 0.
func (a *Aggregator) AddBonus(info Info, award float64, message string) TrialOutcome {
	if math.IsNaN(award) {
		award = 0
	}
	award = min(max(award, 0), 1)
	o := TrialOutcome{
		Name:        info.Name,
		Description: info.Description,
		MaxScore:    info.MaxScore,
		Score:       award * info.MaxScore,
		Hidden:      info.Hidden,
		Status:      Failed,
		Message:     message,
		Bonus:       true,
	}
	if award > 0 {
		o.Status = Passed
	}
	a.bonuses = append(a.bonuses, o)
	return o
}

// Trials returns a copy of the trial outcomes recorded so far.
func (a *Aggregator) Trials() []TrialOutcome {
	return append([]TrialOutcome(nil), a.trials...)
}

// Report builds the final report. The summary only looks at trials.
func (a *Aggregator) Report() *Report {
	outcomes := make([]TrialOutcome, 0, len(a.trials)+len(a.bonuses))
	outcomes = append(outcomes, a.trials...)
	outcomes = append(outcomes, a.bonuses...)

	var total float64
	for _, o := range outcomes {
		total += o.Score
	}
	return &Report{
		Trials:     outcomes,
		TotalScore: total,
		Summary:    a.summary(),
	}
}

func (a *Aggregator) summary() string {
	var failed, hiddenFailed bool
	for _, o := range a.trials {
		if !o.Passed() {
			failed = true
			hiddenFailed = hiddenFailed || o.Hidden
		}
	}
	if !failed {
		return a.msgs.NoFailedTestsMsg
	}
	parts := []string{a.msgs.FailedTestsMsg}
	if hiddenFailed {
		parts = append(parts, a.msgs.FailedHiddenTestsMsg)
	}
	return strings.Join(parts, "\n\n")
}

// LoadFailure is the report for a submission that could not be loaded.
func LoadFailure(summary string) *Report {
	return &Report{Trials: []TrialOutcome{}, Summary: summary}
}
