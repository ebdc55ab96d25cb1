package problem

import (
	"fmt"

	"github.com/signalnine/autograde/internal/engine"
	"github.com/signalnine/autograde/internal/result"
	"github.com/signalnine/autograde/internal/score"
)

// Group is a set of trials and bonuses sharing one slice of the problem's
// points.
type Group struct {
	Name    string
	Score   score.Spec
	Trials  []*engine.Trial
	Bonuses []*Bonus
	// Virtual marks the group formed by trials added after the last
	// AddGroup call.
	Virtual bool
}

// Specs returns the score specs of the group's members, trials first.
func (g *Group) Specs() []score.Spec {
	specs := make([]score.Spec, 0, len(g.Trials)+len(g.Bonuses))
	for _, t := range g.Trials {
		specs = append(specs, t.Score)
	}
	for _, b := range g.Bonuses {
		specs = append(specs, b.Score)
	}
	return specs
}

// Criterion decides how much of a bonus a submission earns, from 0 to 1,
// given every trial outcome of the problem.
type Criterion func(outcomes []result.TrialOutcome, meta result.Metadata) (award float64, message string)

// Bonus awards points for a property of the whole submission, such as
// passing every trial or arriving on time.
type Bonus struct {
	Name        string
	Description string
	Hidden      bool
	Score       score.Spec
	Criterion   Criterion
}

// award runs the criterion, treating a panic as no award.
func (b *Bonus) award(outcomes []result.TrialOutcome, meta result.Metadata) (award float64, message string) {
	defer func() {
		if r := recover(); r != nil {
			award, message = 0, fmt.Sprintf("evaluating %s failed: %v", b.Name, r)
		}
	}()
	return b.Criterion(outcomes, meta)
}

// AllCorrect awards the bonus when every trial passed.
func AllCorrect(outcomes []result.TrialOutcome, _ result.Metadata) (float64, string) {
	for _, o := range outcomes {
		if !o.Passed() {
			return 0, "Not all tests passed."
		}
	}
	return 1, "All tests passed!"
}

// OnTime awards the bonus when the submission was made by the deadline.
func OnTime(_ []result.TrialOutcome, meta result.Metadata) (float64, string) {
	if meta.OnTime() {
		return 1, "Submitted on time!"
	}
	return 0, "Submitted late."
}

// CorrectAndOnTime requires both AllCorrect and OnTime.
func CorrectAndOnTime(outcomes []result.TrialOutcome, meta result.Metadata) (float64, string) {
	correct, _ := AllCorrect(outcomes, meta)
	onTime, _ := OnTime(outcomes, meta)
	if correct > 0 && onTime > 0 {
		return 1, "All tests passed and submitted on time!"
	}
	return 0, "To earn this, pass every test and submit on time."
}

// PenaltyStep awards Award to submissions with fewer than Below prior
// submissions.
type PenaltyStep struct {
	Below int     `yaml:"below"`
	Award float64 `yaml:"award"`
}

// DefaultPenaltySteps give full credit for the first two submissions,
// 80% up to the sixth and half after that.
var DefaultPenaltySteps = []PenaltyStep{{Below: 2, Award: 1}, {Below: 6, Award: 0.8}}

// ResubmissionPenalty scales the bonus down as prior submissions pile up.
// Steps are checked in order; past the last one Floor is awarded. Nil
// steps use DefaultPenaltySteps with a floor of 0.5.
func ResubmissionPenalty(steps []PenaltyStep, floor float64) Criterion {
	if steps == nil {
		steps, floor = DefaultPenaltySteps, 0.5
	}
	return func(_ []result.TrialOutcome, meta result.Metadata) (float64, string) {
		award := floor
		for _, s := range steps {
			if meta.PriorSubmissions < s.Below {
				award = s.Award
				break
			}
		}
		return award, fmt.Sprintf("%d prior submissions: %.0f%% of the resubmission credit.",
			meta.PriorSubmissions, award*100)
	}
}
