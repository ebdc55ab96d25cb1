package result

import "time"

type Status string

const (
	Passed Status = "passed"
	Failed Status = "failed"
)

type TrialOutcome struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	MaxScore    float64 `json:"max_score"`
	Score       float64 `json:"score"`
	Status      Status  `json:"status"`
	Hidden      bool    `json:"hidden"`
	ErrorText   string  `json:"error_text,omitempty"`
	// Message is the award text of a bonus outcome.
	Message string `json:"message,omitempty"`
	Bonus   bool   `json:"bonus,omitempty"`
}

func (o TrialOutcome) Passed() bool {
	return o.Status == Passed
}

type Report struct {
	Trials     []TrialOutcome `json:"trials"`
	TotalScore float64        `json:"total_score"`
	Summary    string         `json:"summary"`
}

// MaxScore is the sum of every outcome's maximum.
func (r *Report) MaxScore() float64 {
	var total float64
	for _, o := range r.Trials {
		total += o.MaxScore
	}
	return total
}

// Metadata describes the submission being graded.
type Metadata struct {
	TotalPoints float64 `json:"total_points"`
	// TimeSincePastDue is negative when the submission is early.
	TimeSincePastDue time.Duration `json:"time_since_past_due"`
	PriorSubmissions int           `json:"prior_submissions"`
}

// OnTime reports whether the submission arrived by the deadline.
func (m Metadata) OnTime() bool {
	return m.TimeSincePastDue <= 0
}
