package score

import (
	"errors"
	"fmt"
)

// tolerance absorbs float noise when checking that a budget is fully spent.
const tolerance = 1e-9

var (
	ErrInvalidSpec   = errors.New("invalid score spec")
	ErrOverAllocated = errors.New("absolute values exceed budget")
	ErrUnallocated   = errors.New("budget left over with no weighted items")
)

// Spec describes how a scoreable item claims points from its pool.
// Value is guaranteed, Weight shares whatever the values leave over, and
// Bonus is paid on top without reducing anyone else's share.
type Spec struct {
	Weight int     `json:"weight" yaml:"weight"`
	Value  float64 `json:"value" yaml:"value"`
	Bonus  float64 `json:"bonus,omitempty" yaml:"bonus"`
}

// Default is the spec used when an item declares nothing.
var Default = Spec{Weight: 1}

func (s Spec) Validate() error {
	if s.Weight < 0 {
		return fmt.Errorf("%w: negative weight %d", ErrInvalidSpec, s.Weight)
	}
	if s.Value < 0 {
		return fmt.Errorf("%w: negative value %g", ErrInvalidSpec, s.Value)
	}
	if s.Bonus < 0 {
		return fmt.Errorf("%w: negative bonus %g", ErrInvalidSpec, s.Bonus)
	}
	return nil
}

// Allocate distributes budget across items and returns one score per item,
// in order. Values are paid first; the remainder is split by weight.
func Allocate(items []Spec, budget float64) ([]float64, error) {
	if len(items) == 0 {
		return []float64{}, nil
	}

	var (
		values      float64
		totalWeight int
	)
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		values += item.Value
		totalWeight += item.Weight
	}

	remaining := budget - values
	if remaining < -tolerance {
		return nil, fmt.Errorf("%w: values sum to %g, budget is %g", ErrOverAllocated, values, budget)
	}
	if remaining < 0 {
		remaining = 0
	}
	if totalWeight == 0 && remaining > tolerance {
		return nil, fmt.Errorf("%w: %g of %g points", ErrUnallocated, remaining, budget)
	}

	scores := make([]float64, len(items))
	for i, item := range items {
		scores[i] = item.Value + item.Bonus
		if totalWeight > 0 {
			scores[i] += remaining * float64(item.Weight) / float64(totalWeight)
		}
	}
	return scores, nil
}

// Sum adds up a list of scores.
func Sum(scores []float64) float64 {
	var total float64
	for _, s := range scores {
		total += s
	}
	return total
}
