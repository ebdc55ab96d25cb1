// Package problemfile reads YAML problem definitions and turns them into
// problems ready to grade.
package problemfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/signalnine/autograde/internal/checks"
	"github.com/signalnine/autograde/internal/problem"
	"gopkg.in/yaml.v3"
)

// DefaultPoints is the budget used when neither the file nor the caller
// sets one.
const DefaultPoints = 100

type File struct {
	Name string `yaml:"name" validate:"required"`
	// Golden is a script next to the file; Symbol names a registered Go
	// implementation instead.
	Golden        string       `yaml:"golden" validate:"required_without=Symbol,excluded_with=Symbol"`
	Symbol        string       `yaml:"symbol"`
	Points        float64      `yaml:"points" validate:"gte=0"`
	Script        bool         `yaml:"script"`
	CaptureOutput bool         `yaml:"capture_output"`
	SimulateInput bool         `yaml:"simulate_input"`
	ScriptExts    []string     `yaml:"script_exts" validate:"dive,startswith=."`
	Disallow      checks.Rules `yaml:"disallow"`
	Groups        []Group      `yaml:"groups" validate:"dive"`
	Trials        []Trial      `yaml:"trials" validate:"dive"`
	Bonuses       []Bonus      `yaml:"bonuses" validate:"dive"`
}

// Scoring is shared by groups, trials and bonuses.
type Scoring struct {
	Weight      *int    `yaml:"weight" validate:"omitnil,gte=0"`
	Value       float64 `yaml:"value" validate:"gte=0"`
	ExtraCredit float64 `yaml:"extra_credit" validate:"gte=0"`
}

type Group struct {
	Name    string `yaml:"name"`
	Scoring `yaml:",inline"`
	Trials  []Trial `yaml:"trials" validate:"dive"`
	Bonuses []Bonus `yaml:"bonuses" validate:"dive"`
}

type Trial struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Hidden      bool   `yaml:"hidden"`
	Scoring     `yaml:",inline"`

	Args          []any            `yaml:"args"`
	Kwargs        map[string]any   `yaml:"kwargs"`
	Zip           [][]any          `yaml:"zip"`
	ZipKwargs     map[string][]any `yaml:"zip_kwargs"`
	Product       [][]any          `yaml:"product"`
	ProductKwargs map[string][]any `yaml:"product_kwargs"`
	Params        [][]any          `yaml:"params"`
	Pipeline      []Op             `yaml:"pipeline" validate:"dive"`

	Expect       yaml.Node `yaml:"expect"`
	ExpectOutput *string   `yaml:"expect_output"`
	ExpectLines  []string  `yaml:"expect_lines"`

	ExpectEach       []any    `yaml:"expect_each"`
	ExpectOutputEach []string `yaml:"expect_output_each"`
	NameEach         []string `yaml:"name_each"`
	DescriptionEach  []string `yaml:"description_each"`
	HiddenEach       []bool   `yaml:"hidden_each"`
}

type Op struct {
	Op   string   `yaml:"op" validate:"required,oneof=construct call get"`
	Name string   `yaml:"name" validate:"required_if=Op call"`
	Args []any    `yaml:"args"`
	Path []string `yaml:"path" validate:"required_if=Op get"`
}

type Bonus struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Hidden      bool   `yaml:"hidden"`
	Scoring     `yaml:",inline"`
	// Criterion is one of all_correct, on_time, correct_and_on_time or
	// resubmission.
	Criterion string                `yaml:"criterion" validate:"required,oneof=all_correct on_time correct_and_on_time resubmission"`
	Steps     []problem.PenaltyStep `yaml:"steps"`
	Floor     float64               `yaml:"floor" validate:"gte=0,lte=1"`
}

// modes counts how many ways of giving inputs a trial entry uses.
func (t *Trial) modes() int {
	n := 0
	for _, set := range []bool{
		t.Args != nil || t.Kwargs != nil,
		t.Zip != nil || t.ZipKwargs != nil,
		t.Product != nil || t.ProductKwargs != nil,
		t.Params != nil,
		t.Pipeline != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

var checker = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes and validates a problem file. Unknown keys are errors.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing problem file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading problem file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func (f *File) validate() error {
	if err := checker.Struct(f); err != nil {
		return fmt.Errorf("%w: %w", problem.ErrDefinition, err)
	}
	var errs []error
	check := func(where string, trials []Trial) {
		for i := range trials {
			t := &trials[i]
			if n := t.modes(); n != 1 {
				errs = append(errs, fmt.Errorf("%w: %s trial %d: exactly one of args, zip, product, params or pipeline is required, got %d",
					problem.ErrDefinition, where, i+1, n))
			}
			if t.hasEach() && (t.Pipeline != nil || t.Args != nil || t.Kwargs != nil) {
				errs = append(errs, fmt.Errorf("%w: %s trial %d: per-trial lists need zip, product or params",
					problem.ErrDefinition, where, i+1))
			}
			if t.ExpectOutput != nil && t.ExpectLines != nil {
				errs = append(errs, fmt.Errorf("%w: %s trial %d: expect_output and expect_lines are exclusive",
					problem.ErrDefinition, where, i+1))
			}
		}
	}
	for i, g := range f.Groups {
		check(fmt.Sprintf("group %d", i+1), g.Trials)
	}
	check("ungrouped", f.Trials)
	return errors.Join(errs...)
}
