package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Test       TestMessages       `yaml:"test"`
	Submission SubmissionMessages `yaml:"submission"`
	Loader     LoaderMessages     `yaml:"loader"`
	Problem    ProblemSettings    `yaml:"problem"`
	Runner     RunnerSettings     `yaml:"runner"`
}

// TestMessages are the templates used for per-trial feedback.
type TestMessages struct {
	NameFormat         string `yaml:"name_fmt" validate:"required"`
	NameSep            string `yaml:"name_sep"`
	FailureMsg         string `yaml:"failure_msg" validate:"required"`
	ErrorMsg           string `yaml:"error_msg" validate:"required"`
	GoldenErrorMsg     string `yaml:"golden_error_msg" validate:"required"`
	StdoutDifferMsg    string `yaml:"stdout_differ_msg" validate:"required"`
	DiffExplanationMsg string `yaml:"diff_explanation_msg"`
	PipelineLengthMsg  string `yaml:"pipeline_length_msg" validate:"required"`
	PipelineDiffMsg    string `yaml:"pipeline_diff_msg" validate:"required"`
	DisallowedMsg      string `yaml:"disallowed_msg" validate:"required"`
}

// SubmissionMessages are the templates for the report summary.
type SubmissionMessages struct {
	FailedTestsMsg       string `yaml:"failed_tests_msg" validate:"required"`
	FailedHiddenTestsMsg string `yaml:"failed_hidden_tests_msg" validate:"required"`
	NoFailedTestsMsg     string `yaml:"no_failed_tests_msg" validate:"required"`
}

// LoaderMessages explain why a submission could not be loaded.
type LoaderMessages struct {
	ImportErrorMsg          string `yaml:"import_error_msg" validate:"required"`
	NoMatchMsg              string `yaml:"no_match_msg" validate:"required"`
	TooManyMatchesMsg       string `yaml:"too_many_matches_msg" validate:"required"`
	NoScriptErrorMsg        string `yaml:"no_script_error_msg" validate:"required"`
	MultipleScriptsErrorMsg string `yaml:"multiple_scripts_error_msg" validate:"required"`
}

type ProblemSettings struct {
	CaptureOutput bool     `yaml:"capture_output" env:"AUTOGRADE_CAPTURE_OUTPUT"`
	SimulateInput bool     `yaml:"simulate_input" env:"AUTOGRADE_SIMULATE_INPUT"`
	ScriptExts    []string `yaml:"script_exts" env:"AUTOGRADE_SCRIPT_EXTS" validate:"min=1,dive,startswith=."`
	Workers       int      `yaml:"workers" env:"AUTOGRADE_WORKERS" validate:"gte=0"`
}

// RunnerSettings control how script submissions are executed.
type RunnerSettings struct {
	Interpreters map[string][]string `yaml:"interpreters"`
	Image        string              `yaml:"image" env:"AUTOGRADE_RUNNER_IMAGE"`
	Timeout      time.Duration       `yaml:"timeout" env:"AUTOGRADE_RUNNER_TIMEOUT" validate:"gte=0s"`
}

// Default returns the built-in configuration. Load layers files and the
// environment on top of it.
func Default() *Config {
	return &Config{
		Test: TestMessages{
			NameFormat: "Test on {{.Args}}{{.Sep}}{{.Kwargs}}.",
			NameSep:    ", ",
			FailureMsg: "Your submission didn't give the output we expected. " +
				"We checked it with {{.Input}} and got {{.Output}}, but we expected {{.Expected}}." +
				"{{if .Diff}}{{.DiffExplanation}}\n\n{{.Diff}}{{end}}",
			ErrorMsg: "A test crashed! We got a {{.Type}} with the message: {{.Message}}" +
				"{{if .Traceback}}\n\nHere's the trace:\n{{.Traceback}}{{end}}",
			GoldenErrorMsg: "The reference solution crashed on {{.Input}} with a {{.Type}}: {{.Message}}. " +
				"This is a problem with the assignment, not with your code; please let your instructor know." +
				"{{if .Traceback}}\n\n{{.Traceback}}{{end}}",
			StdoutDifferMsg: "Your submission printed something different from what we expected. " +
				"We checked it with {{.Input}}.{{.DiffExplanation}}\n\n{{.Diff}}",
			DiffExplanationMsg: "\n\nHere's a detailed look at the difference. " +
				"Lines starting with `-` are what we got from you, lines starting with `+` are what we expected.",
			PipelineLengthMsg: "Expected {{.Expected}} results, but got {{.Actual}}.",
			PipelineDiffMsg: "The first difference happens in step {{.Index}} ({{.Op}}): " +
				"we got {{.Output}}, but we expected {{.Expected}}.",
			DisallowedMsg: "Your submission uses `{{.Construct}}` on line {{.Line}}, " +
				"which isn't allowed in this problem.",
		},
		Submission: SubmissionMessages{
			FailedTestsMsg: "Good work, but it looks like some tests failed; " +
				"take a look and see if you can fix them!",
			FailedHiddenTestsMsg: "Some of those tests were hidden tests, for which you won't know the inputs. " +
				"In the real world, we don't always know exactly how or why our code is failing. " +
				"Try to test edge cases and see if you can find the bugs!",
			NoFailedTestsMsg: "Great work! Looks like you're passing all the tests.",
		},
		Loader: LoaderMessages{
			ImportErrorMsg: "Looks like there's an error in your code. " +
				"We couldn't load your submission; the error was:\n\n{{.Message}}",
			NoMatchMsg: "It looks like you didn't include the right object; " +
				"we were looking for something named `{{.Name}}`. Make sure the name is spelled correctly.",
			TooManyMatchesMsg: "It looks like multiple files you submitted have objects named `{{.Name}}`; " +
				"unfortunately, we can't figure out which one is supposed to be the real submission. " +
				"Please remove all but one of them and resubmit.",
			NoScriptErrorMsg: "It looks like you didn't upload a script. " +
				"Please make sure your script ends in {{.Exts}}.",
			MultipleScriptsErrorMsg: "It looks like you uploaded multiple scripts. " +
				"Please make sure you only upload one file ending in {{.Exts}}.",
		},
		Problem: ProblemSettings{
			ScriptExts: []string{".py"},
		},
		Runner: RunnerSettings{
			Interpreters: map[string][]string{
				".py": {"python3"},
				".js": {"node"},
				".sh": {"bash"},
			},
			Timeout: 30 * time.Second,
		},
	}
}

var checker = validator.New(validator.WithRequiredStructEnabled())

// Load reads a YAML file over the defaults and applies AUTOGRADE_*
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if err := checker.Struct(cfg); err != nil {
		return err
	}
	var errs []error
	for name, text := range cfg.templates() {
		if _, err := template.New(name).Parse(text); err != nil {
			errs = append(errs, fmt.Errorf("template %s: %w", name, err))
		}
	}
	for ext, cmd := range cfg.Runner.Interpreters {
		if len(cmd) == 0 {
			errs = append(errs, fmt.Errorf("interpreter for %s: empty command", ext))
		}
	}
	return errors.Join(errs...)
}

func (cfg *Config) templates() map[string]string {
	return map[string]string{
		"test.name_fmt":                     cfg.Test.NameFormat,
		"test.failure_msg":                  cfg.Test.FailureMsg,
		"test.error_msg":                    cfg.Test.ErrorMsg,
		"test.golden_error_msg":             cfg.Test.GoldenErrorMsg,
		"test.stdout_differ_msg":            cfg.Test.StdoutDifferMsg,
		"test.pipeline_length_msg":          cfg.Test.PipelineLengthMsg,
		"test.pipeline_diff_msg":            cfg.Test.PipelineDiffMsg,
		"test.disallowed_msg":               cfg.Test.DisallowedMsg,
		"loader.import_error_msg":           cfg.Loader.ImportErrorMsg,
		"loader.no_match_msg":               cfg.Loader.NoMatchMsg,
		"loader.too_many_matches_msg":       cfg.Loader.TooManyMatchesMsg,
		"loader.no_script_error_msg":        cfg.Loader.NoScriptErrorMsg,
		"loader.multiple_scripts_error_msg": cfg.Loader.MultipleScriptsErrorMsg,
	}
}

// Render executes a message template. A template that fails to execute is
// returned as-is so feedback is never lost.
func Render(text string, data any) string {
	tmpl, err := template.New("msg").Option("missingkey=zero").Parse(text)
	if err != nil {
		return text
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return text
	}
	return b.String()
}
