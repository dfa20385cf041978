package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines a pipeline test scenario: seed tables, one pipeline to
// run and the expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Pipelines is the path of a CUE pipeline file or directory.
	// Relative paths are resolved against the scenario file location.
	Pipelines string `yaml:"pipelines,omitempty"`

	// Source holds inline CUE pipeline definitions. Exactly one of
	// Pipelines and Source must be set.
	Source string `yaml:"source,omitempty"`

	// Query names the pipeline to run.
	Query string `yaml:"query"`

	// Tables maps table names to their seed rows.
	Tables map[string][]map[string]any `yaml:"tables,omitempty"`

	// Expect specifies the expected outcome.
	Expect Expectation `yaml:"expect"`

	// Token is an optional fixed pass token. If empty, defaults to
	// "test-token-default" for deterministic golden file comparison.
	Token string `yaml:"token,omitempty"`

	// MaxRows overrides the engine's row quota. Zero keeps the default.
	MaxRows int `yaml:"max_rows,omitempty"`
}

// Expectation specifies what a scenario must produce.
type Expectation struct {
	// Value is the expected result, compared by canonical JSON. An absent
	// value expects null unless an error is expected.
	Value any `yaml:"value"`

	// Model, when set, must equal the rendered query model.
	Model string `yaml:"model,omitempty"`

	// SQL, when set, must equal the compiled statement.
	SQL string `yaml:"sql,omitempty"`

	// Code is the expected runtime error code (e.g. "COMPILE_FAILED").
	Code string `yaml:"code,omitempty"`

	// Error is a fragment the error message must contain.
	Error string `yaml:"error,omitempty"`
}

// ExpectsError reports whether the scenario expects the run to fail.
func (e Expectation) ExpectsError() bool {
	return e.Code != "" || e.Error != ""
}

// LoadScenario reads and parses a scenario YAML file. Relative pipeline
// paths are resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the pipelines path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Pipelines != "" && !filepath.IsAbs(scenario.Pipelines) && basePath != "" {
		scenario.Pipelines = filepath.Join(basePath, scenario.Pipelines)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML. Unknown fields are rejected.
// Paths are left as written and the scenario is not validated.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Query == "" {
		return fmt.Errorf("query is required")
	}

	switch {
	case s.Pipelines == "" && s.Source == "":
		return fmt.Errorf("one of pipelines or source is required")
	case s.Pipelines != "" && s.Source != "":
		return fmt.Errorf("pipelines and source are mutually exclusive")
	case s.Pipelines != "":
		if _, err := os.Stat(s.Pipelines); os.IsNotExist(err) {
			return fmt.Errorf("pipeline path not found: %s", s.Pipelines)
		}
	}

	for name, rows := range s.Tables {
		if name == "" {
			return fmt.Errorf("tables: empty table name")
		}
		if len(rows) == 0 {
			return fmt.Errorf("tables.%s: at least one row is required", name)
		}
	}

	if s.MaxRows < 0 {
		return fmt.Errorf("max_rows must not be negative")
	}
	if s.Expect.ExpectsError() && s.Expect.Value != nil {
		return fmt.Errorf("expect: value and error are mutually exclusive")
	}
	return nil
}
