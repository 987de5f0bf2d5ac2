package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/spanq/internal/compiler"
)

// Scenario is one conformance case: a query and what building it must
// produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Document is the path of a query document. Relative paths are resolved
	// against the scenario file's directory by LoadScenario.
	Document string `yaml:"document,omitempty"`

	// Query names the query within Document.
	Query string `yaml:"query,omitempty"`

	// Inline is the query itself, used instead of Document and Query.
	Inline *compiler.QueryDoc `yaml:"inline,omitempty"`

	// TypeHints builds with querysql.WithTypeHints.
	TypeHints bool `yaml:"type_hints,omitempty"`

	Expect Expect `yaml:"expect"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect is the expected build outcome. Parameters and Types are only
// checked when present; ErrorCode excludes SQL.
type Expect struct {
	SQL        string         `yaml:"sql,omitempty"`
	Parameters map[string]any `yaml:"parameters,omitempty"`
	Types      map[string]any `yaml:"types,omitempty"`
	ErrorCode  string         `yaml:"error_code,omitempty"`
}

// Assertion types.
const (
	AssertSQLContains = "sql_contains"
	AssertClauseOrder = "clause_order"
	AssertParamCount  = "param_count"
	AssertParamValue  = "param_value"
)

// Assertion is an additional check on a successful build.
type Assertion struct {
	Type string `yaml:"type"`

	// Text is the substring for sql_contains.
	Text string `yaml:"text,omitempty"`

	// Keywords are the clause keywords for clause_order.
	Keywords []string `yaml:"keywords,omitempty"`

	// Count is the parameter count for param_count.
	Count int `yaml:"count,omitempty"`

	// Name and Value are the parameter and its value for param_value.
	Name  string `yaml:"name,omitempty"`
	Value any    `yaml:"value,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected, and a relative Document path is resolved against the scenario
// file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if scenario.Document != "" && !filepath.IsAbs(scenario.Document) {
		scenario.Document = filepath.Join(filepath.Dir(path), scenario.Document)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML. Document paths are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every .yaml and .yml scenario in dir, sorted by file name.
// A path naming a single file loads just that scenario.
func LoadDir(dir string) ([]*Scenario, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios: %w", err)
	}
	if !info.IsDir() {
		s, err := LoadScenario(dir)
		if err != nil {
			return nil, err
		}
		return []*Scenario{s}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios: %w", err)
	}

	var paths []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string)
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("duplicate scenario name %q in %s and %s", s.Name, prev, p)
		}
		seen[s.Name] = p
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

	switch {
	case s.Inline != nil && (s.Document != "" || s.Query != ""):
		return fmt.Errorf("inline cannot be combined with document or query")
	case s.Inline == nil && (s.Document == "" || s.Query == ""):
		return fmt.Errorf("document and query are required unless inline is set")
	}

	if s.Expect.SQL == "" && s.Expect.ErrorCode == "" {
		return fmt.Errorf("expect: sql or error_code is required")
	}
	if s.Expect.SQL != "" && s.Expect.ErrorCode != "" {
		return fmt.Errorf("expect: sql and error_code are mutually exclusive")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertSQLContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for sql_contains", index)
		}
	case AssertClauseOrder:
		if len(a.Keywords) == 0 {
			return fmt.Errorf("assertions[%d]: keywords list is required for clause_order", index)
		}
	case AssertParamCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for param_count", index)
		}
	case AssertParamValue:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for param_value", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
