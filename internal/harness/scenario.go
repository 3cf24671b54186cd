package harness

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/zwiggato/internal/ledger"
)

// Scenario is a scripted conversation with the HTTP API followed by checks
// against the database it left behind.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Policy selects the order total policy: "verify" (default) or "trust".
	Policy string `yaml:"policy,omitempty"`

	// EmptyCatalog skips seeding the reference catalog.
	EmptyCatalog bool `yaml:"empty_catalog,omitempty"`

	// Steps are sent in order against one fresh database.
	Steps []Step `yaml:"steps"`

	// Assertions run after the last step.
	// Supported types: row_count, final_state, latest_order
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one HTTP request and, optionally, what the response must look like.
type Step struct {
	// Name labels the step in the transcript and in error messages.
	Name string `yaml:"name"`

	Method string `yaml:"method"`
	Path   string `yaml:"path"`

	// Body is encoded as JSON. Use RawBody to send bytes that are not valid
	// JSON.
	Body    interface{} `yaml:"body,omitempty"`
	RawBody string      `yaml:"raw_body,omitempty"`

	// NoSession omits the session cookie.
	NoSession bool `yaml:"no_session,omitempty"`

	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause describes the expected response.
type ExpectClause struct {
	// Status is the expected HTTP status code. Required.
	Status int `yaml:"status"`

	// Body is matched against the decoded response. Objects are a subset
	// match; arrays must have the same length and match element-wise.
	Body interface{} `yaml:"body,omitempty"`

	// Error and Field are shorthands for the error payload.
	Error string `yaml:"error,omitempty"`
	Field string `yaml:"field,omitempty"`
}

// Assertion validates database state after the steps ran.
type Assertion struct {
	// Type specifies the assertion type:
	// - "row_count": Count rows in Table matching Where
	// - "final_state": Exactly one row in Table matching Where has Expect
	// - "latest_order": The newest order, as GET /orders returns it, matches Expect
	Type string `yaml:"type"`

	// Table is the table name (used by row_count and final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters. All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values. Subset match.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number of rows (used by row_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount    = "row_count"
	AssertFinalState  = "final_state"
	AssertLatestOrder = "latest_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
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

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, err := ledger.ParseTotalPolicy(s.Policy); err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i := range s.Steps {
		step := &s.Steps[i]
		step.Method = strings.ToUpper(step.Method)
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
		if !allowedMethods[step.Method] {
			return fmt.Errorf("steps[%d]: unsupported method %q", i, step.Method)
		}
		if !strings.HasPrefix(step.Path, "/") {
			return fmt.Errorf("steps[%d]: path must start with /", i)
		}
		if step.Body != nil && step.RawBody != "" {
			return fmt.Errorf("steps[%d]: body and raw_body are mutually exclusive", i)
		}
		if step.Expect != nil && step.Expect.Status == 0 {
			return fmt.Errorf("steps[%d].expect: status is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRowCount:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for row_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertLatestOrder:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for latest_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
