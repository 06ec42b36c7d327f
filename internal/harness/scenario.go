package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fnser"
)

// Scenario defines a conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Source is the callable's source text.
	Source string `yaml:"source"`

	Options Options `yaml:"options,omitempty"`

	Expect Expect `yaml:"expect"`

	// Calls are made, in order, on the rebuilt callable.
	Calls []Call `yaml:"calls,omitempty"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Options selects serialize behavior.
type Options struct {
	Hash       bool `yaml:"hash"`
	Comments   bool `yaml:"comments"`
	Whitespace bool `yaml:"whitespace"`

	// SourceOnly serializes Source as text without evaluating it, and skips
	// reconstruction. For sources that must not run.
	SourceOnly bool `yaml:"source_only"`
}

// Expect is the triple a scenario must produce.
type Expect struct {
	Type   string   `yaml:"type"`
	Params []string `yaml:"params"`
	Body   string   `yaml:"body"`

	// Hash is compared when set. Without options.hash it must be empty.
	Hash string `yaml:"hash,omitempty"`

	// Source is the rebuilt callable's source text, compared when set.
	Source string `yaml:"source,omitempty"`
}

// Call invokes the rebuilt callable. Exactly one of Result, Yields or Throws
// describes the outcome; a call with none only checks that no error occurs.
type Call struct {
	Args []any `yaml:"args"`

	Result any `yaml:"result,omitempty"`

	// Yields are the values a generator produces, collected in order.
	Yields []any `yaml:"yields,omitempty"`

	// Throws is a substring of the expected error message.
	Throws string `yaml:"throws,omitempty"`
}

// Assertion validates a property of the run beyond the expected triple.
type Assertion struct {
	Type string `yaml:"type"`
}

// Assertion type constants.
const (
	AssertRoundTrip      = "round_trip"
	AssertTamperDetected = "tamper_detected"
	AssertStored         = "stored"
)

var validAssertions = map[string]bool{
	AssertRoundTrip:      true,
	AssertTamperDetected: true,
	AssertStored:         true,
}

// SerializeOptions converts o to codec options.
func (o Options) SerializeOptions() fnser.SerializeOptions {
	return fnser.SerializeOptions{
		Hash:       o.Hash,
		Comments:   o.Comments,
		Whitespace: o.Whitespace,
	}
}

// Triple returns the expected triple.
func (e Expect) Triple() fnser.Triple {
	params := e.Params
	if params == nil {
		params = []string{}
	}
	return fnser.Triple{
		Params: params,
		Body:   e.Body,
		Type:   fnser.Shape(e.Type),
		Hash:   e.Hash,
	}
}

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
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
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

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate scenario name %q (also in %s)", filepath.Base(path), s.Name, prev)
		}
		seen[s.Name] = filepath.Base(path)
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

	if s.Source == "" {
		return fmt.Errorf("source is required")
	}

	if !fnser.Shape(s.Expect.Type).Valid() {
		return fmt.Errorf("expect.type %q is not a known shape", s.Expect.Type)
	}

	if s.Expect.Hash != "" && !s.Options.Hash {
		return fmt.Errorf("expect.hash requires options.hash")
	}

	if s.Options.SourceOnly && len(s.Calls) > 0 {
		return fmt.Errorf("calls require reconstruction; remove options.source_only")
	}

	for i, c := range s.Calls {
		outcomes := 0
		if c.Result != nil {
			outcomes++
		}
		if c.Yields != nil {
			outcomes++
		}
		if c.Throws != "" {
			outcomes++
		}
		if outcomes > 1 {
			return fmt.Errorf("calls[%d]: result, yields and throws are exclusive", i)
		}
	}

	for i, a := range s.Assertions {
		if !validAssertions[a.Type] {
			return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
		}
		if a.Type == AssertTamperDetected && !s.Options.Hash {
			return fmt.Errorf("assertions[%d]: %s requires options.hash", i, a.Type)
		}
		if a.Type == AssertRoundTrip && s.Options.SourceOnly {
			return fmt.Errorf("assertions[%d]: %s requires reconstruction", i, a.Type)
		}
	}

	return nil
}
