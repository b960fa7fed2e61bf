// Package scenario reads planning instances from YAML documents.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"fleetplan/internal/opt"

	"gopkg.in/yaml.v3"
)

// ErrEmpty is returned for a document with no content.
var ErrEmpty = errors.New("scenario: empty document")

// Scenario is a named planning instance as stored on disk.
type Scenario struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	opt.Problem `yaml:",inline"`
}

// Parse decodes and validates one YAML scenario. Unknown keys are rejected.
func Parse(data []byte) (Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return Scenario{}, ErrEmpty
		}
		return Scenario{}, fmt.Errorf("scenario: decode: %w", err)
	}
	if err := s.Problem.Validate(); err != nil {
		return Scenario{}, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	return s, nil
}

// Load reads and parses the scenario file at path.
func Load(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	return Parse(data)
}

// Marshal encodes s as YAML.
func Marshal(s Scenario) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
