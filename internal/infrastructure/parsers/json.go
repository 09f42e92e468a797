package parsers

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONParser parses elements from JSON format.
type JSONParser struct{}

// Parse reads a JSON array from the reader and returns parsed elements.
func (p *JSONParser) Parse(r io.Reader) ([]RawElement, error) {
	var elements []RawElement

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&elements); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	// Set line numbers (array index + 1, 1-indexed)
	for i := range elements {
		elements[i].LineNum = i + 1
	}

	return elements, nil
}

// ParseRules reads a JSON array of rules from the reader. Rules have
// nested condition and action lists, so JSON is the only supported
// rule import format.
func ParseRules(r io.Reader) ([]RawRule, error) {
	var rules []RawRule

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&rules); err != nil {
		return nil, fmt.Errorf("parsing rules JSON: %w", err)
	}

	for i := range rules {
		rules[i].LineNum = i + 1
	}

	return rules, nil
}
