package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aretw0/pdasim/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Parser converts raw definition documents into domain.Definition values.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes JSON or YAML content and expands compact rules.
// JSON is detected by a leading '{'; anything else is read as YAML.
func (p *Parser) Parse(data []byte) (*domain.Definition, error) {
	var def domain.Definition
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty definition")
	}
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &def); err != nil {
			return nil, fmt.Errorf("failed to parse definition: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(trimmed, &def); err != nil {
			return nil, fmt.Errorf("failed to parse definition: %w", err)
		}
	}
	if err := Expand(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// Expand appends the rules written in compact notation to the transitions
// and clears the Rules field.
func Expand(def *domain.Definition) error {
	if def.Rules == "" {
		return nil
	}
	records, err := ParseRules(def.Rules)
	if err != nil {
		return err
	}
	def.Transitions = append(def.Transitions, records...)
	def.Rules = ""
	return nil
}
