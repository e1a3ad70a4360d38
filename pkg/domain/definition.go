package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// TransitionRecord is one transition as written by an authoring tool.
// InputSymbol and StackPush may use any epsilon spelling.
type TransitionRecord struct {
	FromState   string `json:"from_state" yaml:"from_state" mapstructure:"from_state"`
	InputSymbol string `json:"input_symbol" yaml:"input_symbol" mapstructure:"input_symbol"`
	StackSymbol string `json:"stack_symbol" yaml:"stack_symbol" mapstructure:"stack_symbol"`
	ToState     string `json:"to_state" yaml:"to_state" mapstructure:"to_state"`
	StackPush   string `json:"stack_push" yaml:"stack_push" mapstructure:"stack_push"`
}

// Definition is the structured record handed over by loaders.
// It is not validated; building an automaton from it is what validates it.
type Definition struct {
	Name               string             `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Description        string             `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	States             []string           `json:"states" yaml:"states" mapstructure:"states"`
	Alphabet           []string           `json:"alphabet" yaml:"alphabet" mapstructure:"alphabet"`
	StackSymbols       []string           `json:"stack_symbols" yaml:"stack_symbols" mapstructure:"stack_symbols"`
	InitialState       string             `json:"initial_state" yaml:"initial_state" mapstructure:"initial_state"`
	InitialStackSymbol string             `json:"initial_stack_symbol" yaml:"initial_stack_symbol" mapstructure:"initial_stack_symbol"`
	AcceptStates       []string           `json:"accept_states" yaml:"accept_states" mapstructure:"accept_states"`
	Transitions        []TransitionRecord `json:"transitions" yaml:"transitions" mapstructure:"transitions"`

	// Rules holds transitions in compact notation ("q0,a,Z→q0,AZ", one per line).
	// Loaders expand it into Transitions before the record reaches the core.
	Rules string `json:"rules,omitempty" yaml:"rules,omitempty" mapstructure:"rules"`

	InputString string `json:"input_string,omitempty" yaml:"input_string,omitempty" mapstructure:"input_string"`
}

// Input returns the input string split into symbols.
func (d Definition) Input() []Symbol {
	return SplitSymbols(d.InputString)
}

// DecodeDefinition builds a Definition from a generic map, e.g. tool arguments
// or document metadata. Scalars are weakly typed, so numbers become strings.
func DecodeDefinition(raw map[string]any) (*Definition, error) {
	var def Definition
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &def,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode definition: %w", err)
	}
	return &def, nil
}

// Clone returns a copy that shares no slices with d.
func (d Definition) Clone() Definition {
	return cloneDefinition(d)
}
