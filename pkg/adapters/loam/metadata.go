package loam

import "github.com/aretw0/pdasim/pkg/domain"

// DefinitionMetadata is the frontmatter of an automaton document.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
type DefinitionMetadata struct {
	ID                 string             `json:"id" mapstructure:"id"`
	Name               string             `json:"name" mapstructure:"name"`
	States             []string           `json:"states" mapstructure:"states"`
	Alphabet           []string           `json:"alphabet" mapstructure:"alphabet"`
	StackSymbols       []string           `json:"stack_symbols" mapstructure:"stack_symbols"`
	InitialState       string             `json:"initial_state" mapstructure:"initial_state"`
	InitialStackSymbol string             `json:"initial_stack_symbol" mapstructure:"initial_stack_symbol"`
	AcceptStates       []string           `json:"accept_states" mapstructure:"accept_states"`
	Transitions        []LoaderTransition `json:"transitions" mapstructure:"transitions"`
	Rules              string             `json:"rules" mapstructure:"rules"`
	InputString        string             `json:"input_string" mapstructure:"input_string"`
}

// LoaderTransition accepts both the short keys (from, input, top, to, push)
// and the full record keys used by JSON definitions.
type LoaderTransition struct {
	From      string `json:"from" mapstructure:"from"`
	FromFull  string `json:"from_state" mapstructure:"from_state"`
	Input     string `json:"input" mapstructure:"input"`
	InputFull string `json:"input_symbol" mapstructure:"input_symbol"`
	Top       string `json:"top" mapstructure:"top"`
	TopFull   string `json:"stack_symbol" mapstructure:"stack_symbol"`
	To        string `json:"to" mapstructure:"to"`
	ToFull    string `json:"to_state" mapstructure:"to_state"`
	Push      string `json:"push" mapstructure:"push"`
	PushFull  string `json:"stack_push" mapstructure:"stack_push"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Record converts the transition into the loader-neutral form.
func (t LoaderTransition) Record() domain.TransitionRecord {
	return domain.TransitionRecord{
		FromState:   firstNonEmpty(t.From, t.FromFull),
		InputSymbol: firstNonEmpty(t.Input, t.InputFull),
		StackSymbol: firstNonEmpty(t.Top, t.TopFull),
		ToState:     firstNonEmpty(t.To, t.ToFull),
		StackPush:   firstNonEmpty(t.Push, t.PushFull),
	}
}
