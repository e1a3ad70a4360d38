package domain

import (
	"fmt"
	"time"
)

// ConfigID addresses a configuration in the run's arena.
type ConfigID int

// NoParent marks the root configuration.
const NoParent ConfigID = -1

// Verdict is the acceptance decision for a frontier.
type Verdict string

const (
	VerdictPending  Verdict = "pending"  // more generations could change the outcome
	VerdictAccepted Verdict = "accepted" // some configuration accepts
	VerdictRejected Verdict = "rejected" // nothing accepts and nothing can move
)

// Phase is the lifecycle position of a simulation engine.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseActive   Phase = "has_frontier"
	PhaseAccepted Phase = "halted_accepted"
	PhaseRejected Phase = "halted_rejected" // frontier became empty
	PhaseStuck    Phase = "halted_stuck"    // frontier settled without an accepting member
)

// Halted reports whether further generations can no longer change the frontier.
func (p Phase) Halted() bool {
	return p == PhaseAccepted || p == PhaseRejected || p == PhaseStuck
}

// ConfigView is a read-only copy of one configuration.
// Stack is top-first. Label is the rule that produced it, empty for the root.
type ConfigView struct {
	ID             ConfigID `json:"id"`
	State          State    `json:"state"`
	RemainingInput []Symbol `json:"remaining_input"`
	Stack          []Symbol `json:"stack"`
	Label          string   `json:"label,omitempty"`
	HasParent      bool     `json:"has_parent"`
	Parent         ConfigID `json:"parent"`
}

func (c ConfigView) String() string {
	input := FormatSymbols(c.RemainingInput)
	if input == "" {
		input = string(Epsilon)
	}
	stack := FormatSymbols(c.Stack)
	if stack == "" {
		stack = "empty"
	}
	return fmt.Sprintf("State: %s, Input: %s, Stack: %s", c.State, input, stack)
}

// Snapshot is what the engine reports after each generation.
type Snapshot struct {
	Step     int          `json:"step"`
	Phase    Phase        `json:"phase"`
	Verdict  Verdict      `json:"verdict"`
	Frontier []ConfigView `json:"frontier"`
}

// Trace is the root-to-leaf path of a configuration.
type Trace []ConfigView

// Labels returns the applied rules in order, skipping the root.
func (t Trace) Labels() []string {
	labels := make([]string, 0, len(t))
	for _, c := range t {
		if c.HasParent {
			labels = append(labels, c.Label)
		}
	}
	return labels
}

// NodeRecord is the serializable form of one arena node.
// Offset is the number of input symbols already consumed; Rule is -1 for the root.
type NodeRecord struct {
	State  State    `json:"state"`
	Offset int      `json:"offset"`
	Stack  []Symbol `json:"stack"`
	Parent ConfigID `json:"parent"`
	Rule   int      `json:"rule"`
}

// Checkpoint captures a whole run so that it can be persisted and resumed.
type Checkpoint struct {
	RunID       string       `json:"run_id"`
	Definition  Definition   `json:"definition"`
	Input       []Symbol     `json:"input"`
	Step        int          `json:"step"`
	Phase       Phase        `json:"phase"`
	Nodes       []NodeRecord `json:"nodes"`
	Frontier    []ConfigID   `json:"frontier"`
	Generations [][]ConfigID `json:"generations"`
	UpdatedAt   time.Time    `json:"updated_at"`
	// Sealed holds the encrypted checkpoint when a store middleware hides
	// the run; every other field except the metadata above is then empty.
	Sealed []byte `json:"sealed,omitempty"`
}

// Clone returns a deep copy, so stores never share slices with callers.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	out := *c
	out.Definition = cloneDefinition(c.Definition)
	out.Input = append([]Symbol(nil), c.Input...)
	out.Nodes = make([]NodeRecord, len(c.Nodes))
	for i, n := range c.Nodes {
		n.Stack = append([]Symbol(nil), n.Stack...)
		out.Nodes[i] = n
	}
	out.Frontier = append([]ConfigID(nil), c.Frontier...)
	out.Sealed = append([]byte(nil), c.Sealed...)
	out.Generations = make([][]ConfigID, len(c.Generations))
	for i, g := range c.Generations {
		out.Generations[i] = append([]ConfigID(nil), g...)
	}
	return &out
}

func cloneDefinition(d Definition) Definition {
	d.States = append([]string(nil), d.States...)
	d.Alphabet = append([]string(nil), d.Alphabet...)
	d.StackSymbols = append([]string(nil), d.StackSymbols...)
	d.AcceptStates = append([]string(nil), d.AcceptStates...)
	d.Transitions = append([]TransitionRecord(nil), d.Transitions...)
	return d
}
