package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventGeneration EventType = "generation"
	EventHalt       EventType = "halt"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
}

// GenerationEvent is emitted after every completed generation.
type GenerationEvent struct {
	EventBase
	Step     int     `json:"step"`
	Frontier int     `json:"frontier"`
	Created  int     `json:"created"`
	Dropped  int     `json:"dropped"`
	Pruned   int     `json:"pruned"`
	Phase    Phase   `json:"phase"`
	Verdict  Verdict `json:"verdict"`
}

// HaltEvent is emitted once, when a run reaches a halted phase.
type HaltEvent struct {
	EventBase
	Step    int     `json:"step"`
	Phase   Phase   `json:"phase"`
	Verdict Verdict `json:"verdict"`
	Configs int     `json:"configs"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnGeneration func(context.Context, *GenerationEvent)
	OnHalt       func(context.Context, *HaltEvent)
}

// Pruner is an explicit frontier policy installed into an engine.
// Keep is called for every member of a freshly built frontier, in order.
type Pruner interface {
	Keep(c ConfigView) bool
}

// PrunerSeeder is implemented by pruners that remember what they have seen.
// Whenever the pruner meets an arena (installed on a loaded engine, at seed
// time, on restore) Seed receives every configuration of the arena in ID
// order, so a restored run prunes exactly as an uninterrupted one would.
type PrunerSeeder interface {
	Seed(history []ConfigView)
}

// PrunerFunc adapts a function to the Pruner interface.
type PrunerFunc func(ConfigView) bool

func (f PrunerFunc) Keep(c ConfigView) bool {
	return f(c)
}
