package hfsm

import "github.com/enetx/g"

type (
	// State names a state in a Definition.
	State g.String
	// Event names an event that may be sent to a Machine.
	Event g.String
)

type (
	// Transform is a pure function from one context value to the next.
	// It is used for entry and exit hooks.
	Transform[C any] func(ctx C) C
	// GuardFunc decides whether an event is accepted for the given context.
	GuardFunc[C any] func(ctx C) bool
	// Reducer computes the context produced by an event. Payload is whatever
	// the caller passed to Send, or nil.
	Reducer[C any] func(ctx C, payload any) C
	// Watcher observes an accepted event before anything is committed.
	Watcher[C any] func(e WatchEvent[C])
	// CancelFunc removes a registration. Calling it more than once is a no-op.
	CancelFunc func()
)

// StateDef describes one state.
type StateDef[C any] struct {
	// Entry runs when the state becomes current.
	Entry Transform[C]
	// Exit runs when the state stops being current.
	Exit Transform[C]
	// On maps event names to their handling.
	On g.Map[Event, EventDef[C]]
	// Parent is used only for hierarchical matching. Empty means none.
	Parent State
}

// EventDef describes how a state reacts to an event.
type EventDef[C any] struct {
	// Target is the next state. Empty means an internal transition.
	Target State
	// Guard must return true for the event to take effect. Nil always allows.
	Guard GuardFunc[C]
	// Reducer produces the new context. Nil keeps the post-exit context.
	Reducer Reducer[C]
}

// Snapshot is the value a Machine commits to its store.
type Snapshot[C any] struct {
	State    State `json:"state"              yaml:"state"`
	Previous State `json:"previous,omitempty" yaml:"previous,omitempty"`
	Context  C     `json:"context"            yaml:"context"`
}

// Record is one history entry: the state that was left and the context as it
// was before the transition ran.
type Record[C any] struct {
	State   State `json:"state"`
	Context C     `json:"context"`
}

// WatchEvent is passed to watchers. Context is a copy; changing it has no
// effect on the transition.
type WatchEvent[C any] struct {
	Event   Event
	State   State
	Context C
	Payload any
}
