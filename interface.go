package hfsm

import (
	"github.com/enetx/g"
	"github.com/enetx/hfsm/store"
)

// Controller is the API of a running state machine.
type Controller[C any] interface {
	Send(event Event, payload ...any) error
	Dispatch(event Event, payload ...any) (bool, error)
	Can(event Event) bool
	Snapshot() Snapshot[C]
	Current() State
	Previous() g.Option[State]
	Context() C
	Matches(name State) bool
	Reset()
	Restore(s Snapshot[C]) error
	History() g.Slice[Record[C]]
	Watch(fn Watcher[C]) CancelFunc
	Subscribe(fn store.Listener[Snapshot[C]]) CancelFunc
	ToDOT() g.String
	MarshalJSON() ([]byte, error)
	UnmarshalJSON(data []byte) error
}

// Interface compliance check.
var _ Controller[struct{}] = (*Machine[struct{}])(nil)
