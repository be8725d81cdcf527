package hfsm

import (
	"encoding/json"
	"fmt"

	"github.com/enetx/g"
)

// MachineState is a serializable representation of a machine: its snapshot
// and history. The definition itself is never serialized.
type MachineState[C any] struct {
	State    State              `json:"state"`
	Previous State              `json:"previous,omitempty"`
	Context  C                  `json:"context"`
	History  g.Slice[Record[C]] `json:"history"`
}

// MarshalJSON implements the json.Marshaler interface.
func (m *Machine[C]) MarshalJSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.store.Get()

	state := MachineState[C]{
		State:    snap.State,
		Previous: snap.Previous,
		Context:  snap.Context,
		History:  m.history.list(),
	}

	return json.Marshal(state)
}

// UnmarshalJSON implements the json.Unmarshaler interface. Every state named
// in the data must be declared by the machine's definition.
func (m *Machine[C]) UnmarshalJSON(data []byte) error {
	var state MachineState[C]
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to unmarshal machine state: %w", err)
	}

	if err := m.checkCurrent(state.State, state.Previous); err != nil {
		return err
	}

	for record := range state.History.Iter() {
		if err := m.checkStates(record.State); err != nil {
			return err
		}
	}

	m.locked(func() {
		if m.commit(Snapshot[C]{State: state.State, Previous: state.Previous, Context: state.Context}) {
			m.history.replace(state.History)
		}
	})

	return nil
}
