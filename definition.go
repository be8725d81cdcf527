package hfsm

import "github.com/enetx/g"

// Definition is an immutable description of a state machine: its states,
// their events and the initial context. Build one with NewDefinition and
// create any number of machines from it with New.
type Definition[C any] struct {
	initial State
	context C
	order   g.Slice[State]
	states  g.Map[State, StateDef[C]]
	clone   func(C) C
}

// Builder accumulates a Definition. States are declared in the order they are
// first mentioned as a source (State, Parent, OnEnter, OnExit, or the from side
// of a transition); the first declared state is the initial state. Targets and
// parent names are never declared implicitly.
type Builder[C any] struct {
	context C
	order   g.Slice[State]
	states  g.Map[State, StateDef[C]]
	clone   func(C) C
}

// NewDefinition starts a Definition whose machines begin with a copy of
// initial as their context.
func NewDefinition[C any](initial C) *Builder[C] {
	return &Builder[C]{
		context: initial,
		states:  g.NewMap[State, StateDef[C]](),
		clone:   DeepCopy[C],
	}
}

// declare registers name if it is new and returns its definition.
func (b *Builder[C]) declare(name State) StateDef[C] {
	if st, ok := b.states[name]; ok {
		return st
	}

	st := StateDef[C]{On: g.NewMap[Event, EventDef[C]]()}
	b.states[name] = st
	b.order.Push(name)

	return st
}

func (b *Builder[C]) update(name State, fn func(*StateDef[C])) *Builder[C] {
	st := b.declare(name)
	fn(&st)
	b.states[name] = st

	return b
}

// State declares states without attaching anything to them.
func (b *Builder[C]) State(names ...State) *Builder[C] {
	for _, name := range names {
		b.declare(name)
	}

	return b
}

// Parent sets the parent of child for hierarchical matching.
func (b *Builder[C]) Parent(child, parent State) *Builder[C] {
	return b.update(child, func(st *StateDef[C]) { st.Parent = parent })
}

// OnEnter sets the entry transform of state.
func (b *Builder[C]) OnEnter(state State, fn Transform[C]) *Builder[C] {
	return b.update(state, func(st *StateDef[C]) { st.Entry = fn })
}

// OnExit sets the exit transform of state.
func (b *Builder[C]) OnExit(state State, fn Transform[C]) *Builder[C] {
	return b.update(state, func(st *StateDef[C]) { st.Exit = fn })
}

// On sets how from handles event. A later call for the same pair replaces the
// earlier one.
func (b *Builder[C]) On(from State, event Event, def EventDef[C]) *Builder[C] {
	return b.update(from, func(st *StateDef[C]) { st.On[event] = def })
}

// Transition adds a basic transition (without a guard) from -> event -> to.
func (b *Builder[C]) Transition(from State, event Event, to State) *Builder[C] {
	return b.On(from, event, EventDef[C]{Target: to})
}

// TransitionWhen adds a guarded transition from -> event -> to.
func (b *Builder[C]) TransitionWhen(from State, event Event, to State, guard GuardFunc[C]) *Builder[C] {
	return b.On(from, event, EventDef[C]{Target: to, Guard: guard})
}

// Internal adds an event that changes the context without leaving from.
func (b *Builder[C]) Internal(from State, event Event, reducer Reducer[C]) *Builder[C] {
	return b.On(from, event, EventDef[C]{Reducer: reducer})
}

// Cloner replaces the function used to copy contexts. It must return a value
// that shares no mutable memory with its input.
func (b *Builder[C]) Cloner(fn func(C) C) *Builder[C] {
	if fn != nil {
		b.clone = fn
	}

	return b
}

// Build validates the parent chains and returns the Definition. Event targets
// are not checked here; Send reports an undefined target as *ErrConfig.
func (b *Builder[C]) Build() (*Definition[C], error) {
	if b.order.Empty() {
		return nil, &ErrConfig{Reason: "definition has no states"}
	}

	states := g.NewMap[State, StateDef[C]]()

	for name, st := range b.states {
		on := g.NewMap[Event, EventDef[C]]()
		for event, def := range st.On {
			on[event] = def
		}

		st.On = on
		states[name] = st
	}

	d := &Definition[C]{
		initial: b.order[0],
		context: b.clone(b.context),
		order:   b.order.Clone(),
		states:  states,
		clone:   b.clone,
	}

	if err := d.validateParents(); err != nil {
		return nil, err
	}

	return d, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder[C]) MustBuild() *Definition[C] {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}

	return d
}

// validateParents rejects parents that are not declared and parent chains
// that loop back on themselves.
func (d *Definition[C]) validateParents() error {
	for name := range d.order.Iter() {
		seen := g.NewSet[State]()
		seen.Insert(name)

		for cur := name; ; {
			parent := d.states[cur].Parent
			if parent == "" {
				break
			}

			if !d.states.Contains(parent) {
				return &ErrConfig{State: cur, Ref: parent, Reason: "parent is not defined"}
			}

			if seen.Contains(parent) {
				return &ErrConfig{State: name, Ref: parent, Reason: "parent chain forms a cycle through"}
			}

			seen.Insert(parent)
			cur = parent
		}
	}

	return nil
}

// Initial returns the initial state.
func (d *Definition[C]) Initial() State { return d.initial }

// States returns the declared states in declaration order.
func (d *Definition[C]) States() g.Slice[State] { return d.order.Clone() }

// InitialContext returns a fresh copy of the initial context.
func (d *Definition[C]) InitialContext() C { return d.clone(d.context) }

// State looks up a state definition.
func (d *Definition[C]) State(name State) g.Option[StateDef[C]] { return d.states.Get(name) }

// IsDescendant reports whether state equals ancestor or reaches it by
// following parent links. The walk visits at most as many links as there are
// states, so it terminates even if the chain loops.
func (d *Definition[C]) IsDescendant(state, ancestor State) bool {
	if state == ancestor {
		return true
	}

	for range d.order.Len() {
		st, ok := d.states[state]
		if !ok || st.Parent == "" {
			return false
		}

		if st.Parent == ancestor {
			return true
		}

		state = st.Parent
	}

	return false
}

func (d *Definition[C]) initialSnapshot() Snapshot[C] {
	return Snapshot[C]{State: d.initial, Context: d.clone(d.context)}
}
