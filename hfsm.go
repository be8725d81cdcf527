// Package hfsm provides a hierarchical finite state machine whose transitions
// reduce an owned context value. It is built with types and utilities from the
// github.com/enetx/g library.
//
// A Definition declares states, events, guards and pure context transforms.
// A Machine created from it accepts events with Send and commits every change
// as a Snapshot to an observable store, so subscribers see each committed
// state and context.
//
// Handling an accepted event always runs, in order: watchers, the exit
// transform of the current state, the event reducer, and the entry transform
// of the target. When several of them touch the same field the later one wins.
// Events the current state does not handle, and events whose guard returns
// false, are ignored without any side effect.
package hfsm

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/enetx/g"
	"github.com/enetx/hfsm/store"
	"github.com/google/uuid"
)

type watcher[C any] struct {
	id int
	fn Watcher[C]
}

// Machine is one live instance of a Definition.
type Machine[C any] struct {
	def     *Definition[C]
	id      g.String
	logger  *slog.Logger
	store   Container[Snapshot[C]]
	history *history[C]

	watchers g.Slice[*watcher[C]]
	nextID   int
	watchMu  sync.RWMutex

	mu sync.Mutex
}

// New creates a Machine in the initial state with a fresh copy of the initial
// context.
func (d *Definition[C]) New(opts ...Option[C]) *Machine[C] {
	return NewMachine(d, opts...)
}

// NewMachine creates a Machine from def.
func NewMachine[C any](def *Definition[C], opts ...Option[C]) *Machine[C] {
	cfg := &config[C]{logger: nopLogger()}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.id == "" {
		cfg.id = g.String(uuid.NewString())
	}

	m := &Machine[C]{
		def:     def,
		id:      cfg.id,
		logger:  cfg.logger.With("machine", string(cfg.id)),
		history: &history[C]{limit: cfg.historyLimit},
	}

	initial := def.initialSnapshot()

	if cfg.container != nil {
		m.store = cfg.container(initial)
	} else {
		mw := append(slices.Clone(cfg.middleware), m.admit)
		m.store = store.New(initial, mw...)
	}

	return m
}

// ID returns the machine ID.
func (m *Machine[C]) ID() g.String { return m.id }

// Definition returns the definition the machine was created from.
func (m *Machine[C]) Definition() *Definition[C] { return m.def }

// Snapshot returns the current state and a copy of the current context.
func (m *Machine[C]) Snapshot() Snapshot[C] {
	snap := m.store.Get()
	snap.Context = m.def.clone(snap.Context)

	return snap
}

// Current returns the current state.
func (m *Machine[C]) Current() State { return m.store.Get().State }

// Previous returns the state occupied before the last committed transition.
func (m *Machine[C]) Previous() g.Option[State] {
	if prev := m.store.Get().Previous; prev != "" {
		return g.Some(prev)
	}

	return g.None[State]()
}

// Context returns a copy of the current context.
func (m *Machine[C]) Context() C { return m.def.clone(m.store.Get().Context) }

// History returns a copy of the transition log, oldest first. Every record
// carries its own copy of the context.
func (m *Machine[C]) History() g.Slice[Record[C]] {
	records := m.history.list()
	for i := range records {
		records[i].Context = m.def.clone(records[i].Context)
	}

	return records
}

// Matches reports whether the current state is name or has name as an
// ancestor through its parent chain.
func (m *Machine[C]) Matches(name State) bool {
	return m.def.IsDescendant(m.Current(), name)
}

// Subscribe registers fn to be called after every commit, including internal
// transitions and resets. Both snapshots carry copies of their contexts.
//
// Subscribers run after the machine lock is released, one commit at a time
// and in commit order, so they may call Send, Reset or Restore. Such a call
// returns once its own commit is made; subscribers hear about it after the
// current round of notifications.
func (m *Machine[C]) Subscribe(fn store.Listener[Snapshot[C]]) CancelFunc {
	return m.store.Subscribe(func(next, prev Snapshot[C]) {
		next.Context = m.def.clone(next.Context)
		prev.Context = m.def.clone(prev.Context)
		fn(next, prev)
	})
}

// Watch registers fn to observe every accepted event before it is applied.
// Watchers run in registration order and must not call Send or Reset on the
// same machine.
func (m *Machine[C]) Watch(fn Watcher[C]) CancelFunc {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()

	m.nextID++
	id := m.nextID
	m.watchers.Push(&watcher[C]{id: id, fn: fn})

	return func() {
		m.watchMu.Lock()
		defer m.watchMu.Unlock()

		m.watchers = m.watchers.Iter().Exclude(func(w *watcher[C]) bool { return w.id == id }).Collect()
	}
}

// Can reports whether event would be accepted in the current state.
func (m *Machine[C]) Can(event Event) bool {
	snap := m.store.Get()

	st, ok := m.def.states[snap.State]
	if !ok {
		return false
	}

	ev, ok := st.On[event]
	if !ok {
		return false
	}

	if ev.Guard == nil {
		return true
	}

	passed, err := m.guard(ev.Guard, snap)

	return err == nil && passed
}

// Send delivers event to the machine. The optional payload is passed to the
// event reducer and to watchers.
//
// Send returns nil both when the event is applied and when it is ignored
// because the current state does not handle it or its guard rejects it.
// It returns *ErrConfig when the current or target state is not defined and
// *ErrCallback when a hook panics; in both cases nothing is committed.
func (m *Machine[C]) Send(event Event, payload ...any) error {
	_, err := m.Dispatch(event, payload...)
	return err
}

// Dispatch is Send that also reports whether the event was applied: handled
// by the current state, let through by its guard and committed. The answer is
// decided under the same lock as the transition, unlike a Can followed by
// Send.
func (m *Machine[C]) Dispatch(event Event, payload ...any) (applied bool, err error) {
	m.locked(func() { applied, err = m.send(event, payload) })
	return applied, err
}

func (m *Machine[C]) send(event Event, payload []any) (bool, error) {
	var input any
	if len(payload) > 0 {
		input = payload[0]
	}

	snap := m.store.Get()
	current := snap.State

	st, ok := m.def.states[current]
	if !ok {
		return false, m.configError(&ErrConfig{State: current, Reason: "current state is not defined"})
	}

	ev, ok := st.On[event]
	if !ok {
		m.logger.Debug("event ignored", "state", current, "event", event)
		return false, nil
	}

	if ev.Guard != nil {
		passed, err := m.guard(ev.Guard, snap)
		if err != nil {
			return false, m.callbackError(err)
		}

		if !passed {
			m.logger.Debug("guard rejected event", "state", current, "event", event)
			return false, nil
		}
	}

	if err := m.notifyWatchers(WatchEvent[C]{Event: event, State: current, Payload: input}, snap.Context); err != nil {
		return false, m.callbackError(err)
	}

	ctx := m.def.clone(snap.Context)

	var err error

	if st.Exit != nil {
		if ctx, err = m.transform("Exit", current, st.Exit, ctx); err != nil {
			return false, m.callbackError(err)
		}
	}

	if ev.Reducer != nil {
		if ctx, err = m.reduce(current, ev.Reducer, ctx, input); err != nil {
			return false, m.callbackError(err)
		}
	}

	if ev.Target == "" {
		if !m.commit(Snapshot[C]{State: current, Previous: snap.Previous, Context: ctx}) {
			return false, nil
		}

		m.logger.Debug("internal transition", "state", current, "event", event)

		return true, nil
	}

	target, ok := m.def.states[ev.Target]
	if !ok {
		return false, m.configError(&ErrConfig{State: current, Ref: ev.Target, Reason: "target is not defined"})
	}

	if target.Entry != nil {
		if ctx, err = m.transform("Entry", ev.Target, target.Entry, ctx); err != nil {
			return false, m.callbackError(err)
		}
	}

	if !m.commit(Snapshot[C]{State: ev.Target, Previous: current, Context: ctx}) {
		return false, nil
	}

	m.history.push(Record[C]{State: current, Context: snap.Context})
	m.logger.Debug("transition", "from", current, "to", ev.Target, "event", event)

	return true, nil
}

// Reset returns the machine to the initial state with a fresh copy of the
// initial context, forgets the previous state and clears the history.
// Watchers and subscribers stay registered. If middleware drops the commit
// the machine and its history are left untouched.
func (m *Machine[C]) Reset() {
	m.locked(func() {
		if m.commit(m.def.initialSnapshot()) {
			m.history.clear()
			m.logger.Debug("reset", "state", m.def.initial)
		}
	})
}

// Restore replaces the current snapshot, without running any hooks. It fails
// with *ErrUnknownState if the snapshot names an undeclared state. The history
// is left as is.
func (m *Machine[C]) Restore(s Snapshot[C]) error {
	if err := m.checkCurrent(s.State, s.Previous); err != nil {
		return err
	}

	s.Context = m.def.clone(s.Context)
	m.locked(func() { m.commit(s) })

	return nil
}

// locked runs fn under the machine lock. Commits made by fn reach subscribers
// only after the lock is released.
func (m *Machine[C]) locked(fn func()) {
	release := m.store.Hold()
	defer release()

	m.mu.Lock()
	defer m.mu.Unlock()

	fn()
}

// commit hands next to the store and reports whether it landed. The caller
// holds m.mu, so nothing else moves the store version in between.
func (m *Machine[C]) commit(next Snapshot[C]) bool {
	version := m.store.Version()
	m.store.Set(next)

	if m.store.Version() == version {
		m.logger.Debug("commit dropped", "state", next.State)
		return false
	}

	return true
}

// admit is the innermost middleware of the default store. It refuses
// snapshots naming states the definition does not declare.
func (m *Machine[C]) admit(set store.SetFunc[Snapshot[C]], _ store.GetFunc[Snapshot[C]]) store.SetFunc[Snapshot[C]] {
	return func(next Snapshot[C]) {
		if err := m.checkCurrent(next.State, next.Previous); err != nil {
			m.logger.LogAttrs(context.Background(), slog.LevelError, "commit refused", slog.Any("error", err))
			return
		}

		set(next)
	}
}

// checkCurrent validates a current/previous pair. Unlike previous, current
// may not be empty.
func (m *Machine[C]) checkCurrent(current, previous State) error {
	if !m.def.states.Contains(current) {
		return &ErrUnknownState{State: current}
	}

	return m.checkStates(previous)
}

func (m *Machine[C]) checkStates(states ...State) error {
	for _, s := range states {
		if s != "" && !m.def.states.Contains(s) {
			return &ErrUnknownState{State: s}
		}
	}

	return nil
}

func (m *Machine[C]) notifyWatchers(e WatchEvent[C], ctx C) error {
	m.watchMu.RLock()
	watchers := m.watchers.Clone()
	m.watchMu.RUnlock()

	for w := range watchers.Iter() {
		e.Context = m.def.clone(ctx)
		if err := protect("Watch", e.State, func() { w.fn(e) }); err != nil {
			return err
		}
	}

	return nil
}

func (m *Machine[C]) guard(fn GuardFunc[C], snap Snapshot[C]) (passed bool, err error) {
	err = protect("Guard", snap.State, func() { passed = fn(m.def.clone(snap.Context)) })
	return passed, err
}

func (m *Machine[C]) transform(hook string, state State, fn Transform[C], ctx C) (out C, err error) {
	err = protect(hook, state, func() { out = fn(ctx) })
	return out, err
}

func (m *Machine[C]) reduce(state State, fn Reducer[C], ctx C, payload any) (out C, err error) {
	err = protect("Reducer", state, func() { out = fn(ctx, payload) })
	return out, err
}

func (m *Machine[C]) configError(err *ErrConfig) error {
	m.logger.LogAttrs(context.Background(), slog.LevelError, "configuration error", slog.Any("error", err))
	return err
}

func (m *Machine[C]) callbackError(err error) error {
	m.logger.LogAttrs(context.Background(), slog.LevelError, "hook failed", slog.Any("error", err))
	return err
}

// protect runs fn, turning a panic into an *ErrCallback.
func protect(hook string, state State, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ErrCallback{HookType: hook, State: state, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	fn()

	return nil
}
