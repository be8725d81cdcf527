package hfsm

import (
	"errors"
	"fmt"
)

// ErrConfig is returned when a definition refers to a state that does not
// exist or is otherwise unusable. The machine is left untouched when Send
// returns it.
type ErrConfig struct {
	// State is the state being processed when the problem was found.
	State State
	// Ref is the offending reference (a target or parent name), if any.
	Ref State
	// Reason describes the problem.
	Reason string
}

func (e *ErrConfig) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("hfsm: invalid configuration at state %q: %s %q", e.State, e.Reason, e.Ref)
	}

	if e.State != "" {
		return fmt.Sprintf("hfsm: invalid configuration at state %q: %s", e.State, e.Reason)
	}

	return "hfsm: invalid configuration: " + e.Reason
}

// ErrCallback is returned when a guard, reducer, entry or exit transform, or a
// watcher panics. The transition is aborted and nothing is committed.
type ErrCallback struct {
	// HookType is one of "Guard", "Exit", "Reducer", "Entry" or "Watch".
	HookType string
	// State is the state the hook belongs to.
	State State
	// Err describes the recovered panic.
	Err error
}

func (e *ErrCallback) Error() string {
	return fmt.Sprintf("hfsm: error in %s hook for state %q: %v", e.HookType, e.State, e.Err)
}

// Unwrap provides compatibility with errors.Is and errors.As.
func (e *ErrCallback) Unwrap() error { return e.Err }

// ErrUnknownState is returned when restoring a snapshot that names a state
// the definition does not declare.
type ErrUnknownState struct {
	State State
}

func (e *ErrUnknownState) Error() string {
	return fmt.Sprintf("hfsm: unknown state %q", e.State)
}

// IsConfigError reports whether err is or wraps an *ErrConfig.
func IsConfigError(err error) bool {
	var e *ErrConfig
	return errors.As(err, &e)
}

// IsCallbackError reports whether err is or wraps an *ErrCallback.
func IsCallbackError(err error) bool {
	var e *ErrCallback
	return errors.As(err, &e)
}
