// Package loadstate models asynchronous fetch state as a four-phase machine
// that always retains the last successfully fetched value, so consumers can
// keep rendering known-good data through reloads and failures.
package loadstate

import "shotlist/internal/shared"

// Phase is the current position of the machine.
type Phase int

const (
	// Idle means no fetch has been requested yet.
	Idle Phase = iota
	// Loading means a fetch is in flight.
	Loading
	// Success means the most recent fetch completed with data.
	Success
	// Failure means the most recent fetch failed.
	Failure
)

// String returns the string representation of the Phase.
func (p Phase) String() string {
	switch p {
	case Loading:
		return "Loading"
	case Success:
		return "Success"
	case Failure:
		return "Failure"
	default:
		return "Idle"
	}
}

// State is an immutable snapshot of the machine. Transitions return a new
// State; every transition is legal from every phase and the machine is
// re-enterable indefinitely.
type State[T any] struct {
	phase   Phase
	data    T
	hasData bool
	err     *shared.Error
}

// New returns the Idle state.
func New[T any]() State[T] {
	return State[T]{phase: Idle}
}

// Loading transitions into the loading phase, carrying over any previously
// loaded data.
func (s State[T]) Loading() State[T] {
	return State[T]{phase: Loading, data: s.data, hasData: s.hasData}
}

// Succeed transitions into the success phase with fresh data.
func (s State[T]) Succeed(data T) State[T] {
	return State[T]{phase: Success, data: data, hasData: true}
}

// Fail transitions into the failure phase, carrying over any previously
// loaded data alongside the error.
func (s State[T]) Fail(err *shared.Error) State[T] {
	return State[T]{phase: Failure, data: s.data, hasData: s.hasData, err: err}
}

// Phase returns the current phase.
func (s State[T]) Phase() Phase {
	return s.phase
}

// Current returns the best-available data regardless of phase: fresh data in
// Success, retained data in Loading and Failure. The second return reports
// whether any data has ever been loaded.
func (s State[T]) Current() (T, bool) {
	return s.data, s.hasData
}

// Err returns the error carried by a Failure state, or nil.
func (s State[T]) Err() *shared.Error {
	return s.err
}

// IsLoading reports whether a fetch is in flight.
func (s State[T]) IsLoading() bool {
	return s.phase == Loading
}
