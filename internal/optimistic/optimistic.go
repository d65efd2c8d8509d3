// Package optimistic applies tentative state changes ahead of server
// confirmation. Every application is matched by exactly one of two
// outcomes: an authoritative refresh published by the confirm operation, or
// a rollback to the exact prior value.
package optimistic

import (
	"context"

	"shotlist/internal/shared"
	"shotlist/pkg/result"
)

// Kind is the mutation category of an update.
type Kind int

const (
	// Add introduces a value.
	Add Kind = iota
	// Update modifies a value.
	Update
	// Delete removes a value.
	Delete
)

// Status is the lifecycle position of an update envelope.
type Status int

const (
	// Pending means the confirm operation has not resolved yet.
	Pending Status = iota
	// Succeeded means the operation confirmed the change.
	Succeeded
	// Failed means the operation failed and the prior value was restored.
	Failed
)

// Envelope describes one optimistic mutation. It never outlives the Apply
// call that created it and is never persisted.
type Envelope[T any] struct {
	Kind     Kind
	Status   Status
	Applied  T
	Rollback T
	Err      *shared.Error
}

// Descriptor supplies the confirm operation and outcome callbacks.
type Descriptor[T any] struct {
	// Operation confirms the tentative value with the server. On success
	// the operation is responsible for publishing the authoritative value
	// itself; servers may normalize fields, so the engine never assumes
	// the tentative value is what was confirmed.
	Operation func(ctx context.Context, applied T) result.Result[T]
	// OnSuccess is invoked after the operation confirms.
	OnSuccess func(confirmed T)
	// OnError is invoked after rollback with the mapped error and the
	// restored value.
	OnError func(err *shared.Error, rollback T)
}

// Apply publishes merge(current) immediately, then runs the confirm
// operation. On failure the exact prior value is published back and OnError
// fires; on success the operation's own publish stands and OnSuccess fires.
func Apply[T any](ctx context.Context, kind Kind, current T, merge func(T) T, publish func(T), d Descriptor[T]) Envelope[T] {
	tentative := merge(current)
	env := Envelope[T]{
		Kind:     kind,
		Status:   Pending,
		Applied:  tentative,
		Rollback: current,
	}

	publish(tentative)

	res := d.Operation(ctx, tentative)
	if confirmed, ok := res.Value(); ok {
		env.Status = Succeeded
		if d.OnSuccess != nil {
			d.OnSuccess(confirmed)
		}
		return env
	}

	publish(current)
	env.Status = Failed
	env.Err = mapError(res.Err())
	if d.OnError != nil {
		d.OnError(env.Err, current)
	}
	return env
}

// mapError coerces any operation failure into the taxonomy.
func mapError(err error) *shared.Error {
	if e, ok := shared.AsError(err); ok {
		return e
	}
	return shared.FromStore(err, "optimistic.Apply")
}
