// Package result provides a two-variant success/failure outcome type.
//
// Result is used where an outcome has to cross a boundary that cannot
// carry Go's (value, error) pair directly, such as subscription callbacks
// and deferred confirm operations. It is a transient return value, never
// stored by any entity.
package result

// Result holds exactly one of a success value or a failure error.
// The zero value is a success carrying the zero value of T.
type Result[T any] struct {
	value T
	err   error
}

// Ok constructs a success Result.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Err constructs a failure Result. A nil error yields a success carrying
// the zero value, so a failure always has a non-nil error to report.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// From converts Go's (value, error) idiom into a Result.
func From[T any](value T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(value)
}

// OK reports whether the Result is a success.
func (r Result[T]) OK() bool {
	return r.err == nil
}

// Value returns the success value and whether the Result is a success.
// Callers must branch on the second return before using the value.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.err == nil
}

// Err returns the failure error, or nil for a success.
func (r Result[T]) Err() error {
	return r.err
}

// Unpack converts the Result back to Go's (value, error) idiom.
func (r Result[T]) Unpack() (T, error) {
	return r.value, r.err
}

// OrElse returns the success value, or fallback for a failure.
func (r Result[T]) OrElse(fallback T) T {
	if r.err != nil {
		return fallback
	}
	return r.value
}

// Map transforms the success value of r, passing failures through unchanged.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.err != nil {
		return Err[U](r.err)
	}
	return Ok(fn(r.value))
}
