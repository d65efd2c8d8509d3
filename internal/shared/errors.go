// Package shared contains the structured error taxonomy used across the
// synchronization core.
package shared

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Code is a machine-readable error identifier. The prefix up to the first
// slash selects the failure domain.
type Code string

// Known error codes.
const (
	CodeValidationFailed Code = "validation/failed"
	CodeValidationDupID  Code = "validation/duplicate-id"

	CodeAuthRequired     Code = "auth/required"
	CodeAuthUserNotFound Code = "auth/user-not-found"

	CodeStoreNotFound         Code = "store/not-found"
	CodeStorePermissionDenied Code = "store/permission-denied"
	CodeStoreUnavailable      Code = "store/unavailable"
	CodeStoreOperationFailed  Code = "store/operation-failed"
	CodeStoreDataIntegrity    Code = "store/data-integrity"

	CodeNetworkUnavailable Code = "network/unavailable"

	CodeBatchPartialFailure Code = "batch/partial-failure"
)

// Domain classifies an error by the subsystem that produced it.
type Domain int

const (
	// DomainStore covers remote document store failures.
	DomainStore Domain = iota
	// DomainValidation covers malformed or missing input.
	DomainValidation
	// DomainAuth covers credential and session failures.
	DomainAuth
	// DomainNetwork covers connectivity and timeout failures.
	DomainNetwork
	// DomainAggregate covers partial failures of batched operations.
	DomainAggregate
)

// String returns the string representation of the Domain.
func (d Domain) String() string {
	switch d {
	case DomainValidation:
		return "Validation"
	case DomainAuth:
		return "Auth"
	case DomainNetwork:
		return "Network"
	case DomainAggregate:
		return "Aggregate"
	default:
		return "Store"
	}
}

// DomainOf derives the failure domain from a code's prefix. Unrecognized
// prefixes fall back to the store domain.
func DomainOf(code Code) Domain {
	s := string(code)
	switch {
	case strings.HasPrefix(s, "validation/"):
		return DomainValidation
	case strings.HasPrefix(s, "auth/"):
		return DomainAuth
	case strings.HasPrefix(s, "network/"):
		return DomainNetwork
	case strings.HasPrefix(s, "batch/"):
		return DomainAggregate
	default:
		return DomainStore
	}
}

// Error is the structured error carried through the synchronization core.
// Message is developer-facing; UserMessage is composed at construction time
// and is the only text UI layers may show.
type Error struct {
	Code        Code
	Domain      Domain
	Message     string
	UserMessage string
	// Context names the component/method/entity that produced the error,
	// e.g. "list.Repository.Get(tasks/user)".
	Context   string
	Metadata  map[string]any
	Retryable bool
	Timestamp time.Time
	cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Code, e.Context, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// WithCause attaches the underlying cause and returns e.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

// WithMeta sets a metadata key and returns e.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any, 1)
	}
	e.Metadata[key] = value
	return e
}

// Retry marks the error retryable and returns e.
func (e *Error) Retry() *Error {
	e.Retryable = true
	return e
}

// New constructs an Error with the domain inferred from the code prefix.
// Errors are non-retryable unless marked with Retry.
func New(code Code, message, userMessage, context string) *Error {
	return &Error{
		Code:        code,
		Domain:      DomainOf(code),
		Message:     message,
		UserMessage: userMessage,
		Context:     context,
		Timestamp:   time.Now(),
	}
}

// OperationFailure pairs a failed sub-operation's name with its error.
type OperationFailure struct {
	Operation string
	Err       *Error
}

// taxonomyError aliases Error so it can be embedded without the field
// name shadowing the promoted Error method.
type taxonomyError = Error

// AggregateError reports a partially failed batch of independent
// sub-operations.
type AggregateError struct {
	taxonomyError
	Failures     []OperationFailure
	SuccessCount int
	FailureCount int
}

// Unwrap exposes the embedded Error so errors.As can reach the taxonomy
// fields of an aggregate through the chain.
func (e *AggregateError) Unwrap() error {
	return &e.taxonomyError
}

// NewAggregate constructs an AggregateError. It is retryable iff any
// underlying failure is retryable.
func NewAggregate(code Code, message, userMessage, context string, failures []OperationFailure, successCount int) *AggregateError {
	agg := &AggregateError{
		taxonomyError: *New(code, message, userMessage, context),
		Failures:      failures,
		SuccessCount:  successCount,
		FailureCount:  len(failures),
	}
	agg.Domain = DomainAggregate
	for _, f := range failures {
		if f.Err != nil && f.Err.Retryable {
			agg.Retryable = true
			break
		}
	}
	return agg
}

// userMessageUnavailable is shown for transient store failures.
const userMessageUnavailable = "We couldn't reach the server. Please try again."

// userMessageIntegrity is shown when stored data fails defensive parsing.
const userMessageIntegrity = "Your data could not be loaded. Please contact support."

// FromStore classifies a raw document store failure into a taxonomy error.
//
// The store does not always expose structured error codes, so classification
// falls back to message substring matching. Unrecognized failures default to
// a retryable store error so transient conditions are never treated as
// permanent.
func FromStore(err error, context string) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "permission-denied"), strings.Contains(lower, "permission denied"):
		return New(CodeStorePermissionDenied,
			"store rejected the operation: "+msg,
			"You don't have access to this data.",
			context).WithCause(err)
	case strings.Contains(lower, "not-found"), strings.Contains(lower, "not found"), strings.Contains(lower, "does not exist"):
		return New(CodeStoreNotFound,
			"document not found: "+msg,
			"The requested data could not be found.",
			context).WithCause(err)
	case strings.Contains(lower, "unavailable"), isTimeout(err):
		return New(CodeStoreUnavailable,
			"store temporarily unavailable: "+msg,
			userMessageUnavailable,
			context).WithCause(err).Retry()
	default:
		return New(CodeStoreOperationFailed,
			"store operation failed: "+msg,
			userMessageUnavailable,
			context).WithCause(err).Retry()
	}
}

// isTimeout reports whether the error indicates a deadline or network timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// FieldError describes one failing field of a validated value.
type FieldError struct {
	Path    string
	Message string
}

// FromValidation converts structured field failures into a validation error
// carrying a fieldErrors map of dotted path to message.
func FromValidation(fields []FieldError, context string) *Error {
	fieldErrors := make(map[string]string, len(fields))
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		fieldErrors[f.Path] = f.Message
		parts = append(parts, f.Path)
	}
	return New(CodeValidationFailed,
		"validation failed for fields: "+strings.Join(parts, ", "),
		"Some fields are invalid. Please review and try again.",
		context).WithMeta("fieldErrors", fieldErrors)
}

// DataIntegrity reports that data read back from the store failed defensive
// parsing. Non-retryable: retrying re-reads the same document.
func DataIntegrity(cause *Error, context string) *Error {
	e := New(CodeStoreDataIntegrity,
		"stored document failed defensive parsing: "+cause.Message,
		userMessageIntegrity,
		context).WithCause(cause)
	if cause.Metadata != nil {
		e.Metadata = cause.Metadata
	}
	return e
}

// UserNotFound reports a missing user-scoped document.
func UserNotFound(context string) *Error {
	return New(CodeAuthUserNotFound,
		"user not found",
		"Your account could not be found. Please sign in again.",
		context)
}

// EntityNotFound reports a missing entity.
func EntityNotFound(context string) *Error {
	return New(CodeStoreNotFound,
		"entity not found",
		"The requested data could not be found.",
		context)
}

// AsError extracts a taxonomy *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable reports whether the error is marked retryable. Errors outside
// the taxonomy are not retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// IsNotFound reports whether the error indicates a missing document or entity.
func IsNotFound(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Code == CodeStoreNotFound || e.Code == CodeAuthUserNotFound
	}
	return false
}

// IsValidation reports whether the error is a validation failure.
func IsValidation(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Domain == DomainValidation
	}
	return false
}

// HasCode reports whether the error carries the given code.
func HasCode(err error, code Code) bool {
	if e, ok := AsError(err); ok {
		return e.Code == code
	}
	return false
}
