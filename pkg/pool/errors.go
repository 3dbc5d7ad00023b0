package pool

import (
	"errors"
	"fmt"
)

// Kind classifies pool failures.
type Kind string

const (
	// KindFactory marks a single failed factory invocation. Factory errors
	// are handled by the retry loop and never reach Get/Use callers.
	KindFactory Kind = "factory"

	// KindRetryLimitExceeded marks a fill attempt that exhausted its retry
	// budget. Returned from an explicit Buffer call, logged otherwise.
	KindRetryLimitExceeded Kind = "retry_limit_exceeded"

	// KindDuplicateValue marks a Put of a resource already buffered. This is
	// a programmer-error guard and is always returned to the caller.
	KindDuplicateValue Kind = "duplicate_value"

	// KindDestructor marks a failed destructor invocation. Logged and
	// swallowed so disposal failures never block pool operation.
	KindDestructor Kind = "destructor"

	// KindCallback marks a failed Use callback. Delivered to the onError
	// handler when one is supplied, logged otherwise.
	KindCallback Kind = "callback"
)

// Error is the error type produced by pool operations.
type Error struct {
	Kind    Kind
	Pool    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pool %q: [%s] %s: %v", e.Pool, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("pool %q: [%s] %s", e.Pool, e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind Kind, pool, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Pool:    pool,
		Message: message,
		Cause:   cause,
	}
}

// IsKind reports whether err (or anything it wraps) is a pool Error of the
// given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsFactoryError reports whether err stems from a failed factory call.
func IsFactoryError(err error) bool {
	return IsKind(err, KindFactory)
}

// IsRetryLimitExceeded reports whether err marks an exhausted retry budget.
func IsRetryLimitExceeded(err error) bool {
	return IsKind(err, KindRetryLimitExceeded)
}

// IsDuplicateValue reports whether err marks a Put of an already buffered
// resource.
func IsDuplicateValue(err error) bool {
	return IsKind(err, KindDuplicateValue)
}

// IsDestructorError reports whether err stems from a failed destructor call.
func IsDestructorError(err error) bool {
	return IsKind(err, KindDestructor)
}

// IsCallbackError reports whether err stems from a failed Use callback.
func IsCallbackError(err error) bool {
	return IsKind(err, KindCallback)
}
