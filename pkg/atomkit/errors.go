package atomkit

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSelection is the panic value raised when a selection read or
// combinator is invoked outside an active selection. This is a
// programming error and is never converted into a cell error status.
var ErrNoSelection = errors.New("atomkit: selection read outside an active selection")

// ErrDeferredResult is the panic value raised when a selection
// computation returns a deferred value. Selection computations must be
// synchronous; asynchronous work belongs in atom initializers.
var ErrDeferredResult = errors.New("atomkit: selection computation returned a deferred value")

// AggregateError is produced by Any when every input has rejected.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "atomkit: all %d inputs rejected", len(e.Errors))
	for i, err := range e.Errors {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap supports errors.Is/errors.As against the per-input errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// usagePanic wraps programming errors so the selection runner can tell
// them apart from error-status aborts, which it recovers. Usage panics
// are always re-raised.
type usagePanic struct {
	err error
}

func (u usagePanic) Error() string { return u.err.Error() }
func (u usagePanic) Unwrap() error { return u.err }
