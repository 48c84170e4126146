// Package errors provides error types and utilities for the investigation
// core. It extends the standard errors package with wrapping helpers and the
// failure classification the scheduler's retry policy is built on.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios
var (
	// ErrTimeout indicates an operation exceeded its time limit
	ErrTimeout = errors.New("operation timed out")

	// ErrRateLimited indicates the remote source rejected us for sending too fast
	ErrRateLimited = errors.New("rate limited by remote source")

	// ErrConnectionFailed indicates a connection could not be established
	ErrConnectionFailed = errors.New("connection failed")

	// ErrInvalidInput indicates invalid input was provided
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotApplicable indicates a module reported the entity is not applicable
	ErrNotApplicable = errors.New("entity not applicable")

	// ErrUnauthorized indicates authentication or authorization failed
	ErrUnauthorized = errors.New("unauthorized")

	// ErrCapacity indicates a rate-limit token or egress lease could not be
	// obtained before the task deadline
	ErrCapacity = errors.New("capacity deadline exceeded")

	// ErrCancelled indicates the run was stopped before the task settled
	ErrCancelled = errors.New("run cancelled")
)

// Class partitions failures for retry-policy purposes.
type Class int

const (
	// ClassUnknown is the zero value; treated as permanent.
	ClassUnknown Class = iota

	// ClassTransient failures (timeouts, resets, remote rate limiting) are
	// retried with backoff and a rotated egress identity.
	ClassTransient

	// ClassPermanent failures (bad input, not applicable, auth) are never
	// retried.
	ClassPermanent

	// ClassCapacity failures mean the task never reached the network: no
	// token or lease was available before its deadline.
	ClassCapacity

	// ClassCancelled failures come from the run-level stop signal.
	ClassCancelled
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	case ClassCapacity:
		return "capacity"
	case ClassCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// classifiedError carries an explicit Class through a wrap chain.
type classifiedError struct {
	class Class
	cause error
}

func (e *classifiedError) Error() string { return e.cause.Error() }
func (e *classifiedError) Unwrap() error { return e.cause }

// WithClass tags err with an explicit failure class. Modules use this to
// override the sentinel-based classification when they know better.
func WithClass(err error, class Class) error {
	if err == nil {
		return nil
	}
	return &classifiedError{class: class, cause: err}
}

// Classify maps an error to its failure class. Explicit tags win, then
// context errors, then the sentinel chain. Anything unrecognized is
// permanent: retrying an unknown failure against a live target is worse
// than recording it.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}

	var ce *classifiedError
	if errors.As(err, &ce) {
		return ce.class
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, ErrCancelled):
		return ClassCancelled
	case errors.Is(err, ErrCapacity):
		return ClassCapacity
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrConnectionFailed):
		return ClassTransient
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrNotApplicable),
		errors.Is(err, ErrUnauthorized):
		return ClassPermanent
	default:
		return ClassPermanent
	}
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return Classify(err) == ClassTransient
}

// IsCancelled reports whether err came from the run-level stop signal.
func IsCancelled(err error) bool {
	return Classify(err) == ClassCancelled
}

// wrappedError wraps an error with additional context
type wrappedError struct {
	msg   string
	cause error
}

// Error implements the error interface
func (e *wrappedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

// Unwrap returns the underlying error
func (e *wrappedError) Unwrap() error {
	return e.cause
}

// Wrap wraps an error with additional context message.
// If err is nil, Wrap returns nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg:   msg,
		cause: err,
	}
}

// Wrapf wraps an error with a formatted context message.
// If err is nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg:   fmt.Sprintf(format, args...),
		cause: err,
	}
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around errors.Is from the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type.
// This is a convenience wrapper around errors.As from the standard library.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New from the standard library.
func New(msg string) error {
	return errors.New(msg)
}

// Errorf formats according to a format specifier and returns the string as a value that satisfies error.
// This is a convenience wrapper around fmt.Errorf from the standard library.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// Join returns an error that wraps the given errors.
// Any nil error values are discarded.
// This is a convenience wrapper around errors.Join from the standard library.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
