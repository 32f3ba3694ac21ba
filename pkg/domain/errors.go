package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the category of a failure surfaced to callers.
type ErrorKind int

const (
	// KindValidation is a missing or malformed caller-supplied parameter.
	KindValidation ErrorKind = iota + 1
	// KindNotFound is a referenced collection or document that does not exist.
	KindNotFound
	// KindEvaluation is a stage-level failure while running a pipeline.
	KindEvaluation
	// KindProvider is an underlying fetch or insert failure.
	KindProvider
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindEvaluation:
		return "evaluation_error"
	case KindProvider:
		return "provider_error"
	default:
		return "unknown_error"
	}
}

// Error is the typed error returned by the engine and the stores.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Cause   error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error { return e.Cause }

// WithOp records the operation (stage, endpoint) the error belongs to.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// Validation creates a validation error.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates an error for a missing collection or document.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Evaluation creates a stage evaluation error.
func Evaluation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindEvaluation, Message: fmt.Sprintf(format, args...)}
}

// Provider wraps a store failure.
func Provider(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindProvider, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsKind reports whether err (or anything it wraps) is a domain error of kind.
func IsKind(err error, kind ErrorKind) bool {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Kind == kind
	}
	return false
}

// KindOfError returns the kind of a domain error, or 0 when err is not one.
func KindOfError(err error) ErrorKind {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Kind
	}
	return 0
}
