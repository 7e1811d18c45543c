package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation             ErrorKind = "VALIDATION_ERROR"
	KindInsufficientInventory  ErrorKind = "INSUFFICIENT_INVENTORY"
	KindInsufficientCredit     ErrorKind = "INSUFFICIENT_CREDIT"
	KindInvalidStateTransition ErrorKind = "INVALID_STATE_TRANSITION"
	KindNotFound               ErrorKind = "NOT_FOUND"
	KindUnauthorized           ErrorKind = "UNAUTHORIZED"
	KindConflict               ErrorKind = "CONCURRENT_MODIFICATION"
	KindInvariantViolation     ErrorKind = "INVARIANT_VIOLATION"
)

// Error carries the rejection kind alongside the message so callers can map a
// failed transition to user-visible behavior without string matching.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func WrapError(kind ErrorKind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the kind from err, or KindInvariantViolation for errors that
// escaped without classification (internal bug signal).
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInvariantViolation
}

func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}
