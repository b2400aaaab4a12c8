package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies failures the way the HTTP layer needs to surface them.
type Kind string

const (
	KindNotFound    Kind = "NOT_FOUND"
	KindUpstream    Kind = "UPSTREAM_UNAVAILABLE"
	KindValidation  Kind = "VALIDATION"
	KindUnavailable Kind = "SERVICE_UNAVAILABLE"
)

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Upstream(message string, cause error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Cause: cause}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func IsNotFound(err error) bool {
	return Is(err, KindNotFound)
}

func IsUpstream(err error) bool {
	return Is(err, KindUpstream)
}

func IsValidation(err error) bool {
	return Is(err, KindValidation)
}

func Is(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
