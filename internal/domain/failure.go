package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed job for billing purposes.
type ErrorKind string

const (
	// ErrorKindNone is the classification of non-failed jobs.
	ErrorKindNone ErrorKind = ""
	// ErrorKindUser marks failures attributable to the caller's input. Not
	// refund-eligible.
	ErrorKindUser ErrorKind = "user"
	// ErrorKindSystem marks failures attributable to infrastructure,
	// providers, or unanticipated defects. Refund-eligible.
	ErrorKindSystem ErrorKind = "system"
)

// Failure is the engine error family. Every pipeline failure surfaces as a
// Failure of one of the two kinds; anything else escaping the pipeline is
// coerced to system by ClassifyFailure.
type Failure struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return f.Message + ": " + f.Err.Error()
	}
	return f.Message
}

func (f *Failure) Unwrap() error { return f.Err }

// SystemFailure builds a system-attributable failure.
func SystemFailure(format string, args ...any) *Failure {
	return &Failure{Kind: ErrorKindSystem, Message: fmt.Sprintf(format, args...)}
}

// SystemFailureWrap builds a system-attributable failure around a cause.
func SystemFailureWrap(err error, format string, args ...any) *Failure {
	return &Failure{Kind: ErrorKindSystem, Message: fmt.Sprintf(format, args...), Err: err}
}

// UserContentError builds a user-attributable failure.
func UserContentError(format string, args ...any) *Failure {
	return &Failure{Kind: ErrorKindUser, Message: fmt.Sprintf(format, args...)}
}

// ClassifyFailure maps any error surfaced by the pipeline onto an ErrorKind.
// Only an explicit user-kind Failure classifies as user; everything else is
// system, so an unanticipated bug never silently consumes the user's credits.
func ClassifyFailure(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}
	var f *Failure
	if errors.As(err, &f) && f.Kind == ErrorKindUser {
		return ErrorKindUser
	}
	return ErrorKindSystem
}

// IsUserContentError reports whether the chain contains a user-kind Failure.
func IsUserContentError(err error) bool {
	return ClassifyFailure(err) == ErrorKindUser
}
