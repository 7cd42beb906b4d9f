package project

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// ErrorKind classifies persistence failures into a closed set.
type ErrorKind string

const (
	KindInvalidArgument         ErrorKind = "invalid_argument"
	KindPathConflict            ErrorKind = "path_conflict"
	KindPermissionDenied        ErrorKind = "permission_denied"
	KindInsufficientSpace       ErrorKind = "insufficient_space"
	KindNameTooLong             ErrorKind = "name_too_long"
	KindWriteVerificationFailed ErrorKind = "write_verification_failed"
	KindIOFailure               ErrorKind = "io_failure"
)

type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("project: %s: %s: %s: %v", e.Op, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("project: %s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind satisfies the pipeline's failure classification interface.
func (e *Error) ErrorKind() string { return string(e.Kind) }

// IsKind reports whether err is a project Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// mapOSError translates filesystem failures into the closed taxonomy.
func mapOSError(op, message string, err error) *Error {
	switch {
	case errors.Is(err, os.ErrPermission):
		return &Error{Kind: KindPermissionDenied, Op: op, Message: message, Err: err}
	case errors.Is(err, syscall.ENOSPC):
		return &Error{Kind: KindInsufficientSpace, Op: op, Message: message, Err: err}
	case errors.Is(err, syscall.ENAMETOOLONG):
		return &Error{Kind: KindNameTooLong, Op: op, Message: message, Err: err}
	default:
		return &Error{Kind: KindIOFailure, Op: op, Message: message, Err: err}
	}
}
