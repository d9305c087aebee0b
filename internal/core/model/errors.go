package model

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindInput           ErrorKind = "input"
	KindClusterTooSmall ErrorKind = "cluster_too_small"
	KindTransport       ErrorKind = "transport"
	KindValidation      ErrorKind = "validation"
	KindConflict        ErrorKind = "conflict"
	KindPersistence     ErrorKind = "persistence"
)

var (
	ErrInput           = errors.New("invalid input")
	ErrClusterTooSmall = errors.New("cluster too small")
	ErrTransport       = errors.New("generative service unavailable")
	ErrValidation      = errors.New("generative response invalid")
	ErrConflict        = errors.New("merge key conflict")
	ErrPersistence     = errors.New("persistence failure")

	// ErrRetryable matches any error a caller may safely retry.
	ErrRetryable = errors.New("retryable")
)

// Error is the typed failure returned by merge operations.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Errorf(kind ErrorKind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	if target == ErrRetryable {
		return e.Retryable()
	}
	return target == e.sentinel()
}

// Retryable reports whether repeating the same call can succeed. No partial
// state is committed for any retryable kind.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransport, KindValidation, KindPersistence:
		return true
	}
	return false
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindInput:
		return ErrInput
	case KindClusterTooSmall:
		return ErrClusterTooSmall
	case KindTransport:
		return ErrTransport
	case KindValidation:
		return ErrValidation
	case KindConflict:
		return ErrConflict
	case KindPersistence:
		return ErrPersistence
	}
	return nil
}

func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryable)
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
