package reindex

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindConfiguration: the bag folder is missing or not a directory, or
	// the storage identifier is not known.
	KindConfiguration
	// KindNoSegments is the only non-fatal kind. Nothing was written.
	KindNoSegments
	KindMalformedFilename
	KindBackendOpen
	KindPersist
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindNoSegments:
		return "no segments found"
	case KindMalformedFilename:
		return "malformed filename"
	case KindBackendOpen:
		return "backend open"
	case KindPersist:
		return "persist metadata"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Fatal reports whether a run that ended with this kind must be treated as
// a failure.
func (k Kind) Fatal() bool {
	return k != KindNoSegments
}

type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so the Err* values below work
// with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Err == nil && t.Op == "" && t.Kind == e.Kind
}

var (
	ErrConfiguration     = &Error{Kind: KindConfiguration}
	ErrNoSegments        = &Error{Kind: KindNoSegments}
	ErrMalformedFilename = &Error{Kind: KindMalformedFilename}
	ErrBackendOpen       = &Error{Kind: KindBackendOpen}
	ErrPersist           = &Error{Kind: KindPersist}
	ErrCanceled          = &Error{Kind: KindCanceled}
)

func newError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func errorf(kind Kind, op, path, format string, args ...any) *Error {
	return newError(kind, op, path, fmt.Errorf(format, args...))
}
