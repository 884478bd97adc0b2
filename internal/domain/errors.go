package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure of the refresh pipeline.
type Kind string

const (
	KindNone          Kind = ""
	KindBadRequest    Kind = "bad_request"
	KindRateLimited   Kind = "rate_limited"
	KindMisconfigured Kind = "misconfigured"
	KindUpstream      Kind = "upstream_error"
	KindNotFound      Kind = "not_found"
	KindIO            Kind = "io_error"
)

// Error wraps an underlying error with the operation that failed, a kind,
// and a message safe to show to the viewer.
type Error struct {
	Op   string
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Msg != "" {
		base += ": " + e.Msg
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Errorf builds an *Error of the given kind with a formatted message.
func Errorf(op string, kind Kind, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around err.
func Wrap(op string, kind Kind, err error, msg string) *Error {
	return &Error{Op: op, Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindNone.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindNone
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the viewer-facing message of err: the Msg of the first
// *Error in the chain, or err.Error() when there is none.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Msg != "" {
		return de.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
