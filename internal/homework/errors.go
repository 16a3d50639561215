package homework

import (
	"errors"
	"fmt"
)

// Kind tags a recoverable failure of one poll cycle.
type Kind int

const (
	KindUnknown Kind = iota
	// KindTransport: the request could not be completed (network, timeout, DNS).
	KindTransport
	// KindBadStatus: the API answered with a status other than 200.
	KindBadStatus
	// KindShape: the payload does not have the documented structure.
	KindShape
	// KindMissingField: a submission record lacks homework_name or status.
	KindMissingField
	// KindUnknownVerdict: a submission record carries a status outside VerdictTable.
	KindUnknownVerdict
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindBadStatus:
		return "bad_status"
	case KindShape:
		return "shape"
	case KindMissingField:
		return "missing_field"
	case KindUnknownVerdict:
		return "unknown_verdict"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is; they match any *Error of the same Kind.
var (
	ErrTransport      = &Error{Kind: KindTransport}
	ErrBadStatus      = &Error{Kind: KindBadStatus}
	ErrShape          = &Error{Kind: KindShape}
	ErrMissingField   = &Error{Kind: KindMissingField}
	ErrUnknownVerdict = &Error{Kind: KindUnknownVerdict}
)

type Error struct {
	Kind       Kind
	Op         string
	Msg        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so callers can write errors.Is(err, ErrShape).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}
