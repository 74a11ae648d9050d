package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the user-facing status line and HTTP mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindRead         // local file could not be read or was rejected
	KindTransport    // parsing service unreachable or non-2xx
	KindTimeout      // parsing service exceeded the time bound
	KindFormat       // response body has no usable data array
	KindBusy         // another upload is in flight
	KindClosed       // controller was torn down
)

func (k Kind) String() string {
	switch k {
	case KindRead:
		return "read_failure"
	case KindTransport:
		return "transport_failure"
	case KindTimeout:
		return "timeout_failure"
	case KindFormat:
		return "format_failure"
	case KindBusy:
		return "busy"
	case KindClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Err carries the underlying cause, if any.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New returns a failure of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf is New with a formatted cause.
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels like ErrBusy work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// Message is the text shown to the user.
func (e *Error) Message() string {
	switch e.Kind {
	case KindRead:
		if e.Err != nil {
			return "Could not read the log file: " + e.Err.Error()
		}
		return "Could not read the log file"
	case KindTransport:
		return "The log parsing service is unavailable, please try again later"
	case KindTimeout:
		return "The log parsing service took too long to respond"
	case KindFormat:
		return "The log parsing service returned an unexpected response"
	case KindBusy:
		return "An upload is already in progress"
	case KindClosed:
		return "The dashboard is shutting down"
	default:
		return "Something went wrong"
	}
}

// Sentinels for errors.Is.
var (
	ErrRead      = &Error{Kind: KindRead}
	ErrTransport = &Error{Kind: KindTransport}
	ErrTimeout   = &Error{Kind: KindTimeout}
	ErrFormat    = &Error{Kind: KindFormat}
	ErrBusy      = &Error{Kind: KindBusy}
	ErrClosed    = &Error{Kind: KindClosed}
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Transient reports whether retrying may help.
func Transient(err error) bool {
	switch KindOf(err) {
	case KindTransport, KindTimeout:
		return true
	default:
		return false
	}
}

// MessageOf returns the user-facing text for any error.
func MessageOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Message()
	}
	return (&Error{}).Message()
}
