package domain

import "errors"

// Kind classifies a domain error into the handful of buckets the
// transport layer maps to HTTP status codes. It is deliberately not a
// type hierarchy — callers read it back with KindOf, which unwraps to
// the *Error below via errors.As.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindConflict
	KindNotFound
	KindInvalid
	KindInsufficientData
	KindModelUnavailable
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	case KindInsufficientData:
		return "insufficient_data"
	case KindModelUnavailable:
		return "model_unavailable"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// Error wraps an underlying cause with a Kind the handler layer can
// switch on without parsing strings.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Unauthorized(msg string) *Error       { return NewError(KindUnauthorized, msg, nil) }
func Conflict(msg string) *Error           { return NewError(KindConflict, msg, nil) }
func NotFound(msg string) *Error           { return NewError(KindNotFound, msg, nil) }
func Invalid(msg string) *Error            { return NewError(KindInvalid, msg, nil) }
func InsufficientData(msg string) *Error   { return NewError(KindInsufficientData, msg, nil) }
func ModelUnavailable(msg string) *Error   { return NewError(KindModelUnavailable, msg, nil) }
func Timeout(msg string) *Error            { return NewError(KindTimeout, msg, nil) }
func Internal(msg string, cause error) *Error { return NewError(KindInternal, msg, cause) }

// KindOf unwraps err looking for a *Error and returns its Kind, or
// KindInternal if err does not carry one.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
