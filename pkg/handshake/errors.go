package handshake

import "fmt"

// Kind classifies why a key exchange failed
type Kind int

const (
	KindNonceMismatch Kind = iota + 1
	KindServerNonceMismatch
	KindUnknownFingerprint
	KindInvalidDhParameters
	KindHashMismatch
	KindDhGenFail
	KindFactorization
	KindUnexpectedResponse
)

func (k Kind) String() string {
	switch k {
	case KindNonceMismatch:
		return "nonce mismatch"
	case KindServerNonceMismatch:
		return "server nonce mismatch"
	case KindUnknownFingerprint:
		return "unknown server fingerprint"
	case KindInvalidDhParameters:
		return "invalid dh parameters"
	case KindHashMismatch:
		return "hash mismatch"
	case KindDhGenFail:
		return "key exchange rejected"
	case KindFactorization:
		return "pq factorization failed"
	case KindUnexpectedResponse:
		return "unexpected response"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a fatal key exchange failure. The exchange must restart
// from scratch with fresh nonces.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := "handshake: " + e.Kind.String()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNonceMismatch       = &Error{Kind: KindNonceMismatch}
	ErrServerNonceMismatch = &Error{Kind: KindServerNonceMismatch}
	ErrUnknownFingerprint  = &Error{Kind: KindUnknownFingerprint}
	ErrInvalidDhParameters = &Error{Kind: KindInvalidDhParameters}
	ErrHashMismatch        = &Error{Kind: KindHashMismatch}
	ErrDhGenFail           = &Error{Kind: KindDhGenFail}
	ErrFactorization       = &Error{Kind: KindFactorization}
	ErrUnexpectedResponse  = &Error{Kind: KindUnexpectedResponse}
)

func fail(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}
