package crypto

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrInvalidPadding = errors.New("invalid padding")
)

// Padding bounds of an encrypted message payload
const (
	MinMessagePadding = 12
	MaxMessagePadding = 1024
)

// PaddingScheme represents the padding rules of a payload kind
type PaddingScheme int

const (
	// PaddingNone - no padding
	PaddingNone PaddingScheme = iota

	// PaddingAlign16 - random bytes up to the next AES block (handshake inner data)
	PaddingAlign16

	// PaddingMessage - at least 12 random bytes, total a multiple of 16 (encrypted frames)
	PaddingMessage
)

// PaddingLen returns how many padding bytes a payload of n bytes needs
func PaddingLen(n int, scheme PaddingScheme) int {
	switch scheme {
	case PaddingAlign16:
		return (16 - n%16) % 16
	case PaddingMessage:
		return MinMessagePadding + (16-(n+MinMessagePadding)%16)%16
	default:
		return 0
	}
}

// AddPadding appends random padding to message according to scheme.
// The returned slice does not alias message.
func AddPadding(message []byte, scheme PaddingScheme, random io.Reader) ([]byte, error) {
	switch scheme {
	case PaddingNone, PaddingAlign16, PaddingMessage:
	default:
		return nil, fmt.Errorf("unknown padding scheme: %d", scheme)
	}

	n := PaddingLen(len(message), scheme)
	padded := make([]byte, len(message)+n)
	copy(padded, message)
	if n > 0 {
		if _, err := io.ReadFull(random, padded[len(message):]); err != nil {
			return nil, fmt.Errorf("failed to generate padding: %w", err)
		}
	}
	return padded, nil
}

// CheckMessagePadding validates the trailing bytes left after an encrypted payload body
func CheckMessagePadding(n int) error {
	if n < MinMessagePadding || n > MaxMessagePadding {
		return fmt.Errorf("%w: %d bytes", ErrInvalidPadding, n)
	}
	return nil
}
