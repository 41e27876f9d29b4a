package crypto

import (
	"encoding/binary"
	"fmt"
)

// AuthKeySize is the size of a 2048-bit authorization key
const AuthKeySize = 256

// AuthKey is the shared secret produced by the key exchange
type AuthKey struct {
	value [AuthKeySize]byte
	id    uint64
}

// NewAuthKey wraps a 256-byte key and computes its id
func NewAuthKey(value []byte) (AuthKey, error) {
	if len(value) != AuthKeySize {
		return AuthKey{}, fmt.Errorf("%w: auth key must be %d bytes, got %d", ErrInvalidKey, AuthKeySize, len(value))
	}
	var k AuthKey
	copy(k.value[:], value)
	k.id = binary.LittleEndian.Uint64(SHA1(value)[12:20])
	return k, nil
}

// Value returns a copy of the key bytes
func (k AuthKey) Value() []byte {
	v := make([]byte, AuthKeySize)
	copy(v, k.value[:])
	return v
}

// ID returns the last 8 bytes of SHA1(key) read little-endian
func (k AuthKey) ID() uint64 {
	return k.id
}

// IDBytes returns the id as it appears on the wire
func (k AuthKey) IDBytes() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, k.id)
	return b
}

// AuxHash returns the first 8 bytes of SHA1(key)
func (k AuthKey) AuxHash() []byte {
	return SHA1(k.value[:])[0:8]
}

// IsZero reports whether k is unset
func (k AuthKey) IsZero() bool {
	return k.id == 0 && k.value == [AuthKeySize]byte{}
}

func (k AuthKey) String() string {
	return fmt.Sprintf("AuthKey(%016x)", k.id)
}
