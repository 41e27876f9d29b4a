package crypto

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
)

// SHA1 hashes the concatenation of parts
func SHA1(parts ...[]byte) []byte {
	h := sha1.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// SHA256 hashes the concatenation of parts
func SHA256(parts ...[]byte) []byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// HashString returns the hex SHA-256 of data
func HashString(data []byte) string {
	return hex.EncodeToString(SHA256(data))
}

// GenerateNonce generates a random nonce
func GenerateNonce(size int) ([]byte, error) {
	return ReadNonce(rand.Reader, size)
}

// ReadNonce reads size random bytes from r
func ReadNonce(r io.Reader, size int) ([]byte, error) {
	nonce := make([]byte, size)
	if _, err := io.ReadFull(r, nonce); err != nil {
		return nil, err
	}
	return nonce, nil
}

// VerifyHash compares two digests in constant time
func VerifyHash(actual, expected []byte) bool {
	if len(actual) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare(actual, expected) == 1
}

// XOR returns a ^ b over the shorter length
func XOR(a, b []byte) []byte {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]byte, n)
	subtle.XORBytes(out, a[:n], b[:n])
	return out
}
