package crypto

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/binary"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
)

var (
	ErrInvalidKey       = errors.New("invalid key")
	ErrEncryptionFailed = errors.New("encryption failed")
)

// RSAPaddedSize is the size of the SHA1(data) || data || padding block
const RSAPaddedSize = 255

// PublicKey is a server RSA key identified by its fingerprint
type PublicKey struct {
	N *big.Int
	E *big.Int

	fingerprint uint64
}

// NewPublicKey creates a public key and computes its fingerprint
func NewPublicKey(n, e *big.Int) *PublicKey {
	k := &PublicKey{N: n, E: e}
	k.fingerprint = computeFingerprint(n, e)
	return k
}

// FromRSA wraps a standard library RSA key
func FromRSA(key *rsa.PublicKey) *PublicKey {
	return NewPublicKey(key.N, big.NewInt(int64(key.E)))
}

// Fingerprint returns the low 64 bits of SHA1(n || e) in TL bytes encoding
func (k *PublicKey) Fingerprint() uint64 {
	return k.fingerprint
}

// Size returns the modulus size in bytes
func (k *PublicKey) Size() int {
	return (k.N.BitLen() + 7) / 8
}

func computeFingerprint(n, e *big.Int) uint64 {
	digest := SHA1(tlBytes(n.Bytes()), tlBytes(e.Bytes()))
	return binary.LittleEndian.Uint64(digest[12:20])
}

// tlBytes serializes b the way TL "bytes" does: short or long length prefix, 4-byte aligned
func tlBytes(b []byte) []byte {
	var out []byte
	if len(b) <= 253 {
		out = append(out, byte(len(b)))
	} else {
		out = append(out, 254, byte(len(b)), byte(len(b)>>8), byte(len(b)>>16))
	}
	out = append(out, b...)
	for len(out)%4 != 0 {
		out = append(out, 0)
	}
	return out
}

// RSAPadEncrypt encrypts data the way the key exchange requires:
// SHA1(data) || data || random padding up to 255 bytes, raised to e mod n.
func RSAPadEncrypt(data []byte, key *PublicKey, random io.Reader) ([]byte, error) {
	if len(data)+20 > RSAPaddedSize {
		return nil, fmt.Errorf("%w: payload of %d bytes does not fit", ErrEncryptionFailed, len(data))
	}

	block := make([]byte, 0, RSAPaddedSize)
	block = append(block, SHA1(data)...)
	block = append(block, data...)
	padding, err := ReadNonce(random, RSAPaddedSize-len(block))
	if err != nil {
		return nil, fmt.Errorf("failed to generate padding: %w", err)
	}
	block = append(block, padding...)

	m := BytesToInt(block)
	if m.Cmp(key.N) >= 0 {
		return nil, ErrEncryptionFailed
	}
	c := new(big.Int).Exp(m, key.E, key.N)
	return IntToBytes(c, key.Size()), nil
}

// ParsePublicKeyPEM parses a single "RSA PUBLIC KEY" (PKCS#1) or "PUBLIC KEY" (PKIX) block
func ParsePublicKeyPEM(pemData []byte) (*PublicKey, error) {
	keys, err := ParsePublicKeysPEM(pemData)
	if err != nil {
		return nil, err
	}
	if len(keys) != 1 {
		return nil, fmt.Errorf("%w: expected one key, got %d", ErrInvalidKey, len(keys))
	}
	return keys[0], nil
}

// ParsePublicKeysPEM parses every RSA public key block in pemData
func ParsePublicKeysPEM(pemData []byte) ([]*PublicKey, error) {
	var keys []*PublicKey
	rest := pemData
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		var pub *rsa.PublicKey
		switch block.Type {
		case "RSA PUBLIC KEY":
			k, err := x509.ParsePKCS1PublicKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("failed to parse PKCS1 key: %w", err)
			}
			pub = k
		case "PUBLIC KEY":
			k, err := x509.ParsePKIXPublicKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("failed to parse PKIX key: %w", err)
			}
			rsaPub, ok := k.(*rsa.PublicKey)
			if !ok {
				return nil, ErrInvalidKey
			}
			pub = rsaPub
		default:
			continue
		}
		keys = append(keys, FromRSA(pub))
	}

	if len(keys) == 0 {
		return nil, ErrInvalidKey
	}
	return keys, nil
}

// ExportPublicKeyPEM exports a key as a PKCS#1 "RSA PUBLIC KEY" block
func ExportPublicKeyPEM(key *PublicKey) []byte {
	pub := &rsa.PublicKey{N: key.N, E: int(key.E.Int64())}
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(pub),
	})
}

// LoadKeyFromFile loads PEM encoded keys from file
func LoadKeyFromFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}
