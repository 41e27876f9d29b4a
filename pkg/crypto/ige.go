package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

var (
	ErrBlockSize = errors.New("data is not a multiple of the AES block size")
	ErrIVSize    = errors.New("IGE iv must be 32 bytes")
)

// IGE is AES-256 in Infinite Garble Extension mode.
// The 32-byte iv seeds the two chaining vectors: iv[0:16] and iv[16:32].
type IGE struct {
	block cipher.Block
	iv    [2 * aes.BlockSize]byte
}

// NewIGE creates an IGE cipher for a 32-byte key and 32-byte iv
func NewIGE(key, iv []byte) (*IGE, error) {
	if len(iv) != 2*aes.BlockSize {
		return nil, ErrIVSize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	c := &IGE{block: block}
	copy(c.iv[:], iv)
	return c, nil
}

// Encrypt returns the IGE encryption of src
func (c *IGE) Encrypt(src []byte) ([]byte, error) {
	if len(src)%aes.BlockSize != 0 {
		return nil, ErrBlockSize
	}

	dst := make([]byte, len(src))
	var x, y, buf [aes.BlockSize]byte
	copy(y[:], c.iv[:aes.BlockSize])
	copy(x[:], c.iv[aes.BlockSize:])

	for i := 0; i < len(src); i += aes.BlockSize {
		p := src[i : i+aes.BlockSize]
		out := dst[i : i+aes.BlockSize]

		xorBlock(buf[:], p, y[:])
		c.block.Encrypt(out, buf[:])
		xorBlock(out, out, x[:])

		copy(x[:], p)
		copy(y[:], out)
	}
	return dst, nil
}

// Decrypt returns the IGE decryption of src
func (c *IGE) Decrypt(src []byte) ([]byte, error) {
	if len(src)%aes.BlockSize != 0 {
		return nil, ErrBlockSize
	}

	dst := make([]byte, len(src))
	var x, y, buf [aes.BlockSize]byte
	copy(y[:], c.iv[:aes.BlockSize])
	copy(x[:], c.iv[aes.BlockSize:])

	for i := 0; i < len(src); i += aes.BlockSize {
		e := src[i : i+aes.BlockSize]
		out := dst[i : i+aes.BlockSize]

		xorBlock(buf[:], e, x[:])
		c.block.Decrypt(out, buf[:])
		xorBlock(out, out, y[:])

		copy(y[:], e)
		copy(x[:], out)
	}
	return dst, nil
}

// EncryptIGE encrypts src with AES-256-IGE
func EncryptIGE(key, iv, src []byte) ([]byte, error) {
	c, err := NewIGE(key, iv)
	if err != nil {
		return nil, err
	}
	return c.Encrypt(src)
}

// DecryptIGE decrypts src with AES-256-IGE
func DecryptIGE(key, iv, src []byte) ([]byte, error) {
	c, err := NewIGE(key, iv)
	if err != nil {
		return nil, err
	}
	return c.Decrypt(src)
}

func xorBlock(dst, a, b []byte) {
	for i := 0; i < aes.BlockSize; i++ {
		dst[i] = a[i] ^ b[i]
	}
}
