package crypto

import (
	"bytes"
	"testing"
)

func TestDeriveKey(t *testing.T) {
	salt := []byte("0123456789abcdef")

	k1 := DeriveKey("password", salt)
	k2 := DeriveKey("password", salt)
	k3 := DeriveKey("password", []byte("fedcba9876543210"))

	if len(k1) != 32 {
		t.Fatalf("DeriveKey() length = %d, want 32", len(k1))
	}
	if !bytes.Equal(k1, k2) {
		t.Error("DeriveKey() is not deterministic")
	}
	if bytes.Equal(k1, k3) {
		t.Error("DeriveKey() ignores the salt")
	}
}

func TestAESEncryptDecrypt(t *testing.T) {
	key, _ := GenerateNonce(32)

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"auth key", seq(256)},
		{"empty", []byte{}},
		{"single byte", []byte{0x42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, err := AESEncrypt(tt.plaintext, key)
			if err != nil {
				t.Fatalf("AESEncrypt() error = %v", err)
			}
			pt, err := AESDecrypt(ct, key)
			if err != nil {
				t.Fatalf("AESDecrypt() error = %v", err)
			}
			if !bytes.Equal(pt, tt.plaintext) {
				t.Errorf("AESDecrypt() = %x, want %x", pt, tt.plaintext)
			}
		})
	}
}

func TestAESDecryptTampered(t *testing.T) {
	key, _ := GenerateNonce(32)
	ct, _ := AESEncrypt([]byte("secret"), key)

	ct[len(ct)-1] ^= 1
	if _, err := AESDecrypt(ct, key); err == nil {
		t.Error("AESDecrypt() should fail on modified ciphertext")
	}
	if _, err := AESDecrypt([]byte{1, 2, 3}, key); err != ErrCiphertextTooShort {
		t.Errorf("AESDecrypt() short error = %v, want ErrCiphertextTooShort", err)
	}

	other, _ := GenerateNonce(32)
	good, _ := AESEncrypt([]byte("secret"), key)
	if _, err := AESDecrypt(good, other); err == nil {
		t.Error("AESDecrypt() should fail with the wrong key")
	}
}
