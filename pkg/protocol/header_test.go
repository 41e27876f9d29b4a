package protocol

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestPlainHeaderEncodeDecode(t *testing.T) {
	tests := []struct {
		name   string
		header *PlainHeader
	}{
		{
			name:   "req_pq_multi sized",
			header: &PlainHeader{MessageID: 0x51e57ac42770964a, Length: 20},
		},
		{
			name:   "zero length",
			header: &PlainHeader{MessageID: 4, Length: 0},
		},
		{
			name:   "large body",
			header: &PlainHeader{MessageID: GenerateMessageID(time.Now(), 0), Length: 596},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := tt.header.Encode()
			if len(encoded) != PlainHeaderSize {
				t.Fatalf("Encode() length = %d, want %d", len(encoded), PlainHeaderSize)
			}
			if !bytes.Equal(encoded[:8], make([]byte, 8)) {
				t.Errorf("auth key id bytes = %x, want zeros", encoded[:8])
			}

			decoded := &PlainHeader{}
			if err := decoded.Decode(encoded); err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if *decoded != *tt.header {
				t.Errorf("Decode() = %+v, want %+v", decoded, tt.header)
			}
		})
	}
}

func TestPlainHeaderLittleEndian(t *testing.T) {
	h := &PlainHeader{MessageID: 0x0102030405060708, Length: 0x0a0b}
	want := []byte{
		0, 0, 0, 0, 0, 0, 0, 0,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
		0x0b, 0x0a, 0, 0,
	}
	if got := h.Encode(); !bytes.Equal(got, want) {
		t.Errorf("Encode() = %x, want %x", got, want)
	}
}

func TestHeaderDecodeTooShort(t *testing.T) {
	if err := (&PlainHeader{}).Decode(make([]byte, PlainHeaderSize-1)); err != ErrInvalidHeader {
		t.Errorf("PlainHeader.Decode() error = %v, want %v", err, ErrInvalidHeader)
	}
	if err := (&EncryptedHeader{}).Decode(make([]byte, EncryptedHeaderSize-1)); err != ErrInvalidHeader {
		t.Errorf("EncryptedHeader.Decode() error = %v, want %v", err, ErrInvalidHeader)
	}
	if err := (&InnerHeader{}).Decode(make([]byte, InnerHeaderSize-1)); err != ErrInvalidHeader {
		t.Errorf("InnerHeader.Decode() error = %v, want %v", err, ErrInvalidHeader)
	}
}

func TestPlainHeaderValidate(t *testing.T) {
	tests := []struct {
		name     string
		header   *PlainHeader
		frameLen int
		wantErr  error
	}{
		{
			name:     "valid",
			header:   &PlainHeader{MessageID: 1, Length: 20},
			frameLen: 40,
		},
		{
			name:     "non-zero auth key",
			header:   &PlainHeader{AuthKeyID: 7, Length: 20},
			frameLen: 40,
			wantErr:  ErrNonZeroAuthKey,
		},
		{
			name:     "length mismatch",
			header:   &PlainHeader{Length: 21},
			frameLen: 40,
			wantErr:  ErrInvalidLength,
		},
		{
			name:     "oversized",
			header:   &PlainHeader{Length: MaxBodySize + 1},
			frameLen: MaxBodySize + 1 + PlainHeaderSize,
			wantErr:  ErrInvalidLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.header.Validate(tt.frameLen)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodePlain(t *testing.T) {
	body := []byte("body bytes")
	frame := EncodePlain(99, body)

	h, got, err := DecodePlain(frame)
	if err != nil {
		t.Fatalf("DecodePlain() error = %v", err)
	}
	if h.MessageID != 99 || h.Length != uint32(len(body)) {
		t.Errorf("header = %+v", h)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("body = %q, want %q", got, body)
	}

	if _, _, err := DecodePlain(frame[:len(frame)-1]); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("DecodePlain(truncated) error = %v, want ErrInvalidLength", err)
	}
}

func TestEncryptedHeaderEncodeDecode(t *testing.T) {
	h := &EncryptedHeader{AuthKeyID: 0xc8df57a46e58d132}
	for i := range h.MsgKey {
		h.MsgKey[i] = byte(i + 1)
	}

	decoded := &EncryptedHeader{}
	if err := decoded.Decode(h.Encode()); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if *decoded != *h {
		t.Errorf("Decode() = %+v, want %+v", decoded, h)
	}
}

func TestInnerHeaderEncodeDecode(t *testing.T) {
	h := &InnerHeader{
		Salt:      -1,
		SessionID: 0x1122334455667788,
		MessageID: 0x51e57ac42770964c,
		SeqNo:     7,
		Length:    12,
	}

	decoded := &InnerHeader{}
	if err := decoded.Decode(h.Encode()); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if *decoded != *h {
		t.Errorf("Decode() = %+v, want %+v", decoded, h)
	}
}
