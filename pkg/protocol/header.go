package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrInvalidHeader  = errors.New("invalid header")
	ErrNonZeroAuthKey = errors.New("plain frame has a non-zero auth key id")
	ErrInvalidLength  = errors.New("invalid body length")
)

// PlainHeader is the header of an unencrypted frame
type PlainHeader struct {
	AuthKeyID uint64
	MessageID MessageID
	Length    uint32
}

// Encode encodes the header to bytes
func (h *PlainHeader) Encode() []byte {
	buf := make([]byte, PlainHeaderSize)

	binary.LittleEndian.PutUint64(buf[0:8], h.AuthKeyID)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.MessageID))
	binary.LittleEndian.PutUint32(buf[16:20], h.Length)

	return buf
}

// Decode decodes the header from bytes
func (h *PlainHeader) Decode(buf []byte) error {
	if len(buf) < PlainHeaderSize {
		return ErrInvalidHeader
	}

	h.AuthKeyID = binary.LittleEndian.Uint64(buf[0:8])
	h.MessageID = MessageID(binary.LittleEndian.Uint64(buf[8:16]))
	h.Length = binary.LittleEndian.Uint32(buf[16:20])

	return nil
}

// Validate checks the header against the frame it was read from
func (h *PlainHeader) Validate(frameLen int) error {
	if h.AuthKeyID != 0 {
		return ErrNonZeroAuthKey
	}
	if h.Length > MaxBodySize || int(h.Length) != frameLen-PlainHeaderSize {
		return fmt.Errorf("%w: header says %d, frame holds %d", ErrInvalidLength, h.Length, frameLen-PlainHeaderSize)
	}
	return nil
}

// EncodePlain builds a complete plain frame around body
func EncodePlain(msgID MessageID, body []byte) []byte {
	h := PlainHeader{MessageID: msgID, Length: uint32(len(body))}
	return append(h.Encode(), body...)
}

// DecodePlain splits a plain frame into its header and body
func DecodePlain(frame []byte) (*PlainHeader, []byte, error) {
	h := &PlainHeader{}
	if err := h.Decode(frame); err != nil {
		return nil, nil, err
	}
	if err := h.Validate(len(frame)); err != nil {
		return nil, nil, err
	}
	return h, frame[PlainHeaderSize:], nil
}

// EncryptedHeader is the cleartext prefix of an encrypted frame
type EncryptedHeader struct {
	AuthKeyID uint64
	MsgKey    [MsgKeySize]byte
}

// Encode encodes the header to bytes
func (h *EncryptedHeader) Encode() []byte {
	buf := make([]byte, EncryptedHeaderSize)
	binary.LittleEndian.PutUint64(buf[0:8], h.AuthKeyID)
	copy(buf[8:], h.MsgKey[:])
	return buf
}

// Decode decodes the header from bytes
func (h *EncryptedHeader) Decode(buf []byte) error {
	if len(buf) < EncryptedHeaderSize {
		return ErrInvalidHeader
	}
	h.AuthKeyID = binary.LittleEndian.Uint64(buf[0:8])
	copy(h.MsgKey[:], buf[8:EncryptedHeaderSize])
	return nil
}

// InnerHeader starts the decrypted payload of an encrypted frame
type InnerHeader struct {
	Salt      int64
	SessionID int64
	MessageID MessageID
	SeqNo     int32
	Length    uint32
}

// Encode encodes the header to bytes
func (h *InnerHeader) Encode() []byte {
	buf := make([]byte, InnerHeaderSize)

	binary.LittleEndian.PutUint64(buf[0:8], uint64(h.Salt))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.SessionID))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.MessageID))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(h.SeqNo))
	binary.LittleEndian.PutUint32(buf[28:32], h.Length)

	return buf
}

// Decode decodes the header from bytes
func (h *InnerHeader) Decode(buf []byte) error {
	if len(buf) < InnerHeaderSize {
		return ErrInvalidHeader
	}

	h.Salt = int64(binary.LittleEndian.Uint64(buf[0:8]))
	h.SessionID = int64(binary.LittleEndian.Uint64(buf[8:16]))
	h.MessageID = MessageID(binary.LittleEndian.Uint64(buf[16:24]))
	h.SeqNo = int32(binary.LittleEndian.Uint32(buf[24:28]))
	h.Length = binary.LittleEndian.Uint32(buf[28:32])

	return nil
}
