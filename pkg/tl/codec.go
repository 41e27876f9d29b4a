// Package tl encodes and decodes the binary objects exchanged by the transport core.
package tl

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrUnexpectedEOF  = errors.New("tl: unexpected end of data")
	ErrUnexpectedType = errors.New("tl: unexpected constructor")
	ErrTooLong        = errors.New("tl: bytes field too long")
)

// Int128 is a 128-bit value such as a nonce
type Int128 [16]byte

// Int256 is a 256-bit value such as new_nonce
type Int256 [32]byte

// Encoder appends TL-serialized values to a buffer
type Encoder struct {
	buf []byte
}

// NewEncoder creates an encoder with the given capacity hint
func NewEncoder(size int) *Encoder {
	return &Encoder{buf: make([]byte, 0, size)}
}

// Buf returns the encoded bytes
func (e *Encoder) Buf() []byte {
	return e.buf
}

// Len returns the number of encoded bytes
func (e *Encoder) Len() int {
	return len(e.buf)
}

func (e *Encoder) PutID(id uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, id)
}

func (e *Encoder) PutInt(v int32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v))
}

func (e *Encoder) PutLong(v int64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v))
}

func (e *Encoder) PutInt128(v Int128) {
	e.buf = append(e.buf, v[:]...)
}

func (e *Encoder) PutInt256(v Int256) {
	e.buf = append(e.buf, v[:]...)
}

// PutRaw appends b without any framing
func (e *Encoder) PutRaw(b []byte) {
	e.buf = append(e.buf, b...)
}

// PutBytes appends a length-prefixed, 4-byte aligned byte string
func (e *Encoder) PutBytes(b []byte) {
	n := len(b)
	var header int
	if n <= 253 {
		e.buf = append(e.buf, byte(n))
		header = 1
	} else {
		e.buf = append(e.buf, 254, byte(n), byte(n>>8), byte(n>>16))
		header = 4
	}
	e.buf = append(e.buf, b...)
	for pad := (4 - (header+n)%4) % 4; pad > 0; pad-- {
		e.buf = append(e.buf, 0)
	}
}

func (e *Encoder) PutString(s string) {
	e.PutBytes([]byte(s))
}

// PutVectorLong appends a boxed Vector<long>
func (e *Encoder) PutVectorLong(v []int64) {
	e.PutID(VectorID)
	e.PutInt(int32(len(v)))
	for _, x := range v {
		e.PutLong(x)
	}
}

// PutObject appends a boxed object
func (e *Encoder) PutObject(o Object) {
	o.Encode(e)
}

// Decoder reads TL-serialized values. The first failure is sticky:
// later reads return zero values and Err reports it.
type Decoder struct {
	buf []byte
	pos int
	err error
}

// NewDecoder creates a decoder over b
func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

// Err returns the first decoding error
func (d *Decoder) Err() error {
	return d.err
}

// Consumed returns the number of bytes read so far
func (d *Decoder) Consumed() int {
	return d.pos
}

// Remaining returns the unread bytes
func (d *Decoder) Remaining() []byte {
	return d.buf[d.pos:]
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.buf)-d.pos < n {
		d.err = fmt.Errorf("%w: need %d bytes at offset %d", ErrUnexpectedEOF, n, d.pos)
		return nil
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b
}

func (d *Decoder) ID() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// PeekID returns the next constructor id without consuming it
func (d *Decoder) PeekID() (uint32, error) {
	if d.err != nil {
		return 0, d.err
	}
	if len(d.buf)-d.pos < 4 {
		return 0, ErrUnexpectedEOF
	}
	return binary.LittleEndian.Uint32(d.buf[d.pos:]), nil
}

// ExpectID consumes a constructor id and fails unless it equals id
func (d *Decoder) ExpectID(id uint32) {
	got := d.ID()
	if d.err == nil && got != id {
		d.err = fmt.Errorf("%w: got %08x, want %08x", ErrUnexpectedType, got, id)
	}
}

func (d *Decoder) Int() int32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func (d *Decoder) Long() int64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

func (d *Decoder) Int128() Int128 {
	var v Int128
	copy(v[:], d.take(16))
	return v
}

func (d *Decoder) Int256() Int256 {
	var v Int256
	copy(v[:], d.take(32))
	return v
}

// Raw reads n bytes without framing
func (d *Decoder) Raw(n int) []byte {
	b := d.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Bytes reads a length-prefixed byte string
func (d *Decoder) Bytes() []byte {
	first := d.take(1)
	if first == nil {
		return nil
	}

	n := int(first[0])
	header := 1
	if n == 254 {
		l := d.take(3)
		if l == nil {
			return nil
		}
		n = int(l[0]) | int(l[1])<<8 | int(l[2])<<16
		header = 4
	} else if n == 255 {
		d.err = fmt.Errorf("%w: invalid length marker", ErrTooLong)
		return nil
	}

	out := d.Raw(n)
	if pad := (header + n) % 4; pad != 0 {
		d.take(4 - pad)
	}
	return out
}

// VectorLong reads a boxed Vector<long>
func (d *Decoder) VectorLong() []int64 {
	d.ExpectID(VectorID)
	n := d.Int()
	if d.err != nil {
		return nil
	}
	if n < 0 || int(n) > (len(d.buf)-d.pos)/8 {
		d.err = fmt.Errorf("%w: vector of %d longs", ErrUnexpectedEOF, n)
		return nil
	}
	v := make([]int64, n)
	for i := range v {
		v[i] = d.Long()
	}
	return v
}
