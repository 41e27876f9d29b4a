package tl

import (
	"bytes"
	"errors"
	"testing"
)

func TestPutBytesAlignment(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantLen int
	}{
		{"empty", 0, 4},
		{"three", 3, 4},
		{"four", 4, 8},
		{"short max", 253, 256},
		{"long form", 254, 260},
		{"long aligned", 256, 260},
		{"long unaligned", 257, 264},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := bytes.Repeat([]byte{0xab}, tt.size)
			e := NewEncoder(0)
			e.PutBytes(data)
			if e.Len() != tt.wantLen {
				t.Fatalf("PutBytes(%d) length = %d, want %d", tt.size, e.Len(), tt.wantLen)
			}

			d := NewDecoder(e.Buf())
			got := d.Bytes()
			if err := d.Err(); err != nil {
				t.Fatalf("Bytes() error = %v", err)
			}
			if !bytes.Equal(got, data) {
				t.Errorf("Bytes() returned %d bytes, want %d", len(got), tt.size)
			}
			if d.Consumed() != tt.wantLen {
				t.Errorf("Consumed() = %d, want %d", d.Consumed(), tt.wantLen)
			}
		})
	}
}

func TestReqPQMultiWireFormat(t *testing.T) {
	var nonce Int128
	for i := range nonce {
		nonce[i] = byte(i)
	}
	got := Marshal(&ReqPQMulti{Nonce: nonce})

	want := append([]byte{0xf1, 0x8e, 0x7e, 0xbe}, nonce[:]...)
	if !bytes.Equal(got, want) {
		t.Errorf("Marshal(req_pq_multi) = %x, want %x", got, want)
	}
}

func TestDecoderStickyError(t *testing.T) {
	d := NewDecoder([]byte{1, 2, 3})
	if v := d.Long(); v != 0 {
		t.Errorf("Long() on short input = %d, want 0", v)
	}
	if !errors.Is(d.Err(), ErrUnexpectedEOF) {
		t.Fatalf("Err() = %v, want ErrUnexpectedEOF", d.Err())
	}
	d.Int()
	if !errors.Is(d.Err(), ErrUnexpectedEOF) {
		t.Error("first error was not kept")
	}
}

func TestDecoderExpectID(t *testing.T) {
	e := NewEncoder(4)
	e.PutID(PongID)

	d := NewDecoder(e.Buf())
	d.ExpectID(PingID)
	if !errors.Is(d.Err(), ErrUnexpectedType) {
		t.Errorf("ExpectID() error = %v, want ErrUnexpectedType", d.Err())
	}
}

func TestDecodeResPQ(t *testing.T) {
	in := &ResPQ{
		Nonce:        Int128{1},
		ServerNonce:  Int128{2},
		PQ:           []byte{0x17, 0xed, 0x48, 0x94, 0x1a, 0x08, 0xf9, 0x81},
		Fingerprints: []uint64{0xc3b42b026ce86b21, 0x0bc35f3509f7b7a5},
	}

	out, err := DecodeAs[*ResPQ](Marshal(in))
	if err != nil {
		t.Fatalf("DecodeAs() error = %v", err)
	}
	if out.Nonce != in.Nonce || out.ServerNonce != in.ServerNonce {
		t.Error("nonces mismatch")
	}
	if !bytes.Equal(out.PQ, in.PQ) {
		t.Errorf("PQ = %x, want %x", out.PQ, in.PQ)
	}
	if len(out.Fingerprints) != 2 || out.Fingerprints[0] != in.Fingerprints[0] || out.Fingerprints[1] != in.Fingerprints[1] {
		t.Errorf("Fingerprints = %x, want %x", out.Fingerprints, in.Fingerprints)
	}
}

func TestPQInnerDataVariants(t *testing.T) {
	inner := &PQInnerData{PQ: []byte{1}, P: []byte{2}, Q: []byte{3}, DC: 2}
	if inner.TypeID() != PQInnerDataDCID {
		t.Errorf("TypeID() = %08x, want p_q_inner_data_dc", inner.TypeID())
	}

	inner.ExpiresIn = 86400
	if inner.TypeID() != PQInnerDataTempDCID {
		t.Errorf("TypeID() = %08x, want p_q_inner_data_temp_dc", inner.TypeID())
	}

	out, err := DecodeAs[*PQInnerData](Marshal(inner))
	if err != nil {
		t.Fatalf("DecodeAs() error = %v", err)
	}
	if out.ExpiresIn != 86400 || out.DC != 2 {
		t.Errorf("decoded ExpiresIn = %d, DC = %d", out.ExpiresIn, out.DC)
	}
}

func TestDecodeDhGenKinds(t *testing.T) {
	for _, kind := range []DhGenKind{DhGenOk, DhGenRetry, DhGenFail} {
		t.Run(kind.String(), func(t *testing.T) {
			obj, err := Decode(Marshal(&DhGen{Kind: kind, NewNonceHash: Int128{byte(kind)}}))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			gen, ok := obj.(*DhGen)
			if !ok {
				t.Fatalf("Decode() = %T, want *DhGen", obj)
			}
			if gen.Kind != kind {
				t.Errorf("Kind = %v, want %v", gen.Kind, kind)
			}
		})
	}
}

func TestDecodeUnknownConstructor(t *testing.T) {
	data := []byte{0xef, 0xbe, 0xad, 0xde, 1, 2, 3, 4}
	obj, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	raw, ok := obj.(*Raw)
	if !ok {
		t.Fatalf("Decode() = %T, want *Raw", obj)
	}
	if raw.ID != 0xdeadbeef || !bytes.Equal(raw.Data, data) {
		t.Errorf("Raw = {%08x %x}", raw.ID, raw.Data)
	}
	if !bytes.Equal(Marshal(raw), data) {
		t.Error("Raw does not re-encode to its input")
	}
}

func TestDecodeAsWrongType(t *testing.T) {
	_, err := DecodeAs[*ResPQ](Marshal(&Ping{PingID: 1}))
	if !errors.Is(err, ErrUnexpectedType) {
		t.Errorf("DecodeAs() error = %v, want ErrUnexpectedType", err)
	}
}
