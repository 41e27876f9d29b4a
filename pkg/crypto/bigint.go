package crypto

import "math/big"

// BytesToInt reads b as an unsigned big-endian integer
func BytesToInt(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// IntToBytes writes x as big-endian, left-padded with zeros to size bytes.
// A size of 0 yields the minimal encoding. Values wider than size are truncated
// to their low-order bytes.
func IntToBytes(x *big.Int, size int) []byte {
	raw := x.Bytes()
	if size <= 0 {
		return raw
	}
	if len(raw) >= size {
		return raw[len(raw)-size:]
	}
	out := make([]byte, size)
	copy(out[size-len(raw):], raw)
	return out
}

// Uint64ToBytes encodes v big-endian without leading zeros
func Uint64ToBytes(v uint64) []byte {
	return new(big.Int).SetUint64(v).Bytes()
}
