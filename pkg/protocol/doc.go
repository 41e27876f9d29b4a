// Package protocol defines the framing headers and message identifiers of
// the transport core.
//
// # Frame Layouts
//
// All integers are little-endian.
//
// Plain frames carry the key exchange before an auth key exists:
//   - AuthKeyID (8 bytes): always zero
//   - MessageID (8 bytes)
//   - Length (4 bytes): body length
//   - Body
//
// Encrypted frames carry everything after the key exchange:
//   - AuthKeyID (8 bytes): last 8 bytes of SHA1(auth_key)
//   - MsgKey (16 bytes)
//   - AES-256-IGE encrypted payload
//
// The decrypted payload starts with a 32-byte inner header:
//   - Salt (8 bytes)
//   - SessionID (8 bytes)
//   - MessageID (8 bytes)
//   - SeqNo (4 bytes)
//   - Length (4 bytes)
//
// followed by the body and 12 to 1024 bytes of random padding.
//
// # Message Identifiers
//
// A message id is the sender's estimate of server time: the upper 32 bits
// are unix seconds, the lower bits a sub-second fraction. Ids sent by the
// client are divisible by 4; ids sent by the server are odd.
package protocol
