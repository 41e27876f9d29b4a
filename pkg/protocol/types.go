package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/ZentaChain/zentalk-mtproto/pkg/tl"
)

// Frame sizes
const (
	AuthKeyIDSize = 8
	MsgKeySize    = 16

	// Plain frame header: auth key id, message id, length
	PlainHeaderSize = 20

	// Encrypted frame header: auth key id, msg key
	EncryptedHeaderSize = AuthKeyIDSize + MsgKeySize

	// Decrypted payload header: salt, session id, message id, seq no, length
	InnerHeaderSize = 32

	// Largest body accepted in either frame kind
	MaxBodySize = 1 << 24
)

// Accepted skew of incoming message ids against server time
const (
	MaxPastSkew   = 300 * time.Second
	MaxFutureSkew = 30 * time.Second
)

// MessageID is a 64-bit message identifier
type MessageID int64

// Seconds returns the unix time encoded in the upper 32 bits
func (id MessageID) Seconds() int64 {
	return int64(id) >> 32
}

// Time returns the encoded time
func (id MessageID) Time() time.Time {
	return time.Unix(id.Seconds(), 0)
}

// FromServer reports whether the id has the shape of a server message id
func (id MessageID) FromServer() bool {
	return id&1 == 1
}

// FromClient reports whether the id has the shape of a client message id
func (id MessageID) FromClient() bool {
	return id&3 == 0
}

// GenerateMessageID builds a client message id for now shifted by offset
// seconds. Bits 2 to 19 below the millisecond part are random and the
// result is divisible by 4. Callers that need strict monotonicity keep the
// last id themselves.
func GenerateMessageID(now time.Time, offset int64) MessageID {
	sec := now.Unix() + offset
	millis := int64(now.Nanosecond() / int(time.Millisecond))

	var b [4]byte
	_, _ = rand.Read(b[:])
	r := int64(binary.LittleEndian.Uint32(b[:]) & 0x3ffff)

	return MessageID(sec<<32 | millis<<20 | r<<2)
}

// InWindow reports whether id lies within the accepted skew of serverTime
func (id MessageID) InWindow(serverTime time.Time) bool {
	s := id.Seconds()
	now := serverTime.Unix()
	return s > now-int64(MaxPastSkew/time.Second) && s < now+int64(MaxFutureSkew/time.Second)
}

// IsContentRelated reports whether a message of the given constructor
// requires acknowledgement and takes an odd sequence number
func IsContentRelated(typeID uint32) bool {
	switch typeID {
	case tl.MsgsAckID, tl.PingID, tl.PingDelayDisconnectID, tl.MsgContainerID,
		tl.MsgsStateReqID, tl.MsgResendReqID:
		return false
	default:
		return true
	}
}

// SeqNo computes the sequence number of the next message from the counter
// of content-related messages sent so far. It returns the new counter.
func SeqNo(counter int32, contentRelated bool) (seq int32, next int32) {
	if contentRelated {
		return counter*2 + 1, counter + 1
	}
	return counter * 2, counter
}
