package session

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/ZentaChain/zentalk-mtproto/pkg/protocol"
)

// InboundRegisterSize is how many recent server message ids are remembered
const InboundRegisterSize = 128

// State is the mutable bookkeeping of one session: salt, session id,
// sequence counter, time offset and message id history.
type State struct {
	mu sync.Mutex

	salt       int64
	sessionID  int64
	seq        int32
	timeOffset int64
	lastMsgID  int64
	inbound    inboundRegister

	clock  func() time.Time
	random io.Reader
}

// StateOption customizes a State
type StateOption func(*State)

// WithClock replaces time.Now
func WithClock(clock func() time.Time) StateOption {
	return func(s *State) { s.clock = clock }
}

// WithRandom replaces crypto/rand
func WithRandom(r io.Reader) StateOption {
	return func(s *State) { s.random = r }
}

// NewState creates session state seeded from a key exchange
func NewState(salt, timeOffset int64, opts ...StateOption) *State {
	s := &State{
		salt:       salt,
		timeOffset: timeOffset,
		clock:      time.Now,
		random:     rand.Reader,
		inbound:    inboundRegister{size: InboundRegisterSize},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessionID = s.randomInt64()
	return s
}

// randomInt64 panics when the random source fails
func (s *State) randomInt64() int64 {
	var b [8]byte
	if _, err := io.ReadFull(s.random, b[:]); err != nil {
		panic(fmt.Sprintf("session: failed to read random session id: %v", err))
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

func (s *State) Salt() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.salt
}

func (s *State) SetSalt(salt int64) {
	s.mu.Lock()
	s.salt = salt
	s.mu.Unlock()
}

func (s *State) SessionID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// TimeOffset returns server time minus local time in seconds
func (s *State) TimeOffset() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeOffset
}

// ServerTime returns the current estimate of server time
func (s *State) ServerTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock().Add(time.Duration(s.timeOffset) * time.Second)
}

// UpdateTimeOffset records a server timestamp. Shifts of more than 3
// seconds replace the offset and restart message id generation.
func (s *State) UpdateTimeOffset(serverTime int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := serverTime - s.clock().Unix()
	diff := updated - s.timeOffset
	if diff > 3 || diff < -3 {
		s.timeOffset = updated
		s.lastMsgID = 0
		return true
	}
	return false
}

// NextMessageID returns a strictly increasing client message id
func (s *State) NextMessageID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := int64(protocol.GenerateMessageID(s.clock(), s.timeOffset))
	if s.lastMsgID >= id {
		id = (s.lastMsgID + 4) &^ 3
	}
	s.lastMsgID = id
	return id
}

// SetLastMessageID makes later ids greater than id
func (s *State) SetLastMessageID(id int64) {
	s.mu.Lock()
	if id > s.lastMsgID {
		s.lastMsgID = id
	}
	s.mu.Unlock()
}

// NextSeqNo returns the sequence number for the next outgoing message
func (s *State) NextSeqNo(contentRelated bool) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, next := protocol.SeqNo(s.seq, contentRelated)
	s.seq = next
	return seq
}

// ResetSession starts a new session under the same key
func (s *State) ResetSession() {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.sessionID
	for s.sessionID == old {
		s.sessionID = s.randomInt64()
	}
	s.seq = 0
	s.inbound.clear()
}

// CheckInbound validates a server message id and remembers it
func (s *State) CheckInbound(msgID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := protocol.MessageID(msgID)
	if !id.FromServer() {
		return integrity(ReasonMsgIDParity, "%016x is even", msgID)
	}
	serverTime := s.clock().Add(time.Duration(s.timeOffset) * time.Second)
	if !id.InWindow(serverTime) {
		return integrity(ReasonMsgIDTime, "%016x is %ds off server time", msgID, id.Seconds()-serverTime.Unix())
	}
	if !s.inbound.check(msgID) {
		return integrity(ReasonMsgIDDup, "%016x already received", msgID)
	}
	return nil
}

// Snapshot is a copy of the state for reporting
type Snapshot struct {
	Salt       int64 `json:"salt"`
	SessionID  int64 `json:"session_id"`
	SeqNo      int32 `json:"seq_no"`
	TimeOffset int64 `json:"time_offset"`
	LastMsgID  int64 `json:"last_msg_id"`
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Salt:       s.salt,
		SessionID:  s.sessionID,
		SeqNo:      s.seq,
		TimeOffset: s.timeOffset,
		LastMsgID:  s.lastMsgID,
	}
}

// inboundRegister is a bounded ordered set of received message ids.
// Once full, ids at or below the oldest remembered one are refused.
type inboundRegister struct {
	size int
	ids  []int64
}

func (r *inboundRegister) check(id int64) bool {
	n := len(r.ids)
	if n == r.size && id <= r.ids[0] {
		return false
	}
	if n == 0 || id > r.ids[n-1] {
		r.ids = append(r.ids, id)
	} else {
		i, found := slices.BinarySearch(r.ids, id)
		if found {
			return false
		}
		r.ids = slices.Insert(r.ids, i, id)
	}
	if len(r.ids) > r.size {
		r.ids = slices.Delete(r.ids, 0, 1)
	}
	return true
}

func (r *inboundRegister) clear() {
	r.ids = r.ids[:0]
}
