package session

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/zentalk-mtproto/pkg/crypto"
	"github.com/ZentaChain/zentalk-mtproto/pkg/protocol"
	"github.com/ZentaChain/zentalk-mtproto/pkg/tl"
)

func testKey(t *testing.T, fill byte) crypto.AuthKey {
	t.Helper()
	b := make([]byte, crypto.AuthKeySize)
	for i := range b {
		b[i] = byte(i) ^ fill
	}
	key, err := crypto.NewAuthKey(b)
	require.NoError(t, err)
	return key
}

// call is a content-related request the framer knows nothing about
func call() tl.Object {
	return tl.NewRaw([]byte{0x78, 0x56, 0x34, 0x12, 1, 0, 0, 0})
}

// captureWriter hands written frames to the test
type captureWriter struct {
	frames chan []byte
	err    error
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{frames: make(chan []byte, 16)}
}

func (w *captureWriter) WriteFrame(_ context.Context, frame []byte) error {
	if w.err != nil {
		return w.err
	}
	w.frames <- frame
	return nil
}

func (w *captureWriter) next(t *testing.T, key crypto.AuthKey) *Envelope {
	t.Helper()
	select {
	case frame := <-w.frames:
		env, err := Open(key, crypto.Client, frame)
		require.NoError(t, err)
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("no frame written")
		return nil
	}
}

// fakeServer seals frames the way the remote side does
type fakeServer struct {
	mu     sync.Mutex
	key    crypto.AuthKey
	state  *State
	lastID int64
}

func (s *fakeServer) msgID(offset time.Duration) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := int64(protocol.GenerateMessageID(time.Now().Add(offset), 0)) | 1
	if id <= s.lastID {
		id = s.lastID + 4
	}
	s.lastID = id
	return id
}

func (s *fakeServer) frame(t *testing.T, msgID int64, seqNo int32, obj tl.Object) []byte {
	t.Helper()
	h := protocol.InnerHeader{
		Salt:      s.state.Salt(),
		SessionID: s.state.SessionID(),
		MessageID: protocol.MessageID(msgID),
		SeqNo:     seqNo,
	}
	frame, err := Seal(s.key, crypto.Server, h, tl.Marshal(obj), rand.Reader)
	require.NoError(t, err)
	return frame
}

// send seals obj with a fresh content-related server message id
func (s *fakeServer) send(t *testing.T, obj tl.Object) []byte {
	return s.frame(t, s.msgID(0), 1, obj)
}

func newTestFramer(t *testing.T, opts Options) (*EncryptedFramer, *captureWriter, *fakeServer) {
	t.Helper()
	key := testKey(t, 0)
	state := NewState(0x1111, 0)
	w := newCaptureWriter()
	f := NewEncryptedFramer(key, state, w, opts)
	t.Cleanup(func() { f.Close(nil) })
	return f, w, &fakeServer{key: key, state: state}
}

func reasonOf(err error) string {
	var ierr *IntegrityError
	if errors.As(err, &ierr) {
		return ierr.Reason
	}
	return ""
}
