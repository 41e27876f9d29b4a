package session

import (
	"context"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/zentalk-mtproto/pkg/crypto"
	"github.com/ZentaChain/zentalk-mtproto/pkg/protocol"
	"github.com/ZentaChain/zentalk-mtproto/pkg/tl"
)

func TestInvokeResolvesRPCResult(t *testing.T) {
	packed, err := tl.Pack(&tl.Pong{MsgID: 5, PingID: 6})
	require.NoError(t, err)

	tests := []struct {
		name    string
		result  tl.Object
		want    tl.Object
		wantErr error
	}{
		{
			name:   "plain result",
			result: &tl.Pong{MsgID: 1, PingID: 2},
			want:   &tl.Pong{MsgID: 1, PingID: 2},
		},
		{
			name:   "gzip packed result",
			result: packed,
			want:   &tl.Pong{MsgID: 5, PingID: 6},
		},
		{
			name:    "rpc error",
			result:  &tl.RPCError{Code: 420, Message: "FLOOD_WAIT_3"},
			wantErr: &RPCError{Code: 420, Message: "FLOOD_WAIT_3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, w, srv := newTestFramer(t, Options{})
			ctx := context.Background()

			p, err := f.Send(ctx, call())
			require.NoError(t, err)
			env := w.next(t, f.key)
			assert.Equal(t, p.MsgID(), int64(env.MessageID))
			assert.Equal(t, int32(1), env.SeqNo)
			assert.Equal(t, 1, f.PendingCalls())

			_, err = f.Receive(srv.send(t, &tl.RPCResult{ReqMsgID: int64(env.MessageID), Result: tt.result}))
			require.NoError(t, err)

			got, err := p.Wait(ctx)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.Zero(t, f.PendingCalls())
		})
	}
}

func TestInvokeWaitsForResponse(t *testing.T) {
	f, w, srv := newTestFramer(t, Options{})

	go func() {
		env, err := Open(f.key, crypto.Client, <-w.frames)
		if err != nil {
			return
		}
		h := protocol.InnerHeader{
			Salt:      srv.state.Salt(),
			SessionID: srv.state.SessionID(),
			MessageID: protocol.MessageID(srv.msgID(0)),
			SeqNo:     1,
		}
		body := tl.Marshal(&tl.RPCResult{ReqMsgID: int64(env.MessageID), Result: &tl.Pong{PingID: 42}})
		if frame, err := Seal(srv.key, crypto.Server, h, body, rand.Reader); err == nil {
			f.Receive(frame)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := f.Invoke(ctx, call())
	require.NoError(t, err)
	assert.Equal(t, &tl.Pong{PingID: 42}, got)
}

func TestPongResolvesPing(t *testing.T) {
	f, w, srv := newTestFramer(t, Options{})
	ctx := context.Background()

	p, err := f.Send(ctx, &tl.Ping{PingID: 99})
	require.NoError(t, err)
	env := w.next(t, f.key)
	assert.Zero(t, env.SeqNo%2, "ping is not content related")

	_, err = f.Receive(srv.send(t, &tl.Pong{MsgID: int64(env.MessageID), PingID: 99}))
	require.NoError(t, err)

	got, err := p.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(99), got.(*tl.Pong).PingID)
}

func TestContainerRoutesAndAcks(t *testing.T) {
	f, w, srv := newTestFramer(t, Options{})
	ctx := context.Background()

	p1, err := f.Send(ctx, call())
	require.NoError(t, err)
	p2, err := f.Send(ctx, call())
	require.NoError(t, err)
	id1 := int64(w.next(t, f.key).MessageID)
	id2 := int64(w.next(t, f.key).MessageID)

	inner1, inner2 := srv.msgID(0), srv.msgID(0)
	container := &tl.MsgContainer{Messages: []tl.Message{
		{MsgID: inner1, SeqNo: 1, Body: &tl.RPCResult{ReqMsgID: id1, Result: &tl.Pong{PingID: 1}}},
		{MsgID: inner2, SeqNo: 3, Body: &tl.RPCResult{ReqMsgID: id2, Result: &tl.Pong{PingID: 2}}},
	}}
	_, err = f.Receive(srv.frame(t, srv.msgID(0), 4, container))
	require.NoError(t, err)

	r1, err := p1.Wait(ctx)
	require.NoError(t, err)
	r2, err := p2.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r1.(*tl.Pong).PingID)
	assert.Equal(t, int64(2), r2.(*tl.Pong).PingID)

	// the even container itself needs no ack, its content does
	assert.Equal(t, 2, f.PendingAcks())
	require.NoError(t, f.FlushAcks(ctx))
	assert.Zero(t, f.PendingAcks())

	env := w.next(t, f.key)
	assert.Zero(t, env.SeqNo%2)
	ack, err := tl.DecodeAs[*tl.MsgsAck](env.Body)
	require.NoError(t, err)
	assert.Equal(t, []int64{inner1, inner2}, ack.MsgIDs)
	assert.Zero(t, f.PendingCalls(), "msgs_ack expects no answer")

	require.NoError(t, f.FlushAcks(ctx))
	assert.Empty(t, w.frames, "nothing to acknowledge")
}

func TestContainerDropsInvalidInnerIDs(t *testing.T) {
	f, w, srv := newTestFramer(t, Options{})
	ctx := context.Background()

	p1, err := f.Send(ctx, call())
	require.NoError(t, err)
	_, err = f.Send(ctx, call())
	require.NoError(t, err)
	id1 := int64(w.next(t, f.key).MessageID)
	id2 := int64(w.next(t, f.key).MessageID)

	valid := srv.msgID(0)
	even := srv.msgID(0) - 1
	container := &tl.MsgContainer{Messages: []tl.Message{
		{MsgID: valid, SeqNo: 1, Body: &tl.RPCResult{ReqMsgID: id1, Result: &tl.Pong{PingID: 1}}},
		{MsgID: even, SeqNo: 3, Body: &tl.RPCResult{ReqMsgID: id2, Result: &tl.Pong{PingID: 2}}},
		{MsgID: valid, SeqNo: 5, Body: &tl.RPCResult{ReqMsgID: id2, Result: &tl.Pong{PingID: 3}}},
	}}
	_, err = f.Receive(srv.frame(t, srv.msgID(0), 6, container))
	require.NoError(t, err)

	r1, err := p1.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r1.(*tl.Pong).PingID)

	assert.Equal(t, 1, f.PendingCalls(), "even and repeated ids are not routed")
	assert.Equal(t, 1, f.PendingAcks(), "even and repeated ids are not acknowledged")
}

func TestFlushAcksRequeuesOnFailure(t *testing.T) {
	f, w, srv := newTestFramer(t, Options{})

	_, err := f.Receive(srv.send(t, &tl.Pong{MsgID: 1}))
	require.NoError(t, err)
	require.Equal(t, 1, f.PendingAcks())

	w.err = errors.New("broken pipe")
	assert.Error(t, f.FlushAcks(context.Background()))
	assert.Equal(t, 1, f.PendingAcks())
}

func TestNewSessionCreated(t *testing.T) {
	f, _, srv := newTestFramer(t, Options{})

	first := int64(protocol.GenerateMessageID(time.Now().Add(10*time.Second), 0))
	_, err := f.Receive(srv.send(t, &tl.NewSessionCreated{FirstMsgID: first, UniqueID: 3, ServerSalt: 0x7777}))
	require.NoError(t, err)

	assert.Equal(t, int64(0x7777), f.State().Salt())
	assert.Greater(t, f.State().NextMessageID(), first)
}

func TestBadServerSaltResends(t *testing.T) {
	f, w, srv := newTestFramer(t, Options{})
	ctx := context.Background()

	p, err := f.Send(ctx, call())
	require.NoError(t, err)
	first := w.next(t, f.key)

	salt := int64(0x5a17)
	_, err = f.Receive(srv.send(t, &tl.BadMsgNotification{
		BadMsgID:      int64(first.MessageID),
		BadMsgSeqNo:   first.SeqNo,
		ErrorCode:     48,
		NewServerSalt: &salt,
	}))
	require.NoError(t, err)

	again := w.next(t, f.key)
	assert.Equal(t, salt, again.Salt)
	assert.Greater(t, int64(again.MessageID), int64(first.MessageID))
	assert.Equal(t, first.Body, again.Body)
	assert.Equal(t, int64(again.MessageID), p.MsgID())

	_, err = f.Receive(srv.send(t, &tl.RPCResult{ReqMsgID: int64(again.MessageID), Result: &tl.Pong{}}))
	require.NoError(t, err)
	_, err = p.Wait(ctx)
	assert.NoError(t, err)
}

func TestBadMsgTimeResends(t *testing.T) {
	f, w, srv := newTestFramer(t, Options{})
	ctx := context.Background()

	p, err := f.Send(ctx, call())
	require.NoError(t, err)
	first := w.next(t, f.key)

	skewed := srv.msgID(20 * time.Second)
	_, err = f.Receive(srv.frame(t, skewed, 1, &tl.BadMsgNotification{
		BadMsgID:  int64(first.MessageID),
		ErrorCode: 16,
	}))
	require.NoError(t, err)

	assert.InDelta(t, 20, f.State().TimeOffset(), 1)
	again := w.next(t, f.key)
	assert.InDelta(t, time.Now().Unix()+20, again.MessageID.Seconds(), 1)
	assert.Equal(t, int64(again.MessageID), p.MsgID())
}

func TestBadMsgFailsCall(t *testing.T) {
	f, w, srv := newTestFramer(t, Options{})
	ctx := context.Background()

	p, err := f.Send(ctx, call())
	require.NoError(t, err)
	first := w.next(t, f.key)

	_, err = f.Receive(srv.send(t, &tl.BadMsgNotification{BadMsgID: int64(first.MessageID), ErrorCode: 35}))
	require.NoError(t, err)

	_, err = p.Wait(ctx)
	var bad *BadMsgError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, int32(35), bad.Code)
	assert.Contains(t, err.Error(), "odd msg_seqno expected")
}

func TestPushGoesToHandler(t *testing.T) {
	pushed := make(chan tl.Object, 1)
	f, _, srv := newTestFramer(t, Options{OnPush: func(obj tl.Object) { pushed <- obj }})

	update := tl.NewRaw([]byte{0x01, 0x02, 0x03, 0x04, 9, 9, 9, 9})
	_, err := f.Receive(srv.send(t, update))
	require.NoError(t, err)

	select {
	case obj := <-pushed:
		assert.Equal(t, uint32(0x04030201), obj.TypeID())
	default:
		t.Fatal("push handler not called")
	}
}

func TestReceiveRejects(t *testing.T) {
	f, _, srv := newTestFramer(t, Options{})

	t.Run("session id", func(t *testing.T) {
		other := &fakeServer{key: srv.key, state: NewState(0x1111, 0)}
		_, err := f.Receive(other.send(t, &tl.Pong{}))
		assert.Equal(t, ReasonSessionID, reasonOf(err))
	})

	t.Run("even message id", func(t *testing.T) {
		_, err := f.Receive(srv.frame(t, srv.msgID(0)+1, 1, &tl.Pong{}))
		assert.Equal(t, ReasonMsgIDParity, reasonOf(err))
	})

	t.Run("too old", func(t *testing.T) {
		old := int64(protocol.GenerateMessageID(time.Now().Add(-10*time.Minute), 0)) | 1
		_, err := f.Receive(srv.frame(t, old, 1, &tl.Pong{}))
		assert.Equal(t, ReasonMsgIDTime, reasonOf(err))
	})

	t.Run("too new", func(t *testing.T) {
		future := int64(protocol.GenerateMessageID(time.Now().Add(time.Minute), 0)) | 1
		_, err := f.Receive(srv.frame(t, future, 1, &tl.Pong{}))
		assert.Equal(t, ReasonMsgIDTime, reasonOf(err))
	})

	t.Run("duplicate", func(t *testing.T) {
		frame := srv.send(t, &tl.Pong{})
		_, err := f.Receive(frame)
		require.NoError(t, err)
		_, err = f.Receive(frame)
		assert.Equal(t, ReasonMsgIDDup, reasonOf(err))
	})
}

func TestUnknownResultIsDropped(t *testing.T) {
	f, _, srv := newTestFramer(t, Options{})

	obj, err := f.Receive(srv.send(t, &tl.RPCResult{ReqMsgID: 12345, Result: &tl.Pong{}}))
	require.NoError(t, err)
	assert.IsType(t, &tl.RPCResult{}, obj)
}

func TestInvokeContextCancel(t *testing.T) {
	f, _, _ := newTestFramer(t, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Invoke(ctx, call())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, f.PendingCalls())
}

func TestSendWriteError(t *testing.T) {
	f, w, _ := newTestFramer(t, Options{})
	w.err = errors.New("connection reset")

	_, err := f.Send(context.Background(), call())
	assert.ErrorContains(t, err, "connection reset")
	assert.Zero(t, f.PendingCalls())
}

func TestCloseFailsPending(t *testing.T) {
	f, _, _ := newTestFramer(t, Options{})
	ctx := context.Background()

	p, err := f.Send(ctx, call())
	require.NoError(t, err)

	f.Close(errors.New("read: EOF"))

	_, err = p.Wait(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorContains(t, err, "EOF")

	_, err = f.Send(ctx, call())
	assert.ErrorIs(t, err, ErrClosed)
}
