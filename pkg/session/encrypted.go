package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ZentaChain/zentalk-mtproto/pkg/crypto"
	"github.com/ZentaChain/zentalk-mtproto/pkg/metrics"
	"github.com/ZentaChain/zentalk-mtproto/pkg/protocol"
	"github.com/ZentaChain/zentalk-mtproto/pkg/tl"
)

// EncryptedFramer sends and receives frames protected by an auth key and
// routes service messages. Send and Receive may run concurrently.
type EncryptedFramer struct {
	key     crypto.AuthKey
	state   *State
	w       FrameWriter
	pending *PendingTable

	random io.Reader
	onPush func(tl.Object)
	log    logrus.FieldLogger

	// serializes id assignment with the write so ids leave in order
	sendMu sync.Mutex

	ackMu sync.Mutex
	acks  []int64

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewEncryptedFramer creates a framer for key over w
func NewEncryptedFramer(key crypto.AuthKey, state *State, w FrameWriter, opts Options) *EncryptedFramer {
	ctx, cancel := context.WithCancel(context.Background())
	f := &EncryptedFramer{
		key:     key,
		state:   state,
		w:       w,
		pending: NewPendingTable(),
		random:  opts.Rand,
		onPush:  opts.OnPush,
		log:     opts.logger().WithField("key_id", fmt.Sprintf("%016x", key.ID())),
		ctx:     ctx,
		cancel:  cancel,
	}
	if f.random == nil {
		f.random = rand.Reader
	}
	return f
}

// State returns the session state
func (f *EncryptedFramer) State() *State {
	return f.state
}

// PendingCalls returns the number of calls waiting for a response
func (f *EncryptedFramer) PendingCalls() int {
	return f.pending.Len()
}

// Send encrypts and writes req. The call is registered before the frame
// leaves, so a fast response always finds it. msgs_ack expects no answer
// and comes back already resolved.
func (f *EncryptedFramer) Send(ctx context.Context, req tl.Object) (*Pending, error) {
	if f.ctx.Err() != nil {
		return nil, ErrClosed
	}

	f.sendMu.Lock()
	defer f.sendMu.Unlock()

	msgID := f.state.NextMessageID()
	p := newPending(msgID, req)
	if req.TypeID() == tl.MsgsAckID {
		p.resolve(nil, nil)
	} else {
		f.pending.Add(p)
	}

	if err := f.write(ctx, req, msgID); err != nil {
		f.pending.Remove(p)
		p.resolve(nil, err)
		return nil, err
	}
	return p, nil
}

// Invoke sends req and waits for its response
func (f *EncryptedFramer) Invoke(ctx context.Context, req tl.Object) (tl.Object, error) {
	p, err := f.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	res, err := p.Wait(ctx)
	if ctx.Err() != nil {
		f.pending.Remove(p)
	}
	return res, err
}

func (f *EncryptedFramer) write(ctx context.Context, req tl.Object, msgID int64) error {
	h := protocol.InnerHeader{
		Salt:      f.state.Salt(),
		SessionID: f.state.SessionID(),
		MessageID: protocol.MessageID(msgID),
		SeqNo:     f.state.NextSeqNo(protocol.IsContentRelated(req.TypeID())),
	}
	frame, err := Seal(f.key, crypto.Client, h, tl.Marshal(req), f.random)
	if err != nil {
		return err
	}
	if err := f.w.WriteFrame(ctx, frame); err != nil {
		return fmt.Errorf("failed to send encrypted frame: %w", err)
	}

	metrics.FramesTotal.WithLabelValues(metrics.DirectionOut, metrics.ModeEncrypted).Inc()
	f.log.WithFields(logrus.Fields{
		"msg_id": fmt.Sprintf("%016x", msgID),
		"seq_no": h.SeqNo,
		"type":   fmt.Sprintf("%08x", req.TypeID()),
	}).Debug("Sent encrypted frame")
	return nil
}

// Receive decrypts and validates frame, routes its content and returns the
// decoded top-level object
func (f *EncryptedFramer) Receive(frame []byte) (tl.Object, error) {
	env, err := Open(f.key, crypto.Server, frame)
	if err != nil {
		return nil, err
	}
	if env.SessionID != f.state.SessionID() {
		return nil, integrity(ReasonSessionID, "got %016x", env.SessionID)
	}
	msgID := int64(env.MessageID)
	if err := f.state.CheckInbound(msgID); err != nil {
		return nil, err
	}
	f.state.UpdateTimeOffset(env.MessageID.Seconds())
	metrics.FramesTotal.WithLabelValues(metrics.DirectionIn, metrics.ModeEncrypted).Inc()

	obj, err := tl.Decode(env.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode message %016x: %w", msgID, err)
	}
	if env.SeqNo&1 == 1 {
		f.queueAck(msgID)
	}

	f.route(obj, msgID)
	return obj, nil
}

func (f *EncryptedFramer) route(obj tl.Object, msgID int64) {
	log := f.log.WithField("msg_id", fmt.Sprintf("%016x", msgID))

	switch o := obj.(type) {
	case *tl.MsgContainer:
		metrics.ServiceMessages.WithLabelValues("msg_container").Inc()
		for _, m := range o.Messages {
			if err := f.state.CheckInbound(m.MsgID); err != nil {
				log.WithError(err).Warn("Dropping contained message")
				continue
			}
			if m.SeqNo&1 == 1 {
				f.queueAck(m.MsgID)
			}
			f.route(m.Body, m.MsgID)
		}

	case *tl.GzipPacked:
		inner, err := o.Unpack()
		if err != nil {
			log.WithError(err).Warn("Dropping undecodable gzip_packed")
			return
		}
		f.route(inner, msgID)

	case *tl.RPCResult:
		metrics.ServiceMessages.WithLabelValues("rpc_result").Inc()
		f.resolveResult(o, log)

	case *tl.Pong:
		metrics.ServiceMessages.WithLabelValues("pong").Inc()
		if p, ok := f.pending.Take(o.MsgID); ok {
			p.resolve(o, nil)
			return
		}
		log.WithField("ping_id", o.PingID).Debug("Pong without a pending ping")

	case *tl.NewSessionCreated:
		metrics.ServiceMessages.WithLabelValues("new_session_created").Inc()
		f.state.SetSalt(o.ServerSalt)
		f.state.SetLastMessageID(o.FirstMsgID)
		log.WithField("salt", fmt.Sprintf("%016x", o.ServerSalt)).Info("Server created a new session")

	case *tl.MsgsAck:
		metrics.ServiceMessages.WithLabelValues("msgs_ack").Inc()
		log.WithField("count", len(o.MsgIDs)).Debug("Server acknowledged messages")

	case *tl.BadMsgNotification:
		metrics.ServiceMessages.WithLabelValues("bad_msg_notification").Inc()
		f.handleBadMsg(o, msgID, log)

	default:
		metrics.ServiceMessages.WithLabelValues("push").Inc()
		if f.onPush != nil {
			f.onPush(obj)
			return
		}
		log.WithField("type", fmt.Sprintf("%08x", obj.TypeID())).Debug("Unhandled push")
	}
}

func (f *EncryptedFramer) resolveResult(r *tl.RPCResult, log logrus.FieldLogger) {
	p, ok := f.pending.Take(r.ReqMsgID)
	if !ok {
		log.WithField("req_msg_id", fmt.Sprintf("%016x", r.ReqMsgID)).Warn("rpc_result for unknown request")
		return
	}

	result := r.Result
	if packed, ok := result.(*tl.GzipPacked); ok {
		inner, err := packed.Unpack()
		if err != nil {
			p.resolve(nil, err)
			return
		}
		result = inner
	}

	if e, ok := result.(*tl.RPCError); ok {
		p.resolve(nil, &RPCError{Code: e.Code, Message: e.Message})
		return
	}
	p.resolve(result, nil)
}

func (f *EncryptedFramer) handleBadMsg(n *tl.BadMsgNotification, msgID int64, log logrus.FieldLogger) {
	log = log.WithFields(logrus.Fields{
		"bad_msg_id": fmt.Sprintf("%016x", n.BadMsgID),
		"code":       n.ErrorCode,
	})

	switch {
	case n.NewServerSalt != nil:
		f.state.SetSalt(*n.NewServerSalt)
		log.Warn("Server salt changed, resending")
	case n.ErrorCode == 16 || n.ErrorCode == 17:
		f.state.UpdateTimeOffset(protocol.MessageID(msgID).Seconds())
		log.WithField("time_offset", f.state.TimeOffset()).Warn("Clock skew, resending")
	default:
		if p, ok := f.pending.Take(n.BadMsgID); ok {
			p.resolve(nil, &BadMsgError{Code: n.ErrorCode})
		}
		log.Warn("Server rejected message")
		return
	}

	go f.resend(n.BadMsgID)
}

// resend sends the call registered under oldID again with a fresh message id
func (f *EncryptedFramer) resend(oldID int64) {
	f.sendMu.Lock()
	defer f.sendMu.Unlock()

	msgID := f.state.NextMessageID()
	p, ok := f.pending.Rekey(oldID, msgID)
	if !ok {
		return
	}
	if err := f.write(f.ctx, p.request, msgID); err != nil {
		f.pending.Remove(p)
		p.resolve(nil, err)
	}
}

func (f *EncryptedFramer) queueAck(msgID int64) {
	f.ackMu.Lock()
	f.acks = append(f.acks, msgID)
	f.ackMu.Unlock()
}

// PendingAcks returns how many received messages still need acknowledging
func (f *EncryptedFramer) PendingAcks() int {
	f.ackMu.Lock()
	defer f.ackMu.Unlock()
	return len(f.acks)
}

// FlushAcks sends one msgs_ack for everything received since the last flush
func (f *EncryptedFramer) FlushAcks(ctx context.Context) error {
	f.ackMu.Lock()
	ids := f.acks
	f.acks = nil
	f.ackMu.Unlock()

	if len(ids) == 0 {
		return nil
	}
	if _, err := f.Send(ctx, &tl.MsgsAck{MsgIDs: ids}); err != nil {
		f.ackMu.Lock()
		f.acks = append(ids, f.acks...)
		f.ackMu.Unlock()
		return err
	}
	return nil
}

// Close fails every waiting call. cause, when set, is wrapped into the error
// the waiters see.
func (f *EncryptedFramer) Close(cause error) {
	f.closeOnce.Do(func() {
		f.cancel()
		err := ErrClosed
		if cause != nil {
			err = fmt.Errorf("%w: %v", ErrClosed, cause)
		}
		f.pending.FailAll(err)
	})
}
