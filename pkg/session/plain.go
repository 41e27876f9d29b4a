package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ZentaChain/zentalk-mtproto/pkg/metrics"
	"github.com/ZentaChain/zentalk-mtproto/pkg/protocol"
	"github.com/ZentaChain/zentalk-mtproto/pkg/tl"
)

var ErrNoPendingCall = errors.New("plain response without a pending call")

// PlainFramer sends unencrypted frames. Plain responses carry no request
// id, so they resolve calls in the order the calls were sent.
type PlainFramer struct {
	state *State
	conn  FrameReadWriter
	log   logrus.FieldLogger

	mu    sync.Mutex
	queue []*Pending
}

// NewPlainFramer creates a framer over conn
func NewPlainFramer(state *State, conn FrameReadWriter, opts Options) *PlainFramer {
	return &PlainFramer{
		state: state,
		conn:  conn,
		log:   opts.logger(),
	}
}

func (f *PlainFramer) Send(ctx context.Context, req tl.Object) (*Pending, error) {
	msgID := f.state.NextMessageID()
	p := newPending(msgID, req)

	f.mu.Lock()
	f.queue = append(f.queue, p)
	f.mu.Unlock()

	frame := protocol.EncodePlain(protocol.MessageID(msgID), tl.Marshal(req))
	if err := f.conn.WriteFrame(ctx, frame); err != nil {
		f.drop(p)
		return nil, fmt.Errorf("failed to send plain frame: %w", err)
	}
	metrics.FramesTotal.WithLabelValues(metrics.DirectionOut, metrics.ModePlain).Inc()

	f.log.WithFields(logrus.Fields{
		"msg_id": fmt.Sprintf("%016x", msgID),
		"type":   fmt.Sprintf("%08x", req.TypeID()),
	}).Debug("Sent plain frame")
	return p, nil
}

func (f *PlainFramer) Receive(frame []byte) (tl.Object, error) {
	_, body, err := protocol.DecodePlain(frame)
	if err != nil {
		return nil, err
	}
	metrics.FramesTotal.WithLabelValues(metrics.DirectionIn, metrics.ModePlain).Inc()

	obj, err := tl.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode plain body: %w", err)
	}

	f.mu.Lock()
	if len(f.queue) == 0 {
		f.mu.Unlock()
		return obj, ErrNoPendingCall
	}
	p := f.queue[0]
	f.queue = f.queue[1:]
	f.mu.Unlock()

	p.resolve(obj, nil)
	return obj, nil
}

// Invoke sends req and reads frames until its response arrives
func (f *PlainFramer) Invoke(ctx context.Context, req tl.Object) (tl.Object, error) {
	p, err := f.Send(ctx, req)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case <-p.Done():
			return p.Wait(ctx)
		default:
		}

		frame, err := f.conn.ReadFrame(ctx)
		if err != nil {
			f.drop(p)
			return nil, err
		}
		if _, err := f.Receive(frame); err != nil {
			f.drop(p)
			return nil, err
		}
	}
}

func (f *PlainFramer) drop(p *Pending) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, q := range f.queue {
		if q == p {
			f.queue = append(f.queue[:i], f.queue[i+1:]...)
			return
		}
	}
}
