package session

import (
	"context"
	"sync"
	"time"

	"github.com/ZentaChain/zentalk-mtproto/pkg/metrics"
	"github.com/ZentaChain/zentalk-mtproto/pkg/tl"
)

// Pending is the response slot of a sent call. It resolves exactly once.
type Pending struct {
	mu    sync.Mutex
	msgID int64

	request tl.Object
	sent    time.Time

	once   sync.Once
	done   chan struct{}
	result tl.Object
	err    error
}

func newPending(msgID int64, request tl.Object) *Pending {
	return &Pending{
		msgID:   msgID,
		request: request,
		sent:    time.Now(),
		done:    make(chan struct{}),
	}
}

// MsgID returns the message id the call currently travels under
func (p *Pending) MsgID() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.msgID
}

func (p *Pending) setMsgID(id int64) {
	p.mu.Lock()
	p.msgID = id
	p.mu.Unlock()
}

// Done is closed once the call is resolved
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the response arrives or ctx ends
func (p *Pending) Wait(ctx context.Context) (tl.Object, error) {
	select {
	case <-p.done:
		return p.result, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve reports whether this call delivered the outcome
func (p *Pending) resolve(result tl.Object, err error) bool {
	delivered := false
	p.once.Do(func() {
		p.result, p.err = result, err
		close(p.done)
		delivered = true

		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.CallLatency.WithLabelValues(outcome).Observe(time.Since(p.sent).Seconds())
	})
	return delivered
}

// PendingTable maps outgoing message ids to their response slots
type PendingTable struct {
	mu    sync.Mutex
	calls map[int64]*Pending
}

func NewPendingTable() *PendingTable {
	return &PendingTable{calls: make(map[int64]*Pending)}
}

// Add registers p under its message id
func (t *PendingTable) Add(p *Pending) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls[p.MsgID()] = p
	metrics.PendingCalls.Inc()
}

// Take removes and returns the call registered under msgID
func (t *PendingTable) Take(msgID int64) (*Pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.calls[msgID]
	if ok {
		delete(t.calls, msgID)
		metrics.PendingCalls.Dec()
	}
	return p, ok
}

// Remove drops p if it is still registered under its current id
func (t *PendingTable) Remove(p *Pending) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := p.MsgID()
	if t.calls[id] == p {
		delete(t.calls, id)
		metrics.PendingCalls.Dec()
	}
}

// Rekey moves the call under oldID to newID
func (t *PendingTable) Rekey(oldID, newID int64) (*Pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.calls[oldID]
	if !ok {
		return nil, false
	}
	delete(t.calls, oldID)
	p.setMsgID(newID)
	t.calls[newID] = p
	return p, true
}

// Len returns the number of unresolved calls
func (t *PendingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

// FailAll resolves every registered call with err and empties the table
func (t *PendingTable) FailAll(err error) {
	t.mu.Lock()
	calls := t.calls
	t.calls = make(map[int64]*Pending)
	t.mu.Unlock()

	metrics.PendingCalls.Sub(float64(len(calls)))
	for _, p := range calls {
		p.resolve(nil, err)
	}
}
