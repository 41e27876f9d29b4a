// Package transport frames byte payloads over a stream connection using the
// "intermediate" framing: a 0xeeeeeeee tag once per connection, then every
// frame prefixed by its 4-byte little-endian length.
package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ZentaChain/zentalk-mtproto/pkg/metrics"
)

var (
	ErrFrameTooLarge = errors.New("frame too large")
	ErrBadTag        = errors.New("unexpected transport tag")
	ErrClosed        = errors.New("transport closed")
)

// Tag opens every intermediate connection
var Tag = [4]byte{0xee, 0xee, 0xee, 0xee}

// MaxFrameSize bounds a single inbound frame
const MaxFrameSize = 1 << 24

// Transport error codes
const (
	CodeAuthKeyNotFound int32 = -404
	CodeFlood           int32 = -429
	CodeInvalidDC       int32 = -444
)

// CodeError is a transport-level error sent by the server as a 4-byte frame
type CodeError struct {
	Code int32
}

func (e *CodeError) Error() string {
	switch e.Code {
	case CodeAuthKeyNotFound:
		return "transport error -404: auth key not found"
	case CodeFlood:
		return "transport error -429: too many connections"
	case CodeInvalidDC:
		return "transport error -444: invalid dc"
	default:
		return fmt.Sprintf("transport error %d", e.Code)
	}
}

// Conn is a framed connection. Writes and reads are each serialized;
// one reader and any number of writers may use it concurrently.
type Conn struct {
	conn   net.Conn
	server bool

	writeMu sync.Mutex
	tagSent bool

	readMu  sync.Mutex
	tagRead bool

	closeOnce sync.Once
	closed    chan struct{}
}

// NewConn wraps the client side of a connection. The tag goes out with the first frame.
func NewConn(conn net.Conn) *Conn {
	return &Conn{conn: conn, closed: make(chan struct{})}
}

// NewServerConn wraps the server side; the first read consumes the client's tag
func NewServerConn(conn net.Conn) *Conn {
	return &Conn{conn: conn, server: true, closed: make(chan struct{})}
}

// Dial connects to a TCP address
func Dial(ctx context.Context, network, addr string) (*Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return NewConn(conn), nil
}

// RemoteAddr returns the peer address
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// WriteFrame sends one frame
func (c *Conn) WriteFrame(ctx context.Context, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	stop := c.watch(ctx, c.conn.SetWriteDeadline)
	defer stop()

	buf := make([]byte, 0, len(payload)+8)
	if !c.server && !c.tagSent {
		buf = append(buf, Tag[:]...)
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(payload)))
	buf = append(buf, payload...)

	if _, err := c.conn.Write(buf); err != nil {
		return c.wrapErr(ctx, "write", err)
	}
	c.tagSent = true

	metrics.FrameBytes.WithLabelValues(metrics.DirectionOut).Add(float64(len(buf)))
	return nil
}

// ReadFrame receives one frame. A 4-byte frame holding a negative
// integer is returned as *CodeError.
func (c *Conn) ReadFrame(ctx context.Context) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	stop := c.watch(ctx, c.conn.SetReadDeadline)
	defer stop()

	if c.server && !c.tagRead {
		var tag [4]byte
		if _, err := io.ReadFull(c.conn, tag[:]); err != nil {
			return nil, c.wrapErr(ctx, "read tag", err)
		}
		if tag != Tag {
			return nil, fmt.Errorf("%w: %x", ErrBadTag, tag)
		}
		c.tagRead = true
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(c.conn, lenBuf[:]); err != nil {
		return nil, c.wrapErr(ctx, "read length", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(c.conn, payload); err != nil {
		return nil, c.wrapErr(ctx, "read payload", err)
	}
	metrics.FrameBytes.WithLabelValues(metrics.DirectionIn).Add(float64(n + 4))

	if n == 4 {
		if code := int32(binary.LittleEndian.Uint32(payload)); code < 0 {
			return nil, &CodeError{Code: code}
		}
	}
	return payload, nil
}

// Close closes the underlying connection
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

// watch applies the context deadline to the connection and interrupts the
// blocked call when ctx is cancelled. The returned func must be called.
func (c *Conn) watch(ctx context.Context, set func(time.Time) error) func() {
	if d, ok := ctx.Deadline(); ok {
		_ = set(d)
	} else {
		_ = set(time.Time{})
	}
	if ctx.Done() == nil {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = set(time.Now())
		case <-done:
		case <-c.closed:
		}
	}()
	return func() { close(done) }
}

func (c *Conn) wrapErr(ctx context.Context, op string, err error) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("failed to %s: %w", op, ctxErr)
	}
	if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
		return fmt.Errorf("failed to %s: %w", op, context.DeadlineExceeded)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
