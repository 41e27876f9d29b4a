package network

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ZentaChain/zentalk-mtproto/pkg/config"
	"github.com/ZentaChain/zentalk-mtproto/pkg/session"
	"github.com/ZentaChain/zentalk-mtproto/pkg/tl"
	"github.com/ZentaChain/zentalk-mtproto/pkg/transport"
)

// receiveLoop reads frames until the connection fails
func (c *Client) receiveLoop() {
	defer c.wg.Done()

	for {
		frame, err := c.conn.ReadFrame(c.ctx)
		if err != nil {
			if c.ctx.Err() == nil {
				c.log.WithError(err).Error("Connection lost")
			}
			c.stop(err)
			return
		}

		if _, err := c.framer.Receive(frame); err != nil {
			var ierr *session.IntegrityError
			if errors.As(err, &ierr) && isMessageIDReason(ierr.Reason) {
				c.log.WithError(err).Warn("Dropping message")
				continue
			}
			if errors.As(err, &ierr) {
				c.log.WithError(err).Error("Closing connection after integrity failure")
				c.stop(err)
				return
			}
			c.log.WithError(err).Warn("Failed to handle frame")
		}
	}
}

func isMessageIDReason(reason string) bool {
	switch reason {
	case session.ReasonMsgIDParity, session.ReasonMsgIDTime, session.ReasonMsgIDDup:
		return true
	}
	return false
}

// keepaliveLoop sends periodic pings to keep connection alive
func (c *Client) keepaliveLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
		}

		rtt, err := c.Ping(c.ctx)
		if err != nil {
			if c.ctx.Err() == nil {
				c.log.WithError(err).Warn("Keepalive ping failed")
			}
			continue
		}
		c.log.WithField("rtt", rtt).Debug("Keepalive ping")
	}
}

// ackLoop flushes acknowledgements of received messages
func (c *Client) ackLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
		}

		if err := c.framer.FlushAcks(c.ctx); err != nil && c.ctx.Err() == nil {
			c.log.WithError(err).Warn("Failed to send acks")
		}
	}
}

// Supervisor keeps one client connected, redialing with exponential backoff
// when the connection drops. Auth keys survive reconnects through the store.
type Supervisor struct {
	// Dial creates a connected client; defaults to Dial with the supervisor's config
	Dial func(ctx context.Context) (*Client, error)

	MinBackoff time.Duration
	MaxBackoff time.Duration

	log logrus.FieldLogger

	mu         sync.RWMutex
	current    *Client
	reconnects int
	lastErr    error
}

// NewSupervisor creates a supervisor for cfg. Without a store in opts, keys
// are kept in memory for the life of the supervisor.
func NewSupervisor(cfg *config.Config, opts Options) *Supervisor {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Supervisor{
		Dial: func(ctx context.Context) (*Client, error) {
			return Dial(ctx, cfg, opts)
		},
		MinBackoff: time.Second,
		MaxBackoff: 30 * time.Second,
		log:        log.WithField("dc", cfg.DC),
	}
}

// Current returns the connected client, or nil between connections
func (s *Supervisor) Current() *Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reconnects returns how many times a lost connection was replaced
func (s *Supervisor) Reconnects() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reconnects
}

// LastError returns the most recent dial or connection error
func (s *Supervisor) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Invoke calls through the current client
func (s *Supervisor) Invoke(ctx context.Context, req tl.Object) (tl.Object, error) {
	c := s.Current()
	if c == nil {
		return nil, ErrNotConnected
	}
	return c.Invoke(ctx, req)
}

// Run connects and reconnects until ctx ends
func (s *Supervisor) Run(ctx context.Context) error {
	backoff := s.MinBackoff
	connected := false

	for {
		c, err := s.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.setErr(err)
			s.log.WithError(err).WithField("retry_in", backoff).Warn("Connection failed")

			var codeErr *transport.CodeError
			if errors.As(err, &codeErr) && codeErr.Code == transport.CodeFlood {
				backoff = s.MaxBackoff
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, s.MaxBackoff)
			continue
		}

		s.mu.Lock()
		if connected {
			s.reconnects++
		}
		s.current = c
		s.mu.Unlock()
		connected = true
		backoff = s.MinBackoff
		s.log.WithField("client", c.ID.String()).Info("Session established")

		select {
		case <-ctx.Done():
			c.Close()
			s.clear()
			return ctx.Err()
		case <-c.Done():
		}

		c.Close()
		s.clear()
		s.setErr(c.Err())
		s.log.WithError(c.Err()).Warn("Session lost, reconnecting")
	}
}

func (s *Supervisor) clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

func (s *Supervisor) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}
