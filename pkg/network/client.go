// Package network connects a client to one data center: it dials the
// endpoint, obtains an auth key and keeps the encrypted session alive.
package network

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ZentaChain/zentalk-mtproto/pkg/config"
	"github.com/ZentaChain/zentalk-mtproto/pkg/crypto"
	"github.com/ZentaChain/zentalk-mtproto/pkg/handshake"
	"github.com/ZentaChain/zentalk-mtproto/pkg/keyring"
	"github.com/ZentaChain/zentalk-mtproto/pkg/prime"
	"github.com/ZentaChain/zentalk-mtproto/pkg/session"
	"github.com/ZentaChain/zentalk-mtproto/pkg/storage"
	"github.com/ZentaChain/zentalk-mtproto/pkg/tl"
	"github.com/ZentaChain/zentalk-mtproto/pkg/transport"
)

var (
	ErrNotConnected = errors.New("not connected")
)

// Options carry the collaborators of a client. Zero values take defaults.
type Options struct {
	Keys   handshake.KeyFinder
	Primes prime.Checker
	Store  KeyStore
	Log    logrus.FieldLogger
	OnPush func(obj tl.Object)
}

// Client is a connected encrypted session
type Client struct {
	ID uuid.UUID

	cfg    *config.Config
	conn   *transport.Conn
	framer *session.EncryptedFramer
	store  KeyStore
	log    logrus.FieldLogger

	key         crypto.AuthKey
	expiresAt   time.Time
	connectedAt time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

// Dial connects to cfg.Address and sets up the session
func Dial(ctx context.Context, cfg *config.Config, opts Options) (*Client, error) {
	network, addr, err := cfg.NetAddr()
	if err != nil {
		return nil, err
	}
	conn, err := transport.Dial(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	c, err := Connect(ctx, conn, cfg, opts)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// Connect sets up the session over an established connection. It reuses the
// stored auth key of the dc or runs the key exchange and stores the result.
func Connect(ctx context.Context, conn *transport.Conn, cfg *config.Config, opts Options) (*Client, error) {
	id := uuid.New()
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	log = log.WithFields(logrus.Fields{"client": id.String(), "dc": cfg.DC})

	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Keys == nil && cfg.PublicKeysFile != "" {
		keys, err := keyring.LoadFile(cfg.PublicKeysFile)
		if err != nil {
			return nil, err
		}
		opts.Keys = keys
	}

	stored, err := opts.Store.Load(cfg.DC, cfg.TestMode)
	switch {
	case err == nil:
		log.WithField("key_id", fmt.Sprintf("%016x", stored.Key.ID())).Info("Using stored auth key")
	case errors.Is(err, storage.ErrNotFound):
		if stored, err = exchange(ctx, conn, cfg, opts, log); err != nil {
			return nil, err
		}
		if err := opts.Store.Save(stored); err != nil {
			log.WithError(err).Warn("Failed to store auth key")
		}
	default:
		return nil, fmt.Errorf("failed to load auth key: %w", err)
	}

	c := &Client{
		ID:          id,
		cfg:         cfg,
		conn:        conn,
		store:       opts.Store,
		log:         log,
		key:         stored.Key,
		expiresAt:   stored.ExpiresAt,
		connectedAt: time.Now(),
		done:        make(chan struct{}),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	state := session.NewState(stored.ServerSalt, stored.TimeOffset)
	c.framer = session.NewEncryptedFramer(stored.Key, state, conn, session.Options{
		Log:    log,
		OnPush: opts.OnPush,
	})

	c.wg.Add(1)
	go c.receiveLoop()
	if d := cfg.Session.PingInterval.Std(); d > 0 {
		c.wg.Add(1)
		go c.keepaliveLoop(d)
	}
	if d := cfg.Session.AckFlush.Std(); d > 0 {
		c.wg.Add(1)
		go c.ackLoop(d)
	}

	log.WithField("remote", conn.RemoteAddr()).Info("Connected")
	return c, nil
}

// exchange runs the key exchange over plain frames
func exchange(ctx context.Context, conn *transport.Conn, cfg *config.Config, opts Options, log logrus.FieldLogger) (*storage.StoredKey, error) {
	if d := cfg.Handshake.Timeout.Std(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	plain := session.NewPlainFramer(session.NewState(0, 0), conn, session.Options{Log: log})
	res, err := handshake.New(plain, handshake.Options{
		Keys:       opts.Keys,
		Primes:     opts.Primes,
		DC:         cfg.DC,
		TestMode:   cfg.TestMode,
		MediaOnly:  cfg.MediaOnly,
		ExpiresIn:  cfg.TempKeyTTL.Std(),
		MaxRetries: cfg.Handshake.MaxRetries,
		Log:        log,
	}).Run(ctx)
	if err != nil {
		return nil, err
	}

	return &storage.StoredKey{
		DC:         cfg.DC,
		TestMode:   cfg.TestMode,
		Key:        res.AuthKey,
		ServerSalt: res.ServerSalt,
		TimeOffset: res.TimeOffset,
		ExpiresAt:  res.ExpiresAt,
		CreatedAt:  time.Now(),
	}, nil
}

// Invoke sends req and waits for its result. Without a deadline on ctx the
// configured call timeout applies.
func (c *Client) Invoke(ctx context.Context, req tl.Object) (tl.Object, error) {
	select {
	case <-c.done:
		return nil, ErrNotConnected
	default:
	}

	if _, ok := ctx.Deadline(); !ok {
		if d := c.cfg.Session.CallTimeout.Std(); d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
	}
	return c.framer.Invoke(ctx, req)
}

// Ping measures the round trip of a ping
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	pingID := int64(binary.LittleEndian.Uint64(b[:]))

	start := time.Now()
	resp, err := c.Invoke(ctx, &tl.Ping{PingID: pingID})
	if err != nil {
		return 0, err
	}
	pong, ok := resp.(*tl.Pong)
	if !ok || pong.PingID != pingID {
		return 0, fmt.Errorf("unexpected ping answer %08x", resp.TypeID())
	}
	return time.Since(start), nil
}

// Done is closed once the client stops
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the client stopped, nil after Close
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close stops the loops, fails waiting calls and records the session
// parameters for the next connection
func (c *Client) Close() error {
	err := c.stop(nil)
	c.wg.Wait()
	return err
}

// stop tears the client down once; loops call it with the error that ended them
func (c *Client) stop(cause error) error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = cause
		c.mu.Unlock()

		c.cancel()
		c.framer.Close(cause)
		err = c.conn.Close()
		close(c.done)

		var codeErr *transport.CodeError
		if errors.As(cause, &codeErr) && codeErr.Code == transport.CodeAuthKeyNotFound {
			c.log.Warn("Server does not know the auth key, dropping it")
			if derr := c.store.Delete(c.cfg.DC, c.cfg.TestMode); derr != nil && !errors.Is(derr, storage.ErrNotFound) {
				c.log.WithError(derr).Warn("Failed to delete auth key")
			}
			return
		}

		st := c.framer.State()
		if uerr := c.store.UpdateSession(c.cfg.DC, c.cfg.TestMode, st.Salt(), st.TimeOffset()); uerr != nil && !errors.Is(uerr, storage.ErrNotFound) {
			c.log.WithError(uerr).Warn("Failed to record session")
		}
	})
	return err
}

// Status describes the client for reporting
type Status struct {
	ClientID     string           `json:"client_id"`
	DC           int              `json:"dc"`
	TestMode     bool             `json:"test_mode"`
	Address      string           `json:"address"`
	Connected    bool             `json:"connected"`
	ConnectedAt  time.Time        `json:"connected_at"`
	KeyID        string           `json:"key_id"`
	ExpiresAt    *time.Time       `json:"expires_at,omitempty"`
	PendingCalls int              `json:"pending_calls"`
	PendingAcks  int              `json:"pending_acks"`
	Session      session.Snapshot `json:"session"`
	Error        string           `json:"error,omitempty"`
}

func (c *Client) Status() Status {
	s := Status{
		ClientID:     c.ID.String(),
		DC:           c.cfg.DC,
		TestMode:     c.cfg.TestMode,
		Address:      c.cfg.Address,
		Connected:    true,
		ConnectedAt:  c.connectedAt,
		KeyID:        fmt.Sprintf("%016x", c.key.ID()),
		PendingCalls: c.framer.PendingCalls(),
		PendingAcks:  c.framer.PendingAcks(),
		Session:      c.framer.State().Snapshot(),
	}
	if !c.expiresAt.IsZero() {
		t := c.expiresAt
		s.ExpiresAt = &t
	}
	select {
	case <-c.done:
		s.Connected = false
		if err := c.Err(); err != nil {
			s.Error = err.Error()
		}
	default:
	}
	return s
}
