package handshake

import (
	"context"
	"crypto/rand"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ZentaChain/zentalk-mtproto/pkg/crypto"
	"github.com/ZentaChain/zentalk-mtproto/pkg/keyring"
	"github.com/ZentaChain/zentalk-mtproto/pkg/prime"
	"github.com/ZentaChain/zentalk-mtproto/pkg/tl"
)

// DefaultMaxRetries bounds dh_gen_retry answers within one exchange
const DefaultMaxRetries = 5

// Conn sends one unencrypted request and returns the server's reply
type Conn interface {
	Invoke(ctx context.Context, req tl.Object) (tl.Object, error)
}

// KeyFinder picks a server RSA key from the advertised fingerprints
type KeyFinder interface {
	FindAny(fingerprints []uint64) (*crypto.PublicKey, bool)
}

// Options configure an Exchanger. Zero values take defaults.
type Options struct {
	Keys   KeyFinder
	Primes prime.Checker

	DC        int
	TestMode  bool
	MediaOnly bool

	// ExpiresIn requests a temporary key bound to this lifetime
	ExpiresIn time.Duration

	MaxRetries int

	Rand  io.Reader
	Clock func() time.Time
	Log   logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.Keys == nil {
		o.Keys = keyring.Default()
	}
	if o.Primes == nil {
		o.Primes = prime.Default()
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.Rand == nil {
		o.Rand = rand.Reader
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.Log = l
	}
	return o
}

// WireDC returns the dc value carried in p_q_inner_data
func (o Options) WireDC() int32 {
	dc := int32(o.DC)
	if o.TestMode {
		dc += 10000
	}
	if o.MediaOnly {
		dc = -dc
	}
	return dc
}
