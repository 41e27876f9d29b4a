// Package handshake runs the Diffie-Hellman key exchange that creates an
// auth key over an unencrypted connection.
package handshake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ZentaChain/zentalk-mtproto/pkg/crypto"
	"github.com/ZentaChain/zentalk-mtproto/pkg/metrics"
	"github.com/ZentaChain/zentalk-mtproto/pkg/prime"
	"github.com/ZentaChain/zentalk-mtproto/pkg/tl"
)

// Result is the outcome of a successful exchange
type Result struct {
	AuthKey    crypto.AuthKey
	ServerSalt int64

	// TimeOffset is server time minus local time, in seconds
	TimeOffset int64

	// ExpiresAt is zero for permanent keys
	ExpiresAt time.Time

	DC int
}

// Exchanger drives one key exchange attempt. It is not safe for concurrent
// use; after a failure create a new Exchanger.
type Exchanger struct {
	conn Conn
	opts Options
	log  logrus.FieldLogger
}

// New creates an exchanger over conn
func New(conn Conn, opts Options) *Exchanger {
	opts = opts.withDefaults()
	return &Exchanger{
		conn: conn,
		opts: opts,
		log:  opts.Log.WithField("dc", opts.DC),
	}
}

// Run performs the exchange. It returns *Error for protocol violations and
// the connection's error (or ctx.Err()) when the conversation breaks off.
func (x *Exchanger) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res, err := x.run(ctx)

	metrics.HandshakeDuration.Observe(time.Since(start).Seconds())
	var herr *Error
	switch {
	case err == nil:
		metrics.HandshakesTotal.WithLabelValues("ok").Inc()
		x.log.WithField("key_id", fmt.Sprintf("%016x", res.AuthKey.ID())).Info("Auth key created")
	case errors.As(err, &herr):
		metrics.HandshakesTotal.WithLabelValues(herr.Kind.String()).Inc()
		x.log.WithError(err).Error("Key exchange failed")
	default:
		metrics.HandshakesTotal.WithLabelValues("aborted").Inc()
		x.log.WithError(err).Warn("Key exchange aborted")
	}
	return res, err
}

func (x *Exchanger) run(ctx context.Context) (*Result, error) {
	var s1 awaitingResPQ
	if _, err := io.ReadFull(x.opts.Rand, s1.nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	s2, err := x.requestPQ(ctx, s1)
	if err != nil {
		return nil, err
	}
	s3, err := x.requestDHParams(ctx, s2)
	if err != nil {
		return nil, err
	}
	return x.setClientDHParams(ctx, s3)
}

// requestPQ sends req_pq_multi and prepares req_DH_params from the answer
func (x *Exchanger) requestPQ(ctx context.Context, s awaitingResPQ) (awaitingServerDH, error) {
	var next awaitingServerDH

	resp, err := x.conn.Invoke(ctx, &tl.ReqPQMulti{Nonce: s.nonce})
	if err != nil {
		return next, err
	}
	resPQ, ok := resp.(*tl.ResPQ)
	if !ok {
		return next, unexpected("res_pq", resp)
	}
	if resPQ.Nonce != s.nonce {
		return next, fail(KindNonceMismatch, "res_pq", nil)
	}
	x.log.WithFields(logrus.Fields{
		"state":        "res_pq",
		"fingerprints": len(resPQ.Fingerprints),
	}).Debug("Received res_pq")

	key, ok := x.opts.Keys.FindAny(resPQ.Fingerprints)
	if !ok {
		return next, fail(KindUnknownFingerprint, fmt.Sprintf("%016x", resPQ.Fingerprints), nil)
	}

	if len(resPQ.PQ) == 0 || len(resPQ.PQ) > 8 {
		return next, fail(KindFactorization, fmt.Sprintf("pq of %d bytes", len(resPQ.PQ)), nil)
	}
	pq := crypto.BytesToInt(resPQ.PQ).Uint64()
	p, q, err := crypto.FactorizePQ(pq, x.opts.Rand)
	if err != nil {
		return next, fail(KindFactorization, "", err)
	}
	if !crypto.IsPQ(pq, p, q) {
		return next, fail(KindFactorization, fmt.Sprintf("%d * %d != %d", p, q, pq), nil)
	}

	next.nonce = s.nonce
	next.serverNonce = resPQ.ServerNonce
	if _, err := io.ReadFull(x.opts.Rand, next.newNonce[:]); err != nil {
		return next, fmt.Errorf("failed to generate new nonce: %w", err)
	}

	inner := &tl.PQInnerData{
		PQ:          resPQ.PQ,
		P:           crypto.Uint64ToBytes(p),
		Q:           crypto.Uint64ToBytes(q),
		Nonce:       s.nonce,
		ServerNonce: resPQ.ServerNonce,
		NewNonce:    next.newNonce,
		DC:          x.opts.WireDC(),
		ExpiresIn:   int32(x.opts.ExpiresIn / time.Second),
	}
	encrypted, err := crypto.RSAPadEncrypt(tl.Marshal(inner), key, x.opts.Rand)
	if err != nil {
		return next, fmt.Errorf("failed to encrypt p_q_inner_data: %w", err)
	}

	next.request = &tl.ReqDHParams{
		Nonce:                s.nonce,
		ServerNonce:          resPQ.ServerNonce,
		P:                    inner.P,
		Q:                    inner.Q,
		PublicKeyFingerprint: key.Fingerprint(),
		EncryptedData:        encrypted,
	}
	return next, nil
}

// requestDHParams sends req_DH_params, validates the server's DH parameters
// and computes the auth key candidate
func (x *Exchanger) requestDHParams(ctx context.Context, s awaitingServerDH) (awaitingDhGen, error) {
	var next awaitingDhGen

	resp, err := x.conn.Invoke(ctx, s.request)
	if err != nil {
		return next, err
	}

	var ok *tl.ServerDHParamsOk
	switch r := resp.(type) {
	case *tl.ServerDHParamsOk:
		ok = r
	case *tl.ServerDHParamsFail:
		if err := checkNonces(s.nonce, s.serverNonce, r.Nonce, r.ServerNonce, "server_DH_params_fail"); err != nil {
			return next, err
		}
		return next, fail(KindDhGenFail, "server_DH_params_fail", nil)
	default:
		return next, unexpected("server_DH_params", resp)
	}
	if err := checkNonces(s.nonce, s.serverNonce, ok.Nonce, ok.ServerNonce, "server_DH_params_ok"); err != nil {
		return next, err
	}

	inner, err := decryptServerDH(s, ok.EncryptedAnswer)
	if err != nil {
		return next, err
	}
	if err := checkNonces(s.nonce, s.serverNonce, inner.Nonce, inner.ServerNonce, "server_DH_inner_data"); err != nil {
		return next, err
	}
	x.log.WithFields(logrus.Fields{"state": "server_dh", "g": inner.G}).Debug("Received server DH parameters")

	p := crypto.BytesToInt(inner.DHPrime)
	g := big.NewInt(int64(inner.G))
	gA := crypto.BytesToInt(inner.GA)

	if err := x.validatePrime(ctx, int(inner.G), p); err != nil {
		return next, err
	}
	if err := prime.CheckRange(g, p); err != nil {
		return next, fail(KindInvalidDhParameters, "g", err)
	}
	if err := prime.CheckPublicValue(gA, p); err != nil {
		return next, fail(KindInvalidDhParameters, "g_a", err)
	}

	bBytes := make([]byte, 256)
	if _, err := io.ReadFull(x.opts.Rand, bBytes); err != nil {
		return next, fmt.Errorf("failed to generate dh exponent: %w", err)
	}
	b := crypto.BytesToInt(bBytes)

	gB := new(big.Int).Exp(g, b, p)
	if err := prime.CheckPublicValue(gB, p); err != nil {
		return next, fail(KindInvalidDhParameters, "g_b", err)
	}

	authKey, err := crypto.NewAuthKey(crypto.IntToBytes(new(big.Int).Exp(gA, b, p), crypto.AuthKeySize))
	if err != nil {
		return next, err
	}

	return awaitingDhGen{
		nonce:       s.nonce,
		serverNonce: s.serverNonce,
		newNonce:    s.newNonce,
		p:           p,
		gB:          crypto.IntToBytes(gB, crypto.AuthKeySize),
		authKey:     authKey,
		serverTime:  inner.ServerTime,
	}, nil
}

func (x *Exchanger) validatePrime(ctx context.Context, g int, p *big.Int) error {
	if p.BitLen() != prime.PrimeBits {
		return fail(KindInvalidDhParameters, "dh_prime", fmt.Errorf("%w: got %d bits", prime.ErrPrimeSize, p.BitLen()))
	}
	if err := prime.CheckGenerator(g, p); err != nil {
		return fail(KindInvalidDhParameters, "g", err)
	}

	source := "cache"
	if x.opts.Primes.Lookup(p) == prime.Unknown {
		source = "test"
	}
	err := prime.Validate(ctx, x.opts.Primes, p)
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	if err != nil {
		metrics.PrimeChecks.WithLabelValues(source, "bad").Inc()
		return fail(KindInvalidDhParameters, "dh_prime", err)
	}
	metrics.PrimeChecks.WithLabelValues(source, "good").Inc()
	return nil
}

// setClientDHParams sends client_DH_inner_data until the server accepts or
// rejects it, following dh_gen_retry up to MaxRetries times
func (x *Exchanger) setClientDHParams(ctx context.Context, s awaitingDhGen) (*Result, error) {
	for retries := 0; ; retries++ {
		req, err := s.request(x.opts.Rand)
		if err != nil {
			return nil, err
		}

		resp, err := x.conn.Invoke(ctx, req)
		if err != nil {
			return nil, err
		}
		gen, ok := resp.(*tl.DhGen)
		if !ok {
			return nil, unexpected("dh_gen", resp)
		}
		if err := checkNonces(s.nonce, s.serverNonce, gen.Nonce, gen.ServerNonce, gen.Kind.String()); err != nil {
			return nil, err
		}
		if gen.NewNonceHash != newNonceHash(s.newNonce, gen.Kind, s.authKey) {
			return nil, fail(KindHashMismatch, gen.Kind.String()+" new_nonce_hash", nil)
		}

		switch gen.Kind {
		case tl.DhGenOk:
			return x.result(s), nil
		case tl.DhGenRetry:
			metrics.DhGenRetries.Inc()
			if retries+1 >= x.opts.MaxRetries {
				return nil, fail(KindDhGenFail, fmt.Sprintf("gave up after %d dh_gen_retry", retries+1), nil)
			}
			x.log.WithFields(logrus.Fields{"state": "dh_gen", "retry_id": s.retryID + 1}).Debug("Server asked to retry")
			s = s.retried()
		default:
			return nil, fail(KindDhGenFail, "dh_gen_fail", nil)
		}
	}
}

func (x *Exchanger) result(s awaitingDhGen) *Result {
	now := x.opts.Clock()
	res := &Result{
		AuthKey:    s.authKey,
		ServerSalt: initialSalt(s.newNonce, s.serverNonce),
		TimeOffset: int64(s.serverTime) - now.Unix(),
		DC:         x.opts.DC,
	}
	if x.opts.ExpiresIn > 0 {
		res.ExpiresAt = now.Add(x.opts.ExpiresIn)
	}
	return res
}

// decryptServerDH opens encrypted_answer: SHA1(inner) || inner || padding < 16
func decryptServerDH(s awaitingServerDH, answer []byte) (*tl.ServerDHInnerData, error) {
	if len(answer) < 20+16 || len(answer)%16 != 0 {
		return nil, fail(KindHashMismatch, fmt.Sprintf("encrypted answer of %d bytes", len(answer)), nil)
	}

	key, iv := tmpKeyIV(s.newNonce, s.serverNonce)
	plain, err := crypto.DecryptIGE(key, iv, answer)
	if err != nil {
		return nil, fail(KindHashMismatch, "encrypted answer", err)
	}

	d := tl.NewDecoder(plain[20:])
	obj := tl.DecodeNext(d)
	if err := d.Err(); err != nil {
		return nil, fail(KindHashMismatch, "server_DH_inner_data", err)
	}
	n := d.Consumed()
	if len(plain)-20-n >= 16 {
		return nil, fail(KindHashMismatch, fmt.Sprintf("%d bytes of padding", len(plain)-20-n), nil)
	}
	if !crypto.VerifyHash(crypto.SHA1(plain[20:20+n]), plain[:20]) {
		return nil, fail(KindHashMismatch, "server_DH_inner_data sha1", nil)
	}

	inner, ok := obj.(*tl.ServerDHInnerData)
	if !ok {
		return nil, unexpected("server_DH_inner_data", obj)
	}
	return inner, nil
}

func checkNonces(nonce, serverNonce, gotNonce, gotServerNonce tl.Int128, where string) error {
	if gotNonce != nonce {
		return fail(KindNonceMismatch, where, nil)
	}
	if gotServerNonce != serverNonce {
		return fail(KindServerNonceMismatch, where, nil)
	}
	return nil
}

func unexpected(want string, got tl.Object) *Error {
	if got == nil {
		return fail(KindUnexpectedResponse, "want "+want+", got nothing", nil)
	}
	return fail(KindUnexpectedResponse, fmt.Sprintf("want %s, got %08x", want, got.TypeID()), nil)
}
