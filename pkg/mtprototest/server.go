// Package mtprototest provides a scripted server for tests: it answers the
// key exchange and a minimal encrypted session.
package mtprototest

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/ZentaChain/zentalk-mtproto/pkg/crypto"
	"github.com/ZentaChain/zentalk-mtproto/pkg/keyring"
	"github.com/ZentaChain/zentalk-mtproto/pkg/prime"
	"github.com/ZentaChain/zentalk-mtproto/pkg/protocol"
	"github.com/ZentaChain/zentalk-mtproto/pkg/session"
	"github.com/ZentaChain/zentalk-mtproto/pkg/tl"
	"github.com/ZentaChain/zentalk-mtproto/pkg/transport"
)

// SamplePQ is the pq the server hands out: 1229739323 * 1402015859
const SamplePQ uint64 = 0x17ED48941A08F981

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

// TestKey returns a process-wide 2048-bit RSA key
func TestKey() *rsa.PrivateKey {
	testKeyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return testKey
}

// Server plays the server side. Exported fields configure it before use;
// the recorded fields are read after.
type Server struct {
	Key   *rsa.PrivateKey
	Prime *big.Int
	G     int32
	Salt  int64
	Clock func() time.Time
	Rand  io.Reader

	// DhGen answers set_client_DH_params in order; ok once exhausted
	DhGen []tl.DhGenKind

	// Tamper hooks run on outgoing key exchange answers
	TamperResPQ    func(*tl.ResPQ)
	TamperServerDH func(*tl.ServerDHInnerData)

	// Respond answers encrypted calls; nil echoes the request back
	Respond func(req tl.Object) tl.Object

	mu          sync.Mutex
	nonce       tl.Int128
	serverNonce tl.Int128
	newNonce    tl.Int256
	a           *big.Int
	authKey     crypto.AuthKey
	lastMsgID   int64
	seq         int32
	announced   map[int64]bool

	requests  []tl.Object
	retryIDs  []int64
	innerData *tl.PQInnerData
	acked     []int64
}

// NewServer creates a server using TestKey and the built-in prime with g = 3
func NewServer() *Server {
	return &Server{
		Key:       TestKey(),
		Prime:     prime.BuiltinPrime(),
		G:         3,
		Salt:      0x0102030405060708,
		Clock:     time.Now,
		Rand:      rand.Reader,
		announced: make(map[int64]bool),
	}
}

// Keys returns a registry holding the server's public key
func (s *Server) Keys() *keyring.Registry {
	r, err := keyring.NewRegistry(crypto.FromRSA(&s.Key.PublicKey))
	if err != nil {
		panic(err)
	}
	return r
}

// AuthKey returns the key the server computed
func (s *Server) AuthKey() crypto.AuthKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authKey
}

// SetAuthKey makes the server accept encrypted frames under key right away
func (s *Server) SetAuthKey(key crypto.AuthKey) {
	s.mu.Lock()
	s.authKey = key
	s.mu.Unlock()
}

// Requests returns every plain request received
func (s *Server) Requests() []tl.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tl.Object(nil), s.requests...)
}

// RetryIDs returns the retry_id of every client_DH_inner_data received
func (s *Server) RetryIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.retryIDs...)
}

// InnerData returns the decrypted p_q_inner_data
func (s *Server) InnerData() *tl.PQInnerData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.innerData
}

// Acked returns the message ids the client acknowledged
func (s *Server) Acked() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.acked...)
}

// Invoke answers a plain request in memory
func (s *Server) Invoke(_ context.Context, req tl.Object) (tl.Object, error) {
	return s.Handle(req)
}

// Handle answers one key exchange request
func (s *Server) Handle(req tl.Object) (tl.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	switch r := req.(type) {
	case *tl.ReqPQMulti:
		return s.resPQ(r)
	case *tl.ReqDHParams:
		return s.serverDHParams(r)
	case *tl.SetClientDHParams:
		return s.dhGen(r)
	default:
		return nil, fmt.Errorf("mtprototest: unexpected plain request %08x", req.TypeID())
	}
}

func (s *Server) resPQ(r *tl.ReqPQMulti) (tl.Object, error) {
	s.nonce = r.Nonce
	if _, err := io.ReadFull(s.Rand, s.serverNonce[:]); err != nil {
		return nil, err
	}

	res := &tl.ResPQ{
		Nonce:        r.Nonce,
		ServerNonce:  s.serverNonce,
		PQ:           crypto.Uint64ToBytes(SamplePQ),
		Fingerprints: []uint64{0x1122334455667788, crypto.FromRSA(&s.Key.PublicKey).Fingerprint()},
	}
	if s.TamperResPQ != nil {
		s.TamperResPQ(res)
	}
	return res, nil
}

func (s *Server) serverDHParams(r *tl.ReqDHParams) (tl.Object, error) {
	if r.Nonce != s.nonce || r.ServerNonce != s.serverNonce {
		return nil, errors.New("mtprototest: req_DH_params nonce mismatch")
	}

	m := new(big.Int).Exp(crypto.BytesToInt(r.EncryptedData), s.Key.D, s.Key.N)
	block := crypto.IntToBytes(m, crypto.RSAPaddedSize)

	d := tl.NewDecoder(block[20:])
	obj := tl.DecodeNext(d)
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("mtprototest: bad p_q_inner_data: %w", err)
	}
	if !crypto.VerifyHash(crypto.SHA1(block[20:20+d.Consumed()]), block[:20]) {
		return nil, errors.New("mtprototest: p_q_inner_data hash mismatch")
	}
	inner, ok := obj.(*tl.PQInnerData)
	if !ok {
		return nil, fmt.Errorf("mtprototest: got %08x instead of p_q_inner_data", obj.TypeID())
	}
	s.innerData = inner
	s.newNonce = inner.NewNonce

	aBytes := make([]byte, 256)
	if _, err := io.ReadFull(s.Rand, aBytes); err != nil {
		return nil, err
	}
	s.a = crypto.BytesToInt(aBytes)
	gA := new(big.Int).Exp(big.NewInt(int64(s.G)), s.a, s.Prime)

	dh := &tl.ServerDHInnerData{
		Nonce:       s.nonce,
		ServerNonce: s.serverNonce,
		G:           s.G,
		DHPrime:     crypto.IntToBytes(s.Prime, 256),
		GA:          crypto.IntToBytes(gA, 256),
		ServerTime:  int32(s.Clock().Unix()),
	}
	if s.TamperServerDH != nil {
		s.TamperServerDH(dh)
	}

	data := tl.Marshal(dh)
	answer, err := crypto.AddPadding(append(crypto.SHA1(data), data...), crypto.PaddingAlign16, s.Rand)
	if err != nil {
		return nil, err
	}
	key, iv := crypto.TmpAESKeyIV(s.newNonce[:], s.serverNonce[:])
	encrypted, err := crypto.EncryptIGE(key, iv, answer)
	if err != nil {
		return nil, err
	}

	return &tl.ServerDHParamsOk{
		Nonce:           s.nonce,
		ServerNonce:     s.serverNonce,
		EncryptedAnswer: encrypted,
	}, nil
}

func (s *Server) dhGen(r *tl.SetClientDHParams) (tl.Object, error) {
	key, iv := crypto.TmpAESKeyIV(s.newNonce[:], s.serverNonce[:])
	plain, err := crypto.DecryptIGE(key, iv, r.EncryptedData)
	if err != nil {
		return nil, err
	}

	d := tl.NewDecoder(plain[20:])
	obj := tl.DecodeNext(d)
	if err := d.Err(); err != nil {
		return nil, err
	}
	if !crypto.VerifyHash(crypto.SHA1(plain[20:20+d.Consumed()]), plain[:20]) {
		return nil, errors.New("mtprototest: client_DH_inner_data hash mismatch")
	}
	inner, ok := obj.(*tl.ClientDHInnerData)
	if !ok {
		return nil, fmt.Errorf("mtprototest: got %08x instead of client_DH_inner_data", obj.TypeID())
	}
	s.retryIDs = append(s.retryIDs, inner.RetryID)

	gB := crypto.BytesToInt(inner.GB)
	authKey, err := crypto.NewAuthKey(crypto.IntToBytes(new(big.Int).Exp(gB, s.a, s.Prime), crypto.AuthKeySize))
	if err != nil {
		return nil, err
	}

	kind := tl.DhGenOk
	if len(s.DhGen) > 0 {
		kind, s.DhGen = s.DhGen[0], s.DhGen[1:]
	}
	if kind == tl.DhGenOk {
		s.authKey = authKey
	}

	var hash tl.Int128
	copy(hash[:], crypto.SHA1(s.newNonce[:], []byte{byte(kind)}, authKey.AuxHash())[4:20])
	return &tl.DhGen{
		Kind:         kind,
		Nonce:        s.nonce,
		ServerNonce:  s.serverNonce,
		NewNonceHash: hash,
	}, nil
}

// Serve answers frames on conn until it fails or ctx ends: plain frames
// until a key exists, encrypted frames after.
func (s *Server) Serve(ctx context.Context, conn *transport.Conn) error {
	for {
		frame, err := conn.ReadFrame(ctx)
		if err != nil {
			return err
		}

		if s.AuthKey().IsZero() {
			if err := s.servePlain(ctx, conn, frame); err != nil {
				return err
			}
			continue
		}
		if err := s.serveEncrypted(ctx, conn, frame); err != nil {
			return err
		}
	}
}

func (s *Server) servePlain(ctx context.Context, conn *transport.Conn, frame []byte) error {
	_, body, err := protocol.DecodePlain(frame)
	if err != nil {
		return err
	}
	req, err := tl.Decode(body)
	if err != nil {
		return err
	}
	resp, err := s.Handle(req)
	if err != nil {
		return err
	}
	return conn.WriteFrame(ctx, protocol.EncodePlain(protocol.MessageID(s.nextMsgID()), tl.Marshal(resp)))
}

func (s *Server) serveEncrypted(ctx context.Context, conn *transport.Conn, frame []byte) error {
	key := s.AuthKey()
	env, err := session.Open(key, crypto.Client, frame)
	if err != nil {
		return err
	}
	req, err := tl.Decode(env.Body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	first := !s.announced[env.SessionID]
	s.announced[env.SessionID] = true
	s.mu.Unlock()

	if first {
		created := &tl.NewSessionCreated{FirstMsgID: int64(env.MessageID), UniqueID: 1, ServerSalt: s.Salt}
		if err := s.reply(ctx, conn, env, created, true); err != nil {
			return err
		}
	}

	switch r := req.(type) {
	case *tl.MsgsAck:
		s.mu.Lock()
		s.acked = append(s.acked, r.MsgIDs...)
		s.mu.Unlock()
		return nil
	case *tl.Ping:
		return s.reply(ctx, conn, env, &tl.Pong{MsgID: int64(env.MessageID), PingID: r.PingID}, false)
	case *tl.PingDelayDisconnect:
		return s.reply(ctx, conn, env, &tl.Pong{MsgID: int64(env.MessageID), PingID: r.PingID}, false)
	}

	var result tl.Object = req
	if s.Respond != nil {
		result = s.Respond(req)
	}
	return s.reply(ctx, conn, env, &tl.RPCResult{ReqMsgID: int64(env.MessageID), Result: result}, true)
}

func (s *Server) reply(ctx context.Context, conn *transport.Conn, to *session.Envelope, obj tl.Object, content bool) error {
	s.mu.Lock()
	seq, next := protocol.SeqNo(s.seq, content)
	s.seq = next
	s.mu.Unlock()

	h := protocol.InnerHeader{
		Salt:      s.Salt,
		SessionID: to.SessionID,
		MessageID: protocol.MessageID(s.nextMsgID()),
		SeqNo:     seq,
	}
	frame, err := session.Seal(s.AuthKey(), crypto.Server, h, tl.Marshal(obj), rand.Reader)
	if err != nil {
		return err
	}
	return conn.WriteFrame(ctx, frame)
}

// nextMsgID returns an increasing odd server message id
func (s *Server) nextMsgID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := int64(protocol.GenerateMessageID(s.Clock(), 0)) | 1
	if id <= s.lastMsgID {
		id = s.lastMsgID + 4
	}
	s.lastMsgID = id
	return id
}
