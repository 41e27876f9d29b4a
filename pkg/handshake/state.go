package handshake

import (
	"fmt"
	"io"
	"math/big"

	"github.com/ZentaChain/zentalk-mtproto/pkg/crypto"
	"github.com/ZentaChain/zentalk-mtproto/pkg/tl"
)

// Each step of the exchange produces the next state value; a state holds
// only what is known at that point.

type awaitingResPQ struct {
	nonce tl.Int128
}

type awaitingServerDH struct {
	nonce       tl.Int128
	serverNonce tl.Int128
	newNonce    tl.Int256
	request     *tl.ReqDHParams
}

type awaitingDhGen struct {
	nonce       tl.Int128
	serverNonce tl.Int128
	newNonce    tl.Int256

	p       *big.Int
	gB      []byte
	authKey crypto.AuthKey

	serverTime int32
	retryID    int64
}

// request builds set_client_DH_params for the current retry id
func (s awaitingDhGen) request(random io.Reader) (*tl.SetClientDHParams, error) {
	inner := tl.Marshal(&tl.ClientDHInnerData{
		Nonce:       s.nonce,
		ServerNonce: s.serverNonce,
		RetryID:     s.retryID,
		GB:          s.gB,
	})

	payload := append(crypto.SHA1(inner), inner...)
	payload, err := crypto.AddPadding(payload, crypto.PaddingAlign16, random)
	if err != nil {
		return nil, err
	}

	key, iv := tmpKeyIV(s.newNonce, s.serverNonce)
	encrypted, err := crypto.EncryptIGE(key, iv, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt client_DH_inner_data: %w", err)
	}

	return &tl.SetClientDHParams{
		Nonce:         s.nonce,
		ServerNonce:   s.serverNonce,
		EncryptedData: encrypted,
	}, nil
}

// retried returns the state for resending client_DH_inner_data after dh_gen_retry
func (s awaitingDhGen) retried() awaitingDhGen {
	s.retryID++
	return s
}

// tmpKeyIV derives the AES key and iv protecting the DH payloads
func tmpKeyIV(newNonce tl.Int256, serverNonce tl.Int128) (key, iv []byte) {
	return crypto.TmpAESKeyIV(newNonce[:], serverNonce[:])
}

// newNonceHash computes SHA1(new_nonce || tag || aux_hash)[4:20]
func newNonceHash(newNonce tl.Int256, tag tl.DhGenKind, authKey crypto.AuthKey) tl.Int128 {
	var h tl.Int128
	copy(h[:], crypto.SHA1(newNonce[:], []byte{byte(tag)}, authKey.AuxHash())[4:20])
	return h
}

// initialSalt is new_nonce[0:8] XOR server_nonce[0:8] as a little-endian integer
func initialSalt(newNonce tl.Int256, serverNonce tl.Int128) int64 {
	x := crypto.XOR(newNonce[:8], serverNonce[:8])
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(x[i])
	}
	return int64(v)
}
