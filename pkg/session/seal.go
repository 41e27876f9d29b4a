package session

import (
	"fmt"
	"io"

	"github.com/ZentaChain/zentalk-mtproto/pkg/crypto"
	"github.com/ZentaChain/zentalk-mtproto/pkg/protocol"
)

// Envelope is the decrypted content of an encrypted frame
type Envelope struct {
	protocol.InnerHeader
	Body []byte
}

// Seal encrypts body under key as sent by side. The header's Length is
// set from body.
func Seal(key crypto.AuthKey, side crypto.Side, h protocol.InnerHeader, body []byte, random io.Reader) ([]byte, error) {
	h.Length = uint32(len(body))
	plain := append(h.Encode(), body...)

	padded, err := crypto.AddPadding(plain, crypto.PaddingMessage, random)
	if err != nil {
		return nil, err
	}

	eh := protocol.EncryptedHeader{AuthKeyID: key.ID()}
	copy(eh.MsgKey[:], crypto.MessageKey(key.Value(), padded, side))

	aesKey, iv := crypto.DeriveAESKeyIV(key.Value(), eh.MsgKey[:], side)
	ct, err := crypto.EncryptIGE(aesKey, iv, padded)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt payload: %w", err)
	}
	return append(eh.Encode(), ct...), nil
}

// Open decrypts a frame sent by side and checks everything that does not
// depend on session state: key id, message key, length and padding.
func Open(key crypto.AuthKey, side crypto.Side, frame []byte) (*Envelope, error) {
	n := len(frame) - protocol.EncryptedHeaderSize
	if n < protocol.InnerHeaderSize+crypto.MinMessagePadding || n%16 != 0 {
		return nil, integrity(ReasonFrameSize, "%d bytes", len(frame))
	}

	var eh protocol.EncryptedHeader
	if err := eh.Decode(frame); err != nil {
		return nil, err
	}
	if eh.AuthKeyID != key.ID() {
		return nil, integrity(ReasonAuthKeyID, "got %016x, want %016x", eh.AuthKeyID, key.ID())
	}

	aesKey, iv := crypto.DeriveAESKeyIV(key.Value(), eh.MsgKey[:], side)
	plain, err := crypto.DecryptIGE(aesKey, iv, frame[protocol.EncryptedHeaderSize:])
	if err != nil {
		return nil, integrity(ReasonFrameSize, "%v", err)
	}
	if !crypto.VerifyHash(crypto.MessageKey(key.Value(), plain, side), eh.MsgKey[:]) {
		return nil, integrity(ReasonMsgKey, "recomputed message key differs")
	}

	env := &Envelope{}
	if err := env.InnerHeader.Decode(plain); err != nil {
		return nil, err
	}
	rest := len(plain) - protocol.InnerHeaderSize
	if env.Length%4 != 0 || int64(env.Length) > int64(rest) {
		return nil, integrity(ReasonLength, "body length %d of %d", env.Length, rest)
	}
	if err := crypto.CheckMessagePadding(rest - int(env.Length)); err != nil {
		return nil, integrity(ReasonPadding, "%v", err)
	}

	env.Body = plain[protocol.InnerHeaderSize : protocol.InnerHeaderSize+int(env.Length)]
	return env, nil
}
