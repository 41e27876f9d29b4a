package crypto

// Side selects which half of the auth key a frame is keyed with
type Side int

const (
	// Client marks frames sent by this side (x = 0)
	Client Side = iota
	// Server marks frames sent by the remote peer (x = 8)
	Server
)

func (s Side) offset() int {
	if s == Server {
		return 8
	}
	return 0
}

func (s Side) String() string {
	if s == Server {
		return "server"
	}
	return "client"
}

// MessageKey computes SHA256(authKey[88+x:120+x] || plaintext)[8:24]
func MessageKey(authKey, plaintext []byte, side Side) []byte {
	x := side.offset()
	return SHA256(authKey[88+x:120+x], plaintext)[8:24]
}

// DeriveAESKeyIV derives the per-frame AES-256-IGE key and iv from a message key
func DeriveAESKeyIV(authKey, msgKey []byte, side Side) (key, iv []byte) {
	x := side.offset()
	a := SHA256(msgKey, authKey[x:x+36])
	b := SHA256(authKey[x+40:x+76], msgKey)

	key = make([]byte, 0, 32)
	key = append(key, a[0:8]...)
	key = append(key, b[8:24]...)
	key = append(key, a[24:32]...)

	iv = make([]byte, 0, 32)
	iv = append(iv, b[0:8]...)
	iv = append(iv, a[8:24]...)
	iv = append(iv, b[24:32]...)
	return key, iv
}

// TmpAESKeyIV derives the key and iv protecting the server DH answer
// and the client DH inner data during the key exchange.
func TmpAESKeyIV(newNonce, serverNonce []byte) (key, iv []byte) {
	ns := SHA1(newNonce, serverNonce)
	sn := SHA1(serverNonce, newNonce)
	nn := SHA1(newNonce, newNonce)

	key = make([]byte, 0, 32)
	key = append(key, ns...)
	key = append(key, sn[0:12]...)

	iv = make([]byte, 0, 32)
	iv = append(iv, sn[12:20]...)
	iv = append(iv, nn...)
	iv = append(iv, newNonce[0:4]...)
	return key, iv
}
