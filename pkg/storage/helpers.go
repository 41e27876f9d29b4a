package storage

import (
	"fmt"
	"time"

	"github.com/ZentaChain/zentalk-mtproto/pkg/crypto"
)

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func keyIDHex(k crypto.AuthKey) string {
	return fmt.Sprintf("%016x", k.ID())
}
