// internal/wsproto/rand.go
package wsproto

import (
	"math/rand"
	"sync"
	"time"
)

// Masking keys and handshake nonces are not secrets.
var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func randomBytes(b []byte) {
	rngMu.Lock()
	_, _ = rng.Read(b)
	rngMu.Unlock()
}

func newMaskKey() (key [4]byte) {
	randomBytes(key[:])
	return key
}
