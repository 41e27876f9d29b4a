package network

import (
	"sync"
	"time"

	"github.com/ZentaChain/zentalk-mtproto/pkg/storage"
)

// KeyStore persists auth keys between connections. *storage.AuthKeyDB
// implements it.
type KeyStore interface {
	Load(dc int, testMode bool) (*storage.StoredKey, error)
	Save(k *storage.StoredKey) error
	UpdateSession(dc int, testMode bool, salt, timeOffset int64) error
	Delete(dc int, testMode bool) error
}

var _ KeyStore = (*storage.AuthKeyDB)(nil)

type storeKey struct {
	dc       int
	testMode bool
}

// MemoryStore is a KeyStore that forgets keys when the process exits
type MemoryStore struct {
	mu   sync.Mutex
	keys map[storeKey]storage.StoredKey
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[storeKey]storage.StoredKey)}
}

func (m *MemoryStore) Load(dc int, testMode bool) (*storage.StoredKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, ok := m.keys[storeKey{dc, testMode}]
	if !ok || k.Expired(time.Now()) {
		return nil, storage.ErrNotFound
	}
	return &k, nil
}

func (m *MemoryStore) Save(k *storage.StoredKey) error {
	m.mu.Lock()
	m.keys[storeKey{k.DC, k.TestMode}] = *k
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) UpdateSession(dc int, testMode bool, salt, timeOffset int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := storeKey{dc, testMode}
	k, ok := m.keys[id]
	if !ok {
		return storage.ErrNotFound
	}
	k.ServerSalt, k.TimeOffset = salt, timeOffset
	m.keys[id] = k
	return nil
}

func (m *MemoryStore) Delete(dc int, testMode bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := storeKey{dc, testMode}
	if _, ok := m.keys[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.keys, id)
	return nil
}
