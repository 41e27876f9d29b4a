// Package keyring keeps the server RSA keys trusted for the key exchange.
package keyring

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ZentaChain/zentalk-mtproto/pkg/crypto"
)

var (
	ErrDuplicateKey = errors.New("duplicate key fingerprint")
)

// Registry maps key fingerprints to public keys
type Registry struct {
	keys map[uint64]*crypto.PublicKey
}

// NewRegistry builds a registry from keys
func NewRegistry(keys ...*crypto.PublicKey) (*Registry, error) {
	r := &Registry{keys: make(map[uint64]*crypto.PublicKey, len(keys))}
	for _, k := range keys {
		fp := k.Fingerprint()
		if _, ok := r.keys[fp]; ok {
			return nil, fmt.Errorf("%w: %016x", ErrDuplicateKey, fp)
		}
		r.keys[fp] = k
	}
	return r, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry of published production and CDN keys
func Default() *Registry {
	defaultOnce.Do(func() {
		e := big.NewInt(65537)
		keys := make([]*crypto.PublicKey, 0, len(defaultModuli))
		for _, m := range defaultModuli {
			n, ok := new(big.Int).SetString(m.modulus, 16)
			if !ok {
				panic("keyring: malformed built-in modulus for " + m.name)
			}
			keys = append(keys, crypto.NewPublicKey(n, e))
		}

		r, err := NewRegistry(keys...)
		if err != nil {
			panic(err)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// LoadFile builds a registry from every RSA public key in a PEM file
func LoadFile(path string) (*Registry, error) {
	data, err := crypto.LoadKeyFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	keys, err := crypto.ParsePublicKeysPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key file %s: %w", path, err)
	}
	return NewRegistry(keys...)
}

// Find returns the key with the given fingerprint
func (r *Registry) Find(fingerprint uint64) (*crypto.PublicKey, bool) {
	k, ok := r.keys[fingerprint]
	return k, ok
}

// FindAny returns the first known key in the server's preference order
func (r *Registry) FindAny(fingerprints []uint64) (*crypto.PublicKey, bool) {
	for _, fp := range fingerprints {
		if k, ok := r.keys[fp]; ok {
			return k, true
		}
	}
	return nil, false
}

// Fingerprints returns all known fingerprints in ascending order
func (r *Registry) Fingerprints() []uint64 {
	fps := make([]uint64, 0, len(r.keys))
	for fp := range r.keys {
		fps = append(fps, fp)
	}
	sort.Slice(fps, func(i, j int) bool { return fps[i] < fps[j] })
	return fps
}

// Len returns the number of keys
func (r *Registry) Len() int {
	return len(r.keys)
}
