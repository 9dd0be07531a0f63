// Package localstore provides durable key-value storage scoped to the local
// profile. It is the persistence home of the cart and a small number of
// transient flags; nothing else writes to its keys.
package localstore

import "errors"

// Well-known keys. KeyCart is written by the cart store only.
const (
	KeyCart               = "cart"
	KeyMustChangePassword = "must_change_password"
)

// ErrClosed signals use of a store after Close.
var ErrClosed = errors.New("localstore: store closed")

// Store is synchronous string key-value storage that survives restarts.
// Get reports presence explicitly so an empty value is distinguishable
// from an absent key.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// MemStore is an in-memory Store for tests and ephemeral sessions.
type MemStore struct {
	values map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

func (m *MemStore) Get(key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemStore) Set(key, value string) error {
	m.values[key] = value
	return nil
}

func (m *MemStore) Remove(key string) error {
	delete(m.values, key)
	return nil
}
