// Package memorydb is an in-memory kvstore.KeyValueStore. It is the
// reference backend used by the merkle package's own tests and is suitable
// anywhere persistence across process restarts isn't required.
package memorydb

import (
	"bytes"
	"sync"

	"github.com/jaiminpan/go-mmrtree/kvstore"
)

// Store is an ephemeral key-value store. Apart from basic point-read/write
// functionality it also supports the batched session view required by
// kvstore.KeyValueStore.
type Store struct {
	lock sync.RWMutex

	committed map[string][]byte

	// pending is the session view: staged writes shadow committed reads,
	// and keys present in deleted are reported absent regardless of what
	// committed holds.
	pending map[string][]byte
	deleted map[string]struct{}

	closed bool
}

// New returns an open, empty Store.
func New() *Store {
	return &Store{
		committed: make(map[string][]byte),
		pending:   make(map[string][]byte),
		deleted:   make(map[string]struct{}),
	}
}

func (s *Store) Has(key []byte) (bool, error) {
	_, err := s.Get(key)
	if err == kvstore.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.closed {
		return nil, kvstore.ErrBackendClosed
	}
	k := string(key)
	if _, ok := s.deleted[k]; ok {
		return nil, kvstore.ErrNotFound
	}
	if v, ok := s.pending[k]; ok {
		return bytes.Clone(v), nil
	}
	if v, ok := s.committed[k]; ok {
		return bytes.Clone(v), nil
	}
	return nil, kvstore.ErrNotFound
}

func (s *Store) Insert(key, value []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return kvstore.ErrBackendClosed
	}
	s.committed[string(key)] = bytes.Clone(value)
	return nil
}

func (s *Store) Remove(key []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return kvstore.ErrBackendClosed
	}
	delete(s.committed, string(key))
	return nil
}

func (s *Store) BatchInsert(key, value []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return kvstore.ErrBackendClosed
	}
	k := string(key)
	delete(s.deleted, k)
	s.pending[k] = bytes.Clone(value)
	return nil
}

func (s *Store) BatchRemove(key []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return kvstore.ErrBackendClosed
	}
	k := string(key)
	delete(s.pending, k)
	s.deleted[k] = struct{}{}
	return nil
}

func (s *Store) Commit() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return kvstore.ErrBackendClosed
	}
	for k, v := range s.pending {
		s.committed[k] = v
	}
	for k := range s.deleted {
		delete(s.committed, k)
	}
	s.pending = make(map[string][]byte)
	s.deleted = make(map[string]struct{})
	return nil
}

func (s *Store) Rollback() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.pending = make(map[string][]byte)
	s.deleted = make(map[string]struct{})
}

func (s *Store) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.closed = true
	s.pending = make(map[string][]byte)
	s.deleted = make(map[string]struct{})
	return nil
}

var _ kvstore.KeyValueStore = (*Store)(nil)
