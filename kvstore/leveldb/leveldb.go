// Package leveldb is the concrete, persistent kvstore.KeyValueStore
// implementation: an embedded LSM-style store (goleveldb) with atomic
// batched writes.
package leveldb

import (
	"bytes"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jaiminpan/go-mmrtree/kvstore"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Store wraps a goleveldb database. It keeps the pending batch
// (goleveldb's own leveldb.Batch has no read path) alongside an in-memory
// shadow map so Get can serve the session view before anything is flushed
// with Write.
type Store struct {
	lock sync.RWMutex

	db *leveldb.DB

	batch   *leveldb.Batch
	pending map[string][]byte
	deleted map[string]struct{}
}

// New returns an unopened Store.
func New() *Store {
	return &Store{}
}

// Open opens (creating if absent) the LevelDB database at dir. It returns
// kvstore.ErrBackendAlreadyOpen if called on a Store that is already open.
func (s *Store) Open(dir string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.db != nil {
		return kvstore.ErrBackendAlreadyOpen
	}

	db, err := leveldb.OpenFile(dir, &opt.Options{})
	if err != nil {
		return err
	}
	s.db = db
	s.batch = new(leveldb.Batch)
	s.pending = make(map[string][]byte)
	s.deleted = make(map[string]struct{})
	log.Info("opened leveldb backend", "dir", dir)
	return nil
}

// Open is a convenience constructor combining New and (*Store).Open.
func Open(dir string) (*Store, error) {
	s := New()
	if err := s.Open(dir); err != nil {
		return nil, err
	}
	return s, nil
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

	if s.db == nil {
		return nil, kvstore.ErrBackendClosed
	}
	k := string(key)
	if _, ok := s.deleted[k]; ok {
		return nil, kvstore.ErrNotFound
	}
	if v, ok := s.pending[k]; ok {
		return bytes.Clone(v), nil
	}
	v, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, kvstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Store) Insert(key, value []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.db == nil {
		return kvstore.ErrBackendClosed
	}
	return s.db.Put(key, value, nil)
}

func (s *Store) Remove(key []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.db == nil {
		return kvstore.ErrBackendClosed
	}
	return s.db.Delete(key, nil)
}

func (s *Store) BatchInsert(key, value []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.db == nil {
		return kvstore.ErrBackendClosed
	}
	k := string(key)
	delete(s.deleted, k)
	v := bytes.Clone(value)
	s.pending[k] = v
	s.batch.Put(key, v)
	return nil
}

func (s *Store) BatchRemove(key []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.db == nil {
		return kvstore.ErrBackendClosed
	}
	k := string(key)
	delete(s.pending, k)
	s.deleted[k] = struct{}{}
	s.batch.Delete(key)
	return nil
}

// Commit performs one atomic backend write for every staged operation.
func (s *Store) Commit() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.db == nil {
		return kvstore.ErrBackendClosed
	}
	if s.batch.Len() == 0 {
		return nil
	}
	if err := s.db.Write(s.batch, nil); err != nil {
		return err
	}
	s.batch.Reset()
	s.pending = make(map[string][]byte)
	s.deleted = make(map[string]struct{})
	return nil
}

func (s *Store) Rollback() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.batch.Reset()
	s.pending = make(map[string][]byte)
	s.deleted = make(map[string]struct{})
}

func (s *Store) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.db == nil {
		return nil
	}
	s.batch.Reset()
	s.pending = make(map[string][]byte)
	s.deleted = make(map[string]struct{})
	err := s.db.Close()
	s.db = nil
	return err
}

var _ kvstore.KeyValueStore = (*Store)(nil)
