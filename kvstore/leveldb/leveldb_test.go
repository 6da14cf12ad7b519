package leveldb

import (
	"bytes"
	"testing"

	"github.com/jaiminpan/go-mmrtree/kvstore"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMissingKey(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get([]byte("missing")); err != kvstore.ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestBatchVisibleBeforeAndAfterCommit(t *testing.T) {
	s := openTestStore(t)
	if err := s.BatchInsert([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	v, err := s.Get([]byte("k"))
	if err != nil || !bytes.Equal(v, []byte("v")) {
		t.Fatalf("pending write should shadow reads: v=%q err=%v", v, err)
	}

	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	v, err = s.Get([]byte("k"))
	if err != nil || !bytes.Equal(v, []byte("v")) {
		t.Errorf("after commit: v = %q, err = %v", v, err)
	}
}

func TestBatchRollbackDiscardsStagedWrites(t *testing.T) {
	s := openTestStore(t)
	if err := s.Insert([]byte("k"), []byte("committed")); err != nil {
		t.Fatal(err)
	}
	if err := s.BatchInsert([]byte("k"), []byte("staged")); err != nil {
		t.Fatal(err)
	}
	s.Rollback()

	v, err := s.Get([]byte("k"))
	if err != nil || !bytes.Equal(v, []byte("committed")) {
		t.Errorf("after rollback: v = %q, err = %v", v, err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Insert([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	v, err := s2.Get([]byte("k"))
	if err != nil || !bytes.Equal(v, []byte("v")) {
		t.Errorf("after reopen: v = %q, err = %v", v, err)
	}
}

func TestOpenTwiceFails(t *testing.T) {
	dir := t.TempDir()
	s := New()
	if err := s.Open(dir); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Open(dir); err != kvstore.ErrBackendAlreadyOpen {
		t.Errorf("second Open: err = %v, want ErrBackendAlreadyOpen", err)
	}
}

func TestReopenAfterCloseSucceeds(t *testing.T) {
	dir := t.TempDir()
	s := New()
	if err := s.Open(dir); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Open(dir); err != nil {
		t.Errorf("reopen after close: %v", err)
	}
	defer s.Close()
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	s := openTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get([]byte("k")); err != kvstore.ErrBackendClosed {
		t.Errorf("Get on closed store: err = %v, want ErrBackendClosed", err)
	}
}
