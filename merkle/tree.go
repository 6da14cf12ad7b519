// Package merkle implements an append-only, content-addressed Merkle
// Mountain Range: a forest of perfect binary subtrees welded left-deep
// into a single root, with every node persisted under the hash of its
// content in a pluggable kvstore.KeyValueStore.
package merkle

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jaiminpan/go-mmrtree/kvstore"
)

// sentinelKey is the reserved empty-byte key holding the current root
// hash, or an empty value if the tree is empty.
var sentinelKey = []byte{}

// Tree owns a backend handle and an in-memory handle to the current root
// node. The backend's own pending batch is the session: there is no
// separate dirty-node cache layered on top of it.
type Tree struct {
	store kvstore.KeyValueStore
	root  *Node
}

// Open binds a Tree to store, seeding the sentinel key immediately,
// outside the batch, if this is the first time store has been opened, so
// the sentinel exists even if the first session is rolled back. If the
// sentinel is already present, Open loads the existing root instead.
func Open(store kvstore.KeyValueStore) (*Tree, error) {
	t := &Tree{store: store}

	rootHash, err := store.Get(sentinelKey)
	if err == kvstore.ErrNotFound {
		if err := store.Insert(sentinelKey, nil); err != nil {
			return nil, err
		}
		log.Debug("mmr: seeded empty sentinel")
		return t, nil
	}
	if err != nil {
		return nil, err
	}
	if len(rootHash) == 0 {
		return t, nil
	}
	root, err := loadNode(store, rootHash)
	if err != nil {
		return nil, err
	}
	t.root = root
	log.Debug("mmr: reopened tree", "size", root.Size, "root", fmt.Sprintf("%x", root.Hash()))
	return t, nil
}

// Store exposes the underlying backend so domain layers (e.g. txout) can
// stage their own entries in the same session.
func (t *Tree) Store() kvstore.KeyValueStore {
	return t.store
}

// Close releases the backend, discarding any uncommitted batch.
func (t *Tree) Close() error {
	return t.store.Close()
}

// Size returns the current leaf count, 0 for an empty tree.
func (t *Tree) Size() uint64 {
	if t.root == nil {
		return 0
	}
	return t.root.Size
}

// RootHash returns the current root's content hash, or an empty slice if
// the tree is empty.
func (t *Tree) RootHash() []byte {
	if t.root == nil {
		return nil
	}
	return t.root.Hash()
}

// Commit atomically flushes every staged save/erase since the last
// Commit/Rollback, including the re-staged sentinel.
func (t *Tree) Commit() error {
	if err := t.store.Commit(); err != nil {
		return err
	}
	log.Debug("mmr: committed", "size", t.Size(), "root", fmt.Sprintf("%x", t.RootHash()))
	return nil
}

// Rollback discards the pending batch and restores t.root to mirror the
// last committed sentinel, undoing any in-memory effect of the mutations
// since the last Commit/Rollback (P7).
func (t *Tree) Rollback() error {
	t.store.Rollback()

	rootHash, err := t.store.Get(sentinelKey)
	if err != nil {
		return err
	}
	if len(rootHash) == 0 {
		t.root = nil
		return nil
	}
	root, err := loadNode(t.store, rootHash)
	if err != nil {
		return err
	}
	t.root = root
	return nil
}

func (t *Tree) stageSentinel(root *Node) error {
	if root == nil {
		return t.store.BatchInsert(sentinelKey, nil)
	}
	return t.store.BatchInsert(sentinelKey, root.Hash())
}

// AppendItem appends a new leaf carrying data, reshaping the forest of
// perfect subtrees to reflect the new leaf count.
func (t *Tree) AppendItem(data []byte) error {
	leaf := NewLeaf(data)
	if err := leaf.save(t.store); err != nil {
		return err
	}

	newRoot := leaf
	if t.root != nil {
		var err error
		newRoot, err = appendItem(t.store, t.root, leaf)
		if err != nil {
			return err
		}
	}
	if err := t.stageSentinel(newRoot); err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

// appendItem merges leaf into the non-empty subtree rooted at r, returning
// the new subtree root.
func appendItem(store kvstore.KeyValueStore, r, leaf *Node) (*Node, error) {
	s := r.Size

	if s == 1 || s%2 == 0 {
		parent := NewInternal(r, leaf)
		if err := parent.save(store); err != nil {
			return nil, err
		}
		return parent, nil
	}

	// s is odd and > 1: r's right subtree is the active ragged tail.
	rightOld, err := r.rightChild(store)
	if err != nil {
		return nil, err
	}
	rPrime, err := appendItem(store, rightOld, leaf)
	if err != nil {
		return nil, err
	}
	// r is erased only after the recursion above has resolved, so any
	// lookup inside that recursion for r's own hash still sees the old
	// value.
	if err := r.erase(store); err != nil {
		return nil, err
	}
	leftOld, err := r.leftChild(store)
	if err != nil {
		return nil, err
	}
	return appendTree(store, leftOld, rPrime)
}

// appendTree combines an existing subtree t (the left-dominant, larger-
// or-equal part) with an incoming subtree u, where size(u) <= size(t).
func appendTree(store kvstore.KeyValueStore, t, u *Node) (*Node, error) {
	if t.Size < u.Size {
		return nil, ErrBadMerge
	}

	if t.Size&u.Size == 0 {
		parent := NewInternal(t, u)
		if err := parent.save(store); err != nil {
			return nil, err
		}
		return parent, nil
	}

	if t.Size == u.Size {
		if !t.IsPerfect() {
			return nil, ErrBadMerge
		}
		parent := NewInternal(t, u)
		if err := parent.save(store); err != nil {
			return nil, err
		}
		return parent, nil
	}

	// t.Size > u.Size and some rank of u collides with a rank in t.
	if err := t.erase(store); err != nil {
		return nil, err
	}
	rightT, err := t.rightChild(store)
	if err != nil {
		return nil, err
	}
	rPrime, err := appendTree(store, rightT, u)
	if err != nil {
		return nil, err
	}
	leftT, err := t.leftChild(store)
	if err != nil {
		return nil, err
	}
	return appendTree(store, leftT, rPrime)
}

// RemoveItem removes the most-recently appended leaf, restoring the
// forest shape for the new, smaller leaf count.
func (t *Tree) RemoveItem() error {
	if t.root == nil {
		return ErrEmptyTree
	}
	newRoot, err := removeItem(t.store, t.root)
	if err != nil {
		return err
	}
	if err := t.stageSentinel(newRoot); err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

func removeItem(store kvstore.KeyValueStore, r *Node) (*Node, error) {
	if r.IsLeaf() {
		if err := r.erase(store); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := r.erase(store); err != nil {
		return nil, err
	}
	l, err := r.leftChild(store)
	if err != nil {
		return nil, err
	}
	c, err := r.rightChild(store)
	if err != nil {
		return nil, err
	}

	for c.Size != 1 {
		cLeft, err := c.leftChild(store)
		if err != nil {
			return nil, err
		}
		newL := NewInternal(l, cLeft)
		if err := newL.save(store); err != nil {
			return nil, err
		}
		l = newL

		cRight, err := c.rightChild(store)
		if err != nil {
			return nil, err
		}
		if err := c.erase(store); err != nil {
			return nil, err
		}
		c = cRight
	}
	// c is now the dangling leaf; it is erased here exactly once, never
	// inside the loop above.
	if err := c.erase(store); err != nil {
		return nil, err
	}
	return l, nil
}

// Path derives the root-to-leaf walk to the i-th leaf (0-based insertion
// order), false meaning "descend left" and true "descend right".
func (t *Tree) Path(i uint64) ([]bool, error) {
	n := t.Size()
	if t.root == nil || i >= n {
		return nil, ErrIndexOutOfRange
	}

	reversedI := n - i - 1
	lsb := lsb64(n)

	var path []bool
	for reversedI >= lsb {
		path = append(path, false)
		reversedI -= lsb
		n -= lsb
		lsb = lsb64(n)
	}
	if !isPowerOfTwo(n) {
		path = append(path, true)
	}
	for lsb >>= 1; lsb > 0; lsb >>= 1 {
		path = append(path, (reversedI&lsb) == 0)
	}
	return path, nil
}

// PathString renders a Path result as a string of 'L'/'R' characters, the
// format the CLI's "p <i>" mode prints.
func PathString(path []bool) string {
	var b strings.Builder
	for _, right := range path {
		if right {
			b.WriteByte('R')
		} else {
			b.WriteByte('L')
		}
	}
	return b.String()
}

// LeafRenderer produces the JSON fields (other than "size" and "hash")
// for a leaf node. Domain layers (e.g. txout) supply one to unpack their
// payload instead of emitting the raw hex data.
type LeafRenderer func(n *Node) string

// DefaultLeafRenderer renders a leaf's raw payload as a hex-encoded
// "data" field.
func DefaultLeafRenderer(n *Node) string {
	return fmt.Sprintf(`"data":"%x"`, n.Data)
}

// JSON renders the tree using DefaultLeafRenderer.
func (t *Tree) JSON() (string, error) {
	return t.JSONWithRenderer(DefaultLeafRenderer)
}

// JSONWithRenderer renders the tree, delegating leaf rendering to render.
func (t *Tree) JSONWithRenderer(render LeafRenderer) (string, error) {
	return renderNode(t.store, t.root, render)
}

func renderNode(store kvstore.KeyValueStore, n *Node, render LeafRenderer) (string, error) {
	if n == nil {
		return "null", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, `{"size":%d,"hash":"%x"`, n.Size, n.Hash())

	if n.IsLeaf() {
		b.WriteByte(',')
		b.WriteString(render(n))
	} else {
		left, err := n.leftChild(store)
		if err != nil {
			return "", err
		}
		right, err := n.rightChild(store)
		if err != nil {
			return "", err
		}
		leftJSON, err := renderNode(store, left, render)
		if err != nil {
			return "", err
		}
		rightJSON, err := renderNode(store, right, render)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, `,"left":%s,"right":%s`, leftJSON, rightJSON)
	}

	b.WriteByte('}')
	return b.String(), nil
}
