package merkle

import (
	"crypto/sha256"

	"github.com/jaiminpan/go-mmrtree/kvstore"
)

// HashSize is the length in bytes of every node hash: a 32-byte SHA-256
// digest.
const HashSize = 32

// Node is the immutable content-addressed unit of the tree. A Node is
// never mutated in place after construction: a logical change produces a
// new Node with a new Hash.
type Node struct {
	Size uint64
	Data []byte

	LeftChildHash  []byte
	RightChildHash []byte

	hash []byte
}

// NewLeaf builds a fresh leaf node carrying data. Both child hashes are
// empty and Size is 1.
func NewLeaf(data []byte) *Node {
	n := &Node{Size: 1, Data: data}
	n.updateHash()
	return n
}

// NewInternal builds the parent of left and right. Size is additive.
// Shaping the tree correctly is the caller's job; NewInternal only derives
// size and hash from the two children it's given.
func NewInternal(left, right *Node) *Node {
	n := &Node{
		Size:           left.Size + right.Size,
		LeftChildHash:  left.Hash(),
		RightChildHash: right.Hash(),
	}
	n.updateHash()
	return n
}

// Hash returns the node's content hash, SHA256(left ‖ data ‖ right).
func (n *Node) Hash() []byte {
	return n.hash
}

// IsLeaf reports whether n is a leaf, judged by both child hashes being
// empty; Size is not consulted (for a well-formed node the two agree).
func (n *Node) IsLeaf() bool {
	return len(n.LeftChildHash) == 0 && len(n.RightChildHash) == 0
}

// IsPerfect reports whether n's subtree is a perfect binary tree.
func (n *Node) IsPerfect() bool {
	return isPowerOfTwo(n.Size)
}

func (n *Node) updateHash() {
	h := sha256.New()
	h.Write(n.LeftChildHash)
	h.Write(n.Data)
	h.Write(n.RightChildHash)
	n.hash = h.Sum(nil)
}

// save stages n for persistence, keyed by its content hash.
func (n *Node) save(store kvstore.KeyValueStore) error {
	return store.BatchInsert(n.Hash(), n.Serialize())
}

// erase stages n for deletion from the backend. It is a no-op on the
// backend's part if n was never persisted: BatchRemove of an absent key is
// not an error.
func (n *Node) erase(store kvstore.KeyValueStore) error {
	return store.BatchRemove(n.Hash())
}

// loadNode fetches and deserializes the node stored under hash. It returns
// a *MissingChildError if hash is empty or the backend has no such entry.
func loadNode(store kvstore.KeyValueStore, hash []byte) (*Node, error) {
	if len(hash) == 0 {
		return nil, &MissingChildError{Hash: hash}
	}
	blob, err := store.Get(hash)
	if err == kvstore.ErrNotFound {
		return nil, &MissingChildError{Hash: hash, err: err}
	}
	if err != nil {
		return nil, err
	}
	n, err := DeserializeNode(blob)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// leftChild materializes n's left child from the backend.
func (n *Node) leftChild(store kvstore.KeyValueStore) (*Node, error) {
	return loadNode(store, n.LeftChildHash)
}

// rightChild materializes n's right child from the backend.
func (n *Node) rightChild(store kvstore.KeyValueStore) (*Node, error) {
	return loadNode(store, n.RightChildHash)
}
