package merkle

import (
	"errors"
	"fmt"
)

// ErrEmptyTree is returned by RemoveItem on a tree of size 0.
var ErrEmptyTree = errors.New("merkle: tree is empty")

// ErrIndexOutOfRange is returned by Path when i >= Size.
var ErrIndexOutOfRange = errors.New("merkle: index out of range")

// ErrBadMerge indicates an appendTree invariant violation: the incoming
// subtree is larger than the one it's merging into, or an equal-size
// merge where the left operand isn't perfect. Seeing this means a bug or
// a corrupted store.
var ErrBadMerge = errors.New("merkle: bad merge")

// MalformedNodeError reports a node serialization whose encoding is
// invalid: a length prefix overran the input, or residual bytes remained.
type MalformedNodeError struct {
	Reason string
}

func (e *MalformedNodeError) Error() string {
	return fmt.Sprintf("merkle: malformed node: %s", e.Reason)
}

// MissingChildError reports an attempt to traverse into a child whose
// hash is empty, or whose hash has no corresponding entry in the backend.
// It carries the hash plus the underlying cause, if any, and implements
// Unwrap so callers can errors.Is(err, kvstore.ErrNotFound) through it.
type MissingChildError struct {
	Hash []byte
	err  error
}

func (e *MissingChildError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("merkle: missing child %x: %v", e.Hash, e.err)
	}
	return fmt.Sprintf("merkle: missing child %x", e.Hash)
}

func (e *MissingChildError) Unwrap() error {
	return e.err
}
