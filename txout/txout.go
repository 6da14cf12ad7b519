// Package txout specializes merkle.Tree to hold unspent-transaction-output
// records, adding a secondary index from (txhash, txindex) outpoints to
// leaf positions.
package txout

import (
	"encoding/binary"
	"fmt"

	"github.com/jaiminpan/go-mmrtree/kvstore"
	"github.com/jaiminpan/go-mmrtree/merkle"
)

// Item is a single unspent-transaction-output record, the leaf payload of
// a Tree. Its wire format:
//
//	version  : u32 (4 B)
//	height   : u64 (8 B)
//	flags    : u8  (1 B)   bit0 = coinbase, bit1 = spent
//	scriptlen: u64 (8 B)
//	script   : scriptlen bytes
type Item struct {
	Version    uint32
	Height     uint64
	IsCoinBase bool
	IsSpent    bool
	Script     []byte
}

// Serialize encodes the item per the layout above.
func (it Item) Serialize() []byte {
	buf := make([]byte, 4+8+1+8+len(it.Script))
	pos := 0
	binary.BigEndian.PutUint32(buf[pos:], it.Version)
	pos += 4
	binary.BigEndian.PutUint64(buf[pos:], it.Height)
	pos += 8

	var flags byte
	if it.IsCoinBase {
		flags |= 0x01
	}
	if it.IsSpent {
		flags |= 0x02
	}
	buf[pos] = flags
	pos++

	binary.BigEndian.PutUint64(buf[pos:], uint64(len(it.Script)))
	pos += 8
	copy(buf[pos:], it.Script)
	return buf
}

// DeserializeItem decodes an Item from its serialized form, failing if any
// field overruns the input.
func DeserializeItem(buf []byte) (Item, error) {
	var it Item
	pos := 0

	if len(buf)-pos < 4 {
		return it, fmt.Errorf("txout: invalid item: version field overruns input")
	}
	it.Version = binary.BigEndian.Uint32(buf[pos:])
	pos += 4

	if len(buf)-pos < 8 {
		return it, fmt.Errorf("txout: invalid item: height field overruns input")
	}
	it.Height = binary.BigEndian.Uint64(buf[pos:])
	pos += 8

	if len(buf)-pos < 1 {
		return it, fmt.Errorf("txout: invalid item: flags field overruns input")
	}
	flags := buf[pos]
	it.IsCoinBase = flags&0x01 != 0
	it.IsSpent = flags&0x02 != 0
	pos++

	if len(buf)-pos < 8 {
		return it, fmt.Errorf("txout: invalid item: scriptlen field overruns input")
	}
	scriptLen := binary.BigEndian.Uint64(buf[pos:])
	pos += 8

	if uint64(len(buf)-pos) < scriptLen {
		return it, fmt.Errorf("txout: invalid item: script field overruns input")
	}
	it.Script = append([]byte(nil), buf[pos:pos+int(scriptLen)]...)
	return it, nil
}

// Tree is a merkle.Tree specialized to hold Items, with an outpoint index
// keyed by txhash ‖ be32(txindex) → be64(leaf position).
type Tree struct {
	*merkle.Tree
}

// Open binds a Tree to store (see merkle.Open).
func Open(store kvstore.KeyValueStore) (*Tree, error) {
	t, err := merkle.Open(store)
	if err != nil {
		return nil, err
	}
	return &Tree{Tree: t}, nil
}

func outpointKey(txhash []byte, txindex uint32) []byte {
	key := make([]byte, len(txhash)+4)
	copy(key, txhash)
	binary.BigEndian.PutUint32(key[len(txhash):], txindex)
	return key
}

// AppendTxOut appends item as a new leaf and stages the outpoint index
// entry pointing at its leaf position (its 0-based insertion index, which
// is the tree's size before this append).
func (t *Tree) AppendTxOut(txhash []byte, txindex uint32, item Item) error {
	leafIndex := t.Size()

	if err := t.AppendItem(item.Serialize()); err != nil {
		return err
	}

	indexValue := make([]byte, 8)
	binary.BigEndian.PutUint64(indexValue, leafIndex)
	return t.Store().BatchInsert(outpointKey(txhash, txindex), indexValue)
}

// Lookup resolves an outpoint to the leaf index it was appended at.
func (t *Tree) Lookup(txhash []byte, txindex uint32) (leafIndex uint64, found bool, err error) {
	v, err := t.Store().Get(outpointKey(txhash, txindex))
	if err == kvstore.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(v) != 8 {
		return 0, false, fmt.Errorf("txout: malformed outpoint index entry for %x:%d", txhash, txindex)
	}
	return binary.BigEndian.Uint64(v), true, nil
}

// JSON renders the tree, unpacking leaf payloads as Items. If a leaf
// doesn't decode as an Item, its entry falls back to an "error" field.
func (t *Tree) JSON() (string, error) {
	return t.JSONWithRenderer(renderTxOutLeaf)
}

func renderTxOutLeaf(n *merkle.Node) string {
	item, err := DeserializeItem(n.Data)
	if err != nil {
		return fmt.Sprintf(`"error":"%s"`, err.Error())
	}
	return fmt.Sprintf(
		`"version":%d,"height":%d,"coinbase":%t,"spent":%t,"script":"%x"`,
		item.Version, item.Height, item.IsCoinBase, item.IsSpent, item.Script,
	)
}
