package merkle

import "encoding/binary"

// Serialize produces the node's deterministic binary layout:
//
//	size              : u64 (8 B)
//	left_len          : u32 (4 B)
//	left_child_hash   : left_len bytes
//	data_len          : u32 (4 B)
//	data              : data_len bytes
//	right_len         : u32 (4 B)
//	right_child_hash  : right_len bytes
//
// All integers are big-endian. The hash itself is never part of the
// serialized form; it is re-derived on load.
func (n *Node) Serialize() []byte {
	total := 8 + 4 + len(n.LeftChildHash) + 4 + len(n.Data) + 4 + len(n.RightChildHash)
	buf := make([]byte, total)

	pos := 0
	binary.BigEndian.PutUint64(buf[pos:], n.Size)
	pos += 8

	binary.BigEndian.PutUint32(buf[pos:], uint32(len(n.LeftChildHash)))
	pos += 4
	pos += copy(buf[pos:], n.LeftChildHash)

	binary.BigEndian.PutUint32(buf[pos:], uint32(len(n.Data)))
	pos += 4
	pos += copy(buf[pos:], n.Data)

	binary.BigEndian.PutUint32(buf[pos:], uint32(len(n.RightChildHash)))
	pos += 4
	pos += copy(buf[pos:], n.RightChildHash)

	return buf
}

// DeserializeNode parses the wire format produced by Serialize and
// re-derives the node's hash. It fails with a *MalformedNodeError if any
// length prefix overruns the input or residual bytes remain after the
// right-child hash.
func DeserializeNode(buf []byte) (*Node, error) {
	n := &Node{}
	pos := 0

	size, err := readU64(buf, &pos)
	if err != nil {
		return nil, err
	}
	n.Size = size

	left, err := readLenPrefixed(buf, &pos)
	if err != nil {
		return nil, err
	}
	n.LeftChildHash = left

	data, err := readLenPrefixed(buf, &pos)
	if err != nil {
		return nil, err
	}
	n.Data = data

	right, err := readLenPrefixed(buf, &pos)
	if err != nil {
		return nil, err
	}
	n.RightChildHash = right

	if pos != len(buf) {
		return nil, &MalformedNodeError{Reason: "residual bytes after right child hash"}
	}

	n.updateHash()
	return n, nil
}

func readU64(buf []byte, pos *int) (uint64, error) {
	if len(buf)-*pos < 8 {
		return 0, &MalformedNodeError{Reason: "size field overruns input"}
	}
	v := binary.BigEndian.Uint64(buf[*pos:])
	*pos += 8
	return v, nil
}

func readLenPrefixed(buf []byte, pos *int) ([]byte, error) {
	if len(buf)-*pos < 4 {
		return nil, &MalformedNodeError{Reason: "length prefix overruns input"}
	}
	l := binary.BigEndian.Uint32(buf[*pos:])
	*pos += 4
	if uint64(len(buf)-*pos) < uint64(l) {
		return nil, &MalformedNodeError{Reason: "length-prefixed field overruns input"}
	}
	start := *pos
	*pos += int(l)
	if l == 0 {
		return nil, nil
	}
	out := make([]byte, l)
	copy(out, buf[start:*pos])
	return out, nil
}
