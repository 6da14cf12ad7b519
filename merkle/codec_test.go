package merkle

import (
	"bytes"
	"testing"
)

func nodeEqual(a, b *Node) bool {
	return a.Size == b.Size &&
		bytes.Equal(a.Data, b.Data) &&
		bytes.Equal(a.LeftChildHash, b.LeftChildHash) &&
		bytes.Equal(a.RightChildHash, b.RightChildHash) &&
		bytes.Equal(a.Hash(), b.Hash())
}

// TestSerializeRoundTrip checks that deserialize(serialize(n)) == n
// field-for-field, including the derived hash.
func TestSerializeRoundTrip(t *testing.T) {
	leaf := NewLeaf([]byte{0xAA})
	internal := NewInternal(leaf, NewLeaf([]byte{0xBB}))

	for name, n := range map[string]*Node{"leaf": leaf, "internal": internal} {
		blob := n.Serialize()
		got, err := DeserializeNode(blob)
		if err != nil {
			t.Fatalf("%s: deserialize: %v", name, err)
		}
		if !nodeEqual(n, got) {
			t.Errorf("%s: round trip mismatch: %+v != %+v", name, n, got)
		}
	}
}

func TestSerializeEmptyData(t *testing.T) {
	leaf := NewLeaf(nil)
	blob := leaf.Serialize()
	got, err := DeserializeNode(blob)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if !nodeEqual(leaf, got) {
		t.Errorf("round trip mismatch for empty-data leaf")
	}
}

func TestDeserializeMalformed(t *testing.T) {
	cases := map[string][]byte{
		"too short":             {0, 0, 0, 0, 0, 0, 0},
		"left len overruns":     append(make([]byte, 8), 0xFF, 0xFF, 0xFF, 0xFF),
		"residual bytes":        append(NewLeaf([]byte{1}).Serialize(), 0x00),
	}
	for name, blob := range cases {
		if _, err := DeserializeNode(blob); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}
