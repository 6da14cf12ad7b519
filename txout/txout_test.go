package txout

import (
	"bytes"
	"testing"

	"github.com/jaiminpan/go-mmrtree/kvstore/memorydb"
)

func TestItemSerializeRoundTrip(t *testing.T) {
	cases := []Item{
		{Version: 1, Height: 100, IsCoinBase: true, IsSpent: false, Script: []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		{Version: 2, Height: 0, IsCoinBase: false, IsSpent: true, Script: nil},
		{Version: 0, Height: ^uint64(0), IsCoinBase: true, IsSpent: true, Script: []byte{}},
	}
	for i, c := range cases {
		blob := c.Serialize()
		got, err := DeserializeItem(blob)
		if err != nil {
			t.Fatalf("case %d: deserialize: %v", i, err)
		}
		if got.Version != c.Version || got.Height != c.Height ||
			got.IsCoinBase != c.IsCoinBase || got.IsSpent != c.IsSpent ||
			!bytes.Equal(got.Script, c.Script) {
			t.Errorf("case %d: round trip mismatch: got %+v, want %+v", i, got, c)
		}
	}
}

func TestDeserializeItemTruncated(t *testing.T) {
	full := Item{Version: 1, Height: 2, Script: []byte{1, 2, 3}}.Serialize()
	for n := 0; n < len(full)-1; n++ {
		if _, err := DeserializeItem(full[:n]); err == nil {
			t.Errorf("truncated at %d bytes: expected error, got nil", n)
		}
	}
}

func TestAppendAndLookup(t *testing.T) {
	store := memorydb.New()
	tr, err := Open(store)
	if err != nil {
		t.Fatal(err)
	}

	txhash := bytes.Repeat([]byte{0x11}, 32)
	item := Item{Version: 1, Height: 10, IsCoinBase: true, Script: []byte("pay-to-script")}
	if err := tr.AppendTxOut(txhash, 0, item); err != nil {
		t.Fatal(err)
	}
	if err := tr.Commit(); err != nil {
		t.Fatal(err)
	}

	idx, found, err := tr.Lookup(txhash, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected outpoint to be found")
	}
	if idx != 0 {
		t.Errorf("leaf index = %d, want 0", idx)
	}

	if _, found, err := tr.Lookup(txhash, 1); err != nil || found {
		t.Errorf("unrelated outpoint: found=%v err=%v, want found=false err=nil", found, err)
	}
}

func TestLookupMultipleOutputs(t *testing.T) {
	store := memorydb.New()
	tr, err := Open(store)
	if err != nil {
		t.Fatal(err)
	}

	tx1 := bytes.Repeat([]byte{0xAA}, 32)
	tx2 := bytes.Repeat([]byte{0xBB}, 32)

	if err := tr.AppendTxOut(tx1, 0, Item{Version: 1, Height: 1}); err != nil {
		t.Fatal(err)
	}
	if err := tr.AppendTxOut(tx1, 1, Item{Version: 1, Height: 1}); err != nil {
		t.Fatal(err)
	}
	if err := tr.AppendTxOut(tx2, 0, Item{Version: 1, Height: 2}); err != nil {
		t.Fatal(err)
	}
	if err := tr.Commit(); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		hash  []byte
		index uint32
		want  uint64
	}{
		{tx1, 0, 0},
		{tx1, 1, 1},
		{tx2, 0, 2},
	}
	for _, c := range cases {
		idx, found, err := tr.Lookup(c.hash, c.index)
		if err != nil || !found {
			t.Fatalf("lookup(%x, %d): found=%v err=%v", c.hash, c.index, found, err)
		}
		if idx != c.want {
			t.Errorf("lookup(%x, %d) = %d, want %d", c.hash, c.index, idx, c.want)
		}
	}
}

func TestLookupNotFoundOnEmptyTree(t *testing.T) {
	tr, err := Open(memorydb.New())
	if err != nil {
		t.Fatal(err)
	}
	_, found, err := tr.Lookup(bytes.Repeat([]byte{0x01}, 32), 0)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("expected not found on empty tree")
	}
}

func TestJSONRendersItemFields(t *testing.T) {
	store := memorydb.New()
	tr, err := Open(store)
	if err != nil {
		t.Fatal(err)
	}
	txhash := bytes.Repeat([]byte{0x22}, 32)
	if err := tr.AppendTxOut(txhash, 0, Item{Version: 1, Height: 5, IsCoinBase: true, Script: []byte{0xCA, 0xFE}}); err != nil {
		t.Fatal(err)
	}
	if err := tr.Commit(); err != nil {
		t.Fatal(err)
	}

	j, err := tr.JSON()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"version":1`, `"height":5`, `"coinbase":true`, `"script":"cafe"`} {
		if !bytes.Contains([]byte(j), []byte(want)) {
			t.Errorf("json = %s, missing %s", j, want)
		}
	}
}
