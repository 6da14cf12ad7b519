package main

import (
	"github.com/jaiminpan/go-mmrtree/kvstore"
	"github.com/jaiminpan/go-mmrtree/kvstore/leveldb"
)

// openStore opens the on-disk backend the CLI drives. Kept separate from
// main's flow so swapping in another kvstore.KeyValueStore later only
// touches this one function.
func openStore(dir string) (kvstore.KeyValueStore, error) {
	return leveldb.Open(dir)
}
