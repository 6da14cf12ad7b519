// Command mmrtree is the reference driver for the merkle package: a thin
// CLI that lets a caller grow/shrink a tree persisted in a single LevelDB
// directory and inspect its shape.
//
// Usage:
//
//	mmrtree <item>...   append/remove items then commit and dump the tree
//	mmrtree p <i>       print the path to leaf i as a string of L/R
//
// Each <item> is either "-" (pop the most recently appended leaf) or a
// hex string (append it as a new leaf's payload).
package main

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jaiminpan/go-mmrtree/merkle"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning a process exit code, so the
// CLI surface can be exercised without forking a subprocess.
func run(args []string) int {
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, slog.LevelInfo, true)))

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: mmrtree <item>...   |   mmrtree p <i>")
		return -1
	}

	dataDir := os.Getenv("MMRTREE_DATADIR")
	if dataDir == "" {
		dataDir = "mmrtree-data"
	}

	store, err := openStore(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mmrtree: open store: %v\n", err)
		return -2
	}
	defer store.Close()

	tree, err := merkle.Open(store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mmrtree: open tree: %v\n", err)
		return -2
	}

	if args[0] == "p" {
		return runPath(tree, args[1:])
	}
	return runMutate(tree, args)
}

func runPath(tree *merkle.Tree, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: mmrtree p <i>")
		return -1
	}
	var i uint64
	if _, err := fmt.Sscanf(args[0], "%d", &i); err != nil {
		fmt.Fprintf(os.Stderr, "mmrtree: invalid index %q\n", args[0])
		return -1
	}

	path, err := tree.Path(i)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mmrtree: %v\n", err)
		return -2
	}
	fmt.Println(merkle.PathString(path))
	return 0
}

func runMutate(tree *merkle.Tree, items []string) int {
	for _, item := range items {
		var err error
		if item == "-" {
			err = tree.RemoveItem()
		} else {
			var data []byte
			data, err = hex.DecodeString(item)
			if err == nil {
				err = tree.AppendItem(data)
			}
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "mmrtree: %v\n", err)
			if rbErr := tree.Rollback(); rbErr != nil {
				log.Error("rollback after failed mutation also failed", "err", rbErr)
			}
			return -2
		}
	}

	if err := tree.Commit(); err != nil {
		fmt.Fprintf(os.Stderr, "mmrtree: commit: %v\n", err)
		return -2
	}

	j, err := tree.JSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mmrtree: json: %v\n", err)
		return -2
	}
	fmt.Println(j)
	return 0
}
