// Command bptreectl is an interactive REPL exercising the B+-tree index
// end to end, in the spirit of the original implementation's role as a
// teaching tool.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"bptree"
	"bptree/blocks"
	"bptree/store"
	"bptree/store/filedev"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	path := flag.String("db", "bptree.db", "path to the backing file")
	keySize := flag.Uint("keysize", 8, "key width in bytes")
	valueSize := flag.Uint("valuesize", 8, "value width in bytes")
	blockSize := flag.Int64("blocksize", 4096, "block size in bytes")
	numBlocks := flag.Int64("blocks", 256, "number of blocks to allocate on create")
	cacheSize := flag.Int64("cachesize", 1<<20, "cache size in bytes")
	create := flag.Bool("create", false, "format a fresh tree, discarding any existing file contents")
	flag.Parse()

	dev, err := openDevice(*path, *blockSize, *numBlocks, *create)
	if err != nil {
		return err
	}

	st, err := store.Open(dev, *blockSize)
	if err != nil {
		return err
	}

	ix, err := bptree.New(uint32(*keySize), uint32(*valueSize), st, *cacheSize, true)
	if err != nil {
		return err
	}
	if err := ix.Attach(blocks.NullAddress, *create); err != nil {
		return err
	}
	defer func() {
		if err := ix.Detach(); err != nil {
			fmt.Fprintln(os.Stderr, errors.WithMessage(err, "detach"))
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	cli := NewCli(scanner, ix, uint32(*keySize), uint32(*valueSize))
	cli.Start()
	return nil
}

// openDevice opens path for read/write, truncating it to hold numBlocks
// blocks of blockSize when create is set.
func openDevice(path string, blockSize, numBlocks int64, create bool) (*filedev.FileDevice, error) {
	if create {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if err := f.Truncate(blockSize * numBlocks); err != nil {
			return nil, errors.WithStack(err)
		}
		return filedev.New(f)
	}
	return filedev.Open(path)
}
