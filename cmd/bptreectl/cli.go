package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"bptree"
	"bptree/display"
)

// Cli is a REPL exercising every public Index operation, modeled on
// vchandela-ddia/btree's cli.Cli but extended with UPDATE/DUMP/DOT/SANITY.
type Cli struct {
	scanner   *bufio.Scanner
	ix        *bptree.Index
	keySize   uint32
	valueSize uint32
}

// NewCli wraps ix for interactive use; keySize/valueSize are needed to
// pad/validate operator-typed keys and values to the tree's fixed width.
func NewCli(s *bufio.Scanner, ix *bptree.Index, keySize, valueSize uint32) *Cli {
	return &Cli{scanner: s, ix: ix, keySize: keySize, valueSize: valueSize}
}

// Start runs the REPL until EXIT or EOF.
func (c *Cli) Start() {
	c.printHelp()
	c.printPrompt()
	for c.scanner.Scan() {
		c.processInput(c.scanner.Text())
		c.printPrompt()
	}
}

func (c *Cli) printHelp() {
	fmt.Println(`
B+-Tree CLI

Available Commands:
  SET <key> <val>   Insert a key-value pair
  UPDATE <key> <val> Overwrite the value for an existing key
  GET <key>         Retrieve the value for a key
  DEL <key>         Remove a key (currently unimplemented)
  DUMP              Depth-first dump of the tree
  DOT               Graphviz dump of the tree
  SANITY            Check every structural invariant
  EXIT              Terminate this session`)
}

func (c *Cli) printPrompt() {
	color.New(color.FgCyan).Print("> ")
}

func (c *Cli) processInput(line string) {
	fields := strings.Fields(line)
	if len(fields) < 1 {
		return
	}
	command := strings.ToLower(fields[0])
	switch command {
	case "set":
		c.processSet(fields[1:])
	case "update":
		c.processUpdate(fields[1:])
	case "get":
		c.processGet(fields[1:])
	case "del":
		c.processDelete(fields[1:])
	case "dump":
		c.processDisplay(display.Depth)
	case "dot":
		c.processDisplay(display.DepthDot)
	case "sanity":
		c.processSanity()
	case "exit":
		os.Exit(0)
	default:
		c.errorf("unknown command %q", command)
	}
}

func (c *Cli) pad(s, label string, size uint32) ([]byte, bool) {
	if len(s) > int(size) {
		c.errorf("%s %q is longer than the configured width %d", label, s, size)
		return nil, false
	}
	b := make([]byte, size)
	copy(b, s)
	return b, true
}

func (c *Cli) processSet(args []string) {
	if len(args) != 2 {
		fmt.Println("Usage: SET <key> <value>")
		return
	}
	key, ok := c.pad(args[0], "key", c.keySize)
	if !ok {
		return
	}
	value, ok := c.pad(args[1], "value", c.valueSize)
	if !ok {
		return
	}
	if err := c.ix.Insert(key, value); err != nil {
		c.errorf("%v", err)
		return
	}
	c.success("inserted")
}

func (c *Cli) processUpdate(args []string) {
	if len(args) != 2 {
		fmt.Println("Usage: UPDATE <key> <value>")
		return
	}
	key, ok := c.pad(args[0], "key", c.keySize)
	if !ok {
		return
	}
	value, ok := c.pad(args[1], "value", c.valueSize)
	if !ok {
		return
	}
	if err := c.ix.Update(key, value); err != nil {
		c.errorf("%v", err)
		return
	}
	c.success("updated")
}

func (c *Cli) processGet(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: GET <key>")
		return
	}
	key, ok := c.pad(args[0], "key", c.keySize)
	if !ok {
		return
	}
	value, err := c.ix.Lookup(key)
	if err != nil {
		c.errorf("%v", err)
		return
	}
	fmt.Println(strings.TrimRight(string(value), "\x00"))
}

func (c *Cli) processDelete(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: DEL <key>")
		return
	}
	key, ok := c.pad(args[0], "key", c.keySize)
	if !ok {
		return
	}
	if err := c.ix.Delete(key); err != nil {
		c.errorf("%v", err)
		return
	}
	c.success("deleted")
}

func (c *Cli) processDisplay(mode display.Mode) {
	if err := c.ix.Display(os.Stdout, mode); err != nil {
		c.errorf("%v", err)
	}
}

func (c *Cli) processSanity() {
	if err := c.ix.SanityCheck(); err != nil {
		c.errorf("%v", err)
		return
	}
	c.success("tree is sane")
}

func (c *Cli) success(msg string) {
	color.New(color.FgGreen).Println(msg)
}

func (c *Cli) errorf(format string, args ...interface{}) {
	color.New(color.FgRed).Printf(format+"\n", args...)
}
