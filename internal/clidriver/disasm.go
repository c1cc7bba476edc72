package clidriver

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mna/mainer"

	"github.com/kristofer/wisp/pkg/compiler"
	"github.com/kristofer/wisp/pkg/value"
)

// Disasm compiles the script at args[0] and prints its chunk in
// human-readable form instead of running it. It never executes the
// script, so it fails only when the file cannot be read (exit 74) or
// does not compile (exit 65).
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		return exitCode(74, fmt.Errorf("%s: %w", path, err))
	}

	heap := value.NewHeap()
	fn, ok := compiler.Compile(string(src), heap)
	if !ok {
		return exitCode(65, fmt.Errorf("%s: compile error", path))
	}

	disassembleRecursive(stdio.Stdout, fn, path)
	return nil
}

// disassembleRecursive prints fn's own chunk, then every nested function
// found in its constant pool under its own name, since value.Disassemble
// only walks a single flat chunk.
func disassembleRecursive(w io.Writer, fn *value.Function, label string) {
	value.Disassemble(w, fn.Chunk, label)
	for _, c := range fn.Chunk.Constants {
		if nested, ok := c.AsObj().(*value.Function); ok {
			name := "<script>"
			if nested.Name != nil {
				name = nested.Name.Chars
			}
			disassembleRecursive(w, nested, name)
		}
	}
}
