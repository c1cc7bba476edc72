package clidriver

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mattn/go-isatty"
	"github.com/mna/mainer"

	"github.com/kristofer/wisp/pkg/vm"
)

// maxReplLine bounds a single REPL line, matching the read buffer the
// out-of-scope reference driver uses.
const maxReplLine = 1024

// Repl reads one line at a time from stdio.Stdin, feeding each to a
// long-lived VM. A compile error on one line does not corrupt globals
// or poison later lines; only the failed line's effects are discarded.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, _ []string) error {
	cfg, err := loadEnvConfig()
	if err != nil {
		return exitCode(74, err)
	}

	v := vm.New()
	v.SetOutput(stdio.Stdout, stdio.Stderr)
	v.SetStress(cfg.GCStress)
	v.TraceExec = cfg.TraceExec

	interactive := isTerminal(stdio)
	scanner := bufio.NewScanner(stdio.Stdin)
	scanner.Buffer(make([]byte, maxReplLine), maxReplLine)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if interactive {
			fmt.Fprint(stdio.Stdout, "> ")
		}
		if !scanner.Scan() {
			if interactive {
				fmt.Fprintln(stdio.Stdout)
			}
			return nil
		}
		// Result is intentionally ignored: the REPL never exits non-zero
		// because one line failed to compile or run.
		v.Interpret(scanner.Text())
	}
}

func isTerminal(stdio mainer.Stdio) bool {
	f, ok := stdio.Stdin.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
