package clidriver

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/kristofer/wisp/pkg/vm"
)

// Run compiles and executes the script at args[0], exiting 65/70/74 per
// the reference driver's convention.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		return exitCode(74, fmt.Errorf("%s: %w", path, err))
	}

	cfg, err := loadEnvConfig()
	if err != nil {
		return exitCode(74, err)
	}

	v := vm.New()
	v.SetOutput(stdio.Stdout, stdio.Stderr)
	v.SetStress(cfg.GCStress)
	v.TraceExec = cfg.TraceExec

	switch v.Interpret(string(src)) {
	case vm.InterpretCompileError:
		return exitCode(65, fmt.Errorf("%s: compile error", path))
	case vm.InterpretRuntimeError:
		return exitCode(70, fmt.Errorf("%s: runtime error", path))
	default:
		return nil
	}
}
