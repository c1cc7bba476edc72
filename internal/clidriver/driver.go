// Package clidriver is the wisp command-line driver: argument parsing,
// subcommand dispatch, and the ambient process configuration (env-var
// toggles, TTY detection) that pkg/vm and pkg/compiler know nothing
// about.
package clidriver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"
)

const binName = "wisp"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<path>]
       %[1]s -h|--help
       %[1]s -v|--version

A bytecode compiler and virtual machine for the wisp scripting language.

With no command, or with "repl", starts an interactive prompt reading
one line at a time from stdin.

The <command> can be one of:
       repl                      Read-eval-print loop (default).
       run <path>                Compile and execute the script at path.
       disasm <path>             Print the compiled chunk for the script
                                 at path without executing it.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.

Environment variables:
       WISP_GC_STRESS            Run a collection before every heap
                                 allocation.
       WISP_TRACE_EXEC           Disassemble every instruction to
                                 stderr before executing it.
`, binName)
)

// Cmd is the flag-parse target mainer.Parser populates from argv, one
// field per flag via the `flag:"..."` tag.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	args  []string
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) { c.args = args }
func (c *Cmd) SetFlags(_ map[string]bool) {}

// Validate resolves the requested subcommand, defaulting to "repl" when
// no positional argument is given.
func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	cmdName := "repl"
	if len(c.args) > 0 {
		cmdName = c.args[0]
	}

	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	if (cmdName == "run" || cmdName == "disasm") && len(c.args) < 2 {
		return fmt.Errorf("%s: a script path is required", cmdName)
	}

	return nil
}

// Main parses args, resolves the subcommand, and runs it against stdio.
// It never calls os.Exit itself; the caller translates the returned
// mainer.ExitCode.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false, EnvPrefix: binName + "_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)

	cmdArgs := c.args
	if len(cmdArgs) == 0 {
		cmdArgs = []string{"repl"}
	}
	code, err := c.runCmd(ctx, stdio, cmdArgs[0], cmdArgs[1:])
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return code
}

// runCmd dispatches cmdName, translating the wisp-specific exit codes
// (65 compile error, 70 runtime error, 74 I/O error) a plain error
// return can't carry through mainer.ExitCode on its own.
func (c *Cmd) runCmd(ctx context.Context, stdio mainer.Stdio, cmdName string, rest []string) (mainer.ExitCode, error) {
	commands := buildCmds(c)
	fn := commands[cmdName]
	if fn == nil {
		return mainer.Failure, fmt.Errorf("unknown command: %s", cmdName)
	}
	if err := fn(ctx, stdio, rest); err != nil {
		var ec *exitCodeError
		if errors.As(err, &ec) {
			return mainer.ExitCode(ec.code), ec.err
		}
		return mainer.Failure, err
	}
	return mainer.Success, nil
}

// exitCodeError lets a subcommand report a specific process exit code
// (65/70/74) through the same error return every command uses.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func exitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitCodeError{code: code, err: err}
}

// buildCmds reflects over v's exported methods matching the
// (context.Context, mainer.Stdio, []string) error shape and indexes them
// by lower-cased method name, so adding a subcommand is just adding a
// method.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type
		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
