package clidriver_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mna/mainer"

	"github.com/kristofer/wisp/internal/clidriver"
)

func stdio(in string) (mainer.Stdio, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return mainer.Stdio{
		Stdin:  strings.NewReader(in),
		Stdout: &out,
		Stderr: &errOut,
	}, &out, &errOut
}

func TestRunExitsZeroOnSuccess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ok.wisp")
	if err := os.WriteFile(path, []byte(`print 1 + 2;`), 0o644); err != nil {
		t.Fatal(err)
	}

	sio, out, _ := stdio("")
	var c clidriver.Cmd
	code := c.Main([]string{"wisp", "run", path}, sio)
	if code != mainer.Success {
		t.Fatalf("got exit code %v, want Success", code)
	}
	if strings.TrimSpace(out.String()) != "3" {
		t.Fatalf("got output %q", out.String())
	}
}

func TestRunExitsSixtyFiveOnCompileError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.wisp")
	if err := os.WriteFile(path, []byte(`var x = ;`), 0o644); err != nil {
		t.Fatal(err)
	}

	sio, _, _ := stdio("")
	var c clidriver.Cmd
	code := c.Main([]string{"wisp", "run", path}, sio)
	if code != 65 {
		t.Fatalf("got exit code %v, want 65", code)
	}
}

func TestRunExitsSeventyOnRuntimeError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boom.wisp")
	if err := os.WriteFile(path, []byte(`fun f() { return 1 + "s"; } f();`), 0o644); err != nil {
		t.Fatal(err)
	}

	sio, _, errOut := stdio("")
	var c clidriver.Cmd
	code := c.Main([]string{"wisp", "run", path}, sio)
	if code != 70 {
		t.Fatalf("got exit code %v, want 70", code)
	}
	if !strings.Contains(errOut.String(), "Operands must be two numbers or two strings.") {
		t.Fatalf("missing runtime message: %q", errOut.String())
	}
}

func TestRunExitsSeventyFourOnMissingFile(t *testing.T) {
	sio, _, _ := stdio("")
	var c clidriver.Cmd
	code := c.Main([]string{"wisp", "run", "/nonexistent/path.wisp"}, sio)
	if code != 74 {
		t.Fatalf("got exit code %v, want 74", code)
	}
}

func TestDisasmPrintsChunkWithoutExecuting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.wisp")
	if err := os.WriteFile(path, []byte(`print 1 + 2;`), 0o644); err != nil {
		t.Fatal(err)
	}

	sio, out, _ := stdio("")
	var c clidriver.Cmd
	code := c.Main([]string{"wisp", "disasm", path}, sio)
	if code != mainer.Success {
		t.Fatalf("got exit code %v, want Success", code)
	}
	if out.String() == "3\n" {
		t.Fatal("disasm should not execute the script")
	}
	if !strings.Contains(out.String(), "OP_ADD") && !strings.Contains(out.String(), "ADD") {
		t.Fatalf("expected a disassembly listing, got %q", out.String())
	}
}

func TestReplPrintsEachLineResultWithoutPrompt(t *testing.T) {
	sio, out, _ := stdio("print 1;\nprint 2;\n")
	var c clidriver.Cmd
	code := c.Main([]string{"wisp", "repl"}, sio)
	if code != mainer.Success {
		t.Fatalf("got exit code %v, want Success", code)
	}
	if out.String() != "1\n2\n" {
		t.Fatalf("got %q, want %q (no prompt noise for a piped stdin)", out.String(), "1\n2\n")
	}
}

func TestReplRecoversFromCompileErrorOnOneLine(t *testing.T) {
	sio, out, _ := stdio("var x = ;\nprint 1;\n")
	var c clidriver.Cmd
	code := c.Main([]string{"wisp", "repl"}, sio)
	if code != mainer.Success {
		t.Fatalf("got exit code %v, want Success", code)
	}
	if strings.TrimSpace(out.String()) != "1" {
		t.Fatalf("got %q, want the second line to still run", out.String())
	}
}

func TestDefaultCommandIsRepl(t *testing.T) {
	sio, out, _ := stdio("print 42;\n")
	var c clidriver.Cmd
	code := c.Main([]string{"wisp"}, sio)
	if code != mainer.Success {
		t.Fatalf("got exit code %v, want Success", code)
	}
	if strings.TrimSpace(out.String()) != "42" {
		t.Fatalf("got %q", out.String())
	}
}

func TestUnknownCommandIsInvalidArgs(t *testing.T) {
	sio, _, _ := stdio("")
	var c clidriver.Cmd
	code := c.Main([]string{"wisp", "frobnicate"}, sio)
	if code == mainer.Success {
		t.Fatal("expected a non-success exit code for an unknown command")
	}
}
