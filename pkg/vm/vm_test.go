package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kristofer/wisp/pkg/vm"
)

func run(t *testing.T, src string) (stdout string, result vm.InterpretResult) {
	t.Helper()
	v := vm.New()
	var out, errOut bytes.Buffer
	v.SetOutput(&out, &errOut)
	result = v.Interpret(src)
	if result == vm.InterpretRuntimeError {
		t.Logf("runtime error: %s", errOut.String())
	}
	return out.String(), result
}

func TestArithmeticPrecedence(t *testing.T) {
	out, res := run(t, "print (1 + 2) * 3 - 4 / 2;")
	if res != vm.InterpretOK {
		t.Fatalf("expected OK, got %v", res)
	}
	if strings.TrimSpace(out) != "7" {
		t.Fatalf("got %q, want 7", out)
	}
}

func TestClosureCounter(t *testing.T) {
	src := `
		fun makeCounter() {
			var i = 0;
			fun c() {
				i = i + 1;
				return i;
			}
			return c;
		}
		var c = makeCounter();
		print c();
		print c();
		print c();
	`
	out, res := run(t, src)
	if res != vm.InterpretOK {
		t.Fatalf("expected OK, got %v", res)
	}
	want := "1\n2\n3\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestInheritanceWithSuper(t *testing.T) {
	src := `
		class A { greet() { print "A"; } }
		class B < A { greet() { super.greet(); print "B"; } }
		B().greet();
	`
	out, res := run(t, src)
	if res != vm.InterpretOK {
		t.Fatalf("expected OK, got %v", res)
	}
	if out != "A\nB\n" {
		t.Fatalf("got %q", out)
	}
}

func TestStringInterningEquality(t *testing.T) {
	out, res := run(t, `print "ab" + "c" == "abc";`)
	if res != vm.InterpretOK {
		t.Fatalf("expected OK, got %v", res)
	}
	if strings.TrimSpace(out) != "true" {
		t.Fatalf("got %q", out)
	}
}

func TestInitializerImplicitReturn(t *testing.T) {
	src := `
		class P { init(x) { this.x = x; } }
		var p = P(7);
		print p.x;
	`
	out, res := run(t, src)
	if res != vm.InterpretOK {
		t.Fatalf("expected OK, got %v", res)
	}
	if strings.TrimSpace(out) != "7" {
		t.Fatalf("got %q", out)
	}
}

func TestRuntimeErrorWithTrace(t *testing.T) {
	v := vm.New()
	var out, errOut bytes.Buffer
	v.SetOutput(&out, &errOut)
	res := v.Interpret(`fun f() { return 1 + "s"; } f();`)
	if res != vm.InterpretRuntimeError {
		t.Fatalf("expected runtime error, got %v", res)
	}
	msg := errOut.String()
	if !strings.Contains(msg, "Operands must be two numbers or two strings.") {
		t.Fatalf("missing operand message: %q", msg)
	}
	if !strings.Contains(msg, "[line 1] in f()") {
		t.Fatalf("missing frame trace: %q", msg)
	}
	if !strings.Contains(msg, "[line 1] in script") {
		t.Fatalf("missing script trace: %q", msg)
	}
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	_, res := run(t, "print missing;")
	if res != vm.InterpretRuntimeError {
		t.Fatalf("expected runtime error, got %v", res)
	}
}

func TestTruthiness(t *testing.T) {
	out, res := run(t, `print !nil; print !false; print !0; print !"";`)
	if res != vm.InterpretOK {
		t.Fatalf("expected OK, got %v", res)
	}
	want := "true\ntrue\nfalse\nfalse\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestGlobalsPersistAcrossInterpretCalls(t *testing.T) {
	v := vm.New()
	var out, errOut bytes.Buffer
	v.SetOutput(&out, &errOut)
	if res := v.Interpret("var x = 1;"); res != vm.InterpretOK {
		t.Fatalf("first call failed: %v", res)
	}
	if res := v.Interpret("print x;"); res != vm.InterpretOK {
		t.Fatalf("second call failed: %v", res)
	}
	if strings.TrimSpace(out.String()) != "1" {
		t.Fatalf("got %q", out.String())
	}
}

func TestCompileErrorDoesNotCorruptSubsequentLine(t *testing.T) {
	v := vm.New()
	var out, errOut bytes.Buffer
	v.SetOutput(&out, &errOut)
	if res := v.Interpret("var x = ;"); res != vm.InterpretCompileError {
		t.Fatalf("expected compile error, got %v", res)
	}
	out.Reset()
	if res := v.Interpret("print 1;"); res != vm.InterpretOK {
		t.Fatalf("expected OK after recovering, got %v", res)
	}
	if strings.TrimSpace(out.String()) != "1" {
		t.Fatalf("got %q", out.String())
	}
}

func TestGCStressProducesSameOutput(t *testing.T) {
	src := `
		fun build() {
			var s = "";
			for (var i = 0; i < 50; i = i + 1) {
				s = s + "x";
			}
			return s;
		}
		print build();
	`
	base, res := run(t, src)
	if res != vm.InterpretOK {
		t.Fatalf("baseline run failed: %v", res)
	}

	v := vm.New()
	v.SetStress(true)
	var out, errOut bytes.Buffer
	v.SetOutput(&out, &errOut)
	if res := v.Interpret(src); res != vm.InterpretOK {
		t.Fatalf("stress run failed: %v, stderr=%s", res, errOut.String())
	}
	if out.String() != base {
		t.Fatalf("stress output %q != baseline %q", out.String(), base)
	}
}
