package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/wisp/pkg/compiler"
	"github.com/kristofer/wisp/pkg/value"
)

func compileOK(t *testing.T, src string) *value.Function {
	t.Helper()
	heap := value.NewHeap()
	fn, ok := compiler.Compile(src, heap)
	require.True(t, ok, "expected %q to compile", src)
	return fn
}

func opcodes(fn *value.Function) []value.OpCode {
	var ops []value.OpCode
	code := fn.Chunk.Code
	i := 0
	for i < len(code) {
		op := value.OpCode(code[i])
		ops = append(ops, op)
		i += operandWidth(op)
	}
	return ops
}

// operandWidth returns how many bytes follow op in the instruction
// stream, so opcodes() can walk it without reimplementing the VM's
// full dispatch switch. OP_CLOSURE's trailing per-upvalue pairs are
// not modeled; tests that need exact byte layout read fn.Chunk.Code
// directly instead of calling opcodes().
func operandWidth(op value.OpCode) int {
	switch op {
	case value.OpConstant, value.OpGetLocal, value.OpSetLocal, value.OpGetGlobal,
		value.OpDefineGlobal, value.OpSetGlobal, value.OpGetUpvalue, value.OpSetUpvalue,
		value.OpGetProperty, value.OpSetProperty, value.OpGetSuper, value.OpCall,
		value.OpClass, value.OpMethod:
		return 2
	case value.OpJump, value.OpJumpIfFalse, value.OpLoop, value.OpInvoke, value.OpSuperInvoke:
		return 3
	case value.OpClosure:
		return 2
	default:
		return 1
	}
}

func TestCompilesArithmeticPrecedence(t *testing.T) {
	fn := compileOK(t, "print (1 + 2) * 3 - 4 / 2;")
	ops := opcodes(fn)
	require.Contains(t, ops, value.OpAdd)
	require.Contains(t, ops, value.OpMultiply)
	require.Contains(t, ops, value.OpDivide)
	require.Contains(t, ops, value.OpSubtract)
	require.Contains(t, ops, value.OpPrint)
}

func TestGlobalVarRoundTrip(t *testing.T) {
	fn := compileOK(t, "var x = 1.5; print x;")
	ops := opcodes(fn)
	require.Contains(t, ops, value.OpDefineGlobal)
	require.Contains(t, ops, value.OpGetGlobal)
}

func TestLocalScopesUseSlots(t *testing.T) {
	fn := compileOK(t, "{ var a = 1; var b = 2; print a + b; }")
	ops := opcodes(fn)
	require.Contains(t, ops, value.OpGetLocal)
	require.Contains(t, ops, value.OpPop)
}

func TestIfElseEmitsJumps(t *testing.T) {
	fn := compileOK(t, "if (true) { print 1; } else { print 2; }")
	ops := opcodes(fn)
	require.Contains(t, ops, value.OpJumpIfFalse)
	require.Contains(t, ops, value.OpJump)
}

func TestWhileEmitsLoop(t *testing.T) {
	fn := compileOK(t, "var i = 0; while (i < 3) { i = i + 1; }")
	ops := opcodes(fn)
	require.Contains(t, ops, value.OpLoop)
}

func TestClosureOverLocal(t *testing.T) {
	fn := compileOK(t, `
		fun makeCounter() {
			var i = 0;
			fun c() { i = i + 1; return i; }
			return c;
		}
	`)
	ops := opcodes(fn)
	require.Contains(t, ops, value.OpClosure)
}

func TestClassWithSuperclassEmitsInherit(t *testing.T) {
	fn := compileOK(t, `
		class A { greet() { print "A"; } }
		class B < A { greet() { super.greet(); } }
	`)
	ops := opcodes(fn)
	require.Contains(t, ops, value.OpInherit)
	require.Contains(t, ops, value.OpClass)
	require.Contains(t, ops, value.OpMethod)
}

func TestRedeclarationInSameScopeIsError(t *testing.T) {
	heap := value.NewHeap()
	_, ok := compiler.Compile("{ var a = 1; var a = 2; }", heap)
	require.False(t, ok)
}

func TestReturnAtTopLevelIsError(t *testing.T) {
	heap := value.NewHeap()
	_, ok := compiler.Compile("return 1;", heap)
	require.False(t, ok)
}

func TestThisOutsideClassIsError(t *testing.T) {
	heap := value.NewHeap()
	_, ok := compiler.Compile("print this;", heap)
	require.False(t, ok)
}

func TestSelfInheritanceIsError(t *testing.T) {
	heap := value.NewHeap()
	_, ok := compiler.Compile("class A < A {}", heap)
	require.False(t, ok)
}

func TestInvalidAssignmentTargetIsError(t *testing.T) {
	heap := value.NewHeap()
	_, ok := compiler.Compile("1 + 2 = 3;", heap)
	require.False(t, ok)
}
