// Package vm implements the stack-based bytecode interpreter: the value
// stack, call-frame array, open-upvalue list, globals table, and the
// opcode dispatch loop that drives them. It owns the single process-wide
// Heap and wires the GC's root-marking callback to its own state, since
// nothing outside the VM knows where every live reference is rooted.
package vm

import (
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/kristofer/wisp/pkg/compiler"
	"github.com/kristofer/wisp/pkg/value"
)

const framesMax = 64
const stackMax = framesMax * 256

// frame is one call's bookkeeping: which closure is running, where its
// instruction pointer is, and where its stack window starts.
type frame struct {
	closure   *value.Closure
	ip        int
	slotsBase int
}

// InterpretResult classifies how a call to Interpret finished, used by
// the CLI driver to choose a process exit code.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// VM is the single process-wide interpreter instance: it owns the value
// stack, call frames, globals table, open-upvalue list, and the Heap
// every object allocates from. A VM is reusable across many Interpret
// calls (a REPL line each); globals, interned strings, and the heap
// persist between them, only the stack and frames reset.
type VM struct {
	stack    [stackMax]value.Value
	stackTop int

	frames     [framesMax]frame
	frameCount int

	globals    *value.Table
	heap       *value.Heap
	openUpvals *value.Upvalue

	// TraceExec, when set, disassembles each instruction to stderr
	// before it executes. Wired to the WISP_TRACE_EXEC env toggle by the
	// CLI driver rather than hardwired here.
	TraceExec bool

	stdout io.Writer
	stderr io.Writer
}

// New returns a VM with empty globals and a fresh Heap, its native
// surface already installed and its GC root-marking callback wired to
// its own stack/frames/globals/upvalue state.
func New() *VM {
	vm := &VM{
		globals: value.NewTable(),
		heap:    value.NewHeap(),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	vm.heap.MarkRoots = vm.markRoots
	vm.defineNatives()
	return vm
}

// SetOutput redirects stdout/stderr, used by the CLI driver's injected
// Stdio and by tests that need to capture `print` output without
// touching the real console.
func (vm *VM) SetOutput(stdout, stderr io.Writer) {
	vm.stdout = stdout
	vm.stderr = stderr
}

// SetStress toggles the Heap's collect-before-every-allocation mode,
// wired to the WISP_GC_STRESS environment flag by the CLI driver.
func (vm *VM) SetStress(stress bool) { vm.heap.Stress = stress }

// Heap exposes the VM's heap so the disassembler/CLI can report GC
// stats; not used by the dispatch loop itself beyond what vm.heap holds.
func (vm *VM) Heap() *value.Heap { return vm.heap }

// Interpret compiles source and, if compilation succeeded, runs it to
// completion on this VM. Globals and interned strings from previous
// calls remain visible; a compile error in this call leaves them
// untouched (each call gets a fresh Parser/Compiler chain; see
// pkg/compiler).
func (vm *VM) Interpret(source string) InterpretResult {
	fn, ok := compiler.Compile(source, vm.heap)
	if !ok {
		return InterpretCompileError
	}

	vm.push(value.FromObj(fn))
	closure := vm.heap.NewClosure(fn)
	vm.pop()
	vm.push(value.FromObj(closure))
	if err := vm.callValue(value.FromObj(closure), 0); err != nil {
		fmt.Fprintln(vm.stderr, err.Error())
		vm.resetStack()
		return InterpretRuntimeError
	}

	if err := vm.run(); err != nil {
		fmt.Fprintln(vm.stderr, err.Error())
		vm.resetStack()
		return InterpretRuntimeError
	}
	return InterpretOK
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvals = nil
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) runtimeError(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return newRuntimeError(msg, vm.frames[:vm.frameCount])
}

// run is the dispatch loop: fetch the next byte from the current
// frame's chunk, switch on it. frame is cached locally and refreshed
// whenever frameCount changes (call, return, or error unwinds it),
// avoiding a frames[frameCount-1] indirection on every instruction.
func (vm *VM) run() error {
	f := &vm.frames[vm.frameCount-1]

	readByte := func() byte {
		b := f.closure.Function.Chunk.Code[f.ip]
		f.ip++
		return b
	}
	readShort := func() int {
		hi := f.closure.Function.Chunk.Code[f.ip]
		lo := f.closure.Function.Chunk.Code[f.ip+1]
		f.ip += 2
		return int(hi)<<8 | int(lo)
	}
	readConstant := func() value.Value {
		return f.closure.Function.Chunk.Constants[readByte()]
	}
	readString := func() *value.String {
		return readConstant().AsObj().(*value.String)
	}

	for {
		if vm.TraceExec {
			value.DisassembleInstruction(vm.stderr, f.closure.Function.Chunk, f.ip)
		}

		op := value.OpCode(readByte())
		switch op {
		case value.OpConstant:
			vm.push(readConstant())

		case value.OpNil:
			vm.push(value.Nil)
		case value.OpTrue:
			vm.push(value.Bool(true))
		case value.OpFalse:
			vm.push(value.Bool(false))
		case value.OpPop:
			vm.pop()

		case value.OpGetLocal:
			slot := readByte()
			vm.push(vm.stack[f.slotsBase+int(slot)])
		case value.OpSetLocal:
			slot := readByte()
			vm.stack[f.slotsBase+int(slot)] = vm.peek(0)

		case value.OpGetGlobal:
			name := readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)
		case value.OpDefineGlobal:
			name := readString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case value.OpSetGlobal:
			name := readString()
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}

		case value.OpGetUpvalue:
			slot := readByte()
			vm.push(*f.closure.Upvalues[slot].Location)
		case value.OpSetUpvalue:
			slot := readByte()
			*f.closure.Upvalues[slot].Location = vm.peek(0)

		case value.OpGetProperty:
			if !vm.peek(0).IsObjType(value.ObjInstanceType) {
				return vm.runtimeError("Only instances have properties.")
			}
			inst := vm.peek(0).AsObj().(*value.Instance)
			name := readString()
			if v, ok := inst.Fields.Get(name); ok {
				vm.pop()
				vm.push(v)
				break
			}
			if err := vm.bindMethod(inst.Class, name); err != nil {
				return err
			}

		case value.OpSetProperty:
			if !vm.peek(1).IsObjType(value.ObjInstanceType) {
				return vm.runtimeError("Only instances have fields.")
			}
			inst := vm.peek(1).AsObj().(*value.Instance)
			name := readString()
			inst.Fields.Set(name, vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)

		case value.OpGetSuper:
			name := readString()
			superclass := vm.pop().AsObj().(*value.Class)
			if err := vm.bindMethod(superclass, name); err != nil {
				return err
			}

		case value.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(a.Equal(b)))
		case value.OpGreater:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Bool(a > b) }); err != nil {
				return err
			}
		case value.OpLess:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Bool(a < b) }); err != nil {
				return err
			}

		case value.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case value.OpSubtract:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Number(a - b) }); err != nil {
				return err
			}
		case value.OpMultiply:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Number(a * b) }); err != nil {
				return err
			}
		case value.OpDivide:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Number(a / b) }); err != nil {
				return err
			}

		case value.OpNot:
			vm.push(value.Bool(vm.pop().IsFalsey()))
		case value.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(value.Number(-vm.pop().AsNumber()))

		case value.OpPrint:
			fmt.Fprintln(vm.stdout, vm.pop().String())

		case value.OpJump:
			offset := readShort()
			f.ip += offset
		case value.OpJumpIfFalse:
			offset := readShort()
			if vm.peek(0).IsFalsey() {
				f.ip += offset
			}
		case value.OpLoop:
			offset := readShort()
			f.ip -= offset

		case value.OpCall:
			argc := int(readByte())
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return err
			}
			f = &vm.frames[vm.frameCount-1]

		case value.OpInvoke:
			name := readString()
			argc := int(readByte())
			if err := vm.invoke(name, argc); err != nil {
				return err
			}
			f = &vm.frames[vm.frameCount-1]

		case value.OpSuperInvoke:
			name := readString()
			argc := int(readByte())
			superclass := vm.pop().AsObj().(*value.Class)
			if err := vm.invokeFromClass(superclass, name, argc); err != nil {
				return err
			}
			f = &vm.frames[vm.frameCount-1]

		case value.OpClosure:
			fn := readConstant().AsObj().(*value.Function)
			closure := vm.heap.NewClosure(fn)
			vm.push(value.FromObj(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte()
				index := readByte()
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(f.slotsBase + int(index))
				} else {
					closure.Upvalues[i] = f.closure.Upvalues[index]
				}
			}

		case value.OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case value.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(f.slotsBase)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.stackTop = f.slotsBase
			vm.push(result)
			f = &vm.frames[vm.frameCount-1]

		case value.OpClass:
			name := readString()
			vm.push(value.FromObj(vm.heap.NewClass(name)))

		case value.OpInherit:
			superVal := vm.peek(1)
			if !superVal.IsObjType(value.ObjClassType) {
				return vm.runtimeError("Superclass must be a class.")
			}
			subclass := vm.peek(0).AsObj().(*value.Class)
			subclass.Methods.AddAll(superVal.AsObj().(*value.Class).Methods)
			vm.pop()

		case value.OpMethod:
			name := readString()
			vm.defineMethod(name)

		default:
			return vm.runtimeError("Unknown opcode %d.", op)
		}
	}
}

func (vm *VM) numericBinary(op func(a, b float64) value.Value) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(op(a, b))
	return nil
}

// add implements OP_ADD's two overloads: number+number and
// string+string (interned concatenation). Both operands stay on the
// stack (peek, not pop) until the concatenation result is allocated, so
// neither is momentarily unreachable to the GC mid-allocation.
func (vm *VM) add() error {
	switch {
	case vm.peek(0).IsObjType(value.ObjStringType) && vm.peek(1).IsObjType(value.ObjStringType):
		b := vm.peek(0).AsObj().(*value.String)
		a := vm.peek(1).AsObj().(*value.String)
		result := vm.heap.NewString(a.Chars + b.Chars)
		vm.pop()
		vm.pop()
		vm.push(value.FromObj(result))
	case vm.peek(0).IsNumber() && vm.peek(1).IsNumber():
		b := vm.pop().AsNumber()
		a := vm.pop().AsNumber()
		vm.push(value.Number(a + b))
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
	return nil
}

// callValue dispatches OP_CALL's callee, which may be a Closure,
// Native, Class (constructor), or BoundMethod.
func (vm *VM) callValue(callee value.Value, argc int) error {
	if callee.IsObj() {
		switch obj := callee.AsObj().(type) {
		case *value.Closure:
			return vm.call(obj, argc)
		case *value.Native:
			return vm.callNative(obj, argc)
		case *value.Class:
			vm.stack[vm.stackTop-argc-1] = value.FromObj(vm.heap.NewInstance(obj))
			if initializer, ok := obj.Methods.Get(vm.heap.NewString("init")); ok {
				return vm.call(initializer.AsObj().(*value.Closure), argc)
			}
			if argc != 0 {
				return vm.runtimeError("Expected 0 arguments but got %d.", argc)
			}
			return nil
		case *value.BoundMethod:
			vm.stack[vm.stackTop-argc-1] = obj.Receiver
			return vm.call(obj.Method, argc)
		}
	}
	return vm.runtimeError("Can only call functions and classes.")
}

func (vm *VM) callNative(native *value.Native, argc int) error {
	if argc != native.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", native.Arity, argc)
	}
	args := vm.stack[vm.stackTop-argc : vm.stackTop]
	result, ok := native.Fn(args)
	if !ok {
		return vm.runtimeError("Native function call failed.")
	}
	vm.stackTop -= argc + 1
	vm.push(result)
	return nil
}

func (vm *VM) call(closure *value.Closure, argc int) error {
	if argc != closure.Function.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argc)
	}
	if vm.frameCount == framesMax {
		return vm.runtimeError("Stack overflow.")
	}
	vm.frames[vm.frameCount] = frame{
		closure:   closure,
		ip:        0,
		slotsBase: vm.stackTop - argc - 1,
	}
	vm.frameCount++
	return nil
}

// bindMethod looks up name on class's method table and, on a hit,
// replaces the top-of-stack receiver with a fresh BoundMethod pairing
// it with the found closure. A miss is a runtime error for an undefined
// property.
func (vm *VM) bindMethod(class *value.Class, name *value.String) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	bound := vm.heap.NewBoundMethod(vm.peek(0), method.AsObj().(*value.Closure))
	vm.pop()
	vm.push(value.FromObj(bound))
	return nil
}

// invoke implements OP_INVOKE: a combined GET_PROPERTY+CALL that skips
// materializing a BoundMethod when the receiver is a plain instance
// method call, falling back to a field holding a callable value first.
func (vm *VM) invoke(name *value.String, argc int) error {
	receiver := vm.peek(argc)
	if !receiver.IsObjType(value.ObjInstanceType) {
		return vm.runtimeError("Only instances have methods.")
	}
	inst := receiver.AsObj().(*value.Instance)
	if v, ok := inst.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argc-1] = v
		return vm.callValue(v, argc)
	}
	return vm.invokeFromClass(inst.Class, name, argc)
}

func (vm *VM) invokeFromClass(class *value.Class, name *value.String, argc int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	return vm.call(method.AsObj().(*value.Closure), argc)
}

func (vm *VM) defineMethod(name *value.String) {
	method := vm.peek(0)
	class := vm.peek(1).AsObj().(*value.Class)
	class.Methods.Set(name, method)
	vm.pop()
}

// captureUpvalue returns the open upvalue for stack slot slotIndex,
// reusing an existing one if the stack-ordered open-upvalue list
// already has one for that exact slot, otherwise inserting a new one
// in descending-location order.
func (vm *VM) captureUpvalue(slotIndex int) *value.Upvalue {
	var prev *value.Upvalue
	cur := vm.openUpvals
	for cur != nil && vm.locIndex(cur.Location) > slotIndex {
		prev = cur
		cur = cur.NextOpen
	}
	if cur != nil && vm.locIndex(cur.Location) == slotIndex {
		return cur
	}

	created := vm.heap.NewUpvalue(&vm.stack[slotIndex])
	created.NextOpen = cur
	if prev == nil {
		vm.openUpvals = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// locIndex recovers the stack index a still-open upvalue's Location
// points at via pointer arithmetic against the VM's stack array,
// needed to keep captureUpvalue's list walk ordered by descending
// stack position without storing the index redundantly on Upvalue
// itself (Location is a raw *Value pointing directly into the stack).
func (vm *VM) locIndex(loc *value.Value) int {
	base := unsafe.Pointer(&vm.stack[0])
	off := uintptr(unsafe.Pointer(loc)) - uintptr(base)
	return int(off / unsafe.Sizeof(vm.stack[0]))
}

// closeUpvalues closes every open upvalue at or above fromSlot: each
// copies its slot's current value into its own Closed field and
// repoints Location at that field, then is unlinked from openUpvals.
func (vm *VM) closeUpvalues(fromSlot int) {
	for vm.openUpvals != nil && vm.locIndex(vm.openUpvals.Location) >= fromSlot {
		uv := vm.openUpvals
		uv.Closed = *uv.Location
		uv.Location = &uv.Closed
		vm.openUpvals = uv.NextOpen
		uv.NextOpen = nil
	}
}

// markRoots is installed as the Heap's MarkRoots callback: it marks
// every Value on the live stack, each frame's closure, every open
// upvalue, and the entire globals table. The compiler's own root (its
// in-progress Function chain) is marked separately, by compiler.Compile
// wrapping this callback for the duration of a compile, because by the
// time the VM runs a
// collection no compiler is active — compilation and execution never
// interleave within a single Interpret call.
func (vm *VM) markRoots(mark func(value.Obj)) {
	for i := 0; i < vm.stackTop; i++ {
		vm.heap.MarkValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		mark(vm.frames[i].closure)
	}
	for uv := vm.openUpvals; uv != nil; uv = uv.NextOpen {
		mark(uv)
	}
	vm.globals.Each(func(key *value.String, v value.Value) {
		mark(key)
		vm.heap.MarkValue(v)
	})
}
