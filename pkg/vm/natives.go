package vm

import (
	"time"

	"github.com/kristofer/wisp/pkg/value"
)

// startTime anchors clock()'s return value to process start.
var startTime = time.Now()

// defineNatives installs the language's small native-function surface.
func (vm *VM) defineNatives() {
	vm.defineNative("clock", 0, func(args []value.Value) (value.Value, bool) {
		return value.Number(time.Since(startTime).Seconds()), true
	})
}

func (vm *VM) defineNative(name string, arity int, fn value.NativeFn) {
	// The name string and native object are kept on the stack across
	// both allocations (peek, not pop) so neither is momentarily
	// unreachable if NewNative or the globals Set triggers a collection.
	vm.push(value.FromObj(vm.heap.NewString(name)))
	vm.push(value.FromObj(vm.heap.NewNative(arity, fn)))
	vm.globals.Set(vm.peek(1).AsObj().(*value.String), vm.peek(0))
	vm.pop()
	vm.pop()
}
