package vm

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// StackFrame captures one call frame's identity at the moment a runtime
// error was raised: which function was running and at what source line.
type StackFrame struct {
	FunctionName string
	Line         int
	IsScript     bool
}

// RuntimeError is returned by run when the dispatch loop hits an
// operation it cannot perform (type mismatch, undefined variable, bad
// call target, stack overflow...). Its Error() rendering is the
// message, then one "[line N] in X" per frame, innermost first.
type RuntimeError struct {
	Message string
	Trace   []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, f := range e.Trace {
		b.WriteByte('\n')
		fmt.Fprintf(&b, "[line %d] in ", f.Line)
		if f.IsScript {
			b.WriteString("script")
		} else {
			b.WriteString(f.FunctionName + "()")
		}
	}
	return b.String()
}

// newRuntimeError builds a RuntimeError from the VM's live call-frame
// stack, reversing a copy of it into innermost-to-outermost order (the
// frames slice is outermost-first, matching call order).
func newRuntimeError(message string, frames []frame) *RuntimeError {
	trace := make([]StackFrame, len(frames))
	for i, f := range frames {
		name := "script"
		isScript := f.closure.Function.Name == nil
		if !isScript {
			name = f.closure.Function.Name.Chars
		}
		line := 0
		if ip := f.ip - 1; ip >= 0 && ip < len(f.closure.Function.Chunk.Lines) {
			line = f.closure.Function.Chunk.Lines[ip]
		}
		trace[i] = StackFrame{FunctionName: name, Line: line, IsScript: isScript}
	}
	slices.Reverse(trace)
	return &RuntimeError{Message: message, Trace: trace}
}
