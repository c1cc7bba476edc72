// Package compiler implements the single-pass Pratt parser that lowers
// source text directly to bytecode: no separate AST stage ever exists.
// A chain of Compiler records, one per function body being compiled,
// tracks locals, captured upvalues and scope depth while the parser
// walks the token stream exactly once.
package compiler

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dolthub/swiss"

	"github.com/kristofer/wisp/pkg/scanner"
	"github.com/kristofer/wisp/pkg/token"
	"github.com/kristofer/wisp/pkg/value"
)

// FunctionType distinguishes the four shapes a compiled function body can
// take; it controls slot-0 reservation and the implicit return emitted at
// the end of the body.
type FunctionType int

const (
	TypeFunction FunctionType = iota
	TypeInitializer
	TypeMethod
	TypeScript
)

const maxLocals = 256
const maxUpvalues = 256

// Local is a single entry in a Compiler's fixed-size local-variable array.
// Depth -1 means "declared but not yet initialized" (see spec rule about
// reading a local in its own initializer).
type Local struct {
	name       token.Token
	depth      int
	isCaptured bool
}

// Upvalue records, for one function, where a single captured variable
// comes from: a local slot in the immediately enclosing function
// (isLocal true) or an upvalue already captured by that enclosing
// function (isLocal false).
type Upvalue struct {
	index   uint8
	isLocal bool
}

// Compiler holds per-function compilation state. One is pushed per
// nested function/method literal and popped when its body finishes;
// enclosing threads them into a stack without an explicit slice.
type Compiler struct {
	enclosing *Compiler

	function *value.Function
	fnType   FunctionType

	locals     [maxLocals]Local
	localCount int
	upvalues   [maxUpvalues]Upvalue
	scopeDepth int

	// identCache maps an already-interned identifier's text to the index
	// of its constant-pool entry, so repeated references to the same
	// global or property name (very common: every `this.x` read
	// re-resolves "x") reuse that entry instead of adding a duplicate.
	// Compiler-internal bookkeeping only; never observable from the
	// running program.
	identCache *swiss.Map[string, uint8]
}

// ClassCompiler tracks the lexically enclosing class while compiling its
// method bodies, linked the same way Compiler is, so `this`/`super` can
// be rejected outside any class and nested classes resolve correctly.
type ClassCompiler struct {
	enclosing     *ClassCompiler
	hasSuperclass bool
}

// Parser drives the single forward pass over the token stream: it holds
// the previous/current lookahead pair used by a recursive-descent-style
// Pratt loop, plus the panic-mode error-recovery flags that let it
// resynchronize at the next statement boundary instead of cascading.
type Parser struct {
	scan *scanner.Scanner
	heap *value.Heap

	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool

	comp  *Compiler
	class *ClassCompiler

	stderr *os.File
}

// Compile parses source as a top-level script and returns the compiled
// function wrapping it, along with whether compilation succeeded. A
// false ok means one or more errors were printed to stderr and the
// returned function must not be run.
//
// While compiling, every Function under construction (the whole
// Compiler enclosing chain) is reachable only from the parser's own
// state — nothing on the VM's stack points at them yet. A collection
// triggered mid-compile (GC-stress mode, or a long script that crosses
// the byte threshold while still compiling) must still see them as
// live, so Compile temporarily wraps heap's root-marking callback to
// also mark the in-progress compiler chain, restoring the previous
// callback before returning.
func Compile(source string, heap *value.Heap) (*value.Function, bool) {
	p := &Parser{
		scan:   scanner.New(source),
		heap:   heap,
		stderr: os.Stderr,
	}
	prevMarkRoots := heap.MarkRoots
	heap.MarkRoots = func(mark func(value.Obj)) {
		if prevMarkRoots != nil {
			prevMarkRoots(mark)
		}
		for c := p.comp; c != nil; c = c.enclosing {
			if c.function != nil {
				mark(c.function)
			}
		}
	}
	defer func() { heap.MarkRoots = prevMarkRoots }()

	p.pushCompiler(TypeScript, "")

	p.advance()
	for !p.match(token.EOF) {
		p.declaration()
	}
	p.consume(token.EOF, "Expect end of expression.")

	fn := p.popCompiler()
	return fn, !p.hadError
}

func (p *Parser) pushCompiler(fnType FunctionType, name string) {
	c := &Compiler{
		enclosing:  p.comp,
		fnType:     fnType,
		scopeDepth: 0,
		identCache: swiss.NewMap[string, uint8](8),
	}
	// c joins the compiler chain before it allocates anything, and its
	// function is recorded as soon as NewFunction returns, so the
	// function is already a GC root by the time NewString can trigger a
	// collection.
	p.comp = c
	fn := p.heap.NewFunction()
	c.function = fn
	if name != "" {
		fn.Name = p.heap.NewString(name)
	}

	// Slot 0 is reserved: unaddressable for plain functions/scripts, or
	// bound to `this` for methods and initializers.
	local := &c.locals[0]
	c.localCount = 1
	local.depth = 0
	if fnType != TypeFunction && fnType != TypeScript {
		local.name = token.Token{Lexeme: "this"}
	} else {
		local.name = token.Token{Lexeme: ""}
	}

	p.comp = c
}

// popCompiler finishes the current function: emits the implicit return,
// restores the enclosing Compiler, and returns the finished Function.
func (p *Parser) popCompiler() *value.Function {
	p.emitReturn()
	fn := p.comp.function
	p.comp = p.comp.enclosing
	return fn
}

// --- token stream plumbing ---

func (p *Parser) advance() {
	p.previous = p.current
	for {
		p.current = p.scan.Next()
		if p.current.Kind != token.Error {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *Parser) check(k token.Kind) bool { return p.current.Kind == k }

func (p *Parser) match(k token.Kind) bool {
	if !p.check(k) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(k token.Kind, message string) {
	if p.current.Kind == k {
		p.advance()
		return
	}
	p.errorAtCurrent(message)
}

func (p *Parser) errorAtCurrent(message string) { p.errorAt(p.current, message) }
func (p *Parser) errorAtPrevious(message string) { p.errorAt(p.previous, message) }

func (p *Parser) errorAt(t token.Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	fmt.Fprintf(p.stderr, "[line %d] Error", t.Line)
	if t.Kind == token.EOF {
		fmt.Fprint(p.stderr, " at end")
	} else if t.Kind != token.Error {
		fmt.Fprintf(p.stderr, " at '%s'", t.Lexeme)
	}
	fmt.Fprintf(p.stderr, ": %s\n", message)
	p.hadError = true
}

// synchronize discards tokens until it reaches a likely statement
// boundary, ending panic mode so subsequent errors report again.
func (p *Parser) synchronize() {
	p.panicMode = false
	for p.current.Kind != token.EOF {
		if p.previous.Kind == token.Semicolon {
			return
		}
		switch p.current.Kind {
		case token.Class, token.Fun, token.Var, token.For, token.If,
			token.While, token.Print, token.Return:
			return
		}
		p.advance()
	}
}

// --- emission helpers ---

func (p *Parser) chunk() *value.Chunk { return p.comp.function.Chunk }

func (p *Parser) emitByte(b byte) { p.chunk().Write(b, p.previous.Line) }

func (p *Parser) emitOp(op value.OpCode) { p.chunk().WriteOp(op, p.previous.Line) }

func (p *Parser) emitOps(op1, op2 value.OpCode) {
	p.emitOp(op1)
	p.emitOp(op2)
}

func (p *Parser) emitOpByte(op value.OpCode, b byte) {
	p.emitOp(op)
	p.emitByte(b)
}

func (p *Parser) emitReturn() {
	if p.comp.fnType == TypeInitializer {
		p.emitOpByte(value.OpGetLocal, 0)
	} else {
		p.emitOp(value.OpNil)
	}
	p.emitOp(value.OpReturn)
}

func (p *Parser) makeConstant(v value.Value) byte {
	idx := p.chunk().AddConstant(v)
	if idx > 255 {
		p.errorAtPrevious("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (p *Parser) emitConstant(v value.Value) {
	p.emitOpByte(value.OpConstant, p.makeConstant(v))
}

// emitJump writes a two-byte placeholder operand after op and returns its
// offset, to be patched once the jump target is known.
func (p *Parser) emitJump(op value.OpCode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return p.chunk().Len() - 2
}

func (p *Parser) patchJump(offset int) {
	jump := p.chunk().Len() - offset - 2
	if jump > value.MaxJump {
		p.errorAtPrevious("Too much code to jump over.")
		return
	}
	p.chunk().Code[offset] = byte(jump >> 8)
	p.chunk().Code[offset+1] = byte(jump)
}

func (p *Parser) emitLoop(loopStart int) {
	p.emitOp(value.OpLoop)
	offset := p.chunk().Len() - loopStart + 2
	if offset > value.MaxJump {
		p.errorAtPrevious("Loop body too large.")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset))
}

// --- identifiers & variables ---

// identifierConstant interns name and returns its constant-pool index,
// consulting the current function's identCache first so a repeated
// name (a loop variable reassigned every iteration, a property read
// many times) does not grow the constant pool with duplicates.
func (p *Parser) identifierConstant(name token.Token) byte {
	if idx, ok := p.comp.identCache.Get(name.Lexeme); ok {
		return idx
	}
	idx := p.makeConstant(value.FromObj(p.heap.NewString(name.Lexeme)))
	p.comp.identCache.Put(name.Lexeme, idx)
	return idx
}

func identifiersEqual(a, b token.Token) bool { return a.Lexeme == b.Lexeme }

func (p *Parser) resolveLocal(c *Compiler, name token.Token) int {
	for i := c.localCount - 1; i >= 0; i-- {
		local := &c.locals[i]
		if identifiersEqual(local.name, name) {
			if local.depth == -1 {
				p.errorAtPrevious("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (p *Parser) addUpvalue(c *Compiler, index uint8, isLocal bool) int {
	count := c.function.UpvalueCount
	for i := 0; i < count; i++ {
		uv := &c.upvalues[i]
		if int(uv.index) == int(index) && uv.isLocal == isLocal {
			return i
		}
	}
	if count == maxUpvalues {
		p.errorAtPrevious("Too many closure variables in function.")
		return 0
	}
	c.upvalues[count] = Upvalue{index: index, isLocal: isLocal}
	c.function.UpvalueCount++
	return count
}

func (p *Parser) resolveUpvalue(c *Compiler, name token.Token) int {
	if c.enclosing == nil {
		return -1
	}
	if local := p.resolveLocal(c.enclosing, name); local != -1 {
		c.enclosing.locals[local].isCaptured = true
		return p.addUpvalue(c, uint8(local), true)
	}
	if uv := p.resolveUpvalue(c.enclosing, name); uv != -1 {
		return p.addUpvalue(c, uint8(uv), false)
	}
	return -1
}

func (p *Parser) addLocal(name token.Token) {
	if p.comp.localCount == maxLocals {
		p.errorAtPrevious("Too many local variables in function.")
		return
	}
	p.comp.locals[p.comp.localCount] = Local{name: name, depth: -1}
	p.comp.localCount++
}

func (p *Parser) declareVariable() {
	if p.comp.scopeDepth == 0 {
		return
	}
	name := p.previous
	for i := p.comp.localCount - 1; i >= 0; i-- {
		local := &p.comp.locals[i]
		if local.depth != -1 && local.depth < p.comp.scopeDepth {
			break
		}
		if identifiersEqual(name, local.name) {
			p.errorAtPrevious("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

func (p *Parser) parseVariable(message string) byte {
	p.consume(token.Identifier, message)
	p.declareVariable()
	if p.comp.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous)
}

func (p *Parser) markInitialized() {
	if p.comp.scopeDepth == 0 {
		return
	}
	p.comp.locals[p.comp.localCount-1].depth = p.comp.scopeDepth
}

func (p *Parser) defineVariable(global byte) {
	if p.comp.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitOpByte(value.OpDefineGlobal, global)
}

func (p *Parser) argumentList() byte {
	argc := 0
	if !p.check(token.RightParen) {
		for {
			p.expression()
			if argc == 255 {
				p.errorAtPrevious("Can't have more than 255 arguments.")
			}
			argc++
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.consume(token.RightParen, "Expect ')' after arguments.")
	return byte(argc)
}

// --- scopes ---

func (p *Parser) beginScope() { p.comp.scopeDepth++ }

func (p *Parser) endScope() {
	p.comp.scopeDepth--
	c := p.comp
	for c.localCount > 0 && c.locals[c.localCount-1].depth > c.scopeDepth {
		if c.locals[c.localCount-1].isCaptured {
			p.emitOp(value.OpCloseUpvalue)
		} else {
			p.emitOp(value.OpPop)
		}
		c.localCount--
	}
}

// --- statements ---

func (p *Parser) declaration() {
	switch {
	case p.match(token.Class):
		p.classDeclaration()
	case p.match(token.Fun):
		p.funDeclaration()
	case p.match(token.Var):
		p.varDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *Parser) statement() {
	switch {
	case p.match(token.Print):
		p.printStatement()
	case p.match(token.For):
		p.forStatement()
	case p.match(token.If):
		p.ifStatement()
	case p.match(token.Return):
		p.returnStatement()
	case p.match(token.While):
		p.whileStatement()
	case p.match(token.LeftBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *Parser) block() {
	for !p.check(token.RightBrace) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RightBrace, "Expect '}' after block.")
}

func (p *Parser) printStatement() {
	p.expression()
	p.consume(token.Semicolon, "Expect ';' after value.")
	p.emitOp(value.OpPrint)
}

func (p *Parser) expressionStatement() {
	p.expression()
	p.consume(token.Semicolon, "Expect ';' after expression.")
	p.emitOp(value.OpPop)
}

func (p *Parser) ifStatement() {
	p.consume(token.LeftParen, "Expect '(' after 'if'.")
	p.expression()
	p.consume(token.RightParen, "Expect ')' after condition.")

	thenJump := p.emitJump(value.OpJumpIfFalse)
	p.emitOp(value.OpPop)
	p.statement()

	elseJump := p.emitJump(value.OpJump)
	p.patchJump(thenJump)
	p.emitOp(value.OpPop)

	if p.match(token.Else) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *Parser) whileStatement() {
	loopStart := p.chunk().Len()
	p.consume(token.LeftParen, "Expect '(' after 'while'.")
	p.expression()
	p.consume(token.RightParen, "Expect ')' after condition.")

	exitJump := p.emitJump(value.OpJumpIfFalse)
	p.emitOp(value.OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(value.OpPop)
}

// forStatement desugars `for (init; cond; inc) body` into the
// equivalent `init; while (cond) { body; inc; }`, wiring the
// increment clause in ahead of the body via a forward jump so it
// still executes after the body on each iteration.
func (p *Parser) forStatement() {
	p.beginScope()
	p.consume(token.LeftParen, "Expect '(' after 'for'.")

	switch {
	case p.match(token.Semicolon):
		// no initializer
	case p.match(token.Var):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := p.chunk().Len()
	exitJump := -1
	if !p.match(token.Semicolon) {
		p.expression()
		p.consume(token.Semicolon, "Expect ';' after loop condition.")
		exitJump = p.emitJump(value.OpJumpIfFalse)
		p.emitOp(value.OpPop)
	}

	if !p.match(token.RightParen) {
		bodyJump := p.emitJump(value.OpJump)
		incrementStart := p.chunk().Len()
		p.expression()
		p.emitOp(value.OpPop)
		p.consume(token.RightParen, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(value.OpPop)
	}

	p.endScope()
}

func (p *Parser) returnStatement() {
	if p.comp.fnType == TypeScript {
		p.errorAtPrevious("Can't return from top-level code.")
	}
	if p.match(token.Semicolon) {
		p.emitReturn()
		return
	}
	if p.comp.fnType == TypeInitializer {
		p.errorAtPrevious("Can't return a value from an initializer.")
	}
	p.expression()
	p.consume(token.Semicolon, "Expect ';' after return value.")
	p.emitOp(value.OpReturn)
}

func (p *Parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")
	if p.match(token.Equal) {
		p.expression()
	} else {
		p.emitOp(value.OpNil)
	}
	p.consume(token.Semicolon, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

func (p *Parser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	p.function(TypeFunction)
	p.defineVariable(global)
}

func (p *Parser) function(fnType FunctionType) {
	p.pushCompiler(fnType, p.previous.Lexeme)
	p.beginScope()

	p.consume(token.LeftParen, "Expect '(' after function name.")
	if !p.check(token.RightParen) {
		for {
			p.comp.function.Arity++
			if p.comp.function.Arity > 255 {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := p.parseVariable("Expect parameter name.")
			p.defineVariable(constant)
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.consume(token.RightParen, "Expect ')' after parameters.")
	p.consume(token.LeftBrace, "Expect '{' before function body.")
	p.block()

	p.emitReturn()
	child := p.comp
	fn := child.function
	p.comp = child.enclosing

	p.emitOpByte(value.OpClosure, p.makeConstant(value.FromObj(fn)))
	for i := 0; i < fn.UpvalueCount; i++ {
		uv := child.upvalues[i]
		if uv.isLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(uv.index)
	}
}

func (p *Parser) classDeclaration() {
	p.consume(token.Identifier, "Expect class name.")
	nameToken := p.previous
	nameConstant := p.identifierConstant(p.previous)
	p.declareVariable()

	p.emitOpByte(value.OpClass, nameConstant)
	p.defineVariable(nameConstant)

	classCompiler := &ClassCompiler{enclosing: p.class}
	p.class = classCompiler

	if p.match(token.Less) {
		p.consume(token.Identifier, "Expect superclass name.")
		p.variable(false)
		if identifiersEqual(nameToken, p.previous) {
			p.errorAtPrevious("A class can't inherit from itself.")
		}

		p.beginScope()
		p.addLocal(token.Token{Lexeme: "super"})
		p.defineVariable(0)

		p.namedVariable(nameToken, false)
		p.emitOp(value.OpInherit)
		classCompiler.hasSuperclass = true
	}

	p.namedVariable(nameToken, false)
	p.consume(token.LeftBrace, "Expect '{' before class body.")
	for !p.check(token.RightBrace) && !p.check(token.EOF) {
		p.method()
	}
	p.consume(token.RightBrace, "Expect '}' after class body.")
	p.emitOp(value.OpPop)

	if classCompiler.hasSuperclass {
		p.endScope()
	}
	p.class = p.class.enclosing
}

func (p *Parser) method() {
	p.consume(token.Identifier, "Expect method name.")
	nameConstant := p.identifierConstant(p.previous)

	fnType := TypeMethod
	if p.previous.Lexeme == "init" {
		fnType = TypeInitializer
	}
	p.function(fnType)
	p.emitOpByte(value.OpMethod, nameConstant)
}

// --- Pratt expression parsing ---

type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecTerm
	PrecFactor
	PrecUnary
	PrecCall
	PrecPrimary
)

type parseFn func(p *Parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules map[token.Kind]parseRule

func init() {
	rules = map[token.Kind]parseRule{
		token.LeftParen:    {(*Parser).grouping, (*Parser).call, PrecCall},
		token.Dot:          {nil, (*Parser).dot, PrecCall},
		token.Minus:        {(*Parser).unary, (*Parser).binary, PrecTerm},
		token.Plus:         {nil, (*Parser).binary, PrecTerm},
		token.Slash:        {nil, (*Parser).binary, PrecFactor},
		token.Star:         {nil, (*Parser).binary, PrecFactor},
		token.Bang:         {(*Parser).unary, nil, PrecNone},
		token.BangEqual:    {nil, (*Parser).binary, PrecEquality},
		token.EqualEqual:   {nil, (*Parser).binary, PrecEquality},
		token.Greater:      {nil, (*Parser).binary, PrecComparison},
		token.GreaterEqual: {nil, (*Parser).binary, PrecComparison},
		token.Less:         {nil, (*Parser).binary, PrecComparison},
		token.LessEqual:    {nil, (*Parser).binary, PrecComparison},
		token.Identifier:   {(*Parser).variableExpr, nil, PrecNone},
		token.String:       {(*Parser).stringLit, nil, PrecNone},
		token.Number:       {(*Parser).number, nil, PrecNone},
		token.And:          {nil, (*Parser).and, PrecAnd},
		token.Or:           {nil, (*Parser).or, PrecOr},
		token.False:        {(*Parser).literal, nil, PrecNone},
		token.Nil:          {(*Parser).literal, nil, PrecNone},
		token.True:         {(*Parser).literal, nil, PrecNone},
		token.This:         {(*Parser).this, nil, PrecNone},
		token.Super:        {(*Parser).super, nil, PrecNone},
	}
}

func getRule(k token.Kind) parseRule {
	if r, ok := rules[k]; ok {
		return r
	}
	return parseRule{nil, nil, PrecNone}
}

func (p *Parser) expression() { p.parsePrecedence(PrecAssignment) }

func (p *Parser) parsePrecedence(prec Precedence) {
	p.advance()
	prefix := getRule(p.previous.Kind).prefix
	if prefix == nil {
		p.errorAtPrevious("Expect expression.")
		return
	}
	canAssign := prec <= PrecAssignment
	prefix(p, canAssign)

	for prec <= getRule(p.current.Kind).precedence {
		p.advance()
		infix := getRule(p.previous.Kind).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(token.Equal) {
		p.errorAtPrevious("Invalid assignment target.")
	}
}

func (p *Parser) number(_ bool) {
	n, err := strconv.ParseFloat(p.previous.Lexeme, 64)
	if err != nil {
		p.errorAtPrevious("Invalid number literal.")
		return
	}
	p.emitConstant(value.Number(n))
}

func (p *Parser) stringLit(_ bool) {
	// Lexeme spans the opening and closing quotes inclusive; strip both
	// before interning the content.
	s := p.previous.Lexeme
	s = s[1 : len(s)-1]
	p.emitConstant(value.FromObj(p.heap.NewString(s)))
}

func (p *Parser) grouping(_ bool) {
	p.expression()
	p.consume(token.RightParen, "Expect ')' after expression.")
}

func (p *Parser) unary(_ bool) {
	opKind := p.previous.Kind
	p.parsePrecedence(PrecUnary)
	switch opKind {
	case token.Bang:
		p.emitOp(value.OpNot)
	case token.Minus:
		p.emitOp(value.OpNegate)
	}
}

func (p *Parser) binary(_ bool) {
	opKind := p.previous.Kind
	rule := getRule(opKind)
	p.parsePrecedence(rule.precedence + 1)

	switch opKind {
	case token.BangEqual:
		p.emitOps(value.OpEqual, value.OpNot)
	case token.EqualEqual:
		p.emitOp(value.OpEqual)
	case token.Greater:
		p.emitOp(value.OpGreater)
	case token.GreaterEqual:
		p.emitOps(value.OpLess, value.OpNot)
	case token.Less:
		p.emitOp(value.OpLess)
	case token.LessEqual:
		p.emitOps(value.OpGreater, value.OpNot)
	case token.Plus:
		p.emitOp(value.OpAdd)
	case token.Minus:
		p.emitOp(value.OpSubtract)
	case token.Star:
		p.emitOp(value.OpMultiply)
	case token.Slash:
		p.emitOp(value.OpDivide)
	}
}

func (p *Parser) call(_ bool) {
	argc := p.argumentList()
	p.emitOpByte(value.OpCall, argc)
}

func (p *Parser) dot(canAssign bool) {
	p.consume(token.Identifier, "Expect property name after '.'.")
	name := p.identifierConstant(p.previous)

	switch {
	case canAssign && p.match(token.Equal):
		p.expression()
		p.emitOpByte(value.OpSetProperty, name)
	case p.match(token.LeftParen):
		argc := p.argumentList()
		p.emitOpByte(value.OpInvoke, name)
		p.emitByte(argc)
	default:
		p.emitOpByte(value.OpGetProperty, name)
	}
}

func (p *Parser) literal(_ bool) {
	switch p.previous.Kind {
	case token.False:
		p.emitOp(value.OpFalse)
	case token.Nil:
		p.emitOp(value.OpNil)
	case token.True:
		p.emitOp(value.OpTrue)
	}
}

func (p *Parser) and(_ bool) {
	endJump := p.emitJump(value.OpJumpIfFalse)
	p.emitOp(value.OpPop)
	p.parsePrecedence(PrecAnd)
	p.patchJump(endJump)
}

func (p *Parser) or(_ bool) {
	elseJump := p.emitJump(value.OpJumpIfFalse)
	endJump := p.emitJump(value.OpJump)

	p.patchJump(elseJump)
	p.emitOp(value.OpPop)

	p.parsePrecedence(PrecOr)
	p.patchJump(endJump)
}

func (p *Parser) variableExpr(canAssign bool) { p.namedVariable(p.previous, canAssign) }

func (p *Parser) variable(canAssign bool) { p.namedVariable(p.previous, canAssign) }

func (p *Parser) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp value.OpCode
	arg := p.resolveLocal(p.comp, name)
	if arg != -1 {
		getOp, setOp = value.OpGetLocal, value.OpSetLocal
	} else if arg = p.resolveUpvalue(p.comp, name); arg != -1 {
		getOp, setOp = value.OpGetUpvalue, value.OpSetUpvalue
	} else {
		arg = int(p.identifierConstant(name))
		getOp, setOp = value.OpGetGlobal, value.OpSetGlobal
	}

	if canAssign && p.match(token.Equal) {
		p.expression()
		p.emitOpByte(setOp, byte(arg))
	} else {
		p.emitOpByte(getOp, byte(arg))
	}
}

func (p *Parser) this(_ bool) {
	if p.class == nil {
		p.errorAtPrevious("Can't use 'this' outside of a class.")
		return
	}
	p.variableExpr(false)
}

func (p *Parser) super(_ bool) {
	if p.class == nil {
		p.errorAtPrevious("Can't use 'super' outside of a class.")
	} else if !p.class.hasSuperclass {
		p.errorAtPrevious("Can't use 'super' in a class with no superclass.")
	}

	p.consume(token.Dot, "Expect '.' after 'super'.")
	p.consume(token.Identifier, "Expect superclass method name.")
	name := p.identifierConstant(p.previous)

	p.namedVariable(token.Token{Lexeme: "this"}, false)
	if p.match(token.LeftParen) {
		argc := p.argumentList()
		p.namedVariable(token.Token{Lexeme: "super"}, false)
		p.emitOpByte(value.OpSuperInvoke, name)
		p.emitByte(argc)
	} else {
		p.namedVariable(token.Token{Lexeme: "super"}, false)
		p.emitOpByte(value.OpGetSuper, name)
	}
}
