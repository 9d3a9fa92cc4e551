// Package parser implements the recursive-descent grammar of SIMPL-2021:
// a single forward pass that validates syntax, resolves names against
// internal/symtab, enforces the type rules of internal/types, and emits
// instructions through internal/emitter as each construct is recognized.
// There is no intermediate tree; every production's contract is: on entry
// the lookahead token is the construct's first token, and on exit it is
// the first token past the construct.
package parser

import (
	"github.com/simpl2021/simplc/internal/emitter"
	"github.com/simpl2021/simplc/internal/lexer"
	"github.com/simpl2021/simplc/internal/report"
	"github.com/simpl2021/simplc/internal/symtab"
	"github.com/simpl2021/simplc/internal/token"
	"github.com/simpl2021/simplc/internal/types"
)

// Context bundles every piece of mutable state a production needs,
// threaded explicitly instead of held in package-level globals: the
// lexer and its lookahead, the symbol table, the emitter, the error
// reporter, and the return type of the subroutine currently being
// compiled (nil outside a function body).
type Context struct {
	lex *lexer.Lexer
	tok token.Token

	sym *symtab.Table
	em  *emitter.Emitter
	rep *report.Reporter

	retType *types.Type
}

// New creates a Context over lex's token stream, ready to parse a
// program. The first token is already loaded as the lookahead.
func New(lex *lexer.Lexer, rep *report.Reporter, em *emitter.Emitter) *Context {
	c := &Context{lex: lex, rep: rep, em: em, sym: symtab.New()}
	c.advance()
	return c
}

func (c *Context) advance() { c.tok = c.lex.Next() }

// expect consumes the lookahead if it has kind k, aborting otherwise.
func (c *Context) expect(k token.Kind) token.Token {
	if c.tok.Kind != k {
		c.rep.ExpectedFound(c.tok.Pos, k, c.tok)
	}
	t := c.tok
	c.advance()
	return t
}

// accept consumes the lookahead and reports true if it has kind k,
// otherwise leaves it untouched and reports false.
func (c *Context) accept(k token.Kind) bool {
	if c.tok.Kind == k {
		c.advance()
		return true
	}
	return false
}

func (c *Context) expectIdent() token.Token { return c.expect(token.IDENTIFIER) }

// exprStarts reports whether k can begin a factor, and therefore an expr.
func exprStarts(k token.Kind) bool {
	switch k {
	case token.IDENTIFIER, token.NUMBER, token.NOT, token.TRUE, token.FALSE, token.LPAR, token.MINUS:
		return true
	}
	return false
}

// Program parses "program" id {funcdef} body, the grammar's start symbol,
// emitting the program body as a subroutine named main.
func (c *Context) Program() {
	c.expect(token.PROGRAM)
	name := c.expectIdent().Lexeme
	c.em.SetClassName(name)

	for c.tok.Kind == token.DEFINE {
		c.funcdef()
	}

	c.em.InitSubroutine("main", nil)
	c.body()
	c.em.Gen1(emitter.OpReturn)
	c.em.CloseSubroutine(c.sym.VariablesWidth())

	if c.tok.Kind != token.EOF {
		c.rep.ExpectedFound(c.tok.Pos, token.EOF, c.tok)
	}
}

type paramInfo struct {
	name string
	typ  types.Type
	pos  token.Position
}

func (c *Context) parseParam() paramInfo {
	t := c.parseType()
	pos := c.tok.Pos
	name := c.expectIdent().Lexeme
	return paramInfo{name: name, typ: t, pos: pos}
}

// funcdef parses "define" id "(" [type id {"," type id}] ")" ["->" type] body.
func (c *Context) funcdef() {
	c.expect(token.DEFINE)
	namePos := c.tok.Pos
	name := c.expectIdent().Lexeme

	c.expect(token.LPAR)
	var params []paramInfo
	if c.tok.Kind != token.RPAR {
		params = append(params, c.parseParam())
		for c.accept(token.COMMA) {
			params = append(params, c.parseParam())
		}
	}
	c.expect(token.RPAR)

	paramTypes := make([]types.Type, len(params))
	for i, p := range params {
		paramTypes[i] = p.typ
	}

	var sig types.Type
	if c.accept(token.TO) {
		sig = types.Function(c.parseType(), paramTypes)
	} else {
		sig = types.Procedure(paramTypes)
	}

	if !c.sym.OpenSubroutine(name, symtab.Property{Type: sig}) {
		c.rep.Abort(namePos, report.MultipleDefinition, "multiple definition of %q", name)
	}
	for _, p := range params {
		if _, err := c.sym.InsertName(p.name, symtab.Property{Type: p.typ}); err != nil {
			c.rep.Abort(p.pos, report.MultipleDefinition, "multiple definition of %q", p.name)
		}
	}

	prevRet := c.retType
	if sig.IsFunction() {
		rt := sig.ReturnType()
		c.retType = &rt
	} else {
		c.retType = nil
	}

	c.em.InitSubroutine(name, &sig)
	exited := c.body()
	if sig.IsFunction() && !exited {
		c.rep.Abort(c.tok.Pos, report.MissingExitExpression, "missing exit expression at end of function %q", name)
	}
	if sig.IsProcedure() {
		c.em.Gen1(emitter.OpReturn)
	}
	c.em.CloseSubroutine(c.sym.VariablesWidth())

	c.sym.CloseSubroutine()
	c.retType = prevRet
}

// body parses "begin" {vardef} statements "end" and reports whether the
// last top-level statement was an exit, which funcdef uses to check that
// a function always produces a value on its way out.
func (c *Context) body() bool {
	c.expect(token.BEGIN)
	for c.tok.Kind == token.BOOLEAN || c.tok.Kind == token.INTEGER {
		c.vardef()
	}
	exited := c.statements()
	c.expect(token.END)
	return exited
}

// vardef parses type id {"," id} ";": the optional "array" qualifier is
// part of the shared type, consumed once, and applies to every
// comma-separated declarator that follows.
func (c *Context) vardef() {
	t := c.parseType()
	c.declareVar(t)
	for c.accept(token.COMMA) {
		c.declareVar(t)
	}
	c.expect(token.SEMICOLON)
}

func (c *Context) declareVar(t types.Type) {
	pos := c.tok.Pos
	name := c.expectIdent().Lexeme
	if _, err := c.sym.InsertName(name, symtab.Property{Type: t}); err != nil {
		c.rep.Abort(pos, report.MultipleDefinition, "multiple definition of %q", name)
	}
}

// parseType parses ("boolean"|"integer") ["array"].
func (c *Context) parseType() types.Type {
	var base types.Base
	switch c.tok.Kind {
	case token.BOOLEAN:
		base = types.Boolean
	case token.INTEGER:
		base = types.Integer
	default:
		c.rep.Abort(c.tok.Pos, report.ExpectedConstruct, "expected a type, found %v", c.tok)
	}
	c.advance()
	if c.accept(token.ARRAY) {
		return types.Array(base)
	}
	return types.Scalar(base)
}

// statements parses "chill" | statement {";" statement}. It reports
// whether the final statement parsed was an exit.
func (c *Context) statements() bool {
	if c.accept(token.CHILL) {
		return false
	}
	last := c.statement()
	for c.accept(token.SEMICOLON) {
		last = c.statement()
	}
	return last
}

// statement parses exit | if | name | read | while | write, reporting
// whether it was an exit.
func (c *Context) statement() bool {
	switch c.tok.Kind {
	case token.EXIT:
		c.exitStmt()
		return true
	case token.IF:
		c.ifStmt()
	case token.IDENTIFIER:
		c.nameStmt()
	case token.READ:
		c.readStmt()
	case token.WHILE:
		c.whileStmt()
	case token.WRITE:
		c.writeStmt()
	default:
		c.rep.Abort(c.tok.Pos, report.ExpectedConstruct, "expected a statement, found %v", c.tok)
	}
	return false
}

// exitStmt parses "exit" [expr]. With no expression it is legal only
// outside a function (it acts as an early procedure/main return); with one
// it is legal only
// inside a function, and the expression's type must match the function's
// declared return type.
func (c *Context) exitStmt() {
	pos := c.tok.Pos
	c.expect(token.EXIT)
	if !exprStarts(c.tok.Kind) {
		if c.retType != nil {
			c.rep.Abort(pos, report.MissingExitExpression, "missing exit expression for function")
		}
		c.em.Gen1(emitter.OpReturn)
		return
	}
	if c.retType == nil {
		c.rep.Abort(pos, report.ExitNotAllowedInProcedure, "exit expression not allowed here")
	}
	t := c.expr()
	if !types.Equal(t, *c.retType) {
		c.rep.Abort(pos, report.IncompatibleTypes, "incompatible types (expected %v, found %v) for exit", *c.retType, t)
	}
	if t.IsArray() {
		c.em.Gen1(emitter.OpAReturn)
	} else {
		c.em.Gen1(emitter.OpIReturn)
	}
}

// ifStmt parses "if" expr "then" statements {"elsif" expr "then" statements}
// ["else" statements] "end", allocating one shared end label plus one
// "next guard" label per clause.
func (c *Context) ifStmt() {
	c.expect(token.IF)
	endLabel := c.em.GetLabel()
	c.ifClause(endLabel)
	for c.tok.Kind == token.ELSIF {
		c.advance()
		c.ifClause(endLabel)
	}
	if c.accept(token.ELSE) {
		c.statements()
	}
	c.expect(token.END)
	c.em.GenLabel(endLabel)
}

func (c *Context) ifClause(endLabel emitter.Label) {
	pos := c.tok.Pos
	t := c.expr()
	if !(t.IsScalar() && t.Base == types.Boolean) {
		c.rep.Abort(pos, report.IncompatibleTypes, "incompatible types (expected boolean, found %v) for if condition", t)
	}
	next := c.em.GetLabel()
	c.em.Gen2Label(emitter.OpIfEq, next)
	c.expect(token.THEN)
	c.statements()
	c.em.Gen2Label(emitter.OpGoto, endLabel)
	c.em.GenLabel(next)
}

// whileStmt parses "while" expr "do" statements "end".
func (c *Context) whileStmt() {
	c.expect(token.WHILE)
	header := c.em.GetLabel()
	exit := c.em.GetLabel()
	c.em.GenLabel(header)
	pos := c.tok.Pos
	t := c.expr()
	if !(t.IsScalar() && t.Base == types.Boolean) {
		c.rep.Abort(pos, report.IncompatibleTypes, "incompatible types (expected boolean, found %v) for while condition", t)
	}
	c.em.Gen2Label(emitter.OpIfEq, exit)
	c.expect(token.DO)
	c.statements()
	c.em.Gen2Label(emitter.OpGoto, header)
	c.expect(token.END)
	c.em.GenLabel(exit)
}

// readStmt parses "read" id [index].
func (c *Context) readStmt() {
	c.expect(token.READ)
	pos := c.tok.Pos
	name := c.expectIdent().Lexeme
	prop, ok := c.sym.FindName(name)
	if !ok {
		c.rep.Abort(pos, report.UnknownIdentifier, "unknown identifier %q", name)
	}
	if !prop.Type.IsVariable() {
		c.rep.Abort(pos, report.NotAVariable, "%q is not a variable", name)
	}
	if c.tok.Kind == token.LBRACK {
		if !prop.Type.IsArray() {
			c.rep.Abort(pos, report.NotAnArray, "%q is not an array", name)
		}
		c.em.Gen2(emitter.OpALoad, prop.Offset)
		c.index()
		c.em.GenRead(prop.Type.Base)
		c.em.Gen1(emitter.OpIAStore)
		return
	}
	if prop.Type.IsArray() {
		c.rep.Abort(pos, report.ScalarVariableExpected, "%q: scalar variable expected", name)
	}
	c.em.GenRead(prop.Type.Base)
	c.em.Gen2(emitter.OpIStore, prop.Offset)
}

// index parses "[" simple "]", leaving the evaluated integer index value
// on the stack above whatever the caller already pushed (typically an
// array reference).
func (c *Context) index() {
	c.expect(token.LBRACK)
	pos := c.tok.Pos
	t := c.simple()
	if !(t.IsScalar() && t.Base == types.Integer) {
		c.rep.Abort(pos, report.IncompatibleTypes, "incompatible types (expected integer, found %v) for array index", t)
	}
	c.expect(token.RBRACK)
}

// writeStmt parses "write" (string|expr) {"&" (string|expr)}.
func (c *Context) writeStmt() {
	c.expect(token.WRITE)
	c.writeItem()
	for c.accept(token.AMPERSAND) {
		c.writeItem()
	}
}

func (c *Context) writeItem() {
	if c.tok.Kind == token.STRING {
		lit := c.tok.Str
		c.advance()
		c.em.GenPrintString(lit)
		return
	}
	pos := c.tok.Pos
	t := c.expr()
	if t.IsArray() {
		c.rep.Abort(pos, report.IllegalArrayOperation, "illegal array operation write")
	}
	c.em.GenPrint(t.Base)
}

// nameStmt parses id (arglist | [index] "<-" (expr | "array" simple)): a
// procedure call used as a statement, or an assignment to a scalar,
// array element, or whole array.
func (c *Context) nameStmt() {
	pos := c.tok.Pos
	name := c.expectIdent().Lexeme
	prop, ok := c.sym.FindName(name)
	if !ok {
		c.rep.Abort(pos, report.UnknownIdentifier, "unknown identifier %q", name)
	}

	if c.tok.Kind == token.LPAR {
		if !prop.Type.IsProcedure() {
			c.rep.Abort(pos, report.NotAProcedure, "%q is not a procedure", name)
		}
		c.arglist(name, prop.Type)
		return
	}

	if !prop.Type.IsVariable() {
		c.rep.Abort(pos, report.NotAVariable, "%q is not a variable", name)
	}

	indexed := false
	if c.tok.Kind == token.LBRACK {
		if !prop.Type.IsArray() {
			c.rep.Abort(pos, report.NotAnArray, "%q is not an array", name)
		}
		indexed = true
		c.em.Gen2(emitter.OpALoad, prop.Offset)
		c.index()
	}
	c.expect(token.GETS)

	if c.tok.Kind == token.ARRAY {
		if indexed || !prop.Type.IsArray() {
			c.rep.Abort(pos, report.IllegalArrayOperation, "array allocation requires a declared array target")
		}
		c.advance()
		szPos := c.tok.Pos
		szType := c.simple()
		if !(szType.IsScalar() && szType.Base == types.Integer) {
			c.rep.Abort(szPos, report.IncompatibleTypes, "incompatible types (expected integer, found %v) for array size", szType)
		}
		c.em.GenNewArray()
		c.em.Gen2(emitter.OpAStore, prop.Offset)
		return
	}

	required := prop.Type
	if indexed {
		required = types.Scalar(prop.Type.Base)
	}
	valPos := c.tok.Pos
	valType := c.expr()
	if !types.Equal(valType, required) {
		c.rep.Abort(valPos, report.IncompatibleTypes, "incompatible types (expected %v, found %v) for assignment to %q", required, valType, name)
	}
	switch {
	case indexed:
		c.em.Gen1(emitter.OpIAStore)
	case prop.Type.IsArray():
		c.em.Gen2(emitter.OpAStore, prop.Offset)
	default:
		c.em.Gen2(emitter.OpIStore, prop.Offset)
	}
}

// arglist parses "(" [expr {"," expr}] ")" for a call to name with the
// already-resolved callable type sig, checking arity and per-position
// argument types before emitting the call.
func (c *Context) arglist(name string, sig types.Type) {
	c.expect(token.LPAR)
	var args []types.Type
	var argPos []token.Position
	if c.tok.Kind != token.RPAR {
		p := c.tok.Pos
		args = append(args, c.expr())
		argPos = append(argPos, p)
		for c.accept(token.COMMA) {
			p := c.tok.Pos
			args = append(args, c.expr())
			argPos = append(argPos, p)
		}
	}
	c.expect(token.RPAR)

	switch {
	case len(sig.Params) == 0 && len(args) > 0:
		c.rep.Abort(argPos[0], report.TakesNoArguments, "%q takes no arguments", name)
	case len(args) < len(sig.Params):
		c.rep.Abort(c.tok.Pos, report.TooFewArguments, "too few arguments to %q", name)
	case len(args) > len(sig.Params):
		c.rep.Abort(argPos[len(sig.Params)], report.TooManyArguments, "too many arguments to %q", name)
	}
	for i, want := range sig.Params {
		if !types.Equal(args[i], want) {
			c.rep.Abort(argPos[i], report.IncompatibleTypes, "incompatible types (expected %v, found %v) for argument %d of %q", want, args[i], i+1, name)
		}
	}
	c.em.GenCall(name, sig)
}

// expr parses simple [relop simple].
func (c *Context) expr() types.Type {
	pos := c.tok.Pos
	t := c.simple()

	var relOp string
	switch c.tok.Kind {
	case token.EQ:
		relOp = "="
	case token.NE:
		relOp = "#"
	case token.GE:
		relOp = ">="
	case token.GT:
		relOp = ">"
	case token.LE:
		relOp = "<="
	case token.LT:
		relOp = "<"
	default:
		return t
	}
	c.advance()
	rhsPos := c.tok.Pos
	rhs := c.simple()

	if relOp == "=" || relOp == "#" {
		if t.IsArray() || rhs.IsArray() || !types.Equal(t, rhs) {
			c.rep.Abort(pos, report.IncompatibleTypes, "incompatible types (%v vs %v) for operator %s", t, rhs, relOp)
		}
	} else if !(t.IsScalar() && t.Base == types.Integer && rhs.IsScalar() && rhs.Base == types.Integer) {
		c.rep.Abort(rhsPos, report.IncompatibleTypes, "incompatible types (expected integer, found %v) for operator %s", rhs, relOp)
	}
	c.em.GenCmp(relOp)
	return types.Scalar(types.Boolean)
}

// simple parses ["-"] term {addop term}, with addop in {- + or}.
func (c *Context) simple() types.Type {
	var negPos token.Position
	neg := c.tok.Kind == token.MINUS
	if neg {
		negPos = c.tok.Pos
		c.advance()
	}
	t := c.term()
	if neg {
		if !(t.IsScalar() && t.Base == types.Integer) {
			c.rep.Abort(negPos, report.IncompatibleTypes, "incompatible types (expected integer, found %v) for unary minus", t)
		}
		c.em.Gen1(emitter.OpINeg)
	}
	for {
		var op string
		switch c.tok.Kind {
		case token.PLUS:
			op = "+"
		case token.MINUS:
			op = "-"
		case token.OR:
			op = "or"
		default:
			return t
		}
		pos := c.tok.Pos
		c.advance()
		rhs := c.term()
		t = c.applyAddOp(pos, op, t, rhs)
	}
}

func (c *Context) applyAddOp(pos token.Position, op string, lhs, rhs types.Type) types.Type {
	if lhs.IsArray() || rhs.IsArray() {
		c.rep.Abort(pos, report.IllegalArrayOperation, "illegal array operation %s", op)
	}
	if op == "or" {
		if !(lhs.IsScalar() && lhs.Base == types.Boolean && rhs.IsScalar() && rhs.Base == types.Boolean) {
			c.rep.Abort(pos, report.IncompatibleTypes, "incompatible types (expected boolean, found %v) for operator or", rhs)
		}
		c.em.Gen1(emitter.OpIOr)
		return types.Scalar(types.Boolean)
	}
	if !(lhs.IsScalar() && lhs.Base == types.Integer && rhs.IsScalar() && rhs.Base == types.Integer) {
		c.rep.Abort(pos, report.IncompatibleTypes, "incompatible types (expected integer, found %v) for operator %s", rhs, op)
	}
	if op == "+" {
		c.em.Gen1(emitter.OpIAdd)
	} else {
		c.em.Gen1(emitter.OpISub)
	}
	return types.Scalar(types.Integer)
}

// term parses factor {mulop factor}, with mulop in {and * / mod}.
func (c *Context) term() types.Type {
	t := c.factor()
	for {
		var op string
		switch c.tok.Kind {
		case token.AND:
			op = "and"
		case token.MUL:
			op = "*"
		case token.DIV:
			op = "/"
		case token.MOD:
			op = "mod"
		default:
			return t
		}
		pos := c.tok.Pos
		c.advance()
		rhs := c.factor()
		t = c.applyMulOp(pos, op, t, rhs)
	}
}

func (c *Context) applyMulOp(pos token.Position, op string, lhs, rhs types.Type) types.Type {
	if lhs.IsArray() || rhs.IsArray() {
		c.rep.Abort(pos, report.IllegalArrayOperation, "illegal array operation %s", op)
	}
	if op == "and" {
		if !(lhs.IsScalar() && lhs.Base == types.Boolean && rhs.IsScalar() && rhs.Base == types.Boolean) {
			c.rep.Abort(pos, report.IncompatibleTypes, "incompatible types (expected boolean, found %v) for operator and", rhs)
		}
		c.em.Gen1(emitter.OpIAnd)
		return types.Scalar(types.Boolean)
	}
	if !(lhs.IsScalar() && lhs.Base == types.Integer && rhs.IsScalar() && rhs.Base == types.Integer) {
		c.rep.Abort(pos, report.IncompatibleTypes, "incompatible types (expected integer, found %v) for operator %s", rhs, op)
	}
	switch op {
	case "*":
		c.em.Gen1(emitter.OpIMul)
	case "/":
		c.em.Gen1(emitter.OpIDiv)
	case "mod":
		c.em.Gen1(emitter.OpIRem)
	}
	return types.Scalar(types.Integer)
}

// factor parses id [index|arglist] | number | "not" factor | "true" |
// "false" | "(" expr ")".
func (c *Context) factor() types.Type {
	switch c.tok.Kind {
	case token.NUMBER:
		v := c.tok.Num
		c.advance()
		c.em.Gen2(emitter.OpLdc, int(v))
		return types.Scalar(types.Integer)

	case token.TRUE:
		c.advance()
		c.em.Gen2(emitter.OpLdc, 1)
		return types.Scalar(types.Boolean)

	case token.FALSE:
		c.advance()
		c.em.Gen2(emitter.OpLdc, 0)
		return types.Scalar(types.Boolean)

	case token.NOT:
		pos := c.tok.Pos
		c.advance()
		t := c.factor()
		if !(t.IsScalar() && t.Base == types.Boolean) {
			c.rep.Abort(pos, report.IncompatibleTypes, "incompatible types (expected boolean, found %v) for operator not", t)
		}
		c.em.Gen2(emitter.OpLdc, 1)
		c.em.Gen1(emitter.OpIXor)
		return types.Scalar(types.Boolean)

	case token.LPAR:
		c.advance()
		t := c.expr()
		c.expect(token.RPAR)
		return t

	case token.IDENTIFIER:
		pos := c.tok.Pos
		name := c.tok.Lexeme
		c.advance()
		prop, ok := c.sym.FindName(name)
		if !ok {
			c.rep.Abort(pos, report.UnknownIdentifier, "unknown identifier %q", name)
		}
		switch {
		case c.tok.Kind == token.LPAR:
			if !prop.Type.IsFunction() {
				c.rep.Abort(pos, report.NotAFunction, "%q is not a function", name)
			}
			c.arglist(name, prop.Type)
			return prop.Type.ReturnType()
		case c.tok.Kind == token.LBRACK:
			if !prop.Type.IsArray() {
				c.rep.Abort(pos, report.NotAnArray, "%q is not an array", name)
			}
			c.em.Gen2(emitter.OpALoad, prop.Offset)
			c.index()
			c.em.Gen1(emitter.OpIALoad)
			return types.Scalar(prop.Type.Base)
		default:
			if prop.Type.IsCallable() {
				c.rep.Abort(pos, report.MissingArgList, "missing argument list for %q", name)
			}
			if prop.Type.IsArray() {
				c.em.Gen2(emitter.OpALoad, prop.Offset)
			} else {
				c.em.Gen2(emitter.OpILoad, prop.Offset)
			}
			return prop.Type
		}

	default:
		c.rep.Abort(c.tok.Pos, report.ExpectedConstruct, "expected a factor, found %v", c.tok)
		panic("unreachable")
	}
}
