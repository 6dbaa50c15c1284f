package compiler

// A recursive descent parser over the token list. Syntax errors are reported
// through the shared reporter and the parser skips ahead to the next
// declaration boundary so one bad construct does not hide the rest.

type Parser struct {
	tokens []*Token
	pos    int
	rep    *Reporter
}

func Parse(tokens []*Token, rep *Reporter) *Program {
	p := &Parser{tokens: tokens, rep: rep}
	program := &Program{}
	if len(tokens) > 0 {
		program.line = tokens[0].Line
	}
	for !p.atEnd() {
		decl := p.parseDecl()
		if decl == nil {
			p.recoverToDecl()
			continue
		}
		program.Decls = append(program.Decls, decl)
	}
	program.BindParents()
	return program
}

func (p *Parser) atEnd() bool {
	return p.pos >= len(p.tokens)
}

func (p *Parser) peek() *Token {
	if p.atEnd() {
		return nil
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) *Token {
	if p.pos+offset >= len(p.tokens) {
		return nil
	}
	return p.tokens[p.pos+offset]
}

func (p *Parser) advance() *Token {
	tok := p.peek()
	if tok != nil {
		p.pos++
	}
	return tok
}

func (p *Parser) check(tp TokenType) bool {
	tok := p.peek()
	return tok != nil && tok.TP == tp
}

func (p *Parser) match(tp TokenType) *Token {
	if p.check(tp) {
		return p.advance()
	}
	return nil
}

func (p *Parser) curLine() int {
	if tok := p.peek(); tok != nil {
		return tok.Line
	}
	if len(p.tokens) > 0 {
		return p.tokens[len(p.tokens)-1].Line
	}
	return 1
}

func (p *Parser) expect(tp TokenType, what string) *Token {
	if tok := p.match(tp); tok != nil {
		return tok
	}
	p.rep.Report(p.curLine(), ErrSyntax, "Expected %s", what)
	return nil
}

// recoverToDecl skips tokens until a plausible declaration start.
func (p *Parser) recoverToDecl() {
	for !p.atEnd() {
		switch p.peek().TP {
		case ClassTP, InterfaceTP, VoidTP, IntTP, DoubleTP, BoolTP, StringTP:
			return
		case SemiColonTP, RightBraceTP:
			p.advance()
			return
		}
		p.advance()
	}
}

func (p *Parser) parseDecl() Decl {
	tok := p.peek()
	if tok == nil {
		return nil
	}
	switch tok.TP {
	case ClassTP:
		return p.parseClassDecl()
	case InterfaceTP:
		return p.parseInterfaceDecl()
	default:
		return p.parseVarOrFnDecl(false)
	}
}

func isTypeStart(tp TokenType) bool {
	switch tp {
	case IntTP, DoubleTP, BoolTP, StringTP, IdentifierTP:
		return true
	}
	return false
}

// parseType parses a type: a primitive or named base followed by any number
// of [] pairs.
func (p *Parser) parseType() Type {
	tok := p.peek()
	if tok == nil {
		p.rep.Report(p.curLine(), ErrSyntax, "Expected type")
		return ErrorType
	}
	var base Type
	switch tok.TP {
	case IntTP:
		base = IntType
	case DoubleTP:
		base = DoubleType
	case BoolTP:
		base = BoolType
	case StringTP:
		base = StringType
	case IdentifierTP:
		base = NewNamedType(tok.Value.(string), tok.Line)
	default:
		p.rep.Report(tok.Line, ErrSyntax, "Expected type")
		return ErrorType
	}
	p.advance()
	for p.check(LeftBracketTP) {
		line := p.peek().Line
		p.advance()
		if p.expect(RightBracketTP, "']'") == nil {
			break
		}
		base = NewArrayType(base, line)
	}
	return base
}

// parseVarOrFnDecl parses `Type ident ;`, `Type ident ( ... ) { ... }` or
// `void ident ( ... ) { ... }`. With proto set function bodies are replaced
// by a terminating semicolon.
func (p *Parser) parseVarOrFnDecl(proto bool) Decl {
	line := p.curLine()
	var typ Type
	if p.check(VoidTP) {
		p.advance()
		typ = VoidType
	} else {
		typ = p.parseType()
		if typ == ErrorType {
			return nil
		}
	}
	name := p.expect(IdentifierTP, "identifier")
	if name == nil {
		return nil
	}
	if p.check(LeftParenTP) {
		return p.parseFnRest(line, typ, name.Value.(string), proto)
	}
	if typ == VoidType {
		p.rep.Report(line, ErrSyntax, "Variable '%s' cannot have type void", name.Value.(string))
		p.match(SemiColonTP)
		return nil
	}
	if p.expect(SemiColonTP, "';'") == nil {
		return nil
	}
	return &VarDecl{nodeBase: nodeBase{line: line}, Name: name.Value.(string), Type: typ}
}

func (p *Parser) parseFnRest(line int, ret Type, name string, proto bool) Decl {
	p.advance() // (
	var formals []*VarDecl
	for !p.check(RightParenTP) && !p.atEnd() {
		if len(formals) > 0 && p.expect(CommaTP, "','") == nil {
			break
		}
		fline := p.curLine()
		ftype := p.parseType()
		fname := p.expect(IdentifierTP, "formal name")
		if fname == nil {
			break
		}
		formals = append(formals, &VarDecl{
			nodeBase: nodeBase{line: fline},
			Name:     fname.Value.(string),
			Type:     ftype,
		})
	}
	if p.expect(RightParenTP, "')'") == nil {
		return nil
	}
	fn := &FnDecl{
		nodeBase:   nodeBase{line: line},
		Name:       name,
		ReturnType: ret,
		Formals:    formals,
	}
	if proto {
		if p.expect(SemiColonTP, "';'") == nil {
			return nil
		}
		return fn
	}
	body := p.parseStmtBlock()
	if body == nil {
		return nil
	}
	fn.Body = body
	return fn
}

func (p *Parser) parseClassDecl() Decl {
	line := p.advance().Line // class
	name := p.expect(IdentifierTP, "class name")
	if name == nil {
		return nil
	}
	decl := &ClassDecl{nodeBase: nodeBase{line: line}, Name: name.Value.(string)}
	if p.match(ExtendsTP) != nil {
		parent := p.expect(IdentifierTP, "parent class name")
		if parent == nil {
			return nil
		}
		decl.Extends = NewNamedType(parent.Value.(string), parent.Line)
	}
	if p.match(ImplementsTP) != nil {
		for {
			iface := p.expect(IdentifierTP, "interface name")
			if iface == nil {
				return nil
			}
			decl.Implements = append(decl.Implements, NewNamedType(iface.Value.(string), iface.Line))
			if p.match(CommaTP) == nil {
				break
			}
		}
	}
	if p.expect(LeftBraceTP, "'{'") == nil {
		return nil
	}
	for !p.check(RightBraceTP) && !p.atEnd() {
		member := p.parseVarOrFnDecl(false)
		if member == nil {
			p.recoverToDecl()
			continue
		}
		decl.Members = append(decl.Members, member)
	}
	p.expect(RightBraceTP, "'}'")
	return decl
}

func (p *Parser) parseInterfaceDecl() Decl {
	line := p.advance().Line // interface
	name := p.expect(IdentifierTP, "interface name")
	if name == nil {
		return nil
	}
	decl := &InterfaceDecl{nodeBase: nodeBase{line: line}, Name: name.Value.(string)}
	if p.expect(LeftBraceTP, "'{'") == nil {
		return nil
	}
	for !p.check(RightBraceTP) && !p.atEnd() {
		member := p.parseVarOrFnDecl(true)
		if member == nil {
			p.recoverToDecl()
			continue
		}
		fn, ok := member.(*FnDecl)
		if !ok {
			p.rep.Report(member.Line(), ErrSyntax, "Interfaces may only contain function prototypes")
			continue
		}
		decl.Members = append(decl.Members, fn)
	}
	p.expect(RightBraceTP, "'}'")
	return decl
}

func (p *Parser) parseStmtBlock() *StmtBlock {
	open := p.expect(LeftBraceTP, "'{'")
	if open == nil {
		return nil
	}
	block := &StmtBlock{nodeBase: nodeBase{line: open.Line}}
	// leading variable declarations
	for p.startsVarDecl() {
		line := p.curLine()
		typ := p.parseType()
		name := p.expect(IdentifierTP, "identifier")
		if name == nil {
			p.recoverToStmt()
			continue
		}
		if p.expect(SemiColonTP, "';'") == nil {
			p.recoverToStmt()
			continue
		}
		block.Decls = append(block.Decls, &VarDecl{
			nodeBase: nodeBase{line: line},
			Name:     name.Value.(string),
			Type:     typ,
		})
	}
	for !p.check(RightBraceTP) && !p.atEnd() {
		stmt := p.parseStmt()
		if stmt == nil {
			p.recoverToStmt()
			continue
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	p.expect(RightBraceTP, "'}'")
	return block
}

// startsVarDecl distinguishes `Type ident ;` from an expression statement
// that begins with an identifier.
func (p *Parser) startsVarDecl() bool {
	tok := p.peek()
	if tok == nil {
		return false
	}
	switch tok.TP {
	case IntTP, DoubleTP, BoolTP, StringTP:
		return true
	case IdentifierTP:
		// Foo x; or Foo[] x;
		next := p.peekAt(1)
		if next == nil {
			return false
		}
		if next.TP == IdentifierTP {
			return true
		}
		if next.TP == LeftBracketTP {
			after := p.peekAt(2)
			return after != nil && after.TP == RightBracketTP
		}
	}
	return false
}

func (p *Parser) recoverToStmt() {
	for !p.atEnd() {
		switch p.peek().TP {
		case SemiColonTP:
			p.advance()
			return
		case RightBraceTP:
			return
		}
		p.advance()
	}
}

func (p *Parser) parseStmt() Stmt {
	tok := p.peek()
	if tok == nil {
		return nil
	}
	switch tok.TP {
	case LeftBraceTP:
		block := p.parseStmtBlock()
		if block == nil {
			return nil
		}
		return block
	case IfTP:
		return p.parseIfStmt()
	case WhileTP:
		return p.parseWhileStmt()
	case ForTP:
		return p.parseForStmt()
	case BreakTP:
		p.advance()
		if p.expect(SemiColonTP, "';'") == nil {
			return nil
		}
		return &BreakStmt{nodeBase: nodeBase{line: tok.Line}}
	case ReturnTP:
		return p.parseReturnStmt()
	case PrintTP:
		return p.parsePrintStmt()
	case SemiColonTP:
		p.advance()
		return &EmptyExpr{exprBase{nodeBase: nodeBase{line: tok.Line}, typ: nil, loc: nil}}
	default:
		expr := p.parseExpr()
		if expr == nil {
			return nil
		}
		if p.expect(SemiColonTP, "';'") == nil {
			return nil
		}
		return expr
	}
}

func (p *Parser) parseIfStmt() Stmt {
	line := p.advance().Line
	if p.expect(LeftParenTP, "'('") == nil {
		return nil
	}
	test := p.parseExpr()
	if test == nil || p.expect(RightParenTP, "')'") == nil {
		return nil
	}
	then := p.parseStmt()
	if then == nil {
		return nil
	}
	stmt := &IfStmt{nodeBase: nodeBase{line: line}, Test: test, Then: then}
	if p.match(ElseTP) != nil {
		stmt.Else = p.parseStmt()
		if stmt.Else == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseWhileStmt() Stmt {
	line := p.advance().Line
	if p.expect(LeftParenTP, "'('") == nil {
		return nil
	}
	test := p.parseExpr()
	if test == nil || p.expect(RightParenTP, "')'") == nil {
		return nil
	}
	body := p.parseStmt()
	if body == nil {
		return nil
	}
	return &WhileStmt{nodeBase: nodeBase{line: line}, Test: test, Body: body}
}

func (p *Parser) parseForStmt() Stmt {
	line := p.advance().Line
	if p.expect(LeftParenTP, "'('") == nil {
		return nil
	}
	init := p.parseOptExpr(SemiColonTP)
	if p.expect(SemiColonTP, "';'") == nil {
		return nil
	}
	test := p.parseExpr()
	if test == nil || p.expect(SemiColonTP, "';'") == nil {
		return nil
	}
	step := p.parseOptExpr(RightParenTP)
	if p.expect(RightParenTP, "')'") == nil {
		return nil
	}
	body := p.parseStmt()
	if body == nil {
		return nil
	}
	return &ForStmt{nodeBase: nodeBase{line: line}, Init: init, Test: test, Step: step, Body: body}
}

func (p *Parser) parseOptExpr(terminator TokenType) Expr {
	if p.check(terminator) {
		return &EmptyExpr{exprBase{nodeBase: nodeBase{line: p.curLine()}}}
	}
	expr := p.parseExpr()
	if expr == nil {
		return &EmptyExpr{exprBase{nodeBase: nodeBase{line: p.curLine()}}}
	}
	return expr
}

func (p *Parser) parseReturnStmt() Stmt {
	line := p.advance().Line
	stmt := &ReturnStmt{nodeBase: nodeBase{line: line}}
	if p.check(SemiColonTP) {
		stmt.Value = &EmptyExpr{exprBase{nodeBase: nodeBase{line: line}}}
	} else {
		stmt.Value = p.parseExpr()
		if stmt.Value == nil {
			return nil
		}
	}
	if p.expect(SemiColonTP, "';'") == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parsePrintStmt() Stmt {
	line := p.advance().Line
	if p.expect(LeftParenTP, "'('") == nil {
		return nil
	}
	stmt := &PrintStmt{nodeBase: nodeBase{line: line}}
	for {
		arg := p.parseExpr()
		if arg == nil {
			return nil
		}
		stmt.Args = append(stmt.Args, arg)
		if p.match(CommaTP) == nil {
			break
		}
	}
	if p.expect(RightParenTP, "')'") == nil || p.expect(SemiColonTP, "';'") == nil {
		return nil
	}
	return stmt
}

// Expression grammar, lowest precedence first:
//   assign -> or ( = assign )?
//   or     -> and ( || and )*
//   and    -> equality ( && equality )*
//   equality -> relational ( ==|!= relational )*
//   relational -> additive ( <|<=|>|>= additive )?
//   additive -> multiplicative ( +|- multiplicative )*
//   multiplicative -> unary ( *|/|% unary )*
//   unary  -> -|! unary | postfix
//   postfix -> primary ( .ident | .ident(args) | [expr] )*

func (p *Parser) parseExpr() Expr {
	return p.parseAssign()
}

func (p *Parser) parseAssign() Expr {
	left := p.parseOr()
	if left == nil {
		return nil
	}
	if tok := p.match(AssignTP); tok != nil {
		right := p.parseAssign()
		if right == nil {
			return nil
		}
		return &AssignExpr{
			exprBase: exprBase{nodeBase: nodeBase{line: tok.Line}},
			Left:     left,
			Right:    right,
		}
	}
	return left
}

func (p *Parser) parseOr() Expr {
	left := p.parseAnd()
	if left == nil {
		return nil
	}
	for {
		tok := p.match(OrTP)
		if tok == nil {
			return left
		}
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = &LogicalExpr{
			exprBase: exprBase{nodeBase: nodeBase{line: tok.Line}},
			Op:       "||", Left: left, Right: right,
		}
	}
}

func (p *Parser) parseAnd() Expr {
	left := p.parseEquality()
	if left == nil {
		return nil
	}
	for {
		tok := p.match(AndTP)
		if tok == nil {
			return left
		}
		right := p.parseEquality()
		if right == nil {
			return nil
		}
		left = &LogicalExpr{
			exprBase: exprBase{nodeBase: nodeBase{line: tok.Line}},
			Op:       "&&", Left: left, Right: right,
		}
	}
}

func (p *Parser) parseEquality() Expr {
	left := p.parseRelational()
	if left == nil {
		return nil
	}
	for {
		var op string
		tok := p.peek()
		if tok == nil {
			return left
		}
		switch tok.TP {
		case EqualTP:
			op = "=="
		case NotEqualTP:
			op = "!="
		default:
			return left
		}
		p.advance()
		right := p.parseRelational()
		if right == nil {
			return nil
		}
		left = &EqualityExpr{
			exprBase: exprBase{nodeBase: nodeBase{line: tok.Line}},
			Op:       op, Left: left, Right: right,
		}
	}
}

func (p *Parser) parseRelational() Expr {
	left := p.parseAdditive()
	if left == nil {
		return nil
	}
	var op string
	tok := p.peek()
	if tok == nil {
		return left
	}
	switch tok.TP {
	case LessTP:
		op = "<"
	case LessEqualTP:
		op = "<="
	case GreaterTP:
		op = ">"
	case GreaterEqualTP:
		op = ">="
	default:
		return left
	}
	p.advance()
	right := p.parseAdditive()
	if right == nil {
		return nil
	}
	return &RelationalExpr{
		exprBase: exprBase{nodeBase: nodeBase{line: tok.Line}},
		Op:       op, Left: left, Right: right,
	}
}

func (p *Parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	if left == nil {
		return nil
	}
	for {
		var op string
		tok := p.peek()
		if tok == nil {
			return left
		}
		switch tok.TP {
		case AddTP:
			op = "+"
		case MinusTP:
			op = "-"
		default:
			return left
		}
		p.advance()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = &ArithmeticExpr{
			exprBase: exprBase{nodeBase: nodeBase{line: tok.Line}},
			Op:       op, Left: left, Right: right,
		}
	}
}

func (p *Parser) parseMultiplicative() Expr {
	left := p.parseUnary()
	if left == nil {
		return nil
	}
	for {
		var op string
		tok := p.peek()
		if tok == nil {
			return left
		}
		switch tok.TP {
		case MultiplyTP:
			op = "*"
		case DivideTP:
			op = "/"
		case ModTP:
			op = "%"
		default:
			return left
		}
		p.advance()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &ArithmeticExpr{
			exprBase: exprBase{nodeBase: nodeBase{line: tok.Line}},
			Op:       op, Left: left, Right: right,
		}
	}
}

func (p *Parser) parseUnary() Expr {
	tok := p.peek()
	if tok == nil {
		p.rep.Report(p.curLine(), ErrSyntax, "Expected expression")
		return nil
	}
	switch tok.TP {
	case MinusTP:
		p.advance()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &ArithmeticExpr{
			exprBase: exprBase{nodeBase: nodeBase{line: tok.Line}},
			Op:       "-", Right: operand,
		}
	case NotTP:
		p.advance()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &LogicalExpr{
			exprBase: exprBase{nodeBase: nodeBase{line: tok.Line}},
			Op:       "!", Right: operand,
		}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() Expr {
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}
	for {
		switch {
		case p.check(DotTP):
			p.advance()
			name := p.expect(IdentifierTP, "field name")
			if name == nil {
				return nil
			}
			if p.check(LeftParenTP) {
				call := &Call{
					exprBase: exprBase{nodeBase: nodeBase{line: name.Line}},
					Receiver: expr,
					Name:     name.Value.(string),
				}
				if !p.parseActuals(call) {
					return nil
				}
				expr = call
			} else {
				expr = &FieldAccess{
					exprBase: exprBase{nodeBase: nodeBase{line: name.Line}},
					Receiver: expr,
					Name:     name.Value.(string),
				}
			}
		case p.check(LeftBracketTP):
			line := p.advance().Line
			sub := p.parseExpr()
			if sub == nil || p.expect(RightBracketTP, "']'") == nil {
				return nil
			}
			expr = &ArrayAccess{
				exprBase:  exprBase{nodeBase: nodeBase{line: line}},
				Base:      expr,
				Subscript: sub,
			}
		default:
			return expr
		}
	}
}

func (p *Parser) parseActuals(call *Call) bool {
	p.advance() // (
	for !p.check(RightParenTP) {
		if p.atEnd() {
			p.rep.Report(p.curLine(), ErrSyntax, "Expected ')'")
			return false
		}
		if len(call.Actuals) > 0 && p.expect(CommaTP, "','") == nil {
			return false
		}
		arg := p.parseExpr()
		if arg == nil {
			return false
		}
		call.Actuals = append(call.Actuals, arg)
	}
	p.advance() // )
	return true
}

func (p *Parser) parsePrimary() Expr {
	tok := p.peek()
	if tok == nil {
		p.rep.Report(p.curLine(), ErrSyntax, "Expected expression")
		return nil
	}
	base := exprBase{nodeBase: nodeBase{line: tok.Line}}
	switch tok.TP {
	case IntConstantTP:
		p.advance()
		return &IntConstant{exprBase: base, Value: tok.Value.(int)}
	case DoubleConstantTP:
		p.advance()
		return &DoubleConstant{exprBase: base, Value: tok.Value.(float64)}
	case TrueTP, FalseTP:
		p.advance()
		return &BoolConstant{exprBase: base, Value: tok.Value.(bool)}
	case StringConstantTP:
		p.advance()
		return &StringConstant{exprBase: base, Value: tok.Value.(string)}
	case NullTP:
		p.advance()
		return &NullConstant{exprBase: base}
	case ThisTP:
		p.advance()
		return &ThisExpr{exprBase: base}
	case LeftParenTP:
		p.advance()
		expr := p.parseExpr()
		if expr == nil || p.expect(RightParenTP, "')'") == nil {
			return nil
		}
		return expr
	case ReadIntegerTP:
		p.advance()
		if p.expect(LeftParenTP, "'('") == nil || p.expect(RightParenTP, "')'") == nil {
			return nil
		}
		return &ReadIntegerExpr{exprBase: base}
	case ReadLineTP:
		p.advance()
		if p.expect(LeftParenTP, "'('") == nil || p.expect(RightParenTP, "')'") == nil {
			return nil
		}
		return &ReadLineExpr{exprBase: base}
	case NewTP:
		p.advance()
		if p.expect(LeftParenTP, "'('") == nil {
			return nil
		}
		name := p.expect(IdentifierTP, "class name")
		if name == nil || p.expect(RightParenTP, "')'") == nil {
			return nil
		}
		return &NewExpr{exprBase: base, Class: NewNamedType(name.Value.(string), name.Line)}
	case NewArrayTP:
		p.advance()
		if p.expect(LeftParenTP, "'('") == nil {
			return nil
		}
		size := p.parseExpr()
		if size == nil || p.expect(CommaTP, "','") == nil {
			return nil
		}
		elem := p.parseType()
		if p.expect(RightParenTP, "')'") == nil {
			return nil
		}
		return &NewArrayExpr{exprBase: base, Size: size, Elem: elem}
	case IdentifierTP:
		p.advance()
		if p.check(LeftParenTP) {
			call := &Call{exprBase: base, Name: tok.Value.(string)}
			if !p.parseActuals(call) {
				return nil
			}
			return call
		}
		return &FieldAccess{exprBase: base, Name: tok.Value.(string)}
	}
	p.rep.Report(tok.Line, ErrSyntax, "Expected expression")
	return nil
}
