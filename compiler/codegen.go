package compiler

// Lowering from the checked AST to three address code. Runs only when the
// reporter is empty after the semantic passes.

type Emitter struct {
	gen   *CodeGenerator
	table *SymbolTable
	rep   *Reporter

	ptrThis     *Location
	breakLabels []string
	varLocs     map[*VarDecl]*Location
}

// EmitProgram lowers the whole program. A missing global main is reported
// here, as are the double and interface constructs the lowering does not
// support.
func EmitProgram(p *Program, table *SymbolTable, rep *Reporter) []Instruction {
	e := &Emitter{
		gen:     NewCodeGenerator(),
		table:   table,
		rep:     rep,
		varLocs: make(map[*VarDecl]*Location),
	}
	if !hasMain(p) {
		rep.Report(0, ErrNoMainFound, "Linker: function 'main' not defined")
		return nil
	}
	for _, decl := range p.Decls {
		if v, ok := decl.(*VarDecl); ok {
			e.varLocs[v] = &Location{Name: v.Name, Segment: GpRelative, Offset: v.offset}
			if v.Type == DoubleType {
				rep.Report(v.Line(), ErrFormatted, "Double is not supported")
			}
		}
	}
	for _, decl := range p.Decls {
		switch d := decl.(type) {
		case *FnDecl:
			e.emitFn(d, nil)
		case *ClassDecl:
			e.gen.GenVTable(d.Name, d.VTableLabels())
			for _, member := range d.Members {
				if fn, ok := member.(*FnDecl); ok {
					e.emitFn(fn, d)
				}
			}
		case *InterfaceDecl:
			rep.Report(d.Line(), ErrFormatted, "Interface is not supported")
		}
	}
	if rep.HasErrors() {
		return nil
	}
	return e.gen.Code()
}

func hasMain(p *Program) bool {
	for _, decl := range p.Decls {
		if fn, ok := decl.(*FnDecl); ok && fn.Name == "main" {
			return true
		}
	}
	return false
}

func (e *Emitter) emitFn(fn *FnDecl, class *ClassDecl) {
	e.gen.GenLabel(fn.label)
	e.gen.GenBeginFunc()
	paramOffset := OffsetToFirstParam
	if class != nil {
		e.ptrThis = &Location{Name: "this", Segment: FpRelative, Offset: paramOffset}
		paramOffset += VarSize
	} else {
		e.ptrThis = nil
	}
	for _, formal := range fn.Formals {
		if formal.Type == DoubleType {
			e.rep.Report(formal.Line(), ErrFormatted, "Double is not supported")
		}
		e.varLocs[formal] = &Location{Name: formal.Name, Segment: FpRelative, Offset: paramOffset}
		paramOffset += VarSize
	}
	e.emitBlock(fn.Body)
	e.gen.GenEndFunc()
}

func (e *Emitter) emitBlock(block *StmtBlock) {
	for _, decl := range block.Decls {
		if decl.Type == DoubleType {
			e.rep.Report(decl.Line(), ErrFormatted, "Double is not supported")
		}
		e.varLocs[decl] = e.gen.NewLocal(decl.Name)
	}
	for _, stmt := range block.Stmts {
		e.emitStmt(stmt)
	}
}

func (e *Emitter) emitStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *StmtBlock:
		e.emitBlock(s)
	case *IfStmt:
		e.emitIf(s)
	case *WhileStmt:
		e.emitWhile(s)
	case *ForStmt:
		e.emitFor(s)
	case *BreakStmt:
		e.gen.GenGoto(e.breakLabels[len(e.breakLabels)-1])
	case *ReturnStmt:
		e.gen.GenReturn(e.emitExpr(s.Value))
	case *PrintStmt:
		e.emitPrint(s)
	case Expr:
		e.emitExpr(s)
	}
}

func (e *Emitter) emitIf(s *IfStmt) {
	test := e.emitExpr(s.Test)
	elseLabel := e.gen.NewLabel()
	e.gen.GenIfZ(test, elseLabel)
	e.emitStmt(s.Then)
	if s.Else == nil {
		e.gen.GenLabel(elseLabel)
		return
	}
	endLabel := e.gen.NewLabel()
	e.gen.GenGoto(endLabel)
	e.gen.GenLabel(elseLabel)
	e.emitStmt(s.Else)
	e.gen.GenLabel(endLabel)
}

func (e *Emitter) emitWhile(s *WhileStmt) {
	topLabel := e.gen.NewLabel()
	e.gen.GenLabel(topLabel)
	test := e.emitExpr(s.Test)
	endLabel := e.gen.NewLabel()
	e.gen.GenIfZ(test, endLabel)
	e.breakLabels = append(e.breakLabels, endLabel)
	e.emitStmt(s.Body)
	e.breakLabels = e.breakLabels[:len(e.breakLabels)-1]
	e.gen.GenGoto(topLabel)
	e.gen.GenLabel(endLabel)
}

func (e *Emitter) emitFor(s *ForStmt) {
	e.emitExpr(s.Init)
	topLabel := e.gen.NewLabel()
	e.gen.GenLabel(topLabel)
	test := e.emitExpr(s.Test)
	endLabel := e.gen.NewLabel()
	e.gen.GenIfZ(test, endLabel)
	e.breakLabels = append(e.breakLabels, endLabel)
	e.emitStmt(s.Body)
	e.breakLabels = e.breakLabels[:len(e.breakLabels)-1]
	e.emitExpr(s.Step)
	e.gen.GenGoto(topLabel)
	e.gen.GenLabel(endLabel)
}

func (e *Emitter) emitPrint(s *PrintStmt) {
	for _, arg := range s.Args {
		loc := e.emitExpr(arg)
		switch arg.ResultType() {
		case IntType:
			e.gen.GenBuiltInCall(BuiltinPrintInt, loc)
		case BoolType:
			e.gen.GenBuiltInCall(BuiltinPrintBool, loc)
		case StringType:
			e.gen.GenBuiltInCall(BuiltinPrintString, loc)
		}
	}
}

func (e *Emitter) emitExpr(expr Expr) *Location {
	var loc *Location
	switch v := expr.(type) {
	case *EmptyExpr:
		loc = nil
	case *IntConstant:
		loc = e.gen.GenLoadConstant(v.Value)
	case *DoubleConstant:
		e.rep.Report(v.Line(), ErrFormatted, "Double is not supported")
		loc = e.gen.GenLoadConstant(0)
	case *BoolConstant:
		value := 0
		if v.Value {
			value = 1
		}
		loc = e.gen.GenLoadConstant(value)
	case *StringConstant:
		loc = e.gen.GenLoadStringConstant(v.Value)
	case *NullConstant:
		loc = e.gen.GenLoadConstant(0)
	case *ThisExpr:
		loc = e.ptrThis
	case *ArithmeticExpr:
		loc = e.emitArithmetic(v)
	case *RelationalExpr:
		loc = e.emitRelational(v)
	case *EqualityExpr:
		loc = e.emitEquality(v)
	case *LogicalExpr:
		loc = e.emitLogical(v)
	case *AssignExpr:
		loc = e.emitAssign(v)
	case *ArrayAccess:
		addr := e.emitArrayAddr(v)
		loc = e.gen.GenLoad(addr, 0)
	case *FieldAccess:
		loc = e.emitFieldAccess(v)
	case *Call:
		loc = e.emitCall(v)
	case *NewExpr:
		loc = e.emitNew(v)
	case *NewArrayExpr:
		loc = e.emitNewArray(v)
	case *ReadIntegerExpr:
		loc = e.gen.GenBuiltInCall(BuiltinReadInteger)
	case *ReadLineExpr:
		loc = e.gen.GenBuiltInCall(BuiltinReadLine)
	}
	expr.setLoc(loc)
	return loc
}

func (e *Emitter) emitArithmetic(v *ArithmeticExpr) *Location {
	if v.Left == nil {
		right := e.emitExpr(v.Right)
		zero := e.gen.GenLoadConstant(0)
		return e.gen.GenBinaryOp("-", zero, right)
	}
	left := e.emitExpr(v.Left)
	right := e.emitExpr(v.Right)
	return e.gen.GenBinaryOp(v.Op, left, right)
}

// emitRelational lowers > and >= by swapping the operands of < and <=.
func (e *Emitter) emitRelational(v *RelationalExpr) *Location {
	left := e.emitExpr(v.Left)
	right := e.emitExpr(v.Right)
	switch v.Op {
	case ">":
		return e.gen.GenBinaryOp("<", right, left)
	case ">=":
		return e.gen.GenBinaryOp("<=", right, left)
	default:
		return e.gen.GenBinaryOp(v.Op, left, right)
	}
}

// emitEquality compares strings by content through _StringEqual and
// everything else by value; != negates the == result against zero.
func (e *Emitter) emitEquality(v *EqualityExpr) *Location {
	left := e.emitExpr(v.Left)
	right := e.emitExpr(v.Right)
	var result *Location
	if v.Left.ResultType() == StringType && v.Right.ResultType() == StringType {
		result = e.gen.GenBuiltInCall(BuiltinStringEqual, left, right)
	} else {
		result = e.gen.GenBinaryOp("==", left, right)
	}
	if v.Op == "!=" {
		zero := e.gen.GenLoadConstant(0)
		result = e.gen.GenBinaryOp("==", zero, result)
	}
	return result
}

func (e *Emitter) emitLogical(v *LogicalExpr) *Location {
	right := e.emitExpr(v.Right)
	if v.Left == nil {
		zero := e.gen.GenLoadConstant(0)
		return e.gen.GenBinaryOp("==", zero, right)
	}
	left := e.emitExpr(v.Left)
	return e.gen.GenBinaryOp(v.Op, left, right)
}

func (e *Emitter) emitAssign(v *AssignExpr) *Location {
	right := e.emitExpr(v.Right)
	switch lhs := v.Left.(type) {
	case *ArrayAccess:
		addr := e.emitArrayAddr(lhs)
		e.gen.GenStore(addr, 0, right)
	case *FieldAccess:
		if lhs.memberOf != "" {
			base := e.ptrThis
			if lhs.Receiver != nil {
				base = e.emitExpr(lhs.Receiver)
			}
			e.gen.GenStore(base, lhs.field.offset, right)
		} else {
			e.gen.GenAssign(e.varLocs[lhs.field], right)
		}
	}
	return right
}

// emitArrayAddr computes the element address after the bounds check. The
// array's length sits one word below the element base.
func (e *Emitter) emitArrayAddr(v *ArrayAccess) *Location {
	base := e.emitExpr(v.Base)
	index := e.emitExpr(v.Subscript)
	zero := e.gen.GenLoadConstant(0)
	negative := e.gen.GenBinaryOp("<", index, zero)
	size := e.gen.GenLoad(base, -VarSize)
	within := e.gen.GenBinaryOp("<", index, size)
	tooBig := e.gen.GenBinaryOp("==", within, zero)
	bad := e.gen.GenBinaryOp("||", negative, tooBig)
	okLabel := e.gen.NewLabel()
	e.gen.GenIfZ(bad, okLabel)
	message := e.gen.GenLoadStringConstant(errArrayOutOfBounds)
	e.gen.GenBuiltInCall(BuiltinPrintString, message)
	e.gen.GenBuiltInCall(BuiltinHalt)
	e.gen.GenLabel(okLabel)
	elemSize := e.gen.GenLoadConstant(VarSize)
	byteOffset := e.gen.GenBinaryOp("*", elemSize, index)
	return e.gen.GenBinaryOp("+", base, byteOffset)
}

func (e *Emitter) emitFieldAccess(v *FieldAccess) *Location {
	if v.memberOf == "" {
		return e.varLocs[v.field]
	}
	base := e.ptrThis
	if v.Receiver != nil {
		base = e.emitExpr(v.Receiver)
	}
	return e.gen.GenLoad(base, v.field.offset)
}

func (e *Emitter) emitCall(v *Call) *Location {
	if v.arrayLength {
		base := e.emitExpr(v.Receiver)
		return e.gen.GenLoad(base, -VarSize)
	}
	actuals := make([]*Location, 0, len(v.Actuals))
	for _, arg := range v.Actuals {
		actuals = append(actuals, e.emitExpr(arg))
	}
	hasResult := v.fn.ReturnType != VoidType
	if v.memberOf == "" {
		for i := len(actuals) - 1; i >= 0; i-- {
			e.gen.GenPushParam(actuals[i])
		}
		result := e.gen.GenLCall(v.fn.label, hasResult)
		e.gen.GenPopParams(len(actuals) * VarSize)
		return result
	}
	receiver := e.ptrThis
	if v.Receiver != nil {
		receiver = e.emitExpr(v.Receiver)
	}
	vtable := e.gen.GenLoad(receiver, 0)
	target := e.gen.GenLoad(vtable, v.fn.vtableSlot*VarSize)
	for i := len(actuals) - 1; i >= 0; i-- {
		e.gen.GenPushParam(actuals[i])
	}
	e.gen.GenPushParam(receiver)
	result := e.gen.GenACall(target, hasResult)
	e.gen.GenPopParams((len(actuals) + 1) * VarSize)
	return result
}

func (e *Emitter) emitNew(v *NewExpr) *Location {
	class := v.Class.decl.(*ClassDecl)
	size := e.gen.GenLoadConstant(class.InstanceSize())
	base := e.gen.GenBuiltInCall(BuiltinAlloc, size)
	vtable := e.gen.GenLoadLabel(class.Name)
	e.gen.GenStore(base, 0, vtable)
	return base
}

func (e *Emitter) emitNewArray(v *NewArrayExpr) *Location {
	size := e.emitExpr(v.Size)
	zero := e.gen.GenLoadConstant(0)
	negative := e.gen.GenBinaryOp("<", size, zero)
	empty := e.gen.GenBinaryOp("==", size, zero)
	bad := e.gen.GenBinaryOp("||", negative, empty)
	okLabel := e.gen.NewLabel()
	e.gen.GenIfZ(bad, okLabel)
	message := e.gen.GenLoadStringConstant(errArrayBadSize)
	e.gen.GenBuiltInCall(BuiltinPrintString, message)
	e.gen.GenBuiltInCall(BuiltinHalt)
	e.gen.GenLabel(okLabel)
	one := e.gen.GenLoadConstant(1)
	count := e.gen.GenBinaryOp("+", size, one)
	elemSize := e.gen.GenLoadConstant(VarSize)
	bytes := e.gen.GenBinaryOp("*", count, elemSize)
	base := e.gen.GenBuiltInCall(BuiltinAlloc, bytes)
	e.gen.GenStore(base, 0, size)
	return e.gen.GenBinaryOp("+", base, elemSize)
}
