package compiler

// checkTypes is the fourth pass: every expression gets a type, every
// statement's constraints are verified. The walk re-enters scopes in
// creation order; expression checks resolve names against the active stack.
func (c *Checker) checkTypes(p *Program) {
	c.table.Reset()
	for _, decl := range p.Decls {
		switch d := decl.(type) {
		case *FnDecl:
			c.checkFnBody(d)
		case *ClassDecl:
			c.checkClassBodies(d)
		case *InterfaceDecl:
			c.checkInterfaceBodies(d)
		}
	}
}

func (c *Checker) checkFnBody(fn *FnDecl) {
	c.table.EnterScope("", "", nil)
	if fn.Body != nil {
		c.checkBlock(fn.Body)
	}
	c.table.ExitScope()
}

func (c *Checker) checkClassBodies(class *ClassDecl) {
	parent := ""
	if class.Extends != nil {
		parent = class.Extends.Name
	}
	var interfaces []string
	for _, iface := range class.Implements {
		interfaces = append(interfaces, iface.Name)
	}
	c.table.EnterScope(class.Name, parent, interfaces)
	for _, member := range class.Members {
		if fn, ok := member.(*FnDecl); ok {
			c.checkFnBody(fn)
		}
	}
	c.table.ExitScope()
}

func (c *Checker) checkInterfaceBodies(iface *InterfaceDecl) {
	c.table.EnterScope(iface.Name, "", nil)
	for _, proto := range iface.Members {
		c.checkFnBody(proto)
	}
	c.table.ExitScope()
}

func (c *Checker) checkBlock(block *StmtBlock) {
	c.table.EnterScope("", "", nil)
	for _, stmt := range block.Stmts {
		c.checkStmt(stmt)
	}
	c.table.ExitScope()
}

func (c *Checker) checkStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *StmtBlock:
		c.checkBlock(s)
	case *IfStmt:
		c.checkTest(s.Test)
		c.checkStmt(s.Then)
		if s.Else != nil {
			c.checkStmt(s.Else)
		}
	case *WhileStmt:
		c.checkTest(s.Test)
		c.checkStmt(s.Body)
	case *ForStmt:
		c.checkExpr(s.Init)
		c.checkTest(s.Test)
		c.checkExpr(s.Step)
		c.checkStmt(s.Body)
	case *BreakStmt:
		if enclosingLoop(s) == nil {
			c.rep.Report(s.Line(), ErrBreakOutsideLoop,
				"break is only allowed inside a loop")
		}
	case *ReturnStmt:
		c.checkReturn(s)
	case *PrintStmt:
		c.checkPrint(s)
	case Expr:
		c.checkExpr(s)
	}
}

func (c *Checker) checkTest(test Expr) {
	t := c.checkExpr(test)
	if t != BoolType && t != ErrorType {
		c.rep.Report(test.Line(), ErrTestNotBoolean,
			"Test expression must have boolean type")
	}
}

func (c *Checker) checkReturn(s *ReturnStmt) {
	fn := enclosingFn(s)
	if fn == nil {
		return
	}
	given := c.checkExpr(s.Value)
	if given == nil {
		given = VoidType
	}
	if !given.CompatibleWith(fn.ReturnType, c.table) {
		c.rep.Report(s.Line(), ErrReturnMismatch,
			"Incompatible return: %s given, %s expected", given, fn.ReturnType)
	}
}

func (c *Checker) checkPrint(s *PrintStmt) {
	for i, arg := range s.Args {
		t := c.checkExpr(arg)
		switch t {
		case IntType, BoolType, StringType, ErrorType:
		default:
			c.rep.Report(arg.Line(), ErrPrintArgMismatch,
				"Incompatible argument %d: %s given, int/bool/string expected", i+1, t)
		}
	}
}

// checkExpr computes and caches the expression's type. On failure the
// expression types as error, which is compatible with everything so each
// mistake is reported once.
func (c *Checker) checkExpr(e Expr) Type {
	var t Type
	switch v := e.(type) {
	case *EmptyExpr:
		t = VoidType
	case *IntConstant:
		t = IntType
	case *DoubleConstant:
		t = DoubleType
	case *BoolConstant:
		t = BoolType
	case *StringConstant:
		t = StringType
	case *NullConstant:
		t = NullType
	case *ThisExpr:
		t = c.checkThis(v)
	case *ArithmeticExpr:
		t = c.checkArithmetic(v)
	case *RelationalExpr:
		t = c.checkRelational(v)
	case *EqualityExpr:
		t = c.checkEquality(v)
	case *LogicalExpr:
		t = c.checkLogical(v)
	case *AssignExpr:
		t = c.checkAssign(v)
	case *ArrayAccess:
		t = c.checkArrayAccess(v)
	case *FieldAccess:
		t = c.checkFieldAccess(v)
	case *Call:
		t = c.checkCall(v)
	case *NewExpr:
		t = c.checkNew(v)
	case *NewArrayExpr:
		t = c.checkNewArray(v)
	case *ReadIntegerExpr:
		t = IntType
	case *ReadLineExpr:
		t = StringType
	default:
		t = ErrorType
	}
	e.setType(t)
	return t
}

func (c *Checker) checkThis(v *ThisExpr) Type {
	class := enclosingClass(v)
	if class == nil {
		c.rep.Report(v.Line(), ErrThisOutsideClass,
			"'this' is only valid within class scope")
		return ErrorType
	}
	v.class = class.Name
	t := NewNamedType(class.Name, v.Line())
	t.decl = class
	return t
}

func (c *Checker) checkArithmetic(v *ArithmeticExpr) Type {
	right := c.checkExpr(v.Right)
	if v.Left == nil {
		if right == ErrorType {
			return ErrorType
		}
		if right != IntType && right != DoubleType {
			c.rep.Report(v.Line(), ErrIncompatibleOperands,
				"Incompatible operand: %s %s", v.Op, right)
			return ErrorType
		}
		return right
	}
	left := c.checkExpr(v.Left)
	if left == ErrorType || right == ErrorType {
		return ErrorType
	}
	if v.Op == "%" {
		if left == IntType && right == IntType {
			return IntType
		}
	} else if left == right && (left == IntType || left == DoubleType) {
		return left
	}
	c.rep.Report(v.Line(), ErrIncompatibleOperands,
		"Incompatible operands: %s %s %s", left, v.Op, right)
	return ErrorType
}

func (c *Checker) checkRelational(v *RelationalExpr) Type {
	left := c.checkExpr(v.Left)
	right := c.checkExpr(v.Right)
	if left == ErrorType || right == ErrorType {
		return BoolType
	}
	if left == right && (left == IntType || left == DoubleType) {
		return BoolType
	}
	c.rep.Report(v.Line(), ErrIncompatibleOperands,
		"Incompatible operands: %s %s %s", left, v.Op, right)
	return BoolType
}

func (c *Checker) checkEquality(v *EqualityExpr) Type {
	left := c.checkExpr(v.Left)
	right := c.checkExpr(v.Right)
	if left.CompatibleWith(right, c.table) || right.CompatibleWith(left, c.table) {
		return BoolType
	}
	c.rep.Report(v.Line(), ErrIncompatibleOperands,
		"Incompatible operands: %s %s %s", left, v.Op, right)
	return BoolType
}

func (c *Checker) checkLogical(v *LogicalExpr) Type {
	right := c.checkExpr(v.Right)
	if v.Left == nil {
		if right != BoolType && right != ErrorType {
			c.rep.Report(v.Line(), ErrIncompatibleOperands,
				"Incompatible operand: ! %s", right)
		}
		return BoolType
	}
	left := c.checkExpr(v.Left)
	if (left != BoolType && left != ErrorType) || (right != BoolType && right != ErrorType) {
		c.rep.Report(v.Line(), ErrIncompatibleOperands,
			"Incompatible operands: %s %s %s", left, v.Op, right)
	}
	return BoolType
}

func (c *Checker) checkAssign(v *AssignExpr) Type {
	left := c.checkExpr(v.Left)
	right := c.checkExpr(v.Right)
	if !right.CompatibleWith(left, c.table) {
		c.rep.Report(v.Line(), ErrIncompatibleOperands,
			"Incompatible operands: %s = %s", left, right)
	}
	return left
}

func (c *Checker) checkArrayAccess(v *ArrayAccess) Type {
	base := c.checkExpr(v.Base)
	sub := c.checkExpr(v.Subscript)
	if sub != IntType && sub != ErrorType {
		c.rep.Report(v.Subscript.Line(), ErrSubscriptNotInteger,
			"Array subscript must be an integer")
	}
	arr, ok := base.(*ArrayType)
	if !ok {
		if base != ErrorType {
			c.rep.Report(v.Line(), ErrBracketsOnNonArray,
				"[] can only be applied to arrays")
		}
		return ErrorType
	}
	return arr.Elem
}

func (c *Checker) checkFieldAccess(v *FieldAccess) Type {
	if v.Receiver == nil {
		sym := c.table.LookupActive(v.Name)
		if sym == nil {
			c.rep.notDeclared(v.Line(), LookingForVariable, v.Name)
			return ErrorType
		}
		field, ok := sym.Decl.(*VarDecl)
		if !ok {
			c.rep.notDeclared(v.Line(), LookingForVariable, v.Name)
			return ErrorType
		}
		if owner, isField := fieldOwner(field); isField {
			v.field = field
			v.memberOf = owner
		} else {
			v.field = field
		}
		return field.Type
	}
	recv := c.checkExpr(v.Receiver)
	if recv == ErrorType {
		return ErrorType
	}
	named, ok := recv.(*NamedType)
	if !ok {
		c.rep.Report(v.Line(), ErrFieldNotFound,
			"%s has no such field '%s'", recv, v.Name)
		return ErrorType
	}
	sym := c.table.LookupField(named.Name, v.Name)
	if sym == nil {
		c.rep.Report(v.Line(), ErrFieldNotFound,
			"%s has no such field '%s'", named.Name, v.Name)
		return ErrorType
	}
	field, isVar := sym.Decl.(*VarDecl)
	if !isVar {
		c.rep.Report(v.Line(), ErrFieldNotFound,
			"%s has no such field '%s'", named.Name, v.Name)
		return ErrorType
	}
	// visible only when the enclosing class and the receiver's type sit on
	// one inheritance chain, in either direction
	encl := enclosingClass(v)
	if encl == nil || (encl.Name != named.Name &&
		!c.table.IsChildOf(encl.Name, named.Name) &&
		!c.table.IsChildOf(named.Name, encl.Name)) {
		c.rep.Report(v.Line(), ErrInaccessibleField,
			"%s field '%s' only accessible within class scope", named.Name, v.Name)
		return ErrorType
	}
	v.field = field
	v.memberOf = named.Name
	return field.Type
}

// fieldOwner reports the owning class when the variable is a class field.
func fieldOwner(v *VarDecl) (string, bool) {
	if class, ok := v.Parent().(*ClassDecl); ok {
		return class.Name, true
	}
	return "", false
}

func (c *Checker) checkCall(v *Call) Type {
	var actuals []Type
	for _, arg := range v.Actuals {
		actuals = append(actuals, c.checkExpr(arg))
	}
	if v.Receiver == nil {
		sym := c.table.LookupActive(v.Name)
		if sym == nil {
			c.rep.notDeclared(v.Line(), LookingForFunction, v.Name)
			return ErrorType
		}
		fn, ok := sym.Decl.(*FnDecl)
		if !ok {
			c.rep.notDeclared(v.Line(), LookingForFunction, v.Name)
			return ErrorType
		}
		v.fn = fn
		if class, isMethod := fn.Parent().(*ClassDecl); isMethod {
			v.memberOf = class.Name
		}
		c.checkArgs(v, fn, actuals)
		return fn.ReturnType
	}
	recv := c.checkExpr(v.Receiver)
	if recv == ErrorType {
		return ErrorType
	}
	if _, isArray := recv.(*ArrayType); isArray && v.Name == "length" {
		v.arrayLength = true
		if len(actuals) != 0 {
			c.rep.Report(v.Line(), ErrNumArgsMismatch,
				"Function 'length' expects 0 arguments but %d given", len(actuals))
		}
		return IntType
	}
	named, ok := recv.(*NamedType)
	if !ok {
		c.rep.Report(v.Line(), ErrFieldNotFound,
			"%s has no such field '%s'", recv, v.Name)
		return ErrorType
	}
	sym := c.table.LookupField(named.Name, v.Name)
	if sym == nil {
		c.rep.Report(v.Line(), ErrFieldNotFound,
			"%s has no such field '%s'", named.Name, v.Name)
		return ErrorType
	}
	fn, isFn := sym.Decl.(*FnDecl)
	if !isFn {
		c.rep.Report(v.Line(), ErrFieldNotFound,
			"%s has no such field '%s'", named.Name, v.Name)
		return ErrorType
	}
	v.fn = fn
	v.memberOf = named.Name
	c.checkArgs(v, fn, actuals)
	return fn.ReturnType
}

func (c *Checker) checkArgs(call *Call, fn *FnDecl, actuals []Type) {
	if len(actuals) != len(fn.Formals) {
		c.rep.Report(call.Line(), ErrNumArgsMismatch,
			"Function '%s' expects %d arguments but %d given",
			fn.Name, len(fn.Formals), len(actuals))
		return
	}
	for i, given := range actuals {
		expected := fn.Formals[i].Type
		if !given.CompatibleWith(expected, c.table) {
			c.rep.Report(call.Actuals[i].Line(), ErrArgMismatch,
				"Incompatible argument %d: %s given, %s expected", i+1, given, expected)
		}
	}
}

func (c *Checker) checkNew(v *NewExpr) Type {
	sym := c.table.LookupGlobal(v.Class.Name)
	if sym == nil {
		c.rep.notDeclared(v.Line(), LookingForClass, v.Class.Name)
		return ErrorType
	}
	class, ok := sym.Decl.(*ClassDecl)
	if !ok {
		c.rep.notDeclared(v.Line(), LookingForClass, v.Class.Name)
		return ErrorType
	}
	v.Class.decl = class
	return v.Class
}

func (c *Checker) checkNewArray(v *NewArrayExpr) Type {
	size := c.checkExpr(v.Size)
	if size != IntType && size != ErrorType {
		c.rep.Report(v.Size.Line(), ErrNewArraySizeNotInteger,
			"Size for NewArray must be an integer")
	}
	c.checkDeclaredType(v.Elem)
	return NewArrayType(v.Elem, v.Line())
}
