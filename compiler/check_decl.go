package compiler

// checkDecls is the second pass: every named type mentioned by a declaration
// must resolve to a class or interface declared at the top level. The walk
// re-enters scopes in the order the first pass created them.
func (c *Checker) checkDecls(p *Program) {
	c.table.Reset()
	for _, decl := range p.Decls {
		switch d := decl.(type) {
		case *VarDecl:
			c.checkDeclaredType(d.Type)
		case *FnDecl:
			c.checkFnDecl(d)
		case *ClassDecl:
			c.checkClassDecl(d)
		case *InterfaceDecl:
			c.checkInterfaceDecl(d)
		}
	}
}

// checkDeclaredType resolves named types inside t, caching the declaration
// on success. Unresolved names degrade to a report; the type stays usable so
// the later passes do not cascade.
func (c *Checker) checkDeclaredType(t Type) {
	switch tt := t.(type) {
	case *NamedType:
		sym := c.table.LookupGlobal(tt.Name)
		if sym == nil {
			c.rep.notDeclared(tt.line, LookingForType, tt.Name)
			return
		}
		switch sym.Decl.(type) {
		case *ClassDecl, *InterfaceDecl:
			tt.decl = sym.Decl
		default:
			c.rep.notDeclared(tt.line, LookingForType, tt.Name)
		}
	case *ArrayType:
		c.checkDeclaredType(tt.Elem)
	}
}

func (c *Checker) checkFnDecl(fn *FnDecl) {
	c.checkDeclaredType(fn.ReturnType)
	c.table.EnterScope("", "", nil)
	for _, formal := range fn.Formals {
		c.checkDeclaredType(formal.Type)
	}
	if fn.Body != nil {
		c.checkBlockDecls(fn.Body)
	}
	c.table.ExitScope()

	if fn.Name == "main" {
		if fn.ReturnType != VoidType {
			c.rep.Report(fn.Line(), ErrFormatted,
				"Return value of 'main' function is expected to be void.")
		}
		if len(fn.Formals) != 0 {
			c.rep.Report(fn.Line(), ErrNumArgsMismatch,
				"Function 'main' expects 0 arguments but %d given", len(fn.Formals))
		}
	}
}

func (c *Checker) checkClassDecl(class *ClassDecl) {
	if class.Extends != nil {
		sym := c.table.LookupGlobal(class.Extends.Name)
		if sym == nil {
			c.rep.notDeclared(class.Extends.line, LookingForClass, class.Extends.Name)
		} else if parent, ok := sym.Decl.(*ClassDecl); !ok {
			c.rep.Report(class.Extends.line, ErrBadExtends,
				"'%s' does not name a class", class.Extends.Name)
		} else {
			class.Extends.decl = parent
		}
	}
	for _, iface := range class.Implements {
		sym := c.table.LookupGlobal(iface.Name)
		if sym == nil {
			c.rep.notDeclared(iface.line, LookingForInterface, iface.Name)
		} else if decl, ok := sym.Decl.(*InterfaceDecl); !ok {
			c.rep.Report(iface.line, ErrBadImplements,
				"'%s' does not name an interface", iface.Name)
		} else {
			iface.decl = decl
		}
	}
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
		switch m := member.(type) {
		case *VarDecl:
			c.checkDeclaredType(m.Type)
		case *FnDecl:
			c.checkFnDecl(m)
		}
	}
	c.table.ExitScope()
}

func (c *Checker) checkInterfaceDecl(iface *InterfaceDecl) {
	c.table.EnterScope(iface.Name, "", nil)
	for _, proto := range iface.Members {
		c.checkDeclaredType(proto.ReturnType)
		c.table.EnterScope("", "", nil)
		for _, formal := range proto.Formals {
			c.checkDeclaredType(formal.Type)
		}
		c.table.ExitScope()
	}
	c.table.ExitScope()
}

func (c *Checker) checkBlockDecls(block *StmtBlock) {
	c.table.EnterScope("", "", nil)
	for _, decl := range block.Decls {
		c.checkDeclaredType(decl.Type)
	}
	for _, stmt := range block.Stmts {
		c.checkStmtDecls(stmt)
	}
	c.table.ExitScope()
}

func (c *Checker) checkStmtDecls(stmt Stmt) {
	switch s := stmt.(type) {
	case *StmtBlock:
		c.checkBlockDecls(s)
	case *IfStmt:
		c.checkStmtDecls(s.Then)
		if s.Else != nil {
			c.checkStmtDecls(s.Else)
		}
	case *WhileStmt:
		c.checkStmtDecls(s.Body)
	case *ForStmt:
		c.checkStmtDecls(s.Body)
	}
}
