package compiler

// checkInheritance is the third pass: extends cycles, method overrides and
// interface conformance. It only needs the class scopes, so there is no
// statement walk, but the table is reset so lookups see a clean stack.
func (c *Checker) checkInheritance(p *Program) {
	c.table.Reset()
	for _, decl := range p.Decls {
		class, ok := decl.(*ClassDecl)
		if !ok {
			continue
		}
		if c.table.HasInheritanceCycle(class.Name) {
			c.rep.Report(class.Line(), ErrCyclicInheritance,
				"Cyclic inheritance involving class '%s'", class.Name)
			continue
		}
		c.checkOverrides(class)
		c.checkInterfaces(class)
	}
}

// checkOverrides verifies every member against the inherited namespace: a
// method redeclared in a subclass must keep the exact signature, and a field
// may not shadow an inherited field.
func (c *Checker) checkOverrides(class *ClassDecl) {
	scope := c.table.ClassScope(class.Name)
	if scope == nil || scope.ParentName == "" {
		return
	}
	for _, member := range class.Members {
		inherited := c.table.LookupField(scope.ParentName, member.DeclName())
		if inherited == nil {
			continue
		}
		switch m := member.(type) {
		case *FnDecl:
			base, ok := inherited.Decl.(*FnDecl)
			if !ok {
				c.rep.declConflict(m.Line(), m.Name, inherited.Line)
				continue
			}
			if !m.SignatureEquivalent(base) {
				c.rep.Report(m.Line(), ErrOverrideMismatch,
					"Method '%s' must match inherited type signature", m.Name)
			}
		case *VarDecl:
			c.rep.declConflict(m.Line(), m.Name, inherited.Line)
		}
	}
}

// checkInterfaces verifies the class provides every prototype of every
// interface it claims, directly or through inheritance.
func (c *Checker) checkInterfaces(class *ClassDecl) {
	for _, iface := range class.Implements {
		decl, ok := iface.decl.(*InterfaceDecl)
		if !ok {
			continue // unresolved, already reported
		}
		complete := true
		for _, proto := range decl.Members {
			sym := c.table.LookupField(class.Name, proto.Name)
			if sym == nil {
				complete = false
				continue
			}
			impl, isFn := sym.Decl.(*FnDecl)
			if !isFn || impl.IsPrototype() {
				complete = false
				continue
			}
			if !impl.SignatureEquivalent(proto) {
				c.rep.Report(impl.Line(), ErrOverrideMismatch,
					"Method '%s' must match inherited type signature", impl.Name)
				complete = false
			}
		}
		if !complete {
			c.rep.Report(class.Line(), ErrInterfaceNotImplemented,
				"Class '%s' does not implement entire interface '%s'", class.Name, iface.Name)
		}
	}
}
