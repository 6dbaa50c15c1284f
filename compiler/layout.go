package compiler

// Object and frame layout, assigned after all checks pass and before code
// generation. Instances start with the vtable pointer, so the first field
// lives at offset 4. Subclasses extend the parent layout; an override keeps
// the slot its ancestor introduced so dispatch through a base pointer lands
// on the most derived body.

// assignLayout walks every top-level declaration: globals get gp-relative
// offsets in declaration order, functions get labels, classes get instance
// sizes and vtables.
func (c *Checker) assignLayout(p *Program) {
	globalOffset := OffsetToFirstGlobal
	for _, decl := range p.Decls {
		switch d := decl.(type) {
		case *VarDecl:
			d.segment = GpRelative
			d.offset = globalOffset
			globalOffset += VarSize
		case *FnDecl:
			if d.Name == "main" {
				d.label = "main"
			} else {
				d.label = "_" + d.Name
			}
		case *ClassDecl:
			c.layoutClass(d)
		}
	}
}

// layoutClass computes the class layout, laying out the parent first so
// inherited fields and slots come ahead of this class's own.
func (c *Checker) layoutClass(class *ClassDecl) {
	if class.laidOut {
		return
	}
	class.laidOut = true

	class.instSize = VarSize // vtable pointer
	var parent *ClassDecl
	if class.Extends != nil {
		parent, _ = class.Extends.decl.(*ClassDecl)
	}
	if parent != nil {
		c.layoutClass(parent)
		class.instSize = parent.instSize
		class.vtable = append(class.vtable, parent.vtable...)
	}

	for _, member := range class.Members {
		switch m := member.(type) {
		case *VarDecl:
			// fields are reached through this, offset is within the object
			m.offset = class.instSize
			class.instSize += VarSize
		case *FnDecl:
			m.label = "_" + class.Name + "." + m.Name
			slot := vtableSlot(class.vtable, m.Name)
			if slot >= 0 {
				m.vtableSlot = slot
				class.vtable[slot] = m
			} else {
				m.vtableSlot = len(class.vtable)
				class.vtable = append(class.vtable, m)
			}
		}
	}
}

func vtableSlot(vtable []*FnDecl, name string) int {
	for i, fn := range vtable {
		if fn.Name == name {
			return i
		}
	}
	return -1
}

// InstanceSize reports the allocated size of one instance of the class.
func (d *ClassDecl) InstanceSize() int {
	return d.instSize
}

// VTableLabels lists the method labels in slot order.
func (d *ClassDecl) VTableLabels() []string {
	labels := make([]string, 0, len(d.vtable))
	for _, fn := range d.vtable {
		labels = append(labels, fn.label)
	}
	return labels
}
