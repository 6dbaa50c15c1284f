package compiler

// Type is the semantic type of a declaration or expression. Primitive types
// are singletons and compared by identity.
type Type interface {
	String() string
	// Equivalent reports whether two types are the same type. Named types
	// compare by name, array types by element type.
	Equivalent(other Type) bool
	// CompatibleWith reports whether a value of this type can appear where
	// dst is expected. Subclasses are compatible with ancestors and
	// implemented interfaces, null with any named or array type, and the
	// error type with everything in both directions.
	CompatibleWith(dst Type, table *SymbolTable) bool
}

type Primitive struct {
	name string
}

var (
	IntType    = &Primitive{"int"}
	DoubleType = &Primitive{"double"}
	VoidType   = &Primitive{"void"}
	BoolType   = &Primitive{"bool"}
	NullType   = &Primitive{"null"}
	StringType = &Primitive{"string"}
	// ErrorType marks expressions whose type could not be determined. It is
	// compatible with everything so one bad operand reports once.
	ErrorType = &Primitive{"error"}
)

func (p *Primitive) String() string {
	return p.name
}

func (p *Primitive) Equivalent(other Type) bool {
	return p == other
}

func (p *Primitive) CompatibleWith(dst Type, table *SymbolTable) bool {
	if p == ErrorType || dst == ErrorType {
		return true
	}
	if p == NullType {
		switch dst.(type) {
		case *NamedType, *ArrayType:
			return true
		}
	}
	return p == dst
}

// NamedType refers to a class or interface by name. The declaration is
// resolved and cached during the declaration check pass.
type NamedType struct {
	Name string
	line int
	decl Decl
}

func NewNamedType(name string, line int) *NamedType {
	return &NamedType{Name: name, line: line}
}

func (t *NamedType) String() string {
	return t.Name
}

func (t *NamedType) Equivalent(other Type) bool {
	named, ok := other.(*NamedType)
	return ok && named.Name == t.Name
}

func (t *NamedType) CompatibleWith(dst Type, table *SymbolTable) bool {
	if dst == ErrorType {
		return true
	}
	named, ok := dst.(*NamedType)
	if !ok {
		return false
	}
	if named.Name == t.Name {
		return true
	}
	return table.IsChildOf(t.Name, named.Name)
}

type ArrayType struct {
	Elem Type
	line int
}

func NewArrayType(elem Type, line int) *ArrayType {
	return &ArrayType{Elem: elem, line: line}
}

func (t *ArrayType) String() string {
	return t.Elem.String() + "[]"
}

func (t *ArrayType) Equivalent(other Type) bool {
	arr, ok := other.(*ArrayType)
	return ok && t.Elem.Equivalent(arr.Elem)
}

func (t *ArrayType) CompatibleWith(dst Type, table *SymbolTable) bool {
	if dst == ErrorType {
		return true
	}
	arr, ok := dst.(*ArrayType)
	if !ok {
		return false
	}
	return t.Elem.Equivalent(arr.Elem)
}

// baseNamed returns the named type at the bottom of an array type, if any.
func baseNamed(t Type) *NamedType {
	for {
		switch tt := t.(type) {
		case *NamedType:
			return tt
		case *ArrayType:
			t = tt.Elem
		default:
			return nil
		}
	}
}
