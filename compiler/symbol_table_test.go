package compiler

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func varDecl(name string, line int) *VarDecl {
	return &VarDecl{nodeBase: nodeBase{line: line}, Name: name, Type: IntType}
}

func TestSymbolTable_DeclareAndLookup(t *testing.T) {
	table := NewSymbolTable()
	sym, prev := table.Declare("x", varDecl("x", 1))
	assert.NotNil(t, sym)
	assert.Nil(t, prev)

	found := table.LookupActive("x")
	assert.NotNil(t, found)
	assert.Equal(t, 1, found.Line)
	assert.Nil(t, table.LookupActive("y"))
}

func TestSymbolTable_DeclareConflictKeepsFirst(t *testing.T) {
	table := NewSymbolTable()
	table.Declare("x", varDecl("x", 1))
	sym, prev := table.Declare("x", varDecl("x", 5))
	assert.Nil(t, sym)
	assert.NotNil(t, prev)
	assert.Equal(t, 1, prev.Line)
	assert.Equal(t, 1, table.LookupActive("x").Line)
}

func TestSymbolTable_InnerScopeShadows(t *testing.T) {
	table := NewSymbolTable()
	table.Declare("x", varDecl("x", 1))
	table.EnterScope("", "", nil)
	table.Declare("x", varDecl("x", 3))
	assert.Equal(t, 3, table.LookupActive("x").Line)
	table.ExitScope()
	assert.Equal(t, 1, table.LookupActive("x").Line)
}

func TestSymbolTable_ResetReplaysScopes(t *testing.T) {
	table := NewSymbolTable()
	table.EnterScope("A", "", nil)
	table.Declare("f", varDecl("f", 2))
	table.ExitScope()
	table.EnterScope("B", "", nil)
	table.Declare("g", varDecl("g", 7))
	table.ExitScope()

	// second pass re-enters the same scopes in creation order
	table.Reset()
	table.EnterScope("", "", nil)
	assert.Equal(t, 2, table.LookupActive("f").Line)
	assert.Nil(t, table.LookupActive("g"))
	table.ExitScope()
	table.EnterScope("", "", nil)
	assert.Equal(t, 7, table.LookupActive("g").Line)
	table.ExitScope()
}

func TestSymbolTable_InheritedLookup(t *testing.T) {
	table := NewSymbolTable()
	table.EnterScope("Base", "", nil)
	table.Declare("field", varDecl("field", 2))
	table.ExitScope()
	table.EnterScope("Derived", "Base", nil)
	assert.NotNil(t, table.LookupActive("field"))
	table.ExitScope()

	assert.NotNil(t, table.LookupField("Derived", "field"))
	assert.Nil(t, table.LookupField("Base", "missing"))
	assert.Nil(t, table.LookupField("NoSuchClass", "field"))
}

func TestSymbolTable_InterfaceLookup(t *testing.T) {
	table := NewSymbolTable()
	table.EnterScope("Printable", "", nil)
	table.Declare("show", varDecl("show", 2))
	table.ExitScope()
	table.EnterScope("Doc", "", []string{"Printable"})
	assert.NotNil(t, table.LookupActive("show"))
	table.ExitScope()
}

func TestSymbolTable_OwnerClass(t *testing.T) {
	table := NewSymbolTable()
	assert.Equal(t, "", table.OwnerClass())
	table.EnterScope("A", "", nil)
	table.EnterScope("", "", nil) // method body
	assert.Equal(t, "A", table.OwnerClass())
	table.ExitScope()
	table.ExitScope()
	assert.Equal(t, "", table.OwnerClass())
}

func TestSymbolTable_IsChildOf(t *testing.T) {
	table := NewSymbolTable()
	table.EnterScope("A", "", nil)
	table.ExitScope()
	table.EnterScope("B", "A", nil)
	table.ExitScope()
	table.EnterScope("C", "B", []string{"I"})
	table.ExitScope()
	table.EnterScope("I", "", nil)
	table.ExitScope()

	assert.True(t, table.IsChildOf("B", "A"))
	assert.True(t, table.IsChildOf("C", "A"))
	assert.True(t, table.IsChildOf("C", "I"))
	assert.False(t, table.IsChildOf("A", "B"))
	assert.False(t, table.IsChildOf("A", "A"))
}

func TestSymbolTable_InheritanceCycle(t *testing.T) {
	table := NewSymbolTable()
	table.EnterScope("A", "B", nil)
	table.ExitScope()
	table.EnterScope("B", "A", nil)
	table.ExitScope()
	table.EnterScope("C", "A", nil)
	table.ExitScope()

	assert.True(t, table.HasInheritanceCycle("A"))
	assert.True(t, table.HasInheritanceCycle("B"))
	assert.True(t, table.HasInheritanceCycle("C"))

	// lookups through the broken hierarchy must still terminate
	assert.Nil(t, table.LookupField("A", "anything"))
	assert.False(t, table.IsChildOf("A", "Missing"))
}

func TestSymbolTable_GlobalScopeOrder(t *testing.T) {
	table := NewSymbolTable()
	table.Declare("b", varDecl("b", 1))
	table.Declare("a", varDecl("a", 2))
	table.Declare("c", varDecl("c", 3))
	names := make([]string, 0, 3)
	for _, sym := range table.GlobalScope().Symbols() {
		names = append(names, sym.Name)
	}
	assert.Equal(t, []string{"b", "a", "c"}, names)
}
