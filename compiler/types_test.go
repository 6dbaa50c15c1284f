package compiler

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestTypes_String(t *testing.T) {
	assert.Equal(t, "int", IntType.String())
	assert.Equal(t, "void", VoidType.String())
	assert.Equal(t, "Point", NewNamedType("Point", 1).String())
	assert.Equal(t, "int[]", (&ArrayType{Elem: IntType}).String())
	assert.Equal(t, "int[][]", (&ArrayType{Elem: &ArrayType{Elem: IntType}}).String())
}

func TestTypes_Equivalent(t *testing.T) {
	assert.True(t, IntType.Equivalent(IntType))
	assert.False(t, IntType.Equivalent(BoolType))
	assert.True(t, NewNamedType("A", 1).Equivalent(NewNamedType("A", 9)))
	assert.False(t, NewNamedType("A", 1).Equivalent(NewNamedType("B", 1)))
	assert.True(t, (&ArrayType{Elem: IntType}).Equivalent(&ArrayType{Elem: IntType}))
	assert.False(t, (&ArrayType{Elem: IntType}).Equivalent(&ArrayType{Elem: BoolType}))
	assert.False(t, (&ArrayType{Elem: IntType}).Equivalent(IntType))
}

func TestTypes_Compatibility(t *testing.T) {
	table := NewSymbolTable()
	table.EnterScope("A", "", nil)
	table.ExitScope()
	table.EnterScope("B", "A", nil)
	table.ExitScope()

	a := NewNamedType("A", 1)
	b := NewNamedType("B", 1)

	// subclass widens to its ancestor, never the reverse
	assert.True(t, b.CompatibleWith(a, table))
	assert.False(t, a.CompatibleWith(b, table))
	assert.True(t, a.CompatibleWith(a, table))

	// null fits any object or array type
	assert.True(t, NullType.CompatibleWith(a, table))
	assert.True(t, NullType.CompatibleWith(&ArrayType{Elem: IntType}, table))
	assert.False(t, NullType.CompatibleWith(IntType, table))

	// array compatibility needs exact element equivalence
	assert.True(t, (&ArrayType{Elem: b}).CompatibleWith(&ArrayType{Elem: b}, table))
	assert.False(t, (&ArrayType{Elem: b}).CompatibleWith(&ArrayType{Elem: a}, table))

	// the error type absorbs both directions to stop cascades
	assert.True(t, ErrorType.CompatibleWith(IntType, table))
	assert.True(t, IntType.CompatibleWith(ErrorType, table))
	assert.True(t, ErrorType.CompatibleWith(a, table))
	assert.True(t, a.CompatibleWith(ErrorType, table))
}
