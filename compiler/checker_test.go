package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func check(t *testing.T, src string) *CompileResult {
	t.Helper()
	return Check(src, CompileOptions{})
}

func errorText(rep *Reporter) string {
	var sb strings.Builder
	for _, e := range rep.Errors() {
		sb.WriteString(e.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

func assertClean(t *testing.T, src string) {
	t.Helper()
	result := check(t, src)
	assert.False(t, result.Reporter.HasErrors(), errorText(result.Reporter))
}

func assertKinds(t *testing.T, src string, kinds ...ErrorKind) *CompileResult {
	t.Helper()
	result := check(t, src)
	assert.Equal(t, kinds, result.Reporter.Kinds(), errorText(result.Reporter))
	return result
}

func TestChecker_CleanPrograms(t *testing.T) {
	programs := []string{
		`void main() {}`,
		`
		int counter;
		void main() {
			counter = 1;
			while (counter < 10) {
				counter = counter + 1;
				if (counter == 5) break;
			}
		}`,
		`
		int fib(int n) {
			if (n < 2) return n;
			return fib(n - 1) + fib(n - 2);
		}
		void main() { Print(fib(10)); }`,
		`
		class Point {
			int x;
			int y;
			int getX() { return x; }
			void set(int nx, int ny) { x = nx; y = ny; }
		}
		void main() {
			Point p;
			p = New(Point);
			p.set(1, 2);
			Print(p.getX());
		}`,
		`
		void main() {
			int[] a;
			a = NewArray(10, int);
			a[0] = 5;
			Print(a[0], a.length());
		}`,
		`
		void main() {
			string name;
			name = ReadLine();
			Print("hello ", name, true);
		}`,
	}
	for _, src := range programs {
		assertClean(t, src)
	}
}

func TestChecker_DeclConflicts(t *testing.T) {
	result := assertKinds(t, `
		int x;
		bool x;
		void main() {}`, ErrDeclConflict)
	assert.Contains(t, errorText(result.Reporter), "Declaration of 'x' here conflicts with declaration on line 2")

	assertKinds(t, `
		void f() {}
		class f {}
		void main() {}`, ErrDeclConflict)

	assertKinds(t, `
		void f(int a, bool a) {}
		void main() {}`, ErrDeclConflict)
}

func TestChecker_ShadowingInNestedBlockIsLegal(t *testing.T) {
	assertClean(t, `
		int x;
		void main() {
			int x;
			x = 3;
			{ bool x; x = true; }
		}`)
}

func TestChecker_UndeclaredIdentifier(t *testing.T) {
	result := assertKinds(t, `
		void main() { y = 3; }`, ErrIdentifierNotDeclared)
	assert.Contains(t, errorText(result.Reporter), "No declaration found for variable 'y'")

	result = assertKinds(t, `
		void main() { missing(); }`, ErrIdentifierNotDeclared)
	assert.Contains(t, errorText(result.Reporter), "No declaration found for function 'missing'")

	result = assertKinds(t, `
		void main() { Frob f; }`, ErrIdentifierNotDeclared)
	assert.Contains(t, errorText(result.Reporter), "No declaration found for type 'Frob'")
}

func TestChecker_BadExtendsAndImplements(t *testing.T) {
	result := assertKinds(t, `
		interface I {}
		class A extends I {}
		void main() {}`, ErrBadExtends)
	assert.Contains(t, errorText(result.Reporter), "'I' does not name a class")

	assertKinds(t, `
		class B {}
		class A implements B {}
		void main() {}`, ErrBadImplements)
}

func TestChecker_CyclicInheritance(t *testing.T) {
	result := check(t, `
		class A extends B {}
		class B extends A {}
		void main() {}`)
	assert.True(t, result.Reporter.HasErrors())
	assert.Contains(t, errorText(result.Reporter), "Cyclic inheritance")
}

func TestChecker_OverrideSignatureMismatch(t *testing.T) {
	result := assertKinds(t, `
		class A { int f(int x) { return x; } }
		class B extends A { bool f(int x) { return true; } }
		void main() {}`, ErrOverrideMismatch)
	assert.Contains(t, errorText(result.Reporter), "Method 'f' must match inherited type signature")

	// identical signatures override legally
	assertClean(t, `
		class A { int f(int x) { return x; } }
		class B extends A { int f(int x) { return x + 1; } }
		void main() {}`)
}

func TestChecker_FieldShadowIsConflict(t *testing.T) {
	assertKinds(t, `
		class A { int v; }
		class B extends A { bool v; }
		void main() {}`, ErrDeclConflict)
}

func TestChecker_InterfaceNotImplemented(t *testing.T) {
	result := assertKinds(t, `
		interface Shape { int area(); }
		class Circle implements Shape {}
		void main() {}`, ErrInterfaceNotImplemented)
	assert.Contains(t, errorText(result.Reporter), "Class 'Circle' does not implement entire interface 'Shape'")

	assertClean(t, `
		interface Shape { int area(); }
		class Square implements Shape {
			int side;
			int area() { return side * side; }
		}
		void main() {}`)
}

func TestChecker_ArithmeticOperands(t *testing.T) {
	result := assertKinds(t, `
		void main() { int x; x = 1 + true; }`, ErrIncompatibleOperands)
	assert.Contains(t, errorText(result.Reporter), "Incompatible operands: int + bool")

	// modulo is integer only
	assertKinds(t, `
		void main() { double d; d = 1.5 % 2.0; }`, ErrIncompatibleOperands)

	result = assertKinds(t, `
		void main() { bool b; b = -b; }`, ErrIncompatibleOperands)
	assert.Contains(t, errorText(result.Reporter), "Incompatible operand: - bool")
}

func TestChecker_RelationalAndEquality(t *testing.T) {
	assertClean(t, `
		void main() { bool b; b = 1 < 2; b = 1.5 >= 0.5; b = "a" == "b"; }`)

	assertKinds(t, `
		void main() { bool b; b = 1 < true; }`, ErrIncompatibleOperands)

	assertKinds(t, `
		void main() { bool b; b = 1 == "one"; }`, ErrIncompatibleOperands)
}

func TestChecker_EqualityWithNullAndSubclass(t *testing.T) {
	assertClean(t, `
		class A {}
		class B extends A {}
		void main() {
			A a; B b; bool ok;
			a = New(B);
			ok = a == null;
			ok = a == b;
			ok = b != a;
		}`)
}

func TestChecker_LogicalOperands(t *testing.T) {
	assertKinds(t, `
		void main() { bool b; b = 1 && true; }`, ErrIncompatibleOperands)
	assertKinds(t, `
		void main() { bool b; b = !3; }`, ErrIncompatibleOperands)
}

func TestChecker_AssignCompatibility(t *testing.T) {
	result := assertKinds(t, `
		void main() { int x; x = "str"; }`, ErrIncompatibleOperands)
	assert.Contains(t, errorText(result.Reporter), "Incompatible operands: int = string")

	// upcast is fine, downcast is not
	assertClean(t, `
		class A {}
		class B extends A {}
		void main() { A a; a = New(B); a = null; }`)
	assertKinds(t, `
		class A {}
		class B extends A {}
		void main() { B b; b = New(A); }`, ErrIncompatibleOperands)
}

func TestChecker_TestExpressions(t *testing.T) {
	result := assertKinds(t, `
		void main() { if (3) Print(1); }`, ErrTestNotBoolean)
	assert.Contains(t, errorText(result.Reporter), "Test expression must have boolean type")

	assertKinds(t, `
		void main() { while (1 + 2) {} }`, ErrTestNotBoolean)
	assertKinds(t, `
		void main() { int i; for (i = 0; i; i = i + 1) {} }`, ErrTestNotBoolean)
}

func TestChecker_BreakOutsideLoop(t *testing.T) {
	assertKinds(t, `
		void main() { break; }`, ErrBreakOutsideLoop)
	assertClean(t, `
		void main() { while (true) { if (true) break; } }`)
}

func TestChecker_ReturnMismatch(t *testing.T) {
	result := assertKinds(t, `
		int f() { return true; }
		void main() {}`, ErrReturnMismatch)
	assert.Contains(t, errorText(result.Reporter), "Incompatible return: bool given, int expected")

	assertKinds(t, `
		void f() { return 3; }
		void main() {}`, ErrReturnMismatch)

	// bare return in a void function is fine
	assertClean(t, `
		void f() { return; }
		void main() {}`)

	// returning a subclass where the parent is expected is fine
	assertClean(t, `
		class A {}
		class B extends A {}
		A make() { return New(B); }
		void main() {}`)
}

func TestChecker_CallArguments(t *testing.T) {
	result := assertKinds(t, `
		int add(int a, int b) { return a + b; }
		void main() { Print(add(1)); }`, ErrNumArgsMismatch)
	assert.Contains(t, errorText(result.Reporter), "Function 'add' expects 2 arguments but 1 given")

	result = assertKinds(t, `
		int add(int a, int b) { return a + b; }
		void main() { Print(add(1, true)); }`, ErrArgMismatch)
	assert.Contains(t, errorText(result.Reporter), "Incompatible argument 2: bool given, int expected")
}

func TestChecker_ArrayRules(t *testing.T) {
	assertKinds(t, `
		void main() { int[] a; a = NewArray(10, int); a[true] = 1; }`, ErrSubscriptNotInteger)

	result := assertKinds(t, `
		void main() { int x; x = x[0]; }`, ErrBracketsOnNonArray)
	assert.Contains(t, errorText(result.Reporter), "[] can only be applied to arrays")

	assertKinds(t, `
		void main() { int[] a; a = NewArray(true, int); }`, ErrNewArraySizeNotInteger)

	// length takes no arguments
	assertKinds(t, `
		void main() { int[] a; a = NewArray(3, int); Print(a.length(1)); }`, ErrNumArgsMismatch)
	assertClean(t, `
		void main() { int[] a; a = NewArray(3, int); Print(a.length()); }`)
}

func TestChecker_PrintArguments(t *testing.T) {
	result := assertKinds(t, `
		void main() { double d; Print(d); }`, ErrPrintArgMismatch)
	assert.Contains(t, errorText(result.Reporter), "Incompatible argument 1: double given, int/bool/string expected")

	assertKinds(t, `
		class A {}
		void main() { A a; Print(a); }`, ErrPrintArgMismatch)
}

func TestChecker_FieldAccess(t *testing.T) {
	result := assertKinds(t, `
		class A { int v; }
		void main() { A a; a = New(A); Print(a.v); }`, ErrInaccessibleField)
	assert.Contains(t, errorText(result.Reporter), "only accessible within class scope")

	// fields are visible to methods of the class and its subclasses
	assertClean(t, `
		class A {
			int v;
			int get() { return v; }
		}
		class B extends A {
			int doubled() { return v + v; }
		}
		void main() {}`)

	result = assertKinds(t, `
		class A {}
		void main() { A a; a = New(A); Print(a.missing); }`, ErrFieldNotFound)
	assert.Contains(t, errorText(result.Reporter), "has no such field 'missing'")

	// visibility follows the receiver's type: sibling classes under a shared
	// ancestor cannot reach each other's inherited fields
	assertKinds(t, `
		class A { int x; }
		class B extends A {}
		class C extends A {}
		class T extends B {
			int m(C c) { return c.x; }
		}
		void main() {}`, ErrInaccessibleField)

	// a superclass method may read through a subclass-typed receiver
	assertClean(t, `
		class A {
			int peek(B b) { return b.x; }
		}
		class B extends A { int x; }
		void main() {}`)
}

func TestChecker_MainSignature(t *testing.T) {
	result := assertKinds(t, `int main() { return 0; }`, ErrFormatted)
	assert.Contains(t, errorText(result.Reporter),
		"Return value of 'main' function is expected to be void.")

	result = assertKinds(t, `void main(int argc) {}`, ErrNumArgsMismatch)
	assert.Contains(t, errorText(result.Reporter),
		"Function 'main' expects 0 arguments but 1 given")

	assertKinds(t, `int main(int argc) { return argc; }`,
		ErrFormatted, ErrNumArgsMismatch)
}

func TestChecker_MethodsArePublic(t *testing.T) {
	assertClean(t, `
		class A {
			int v;
			int get() { return v; }
		}
		void main() { A a; a = New(A); Print(a.get()); }`)
}

func TestChecker_ThisOutsideClass(t *testing.T) {
	result := assertKinds(t, `
		void main() { Print(this.x); }`, ErrThisOutsideClass)
	assert.Contains(t, errorText(result.Reporter), "'this' is only valid within class scope")

	assertClean(t, `
		class A {
			int v;
			int get() { return this.v; }
		}
		void main() {}`)
}

func TestChecker_ErrorTypeDoesNotCascade(t *testing.T) {
	// one bad operand yields one report, not a chain of them
	assertKinds(t, `
		void main() { int x; x = (1 + true) + 2; }`, ErrIncompatibleOperands)
}

func TestChecker_SyntaxErrorStopsSemanticPasses(t *testing.T) {
	result := check(t, `void main() { int ; }`)
	assert.True(t, result.Reporter.HasErrors())
	for _, kind := range result.Reporter.Kinds() {
		assert.Equal(t, ErrSyntax, kind)
	}
}

func TestChecker_MaxErrorsCap(t *testing.T) {
	// many undeclared names, capped reporter keeps only the first two
	src := `void main() { a = 1; b = 2; c = 3; d = 4; }`
	result := Check(src, CompileOptions{MaxErrors: 2})
	assert.Equal(t, 2, result.Reporter.Len())
}
