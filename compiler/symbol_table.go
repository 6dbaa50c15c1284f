package compiler

import (
	"fmt"
	"io"
)

// Symbol binds a name to its declaration inside one scope.
type Symbol struct {
	Name string
	Decl Decl
	Line int
}

// Scope holds the symbols declared directly in one lexical region. Scopes
// owned by a class or interface carry the owner name plus its parent class
// and implemented interfaces so lookups can continue up the hierarchy.
type Scope struct {
	Owner      string
	ParentName string
	Interfaces []string

	symbols map[string]*Symbol
	order   []string
}

func newScope(owner, parent string, interfaces []string) *Scope {
	return &Scope{
		Owner:      owner,
		ParentName: parent,
		Interfaces: interfaces,
		symbols:    make(map[string]*Symbol),
	}
}

// Symbols returns the scope's symbols in declaration order.
func (s *Scope) Symbols() []*Symbol {
	out := make([]*Symbol, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.symbols[name])
	}
	return out
}

// SymbolTable keeps every scope ever created plus a stack of the currently
// active ones. The first pass creates scopes; later passes call Reset and
// re-enter them in the identical creation order, which EnterScope replays
// through the cursor. Index 0 is always the global scope.
type SymbolTable struct {
	scopes []*Scope
	active []int
	cursor int
}

func NewSymbolTable() *SymbolTable {
	table := &SymbolTable{}
	table.scopes = append(table.scopes, newScope("", "", nil))
	table.active = append(table.active, 0)
	table.cursor = 1
	return table
}

// EnterScope pushes a new active scope. On the first walk the scope is
// created; on later walks the already-built scope with the same creation
// index is re-entered.
func (t *SymbolTable) EnterScope(owner, parent string, interfaces []string) {
	if t.cursor >= len(t.scopes) {
		t.scopes = append(t.scopes, newScope(owner, parent, interfaces))
	}
	t.active = append(t.active, t.cursor)
	t.cursor++
}

func (t *SymbolTable) ExitScope() {
	if len(t.active) > 1 {
		t.active = t.active[:len(t.active)-1]
	}
}

// Reset prepares the table for the next pass: only the global scope is
// active and the cursor rewinds so EnterScope replays creation order.
func (t *SymbolTable) Reset() {
	t.active = t.active[:1]
	t.cursor = 1
}

// Declare adds a symbol to the innermost active scope. When the name is
// already bound there the existing symbol is returned unchanged and the
// caller reports the conflict; the first declaration wins.
func (t *SymbolTable) Declare(name string, decl Decl) (*Symbol, *Symbol) {
	scope := t.scopes[t.active[len(t.active)-1]]
	if prev, ok := scope.symbols[name]; ok {
		return nil, prev
	}
	sym := &Symbol{Name: name, Decl: decl, Line: decl.Line()}
	scope.symbols[name] = sym
	scope.order = append(scope.order, name)
	return sym, nil
}

// LookupActive resolves a name against the active scopes from innermost to
// outermost. When an active scope belongs to a class the search continues
// through its parent classes and interfaces before moving outward.
func (t *SymbolTable) LookupActive(name string) *Symbol {
	for i := len(t.active) - 1; i >= 0; i-- {
		scope := t.scopes[t.active[i]]
		if sym, ok := scope.symbols[name]; ok {
			return sym
		}
		if scope.Owner != "" {
			seen := map[string]bool{scope.Owner: true}
			if sym := t.lookupInherited(scope, name, seen); sym != nil {
				return sym
			}
		}
	}
	return nil
}

func (t *SymbolTable) lookupInherited(scope *Scope, name string, seen map[string]bool) *Symbol {
	if scope.ParentName != "" && !seen[scope.ParentName] {
		seen[scope.ParentName] = true
		if parent := t.ownedScope(scope.ParentName); parent != nil {
			if sym, ok := parent.symbols[name]; ok {
				return sym
			}
			if sym := t.lookupInherited(parent, name, seen); sym != nil {
				return sym
			}
		}
	}
	for _, iface := range scope.Interfaces {
		if seen[iface] {
			continue
		}
		seen[iface] = true
		if ifScope := t.ownedScope(iface); ifScope != nil {
			if sym, ok := ifScope.symbols[name]; ok {
				return sym
			}
		}
	}
	return nil
}

// LookupField resolves a member name in the named class, searching the
// class scope and then its ancestry.
func (t *SymbolTable) LookupField(class, name string) *Symbol {
	scope := t.ownedScope(class)
	if scope == nil {
		return nil
	}
	if sym, ok := scope.symbols[name]; ok {
		return sym
	}
	return t.lookupInherited(scope, name, map[string]bool{class: true})
}

// LookupGlobal resolves a name in the global scope only.
func (t *SymbolTable) LookupGlobal(name string) *Symbol {
	if sym, ok := t.scopes[0].symbols[name]; ok {
		return sym
	}
	return nil
}

// OwnerClass returns the owner of the innermost active owned scope, the
// class or interface whose body is being walked, or "".
func (t *SymbolTable) OwnerClass() string {
	for i := len(t.active) - 1; i >= 0; i-- {
		if owner := t.scopes[t.active[i]].Owner; owner != "" {
			return owner
		}
	}
	return ""
}

// IsChildOf reports whether child is a strict descendant of ancestor via
// extends chains or implements lists. Cycles in a broken hierarchy are
// guarded so the walk terminates.
func (t *SymbolTable) IsChildOf(child, ancestor string) bool {
	if child == ancestor {
		return false
	}
	seen := map[string]bool{child: true}
	return t.reaches(child, ancestor, seen)
}

func (t *SymbolTable) reaches(from, target string, seen map[string]bool) bool {
	scope := t.ownedScope(from)
	if scope == nil {
		return false
	}
	if scope.ParentName != "" && !seen[scope.ParentName] {
		seen[scope.ParentName] = true
		if scope.ParentName == target || t.reaches(scope.ParentName, target, seen) {
			return true
		}
	}
	for _, iface := range scope.Interfaces {
		if seen[iface] {
			continue
		}
		seen[iface] = true
		if iface == target || t.reaches(iface, target, seen) {
			return true
		}
	}
	return false
}

// HasInheritanceCycle reports whether the extends chain starting at class
// loops back on itself.
func (t *SymbolTable) HasInheritanceCycle(class string) bool {
	seen := map[string]bool{}
	for cur := class; cur != ""; {
		if seen[cur] {
			return true
		}
		seen[cur] = true
		scope := t.ownedScope(cur)
		if scope == nil {
			return false
		}
		cur = scope.ParentName
	}
	return false
}

func (t *SymbolTable) ownedScope(owner string) *Scope {
	for _, scope := range t.scopes {
		if scope.Owner == owner {
			return scope
		}
	}
	return nil
}

// GlobalScope exposes scope 0 for layout and code generation.
func (t *SymbolTable) GlobalScope() *Scope {
	return t.scopes[0]
}

// ClassScope exposes the scope owned by the named class or interface.
func (t *SymbolTable) ClassScope(name string) *Scope {
	return t.ownedScope(name)
}

// Dump writes every scope with its symbols in creation order.
func (t *SymbolTable) Dump(w io.Writer) {
	for i, scope := range t.scopes {
		header := fmt.Sprintf("scope %d", i)
		if scope.Owner != "" {
			header += " (" + scope.Owner
			if scope.ParentName != "" {
				header += " extends " + scope.ParentName
			}
			header += ")"
		}
		fmt.Fprintln(w, header)
		for _, sym := range scope.Symbols() {
			fmt.Fprintf(w, "\t%s\tline %d\n", sym.Name, sym.Line)
		}
	}
}
