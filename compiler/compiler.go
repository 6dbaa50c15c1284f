package compiler

// The pass driver. Compilation is a fixed sequence: tokenize, parse, build
// symbols, check declarations, check inheritance, check types, then, only
// with a clean reporter, layout and code generation.

type CompileOptions struct {
	MaxErrors int
	// EmitAsm controls whether the MIPS text is produced in addition to TAC.
	EmitAsm bool
}

type CompileResult struct {
	Program  *Program
	Reporter *Reporter
	Table    *SymbolTable
	Tac      string
	Asm      string
}

// Compile runs the whole pipeline over one source file's contents.
func Compile(src string, opts CompileOptions) *CompileResult {
	result := Check(src, opts)
	if result.Reporter.HasErrors() {
		return result
	}
	checker := &Checker{table: result.Table, rep: result.Reporter}
	checker.assignLayout(result.Program)
	code := EmitProgram(result.Program, checker.table, result.Reporter)
	if result.Reporter.HasErrors() {
		return result
	}
	result.Tac = TacText(code)
	if opts.EmitAsm {
		result.Asm = EmitMips(code)
	}
	return result
}

// Check runs the front end and semantic passes only, the mode used by
// diagnostics-only invocations.
func Check(src string, opts CompileOptions) *CompileResult {
	rep := NewReporter(opts.MaxErrors)
	result := &CompileResult{Reporter: rep}

	tokens := Tokenize(src, rep)
	program := Parse(tokens, rep)
	result.Program = program
	if rep.HasErrors() {
		return result
	}

	checker := NewChecker(rep)
	result.Table = checker.table
	checker.buildSymbols(program)
	checker.checkDecls(program)
	checker.checkInheritance(program)
	checker.checkTypes(program)
	return result
}
