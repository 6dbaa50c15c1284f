package compiler

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

type ErrorKind int

const (
	ErrSyntax ErrorKind = iota
	ErrDeclConflict
	ErrIdentifierNotDeclared
	ErrBadExtends
	ErrBadImplements
	ErrOverrideMismatch
	ErrInterfaceNotImplemented
	ErrCyclicInheritance
	ErrIncompatibleOperands
	ErrTestNotBoolean
	ErrBreakOutsideLoop
	ErrReturnMismatch
	ErrNumArgsMismatch
	ErrArgMismatch
	ErrSubscriptNotInteger
	ErrBracketsOnNonArray
	ErrNewArraySizeNotInteger
	ErrPrintArgMismatch
	ErrFieldNotFound
	ErrInaccessibleField
	ErrThisOutsideClass
	ErrNoMainFound
	ErrFormatted
)

// reason words used by identifier-not-declared reports.
const (
	LookingForVariable  = "variable"
	LookingForFunction  = "function"
	LookingForClass     = "class"
	LookingForInterface = "interface"
	LookingForType      = "type"
)

type CompileError struct {
	Line    int
	Kind    ErrorKind
	Message string
}

func (e *CompileError) Error() string {
	if e.Line <= 0 {
		return fmt.Sprintf("*** Error.\n*** %s", e.Message)
	}
	return fmt.Sprintf("*** Error line %d.\n*** %s", e.Line, e.Message)
}

// Reporter accumulates compile errors in encounter order. Passes keep going
// after a report; the count gates code generation. A cap bounds runaway
// cascades on badly broken input.
type Reporter struct {
	errors  []*CompileError
	max     int
	dropped int
}

const DefaultMaxErrors = 100

func NewReporter(max int) *Reporter {
	if max <= 0 {
		max = DefaultMaxErrors
	}
	return &Reporter{max: max}
}

func (r *Reporter) Report(line int, kind ErrorKind, format string, args ...interface{}) {
	if len(r.errors) >= r.max {
		r.dropped++
		return
	}
	r.errors = append(r.errors, &CompileError{
		Line:    line,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
}

func (r *Reporter) HasErrors() bool {
	return len(r.errors) > 0
}

func (r *Reporter) Len() int {
	return len(r.errors)
}

func (r *Reporter) Errors() []*CompileError {
	return r.errors
}

// Kinds returns the kinds in report order, mostly for tests.
func (r *Reporter) Kinds() []ErrorKind {
	kinds := make([]ErrorKind, 0, len(r.errors))
	for _, e := range r.errors {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// Render writes every accumulated error to w. With colorize set the
// "*** Error" banner is printed bold red.
func (r *Reporter) Render(w io.Writer, colorize bool) {
	banner := color.New(color.FgRed, color.Bold)
	for _, e := range r.errors {
		if colorize {
			if e.Line > 0 {
				banner.Fprintf(w, "*** Error line %d.\n", e.Line)
			} else {
				banner.Fprint(w, "*** Error.\n")
			}
			fmt.Fprintf(w, "*** %s\n\n", e.Message)
		} else {
			fmt.Fprintf(w, "%s\n\n", e.Error())
		}
	}
	if r.dropped > 0 {
		fmt.Fprintf(w, "*** %d further errors suppressed.\n", r.dropped)
	}
}

func (r *Reporter) declConflict(line int, name string, prevLine int) {
	r.Report(line, ErrDeclConflict,
		"Declaration of '%s' here conflicts with declaration on line %d", name, prevLine)
}

func (r *Reporter) notDeclared(line int, reason, name string) {
	r.Report(line, ErrIdentifierNotDeclared,
		"No declaration found for %s '%s'", reason, name)
}
