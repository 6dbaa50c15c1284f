package compiler

import (
	"fmt"
	"strings"
)

// Three address code. Every value lives in a Location, either relative to
// the frame pointer (params, locals, temporaries) or to the global pointer
// (globals). Instructions form one flat list per program.

type Segment int

const (
	FpRelative Segment = iota
	GpRelative
)

const (
	VarSize             = 4
	OffsetToFirstGlobal = 0
	OffsetToFirstLocal  = -8
	OffsetToFirstParam  = 4
)

type Location struct {
	Name    string
	Segment Segment
	Offset  int
}

func (l *Location) String() string {
	return l.Name
}

// Builtin support routines linked into every program.
type Builtin int

const (
	BuiltinAlloc Builtin = iota
	BuiltinReadLine
	BuiltinReadInteger
	BuiltinStringEqual
	BuiltinPrintInt
	BuiltinPrintString
	BuiltinPrintBool
	BuiltinHalt
)

type builtinDesc struct {
	label     string
	numArgs   int
	hasResult bool
}

var builtins = [...]builtinDesc{
	BuiltinAlloc:       {"_Alloc", 1, true},
	BuiltinReadLine:    {"_ReadLine", 0, true},
	BuiltinReadInteger: {"_ReadInteger", 0, true},
	BuiltinStringEqual: {"_StringEqual", 2, true},
	BuiltinPrintInt:    {"_PrintInt", 1, false},
	BuiltinPrintString: {"_PrintString", 1, false},
	BuiltinPrintBool:   {"_PrintBool", 1, false},
	BuiltinHalt:        {"_Halt", 0, false},
}

const (
	errArrayOutOfBounds = "Decaf runtime error: Array subscript out of bounds\\n"
	errArrayBadSize     = "Decaf runtime error: Array size is <= 0\\n"
)

type Instruction interface {
	TacString() string
}

type LoadConstant struct {
	Dst   *Location
	Value int
}

func (i *LoadConstant) TacString() string {
	return fmt.Sprintf("%s = %d", i.Dst, i.Value)
}

type LoadStringConstant struct {
	Dst   *Location
	Value string
}

func (i *LoadStringConstant) TacString() string {
	return fmt.Sprintf("%s = \"%s\"", i.Dst, i.Value)
}

type LoadLabel struct {
	Dst   *Location
	Label string
}

func (i *LoadLabel) TacString() string {
	return fmt.Sprintf("%s = %s", i.Dst, i.Label)
}

type Assign struct {
	Dst, Src *Location
}

func (i *Assign) TacString() string {
	return fmt.Sprintf("%s = %s", i.Dst, i.Src)
}

// Load reads the word at Src+Offset into Dst.
type Load struct {
	Dst, Src *Location
	Offset   int
}

func (i *Load) TacString() string {
	if i.Offset == 0 {
		return fmt.Sprintf("%s = *(%s)", i.Dst, i.Src)
	}
	return fmt.Sprintf("%s = *(%s + %d)", i.Dst, i.Src, i.Offset)
}

// Store writes Src into the word at Dst+Offset.
type Store struct {
	Dst    *Location
	Offset int
	Src    *Location
}

func (i *Store) TacString() string {
	if i.Offset == 0 {
		return fmt.Sprintf("*(%s) = %s", i.Dst, i.Src)
	}
	return fmt.Sprintf("*(%s + %d) = %s", i.Dst, i.Offset, i.Src)
}

// BinaryOp covers + - * / % < <= == && ||. The remaining comparisons are
// composed from these during lowering.
type BinaryOp struct {
	Op            string
	Dst, LHS, RHS *Location
}

func (i *BinaryOp) TacString() string {
	return fmt.Sprintf("%s = %s %s %s", i.Dst, i.LHS, i.Op, i.RHS)
}

type LabelInst struct {
	Name string
}

func (i *LabelInst) TacString() string {
	return i.Name + ":"
}

type Goto struct {
	Label string
}

func (i *Goto) TacString() string {
	return "Goto " + i.Label
}

type IfZ struct {
	Test  *Location
	Label string
}

func (i *IfZ) TacString() string {
	return fmt.Sprintf("IfZ %s Goto %s", i.Test, i.Label)
}

type BeginFunc struct {
	FrameSize int
}

func (i *BeginFunc) TacString() string {
	return fmt.Sprintf("BeginFunc %d", i.FrameSize)
}

type EndFunc struct{}

func (i *EndFunc) TacString() string {
	return "EndFunc"
}

type PushParam struct {
	Arg *Location
}

func (i *PushParam) TacString() string {
	return "PushParam " + i.Arg.Name
}

type PopParams struct {
	Bytes int
}

func (i *PopParams) TacString() string {
	return fmt.Sprintf("PopParams %d", i.Bytes)
}

type LCall struct {
	Label string
	Dst   *Location // nil for void calls
}

func (i *LCall) TacString() string {
	if i.Dst == nil {
		return "LCall " + i.Label
	}
	return fmt.Sprintf("%s = LCall %s", i.Dst, i.Label)
}

// ACall jumps through a computed address, the vtable dispatch primitive.
type ACall struct {
	Fn  *Location
	Dst *Location // nil for void calls
}

func (i *ACall) TacString() string {
	if i.Dst == nil {
		return "ACall " + i.Fn.Name
	}
	return fmt.Sprintf("%s = ACall %s", i.Dst, i.Fn)
}

type ReturnInst struct {
	Src *Location // nil for void returns
}

func (i *ReturnInst) TacString() string {
	if i.Src == nil {
		return "Return"
	}
	return "Return " + i.Src.Name
}

type VTableInst struct {
	Class   string
	Methods []string
}

func (i *VTableInst) TacString() string {
	var sb strings.Builder
	sb.WriteString("VTable " + i.Class + " =")
	for _, m := range i.Methods {
		sb.WriteString("\n\t" + m)
	}
	return sb.String()
}

// CodeGenerator owns the instruction list and the per-program temp and
// label counters. Frame sizes are patched into BeginFunc at EndFunc time
// from the space the function's locals and temporaries consumed.
type CodeGenerator struct {
	code      []Instruction
	nextTemp  int
	nextLabel int

	curBegin    *BeginFunc
	localOffset int
}

func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{}
}

func (g *CodeGenerator) emit(inst Instruction) {
	g.code = append(g.code, inst)
}

func (g *CodeGenerator) Code() []Instruction {
	return g.code
}

// NewTemp allocates a fresh temporary in the current frame.
func (g *CodeGenerator) NewTemp() *Location {
	name := fmt.Sprintf("_tmp%d", g.nextTemp)
	g.nextTemp++
	loc := &Location{Name: name, Segment: FpRelative, Offset: g.localOffset}
	g.localOffset -= VarSize
	return loc
}

// NewLocal allocates a named local variable slot in the current frame.
func (g *CodeGenerator) NewLocal(name string) *Location {
	loc := &Location{Name: name, Segment: FpRelative, Offset: g.localOffset}
	g.localOffset -= VarSize
	return loc
}

func (g *CodeGenerator) NewLabel() string {
	name := fmt.Sprintf("_L%d", g.nextLabel)
	g.nextLabel++
	return name
}

func (g *CodeGenerator) GenLoadConstant(value int) *Location {
	dst := g.NewTemp()
	g.emit(&LoadConstant{Dst: dst, Value: value})
	return dst
}

func (g *CodeGenerator) GenLoadStringConstant(value string) *Location {
	dst := g.NewTemp()
	g.emit(&LoadStringConstant{Dst: dst, Value: value})
	return dst
}

func (g *CodeGenerator) GenLoadLabel(label string) *Location {
	dst := g.NewTemp()
	g.emit(&LoadLabel{Dst: dst, Label: label})
	return dst
}

func (g *CodeGenerator) GenAssign(dst, src *Location) {
	g.emit(&Assign{Dst: dst, Src: src})
}

func (g *CodeGenerator) GenLoad(src *Location, offset int) *Location {
	dst := g.NewTemp()
	g.emit(&Load{Dst: dst, Src: src, Offset: offset})
	return dst
}

func (g *CodeGenerator) GenStore(dst *Location, offset int, src *Location) {
	g.emit(&Store{Dst: dst, Offset: offset, Src: src})
}

func (g *CodeGenerator) GenBinaryOp(op string, lhs, rhs *Location) *Location {
	dst := g.NewTemp()
	g.emit(&BinaryOp{Op: op, Dst: dst, LHS: lhs, RHS: rhs})
	return dst
}

func (g *CodeGenerator) GenLabel(name string) {
	g.emit(&LabelInst{Name: name})
}

func (g *CodeGenerator) GenGoto(label string) {
	g.emit(&Goto{Label: label})
}

func (g *CodeGenerator) GenIfZ(test *Location, label string) {
	g.emit(&IfZ{Test: test, Label: label})
}

// GenBeginFunc opens a function body. The frame size is filled in by
// GenEndFunc once all locals and temps are known.
func (g *CodeGenerator) GenBeginFunc() {
	g.curBegin = &BeginFunc{}
	g.localOffset = OffsetToFirstLocal
	g.emit(g.curBegin)
}

func (g *CodeGenerator) GenEndFunc() {
	g.curBegin.FrameSize = OffsetToFirstLocal - g.localOffset
	g.curBegin = nil
	g.emit(&EndFunc{})
}

func (g *CodeGenerator) GenPushParam(arg *Location) {
	g.emit(&PushParam{Arg: arg})
}

func (g *CodeGenerator) GenPopParams(numBytes int) {
	if numBytes > 0 {
		g.emit(&PopParams{Bytes: numBytes})
	}
}

func (g *CodeGenerator) GenLCall(label string, hasResult bool) *Location {
	var dst *Location
	if hasResult {
		dst = g.NewTemp()
	}
	g.emit(&LCall{Label: label, Dst: dst})
	return dst
}

func (g *CodeGenerator) GenACall(fn *Location, hasResult bool) *Location {
	var dst *Location
	if hasResult {
		dst = g.NewTemp()
	}
	g.emit(&ACall{Fn: fn, Dst: dst})
	return dst
}

func (g *CodeGenerator) GenReturn(src *Location) {
	g.emit(&ReturnInst{Src: src})
}

func (g *CodeGenerator) GenVTable(class string, methods []string) {
	g.emit(&VTableInst{Class: class, Methods: methods})
}

// GenBuiltInCall pushes args, calls the builtin and pops, returning the
// result temp for value-producing builtins.
func (g *CodeGenerator) GenBuiltInCall(b Builtin, args ...*Location) *Location {
	desc := builtins[b]
	for i := len(args) - 1; i >= 0; i-- {
		g.GenPushParam(args[i])
	}
	result := g.GenLCall(desc.label, desc.hasResult)
	g.GenPopParams(desc.numArgs * VarSize)
	return result
}

// TacText renders the program's TAC the way --emit tac prints it: labels
// and vtables flush left, everything else indented.
func TacText(code []Instruction) string {
	var sb strings.Builder
	for _, inst := range code {
		switch inst.(type) {
		case *LabelInst, *VTableInst:
			sb.WriteString(inst.TacString())
		default:
			sb.WriteString("\t" + inst.TacString())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
