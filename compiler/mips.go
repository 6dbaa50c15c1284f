package compiler

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// TAC to SPIM-flavored MIPS. Every TAC operand lives in memory; each
// instruction loads what it needs into $t0..$t2 and stores the result back,
// so no register allocation is required.
//
// Frame shape after the prologue:
//   param n   ...
//   param 1   4($fp)
//   saved fp  0($fp)
//   saved ra  -4($fp)
//   locals    -8($fp) downward

type mipsEmitter struct {
	text    strings.Builder
	data    strings.Builder
	strs    map[string]string
	numStrs int
}

// EmitMips renders the final assembly: runtime preamble, generated text
// segment, then the data segment with interned strings and vtables.
func EmitMips(code []Instruction) string {
	e := &mipsEmitter{strs: make(map[string]string)}
	e.data.WriteString(".data\n")
	e.data.WriteString("_true_str: .asciiz \"true\"\n")
	e.data.WriteString("_false_str: .asciiz \"false\"\n")
	for _, inst := range code {
		e.emit(inst)
	}
	var sb strings.Builder
	sb.WriteString(".text\n.globl main\n\n")
	sb.WriteString(runtimePreamble)
	sb.WriteString(e.text.String())
	sb.WriteString("\n")
	sb.WriteString(e.data.String())
	return sb.String()
}

func (e *mipsEmitter) ins(format string, args ...interface{}) {
	e.text.WriteString("\t" + fmt.Sprintf(format, args...) + "\n")
}

func (e *mipsEmitter) label(name string) {
	e.text.WriteString(name + ":\n")
}

func (e *mipsEmitter) mem(loc *Location) string {
	if loc.Segment == GpRelative {
		return fmt.Sprintf("%d($gp)", loc.Offset)
	}
	return fmt.Sprintf("%d($fp)", loc.Offset)
}

// loadTo fetches a TAC operand into a register.
func (e *mipsEmitter) loadTo(reg string, loc *Location) {
	e.ins("lw %s, %s\t# load %s", reg, e.mem(loc), loc.Name)
}

// storeFrom writes a register back to a TAC operand's home.
func (e *mipsEmitter) storeFrom(reg string, loc *Location) {
	e.ins("sw %s, %s\t# store %s", reg, e.mem(loc), loc.Name)
}

func (e *mipsEmitter) internString(value string) string {
	if label, ok := e.strs[value]; ok {
		return label
	}
	label := fmt.Sprintf("_string%d", e.numStrs+1)
	e.numStrs++
	e.strs[value] = label
	e.data.WriteString(fmt.Sprintf("%s: .asciiz \"%s\"\n", label, value))
	return label
}

var binaryOpCodes = map[string]string{
	"+":  "add",
	"-":  "sub",
	"*":  "mul",
	"/":  "div",
	"%":  "rem",
	"<":  "slt",
	"<=": "sle",
	"==": "seq",
	"&&": "and",
	"||": "or",
}

func (e *mipsEmitter) emit(inst Instruction) {
	switch i := inst.(type) {
	case *LoadConstant:
		value := safecast.MustConvert[int32](i.Value)
		e.ins("li $t0, %d", value)
		e.storeFrom("$t0", i.Dst)
	case *LoadStringConstant:
		label := e.internString(i.Value)
		e.ins("la $t0, %s", label)
		e.storeFrom("$t0", i.Dst)
	case *LoadLabel:
		e.ins("la $t0, %s", i.Label)
		e.storeFrom("$t0", i.Dst)
	case *Assign:
		e.loadTo("$t0", i.Src)
		e.storeFrom("$t0", i.Dst)
	case *Load:
		e.loadTo("$t0", i.Src)
		e.ins("lw $t1, %d($t0)", i.Offset)
		e.storeFrom("$t1", i.Dst)
	case *Store:
		e.loadTo("$t0", i.Dst)
		e.loadTo("$t1", i.Src)
		e.ins("sw $t1, %d($t0)", i.Offset)
	case *BinaryOp:
		e.loadTo("$t0", i.LHS)
		e.loadTo("$t1", i.RHS)
		e.ins("%s $t2, $t0, $t1", binaryOpCodes[i.Op])
		e.storeFrom("$t2", i.Dst)
	case *LabelInst:
		e.label(i.Name)
	case *Goto:
		e.ins("j %s", i.Label)
	case *IfZ:
		e.loadTo("$t0", i.Test)
		e.ins("beqz $t0, %s", i.Label)
	case *BeginFunc:
		e.ins("subu $sp, $sp, 8")
		e.ins("sw $fp, 8($sp)")
		e.ins("sw $ra, 4($sp)")
		e.ins("addiu $fp, $sp, 8")
		if i.FrameSize > 0 {
			e.ins("subu $sp, $sp, %d", i.FrameSize)
		}
	case *EndFunc:
		e.epilogue()
	case *PushParam:
		e.ins("subu $sp, $sp, 4")
		e.loadTo("$t0", i.Arg)
		e.ins("sw $t0, 4($sp)")
	case *PopParams:
		e.ins("addu $sp, $sp, %d", i.Bytes)
	case *LCall:
		e.ins("jal %s", i.Label)
		if i.Dst != nil {
			e.storeFrom("$v0", i.Dst)
		}
	case *ACall:
		e.loadTo("$t0", i.Fn)
		e.ins("jalr $t0")
		if i.Dst != nil {
			e.storeFrom("$v0", i.Dst)
		}
	case *ReturnInst:
		if i.Src != nil {
			e.loadTo("$v0", i.Src)
		}
		e.epilogue()
	case *VTableInst:
		e.data.WriteString(i.Class + ":\n")
		for _, m := range i.Methods {
			e.data.WriteString("\t.word " + m + "\n")
		}
	}
}

func (e *mipsEmitter) epilogue() {
	e.ins("move $sp, $fp")
	e.ins("lw $ra, -4($fp)")
	e.ins("lw $fp, 0($fp)")
	e.ins("jr $ra")
}

// The support routines every program links against. Leaf routines, called
// before any prologue runs, so the first parameter sits at 4($sp).
const runtimePreamble = `_Alloc:
	lw $a0, 4($sp)
	li $v0, 9
	syscall
	jr $ra

_PrintInt:
	lw $a0, 4($sp)
	li $v0, 1
	syscall
	jr $ra

_PrintString:
	lw $a0, 4($sp)
	li $v0, 4
	syscall
	jr $ra

_PrintBool:
	lw $t0, 4($sp)
	beqz $t0, _PrintBoolFalse
	la $a0, _true_str
	j _PrintBoolDone
_PrintBoolFalse:
	la $a0, _false_str
_PrintBoolDone:
	li $v0, 4
	syscall
	jr $ra

_ReadInteger:
	li $v0, 5
	syscall
	jr $ra

_ReadLine:
	li $a0, 128
	li $v0, 9
	syscall
	move $a0, $v0
	li $a1, 128
	li $v0, 8
	syscall
	move $v0, $a0
	jr $ra

_StringEqual:
	lw $t0, 4($sp)
	lw $t1, 8($sp)
_StringEqualLoop:
	lb $t2, 0($t0)
	lb $t3, 0($t1)
	bne $t2, $t3, _StringEqualNo
	beqz $t2, _StringEqualYes
	addiu $t0, $t0, 1
	addiu $t1, $t1, 1
	j _StringEqualLoop
_StringEqualYes:
	li $v0, 1
	jr $ra
_StringEqualNo:
	li $v0, 0
	jr $ra

_Halt:
	li $v0, 10
	syscall

`
