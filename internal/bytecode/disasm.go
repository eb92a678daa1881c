package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Instr is one decoded instruction.
type Instr struct {
	PC   int
	Op   Op
	Str  string
	Int  int
	Next int

	// Target is the pc that a jump transfers control to.
	Target int
}

// DecodeError describes malformed code.
type DecodeError struct {
	PC     int
	Op     Op
	Reason string
}

func (err DecodeError) Error() string {
	return fmt.Sprintf("@%v %v: %v", err.PC, err.Op, err.Reason)
}

// Decode decodes the instruction at pc.
func Decode(code []byte, pc int) (in Instr, err error) {
	if pc < 0 || pc >= len(code) {
		return in, DecodeError{pc, 0, "pc out of range"}
	}
	in.PC = pc
	in.Op = Op(code[pc])
	in.Next = pc + 1
	if !in.Op.Valid() {
		return in, DecodeError{pc, in.Op, "invalid opcode"}
	}
	switch in.Op.Operand() {
	case StringOperand:
		if in.Next >= len(code) {
			return in, DecodeError{pc, in.Op, "missing length"}
		}
		n := int(code[in.Next])
		in.Next++
		if in.Next+n > len(code) {
			return in, DecodeError{pc, in.Op, "truncated string"}
		}
		in.Str = string(code[in.Next : in.Next+n])
		in.Next += n

	case IntOperand:
		v, n := binary.Varint(code[in.Next:])
		if n <= 0 {
			return in, DecodeError{pc, in.Op, "truncated varint"}
		}
		in.Int = int(v)
		in.Next += n

	case OffsetOperand:
		if in.Next >= len(code) {
			return in, DecodeError{pc, in.Op, "missing offset"}
		}
		in.Int = int(int8(code[in.Next]))
		in.Next++
		in.Target = in.Next + in.Int
	}
	return in, nil
}

// DecodeAll decodes every instruction in code.
func DecodeAll(code []byte) ([]Instr, error) {
	var ins []Instr
	for pc := 0; pc < len(code); {
		in, err := Decode(code, pc)
		if err != nil {
			return ins, err
		}
		ins = append(ins, in)
		pc = in.Next
	}
	return ins, nil
}

// Disassemble writes code as assembly text that Assemble accepts, annotating
// each instruction with its pc.
func Disassemble(w io.Writer, code []byte) error {
	ins, err := DecodeAll(code)
	labels := jumpLabels(code, ins)

	addrWidth := len(strconv.Itoa(len(code)))
	var buf strings.Builder
	for _, in := range ins {
		if label := labels[in.PC]; label != "" {
			buf.WriteString(label)
			buf.WriteString(":\n")
		}
		buf.WriteString("  ")
		n := buf.Len()
		formatInstr(&buf, in, labels)
		if pad := 24 - (buf.Len() - n); pad > 0 {
			buf.WriteString(strings.Repeat(" ", pad))
		}
		fmt.Fprintf(&buf, " // @%*v\n", addrWidth, in.PC)
		if _, werr := io.WriteString(w, buf.String()); werr != nil {
			return werr
		}
		buf.Reset()
	}
	if label := labels[len(code)]; label != "" && err == nil {
		if _, werr := io.WriteString(w, label+":\n"); werr != nil {
			return werr
		}
	}
	return err
}

// String returns a single instruction in assembly form, with any jump given
// as a raw offset.
func (in Instr) String() string {
	var buf strings.Builder
	formatInstr(&buf, in, nil)
	return buf.String()
}

func formatInstr(buf *strings.Builder, in Instr, labels map[int]string) {
	buf.WriteString(in.Op.String())
	switch in.Op.Operand() {
	case StringOperand:
		buf.WriteByte(' ')
		buf.WriteString(strconv.Quote(in.Str))
	case IntOperand:
		buf.WriteByte(' ')
		buf.WriteString(strconv.Itoa(in.Int))
	case OffsetOperand:
		buf.WriteByte(' ')
		if label := labels[in.Target]; label != "" {
			buf.WriteString(label)
		} else {
			if in.Int >= 0 {
				buf.WriteByte('+')
			}
			buf.WriteString(strconv.Itoa(in.Int))
		}
	}
}

// jumpLabels names every jump target that lands on an instruction boundary,
// or on the end of code, in pc order.
func jumpLabels(code []byte, ins []Instr) map[int]string {
	starts := make(map[int]bool, len(ins)+1)
	for _, in := range ins {
		starts[in.PC] = true
	}
	starts[len(code)] = true

	targets := make(map[int]bool)
	for _, in := range ins {
		if in.Op.Operand() == OffsetOperand && starts[in.Target] {
			targets[in.Target] = true
		}
	}
	if len(targets) == 0 {
		return nil
	}

	labels := make(map[int]string, len(targets))
	id := 0
	for pc := 0; pc <= len(code); pc++ {
		if targets[pc] {
			id++
			labels[pc] = "L" + strconv.Itoa(id)
		}
	}
	return labels
}
