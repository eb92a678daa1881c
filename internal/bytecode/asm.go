package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/scanner"
)

// MaxString is the longest string literal that String can carry.
const MaxString = math.MaxUint8

// Assembler builds a rule body, resolving jump labels once all code has been
// emitted. The first error encountered sticks, and is returned by Bytes.
type Assembler struct {
	code   []byte
	labels map[string]int
	fixups []fixup
	err    error
}

type fixup struct {
	at    int
	label string
}

// Op appends operand-less instructions.
func (as *Assembler) Op(ops ...Op) *Assembler {
	for _, op := range ops {
		if op.Operand() != NoOperand {
			as.fail(fmt.Errorf("%v requires an operand", op))
			return as
		}
		as.code = append(as.code, byte(op))
	}
	return as
}

// PushString appends a String instruction.
func (as *Assembler) PushString(s string) *Assembler {
	if len(s) > MaxString {
		as.fail(fmt.Errorf("string literal too long (%v > %v bytes)", len(s), MaxString))
		return as
	}
	as.code = append(as.code, byte(String), byte(len(s)))
	as.code = append(as.code, s...)
	return as
}

// PushInt appends an Int instruction.
func (as *Assembler) PushInt(n int) *Assembler {
	as.code = append(as.code, byte(Int))
	as.code = binary.AppendVarint(as.code, int64(n))
	return as
}

// Jump appends a jump instruction to a label, which may be defined before or
// after this point.
func (as *Assembler) Jump(op Op, label string) *Assembler {
	if op.Operand() != OffsetOperand {
		as.fail(fmt.Errorf("%v is not a jump", op))
		return as
	}
	as.code = append(as.code, byte(op), 0)
	as.fixups = append(as.fixups, fixup{len(as.code) - 1, label})
	return as
}

// JumpBy appends a jump instruction with a literal offset.
func (as *Assembler) JumpBy(op Op, offset int) *Assembler {
	if op.Operand() != OffsetOperand {
		as.fail(fmt.Errorf("%v is not a jump", op))
		return as
	}
	if offset < math.MinInt8 || offset > math.MaxInt8 {
		as.fail(fmt.Errorf("%v offset %v out of range", op, offset))
		return as
	}
	as.code = append(as.code, byte(op), byte(int8(offset)))
	return as
}

// Label defines a jump target at the current position.
func (as *Assembler) Label(name string) *Assembler {
	if as.labels == nil {
		as.labels = make(map[string]int)
	}
	if _, defined := as.labels[name]; defined {
		as.fail(fmt.Errorf("label %q redefined", name))
		return as
	}
	as.labels[name] = len(as.code)
	return as
}

// Len returns the number of bytes emitted so far.
func (as *Assembler) Len() int { return len(as.code) }

// Bytes resolves all jumps and returns the assembled code.
func (as *Assembler) Bytes() ([]byte, error) {
	for _, fix := range as.fixups {
		target, defined := as.labels[fix.label]
		if !defined {
			as.fail(fmt.Errorf("undefined label %q", fix.label))
			break
		}
		offset := target - (fix.at + 1)
		if offset < math.MinInt8 || offset > math.MaxInt8 {
			as.fail(fmt.Errorf("jump to %q out of range (offset %v)", fix.label, offset))
			break
		}
		as.code[fix.at] = byte(int8(offset))
	}
	as.fixups = as.fixups[:0]
	if as.err != nil {
		return nil, as.err
	}
	return as.code, nil
}

func (as *Assembler) fail(err error) {
	if as.err == nil {
		as.err = err
	}
}

// AssembleError locates a problem in assembly source text.
type AssembleError struct {
	Pos scanner.Position
	Err error
}

func (err AssembleError) Error() string { return fmt.Sprintf("%v: %v", err.Pos, err.Err) }
func (err AssembleError) Unwrap() error { return err.Err }

var errMissingOperand = errors.New("missing operand")

// Assemble parses assembly text: whitespace separated mnemonics, each
// followed by its operand if any. A string operand is a Go string literal; an
// int operand is a decimal integer; a jump operand is a label name or a signed
// offset. Labels are defined by a name followed by a colon. Go style comments
// are ignored, so Disassemble output may be assembled again.
func Assemble(src string) ([]byte, error) {
	var (
		as  Assembler
		sc  scanner.Scanner
		err error
	)
	sc.Init(strings.NewReader(src))
	sc.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanStrings |
		scanner.ScanRawStrings | scanner.ScanComments | scanner.SkipComments
	sc.Error = func(s *scanner.Scanner, msg string) {
		if err == nil {
			err = AssembleError{s.Position, errors.New(msg)}
		}
	}
	fail := func(e error) {
		if err == nil {
			err = AssembleError{sc.Position, e}
		}
	}

	for tok := sc.Scan(); tok != scanner.EOF && err == nil; tok = sc.Scan() {
		if tok != scanner.Ident {
			fail(fmt.Errorf("unexpected %v", sc.TokenText()))
			break
		}
		name := sc.TokenText()
		if sc.Peek() == ':' {
			sc.Next()
			as.Label(name)
			continue
		}
		op, ok := Lookup(name)
		if !ok {
			fail(fmt.Errorf("unknown mnemonic %v", name))
			break
		}
		switch op.Operand() {
		case NoOperand:
			as.Op(op)

		case StringOperand:
			switch sc.Scan() {
			case scanner.String, scanner.RawString:
				s, uerr := strconv.Unquote(sc.TokenText())
				if uerr != nil {
					fail(uerr)
				}
				as.PushString(s)
			default:
				fail(fmt.Errorf("%v: %w", op, errMissingOperand))
			}

		case IntOperand:
			n, serr := scanSigned(&sc, sc.Scan())
			if serr != nil {
				fail(fmt.Errorf("%v: %w", op, serr))
			}
			as.PushInt(n)

		case OffsetOperand:
			if tok := sc.Scan(); tok == scanner.Ident {
				as.Jump(op, sc.TokenText())
			} else {
				n, serr := scanSigned(&sc, tok)
				if serr != nil {
					fail(fmt.Errorf("%v: %w", op, serr))
				}
				as.JumpBy(op, n)
			}
		}
		if as.err != nil {
			fail(as.err)
		}
	}
	if err != nil {
		return nil, err
	}
	return as.Bytes()
}

// MustAssemble is like Assemble, but panics on error.
func MustAssemble(src string) []byte {
	code, err := Assemble(src)
	if err != nil {
		panic(err)
	}
	return code
}

func scanSigned(sc *scanner.Scanner, tok rune) (int, error) {
	sign := 1
	switch tok {
	case '-':
		sign = -1
		tok = sc.Scan()
	case '+':
		tok = sc.Scan()
	}
	if tok != scanner.Int {
		return 0, errMissingOperand
	}
	n, err := strconv.Atoi(sc.TokenText())
	return sign * n, err
}
