// Package bytecode defines the instruction encoding run by the transfer stack
// machine, along with an assembler and disassembler for it.
//
// Each instruction is a single opcode byte, optionally followed by an inline
// operand:
//   - String takes a length byte followed by that many bytes of UTF-8
//   - Int takes a signed (zig-zag) varint
//   - Jump, JumpOnTrue, and JumpOnFalse take a signed offset byte, relative
//     to the byte following it
package bytecode

// Op is an instruction opcode.
type Op byte

// Stack operations.
const (
	Drop Op = 'd'
	Dup  Op = '*'
	Over Op = 'o'
	Swap Op = 'w'
)

// Literals.
const (
	String    Op = 's'
	Int       Op = 'i'
	PushFalse Op = 'f'
	PushTrue  Op = 't'
	PushNull  Op = '0'
)

// Jumps.
const (
	Jump        Op = 'j'
	JumpOnTrue  Op = 'J'
	JumpOnFalse Op = '?'
)

// Logical operators.
const (
	And Op = '&'
	Or  Op = '|'
	Not Op = '!'
)

// String comparisons, and their caseless variants.
const (
	Equal         Op = '='
	IsPrefix      Op = '('
	IsSuffix      Op = ')'
	IsSubstring   Op = 'c'
	EqualCL       Op = 'q'
	IsPrefixCL    Op = 'p'
	IsSuffixCL    Op = 'u'
	IsSubstringCL Op = 'r'
)

// List comparisons, and their caseless variants.
const (
	HasPrefix   Op = '['
	HasSuffix   Op = ']'
	In          Op = 'n'
	HasPrefixCL Op = '{'
	HasSuffixCL Op = '}'
	InCL        Op = 'N'
)

// Case operations.
const (
	GetCase Op = 'a'
	SetCase Op = 'A'
)

// Variables.
const (
	FetchVar   Op = 'v'
	SetVar     Op = '$'
	FetchChunk Op = '5'
	SetChunk   Op = '6'
)

// Clips.
const (
	SourceClip    Op = 'S'
	TargetClip    Op = 'T'
	ReferenceClip Op = 'R'
	OrderedClip   Op = 'K'
	SetClip       Op = '>'
)

// Chunks.
const (
	Chunk             Op = 'C'
	AppendChild       Op = '1'
	AppendSurface     Op = '2'
	AppendAllChildren Op = '3'
	AppendAllInput    Op = '4'
	PushInput         Op = '7'
	AppendSurfaceSL   Op = '8'
	AppendSurfaceRef  Op = '9'
)

// Output.
const (
	Output    Op = '<'
	Blank     Op = 'b'
	OutputAll Op = '@'
	Conjoin   Op = '+'
)

// Other.
const (
	Concat     Op = '-'
	RejectRule Op = 'X'
	DisTag     Op = 'D'
	GetRule    Op = '^'
	SetRule    Op = '%'
	LUCount    Op = '#'
)

// Operand describes the inline operand that follows an opcode.
type Operand int

// Operand kinds.
const (
	NoOperand Operand = iota
	StringOperand
	IntOperand
	OffsetOperand
)

// Operand returns the kind of inline operand taken by op.
func (op Op) Operand() Operand {
	switch op {
	case String:
		return StringOperand
	case Int:
		return IntOperand
	case Jump, JumpOnTrue, JumpOnFalse:
		return OffsetOperand
	}
	return NoOperand
}

// Valid returns true if op is a defined opcode.
func (op Op) Valid() bool { return opNames[op] != "" }

func (op Op) String() string {
	if name := opNames[op]; name != "" {
		return name
	}
	return "UNKNOWN(" + quoteByte(byte(op)) + ")"
}

// Lookup returns the opcode with the given mnemonic.
func Lookup(name string) (Op, bool) {
	op, ok := opsByName[name]
	return op, ok
}

var opsByName map[string]Op

func init() {
	opsByName = make(map[string]Op, len(opNames))
	for op, name := range opNames {
		if name != "" {
			opsByName[name] = Op(op)
		}
	}
}

func quoteByte(b byte) string {
	const hex = "0123456789abcdef"
	if b >= 0x20 && b < 0x7f {
		return "'" + string(rune(b)) + "'"
	}
	return "0x" + string(hex[b>>4]) + string(hex[b&0xf])
}
