// Package vm implements the stack machine that runs rule bodies.
//
// A machine runs one rule body at a time against a Frame: the input chunks
// matched by the rule's pattern, the parent chunk of an output rule, and the
// variables of the parse branch the rule applies to. Faults in the rule code
// (stack underflow, type errors, bad positions, malformed code) panic with a
// Fault; callers isolate runs with panicerr.Recover.
package vm

import (
	"errors"
	"fmt"

	"golang.org/x/exp/maps"

	"github.com/jcorbin/gortx/internal/bytecode"
	"github.com/jcorbin/gortx/internal/chunk"
	"github.com/jcorbin/gortx/internal/ruleset"
)

// StackCap is the capacity of the value stack.
const StackCap = 32

// Vars are the variables of a parse branch.
type Vars struct {
	Strings map[string]string
	Chunks  []*chunk.Chunk
}

// NewVars returns variables initialized from globals, with n empty chunk
// variable slots.
func NewVars(globals map[string]string, n int) *Vars {
	vs := &Vars{Chunks: make([]*chunk.Chunk, n)}
	if globals != nil {
		vs.Strings = maps.Clone(globals)
	} else {
		vs.Strings = make(map[string]string)
	}
	return vs
}

// Clone returns a copy of vs that shares nothing mutable with it.
func (vs *Vars) Clone() *Vars {
	return &Vars{
		Strings: maps.Clone(vs.Strings),
		Chunks:  append([]*chunk.Chunk(nil), vs.Chunks...),
	}
}

// Frame is what one rule application reads and writes.
type Frame struct {
	// Input holds the matched chunks and the blanks between them; Run may
	// replace elements with edited copies.
	Input []*chunk.Chunk

	// Parent is the chunk an output rule runs on.
	Parent *chunk.Chunk

	Vars *Vars

	// Output collects the chunks produced by the rule.
	Output []*chunk.Chunk
}

// Machine runs rule bodies. It is not safe for concurrent use.
type Machine struct {
	Rules *ruleset.RuleSet
	Pool  *chunk.Pool

	// Linear selects the chunker compatible treatment of marked up surface
	// text in OUTPUT, APPENDCHILD, and case transfer.
	Linear bool

	// Trace, when set, is called before each instruction with the stack as
	// it stands.
	Trace func(rule string, in bytecode.Instr, stack []Value)

	folder

	name   string
	fr     *Frame
	code   []byte
	in     bytecode.Instr
	next   int
	done   bool
	ok     bool
	stack  [StackCap]Value
	sp     int
	edited []bool
}

// Stack errors.
var (
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
	ErrNoVars         = errors.New("no variable scope")
	ErrNullChunk      = errors.New("null chunk")
)

// TypeError is a fault caused by a stack value of the wrong kind.
type TypeError struct {
	Want []Kind
	Got  Value
}

func (err TypeError) Error() string {
	return fmt.Sprintf("expected %v, got %v %v", err.Want, err.Got.Kind(), err.Got)
}

// RangeError is a fault caused by a position or index out of range.
type RangeError struct {
	What  string
	Index int
	Len   int
}

func (err RangeError) Error() string {
	return fmt.Sprintf("%v %v out of range [0, %v)", err.What, err.Index, err.Len)
}

// Fault is the panic value of a failed rule application.
type Fault struct {
	Rule string
	PC   int
	Op   bytecode.Op
	Err  error
}

func (f Fault) Error() string {
	return fmt.Sprintf("rule %v @%v %v: %v", f.Rule, f.PC, f.Op, f.Err)
}

func (f Fault) Unwrap() error { return f.Err }

func (m *Machine) fault(err error) {
	panic(Fault{Rule: m.name, PC: m.in.PC, Op: m.in.Op, Err: err})
}

// Run runs a rule body against fr, returning false if the rule rejected
// itself. Variables set before a rejection stay set.
func (m *Machine) Run(name string, code []byte, fr *Frame) bool {
	m.name, m.code, m.fr = name, code, fr
	m.sp = 0
	m.done, m.ok = false, true
	fr.Output = nil
	if cap(m.edited) < len(fr.Input) {
		m.edited = make([]bool, len(fr.Input))
	} else {
		m.edited = m.edited[:len(fr.Input)]
		for i := range m.edited {
			m.edited[i] = false
		}
	}
	defer func() {
		for i := 0; i < m.sp; i++ {
			m.stack[i] = Value{}
		}
		m.sp = 0
		m.fr = nil
	}()

	for pc := 0; pc < len(code) && !m.done; pc = m.next {
		in, err := bytecode.Decode(code, pc)
		m.in = in
		if err != nil {
			m.fault(err)
		}
		m.next = in.Next
		if m.Trace != nil {
			m.Trace(name, in, m.stack[:m.sp])
		}
		opTable[in.Op](m)
		if m.next < 0 || m.next > len(code) {
			m.fault(RangeError{"jump target", m.next, len(code) + 1})
		}
	}
	return m.ok
}

func (m *Machine) push(v Value) {
	if m.sp >= StackCap {
		m.fault(ErrStackOverflow)
	}
	m.stack[m.sp] = v
	m.sp++
}

func (m *Machine) need(n int) {
	if m.sp < n {
		m.fault(ErrStackUnderflow)
	}
}

func (m *Machine) top() *Value {
	m.need(1)
	return &m.stack[m.sp-1]
}

func (m *Machine) pop() Value {
	m.need(1)
	m.sp--
	v := m.stack[m.sp]
	m.stack[m.sp] = Value{}
	return v
}

func (m *Machine) popKind(kind Kind) Value {
	v := m.pop()
	if v.kind != kind {
		m.fault(TypeError{[]Kind{kind}, v})
	}
	return v
}

func (m *Machine) popBool() bool { return m.popKind(BoolKind).b }
func (m *Machine) popInt() int   { return m.popKind(IntKind).i }

func (m *Machine) popChunk() *chunk.Chunk { return m.popKind(ChunkKind).c }

// popString pops a string, or the target of a chunk.
func (m *Machine) popString() string {
	v := m.pop()
	if v.kind != StringKind && v.kind != ChunkKind {
		m.fault(TypeError{[]Kind{StringKind, ChunkKind}, v})
	}
	return v.Str()
}

// topChunk returns the non-nil chunk on top of the stack, leaving it there.
func (m *Machine) topChunk() *chunk.Chunk {
	v := m.top()
	if v.kind != ChunkKind {
		m.fault(TypeError{[]Kind{ChunkKind}, *v})
	}
	if v.c == nil {
		m.fault(ErrNullChunk)
	}
	return v.c
}

func (m *Machine) vars() *Vars {
	if m.fr.Vars == nil {
		m.fault(ErrNoVars)
	}
	return m.fr.Vars
}

// input returns the input chunk at pos.
func (m *Machine) input(pos int) *chunk.Chunk {
	if pos < 0 || pos >= len(m.fr.Input) {
		m.fault(RangeError{"input position", pos, len(m.fr.Input)})
	}
	return m.fr.Input[pos]
}

// editInput returns the input chunk at pos, replacing it by a copy the first
// time it is edited during a run, so that other branches sharing it are
// unaffected.
func (m *Machine) editInput(pos int) *chunk.Chunk {
	c := m.input(pos)
	if !m.edited[pos] {
		c = m.Pool.Copy(c)
		m.fr.Input[pos] = c
		m.edited[pos] = true
	}
	return c
}

func (m *Machine) attr(name string) *ruleset.Attr {
	if m.Rules == nil {
		return nil
	}
	return m.Rules.Attrs[name]
}

func (m *Machine) list(name string) *ruleset.List {
	if m.Rules == nil {
		return nil
	}
	return m.Rules.Lists[name]
}
