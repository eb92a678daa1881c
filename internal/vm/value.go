package vm

import (
	"fmt"
	"strconv"

	"github.com/jcorbin/gortx/internal/chunk"
)

// Kind is the type of a stack value.
type Kind uint8

// Value kinds.
const (
	BoolKind Kind = iota
	IntKind
	StringKind
	ChunkKind
)

func (k Kind) String() string {
	switch k {
	case BoolKind:
		return "bool"
	case IntKind:
		return "int"
	case StringKind:
		return "string"
	case ChunkKind:
		return "chunk"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is a stack element. A chunk value does not own its chunk, and may be
// nil.
type Value struct {
	kind Kind
	b    bool
	i    int
	s    string
	c    *chunk.Chunk
}

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: BoolKind, b: b} }

// Int returns an integer value.
func Int(i int) Value { return Value{kind: IntKind, i: i} }

// String returns a string value.
func String(s string) Value { return Value{kind: StringKind, s: s} }

// Chunk returns a chunk reference value.
func Chunk(c *chunk.Chunk) Value { return Value{kind: ChunkKind, c: c} }

// Kind returns the value's type.
func (v Value) Kind() Kind { return v.kind }

// Bool returns a boolean value's truth.
func (v Value) Bool() bool { return v.b }

// Int returns an integer value's number.
func (v Value) Int() int { return v.i }

// Str returns a string value's text, or a chunk value's target.
func (v Value) Str() string {
	if v.kind == ChunkKind {
		if v.c == nil {
			return ""
		}
		return v.c.Target
	}
	return v.s
}

// Chunk returns a chunk value's reference.
func (v Value) Chunk() *chunk.Chunk { return v.c }

func (v Value) String() string {
	switch v.kind {
	case BoolKind:
		return strconv.FormatBool(v.b)
	case IntKind:
		return strconv.Itoa(v.i)
	case StringKind:
		return strconv.Quote(v.s)
	case ChunkKind:
		if v.c == nil {
			return "<null>"
		}
		return "<" + v.c.FlatString() + ">"
	}
	return v.kind.String()
}
