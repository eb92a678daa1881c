package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jcorbin/gortx/internal/bytecode"
	"github.com/jcorbin/gortx/internal/chunk"
)

var opTable [256]func(m *Machine)

func init() {
	opTable = [256]func(m *Machine){
		bytecode.Drop: func(m *Machine) { m.pop() },
		bytecode.Dup:  func(m *Machine) { m.push(*m.top()) },
		bytecode.Over: (*Machine).over,
		bytecode.Swap: (*Machine).swap,

		bytecode.String:    func(m *Machine) { m.push(String(m.in.Str)) },
		bytecode.Int:       func(m *Machine) { m.push(Int(m.in.Int)) },
		bytecode.PushFalse: func(m *Machine) { m.push(Bool(false)) },
		bytecode.PushTrue:  func(m *Machine) { m.push(Bool(true)) },
		bytecode.PushNull:  func(m *Machine) { m.push(Chunk(nil)) },

		bytecode.Jump:        func(m *Machine) { m.next = m.in.Target },
		bytecode.JumpOnTrue:  func(m *Machine) { m.jumpIf(true) },
		bytecode.JumpOnFalse: func(m *Machine) { m.jumpIf(false) },

		bytecode.And: func(m *Machine) {
			a := m.popBool()
			b := m.popBool()
			m.push(Bool(a && b))
		},
		bytecode.Or: func(m *Machine) {
			a := m.popBool()
			b := m.popBool()
			m.push(Bool(a || b))
		},
		bytecode.Not: (*Machine).not,

		bytecode.Equal:         func(m *Machine) { m.compare(false, func(a, b string) bool { return a == b }) },
		bytecode.EqualCL:       func(m *Machine) { m.compare(true, func(a, b string) bool { return a == b }) },
		bytecode.IsPrefix:      func(m *Machine) { m.compare(false, strings.HasPrefix) },
		bytecode.IsPrefixCL:    func(m *Machine) { m.compare(true, strings.HasPrefix) },
		bytecode.IsSuffix:      func(m *Machine) { m.compare(false, strings.HasSuffix) },
		bytecode.IsSuffixCL:    func(m *Machine) { m.compare(true, strings.HasSuffix) },
		bytecode.IsSubstring:   func(m *Machine) { m.compare(false, strings.Contains) },
		bytecode.IsSubstringCL: func(m *Machine) { m.compare(true, strings.Contains) },

		bytecode.HasPrefix:   func(m *Machine) { m.inList(false, listHasPrefix) },
		bytecode.HasPrefixCL: func(m *Machine) { m.inList(true, listHasPrefix) },
		bytecode.HasSuffix:   func(m *Machine) { m.inList(false, listHasSuffix) },
		bytecode.HasSuffixCL: func(m *Machine) { m.inList(true, listHasSuffix) },
		bytecode.In:          func(m *Machine) { m.inList(false, listContains) },
		bytecode.InCL:        func(m *Machine) { m.inList(true, listContains) },

		bytecode.GetCase: func(m *Machine) { m.push(String(m.copyCase(m.popString(), "aa", m.Linear))) },
		bytecode.SetCase: func(m *Machine) {
			src := m.popString()
			dst := m.popString()
			m.push(String(m.copyCase(src, dst, m.Linear)))
		},

		bytecode.FetchVar:   (*Machine).fetchVar,
		bytecode.SetVar:     (*Machine).setVar,
		bytecode.FetchChunk: (*Machine).fetchChunk,
		bytecode.SetChunk:   (*Machine).setChunk,

		bytecode.SourceClip:    func(m *Machine) { m.clip(chunk.SourceSide) },
		bytecode.TargetClip:    func(m *Machine) { m.clip(chunk.TargetSide) },
		bytecode.ReferenceClip: func(m *Machine) { m.clip(chunk.RefSide) },
		bytecode.OrderedClip:   (*Machine).orderedClip,
		bytecode.SetClip:       (*Machine).setClip,

		bytecode.Chunk:             func(m *Machine) { m.push(Chunk(m.Pool.New())) },
		bytecode.AppendChild:       (*Machine).appendChild,
		bytecode.AppendSurface:     func(m *Machine) { m.appendSurface(chunk.TargetSide) },
		bytecode.AppendSurfaceSL:   func(m *Machine) { m.appendSurface(chunk.SourceSide) },
		bytecode.AppendSurfaceRef:  func(m *Machine) { m.appendSurface(chunk.RefSide) },
		bytecode.AppendAllChildren: (*Machine).appendAllChildren,
		bytecode.AppendAllInput:    (*Machine).appendAllInput,
		bytecode.PushInput:         (*Machine).pushInput,

		bytecode.Output:    (*Machine).output,
		bytecode.Blank:     (*Machine).blank,
		bytecode.OutputAll: (*Machine).outputAll,
		bytecode.Conjoin:   (*Machine).conjoin,

		bytecode.Concat:     (*Machine).concat,
		bytecode.RejectRule: func(m *Machine) { m.done, m.ok = true, false },
		bytecode.DisTag:     (*Machine).distag,
		bytecode.GetRule:    (*Machine).getRule,
		bytecode.SetRule:    (*Machine).setRule,
		bytecode.LUCount:    func(m *Machine) { m.push(String(strconv.Itoa((len(m.fr.Input) + 1) / 2))) },
	}
	for op, fn := range opTable {
		if fn == nil && bytecode.Op(op).Valid() {
			panic(fmt.Sprintf("no implementation for opcode %v", bytecode.Op(op)))
		}
	}
}

func (m *Machine) over() {
	m.need(2)
	m.push(m.stack[m.sp-2])
}

func (m *Machine) swap() {
	m.need(2)
	m.stack[m.sp-1], m.stack[m.sp-2] = m.stack[m.sp-2], m.stack[m.sp-1]
}

func (m *Machine) jumpIf(cond bool) {
	if m.popBool() == cond {
		m.next = m.in.Target
	}
}

func (m *Machine) not() {
	v := m.top()
	if v.kind != BoolKind {
		m.fault(TypeError{[]Kind{BoolKind}, *v})
	}
	v.b = !v.b
}

// compare pops b then a and pushes test(a, b).
func (m *Machine) compare(fold bool, test func(a, b string) bool) {
	b := m.popString()
	a := m.popString()
	if fold {
		a, b = m.toLower(a), m.toLower(b)
	}
	m.push(Bool(test(a, b)))
}

type listTest int

const (
	listContains listTest = iota
	listHasPrefix
	listHasSuffix
)

// inList pops a list name then a needle, and pushes whether the needle
// passes the test against the list.
func (m *Machine) inList(fold bool, test listTest) {
	name := m.popString()
	needle := m.popString()
	if fold {
		needle = m.toLower(needle)
	}
	ls := m.list(name)
	var res bool
	switch test {
	case listContains:
		res = ls.Contains(needle, fold)
	case listHasPrefix:
		res = ls.HasPrefix(needle, fold)
	case listHasSuffix:
		res = ls.HasSuffix(needle, fold)
	}
	m.push(Bool(res))
}

func (m *Machine) fetchVar() {
	name := m.popString()
	m.push(String(m.vars().Strings[name]))
}

func (m *Machine) setVar() {
	name := m.popString()
	val := m.popString()
	vs := m.vars()
	if vs.Strings == nil {
		vs.Strings = make(map[string]string)
	}
	vs.Strings[name] = val
}

func (m *Machine) chunkVar(i int) int {
	vs := m.vars()
	if i < 0 || i >= len(vs.Chunks) {
		m.fault(RangeError{"chunk variable", i, len(vs.Chunks)})
	}
	return i
}

func (m *Machine) fetchChunk() {
	i := m.chunkVar(m.popInt())
	m.push(Chunk(m.fr.Vars.Chunks[i]))
}

func (m *Machine) setChunk() {
	i := m.chunkVar(m.popInt())
	c := m.popChunk()
	m.fr.Vars.Chunks[i] = c
}

// clip pops an attribute name then a chunk, and pushes the attribute's
// value on one side of the chunk.
func (m *Machine) clip(side chunk.Side) {
	name := m.popString()
	c := m.popChunk()
	if c == nil {
		m.push(String(""))
		return
	}
	var s string
	if at := m.attr(name); at != nil {
		s = c.Clip(at.Re, side)
	}
	m.push(String(s))
}

func (m *Machine) orderedClip() {
	name := m.popString()
	c := m.popChunk()
	var s string
	if at := m.attr(name); at != nil {
		s = at.OrderedClip(c)
	}
	m.push(String(s))
}

// setClip pops a position, an attribute name, and a value; position 0 edits
// the chunk left on top of the stack, otherwise a copy of that input chunk.
func (m *Machine) setClip() {
	pos := 2 * (m.popInt() - 1)
	name := m.popString()
	val := m.popString()
	var c *chunk.Chunk
	if pos >= 0 {
		c = m.editInput(pos)
	} else {
		c = m.topChunk()
	}
	if at := m.attr(name); at != nil {
		c.SetClip(at.Re, val)
	}
}

func (m *Machine) appendChild() {
	kid := m.popChunk()
	if kid == nil {
		m.fault(ErrNullChunk)
	}
	parent := m.topChunk()
	if m.Linear && strings.HasPrefix(kid.Target, "^") {
		end := strings.IndexByte(kid.Target, '$')
		if end < 0 {
			end = len(kid.Target)
		}
		word := m.Pool.New()
		word.Target = kid.Target[1:end]
		blank := m.Pool.NewBlank("")
		if end+1 < len(kid.Target) {
			blank.Target = kid.Target[end+1:]
		}
		parent.Children = append(parent.Children, word, blank)
		return
	}
	parent.Children = append(parent.Children, kid)
}

// appendSurface pops a string or chunk, and appends it to one side of the
// chunk left on top of the stack.
func (m *Machine) appendSurface(side chunk.Side) {
	v := m.pop()
	var s string
	switch v.kind {
	case StringKind:
		s = v.s
	case ChunkKind:
		if v.c != nil {
			s = v.c.Surface(side)
		}
	default:
		m.fault(TypeError{[]Kind{StringKind, ChunkKind}, v})
	}
	c := m.topChunk()
	switch side {
	case chunk.SourceSide:
		c.Source += s
	case chunk.RefSide:
		c.Coref += s
	default:
		c.Target += s
	}
}

func (m *Machine) appendAllChildren() {
	c := m.popChunk()
	parent := m.topChunk()
	if c != nil {
		parent.Children = append(parent.Children, c.Children...)
	}
}

func (m *Machine) appendAllInput() {
	parent := m.topChunk()
	parent.Children = append(parent.Children, m.fr.Input...)
}

// pushInput pops a 1-based chunk number and pushes that input chunk; 0 is
// the parent chunk. Numbers past the input fall back to counting only
// non-blank input, then to the last input.
func (m *Machine) pushInput() {
	loc := m.popInt()
	pos := 2 * (loc - 1)
	input := m.fr.Input
	switch {
	case pos == -2:
		m.push(Chunk(m.fr.Parent))
		return
	case pos >= 0 && pos < len(input):
		m.push(Chunk(input[pos]))
		return
	}
	n := 0
	for _, c := range input {
		if !c.Blank {
			n++
		}
		if n == loc {
			m.push(Chunk(c))
			return
		}
	}
	if len(input) == 0 {
		m.fault(RangeError{"input position", pos, 0})
	}
	m.push(Chunk(input[len(input)-1]))
}

func (m *Machine) output() {
	c := m.popChunk()
	if c == nil {
		return
	}
	if m.Linear && len(c.Children) == 0 {
		m.outputLinear(c)
		return
	}
	m.fr.Output = append(m.fr.Output, c)
}

// outputLinear splits a childless chunk whose target carries ^word$ and
// {...} markup into words and blanks; words inside braces become children
// of the chunk named before the brace.
func (m *Machine) outputLinear(c *chunk.Chunk) {
	t := c.Target
	word, inChunk, split := true, false, false
	last := 0
	if strings.HasPrefix(t, "^") {
		last = 1
	}
	emit := func(text string, blank bool) {
		out := m.Pool.New()
		out.Target, out.Blank = text, blank
		if n := len(m.fr.Output); inChunk && n > 0 {
			parent := m.fr.Output[n-1]
			parent.Children = append(parent.Children, out)
		} else {
			m.fr.Output = append(m.fr.Output, out)
		}
	}
	for i := 0; i < len(t); i++ {
		switch ch := t[i]; {
		case ch == '\\':
			i++
		case (ch == '{' || ch == '$') && word:
			if ch == '{' || i > last {
				emit(t[last:i], false)
			}
			if ch == '{' {
				inChunk = true
			}
			last, word, split = i+1, false, true
		case (ch == '^' || ch == '}') && !word:
			if i > last {
				emit(t[last:i], true)
			}
			if ch == '}' {
				inChunk = false
			}
			last, word = i+1, true
		}
	}
	switch {
	case !split:
		if t != "" {
			m.fr.Output = append(m.fr.Output, c)
		}
	case last < len(t):
		m.fr.Output = append(m.fr.Output, m.Pool.NewBlank(t[last:]))
	}
}

// blank pops a 1-based chunk number and pushes the blank after that input
// chunk; 0 synthesizes a single space.
func (m *Machine) blank() {
	pos := 2*(m.popInt()-1) + 1
	if pos == -1 {
		m.push(Chunk(m.Pool.NewBlank(" ")))
		return
	}
	m.push(Chunk(m.input(pos)))
}

func (m *Machine) outputAll() {
	m.fr.Output = append([]*chunk.Chunk(nil), m.fr.Input...)
	m.done, m.ok = true, true
}

func (m *Machine) conjoin() {
	c := m.Pool.NewBlank("+")
	c.Joiner = true
	m.push(Chunk(c))
}

func (m *Machine) concat() {
	m.need(2)
	b, a := m.stack[m.sp-1], m.stack[m.sp-2]
	if a.kind != StringKind {
		m.fault(TypeError{[]Kind{StringKind}, a})
	}
	if b.kind != StringKind {
		m.fault(TypeError{[]Kind{StringKind}, b})
	}
	m.pop()
	m.top().s = a.s + b.s
}

// distag turns a tag string like <a><b> on top of the stack into a.b.
func (m *Machine) distag() {
	v := m.top()
	if v.kind != StringKind {
		m.fault(TypeError{[]Kind{StringKind}, *v})
	}
	if s := v.s; len(s) >= 2 && s[0] == '<' && s[len(s)-1] == '>' {
		v.s = strings.ReplaceAll(s[1:len(s)-1], "><", ".")
	}
}

func (m *Machine) getRule() {
	pos := 2 * (m.popInt() - 1)
	m.push(Int(m.input(pos).Rule))
}

// setRule pops a position then a rule number; position 0 targets the chunk
// left on top of the stack, otherwise a copy of that input chunk.
func (m *Machine) setRule() {
	pos := 2 * (m.popInt() - 1)
	rule := m.popInt()
	if pos == -2 {
		m.topChunk().Rule = rule
		return
	}
	// copied on write like SETCLIP, since other branches share the input chunk
	m.editInput(pos).Rule = rule
}
