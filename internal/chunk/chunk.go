// Package chunk implements the tree of lexical units that flows through the
// transfer engine.
package chunk

import (
	"io"
	"regexp"
	"strings"

	"github.com/jcorbin/gortx/internal/arena"
)

// NoRule marks a chunk that has no output-time rule attached.
const NoRule = -1

// UnknownTag is appended to the target of the wrapper chunk that the reader
// builds around an unknown word.
const UnknownTag = "<UNKNOWN:INTERNAL>"

// Chunk is a node in a translation tree: either a blank, carrying literal
// inter-word text in Target, or a lexical unit with surface forms and an
// ordered list of children.
type Chunk struct {
	Source string
	Target string
	Coref  string
	Wblank string

	Blank  bool
	Joiner bool

	Children []*Chunk

	// Rule selects the output-time rule to run on this chunk, or NoRule.
	Rule int
}

// Reset implements arena.Resetter.
func (c *Chunk) Reset() { *c = Chunk{Rule: NoRule} }

// Side selects one of a chunk's surface forms.
type Side byte

// Sides, named by the letters used in attribute side orders.
const (
	SourceSide Side = 's'
	TargetSide Side = 't'
	RefSide    Side = 'r'
)

func (sd Side) String() string {
	switch sd {
	case SourceSide:
		return "sl"
	case TargetSide:
		return "tl"
	case RefSide:
		return "ref"
	}
	return "side(" + string(rune(sd)) + ")"
}

// Surface returns the surface form on the given side.
func (c *Chunk) Surface(side Side) string {
	switch side {
	case SourceSide:
		return c.Source
	case RefSide:
		return c.Coref
	default:
		return c.Target
	}
}

// Clip returns the first match of part on the given side, or "" if there is none.
func (c *Chunk) Clip(part *regexp.Regexp, side Side) string {
	if part == nil {
		return ""
	}
	return part.FindString(c.Surface(side))
}

// SetClip replaces the first match of part in the target with value; targets
// that do not contain part are left unchanged.
func (c *Chunk) SetClip(part *regexp.Regexp, value string) {
	if part == nil {
		return
	}
	if loc := part.FindStringIndex(c.Target); loc != nil {
		c.Target = c.Target[:loc[0]] + value + c.Target[loc[1]:]
	}
}

// MatchSurface returns the form that patterns are matched against: the
// source of a word, or the target of a chunk built by a rule.
func (c *Chunk) MatchSurface() string {
	if len(c.Children) == 0 {
		return c.Source
	}
	return c.Target
}

// CopyTo copies c into dst; children are shared, but not the slice holding them.
func (c *Chunk) CopyTo(dst *Chunk) {
	*dst = *c
	dst.Children = append([]*Chunk(nil), c.Children...)
}

// Conjoin merges other into c's target at c's first unescaped '#', or at the
// end when there is none.
func (c *Chunk) Conjoin(other *Chunk) {
	loc := 0
	for ; loc < len(c.Target); loc++ {
		if c.Target[loc] == '\\' {
			loc++
			continue
		}
		if c.Target[loc] == '#' {
			break
		}
	}
	if loc > len(c.Target) {
		loc = len(c.Target)
	}
	c.Target = c.Target[:loc] + "+" + other.Target + c.Target[loc:]
	c.Wblank = CombineWblanks(other.Wblank, c.Wblank)
}

// Output writes the chunk as stream text: a blank verbatim, a word as
// ^target$, and a chunk with children by recursing with its tags.
func (c *Chunk) Output(w io.Writer) error {
	return c.output(w, nil)
}

func (c *Chunk) output(w io.Writer, parentTags []string) error {
	if len(c.Children) > 0 {
		tags := c.Tags(parentTags)
		for _, kid := range c.Children {
			if err := kid.output(w, tags); err != nil {
				return err
			}
		}
		return nil
	}
	if c.Blank {
		_, err := io.WriteString(w, c.Target)
		return err
	}
	c.UpdateTags(parentTags)
	if c.Target == "" {
		return nil
	}
	var sb strings.Builder
	sb.Grow(len(c.Wblank) + len(c.Target) + 2)
	sb.WriteString(c.Wblank)
	sb.WriteByte('^')
	sb.WriteString(c.Target)
	sb.WriteByte('$')
	_, err := io.WriteString(w, sb.String())
	return err
}

// CombineWblanks joins two word-bound blanks into one [[a; b]] group.
func CombineWblanks(current, add string) string {
	if current == "" {
		return add
	}
	if add == "" {
		return current
	}
	var sb strings.Builder
	for i := 0; i < len(current); i++ {
		ch := current[i]
		if ch == '\\' && i+1 < len(current) {
			sb.WriteByte(ch)
			i++
			sb.WriteByte(current[i])
		} else if ch == ']' {
			if i+1 < len(current) && current[i+1] == ']' {
				sb.WriteByte(';')
				break
			}
		} else {
			sb.WriteByte(ch)
		}
	}
	for i := 0; i < len(add); i++ {
		ch := add[i]
		if ch == '\\' && i+1 < len(add) {
			sb.WriteByte(ch)
			i++
			sb.WriteByte(add[i])
		} else if ch == '[' {
			if i+1 < len(add) && add[i+1] == '[' {
				sb.WriteByte(' ')
				i++
			}
		} else {
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

// Pool allocates chunks from an arena.
type Pool struct {
	arena.Pool[Chunk]
}

// New returns a fresh non-blank chunk with no rule.
func (p *Pool) New() *Chunk {
	c := p.Next()
	c.Rule = NoRule
	return c
}

// NewBlank returns a fresh blank chunk carrying text.
func (p *Pool) NewBlank(text string) *Chunk {
	c := p.New()
	c.Blank = true
	c.Target = text
	return c
}

// NewWord returns a fresh lexical unit.
func (p *Pool) NewWord(source, target, coref string) *Chunk {
	c := p.New()
	c.Source = source
	c.Target = target
	c.Coref = coref
	return c
}

// Copy returns a fresh copy of c.
func (p *Pool) Copy(c *Chunk) *Chunk {
	dst := p.Next()
	c.CopyTo(dst)
	return dst
}

// WrapUnknown returns a chunk wrapping an unknown word, so that patterns may
// match it by its (star-less) target.
func (p *Pool) WrapUnknown(word *Chunk) *Chunk {
	c := p.New()
	c.Target = strings.TrimPrefix(word.Target, "*") + UnknownTag
	c.Children = append(c.Children, word)
	return c
}

// IsUnknown returns true if both sides of a word are starred.
func IsUnknown(source, target string) bool {
	return strings.HasPrefix(source, "*") && strings.HasPrefix(target, "*")
}
