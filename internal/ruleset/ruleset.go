// Package ruleset holds a compiled transfer rule set: the pattern automaton,
// rule bodies, and the named attributes, lists, and variables that rule
// bodies refer to.
//
// A RuleSet is read-only once built or read, and may be shared by any number
// of processors.
package ruleset

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jcorbin/gortx/internal/chunk"
	"github.com/jcorbin/gortx/internal/matcher"
)

// RuleSet is a compiled rule set.
type RuleSet struct {
	Automaton   *matcher.Automaton
	InputRules  []InputRule
	OutputRules []OutputRule

	Attrs map[string]*Attr
	Lists map[string]*List
	Vars  map[string]string

	// ChunkVars is the number of chunk variable slots each branch carries.
	ChunkVars int

	// LongestPattern is the longest input rule pattern, in tokens counting
	// the blanks between chunks.
	LongestPattern int
}

// InputRule is a rule that reduces a matched sequence of chunks.
type InputRule struct {
	Name string
	Code []byte

	// Length is the pattern length in tokens, counting blanks.
	Length int
	Weight float64
}

// OutputRule is a rule run on a committed chunk to produce its output.
type OutputRule struct {
	Name string
	Code []byte
}

// Attr is a named attribute category: a pattern that clips part of a
// surface form.
type Attr struct {
	Name   string
	Source string
	Re     *regexp.Regexp

	// Order lists the sides tried by an ordered clip, as chunk.Side letters.
	Order string

	// Default is the fallback value of an ordered clip; it is produced as
	// a tag.
	Default string
}

// DefaultOrder is the side order of attributes that do not declare one.
const DefaultOrder = "tsr"

// NewAttr compiles an attribute category.
func NewAttr(name, source, order, fallback string) (*Attr, error) {
	re, err := regexp.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", name, err)
	}
	if order == "" {
		order = DefaultOrder
	}
	for i := 0; i < len(order); i++ {
		switch chunk.Side(order[i]) {
		case chunk.SourceSide, chunk.TargetSide, chunk.RefSide:
		default:
			return nil, fmt.Errorf("attribute %q: invalid side %q in order %q", name, order[i], order)
		}
	}
	return &Attr{
		Name:    name,
		Source:  source,
		Re:      re,
		Order:   order,
		Default: fallback,
	}, nil
}

// OrderedClip returns the first non-empty clip of c in the attribute's side
// order, or the default as a tag when every side comes up empty.
func (at *Attr) OrderedClip(c *chunk.Chunk) string {
	if c != nil {
		for i := 0; i < len(at.Order); i++ {
			if s := c.Clip(at.Re, chunk.Side(at.Order[i])); s != "" {
				return s
			}
		}
	}
	if at.Default == "" {
		return ""
	}
	return "<" + at.Default + ">"
}

// List is a named set of strings, also kept lowercased for caseless tests.
type List struct {
	Name    string
	values  map[string]struct{}
	lowered map[string]struct{}
}

// NewList returns a list holding values.
func NewList(name string, values ...string) *List {
	ls := &List{
		Name:    name,
		values:  make(map[string]struct{}, len(values)),
		lowered: make(map[string]struct{}, len(values)),
	}
	lower := cases.Lower(language.Und)
	for _, v := range values {
		ls.values[v] = struct{}{}
		ls.lowered[lower.String(v)] = struct{}{}
	}
	return ls
}

// Values returns the list's values in sorted order.
func (ls *List) Values() []string {
	vals := maps.Keys(ls.values)
	slices.Sort(vals)
	return vals
}

func (ls *List) set(fold bool) map[string]struct{} {
	if fold {
		return ls.lowered
	}
	return ls.values
}

// Contains returns true if s is in the list. With fold set, s must already
// be lowercased and is compared against the lowercased values.
func (ls *List) Contains(s string, fold bool) bool {
	if ls == nil {
		return false
	}
	_, ok := ls.set(fold)[s]
	return ok
}

// HasPrefix returns true if some value in the list is a prefix of s.
func (ls *List) HasPrefix(s string, fold bool) bool {
	if ls == nil {
		return false
	}
	for v := range ls.set(fold) {
		if strings.HasPrefix(s, v) {
			return true
		}
	}
	return false
}

// HasSuffix returns true if some value in the list is a suffix of s.
func (ls *List) HasSuffix(s string, fold bool) bool {
	if ls == nil {
		return false
	}
	for v := range ls.set(fold) {
		if strings.HasSuffix(s, v) {
			return true
		}
	}
	return false
}

// RuleName returns a printable name for an input rule.
func (rs *RuleSet) RuleName(rule int) string {
	if rule >= 0 && rule < len(rs.InputRules) {
		if name := rs.InputRules[rule].Name; name != "" {
			return name
		}
	}
	return fmt.Sprintf("rule#%d", rule)
}

// OutputRuleName returns a printable name for an output rule.
func (rs *RuleSet) OutputRuleName(rule int) string {
	if rule >= 0 && rule < len(rs.OutputRules) {
		if name := rs.OutputRules[rule].Name; name != "" {
			return name
		}
	}
	return fmt.Sprintf("output#%d", rule)
}

// Validate checks that the automaton and rules agree.
func (rs *RuleSet) Validate() error {
	if rs.Automaton == nil {
		return fmt.Errorf("rule set has no automaton")
	}
	if n := rs.Automaton.NumRules(); n > len(rs.InputRules) {
		return fmt.Errorf("automaton refers to %v rules, only %v defined", n, len(rs.InputRules))
	}
	if err := rs.Automaton.Validate(); err != nil {
		return err
	}
	for i, rule := range rs.InputRules {
		if rule.Length < 1 || rule.Length%2 == 0 {
			return fmt.Errorf("input rule %v: invalid pattern length %v", rs.RuleName(i), rule.Length)
		}
		if rule.Length > rs.LongestPattern {
			return fmt.Errorf("input rule %v: pattern length %v exceeds longest pattern %v",
				rs.RuleName(i), rule.Length, rs.LongestPattern)
		}
	}
	return nil
}
