package ruleset

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/exp/slices"

	"github.com/jcorbin/gortx/internal/bytecode"
	"github.com/jcorbin/gortx/internal/matcher"
)

// DefaultAttrs are the attribute categories every Builder starts with.
var DefaultAttrs = map[string]string{
	"lem":       `^(?:[^<\\]|\\.)+`,
	"lemq":      `#[- _][^<]+`,
	"lemh":      `^(?:[^<#\\]|\\.)+`,
	"whole":     `.+`,
	"tags":      `(?:<[^>]+>)+`,
	"chname":    `\{[^/]+/`,
	"chcontent": `\{.+`,
	"content":   `\{.+`,
	"pos_tag":   `<[^>]+>`,
}

// Builder assembles a RuleSet in code, standing in for a rule compiler.
//
// Patterns are given one element per chunk. An element is one or more
// alternatives separated by '|'; each alternative is "lemma@tag.tag" or just
// "tag.tag". A missing or empty lemma matches any lemma, a '*' within a lemma
// matches one or more characters, and a '*' tag matches one or more tags.
// A backslash escapes the next character.
//
// Builder methods record the first error encountered, which Build returns.
type Builder struct {
	rs       RuleSet
	ruleEnds map[int][]matcher.State
	err      error
}

// NewBuilder returns a builder holding the default attribute categories.
func NewBuilder() *Builder {
	b := &Builder{
		rs: RuleSet{
			Automaton: matcher.New(nil),
			Attrs:     make(map[string]*Attr, len(DefaultAttrs)),
			Lists:     make(map[string]*List),
			Vars:      make(map[string]string),
		},
		ruleEnds: make(map[int][]matcher.State),
	}
	for name, expr := range DefaultAttrs {
		b.AttrPattern(name, expr)
	}
	return b
}

// Err returns the first error recorded so far.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Attr defines an attribute category matching any of the given tag
// sequences, written dot separated as in "sg.def"; "\." is a literal dot.
// Longer values are preferred where several match.
func (b *Builder) Attr(name string, values ...string) *Builder {
	if len(values) == 0 {
		b.fail(fmt.Errorf("attribute %q has no values", name))
		return b
	}
	alts := make([]string, len(values))
	for i, val := range values {
		tags := splitUnescaped(val, '.')
		for j, tag := range tags {
			tags[j] = regexp.QuoteMeta(strings.ReplaceAll(tag, `\.`, "."))
		}
		alts[i] = "<" + strings.Join(tags, "><") + ">"
	}
	slices.SortStableFunc(alts, func(a, b string) int { return len(b) - len(a) })
	return b.AttrPattern(name, "(?:"+strings.Join(alts, "|")+")")
}

// AttrPattern defines an attribute category by regular expression.
func (b *Builder) AttrPattern(name, expr string) *Builder {
	var order, fallback string
	if prior := b.rs.Attrs[name]; prior != nil {
		order, fallback = prior.Order, prior.Default
	}
	at, err := NewAttr(name, expr, order, fallback)
	if err != nil {
		b.fail(err)
		return b
	}
	b.rs.Attrs[name] = at
	return b
}

// AttrOrder sets the side order and default value that an ordered clip of
// an already defined attribute uses.
func (b *Builder) AttrOrder(name, order, fallback string) *Builder {
	prior := b.rs.Attrs[name]
	if prior == nil {
		b.fail(fmt.Errorf("undefined attribute %q", name))
		return b
	}
	at, err := NewAttr(name, prior.Source, order, fallback)
	if err != nil {
		b.fail(err)
		return b
	}
	b.rs.Attrs[name] = at
	return b
}

// List defines a named list.
func (b *Builder) List(name string, values ...string) *Builder {
	b.rs.Lists[name] = NewList(name, values...)
	return b
}

// Var defines a global variable with its initial value.
func (b *Builder) Var(name, value string) *Builder {
	b.rs.Vars[name] = value
	return b
}

// ChunkVars sets the number of chunk variable slots.
func (b *Builder) ChunkVars(n int) *Builder {
	b.rs.ChunkVars = n
	return b
}

// Rule adds an input rule whose body is given as assembly text, returning
// its number.
func (b *Builder) Rule(name string, weight float64, body string, pattern ...string) int {
	code, err := bytecode.Assemble(body)
	if err != nil {
		b.fail(fmt.Errorf("input rule %q: %w", name, err))
	}
	return b.RuleCode(name, weight, code, pattern...)
}

// RuleCode adds an input rule with an assembled body, returning its number.
func (b *Builder) RuleCode(name string, weight float64, code []byte, pattern ...string) int {
	rule := len(b.rs.InputRules)
	if len(pattern) == 0 {
		b.fail(fmt.Errorf("input rule %q has an empty pattern", name))
		return rule
	}
	elems := make([][]patternItem, len(pattern))
	for i, elem := range pattern {
		items, err := parseElement(elem)
		if err != nil {
			b.fail(fmt.Errorf("input rule %q: %w", name, err))
			return rule
		}
		elems[i] = items
	}

	length := 2*len(pattern) - 1
	b.rs.InputRules = append(b.rs.InputRules, InputRule{
		Name:   name,
		Code:   code,
		Length: length,
		Weight: weight,
	})
	if length > b.rs.LongestPattern {
		b.rs.LongestPattern = length
	}

	a := b.rs.Automaton
	end := b.addPattern(elems)
	a.Attach(end, rule)
	a.SetRuleInfo(rule, matcher.RuleInfo{Length: length, Weight: weight})
	b.ruleEnds[rule] = append(b.ruleEnds[rule], end)
	return rule
}

// Lookahead lets a branch that has just completed a match of rule also
// survive unreduced, so long as the next chunk carries the first tag of one
// of the options. Without lookahead, a completed match is always reduced.
func (b *Builder) Lookahead(rule int, options ...string) *Builder {
	ends, defined := b.ruleEnds[rule]
	if !defined {
		b.fail(fmt.Errorf("lookahead for undefined rule %v", rule))
		return b
	}
	if len(options) == 0 {
		return b
	}
	var firstTags []matcher.Symbol
	for _, opt := range options {
		items, err := parseElement(opt)
		if err != nil {
			b.fail(fmt.Errorf("lookahead for rule %v: %w", rule, err))
			return b
		}
		for _, item := range items {
			if len(item.tags) == 0 || item.tags[0] == "*" {
				b.fail(fmt.Errorf("lookahead option %q for rule %v needs a leading tag", opt, rule))
				return b
			}
			firstTags = append(firstTags, b.rs.Automaton.Alphabet.Intern("<"+item.tags[0]+">"))
		}
	}

	a := b.rs.Automaton
	for _, st := range ends {
		st = b.insert(st, matcher.LookAhead)
		st = b.insert(st, matcher.WordStart)
		a.AddTransition(st, matcher.AnyChar, st)
		var end matcher.State
		for i, sym := range firstTags {
			tagged := b.insert(st, sym)
			a.AddTransition(tagged, matcher.AnyTag, tagged)
			if i == 0 {
				end = b.insert(tagged, matcher.WordEnd)
			} else {
				a.AddTransition(tagged, matcher.WordEnd, end)
			}
		}
	}
	return b
}

// OutputRule adds an output rule whose body is given as assembly text,
// returning its number.
func (b *Builder) OutputRule(name, body string) int {
	code, err := bytecode.Assemble(body)
	if err != nil {
		b.fail(fmt.Errorf("output rule %q: %w", name, err))
	}
	return b.OutputRuleCode(name, code)
}

// OutputRuleCode adds an output rule with an assembled body, returning its
// number.
func (b *Builder) OutputRuleCode(name string, code []byte) int {
	b.rs.OutputRules = append(b.rs.OutputRules, OutputRule{Name: name, Code: code})
	return len(b.rs.OutputRules) - 1
}

// Build returns the rule set, or the first error encountered while building
// it. The builder must not be used afterwards.
func (b *Builder) Build() (*RuleSet, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.rs.InputRules) == 0 {
		return nil, errors.New("rule set has no input rules")
	}
	rs := b.rs
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *RuleSet {
	rs, err := b.Build()
	if err != nil {
		panic(err)
	}
	return rs
}

type patternItem struct {
	lemma string
	tags  []string
}

func parseElement(elem string) ([]patternItem, error) {
	var items []patternItem
	for _, alt := range splitUnescaped(elem, '|') {
		if alt == "" {
			return nil, fmt.Errorf("empty alternative in pattern element %q", elem)
		}
		var item patternItem
		tags := alt
		if parts := splitUnescaped(alt, '@'); len(parts) == 2 {
			item.lemma, tags = parts[0], parts[1]
		} else if len(parts) > 2 {
			return nil, fmt.Errorf("too many '@' in pattern element %q", elem)
		}
		if tags != "" {
			item.tags = splitUnescaped(tags, '.')
			for _, tag := range item.tags {
				if tag == "" {
					return nil, fmt.Errorf("empty tag in pattern element %q", elem)
				}
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func splitUnescaped(s string, sep byte) []string {
	var parts []string
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case sep:
			parts = append(parts, s[last:i])
			last = i + 1
		}
	}
	return append(parts, s[last:])
}

// insert follows the only edge on sym out of src, or adds one to a new state.
func (b *Builder) insert(src matcher.State, sym matcher.Symbol) matcher.State {
	a := b.rs.Automaton
	if ts := a.Dests(src, sym); len(ts) == 1 {
		return ts[0].Dest
	}
	return b.insertNew(src, sym)
}

func (b *Builder) insertNew(src matcher.State, sym matcher.Symbol) matcher.State {
	a := b.rs.Automaton
	dest := a.AddState()
	a.AddTransition(src, sym, dest)
	return dest
}

// addPattern adds the states for a pattern, returning its end state; each
// pattern gets its own branch out of the initial state.
func (b *Builder) addPattern(elems [][]patternItem) matcher.State {
	a := b.rs.Automaton
	st := matcher.Initial
	for i, items := range elems {
		if i > 0 {
			st = b.insert(st, matcher.Space)
		}
		st = b.insertNew(st, matcher.WordStart)
		var end matcher.State
		for j, item := range items {
			tail := b.insertTags(b.insertLemma(st, item.lemma), item.tags)
			if j == 0 {
				end = b.insert(tail, matcher.WordEnd)
			} else {
				a.AddTransition(tail, matcher.WordEnd, end)
			}
		}
		st = end
	}
	return st
}

func (b *Builder) insertLemma(st matcher.State, lemma string) matcher.State {
	a := b.rs.Automaton
	if lemma == "" {
		st = b.insert(st, matcher.AnyChar)
		a.AddTransition(st, matcher.AnyChar, st)
		return st
	}
	for i := 0; i < len(lemma); {
		r, n := utf8.DecodeRuneInString(lemma[i:])
		i += n
		switch r {
		case '\\':
			if i >= len(lemma) {
				st = b.insert(st, matcher.Symbol('\\'))
				continue
			}
			r, n = utf8.DecodeRuneInString(lemma[i:])
			i += n
			st = b.insert(st, matcher.Symbol(unicode.ToLower(r)))
		case '*':
			st = b.insert(st, matcher.AnyChar)
			a.AddTransition(st, matcher.AnyChar, st)
		default:
			st = b.insert(st, matcher.Symbol(unicode.ToLower(r)))
		}
	}
	return st
}

func (b *Builder) insertTags(st matcher.State, tags []string) matcher.State {
	a := b.rs.Automaton
	for _, tag := range tags {
		if tag == "*" {
			st = b.insert(st, matcher.AnyTag)
			a.AddTransition(st, matcher.AnyTag, st)
			continue
		}
		st = b.insert(st, a.Alphabet.Intern("<"+tag+">"))
	}
	return st
}
