package matcher

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/exp/slices"
)

// Step advances every state in ss over sym, and over alt unless it is
// NoSymbol. States that have no edge on either are dropped.
func (a *Automaton) Step(ss *States, sym, alt Symbol) {
	old := ss.n
	for i := 0; i < old; i++ {
		st := ss.pop()
		since := old - i - 1
		a.apply(ss, st, sym, since)
		if alt != NoSymbol {
			a.apply(ss, st, alt, since)
		}
	}
}

func (a *Automaton) apply(ss *States, st State, sym Symbol, since int) {
	for _, t := range a.Dests(st, sym) {
		ss.pushNew(t.Dest, since)
	}
}

// seed steps a copy of src over sym, then also starts a fresh match from the
// initial state.
func (a *Automaton) seed(src *States, sym Symbol) (ss States) {
	if src != nil {
		ss = *src
		a.Step(&ss, sym, NoSymbol)
	}
	a.apply(&ss, Initial, sym, 0)
	return ss
}

// MatchChunk returns the breadth set reached by reading one chunk surface
// after src; a new match may also begin at the chunk. A nil src starts from
// scratch.
func (a *Automaton) MatchChunk(src *States, surface string) States {
	ss := a.seed(src, WordStart)
	a.matchSurface(&ss, surface)
	return ss
}

// MatchBlank returns the breadth set reached by reading a blank after src; a
// new match may also begin at the blank.
func (a *Automaton) MatchBlank(src *States) States {
	return a.seed(src, Space)
}

// Start returns a breadth set holding only the initial state.
func Start() (ss States) {
	ss.Push(Initial)
	return ss
}

// ReadChunk advances ss over one chunk surface without starting any new
// match.
func (a *Automaton) ReadChunk(ss *States, surface string) {
	a.Step(ss, WordStart, NoSymbol)
	a.matchSurface(ss, surface)
}

// ReadBlank advances ss over a blank without starting any new match.
func (a *Automaton) ReadBlank(ss *States) {
	a.Step(ss, Space, NoSymbol)
}

// ShouldShift returns true if some pattern that is still open at src could
// go on to read surface as its next chunk.
func (a *Automaton) ShouldShift(src *States, surface string) bool {
	ss := *src
	a.Step(&ss, LookAhead, NoSymbol)
	a.Step(&ss, WordStart, NoSymbol)
	a.matchSurface(&ss, surface)
	return !ss.Empty()
}

// CanShift returns true if some state in ss can read past a blank.
func (a *Automaton) CanShift(ss *States) bool {
	for i := 0; i < ss.n; i++ {
		if len(a.Dests(ss.At(i), Space)) > 0 {
			return true
		}
	}
	return false
}

func (a *Automaton) matchSurface(ss *States, s string) {
	for i := 0; i < len(s) && !ss.Empty(); {
		r, n := utf8.DecodeRuneInString(s[i:])
		switch r {
		case '\\':
			i += n
			if i >= len(s) {
				continue
			}
			r, n = utf8.DecodeRuneInString(s[i:])
			a.Step(ss, Symbol(unicode.ToLower(r)), AnyChar)
			i += n

		case '<':
			j := i + 1
			for j < len(s) && s[j] != '>' {
				j++
			}
			if j >= len(s) {
				i += n
				continue
			}
			if sym, ok := a.Alphabet.Lookup(s[i : j+1]); ok {
				a.Step(ss, sym, AnyTag)
			} else {
				a.Step(ss, AnyTag, NoSymbol)
			}
			i = j + 1

		default:
			a.Step(ss, Symbol(unicode.ToLower(r)), AnyChar)
			i += n
		}
	}
	a.Step(ss, WordEnd, NoSymbol)
}

// GetRule returns the best candidate rule attached to any state in ss,
// skipping rejected ones. Candidates rank by longer pattern, then by higher
// weight, then by lower rule number; any tie left is won by the candidate
// found first.
func (a *Automaton) GetRule(ss *States, rejected []int) (rule int, weight float64, ok bool) {
	best := RuleInfo{}
	rule = -1
	for i := 0; i < ss.n; i++ {
		for _, r := range a.nodes[ss.At(i)].rules {
			if slices.Contains(rejected, r) {
				continue
			}
			info := a.RuleInfo(r)
			if rule >= 0 && !outranks(r, info, rule, best) {
				continue
			}
			rule, best = r, info
		}
	}
	if rule < 0 {
		return -1, 0, false
	}
	return rule, best.Weight, true
}

func outranks(r int, info RuleInfo, other int, otherInfo RuleInfo) bool {
	if info.Length != otherInfo.Length {
		return info.Length > otherInfo.Length
	}
	if info.Weight != otherInfo.Weight {
		return info.Weight > otherInfo.Weight
	}
	return r < other
}
