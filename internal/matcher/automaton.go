// Package matcher implements the pattern automaton that decides which rules
// may apply to a sequence of chunks.
//
// The automaton reads each chunk as '^', then its lemma characters and tags,
// then '$'; blanks between chunks read as a single ' '. A breadth set tracks
// every state reachable so far, and states reached at the end of a rule's
// pattern carry that rule as a candidate.
package matcher

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Transition is a labeled edge to another state.
type Transition struct {
	Sym  Symbol
	Dest State
}

// RuleInfo carries the ranking keys of a rule.
type RuleInfo struct {
	// Length is the pattern length in tokens, counting blanks.
	Length int
	Weight float64
}

type node struct {
	trans []Transition
	rules []int
}

// Automaton is a nondeterministic pattern acceptor. State 0 is initial.
type Automaton struct {
	Alphabet *Alphabet

	nodes []node
	rules []RuleInfo
}

// Initial is the initial state of every automaton.
const Initial State = 0

// New returns an automaton holding only its initial state.
func New(alpha *Alphabet) *Automaton {
	if alpha == nil {
		alpha = NewAlphabet()
	}
	return &Automaton{
		Alphabet: alpha,
		nodes:    make([]node, 1),
	}
}

// NumStates returns the number of states.
func (a *Automaton) NumStates() int { return len(a.nodes) }

// AddState adds a new state.
func (a *Automaton) AddState() State {
	a.nodes = append(a.nodes, node{})
	return State(len(a.nodes) - 1)
}

// AddTransition adds an edge, keeping edges sorted by symbol; edges sharing a
// symbol keep the order they were added in. Adding an existing edge is a no-op.
func (a *Automaton) AddTransition(src State, sym Symbol, dest State) {
	nd := &a.nodes[src]
	i, _ := slices.BinarySearchFunc(nd.trans, sym+1, func(t Transition, sym Symbol) int {
		return cmpSymbol(t.Sym, sym)
	})
	for j := i - 1; j >= 0 && nd.trans[j].Sym == sym; j-- {
		if nd.trans[j].Dest == dest {
			return
		}
	}
	nd.trans = slices.Insert(nd.trans, i, Transition{sym, dest})
}

// Transitions returns the edges leaving a state, sorted by symbol.
func (a *Automaton) Transitions(st State) []Transition { return a.nodes[st].trans }

// Dests returns the destinations of every edge from st labeled sym.
func (a *Automaton) Dests(st State, sym Symbol) []Transition {
	trans := a.nodes[st].trans
	i, found := slices.BinarySearchFunc(trans, sym, func(t Transition, sym Symbol) int {
		return cmpSymbol(t.Sym, sym)
	})
	if !found {
		return nil
	}
	j := i + 1
	for j < len(trans) && trans[j].Sym == sym {
		j++
	}
	return trans[i:j]
}

// Attach registers rule as a candidate at state st.
func (a *Automaton) Attach(st State, rule int) {
	nd := &a.nodes[st]
	if !slices.Contains(nd.rules, rule) {
		nd.rules = append(nd.rules, rule)
	}
}

// Rules returns the candidate rules attached to a state.
func (a *Automaton) Rules(st State) []int { return a.nodes[st].rules }

// SetRuleInfo records the ranking keys for a rule.
func (a *Automaton) SetRuleInfo(rule int, info RuleInfo) {
	if rule >= len(a.rules) {
		a.rules = slices.Grow(a.rules, rule+1-len(a.rules))[:rule+1]
	}
	a.rules[rule] = info
}

// RuleInfo returns the ranking keys of a rule.
func (a *Automaton) RuleInfo(rule int) RuleInfo {
	if rule >= 0 && rule < len(a.rules) {
		return a.rules[rule]
	}
	return RuleInfo{}
}

// NumRules returns one more than the largest rule with ranking keys.
func (a *Automaton) NumRules() int { return len(a.rules) }

// Validate checks that every edge and candidate rule refers to something
// defined.
func (a *Automaton) Validate() error {
	for st, nd := range a.nodes {
		for _, t := range nd.trans {
			if t.Dest < 0 || int(t.Dest) >= len(a.nodes) {
				return fmt.Errorf("state %v: edge %v to undefined state %v", st, a.Alphabet.Name(t.Sym), t.Dest)
			}
			if t.Sym < 0 && a.Alphabet.Name(t.Sym) == "" {
				return fmt.Errorf("state %v: edge on undefined symbol %v", st, t.Sym)
			}
		}
		for _, rule := range nd.rules {
			if rule < 0 || rule >= len(a.rules) {
				return fmt.Errorf("state %v: undefined rule %v", st, rule)
			}
		}
	}
	return nil
}

func cmpSymbol(a, b Symbol) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
