package transfer

import (
	"github.com/jcorbin/gortx/internal/chunk"
	"github.com/jcorbin/gortx/internal/matcher"
	"github.com/jcorbin/gortx/internal/vm"
)

// bufferSize is the number of tokens read ahead of the parse.
const bufferSize = 5

// maxBranches is the number of branches kept after unforced filtering, when
// more survive; they are shared out evenly between spans.
const maxBranches = 100

// parseNode is the head of a parse branch: the last chunk of its history and
// the matcher states reached after it. Branches share their history nodes.
type parseNode struct {
	id     int
	chunk  *chunk.Chunk
	prev   *parseNode
	length int
	weight float64
	states matcher.States
	vars   *vm.Vars

	// firstWord and lastWord number the input words spanned by the last
	// reduction.
	firstWord int
	lastWord  int
}

// chunks returns the last n chunks of the branch history, oldest first.
func (n *parseNode) chunks(count int) []*chunk.Chunk {
	if count > n.length {
		count = n.length
	}
	out := make([]*chunk.Chunk, count)
	for i, cur := count-1, n; i >= 0; i, cur = i-1, cur.prev {
		out[i] = cur.chunk
	}
	return out
}

// pop returns the node left after removing the last count nodes.
func (n *parseNode) pop(count int) *parseNode {
	cur := n
	for i := 0; i < count && cur != nil; i++ {
		cur = cur.prev
	}
	return cur
}

// newNode extends prev with c, or starts a new branch history when prev is
// nil.
func (p *Processor) newNode(id int, prev *parseNode, c *chunk.Chunk, weight float64) *parseNode {
	a := p.rules.Automaton
	n := p.nodes.Next()
	n.id = id
	n.chunk = c
	n.prev = prev
	n.weight = weight
	n.length = 1
	var src *matcher.States
	if prev != nil {
		n.length = prev.length + 1
		n.firstWord, n.lastWord = prev.firstWord, prev.lastWord
		src = &prev.states
	}
	if c.Blank {
		n.states = a.MatchBlank(src)
	} else {
		n.states = a.MatchChunk(src, c.MatchSurface())
	}
	if n.states.Overflowed() {
		p.tracer.BreadthOverflow(id)
		n.states.Reset()
	}
	return n
}

func (p *Processor) newID() int {
	p.nextID++
	return p.nextID
}

// processGLR translates one unit, keeping every viable parse alive until
// the input forces a choice.
func (p *Processor) processGLR() {
	for p.more && len(p.buffer) < bufferSize {
		p.buffer = append(p.buffer, p.readToken())
	}
	for len(p.buffer) > 0 {
		next := p.buffer[0]
		p.buffer = p.buffer[1:]
		if len(p.branches) == 0 {
			n := p.newNode(p.newID(), nil, next, 0)
			n.vars = vm.NewVars(p.globals, p.rules.ChunkVars)
			p.branches = p.reduce(p.branches, n)
		} else {
			var res []*parseNode
			for _, b := range p.branches {
				n := p.newNode(b.id, b, next, b.weight)
				n.vars = b.vars.Clone()
				if !next.Blank {
					n.lastWord = b.lastWord + 1
					n.firstWord = n.lastWord
				}
				res = p.reduce(res, n)
			}
			p.branches = res
		}
		if p.more {
			p.buffer = append(p.buffer, p.readToken())
		}
		if p.filterBranches() {
			p.commit()
		}
		if !p.more && len(p.buffer) == 1 {
			// the final token of a unit is always a blank
			p.writeChunk(p.buffer[0])
			p.buffer = p.buffer[:0]
		}
	}
}

// reduce applies the best rule to node, repeatedly, appending every
// resulting branch to result.
func (p *Processor) reduce(result []*parseNode, node *parseNode) []*parseNode {
	a := p.rules.Automaton
	var rejected []int
	for {
		rule, weight, ok := a.GetRule(&node.states, rejected)
		if !ok {
			return append(result, node)
		}
		ir := &p.rules.InputRules[rule]
		name := p.rules.RuleName(rule)
		fr := vm.Frame{
			Input: node.chunks(ir.Length),
			Vars:  node.vars,
		}
		p.tracer.RuleAttempt(node.id, name, fr.Input)
		if !p.machine.Run(name, ir.Code, &fr) {
			p.tracer.RuleReject(node.id, name)
			rejected = append(rejected, rule)
			continue
		}

		out := fr.Output
		if len(out) == 0 {
			out = append(out, p.chunks.NewBlank(""))
		}
		p.tracer.RuleCommit(node.id, name, out)

		back := node.pop(ir.Length)
		first, last := 0, node.lastWord
		if back != nil {
			first = back.lastWord + 1
		}
		cur := p.newNode(node.id, back, out[0], node.weight+weight)
		cur.vars = node.vars.Clone()
		cur.firstWord, cur.lastWord = first, last

		if extra := out[1:]; len(extra) == 0 {
			result = p.reduce(result, cur)
		} else {
			top := len(p.continuation)
			p.continuation = append(p.continuation, extra)
			res := p.reduce(nil, cur)
			for i, c := range extra {
				p.continuation[top] = extra[i+1:]
				var res2 []*parseNode
				for _, r := range res {
					n := p.newNode(r.id, r, c, r.weight)
					n.vars = r.vars.Clone()
					n.firstWord, n.lastWord = first, last
					res2 = p.reduce(res2, n)
				}
				res = res2
			}
			p.continuation = p.continuation[:top]
			result = append(result, res...)
		}

		if p.lookahead(node) {
			from := node.id
			node.id = p.newID()
			p.tracer.BranchFork(node.id, from)
			result = append(result, node)
		}
		return result
	}
}

// nextWord returns the next non-blank chunk still to be parsed: pending rule
// outputs first, innermost first, then the input buffer.
func (p *Processor) nextWord() *chunk.Chunk {
	for i := len(p.continuation) - 1; i >= 0; i-- {
		for _, c := range p.continuation[i] {
			if !c.Blank {
				return c
			}
		}
	}
	for _, c := range p.buffer {
		if !c.Blank {
			return c
		}
	}
	return nil
}

// lookahead returns true if some pattern open at node could read the next
// word.
func (p *Processor) lookahead(node *parseNode) bool {
	next := p.nextWord()
	return next != nil && p.rules.Automaton.ShouldShift(&node.states, next.MatchSurface())
}

// canContinue returns true if node may still take part in a longer match.
func (p *Processor) canContinue(node *parseNode) bool {
	if node.states.Empty() {
		return false
	}
	return node.chunk.Blank || p.rules.Automaton.CanShift(&node.states) || p.lookahead(node)
}

// filterBranches discards dominated branches, returning true if output is
// forced; a forced filter leaves only one branch.
func (p *Processor) filterBranches() bool {
	forced := !p.more && len(p.buffer) <= 1
	N := len(p.branches)
	dropped := make([]string, N)
	count := N

	if !forced {
		for i, b := range p.branches {
			if !p.canContinue(b) {
				dropped[i] = "no possible continuation"
				count--
			}
		}
		if count == 0 {
			forced = true
			for i := range dropped {
				dropped[i] = ""
			}
			count = N
		}
	}

	var (
		best  = -1
		spans = make(map[int][]int)
		order []int
	)
	for i, b := range p.branches {
		if dropped[i] != "" || (!p.filter && !forced) {
			continue
		}
		if best < 0 {
			best = i
			spans[b.firstWord] = append(spans[b.firstWord], i)
			order = append(order, b.firstWord)
			continue
		}
		if forced {
			bestNode := p.branches[best]
			if b.length < bestNode.length || (b.length == bestNode.length && b.weight >= bestNode.weight) {
				dropped[best] = "beaten by a shorter or heavier branch"
				best = i
			} else {
				dropped[i] = "beaten by a shorter or heavier branch"
			}
			count--
			continue
		}
		others, ok := spans[b.firstWord]
		switch {
		case !ok:
			spans[b.firstWord] = append(spans[b.firstWord], i)
			order = append(order, b.firstWord)
		case p.branches[others[0]].weight > b.weight:
			dropped[i] = "outweighed over the same span"
			count--
		case p.branches[others[0]].weight < b.weight:
			for _, j := range others {
				dropped[j] = "outweighed over the same span"
				count--
			}
			spans[b.firstWord] = append(others[:0], i)
		default:
			spans[b.firstWord] = append(others, i)
		}
	}

	if count > maxBranches && len(spans) > 0 {
		perSpan := maxBranches / len(spans)
		if perSpan < 1 {
			perSpan = 1
		}
		for _, first := range order {
			if span := spans[first]; len(span) > perSpan {
				for _, j := range span[perSpan:] {
					dropped[j] = "too many branches"
					count--
				}
			}
		}
	}
	if count == N {
		return forced
	}

	kept := p.branches[:0]
	for i, b := range p.branches {
		if dropped[i] == "" {
			kept = append(kept, b)
		} else {
			p.tracer.BranchDiscard(b.id, dropped[i])
		}
	}
	for i := len(kept); i < N; i++ {
		p.branches[i] = nil
	}
	p.branches = kept
	return forced
}

// commit writes out the sole surviving branch and restarts the unit with
// the still unparsed tokens, in fresh arenas.
func (p *Processor) commit() {
	if len(p.branches) == 0 {
		p.halt(ErrNoBranches)
	}
	b := p.branches[0]
	queue := b.chunks(b.length)
	p.tracer.UnitCommit(b.id, queue)
	p.outputAll(queue, b.vars)
	p.globals = b.vars.Strings

	type pending struct {
		source, target, coref, wblank string
		blank, unknown                bool
	}
	rest := make([]pending, len(p.buffer))
	for i, c := range p.buffer {
		if unknown := !c.Blank && len(c.Children) > 0; unknown {
			c = c.Children[0]
			rest[i].unknown = true
		}
		rest[i].source, rest[i].target, rest[i].coref = c.Source, c.Target, c.Coref
		rest[i].wblank, rest[i].blank = c.Wblank, c.Blank
	}

	p.resetUnit()
	for _, pc := range rest {
		var c *chunk.Chunk
		if pc.blank {
			c = p.chunks.NewBlank(pc.target)
		} else {
			c = p.chunks.NewWord(pc.source, pc.target, pc.coref)
			c.Wblank = pc.wblank
			if pc.unknown {
				c = p.chunks.WrapUnknown(c)
			}
		}
		p.buffer = append(p.buffer, c)
	}
}
