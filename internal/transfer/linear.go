package transfer

import (
	"github.com/jcorbin/gortx/internal/chunk"
	"github.com/jcorbin/gortx/internal/matcher"
	"github.com/jcorbin/gortx/internal/vm"
)

// processLinear translates one unit in two longest-match layers, the second
// run over the output of the first, without keeping alternatives.
func (p *Processor) processLinear() {
	window := 2 * p.rules.LongestPattern
	if window < 1 {
		window = 1
	}
	var t1, t2, t3 []*chunk.Chunk
	for p.more || len(t1) > 0 || len(t2) > 0 {
		for p.more && len(t1) < window {
			t1 = append(t1, p.readToken())
		}
		if p.more {
			t1, t2 = p.linearLayer(t1, t2)
			t2, t3 = p.linearLayer(t2, t3)
		} else {
			for len(t1) > 0 {
				t1, t2 = p.linearLayer(t1, t2)
			}
			for len(t2) > 0 {
				t2, t3 = p.linearLayer(t2, t3)
			}
		}
		t3 = p.linearOutput(t3)
	}
}

// linearLayer applies the longest matching rule at the front of in, or
// shifts one token, moving the result to out.
func (p *Processor) linearLayer(in, out []*chunk.Chunk) ([]*chunk.Chunk, []*chunk.Chunk) {
	longest := p.rules.LongestPattern
	if len(in) == 0 || (p.more && len(in) < longest) {
		return in, out
	}
	a := p.rules.Automaton
	var rejected []int
	for {
		rule, n := -1, 0
		ss := matcher.Start()
		for i := 0; i < len(in) && i < longest; i++ {
			if c := in[i]; c.Blank {
				a.ReadBlank(&ss)
			} else {
				a.ReadChunk(&ss, c.MatchSurface())
				if r, _, ok := a.GetRule(&ss, rejected); ok {
					rule, n = r, i+1
				}
			}
			if ss.Empty() {
				break
			}
		}

		if rule < 0 {
			c := in[0]
			in = in[1:]
			if c.Blank || c.Target != "" || len(c.Children) > 0 {
				return in, append(out, c)
			}
			// an emptied word goes away, along with the split between the
			// blanks around it
			if len(in) > 0 && in[0].Blank && len(out) > 0 && out[len(out)-1].Blank {
				out[len(out)-1].Target += in[0].Target
				in = in[1:]
			}
			return in, out
		}

		ir := &p.rules.InputRules[rule]
		name := p.rules.RuleName(rule)
		fr := vm.Frame{
			Input: append([]*chunk.Chunk(nil), in[:n]...),
			Vars:  p.linearVars,
		}
		p.tracer.RuleAttempt(0, name, fr.Input)
		if p.machine.Run(name, ir.Code, &fr) {
			p.tracer.RuleCommit(0, name, fr.Output)
			return in[n:], append(out, fr.Output...)
		}
		p.tracer.RuleReject(0, name)
		rejected = append(rejected, rule)
	}
}

// linearOutput writes out the final layer, expanding chunks through their
// output rules.
func (p *Processor) linearOutput(queue []*chunk.Chunk) []*chunk.Chunk {
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		switch {
		case c.Rule != chunk.NoRule:
			for _, oc := range p.runOutputRule(c, p.linearVars) {
				p.writeChunk(oc)
			}
		case len(c.Children) > 0:
			tags := c.Tags(nil)
			for _, kid := range c.Children {
				kid.UpdateTags(tags)
			}
			queue = append(append([]*chunk.Chunk(nil), c.Children...), queue...)
		default:
			p.writeChunk(c)
		}
	}
	return queue
}
