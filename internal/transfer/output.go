package transfer

import (
	"fmt"

	"github.com/jcorbin/gortx/internal/chunk"
	"github.com/jcorbin/gortx/internal/vm"
)

// outputAll writes out a committed chunk sequence, expanding chunks through
// their output rules. Words after a joiner are conjoined into the word
// before it.
func (p *Processor) outputAll(queue []*chunk.Chunk, vars *vm.Vars) {
	// stack holds the queue in reverse, so that expansions push in front
	stack := make([]*chunk.Chunk, 0, 2*len(queue))
	for i := len(queue) - 1; i >= 0; i-- {
		stack = append(stack, queue[i])
	}
	topLevel := len(stack)

	var tojoin *chunk.Chunk
	conjoining := false
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.trees && len(stack) < topLevel {
			topLevel = len(stack)
			p.writeTree(c)
			if !p.alsoText {
				continue
			}
		}

		if c.Rule != chunk.NoRule {
			stack = p.pushReversed(stack, p.runOutputRule(c, vars))
			continue
		}

		switch {
		case len(c.Children) > 0:
			tags := c.Tags(nil)
			for _, kid := range c.Children {
				kid.UpdateTags(tags)
			}
			stack = p.pushReversed(stack, c.Children)

		case conjoining && !c.Blank:
			tojoin.Conjoin(c)

		case c.Joiner:
			if tojoin != nil {
				conjoining = true
			}

		default:
			conjoining = false
			if tojoin != nil {
				p.writeChunk(tojoin)
				tojoin = nil
			}
			if c.Blank {
				p.writeChunk(c)
			} else {
				tojoin = c
			}
		}
	}
	if tojoin != nil {
		p.writeChunk(tojoin)
	}
}

func (p *Processor) pushReversed(stack, cs []*chunk.Chunk) []*chunk.Chunk {
	for i := len(cs) - 1; i >= 0; i-- {
		stack = append(stack, cs[i])
	}
	return stack
}

// runOutputRule runs the output rule of c over its children, with their
// tags resolved against c.
func (p *Processor) runOutputRule(c *chunk.Chunk, vars *vm.Vars) []*chunk.Chunk {
	if c.Rule < 0 || c.Rule >= len(p.rules.OutputRules) {
		p.halt(fmt.Errorf("chunk %v refers to undefined output rule %v", c.FlatString(), c.Rule))
	}
	rule := &p.rules.OutputRules[c.Rule]
	name := p.rules.OutputRuleName(c.Rule)
	p.tracer.OutputRule(name, c)

	tags := c.Tags(nil)
	fr := vm.Frame{
		Input:  append([]*chunk.Chunk(nil), c.Children...),
		Parent: c,
		Vars:   vars,
	}
	for _, kid := range fr.Input {
		kid.UpdateTags(tags)
	}
	p.machine.Run(name, rule.Code, &fr)
	return fr.Output
}

func (p *Processor) writeTree(c *chunk.Chunk) {
	if p.alsoText {
		p.writeString("\n")
	}
	if err := p.treeWriter.WriteTree(p.out, c); err != nil {
		p.halt(err)
	}
}
