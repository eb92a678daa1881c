// Package transfer implements the structural transfer engine: it reads a
// stream of lexical units, reduces it with the input rules of a rule set
// while keeping every viable parse alive, and writes out the chosen parse
// through the output rules.
//
// A Processor is single threaded and owns its arenas. Everything allocated
// while translating a unit is released at once when the unit is written, so
// memory stays bounded by the largest unit rather than the stream. The rule
// set is only read, and may be shared by any number of processors.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"

	"github.com/jcorbin/gortx/internal/arena"
	"github.com/jcorbin/gortx/internal/chunk"
	"github.com/jcorbin/gortx/internal/flushio"
	"github.com/jcorbin/gortx/internal/panicerr"
	"github.com/jcorbin/gortx/internal/ruleset"
	"github.com/jcorbin/gortx/internal/vm"
)

// ErrNoBranches is returned when no parse branch survives to be written.
var ErrNoBranches = errors.New("no parse branch left to output")

// Processor runs a rule set over a token stream.
type Processor struct {
	logging

	rules  *ruleset.RuleSet
	tracer Tracer

	nullFlush bool
	linear    bool
	coref     bool
	filter    bool

	trees      bool
	alsoText   bool
	treeWriter chunk.TreeWriter

	chunks  chunk.Pool
	nodes   arena.Pool[parseNode]
	machine vm.Machine

	ctx  context.Context
	toks <-chan token
	out  flushio.WriteFlusher

	// globals are the string variables that every new branch starts with;
	// they are replaced by those of each committed branch.
	globals    map[string]string
	linearVars *vm.Vars

	more         bool
	eof          bool
	buffer       []*chunk.Chunk
	branches     []*parseNode
	continuation [][]*chunk.Chunk
	nextID       int
	units        int
}

// New returns a processor for rs.
func New(rs *ruleset.RuleSet, opts ...Option) *Processor {
	p := &Processor{rules: rs}
	p.apply(opts...)
	p.machine.Rules = rs
	p.machine.Pool = &p.chunks
	p.machine.Linear = p.linear
	if _, isNop := p.tracer.(nopTracer); !isNop {
		p.machine.Trace = p.tracer.MachineStep
	}
	return p
}

// Process translates r to w until r ends or ctx is done. Rule faults and
// arena limit errors are returned as recovered panics, whose stack may be
// printed with %+v.
func (p *Processor) Process(ctx context.Context, r io.Reader, w io.Writer) error {
	eg, ctx := errgroup.WithContext(ctx)
	toks := make(chan token, 2*bufferSize)
	lex := newLexer(r, p.nullFlush, p.coref)
	eg.Go(func() error { return lex.run(ctx, toks) })
	eg.Go(func() error {
		err := panicerr.Recover("transfer", func() error {
			return p.run(ctx, toks, w)
		})
		var he haltError
		if errors.As(err, &he) {
			err = he.error
		}
		return err
	})
	return eg.Wait()
}

func (p *Processor) run(ctx context.Context, toks <-chan token, w io.Writer) error {
	p.ctx, p.toks = ctx, toks
	p.out = flushio.NewWriteFlusher(w)
	defer func() {
		p.ctx, p.toks, p.out = nil, nil, nil
		p.resetUnit()
	}()

	p.globals = maps.Clone(p.rules.Vars)
	if p.globals == nil {
		p.globals = make(map[string]string)
	}
	p.linearVars = vm.NewVars(p.globals, p.rules.ChunkVars)
	p.eof = false
	p.units = 0

	for !p.eof {
		p.resetUnit()
		p.more = true
		if p.linear {
			p.processLinear()
		} else {
			p.processGLR()
		}
		p.units++
		p.logf("#", "unit %v done", p.units)
		if p.nullFlush && !p.eof {
			p.writeString("\x00")
		}
		if err := p.out.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// resetUnit drops all per unit state, releasing both arenas.
func (p *Processor) resetUnit() {
	p.buffer = p.buffer[:0]
	p.branches = p.branches[:0]
	p.continuation = p.continuation[:0]
	p.chunks.Reset()
	p.nodes.Reset()
	p.nextID = 0
}

// readToken returns the next input chunk, noting the end of the unit.
func (p *Processor) readToken() *chunk.Chunk {
	var tok token
	select {
	case <-p.ctx.Done():
		p.halt(p.ctx.Err())
	case t, ok := <-p.toks:
		if ok {
			tok = t
		} else {
			tok = token{blank: true, end: true, eof: true}
		}
	}
	if tok.end {
		p.more = false
		p.eof = tok.eof
	}
	c := p.tokenChunk(tok)
	p.tracer.TokenRead(c)
	return c
}

func (p *Processor) tokenChunk(tok token) *chunk.Chunk {
	if tok.blank {
		return p.chunks.NewBlank(tok.text)
	}
	c := p.chunks.NewWord(tok.source, tok.target, tok.coref)
	c.Wblank = tok.wblank
	if chunk.IsUnknown(c.Source, c.Target) {
		c = p.chunks.WrapUnknown(c)
	}
	return c
}

func (p *Processor) writeChunk(c *chunk.Chunk) {
	if err := c.Output(p.out); err != nil {
		p.halt(err)
	}
}

func (p *Processor) writeString(s string) {
	if _, err := io.WriteString(p.out, s); err != nil {
		p.halt(err)
	}
}

func (p *Processor) halt(err error) {
	// ignore any panics while trying to flush output
	func() {
		defer func() { recover() }()
		if p.out != nil {
			if ferr := p.out.Flush(); err == nil {
				err = ferr
			}
		}
	}()

	// ignore any panics while logging
	func() {
		defer func() { recover() }()
		p.logf("#", "halt error: %v", err)
	}()

	panic(haltError{err})
}

type haltError struct{ error }

func (err haltError) Error() string {
	if err.error != nil {
		return fmt.Sprintf("halted: %v", err.error)
	}
	return "halted"
}
func (err haltError) Unwrap() error { return err.error }
