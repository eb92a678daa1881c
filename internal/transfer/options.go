package transfer

import "github.com/jcorbin/gortx/internal/chunk"

// Option configures a Processor.
type Option interface{ apply(p *Processor) }

var defaults = []Option{
	withFilter(true),
	withTracer(nil),
}

func (p *Processor) apply(opts ...Option) {
	for _, opt := range defaults {
		if opt != nil {
			opt.apply(p)
		}
	}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(p)
		}
	}
}

type withLogfn func(mess string, args ...interface{})
type withNullFlush bool
type withLinear bool
type withCoref bool
type withFilter bool
type withArenaLimit int

type tracerOption struct{ Tracer }

type treesOption struct {
	mode     chunk.TreeMode
	alsoText bool
}

func withTracer(tr Tracer) tracerOption { return tracerOption{tr} }

func (logfn withLogfn) apply(p *Processor)  { p.logfn = logfn }
func (nf withNullFlush) apply(p *Processor) { p.nullFlush = bool(nf) }
func (lin withLinear) apply(p *Processor)   { p.linear = bool(lin) }
func (cr withCoref) apply(p *Processor)     { p.coref = bool(cr) }
func (f withFilter) apply(p *Processor)     { p.filter = bool(f) }

func (lim withArenaLimit) apply(p *Processor) {
	p.chunks.Limit = int(lim)
	p.nodes.Limit = int(lim)
}

func (to tracerOption) apply(p *Processor) {
	if to.Tracer == nil {
		p.tracer = nopTracer{}
	} else {
		p.tracer = to.Tracer
	}
}

func (to treesOption) apply(p *Processor) {
	p.trees = true
	p.alsoText = to.alsoText
	p.treeWriter.Mode = to.mode
}

// WithLogf directs engine log messages, such as unit boundaries and halt
// errors, to logfn.
func WithLogf(logfn func(mess string, args ...interface{})) Option { return withLogfn(logfn) }

// WithNullFlush treats each NUL in the input as the end of a translation
// unit; output is flushed and followed by a NUL after each such unit.
func WithNullFlush(enabled bool) Option { return withNullFlush(enabled) }

// WithLinear selects two-layer longest-match processing, compatible with a
// chunker and interchunk pipeline.
func WithLinear(enabled bool) Option { return withLinear(enabled) }

// WithCoref keeps the coreference field of input words.
func WithCoref(enabled bool) Option { return withCoref(enabled) }

// WithFilter enables discarding lower weighted branches that cover the same
// span before output is forced; it is on by default.
func WithFilter(enabled bool) Option { return withFilter(enabled) }

// WithTracer sets the receiver of trace events.
func WithTracer(tr Tracer) Option { return withTracer(tr) }

// WithTrees prints each committed top level chunk as a tree, instead of its
// text or, with alsoText, before it.
func WithTrees(mode chunk.TreeMode, alsoText bool) Option { return treesOption{mode, alsoText} }

// WithArenaLimit bounds the number of live chunks and parse nodes per
// translation unit; zero means unbounded.
func WithArenaLimit(limit int) Option { return withArenaLimit(limit) }
