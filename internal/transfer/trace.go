package transfer

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jcorbin/gortx/internal/bytecode"
	"github.com/jcorbin/gortx/internal/chunk"
	"github.com/jcorbin/gortx/internal/runeio"
	"github.com/jcorbin/gortx/internal/vm"
)

// Tracer observes the engine at its decision points. Branch numbers are only
// unique within one translation unit.
type Tracer interface {
	TokenRead(tok *chunk.Chunk)
	RuleAttempt(branch int, rule string, input []*chunk.Chunk)
	RuleCommit(branch int, rule string, output []*chunk.Chunk)
	RuleReject(branch int, rule string)
	BranchFork(branch, from int)
	BranchDiscard(branch int, reason string)
	BreadthOverflow(branch int)
	UnitCommit(branch int, output []*chunk.Chunk)
	OutputRule(rule string, parent *chunk.Chunk)
	MachineStep(rule string, in bytecode.Instr, stack []vm.Value)
}

type nopTracer struct{}

func (nopTracer) TokenRead(*chunk.Chunk)                         {}
func (nopTracer) RuleAttempt(int, string, []*chunk.Chunk)        {}
func (nopTracer) RuleCommit(int, string, []*chunk.Chunk)         {}
func (nopTracer) RuleReject(int, string)                         {}
func (nopTracer) BranchFork(int, int)                            {}
func (nopTracer) BranchDiscard(int, string)                      {}
func (nopTracer) BreadthOverflow(int)                            {}
func (nopTracer) UnitCommit(int, []*chunk.Chunk)                 {}
func (nopTracer) OutputRule(string, *chunk.Chunk)                {}
func (nopTracer) MachineStep(string, bytecode.Instr, []vm.Value) {}

type logging struct {
	logfn func(mess string, args ...interface{})

	markWidth int
}

func (log *logging) logf(mark, mess string, args ...interface{}) {
	if log.logfn == nil {
		return
	}
	if n := log.markWidth - len(mark); n > 0 {
		for _, r := range mark {
			mark = strings.Repeat(string(r), n) + mark
			break
		}
	} else if n < 0 {
		log.markWidth = len(mark)
	}
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	log.logfn("%v %v", mark, mess)
}

// TraceSet selects groups of trace events.
type TraceSet uint8

// Trace event groups.
const (
	TraceTokens   TraceSet = 1 << iota // tokens read
	TraceRules                         // rule attempts, commits, and rejects
	TraceBranches                      // forks, discards, and overflows
	TraceOutput                        // unit commits and output rules
	TraceSteps                         // machine instructions

	TraceAll = TraceTokens | TraceRules | TraceBranches | TraceOutput | TraceSteps
)

// LogTracer renders trace events as marked log lines.
type LogTracer struct {
	logging

	Events TraceSet
}

// NewLogTracer returns a tracer logging the given events through logfn.
func NewLogTracer(logfn func(mess string, args ...interface{}), events TraceSet) *LogTracer {
	return &LogTracer{logging: logging{logfn: logfn}, Events: events}
}

func (lt *LogTracer) TokenRead(tok *chunk.Chunk) {
	if lt.Events&TraceTokens != 0 {
		lt.logf(">", "read %v", flatChunk(tok))
	}
}

func (lt *LogTracer) RuleAttempt(branch int, rule string, input []*chunk.Chunk) {
	if lt.Events&TraceRules != 0 {
		lt.logf("?", "branch %v try %v on %v", branch, rule, flatChunks(input))
	}
}

func (lt *LogTracer) RuleCommit(branch int, rule string, output []*chunk.Chunk) {
	if lt.Events&TraceRules != 0 {
		lt.logf("+", "branch %v %v => %v", branch, rule, flatChunks(output))
	}
}

func (lt *LogTracer) RuleReject(branch int, rule string) {
	if lt.Events&TraceRules != 0 {
		lt.logf("-", "branch %v %v rejected", branch, rule)
	}
}

func (lt *LogTracer) BranchFork(branch, from int) {
	if lt.Events&TraceBranches != 0 {
		lt.logf("Y", "branch %v splits from %v", branch, from)
	}
}

func (lt *LogTracer) BranchDiscard(branch int, reason string) {
	if lt.Events&TraceBranches != 0 {
		lt.logf("x", "branch %v discarded: %v", branch, reason)
	}
}

func (lt *LogTracer) BreadthOverflow(branch int) {
	if lt.Events&TraceBranches != 0 {
		lt.logf("!", "branch %v breadth overflow", branch)
	}
}

func (lt *LogTracer) UnitCommit(branch int, output []*chunk.Chunk) {
	if lt.Events&TraceOutput != 0 {
		lt.logf("=", "output branch %v: %v", branch, flatChunks(output))
	}
}

func (lt *LogTracer) OutputRule(rule string, parent *chunk.Chunk) {
	if lt.Events&TraceOutput != 0 {
		lt.logf("@", "%v on %v", rule, flatChunk(parent))
	}
}

func (lt *LogTracer) MachineStep(rule string, in bytecode.Instr, stack []vm.Value) {
	if lt.Events&TraceSteps != 0 {
		lt.logf(".", "%v @%v %v stack:%v", rule, in.PC, in, stack)
	}
}

// ZerologTracer writes trace events as structured debug records.
type ZerologTracer struct {
	Log zerolog.Logger

	// Steps enables a record per machine instruction.
	Steps bool
}

func (zt ZerologTracer) TokenRead(tok *chunk.Chunk) {
	zt.Log.Debug().Str("event", "read").Str("token", flatChunk(tok)).Bool("blank", tok.Blank).Send()
}

func (zt ZerologTracer) RuleAttempt(branch int, rule string, input []*chunk.Chunk) {
	zt.Log.Debug().Str("event", "attempt").Int("branch", branch).Str("rule", rule).
		Strs("input", flatChunkList(input)).Send()
}

func (zt ZerologTracer) RuleCommit(branch int, rule string, output []*chunk.Chunk) {
	zt.Log.Debug().Str("event", "commit").Int("branch", branch).Str("rule", rule).
		Strs("output", flatChunkList(output)).Send()
}

func (zt ZerologTracer) RuleReject(branch int, rule string) {
	zt.Log.Debug().Str("event", "reject").Int("branch", branch).Str("rule", rule).Send()
}

func (zt ZerologTracer) BranchFork(branch, from int) {
	zt.Log.Debug().Str("event", "fork").Int("branch", branch).Int("from", from).Send()
}

func (zt ZerologTracer) BranchDiscard(branch int, reason string) {
	zt.Log.Debug().Str("event", "discard").Int("branch", branch).Str("reason", reason).Send()
}

func (zt ZerologTracer) BreadthOverflow(branch int) {
	zt.Log.Warn().Str("event", "overflow").Int("branch", branch).Send()
}

func (zt ZerologTracer) UnitCommit(branch int, output []*chunk.Chunk) {
	zt.Log.Debug().Str("event", "unit").Int("branch", branch).Strs("output", flatChunkList(output)).Send()
}

func (zt ZerologTracer) OutputRule(rule string, parent *chunk.Chunk) {
	zt.Log.Debug().Str("event", "output").Str("rule", rule).Str("parent", flatChunk(parent)).Send()
}

func (zt ZerologTracer) MachineStep(rule string, in bytecode.Instr, stack []vm.Value) {
	if !zt.Steps {
		return
	}
	vals := make([]string, len(stack))
	for i, v := range stack {
		vals[i] = v.String()
	}
	zt.Log.Trace().Str("event", "step").Str("rule", rule).Int("pc", in.PC).
		Stringer("instr", in).Strs("stack", vals).Send()
}

// flatChunk renders c in flat tree form, with control characters in carets.
func flatChunk(c *chunk.Chunk) string {
	if c == nil {
		return "<null>"
	}
	return runeio.Quote(c.FlatString())
}

func flatChunkList(cs []*chunk.Chunk) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = flatChunk(c)
	}
	return out
}

func flatChunks(cs []*chunk.Chunk) string {
	return "[" + strings.Join(flatChunkList(cs), " ") + "]"
}
