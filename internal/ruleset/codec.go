package ruleset

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/jcorbin/gortx/internal/matcher"
)

// Magic starts every rule set artifact, followed by a single version byte.
const Magic = "GORTX"

// Version is the artifact format version written by WriteTo.
const Version = 1

// ErrBadMagic is returned when reading something that is not an artifact.
var ErrBadMagic = errors.New("not a rule set artifact")

// Load reads a rule set from a file, which may be gzip compressed.
func Load(path string) (*RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rs, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %w", path, err)
	}
	return rs, nil
}

// Read reads a rule set artifact, detecting gzip compression.
func Read(r io.Reader) (*RuleSet, error) {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(2); len(head) == 2 && head[0] == 0x1f && head[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		br = bufio.NewReader(zr)
	}

	dec := decoder{r: br}
	rs := dec.ruleSet()
	if dec.err != nil {
		return nil, dec.err
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

// WriteTo writes the rule set as an uncompressed artifact.
func (rs *RuleSet) WriteTo(w io.Writer) (int64, error) {
	enc := encoder{w: bufio.NewWriter(w)}
	enc.ruleSet(rs)
	if enc.err == nil {
		enc.err = enc.w.Flush()
	}
	return enc.n, enc.err
}

type encoder struct {
	w   *bufio.Writer
	n   int64
	err error
	buf [binary.MaxVarintLen64]byte
}

func (enc *encoder) write(p []byte) {
	if enc.err == nil {
		n, err := enc.w.Write(p)
		enc.n += int64(n)
		enc.err = err
	}
}

func (enc *encoder) uint(n uint64) { enc.write(binary.AppendUvarint(enc.buf[:0], n)) }
func (enc *encoder) int(n int64)   { enc.write(binary.AppendVarint(enc.buf[:0], n)) }
func (enc *encoder) count(n int)   { enc.uint(uint64(n)) }

func (enc *encoder) float(f float64) { enc.uint(math.Float64bits(f)) }

func (enc *encoder) bytes(p []byte) {
	enc.count(len(p))
	enc.write(p)
}

func (enc *encoder) string(s string) {
	enc.count(len(s))
	if enc.err == nil {
		n, err := enc.w.WriteString(s)
		enc.n += int64(n)
		enc.err = err
	}
}

func (enc *encoder) ruleSet(rs *RuleSet) {
	enc.write([]byte(Magic))
	enc.write([]byte{Version})

	enc.count(rs.LongestPattern)
	enc.count(rs.ChunkVars)

	enc.count(len(rs.InputRules))
	for _, rule := range rs.InputRules {
		enc.string(rule.Name)
		enc.count(rule.Length)
		enc.float(rule.Weight)
		enc.bytes(rule.Code)
	}
	enc.count(len(rs.OutputRules))
	for _, rule := range rs.OutputRules {
		enc.string(rule.Name)
		enc.bytes(rule.Code)
	}

	enc.automaton(rs.Automaton)

	names := maps.Keys(rs.Attrs)
	slices.Sort(names)
	enc.count(len(names))
	for _, name := range names {
		at := rs.Attrs[name]
		enc.string(name)
		enc.string(at.Source)
		enc.string(at.Order)
		enc.string(at.Default)
	}

	names = maps.Keys(rs.Vars)
	slices.Sort(names)
	enc.count(len(names))
	for _, name := range names {
		enc.string(name)
		enc.string(rs.Vars[name])
	}

	names = maps.Keys(rs.Lists)
	slices.Sort(names)
	enc.count(len(names))
	for _, name := range names {
		vals := rs.Lists[name].Values()
		enc.string(name)
		enc.count(len(vals))
		for _, val := range vals {
			enc.string(val)
		}
	}
}

func (enc *encoder) automaton(a *matcher.Automaton) {
	names := a.Alphabet.Names()
	enc.count(len(names))
	for _, name := range names {
		enc.string(name)
	}

	enc.count(a.NumStates())
	for st := matcher.State(0); int(st) < a.NumStates(); st++ {
		trans := a.Transitions(st)
		enc.count(len(trans))
		for _, t := range trans {
			enc.int(int64(t.Sym))
			enc.count(int(t.Dest))
		}
		rules := a.Rules(st)
		enc.count(len(rules))
		for _, rule := range rules {
			enc.count(rule)
		}
	}
}

// limits on counts read from an artifact; tables are grown as their
// entries are read, so memory stays proportional to the input consumed
const (
	maxCount  = 1 << 24
	maxString = 1 << 24
)

type decoder struct {
	r   *bufio.Reader
	err error
}

func (dec *decoder) fail(err error) {
	if dec.err == nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		dec.err = err
	}
}

func (dec *decoder) uint() uint64 {
	if dec.err != nil {
		return 0
	}
	n, err := binary.ReadUvarint(dec.r)
	if err != nil {
		dec.fail(err)
	}
	return n
}

func (dec *decoder) int() int64 {
	if dec.err != nil {
		return 0
	}
	n, err := binary.ReadVarint(dec.r)
	if err != nil {
		dec.fail(err)
	}
	return n
}

func (dec *decoder) count() int {
	n := dec.uint()
	if n > maxCount {
		dec.fail(fmt.Errorf("count %v too large", n))
		return 0
	}
	return int(n)
}

func (dec *decoder) float() float64 { return math.Float64frombits(dec.uint()) }

func (dec *decoder) bytes() []byte {
	n := dec.uint()
	if n > maxString {
		dec.fail(fmt.Errorf("string length %v too large", n))
	}
	if dec.err != nil {
		return nil
	}
	p, err := io.ReadAll(io.LimitReader(dec.r, int64(n)))
	if err == nil && uint64(len(p)) < n {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		dec.fail(err)
		return nil
	}
	return p
}

func (dec *decoder) string() string { return string(dec.bytes()) }

func (dec *decoder) ruleSet() *RuleSet {
	head := make([]byte, len(Magic)+1)
	if _, err := io.ReadFull(dec.r, head); err != nil {
		dec.fail(err)
		return nil
	}
	if !bytes.Equal(head[:len(Magic)], []byte(Magic)) {
		dec.fail(ErrBadMagic)
		return nil
	}
	if v := head[len(Magic)]; v != Version {
		dec.fail(fmt.Errorf("unsupported artifact version %v", v))
		return nil
	}

	rs := &RuleSet{
		Attrs: make(map[string]*Attr),
		Lists: make(map[string]*List),
		Vars:  make(map[string]string),
	}
	rs.LongestPattern = dec.count()
	rs.ChunkVars = dec.count()

	for i, n := 0, dec.count(); i < n && dec.err == nil; i++ {
		var rule InputRule
		rule.Name = dec.string()
		rule.Length = dec.count()
		rule.Weight = dec.float()
		rule.Code = dec.bytes()
		rs.InputRules = append(rs.InputRules, rule)
	}
	for i, n := 0, dec.count(); i < n && dec.err == nil; i++ {
		var rule OutputRule
		rule.Name = dec.string()
		rule.Code = dec.bytes()
		rs.OutputRules = append(rs.OutputRules, rule)
	}
	if dec.err != nil {
		return nil
	}

	rs.Automaton = dec.automaton()
	if dec.err != nil {
		return nil
	}
	for i, rule := range rs.InputRules {
		rs.Automaton.SetRuleInfo(i, matcher.RuleInfo{Length: rule.Length, Weight: rule.Weight})
	}

	for i, n := 0, dec.count(); i < n && dec.err == nil; i++ {
		name, source, order, fallback := dec.string(), dec.string(), dec.string(), dec.string()
		if dec.err != nil {
			break
		}
		at, err := NewAttr(name, source, order, fallback)
		if err != nil {
			dec.fail(err)
			break
		}
		rs.Attrs[name] = at
	}

	for i, n := 0, dec.count(); i < n && dec.err == nil; i++ {
		name := dec.string()
		rs.Vars[name] = dec.string()
	}

	for i, n := 0, dec.count(); i < n && dec.err == nil; i++ {
		name := dec.string()
		var vals []string
		for j, m := 0, dec.count(); j < m && dec.err == nil; j++ {
			vals = append(vals, dec.string())
		}
		rs.Lists[name] = NewList(name, vals...)
	}

	return rs
}

func (dec *decoder) automaton() *matcher.Automaton {
	alpha := matcher.NewAlphabet()
	reserved := alpha.Names()
	n := dec.count()
	for i := 0; i < n && dec.err == nil; i++ {
		name := dec.string()
		if i < len(reserved) {
			if name != reserved[i] {
				dec.fail(fmt.Errorf("alphabet symbol %v is %q, expected %q", i, name, reserved[i]))
			}
			continue
		}
		if sym := alpha.Intern(name); int(-sym) != i+1 {
			dec.fail(fmt.Errorf("duplicate alphabet symbol %q", name))
		}
	}

	a := matcher.New(alpha)
	nstates := dec.count()
	for st := matcher.State(0); int(st) < nstates && dec.err == nil; st++ {
		if st > 0 {
			a.AddState()
		}
		for i, n := 0, dec.count(); i < n && dec.err == nil; i++ {
			sym := matcher.Symbol(dec.int())
			dest := dec.count()
			if dest >= nstates {
				dec.fail(fmt.Errorf("state %v: edge to undefined state %v", st, dest))
				break
			}
			a.AddTransition(st, sym, matcher.State(dest))
		}
		for i, n := 0, dec.count(); i < n && dec.err == nil; i++ {
			a.Attach(st, dec.count())
		}
	}
	return a
}
