package ruleset

import (
	"fmt"
	"io"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/jcorbin/gortx/internal/bytecode"
)

// Decompile writes a readable listing of the rule set: its rules as
// assembly, then its attributes, lists, and variables.
func (rs *RuleSet) Decompile(w io.Writer) error {
	var err error
	printf := func(format string, args ...interface{}) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}
	listing := func(code []byte) {
		if err == nil {
			err = bytecode.Disassemble(w, code)
		}
		printf("\n")
	}

	printf("Input rules:\n")
	printf("Longest pattern: %d chunks\nNumber of rules: %d\n\n", (rs.LongestPattern+1)/2, len(rs.InputRules))
	for i, rule := range rs.InputRules {
		printf("Rule %d %v (%d bytes, pattern %d chunks, weight %v)\n",
			i, rs.RuleName(i), len(rule.Code), (rule.Length+1)/2, rule.Weight)
		listing(rule.Code)
	}

	printf("Output rules:\nNumber of rules: %d\n\n", len(rs.OutputRules))
	for i, rule := range rs.OutputRules {
		printf("Rule %d %v (%d bytes)\n", i, rs.OutputRuleName(i), len(rule.Code))
		listing(rule.Code)
	}

	names := maps.Keys(rs.Attrs)
	slices.Sort(names)
	printf("Attributes:\n")
	for _, name := range names {
		at := rs.Attrs[name]
		printf("  %v = %q order=%v", name, at.Source, at.Order)
		if at.Default != "" {
			printf(" default=%v", at.Default)
		}
		printf("\n")
	}

	names = maps.Keys(rs.Lists)
	slices.Sort(names)
	printf("Lists:\n")
	for _, name := range names {
		printf("  %v = %q\n", name, rs.Lists[name].Values())
	}

	names = maps.Keys(rs.Vars)
	slices.Sort(names)
	printf("Variables:\n")
	for _, name := range names {
		printf("  %v = %q\n", name, rs.Vars[name])
	}
	printf("Chunk variables: %d\n", rs.ChunkVars)

	return err
}
