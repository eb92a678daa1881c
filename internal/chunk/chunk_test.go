package chunk_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/jcorbin/gortx/internal/chunk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func word(src, tgt string) *chunk.Chunk {
	return &chunk.Chunk{Source: src, Target: tgt, Rule: chunk.NoRule}
}

func blank(text string) *chunk.Chunk {
	return &chunk.Chunk{Target: text, Blank: true, Rule: chunk.NoRule}
}

func phrase(tgt string, kids ...*chunk.Chunk) *chunk.Chunk {
	return &chunk.Chunk{Target: tgt, Children: kids, Rule: chunk.NoRule}
}

func Test_Chunk_Tags(t *testing.T) {
	for _, tc := range []struct {
		name   string
		target string
		parent []string
		tags   []string
		update string
	}{
		{
			name:   "plain",
			target: "cat<n><sg>",
			tags:   []string{"<n>", "<sg>"},
			update: "cat<n><sg>",
		},
		{
			name:   "numbered",
			target: "np<sg><2><x>",
			parent: []string{"<a>", "<b>"},
			tags:   []string{"<sg>", "<b>", "<x>"},
			update: "np<sg><b><x>",
		},
		{
			name:   "out of range",
			target: "det<2><3><0>x",
			parent: []string{"<a>", "<b>"},
			tags:   []string{"<b>", "<3>", "<0>"},
			update: "det<b>x",
		},
		{
			name:   "escaped bracket",
			target: `a\<1><1>`,
			parent: []string{"<p>"},
			tags:   []string{"<p>"},
			update: `a\<1><p>`,
		},
		{
			name:   "unterminated",
			target: "lemma<n",
			tags:   nil,
			update: "lemma<n",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := word("", tc.target)
			assert.Equal(t, tc.tags, c.Tags(tc.parent), "expected tags")
			c.UpdateTags(tc.parent)
			assert.Equal(t, tc.update, c.Target, "expected updated target")
		})
	}

	t.Run("blanks are untouched", func(t *testing.T) {
		b := blank("<1>")
		b.UpdateTags([]string{"<x>"})
		assert.Equal(t, "<1>", b.Target)
	})
}

func Test_Chunk_Output(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   *chunk.Chunk
		out  string
	}{
		{"blank", blank(" [x] "), " [x] "},
		{"word", word("cat<n>", "gato<n>"), "^gato<n>$"},
		{"empty target", word("cat<n>", ""), ""},
		{"wblank", &chunk.Chunk{Target: "gato<n>", Wblank: "[[t:b:1]]", Rule: chunk.NoRule}, "[[t:b:1]]^gato<n>$"},
		{"tree", phrase("np<sg><nom>",
			word("", "the<det><1>"),
			blank(" "),
			&chunk.Chunk{Target: "cat<n><2>", Wblank: "[[w]]", Rule: chunk.NoRule},
		), "^the<det><sg>$ [[w]]^cat<n><nom>$"},
		{"nested tree", phrase("s<pl>",
			phrase("np<1>", word("", "dog<n><1>")),
		), "^dog<n><pl>$"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var sb strings.Builder
			require.NoError(t, tc.in.Output(&sb))
			assert.Equal(t, tc.out, sb.String())
		})
	}
}

func Test_Chunk_Conjoin(t *testing.T) {
	for _, tc := range []struct {
		name         string
		into, other  *chunk.Chunk
		target       string
		intoWblank   string
		otherWblank  string
		expectWblank string
	}{
		{
			name:   "at hash",
			into:   word("", "take<vblex>#out"),
			other:  word("", "it<prn>"),
			target: "take<vblex>+it<prn>#out",
		},
		{
			name:   "escaped hash",
			into:   word("", `a\#b`),
			other:  word("", "c"),
			target: `a\#b+c`,
		},
		{
			name:   "at end",
			into:   word("", "go<vblex>"),
			other:  word("", "it<prn>"),
			target: "go<vblex>+it<prn>",
		},
		{
			name:         "wblanks",
			into:         word("", "x"),
			other:        word("", "y"),
			target:       "x+y",
			intoWblank:   "[[t:i:2]]",
			otherWblank:  "[[t:b:1]]",
			expectWblank: "[[t:b:1; t:i:2]]",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tc.into.Wblank = tc.intoWblank
			tc.other.Wblank = tc.otherWblank
			tc.into.Conjoin(tc.other)
			assert.Equal(t, tc.target, tc.into.Target)
			assert.Equal(t, tc.expectWblank, tc.into.Wblank)
		})
	}
}

func Test_CombineWblanks(t *testing.T) {
	assert.Equal(t, "[[a]]", chunk.CombineWblanks("", "[[a]]"))
	assert.Equal(t, "[[a]]", chunk.CombineWblanks("[[a]]", ""))
	assert.Equal(t, "[[a; b]]", chunk.CombineWblanks("[[a]]", "[[b]]"))
	assert.Equal(t, `[[a\]; b]]`, chunk.CombineWblanks(`[[a\]]]`, "[[b]]"))
}

func Test_Chunk_Clip(t *testing.T) {
	gen := regexp.MustCompile(`<(m|f|mf)>`)
	c := &chunk.Chunk{
		Source: "casa<n><f><sg>",
		Target: "house<n><sg>",
		Coref:  "it<prn><m>",
		Rule:   chunk.NoRule,
	}
	assert.Equal(t, "<f>", c.Clip(gen, chunk.SourceSide))
	assert.Equal(t, "", c.Clip(gen, chunk.TargetSide))
	assert.Equal(t, "<m>", c.Clip(gen, chunk.RefSide))
	assert.Equal(t, "", c.Clip(nil, chunk.SourceSide))

	num := regexp.MustCompile(`<(sg|pl)>`)
	c.SetClip(num, "<pl>")
	assert.Equal(t, "house<n><pl>", c.Target)
	c.SetClip(gen, "<f>")
	assert.Equal(t, "house<n><pl>", c.Target, "expected no change without a match")

	assert.Equal(t, "tl", chunk.TargetSide.String())
	assert.Equal(t, "sl", chunk.SourceSide.String())
	assert.Equal(t, "ref", chunk.RefSide.String())
}

func Test_Chunk_MatchSurface(t *testing.T) {
	assert.Equal(t, "cat<n>", word("cat<n>", "gato<n>").MatchSurface())
	assert.Equal(t, "np<sg>", phrase("np<sg>", word("cat<n>", "gato<n>")).MatchSurface())
}

func Test_Pool(t *testing.T) {
	var p chunk.Pool
	p.BucketSize = 4

	b := p.NewBlank(" ")
	assert.True(t, b.Blank)
	assert.Equal(t, chunk.NoRule, b.Rule)

	w := p.NewWord("*foo", "*foo", "")
	assert.True(t, chunk.IsUnknown(w.Source, w.Target))
	assert.False(t, chunk.IsUnknown("foo", "*foo"))

	u := p.WrapUnknown(w)
	assert.Equal(t, "foo"+chunk.UnknownTag, u.Target)
	require.Len(t, u.Children, 1)
	assert.Same(t, w, u.Children[0])
	assert.Equal(t, chunk.NoRule, u.Rule)

	u.Rule = 3
	cp := p.Copy(u)
	assert.NotSame(t, u, cp)
	assert.Equal(t, *u, *cp)
	cp.Children = append(cp.Children[:0], b)
	assert.Same(t, w, u.Children[0], "expected copy to own its child slice")

	assert.Equal(t, 4, p.Len())
	p.Reset()
	assert.Equal(t, 0, p.Len())
	again := p.New()
	assert.Equal(t, chunk.Chunk{Rule: chunk.NoRule}, *again, "expected a recycled chunk to be reset")
}

func Test_ParseTreeMode(t *testing.T) {
	for _, name := range []string{"flat", "nest", "latex", "dot", "box"} {
		mode, err := chunk.ParseTreeMode(name)
		require.NoError(t, err)
		assert.Equal(t, name, mode.String())
	}
	_, err := chunk.ParseTreeMode("fancy")
	assert.Error(t, err)
}

func treeFixture() *chunk.Chunk {
	return phrase("np<sg>",
		word("the<det>", "el<det>"),
		blank(" "),
		word("cat<n><sg>", "gato<n><sg>"),
	)
}

func writeTree(t *testing.T, tw *chunk.TreeWriter, c *chunk.Chunk) string {
	var sb strings.Builder
	require.NoError(t, tw.WriteTree(&sb, c))
	return sb.String()
}

func Test_TreeWriter(t *testing.T) {
	t.Run("flat", func(t *testing.T) {
		tw := chunk.TreeWriter{Mode: chunk.TreeFlat}
		assert.Equal(t,
			"^np<sg>{^the<det>/el<det>$ ^cat<n><sg>/gato<n><sg>$}$",
			writeTree(t, &tw, treeFixture()))
		assert.Equal(t, " ", writeTree(t, &tw, blank(" ")))
		assert.Equal(t, treeFixture().FlatString(), writeTree(t, &tw, treeFixture()))
	})

	t.Run("nest", func(t *testing.T) {
		tw := chunk.TreeWriter{Mode: chunk.TreeNest}
		assert.Equal(t,
			"^np<sg>{\n\t^the<det>/el<det>$\n\t^cat<n><sg>/gato<n><sg>$\n}$\n",
			writeTree(t, &tw, treeFixture()))
		assert.Equal(t, "", writeTree(t, &tw, blank(" ")))
	})

	t.Run("latex", func(t *testing.T) {
		tw := chunk.TreeWriter{Mode: chunk.TreeLatex}
		out := writeTree(t, &tw, treeFixture())
		assert.True(t, strings.HasPrefix(out, "\\begin{forest}\n"), "expected forest preamble in %q", out)
		assert.Contains(t, out, `\textbf{cat} \\ \texttt{n.sg} \\ \textit{gato} \\ \texttt{n.sg}`)
		assert.Contains(t, out, `sg \\ \textit{np}`)
		assert.True(t, strings.HasSuffix(out, "\\end{forest}\n"))
	})

	t.Run("dot", func(t *testing.T) {
		tw := chunk.TreeWriter{Mode: chunk.TreeDot}
		assert.Equal(t,
			`digraph {n1 [label="np<sg>"];`+
				`n2 [label="the<det>\nel<det>"];n1 -> n2;`+
				`n3 [label="cat<n><sg>\ngato<n><sg>"];n1 -> n3;}`+"\n",
			writeTree(t, &tw, treeFixture()))
		assert.Equal(t,
			`digraph {n4 [label="a\nb"];}`+"\n",
			writeTree(t, &tw, word("a", "b")),
			"expected node numbering to continue across trees")
	})

	t.Run("box", func(t *testing.T) {
		tw := chunk.TreeWriter{Mode: chunk.TreeBox}
		lines := strings.Split(writeTree(t, &tw, treeFixture()), "\n")
		require.True(t, len(lines) >= 4, "expected header, rule, and two rows; got %q", lines)
		assert.True(t, strings.HasPrefix(lines[0], "Tree Source Lemma"), "header %q", lines[0])
		assert.NotContains(t, lines[0], "Coreference")
		assert.Equal(t, []string{"┌", "the", "det", "el", "det"}, strings.Fields(lines[2]))
		assert.Equal(t, []string{"└", "cat", "n.sg", "gato", "n.sg"}, strings.Fields(lines[3]))

		withRef := word("it<prn>", "lo<prn>")
		withRef.Coref = "cat<n>"
		lines = strings.Split(writeTree(t, &tw, withRef), "\n")
		assert.Contains(t, lines[0], "Coreference Lemma")
		assert.Equal(t, []string{"it", "prn", "lo", "prn", "cat", "n"}, strings.Fields(lines[2]))
	})
}
