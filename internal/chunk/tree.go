package chunk

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// TreeMode selects a layout for printing chunk trees.
type TreeMode int

// Tree modes.
const (
	TreeFlat TreeMode = iota
	TreeNest
	TreeLatex
	TreeDot
	TreeBox
)

var treeModeNames = [...]string{
	TreeFlat:  "flat",
	TreeNest:  "nest",
	TreeLatex: "latex",
	TreeDot:   "dot",
	TreeBox:   "box",
}

func (mode TreeMode) String() string {
	if int(mode) < len(treeModeNames) {
		return treeModeNames[mode]
	}
	return "TreeMode(" + strconv.Itoa(int(mode)) + ")"
}

// ParseTreeMode resolves a tree mode by name.
func ParseTreeMode(name string) (TreeMode, error) {
	for mode, modeName := range treeModeNames {
		if name == modeName {
			return TreeMode(mode), nil
		}
	}
	return 0, fmt.Errorf("%q is not a recognized tree mode; valid modes are %q", name, treeModeNames[:])
}

// TreeWriter prints chunk trees; it numbers graph nodes across every tree
// it writes.
type TreeWriter struct {
	Mode TreeMode

	nodeID int
}

// WriteTree prints c in the writer's mode; blanks are skipped by every mode
// except flat.
func (tw *TreeWriter) WriteTree(w io.Writer, c *Chunk) error {
	out := treeOut{w: w}
	switch tw.Mode {
	case TreeFlat:
		c.writePlain(&out, -1)
	case TreeNest:
		c.writePlain(&out, 0)
	case TreeLatex:
		if c.Blank {
			return nil
		}
		out.str("\\begin{forest}\n%where n children=0{tier=word}{}\n")
		out.str("% Uncomment the preceding line to make the LUs bottom-aligned.\n")
		c.writeLatex(&out)
		out.str("\n\\end{forest}\n")
	case TreeDot:
		if c.Blank {
			return nil
		}
		out.str("digraph {")
		tw.writeDot(&out, c)
		out.str("}\n")
	case TreeBox:
		if c.Blank {
			return nil
		}
		writeBox(&out, c.boxRows())
	default:
		return fmt.Errorf("unimplemented tree mode %v", tw.Mode)
	}
	return out.err
}

// FlatString renders c in flat tree mode.
func (c *Chunk) FlatString() string {
	var sb strings.Builder
	out := treeOut{w: &sb}
	c.writePlain(&out, -1)
	return sb.String()
}

type treeOut struct {
	w   io.Writer
	err error
}

func (out *treeOut) str(s string) {
	if out.err == nil {
		_, out.err = io.WriteString(out.w, s)
	}
}

func (c *Chunk) writePlain(out *treeOut, depth int) {
	if depth >= 0 && c.Blank {
		return
	}
	var sb strings.Builder
	for i := 0; i < depth; i++ {
		sb.WriteByte('\t')
	}
	if !c.Blank {
		sb.WriteString(c.Wblank)
		sb.WriteByte('^')
	}
	if c.Source != "" {
		sb.WriteString(c.Source)
		sb.WriteByte('/')
	}
	sb.WriteString(c.Target)
	if c.Coref != "" {
		sb.WriteByte('/')
		sb.WriteString(c.Coref)
	}
	out.str(sb.String())
	if len(c.Children) > 0 {
		newDepth := -1
		if depth == -1 {
			out.str("{")
		} else {
			out.str("{\n")
			newDepth = depth + 1
		}
		for _, kid := range c.Children {
			kid.writePlain(out, newDepth)
		}
		out.str(strings.Repeat("\t", max(depth, 0)))
		out.str("}")
	}
	if !c.Blank {
		out.str("$")
	}
	if depth != -1 {
		out.str("\n")
	}
}

// chopTags splits a surface like lemma<a><b> into "lemma" and "a.b".
func chopTags(s string) (lemma, tags string) {
	if i := strings.IndexByte(s, '<'); i >= 0 {
		lemma = s[:i]
		if end := len(s) - 1; end > i {
			tags = s[i+1 : end]
		}
	}
	if lemma == "" && tags == "" {
		lemma = s
	}
	return lemma, strings.ReplaceAll(tags, "><", ".")
}

func (c *Chunk) writeLatex(out *treeOut) {
	if c.Blank {
		return
	}
	const nl = ` \\ `
	var sb strings.Builder
	if c.Source != "" {
		lem, tags := chopTags(c.Source)
		sb.WriteString(`\textbf{` + lem + `}` + nl + `\texttt{` + tags + `}` + nl)
	}
	lem, tags := chopTags(c.Target)
	if len(c.Children) == 0 {
		sb.WriteString(`\textit{` + lem + `}` + nl + `\texttt{` + tags + `}`)
	} else if i := strings.IndexByte(tags, '.'); i >= 0 {
		sb.WriteString(tags[:i] + nl + `\textit{` + lem + `}`)
		sb.WriteString(nl + `\texttt{` + tags[i+1:] + `}`)
	} else {
		sb.WriteString(tags + nl + `\textit{` + lem + `}`)
	}
	if c.Coref != "" {
		lem, tags := chopTags(c.Coref)
		sb.WriteString(nl + `\textit{` + lem + `}` + nl + `\texttt{` + tags + `}`)
	}
	base := `[{ \begin{tabular}{c} ` + sb.String() + ` \end{tabular} } `
	out.str(strings.ReplaceAll(base, "_", `\_`))
	for _, kid := range c.Children {
		kid.writeLatex(out)
	}
	out.str(" ]")
}

func (tw *TreeWriter) writeDot(out *treeOut, c *Chunk) string {
	if c.Blank {
		return ""
	}
	tw.nodeID++
	name := "n" + strconv.Itoa(tw.nodeID)
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteString(` [label="`)
	if c.Source != "" {
		sb.WriteString(c.Source)
		sb.WriteString(`\n`)
	}
	sb.WriteString(c.Target)
	if c.Coref != "" {
		sb.WriteString(`\n`)
		sb.WriteString(c.Coref)
	}
	sb.WriteString(`"];`)
	out.str(sb.String())
	for _, kid := range c.Children {
		if kidName := tw.writeDot(out, kid); kidName != "" {
			out.str(name + " -> " + kidName + ";")
		}
	}
	return name
}

// boxRow columns: tree drawing, source lemma, source tags, target lemma,
// target tags, coreference lemma, coreference tags.
type boxRow [7]string

func leafRow(c *Chunk) (row boxRow) {
	row[1], row[2] = chopTags(c.Source)
	row[3], row[4] = chopTags(c.Target)
	row[5], row[6] = chopTags(c.Coref)
	return row
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ' '
	}
	return r
}

func width(s string) int { return utf8.RuneCountInString(s) }

func (c *Chunk) boxRows() []boxRow {
	if len(c.Children) == 0 {
		return []boxRow{leafRow(c)}
	}

	var (
		tree   []boxRow
		bounds [][2]int
	)
	for _, kid := range c.Children {
		if kid.Blank {
			continue
		}
		sub := kid.boxRows()
		tree = append(tree, sub...)
		if len(sub) == 1 {
			bounds = append(bounds, [2]int{len(tree) - 1, len(tree) - 1})
			continue
		}
		first, last := -1, -1
		for j := len(tree) - len(sub); j < len(tree); j++ {
			lead := firstRune(tree[j][0])
			if first == -1 && lead != ' ' {
				first = j
			} else if first != -1 && last == -1 && lead == ' ' {
				last = j - 1
			}
		}
		if first == -1 {
			first = len(tree) - len(sub)
		}
		if last == -1 {
			last = len(tree) - 1
		}
		bounds = append(bounds, [2]int{first, last})
	}

	switch len(tree) {
	case 0:
		return tree
	case 1:
		tree[0][0] = "─" + tree[0][0]
		return tree
	}

	center := len(tree) / 2
	wide := 0
	for _, row := range tree {
		wide = max(wide, width(row[0]))
	}
	lines := make(map[int]bool, len(bounds))
	firstLine, lastLine := len(tree), -1
	for _, b := range bounds {
		line := center
		if b[1] < center {
			line = b[1]
		} else if b[0] > center {
			line = b[0]
		}
		lines[line] = true
		firstLine = min(firstLine, line)
		lastLine = max(lastLine, line)
	}

	for i := range tree {
		cell := tree[i][0]
		sz := width(cell)
		if !lines[i] {
			cell = strings.Repeat(" ", wide-sz) + cell
		} else {
			if sz > 0 {
				lead, n := utf8.DecodeRuneInString(cell)
				switch lead {
				case '│':
					cell = "┤" + cell[n:]
				case '├':
					cell = "┼" + cell[n:]
				case '┌':
					cell = "┬" + cell[n:]
				case '└':
					cell = "┴" + cell[n:]
				}
			}
			cell = strings.Repeat("─", wide-sz) + cell
		}
		switch {
		case i < firstLine || i > lastLine:
			cell = " " + cell
		case i == firstLine && i == lastLine:
			cell = "─" + cell
		case i == firstLine:
			cell = "┌" + cell
		case i < lastLine:
			if lines[i] {
				cell = "├" + cell
			} else {
				cell = "│" + cell
			}
		default:
			cell = "└" + cell
		}
		tree[i][0] = cell
	}
	return tree
}

func pad(s string, n int) string {
	if n <= 0 {
		return s
	}
	return s + strings.Repeat(" ", n)
}

func writeBox(out *treeOut, tree []boxRow) {
	if len(tree) == 0 {
		return
	}
	// minimum widths fit the column headers
	wide := [7]int{4, 12, 11, 12, 11, 0, 0}
	for _, row := range tree {
		for col, cell := range row {
			wide[col] = max(wide[col], width(cell))
		}
	}
	doCoref := wide[5] > 0 || wide[6] > 0
	if doCoref {
		wide[5] = max(wide[5], 17)
		wide[6] = max(wide[6], 16)
	}

	out.str(pad("Tree", wide[0]-4+1))
	out.str(pad("Source Lemma", wide[1]-12+1))
	out.str(pad("Source Tags", wide[2]-11+1))
	out.str(pad("Target Lemma", wide[3]-12+1))
	out.str(pad("Target Tags", wide[4]-11))
	if doCoref {
		out.str(" " + pad("Coreference Lemma", wide[5]-17))
		out.str(" " + pad("Coreference Tags", wide[6]-16))
	}
	out.str("\n")

	rules := make([]string, 0, 7)
	for col := 0; col < 5; col++ {
		rules = append(rules, strings.Repeat("─", wide[col]))
	}
	if doCoref {
		rules = append(rules, strings.Repeat("─", wide[5]), strings.Repeat("─", wide[6]))
	}
	out.str(strings.Join(rules, " "))
	out.str("\n")

	for _, row := range tree {
		out.str(strings.Repeat(" ", wide[0]-width(row[0])) + row[0] + " ")
		out.str(pad(row[1], wide[1]-width(row[1])+1))
		out.str(pad(row[2], wide[2]-width(row[2])+1))
		out.str(pad(row[3], wide[3]-width(row[3])+1))
		out.str(pad(row[4], wide[4]-width(row[4])))
		if doCoref {
			out.str(" " + pad(row[5], wide[5]-width(row[5])))
			out.str(" " + row[6])
		}
		out.str("\n")
	}
	out.str("\n")
}
