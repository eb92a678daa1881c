// Package fileinput reads runes from an input stream while tracking the
// position reached, so that stream errors can say where they happened.
package fileinput

import (
	"bufio"
	"fmt"
	"io"
)

// Location is a position within a named input.
type Location struct {
	Name string
	Line int
	Col  int
}

func (loc Location) String() string { return fmt.Sprintf("%v:%v:%v", loc.Name, loc.Line, loc.Col) }

// Input reads runes from one stream. Its Location is that of the last rune
// read; the column counts runes, not bytes.
type Input struct {
	Location
	rr io.RuneReader
}

// Reset starts reading from r, at line 1. The input is named after r when r
// has a Name method, as files do.
func (in *Input) Reset(r io.Reader) {
	in.Location = Location{Name: nameOf(r), Line: 1}
	if rr, ok := r.(io.RuneReader); ok {
		in.rr = rr
	} else {
		in.rr = bufio.NewReader(r)
	}
}

// ReadRune reads the next rune; a NUL rune reads as 0 with a nil error.
func (in *Input) ReadRune() (rune, int, error) {
	if in.rr == nil {
		return 0, 0, io.EOF
	}
	r, n, err := in.rr.ReadRune()
	if err != nil {
		return 0, 0, err
	}
	if r == '\n' {
		in.Line++
		in.Col = 0
	} else {
		in.Col++
	}
	return r, n, nil
}

func nameOf(r io.Reader) string {
	if nom, ok := r.(interface{ Name() string }); ok {
		return nom.Name()
	}
	return "<input>"
}
