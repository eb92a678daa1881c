package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jcorbin/gortx/internal/fileinput"
)

// token is one unit of the input stream, as read by a lexer; the engine
// turns tokens into chunks in its own arena.
type token struct {
	blank bool

	// text is the literal text of a blank.
	text string

	source, target, coref string
	wblank                string

	// end marks the final blank of a translation unit; eof marks the end
	// of the stream.
	end, eof bool
}

func (tok token) String() string {
	switch {
	case tok.end && tok.eof:
		return fmt.Sprintf("eof %q", tok.text)
	case tok.end:
		return fmt.Sprintf("end %q", tok.text)
	case tok.blank:
		return fmt.Sprintf("blank %q", tok.text)
	}
	return fmt.Sprintf("word %v^%v/%v/%v$", tok.wblank, tok.source, tok.target, tok.coref)
}

// lexer splits an input stream into blanks and words. Every word is preceded
// by a (maybe empty) blank, and every unit ends with a blank.
type lexer struct {
	fileinput.Input

	nullFlush bool
	coref     bool

	cur    strings.Builder
	raw    strings.Builder
	parts  []string
	inWord bool
	wblank string
}

func newLexer(r io.Reader, nullFlush, coref bool) *lexer {
	lex := &lexer{nullFlush: nullFlush, coref: coref}
	lex.Reset(r)
	return lex
}

// run sends tokens until the end of the stream.
func (lex *lexer) run(ctx context.Context, toks chan<- token) error {
	defer close(toks)
	for {
		tok, err := lex.next()
		if err != nil {
			return fmt.Errorf("reading input at %v: %w", lex.Location, err)
		}
		select {
		case toks <- tok:
		case <-ctx.Done():
			return ctx.Err()
		}
		if tok.eof {
			return nil
		}
	}
}

func (lex *lexer) next() (token, error) {
	inSquare := false
	for {
		r, _, err := lex.ReadRune()
		if r == 0 && (err != nil || lex.nullFlush) {
			if err != nil && !errors.Is(err, io.EOF) {
				return token{}, err
			}
			return lex.end(err != nil), nil
		}

		if lex.inWord {
			lex.raw.WriteRune(r)
		}

		switch {
		case r == '\\':
			lex.cur.WriteRune(r)
			r, _, err = lex.ReadRune()
			if r == 0 && err != nil {
				continue
			}
			lex.cur.WriteRune(r)
			if lex.inWord {
				lex.raw.WriteRune(r)
			}

		case r == '[' && !lex.inWord:
			lex.cur.WriteRune(r)
			inSquare = true

		case inSquare:
			lex.cur.WriteRune(r)
			if r == ']' {
				inSquare = false
			}

		case lex.inWord && (r == '$' || r == '/'):
			lex.parts = append(lex.parts, lex.cur.String())
			lex.cur.Reset()
			if r == '$' {
				return lex.word(), nil
			}

		case !lex.inWord && r == '^':
			lex.inWord = true
			lex.raw.Reset()
			lex.parts = lex.parts[:0]
			text := lex.cur.String()
			lex.cur.Reset()
			text, lex.wblank = splitWblank(text)
			return token{blank: true, text: text}, nil

		default:
			lex.cur.WriteRune(r)
		}
	}
}

func (lex *lexer) word() token {
	lex.inWord = false
	tok := token{wblank: lex.wblank}
	lex.wblank = ""
	if len(lex.parts) > 0 {
		tok.source = lex.parts[0]
	}
	if len(lex.parts) > 1 {
		tok.target = lex.parts[1]
	}
	if len(lex.parts) > 2 && lex.coref {
		tok.coref = lex.parts[len(lex.parts)-1]
	}
	return tok
}

// end returns the final blank of a unit; a word left open by the end of the
// stream is kept as blank text.
func (lex *lexer) end(eof bool) token {
	tok := token{blank: true, end: true, eof: eof}
	if lex.inWord {
		tok.text = lex.wblank + "^" + lex.raw.String()
		lex.inWord = false
		lex.wblank = ""
	} else {
		tok.text = lex.cur.String()
	}
	lex.cur.Reset()
	lex.raw.Reset()
	return tok
}

// splitWblank splits a trailing [[...]] word bound blank off of blank text.
func splitWblank(text string) (rest, wblank string) {
	if !strings.HasSuffix(text, "]]") {
		return text, ""
	}
	i := strings.LastIndex(text, "[[")
	if i < 0 || (i > 0 && text[i-1] == '\\') {
		return text, ""
	}
	return text[:i], text[i:]
}
