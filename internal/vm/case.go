package vm

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// folder converts the case of whole strings; it is not safe for concurrent
// use, so each machine carries its own.
type folder struct {
	lower, upper cases.Caser
	ready        bool
}

func (f *folder) init() {
	if !f.ready {
		f.lower = cases.Lower(language.Und)
		f.upper = cases.Upper(language.Und)
		f.ready = true
	}
}

func (f *folder) toLower(s string) string {
	f.init()
	return f.lower.String(s)
}

func (f *folder) toUpper(s string) string {
	f.init()
	return f.upper.String(s)
}

// copyCase returns dst with the case pattern of src: all upper when src is
// upper at both ends, otherwise all lower, then capitalized when src is. A
// single character src counts as lower case. With firstOnly, a lowered result
// only has its first character lowered.
func (f *folder) copyCase(src, dst string, firstOnly bool) string {
	if dst == "" {
		return dst
	}
	first, _ := utf8.DecodeRuneInString(src)
	last, _ := utf8.DecodeLastRuneInString(src)
	// a lone capital carries no case information
	firstUpper := unicode.IsUpper(first) && utf8.RuneCountInString(src) > 1
	upper := firstUpper && unicode.IsUpper(last)

	var res string
	switch {
	case upper:
		res = f.toUpper(dst)
	case firstOnly:
		res = mapFirst(dst, unicode.ToLower)
	default:
		res = f.toLower(dst)
	}
	if firstUpper {
		res = mapFirst(res, unicode.ToUpper)
	}
	return res
}

func mapFirst(s string, fn func(rune) rune) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(fn(r)) + s[n:]
}

// CopyCase returns dst recased to follow src, as SETCASE does.
func CopyCase(src, dst string) string {
	var f folder
	return f.copyCase(src, dst, false)
}

// CaseOf returns a two letter exemplar of the case of s: "aa", "Aa", or "AA".
func CaseOf(s string) string {
	return CopyCase(s, "aa")
}
