// Package runeio renders control runes printably, for trace output.
package runeio

import "strings"

// CaretForm returns the caret notation of a control rune: ^@ through ^_ for
// C0 controls, ^? for DEL, and ^[ followed by the 7-bit form for C1 controls.
// It returns "" for any other rune.
func CaretForm(r rune) string {
	switch {
	case r < 0x20 || r == 0x7f:
		return "^" + string(r^0x40)
	case 0x80 <= r && r <= 0x9f:
		return "^[" + string(r^0xc0)
	}
	return ""
}

// Quote returns s with every control rune in caret form.
func Quote(s string) string {
	if strings.IndexFunc(s, isControl) < 0 {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 8)
	for _, r := range s {
		if caret := CaretForm(r); caret != "" {
			sb.WriteString(caret)
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func isControl(r rune) bool { return CaretForm(r) != "" }
