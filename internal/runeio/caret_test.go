package runeio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jcorbin/gortx/internal/runeio"
)

func Test_CaretForm(t *testing.T) {
	for r, want := range map[rune]string{
		0x00: "^@",
		0x01: "^A",
		'\n': "^J",
		0x1b: "^[",
		0x7f: "^?",
		0x85: "^[E",
		'a':  "",
		'é':  "",
	} {
		assert.Equal(t, want, runeio.CaretForm(r), "caret form of %U", r)
	}
}

func Test_Quote(t *testing.T) {
	assert.Equal(t, "^a<n>$ ", runeio.Quote("^a<n>$ "))
	assert.Equal(t, "^a$^@^b$^J", runeio.Quote("^a$\x00^b$\n"))
	assert.Equal(t, "año^I", runeio.Quote("año\t"))
}
