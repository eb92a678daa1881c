package fileinput_test

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/gortx/internal/fileinput"
)

func Test_Input(t *testing.T) {
	var in fileinput.Input
	_, _, err := in.ReadRune()
	assert.Equal(t, io.EOF, err, "expected EOF before Reset")

	in.Reset(strings.NewReader("ab\nç\x00"))
	var got []rune
	var locs []string
	for {
		r, _, err := in.ReadRune()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, r)
		locs = append(locs, in.Location.String())
	}
	assert.Equal(t, []rune{'a', 'b', '\n', 'ç', 0}, got)
	assert.Equal(t, []string{
		"<input>:1:1",
		"<input>:1:2",
		"<input>:2:0",
		"<input>:2:1",
		"<input>:2:2",
	}, locs)
}

func Test_Input_file(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("^a$"), 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var in fileinput.Input
	in.Reset(f)
	r, n, err := in.ReadRune()
	require.NoError(t, err)
	assert.Equal(t, '^', r)
	assert.Equal(t, 1, n)
	assert.Equal(t, path+":1:1", in.Location.String())
}
