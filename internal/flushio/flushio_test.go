package flushio_test

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/gortx/internal/flushio"
)

type countingWriter struct {
	writes int
	bytes.Buffer
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	cw.writes++
	return cw.Buffer.Write(p)
}

func Test_NewWriteFlusher(t *testing.T) {
	var sb strings.Builder
	wf := flushio.NewWriteFlusher(&sb)
	io.WriteString(wf, "^a$")
	assert.Equal(t, "^a$", sb.String(), "in memory writes are not held")
	assert.NoError(t, wf.Flush())

	bw := bufio.NewWriter(io.Discard)
	assert.Same(t, bw, flushio.NewWriteFlusher(bw), "flushers are kept")

	assert.NoError(t, flushio.NewWriteFlusher(io.Discard).Flush())

	// a plain writer is buffered until flushed
	cw := struct{ io.Writer }{&countingWriter{}}
	wf = flushio.NewWriteFlusher(cw)
	io.WriteString(wf, "^a$")
	io.WriteString(wf, " ^b$")
	under := cw.Writer.(*countingWriter)
	assert.Equal(t, 0, under.writes)
	require.NoError(t, wf.Flush())
	assert.Equal(t, 1, under.writes)
	assert.Equal(t, "^a$ ^b$", under.String())
}
