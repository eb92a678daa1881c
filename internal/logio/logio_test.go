package logio_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jcorbin/gortx/internal/logio"
)

type bufCloser struct {
	bytes.Buffer
	closed bool
}

func (bc *bufCloser) Close() error {
	bc.closed = true
	return nil
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("full") }
func (failWriter) Close() error              { return nil }

func Test_Logger(t *testing.T) {
	var log logio.Logger
	var out bufCloser
	log.SetOutput(&out)

	log.Printf("INFO", "hello %v", "world")
	log.Leveledf("TRACE")("> read %v", "^a$")
	log.Printf("", "bare\n")
	assert.Equal(t, 0, log.ExitCode())

	log.ErrorIf(nil)
	log.ErrorIf(errors.New("bad rule"))
	assert.Equal(t, 1, log.ExitCode())
	assert.Equal(t, "INFO: hello world\nTRACE: > read ^a$\nbare\nERROR: bad rule\n", out.String())

	var next bufCloser
	log.SetOutput(&next)
	assert.True(t, out.closed, "expected prior output closed")
	assert.NoError(t, log.Close())
	assert.True(t, next.closed)

	log.Printf("INFO", "dropped")
	assert.Equal(t, "", next.String())
}

func Test_Logger_writeError(t *testing.T) {
	var log logio.Logger
	log.SetOutput(failWriter{})
	log.Printf("INFO", "lost")
	assert.Equal(t, 2, log.ExitCode())
	log.Errorf("still lost")
	assert.Equal(t, 2, log.ExitCode())
}

func Test_Writer(t *testing.T) {
	var lines []string
	lw := &logio.Writer{
		Prefix: "out: ",
		Logf: func(mess string, args ...interface{}) {
			lines = append(lines, fmt.Sprintf(mess, args...))
		},
	}
	fmt.Fprint(lw, "^a$ ")
	fmt.Fprint(lw, "^b$\n^c")
	fmt.Fprint(lw, "$\n\nrest")
	assert.Equal(t, []string{"out: ^a$ ^b$", "out: ^c$", "out: "}, lines)
	assert.NoError(t, lw.Close())
	assert.Equal(t, []string{"out: ^a$ ^b$", "out: ^c$", "out: ", "out: rest"}, lines)
}
