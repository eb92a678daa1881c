package logio

import (
	"bytes"
	"sync"
)

// Writer is an io.Writer that passes each complete line written to Logf,
// after Prefix. It is safe to write from many goroutines.
type Writer struct {
	Logf   func(mess string, args ...interface{})
	Prefix string

	mu  sync.Mutex
	buf []byte
}

func (lw *Writer) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.buf = append(lw.buf, p...)
	for {
		i := bytes.IndexByte(lw.buf, '\n')
		if i < 0 {
			break
		}
		lw.Logf("%s%s", lw.Prefix, lw.buf[:i])
		lw.buf = lw.buf[i+1:]
	}
	return len(p), nil
}

// Close logs any partial last line.
func (lw *Writer) Close() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if len(lw.buf) > 0 {
		lw.Logf("%s%s", lw.Prefix, lw.buf)
		lw.buf = nil
	}
	return nil
}
