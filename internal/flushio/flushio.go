// Package flushio adapts writers for output that is flushed at the end of
// each translation unit.
package flushio

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// WriteFlusher is an io.Writer whose writes may be held until Flush.
type WriteFlusher interface {
	io.Writer
	Flush() error
}

// NewWriteFlusher returns w itself if it can already flush, w with a no-op
// Flush if it keeps what is written in memory, or else a buffered writer
// around w.
func NewWriteFlusher(w io.Writer) WriteFlusher {
	switch w := w.(type) {
	case WriteFlusher:
		return w
	case *bytes.Buffer, *strings.Builder:
		return nopFlusher{w}
	}
	if w == io.Discard {
		return nopFlusher{w}
	}
	return bufio.NewWriter(w)
}

type nopFlusher struct{ io.Writer }

func (nopFlusher) Flush() error { return nil }
