// Package logio provides the leveled line logger used by the command, and a
// writer that turns written lines into log calls.
package logio

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// Logger writes "LEVEL: message" lines to an output stream, remembering
// whether any error was logged.
type Logger struct {
	mu       sync.Mutex
	out      io.WriteCloser
	buf      bytes.Buffer
	exitCode int
}

// SetOutput replaces the logger's output stream, closing any prior one.
func (log *Logger) SetOutput(out io.WriteCloser) {
	log.mu.Lock()
	defer log.mu.Unlock()
	if log.out != nil {
		log.out.Close()
	}
	log.out = out
}

// Close closes the output stream.
func (log *Logger) Close() error {
	log.mu.Lock()
	defer log.mu.Unlock()
	if log.out == nil {
		return nil
	}
	err := log.out.Close()
	log.out = nil
	return err
}

// ExitCode returns 1 if any error was logged, 2 if writing a log line
// failed, and 0 otherwise.
func (log *Logger) ExitCode() int {
	log.mu.Lock()
	defer log.mu.Unlock()
	return log.exitCode
}

// Leveledf returns a printf-style function logging at the given level.
func (log *Logger) Leveledf(level string) func(mess string, args ...interface{}) {
	return func(mess string, args ...interface{}) { log.Printf(level, mess, args...) }
}

// ErrorIf logs err, with any stack it carries, if it is not nil.
func (log *Logger) ErrorIf(err error) {
	if err != nil {
		log.Errorf("%+v", err)
	}
}

// Errorf logs at the ERROR level, and makes ExitCode non-zero.
func (log *Logger) Errorf(mess string, args ...interface{}) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.printf("ERROR", mess, args...)
	if log.exitCode == 0 {
		log.exitCode = 1
	}
}

// Printf logs a line at the given level; an empty level logs the bare
// message.
func (log *Logger) Printf(level, mess string, args ...interface{}) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.printf(level, mess, args...)
}

func (log *Logger) printf(level, mess string, args ...interface{}) {
	log.buf.Reset()
	if level != "" {
		log.buf.WriteString(level)
		log.buf.WriteString(": ")
	}
	if len(args) > 0 {
		fmt.Fprintf(&log.buf, mess, args...)
	} else {
		log.buf.WriteString(mess)
	}
	if b := log.buf.Bytes(); len(b) == 0 || b[len(b)-1] != '\n' {
		log.buf.WriteByte('\n')
	}
	if log.out == nil {
		return
	}
	if _, err := log.out.Write(log.buf.Bytes()); err != nil {
		log.exitCode = 2
	}
}
