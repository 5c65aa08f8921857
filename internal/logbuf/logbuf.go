// Package logbuf keeps a bounded in-memory tail of the process log so the
// diagnostics endpoint can serve recent lines without a log file.
package logbuf

import (
	"bytes"
	"sync"
)

// Buffer is an io.Writer that retains the most recent complete lines.
type Buffer struct {
	mu      sync.Mutex
	lines   []string
	max     int
	partial []byte
}

// New creates a buffer holding at most max lines.
func New(max int) *Buffer {
	return &Buffer{max: max}
}

// Write implements io.Writer. Input is split on newlines; an unterminated
// trailing fragment is held until its newline arrives.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.partial = append(b.partial, p...)
	for {
		idx := bytes.IndexByte(b.partial, '\n')
		if idx < 0 {
			break
		}
		b.lines = append(b.lines, string(b.partial[:idx]))
		b.partial = b.partial[idx+1:]
	}
	if overflow := len(b.lines) - b.max; overflow > 0 {
		b.lines = append([]string(nil), b.lines[overflow:]...)
	}
	return len(p), nil
}

// Tail returns up to n most recent lines, oldest first.
func (b *Buffer) Tail(n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := len(b.lines) - n
	if start < 0 {
		start = 0
	}
	out := make([]string, len(b.lines)-start)
	copy(out, b.lines[start:])
	return out
}
