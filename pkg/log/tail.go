package log

import (
	"bytes"
	"strings"
	"sync"
)

// DefaultTailLines is the capacity used for non-positive values.
const DefaultTailLines = 20

// Tail is an [io.Writer] that keeps the last lines written to it in a ring.
// Writes may split lines arbitrarily; an unterminated final line is kept
// separately until its newline arrives. It is safe for concurrent use, so
// both output streams of a subprocess can share one Tail.
type Tail struct {
	lines    []string
	partial  []byte
	capacity int
	head     int
	size     int
	mu       sync.Mutex
}

// NewTail creates a [Tail] that keeps up to capacity lines.
func NewTail(capacity int) *Tail {
	if capacity <= 0 {
		capacity = DefaultTailLines
	}

	return &Tail{
		lines:    make([]string, capacity),
		capacity: capacity,
	}
}

func (t *Tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rest := p
	for {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			break
		}

		line := append(t.partial, rest[:i]...)
		t.push(strings.TrimRight(string(line), "\r"))

		t.partial = t.partial[:0]
		rest = rest[i+1:]
	}

	t.partial = append(t.partial, rest...)

	return len(p), nil
}

func (t *Tail) push(line string) {
	t.lines[t.head] = line
	t.head = (t.head + 1) % t.capacity

	if t.size < t.capacity {
		t.size++
	}
}

// Lines returns the kept lines, oldest first, followed by any unterminated
// line.
func (t *Tail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, 0, t.size+1)

	start := (t.head - t.size + t.capacity) % t.capacity
	for i := range t.size {
		out = append(out, t.lines[(start+i)%t.capacity])
	}

	if len(t.partial) > 0 {
		out = append(out, string(t.partial))
	}

	return out
}

// Len returns the number of complete lines kept.
func (t *Tail) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.size
}

// Capacity returns the maximum number of complete lines kept.
func (t *Tail) Capacity() int {
	return t.capacity
}

// Reset drops all kept lines.
func (t *Tail) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	clear(t.lines)

	t.partial = t.partial[:0]
	t.head = 0
	t.size = 0
}
