// Package directive writes the line protocol the host build system reads from
// a build script's standard output.
package directive

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

const prefix = "cargo:"

// Directive keys.
const (
	KeyRerunIfChanged    = "rerun-if-changed"
	KeyRerunIfEnvChanged = "rerun-if-env-changed"
	KeyLinkSearch        = "rustc-link-search"
	KeyLinkLib           = "rustc-link-lib"
	KeyWarning           = "warning"
)

// Writer emits one directive per line.
type Writer struct {
	w     io.Writer
	count int
	mu    sync.Mutex
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Emit writes a raw "cargo:<key>=<value>" line. Newlines in value would end
// the directive early, so they are replaced by spaces.
func (d *Writer) Emit(key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	value = strings.ReplaceAll(value, "\n", " ")

	_, err := fmt.Fprintf(d.w, "%s%s=%s\n", prefix, key, value)
	if err != nil {
		return fmt.Errorf("write %s directive: %w", key, err)
	}

	d.count++

	return nil
}

// Count returns the number of directives written so far.
func (d *Writer) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.count
}

func (d *Writer) RerunIfChanged(path string) error {
	return d.Emit(KeyRerunIfChanged, path)
}

func (d *Writer) RerunIfEnvChanged(name string) error {
	return d.Emit(KeyRerunIfEnvChanged, name)
}

// LinkSearchNative adds dir to the native library search path.
func (d *Writer) LinkSearchNative(dir string) error {
	return d.Emit(KeyLinkSearch, "native="+dir)
}

// LinkLibStatic links the static library name (without "lib" and ".a").
func (d *Writer) LinkLibStatic(name string) error {
	return d.Emit(KeyLinkLib, "static="+name)
}

// Warning prints free text in the host build's output.
func (d *Writer) Warning(msg string) error {
	return d.Emit(KeyWarning, msg)
}

// Line is a parsed directive.
type Line struct {
	Key   string
	Value string
}

// Parse reads directives back from build script output, skipping any other
// lines.
func Parse(out string) []Line {
	var lines []Line
	for raw := range strings.Lines(out) {
		rest, ok := strings.CutPrefix(strings.TrimRight(raw, "\r\n"), prefix)
		if !ok {
			continue
		}

		key, value, ok := strings.Cut(rest, "=")
		if !ok {
			continue
		}

		lines = append(lines, Line{Key: key, Value: value})
	}

	return lines
}
