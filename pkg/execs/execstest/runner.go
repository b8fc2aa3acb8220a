// Package execstest provides a scriptable [execs.Runner] for tests.
package execstest

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/macropower/hermitlink/pkg/execs"
)

// Handler produces the outcome of a faked command.
type Handler func(cmd *execs.Command) (*execs.Result, error)

// Runner records every command it receives and dispatches it to the handler
// registered for the command's [execs.Command.Key]. Commands without a handler
// succeed with empty output.
type Runner struct {
	handlers map[string]Handler
	calls    []*execs.Command
	mu       sync.Mutex
}

func NewRunner() *Runner {
	return &Runner{handlers: make(map[string]Handler)}
}

// On registers h for commands whose key equals key, e.g. "cargo tree".
func (r *Runner) On(key string, h Handler) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[key] = h

	return r
}

func (r *Runner) Exec(_ context.Context, cmd *execs.Command) (*execs.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd.Clone())
	h, ok := r.handlers[cmd.Key()]
	r.mu.Unlock()

	if !ok {
		return &execs.Result{}, nil
	}

	return h(cmd)
}

// Calls returns every recorded command in order.
func (r *Runner) Calls() []*execs.Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*execs.Command, len(r.calls))
	copy(out, r.calls)

	return out
}

// CallsFor returns the recorded commands with the given key.
func (r *Runner) CallsFor(key string) []*execs.Command {
	var out []*execs.Command
	for _, c := range r.Calls() {
		if c.Key() == key {
			out = append(out, c)
		}
	}

	return out
}

// Stdout returns a handler that succeeds with the given output.
func Stdout(out string) Handler {
	return func(*execs.Command) (*execs.Result, error) {
		return &execs.Result{Stdout: out}, nil
	}
}

// StdoutFor returns a handler that picks the output by the command's last
// argument, which is how the dependency-tree invocations differ.
func StdoutFor(outputs map[string]string) Handler {
	return func(cmd *execs.Command) (*execs.Result, error) {
		for _, arg := range cmd.Args {
			if out, ok := outputs[arg]; ok {
				return &execs.Result{Stdout: out}, nil
			}
		}

		return &execs.Result{}, nil
	}
}

// Fail returns a handler that reports an unsuccessful exit.
func Fail(code int) Handler {
	return func(cmd *execs.Command) (*execs.Result, error) {
		return &execs.Result{}, fmt.Errorf("%w: %s: exit status %d", execs.ErrCommandExecution, cmd.Key(), code)
	}
}

// NotFound returns a handler that reports a command that could not start.
func NotFound() Handler {
	return func(cmd *execs.Command) (*execs.Result, error) {
		return nil, fmt.Errorf("%w: %s: executable file not found", execs.ErrCommandStart, cmd.Command)
	}
}

// Then runs fn for its side effect before delegating to h.
func Then(fn func(cmd *execs.Command) error, h Handler) Handler {
	return func(cmd *execs.Command) (*execs.Result, error) {
		if err := fn(cmd); err != nil {
			return nil, err
		}

		return h(cmd)
	}
}

// Symlink emulates "ln -sf <src> <dst>" with [os.Symlink].
func Symlink() Handler {
	return func(cmd *execs.Command) (*execs.Result, error) {
		if len(cmd.Args) != 3 {
			return nil, fmt.Errorf("%w: ln: unexpected args %v", execs.ErrCommandExecution, cmd.Args)
		}

		src, dst := cmd.Args[1], cmd.Args[2]

		err := os.Remove(dst)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: ln: %w", execs.ErrCommandExecution, err)
		}

		err = os.Symlink(src, dst)
		if err != nil {
			return nil, fmt.Errorf("%w: ln: %w", execs.ErrCommandExecution, err)
		}

		return &execs.Result{}, nil
	}
}
