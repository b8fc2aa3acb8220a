// Package preflight evaluates user-defined CEL conditions against the build
// configuration before any subprocess runs.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"

	"github.com/macropower/hermitlink/pkg/expr"
	"github.com/macropower/hermitlink/pkg/log"
)

var (
	// ErrCheckFailed is returned when a check evaluates to false or cannot be
	// evaluated.
	ErrCheckFailed = errors.New("preflight check failed")

	// ErrInvalidCheck is returned when a check cannot be compiled.
	ErrInvalidCheck = errors.New("invalid preflight check")
)

// Check is a named boolean CEL expression.
type Check struct {
	program cel.Program

	// Name identifies the check in errors and logs.
	Name string `json:"name" jsonschema:"title=Name,required"`
	// Expr is a CEL expression that must evaluate to true.
	Expr string `json:"expr" jsonschema:"title=Expression,required"`
	// Message is shown when the check fails.
	Message string `json:"message,omitempty" jsonschema:"title=Message"`
}

// Compile compiles the expression. It is safe to call more than once.
func (c *Check) Compile(env *expr.Environment) error {
	if c.program != nil {
		return nil
	}

	if c.Expr == "" {
		return fmt.Errorf("%w %q: empty expression", ErrInvalidCheck, c.Name)
	}

	program, err := env.Compile(c.Expr)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidCheck, c.Name, err)
	}

	c.program = program

	return nil
}

// Eval evaluates the compiled check against vars.
func (c *Check) Eval(vars map[string]any) error {
	if c.program == nil {
		return fmt.Errorf("%w %q: not compiled", ErrInvalidCheck, c.Name)
	}

	result, _, err := c.program.Eval(vars)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCheckFailed, c.Name, err)
	}

	ok, isBool := result.Value().(bool)
	if !isBool {
		return fmt.Errorf("%w: %s: result is %s, not bool", ErrCheckFailed, c.Name, result.Type().TypeName())
	}

	if !ok {
		msg := c.Message
		if msg == "" {
			msg = c.Expr
		}

		return fmt.Errorf("%w: %s: %s", ErrCheckFailed, c.Name, msg)
	}

	return nil
}

// Runner compiles and evaluates a list of checks.
type Runner struct {
	env    *expr.Environment
	checks []*Check
}

// NewRunner compiles every check. Compile errors are configuration errors and
// are all reported together.
func NewRunner(checks []*Check) (*Runner, error) {
	env, err := expr.NewEnvironment()
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, c := range checks {
		errs = append(errs, c.Compile(env))
	}

	err = errors.Join(errs...)
	if err != nil {
		return nil, err
	}

	return &Runner{env: env, checks: checks}, nil
}

// Run evaluates the checks in order and stops at the first failure.
func (r *Runner) Run(ctx context.Context, vars map[string]any) error {
	logger := log.WithContext(ctx)

	for _, c := range r.checks {
		err := c.Eval(vars)
		if err != nil {
			return err
		}

		logger.DebugContext(ctx, "preflight check passed", slog.String("check", c.Name))
	}

	return nil
}

// Len returns the number of checks.
func (r *Runner) Len() int {
	return len(r.checks)
}
