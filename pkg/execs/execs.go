package execs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/hermitlink/pkg/log"
)

// Runner executes commands. [Executor] is the real implementation; tests use
// a fake that records invocations.
type Runner interface {
	Exec(ctx context.Context, cmd *Command) (*Result, error)
}

// Executor runs commands as child processes and waits for them to finish.
type Executor struct {
	tracer trace.Tracer
}

func NewExecutor() *Executor {
	return &Executor{
		tracer: otel.Tracer("executor"),
	}
}

// Exec starts cmd and blocks until it exits.
//
// A command that cannot be started returns [ErrCommandStart]. A command that
// exits non-zero or is killed by a signal returns [ErrCommandExecution]
// together with whatever output was captured.
func (e *Executor) Exec(ctx context.Context, cmd *Command) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "exec", trace.WithAttributes(
		attribute.String("command", cmd.String()),
		attribute.String("path", cmd.Dir),
	))
	defer span.End()

	if cmd.Command == "" {
		return nil, ErrEmptyCommand
	}

	logger := log.WithContext(ctx).With(
		slog.String("command", cmd.Key()),
		slog.String("path", cmd.Dir),
	)

	start := time.Now()

	//nolint:gosec // G204: Subprocess launched with a potential tainted input or cmd arguments.
	c := exec.CommandContext(ctx, cmd.Command, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = cmd.GetEnv()

	var stdout, stderr bytes.Buffer

	c.Stdout = &stdout
	if cmd.Stdout != nil {
		c.Stdout = cmd.Stdout
	}

	c.Stderr = &stderr
	if cmd.Stderr != nil {
		c.Stderr = cmd.Stderr
	}

	err := c.Start()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return nil, fmt.Errorf("%w: %s: %w", ErrCommandStart, cmd.Command, err)
	}

	err = c.Wait()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.DebugContext(ctx, "command failed",
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err),
		)

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return result, fmt.Errorf("%w: %s: %w", ErrCommandExecution, cmd.Key(), exitErr)
		}

		return result, fmt.Errorf("%w: %s: %w", ErrCommandExecution, cmd.Key(), err)
	}

	logger.DebugContext(ctx, "command executed successfully",
		slog.Duration("duration", time.Since(start)),
	)

	return result, nil
}
