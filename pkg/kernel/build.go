package kernel

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/hermitlink/pkg/buildenv"
	"github.com/macropower/hermitlink/pkg/directive"
	"github.com/macropower/hermitlink/pkg/execs"
	"github.com/macropower/hermitlink/pkg/features"
	"github.com/macropower/hermitlink/pkg/log"
	"github.com/macropower/hermitlink/pkg/toolchain"
)

// DefaultPackage is the kernel workspace package that implements the build
// tool.
const DefaultPackage = "xtask"

// Builder runs the kernel's build tool.
type Builder struct {
	runner     execs.Runner
	directives *directive.Writer
	output     io.Writer
	tracer     trace.Tracer
	source     *Source
	pkg        string
	environ    []string
	extraArgs  []string
	allowlist  []features.Feature
	tailLines  int
}

// BuildError is returned when the inner build fails. It carries the last
// lines the build printed.
type BuildError struct {
	Err    error
	Output []string
}

func (e *BuildError) Error() string {
	msg := "kernel build: " + e.Err.Error()
	if len(e.Output) == 0 {
		return msg
	}

	return msg + "\n  " + strings.Join(e.Output, "\n  ")
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// BuilderOpt configures a [Builder].
type BuilderOpt func(*Builder)

// WithPackage overrides the build tool package.
func WithPackage(pkg string) BuilderOpt {
	return func(b *Builder) {
		if pkg != "" {
			b.pkg = pkg
		}
	}
}

// WithExtraArgs appends arguments after the translated configuration.
func WithExtraArgs(args ...string) BuilderOpt {
	return func(b *Builder) {
		b.extraArgs = args
	}
}

// WithTailLines sets how many lines of build output a [BuildError] keeps.
func WithTailLines(n int) BuilderOpt {
	return func(b *Builder) {
		b.tailLines = n
	}
}

// WithAllowlist overrides the forwarded feature allowlist.
func WithAllowlist(allowlist []features.Feature) BuilderOpt {
	return func(b *Builder) {
		b.allowlist = allowlist
	}
}

// WithOutput sets where the build tool's own output is streamed. It defaults
// to [io.Discard]; standard output must never be used since the host build
// reads directives from it.
func WithOutput(w io.Writer) BuilderOpt {
	return func(b *Builder) {
		b.output = w
	}
}

// NewBuilder creates a [Builder] for src. The environ is the caller's
// environment, which is sanitized by [toolchain.NewCommand].
func NewBuilder(src *Source, runner execs.Runner, directives *directive.Writer, environ []string, opts ...BuilderOpt) *Builder {
	b := &Builder{
		runner:     runner,
		directives: directives,
		output:     io.Discard,
		tracer:     otel.Tracer("kernel-builder"),
		source:     src,
		pkg:        DefaultPackage,
		environ:    environ,
		allowlist:  features.Allowlist,
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Command constructs the inner build invocation for cfg.
func (b *Builder) Command(cfg *buildenv.Config) *execs.Command {
	targetDir := cfg.OutputDir()

	cmd := toolchain.NewCommand(cfg.CargoHome, b.environ)
	cmd.Dir = b.source.Root()
	cmd.AddArgs(
		"run",
		"--package="+b.pkg,
		"--target-dir", targetDir,
		"--",
		"build",
		"--arch", cfg.TargetArch,
		"--profile", cfg.Profile.InnerName(),
		"--target-dir", targetDir,
	)
	cmd.AddArgs(features.ToggleArgs(cfg.Instrument, cfg.RandomizeLayout)...)
	cmd.AddArgs(features.NoDefaultFeatures)
	cmd.AddArgs(features.Args(b.allowlist, cfg.Features)...)
	cmd.AddArgs(b.extraArgs...)

	return cmd
}

// Build runs the inner build and waits for it. Any failure to start, non-zero
// exit, or signal termination is returned; there is no retry.
func (b *Builder) Build(ctx context.Context, cfg *buildenv.Config) error {
	ctx, span := b.tracer.Start(ctx, "build", trace.WithAttributes(
		attribute.String("arch", cfg.TargetArch),
		attribute.String("profile", cfg.Profile.InnerName()),
	))
	defer span.End()

	logger := log.WithContext(ctx)

	tail := log.NewTail(b.tailLines)

	cmd := b.Command(cfg)
	cmd.Stdout = io.MultiWriter(b.output, tail)
	cmd.Stderr = cmd.Stdout

	err := b.directives.Warning("$ " + cmd.String())
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "building kernel",
		slog.String("src", b.source.Root()),
		slog.String("arch", cfg.TargetArch),
		slog.String("profile", cfg.Profile.InnerName()),
		slog.Any("features", cfg.Features.Strings()),
	)

	start := time.Now()

	_, err = b.runner.Exec(ctx, cmd)
	if err != nil {
		return &BuildError{Err: err, Output: tail.Lines()}
	}

	logger.InfoContext(ctx, "kernel build finished",
		slog.Duration("duration", time.Since(start).Round(time.Millisecond)),
	)

	return nil
}
