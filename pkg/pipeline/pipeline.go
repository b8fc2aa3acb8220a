// Package pipeline orchestrates one build of the kernel: configuration
// checks, the inner build, publishing the library, and emitting the rebuild
// triggers and link directives.
//
// Every step runs to completion before the next one starts. Any failure
// aborts the run; there is no partial success.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/hermitlink/api/v1beta1/kernelconfigs"
	"github.com/macropower/hermitlink/pkg/artifact"
	"github.com/macropower/hermitlink/pkg/buildenv"
	"github.com/macropower/hermitlink/pkg/deptree"
	"github.com/macropower/hermitlink/pkg/directive"
	"github.com/macropower/hermitlink/pkg/execs"
	"github.com/macropower/hermitlink/pkg/expr"
	"github.com/macropower/hermitlink/pkg/kernel"
	"github.com/macropower/hermitlink/pkg/log"
	"github.com/macropower/hermitlink/pkg/preflight"
)

// ErrPrecondition is returned when the run cannot start: the configuration
// is incomplete, a preflight check fails, or the kernel source is missing.
var ErrPrecondition = errors.New("precondition failed")

// Result describes a completed run.
type Result struct {
	// Source is the located kernel source tree.
	Source *kernel.Source
	// Artifact is the published library.
	Artifact *artifact.Reference
	// Watch is the emitted set of rebuild triggers.
	Watch *deptree.WatchSet
	// Skipped is set when the target OS does not match and nothing ran.
	Skipped bool
}

// Pipeline runs the build steps in order.
type Pipeline struct {
	runner       execs.Runner
	directives   *directive.Writer
	tracer       trace.Tracer
	buildOutput  io.Writer
	kernelDir    string
	targetOS     string
	library      string
	environ      []string
	checks       []*preflight.Check
	builderOpts  []kernel.BuilderOpt
	computerOpts []deptree.ComputerOpt
}

// Opt configures a [Pipeline].
type Opt func(*Pipeline)

// WithKernelDir sets the kernel source root.
func WithKernelDir(dir string) Opt {
	return func(p *Pipeline) {
		p.kernelDir = dir
	}
}

// WithTargetOS sets the only host target OS the pipeline runs for.
func WithTargetOS(name string) Opt {
	return func(p *Pipeline) {
		if name != "" {
			p.targetOS = name
		}
	}
}

// WithLibrary sets the static library name.
func WithLibrary(name string) Opt {
	return func(p *Pipeline) {
		if name != "" {
			p.library = name
		}
	}
}

// WithPreflight sets the checks run before the build.
func WithPreflight(checks ...*preflight.Check) Opt {
	return func(p *Pipeline) {
		p.checks = checks
	}
}

// WithBuilderOpts passes options to the [kernel.Builder].
func WithBuilderOpts(opts ...kernel.BuilderOpt) Opt {
	return func(p *Pipeline) {
		p.builderOpts = append(p.builderOpts, opts...)
	}
}

// WithComputerOpts passes options to the [deptree.Computer].
func WithComputerOpts(opts ...deptree.ComputerOpt) Opt {
	return func(p *Pipeline) {
		p.computerOpts = append(p.computerOpts, opts...)
	}
}

// WithBuildOutput sets where the inner build's output is streamed. It must
// not be the directive stream.
func WithBuildOutput(w io.Writer) Opt {
	return func(p *Pipeline) {
		p.buildOutput = w
	}
}

// WithKernelConfig applies every setting of kc. The kernel directory is only
// taken from kc when one was not set before.
func WithKernelConfig(kc *kernelconfigs.KernelConfig) Opt {
	return func(p *Pipeline) {
		if p.kernelDir == "" {
			p.kernelDir = kc.KernelDir()
		}

		WithTargetOS(kc.Kernel.TargetOS)(p)
		WithLibrary(kc.Kernel.Library)(p)
		WithPreflight(kc.Preflight...)(p)
		WithBuilderOpts(
			kernel.WithPackage(kc.Kernel.Package),
			kernel.WithExtraArgs(kc.Kernel.XtaskArgs...),
		)(p)
		WithComputerOpts(
			deptree.WithManifests(kc.Watch.Manifests...),
			deptree.WithToolchainFile(kc.Watch.ToolchainFile),
			deptree.WithEnv(kc.Watch.Env...),
		)(p)
	}
}

// New creates a [Pipeline]. Directives are written to directives; environ is
// the process environment passed (sanitized) to subprocesses.
func New(runner execs.Runner, directives *directive.Writer, environ []string, opts ...Opt) *Pipeline {
	p := &Pipeline{
		runner:      runner,
		directives:  directives,
		tracer:      otel.Tracer("pipeline"),
		buildOutput: io.Discard,
		targetOS:    kernelconfigs.DefaultTargetOS,
		library:     artifact.DefaultLibrary,
		environ:     environ,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run performs one build for cfg.
func (p *Pipeline) Run(ctx context.Context, cfg *buildenv.Config) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.String("os", cfg.TargetOS),
		attribute.String("arch", cfg.TargetArch),
	))
	defer span.End()

	res, err := p.run(ctx, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return res, err
}

func (p *Pipeline) run(ctx context.Context, cfg *buildenv.Config) (*Result, error) {
	logger := log.WithContext(ctx)

	if cfg.TargetOS != p.targetOS {
		logger.InfoContext(ctx, "target os wrong",
			slog.String("got", cfg.TargetOS),
			slog.String("want", p.targetOS),
		)

		return &Result{Skipped: true}, nil
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrecondition, err)
	}

	err = p.preflight(ctx, cfg)
	if err != nil {
		return nil, err
	}

	src, err := kernel.Find(p.kernelDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrecondition, err)
	}

	builder := kernel.NewBuilder(src, p.runner, p.directives, p.environ,
		append([]kernel.BuilderOpt{kernel.WithOutput(p.buildOutput)}, p.builderOpts...)...)

	err = builder.Build(ctx, cfg)
	if err != nil {
		return nil, err //nolint:wrapcheck // Already wrapped by the builder.
	}

	ref, err := artifact.NewPublisher(p.runner, p.library, p.environ).Publish(ctx, cfg)
	if err != nil {
		return nil, err //nolint:wrapcheck // Sentinels from the artifact package.
	}

	set, err := p.emitWatch(ctx, cfg, src)
	if err != nil {
		return nil, err
	}

	err = ref.Emit(p.directives)
	if err != nil {
		return nil, err //nolint:wrapcheck // Write errors are already descriptive.
	}

	logger.InfoContext(ctx, "kernel linked",
		slog.String("library", ref.Published),
		slog.Int("triggers", set.Len()),
	)

	return &Result{Source: src, Artifact: ref, Watch: set}, nil
}

// Deps computes and emits only the rebuild triggers for the kernel. It needs
// nothing from cfg but the toolchain install root.
func (p *Pipeline) Deps(ctx context.Context, cfg *buildenv.Config) (*deptree.WatchSet, error) {
	src, err := kernel.Find(p.kernelDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrecondition, err)
	}

	return p.emitWatch(ctx, cfg, src)
}

// Watch computes the rebuild triggers without emitting them.
func (p *Pipeline) Watch(ctx context.Context, cfg *buildenv.Config) (*deptree.WatchSet, error) {
	src, err := kernel.Find(p.kernelDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrecondition, err)
	}

	set, err := p.computer(cfg).Compute(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("compute rebuild triggers: %w", err)
	}

	return set, nil
}

func (p *Pipeline) emitWatch(ctx context.Context, cfg *buildenv.Config, src *kernel.Source) (*deptree.WatchSet, error) {
	set, err := p.computer(cfg).Compute(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("compute rebuild triggers: %w", err)
	}

	err = set.Emit(p.directives)
	if err != nil {
		return nil, err //nolint:wrapcheck // Write errors are already descriptive.
	}

	return set, nil
}

func (p *Pipeline) computer(cfg *buildenv.Config) *deptree.Computer {
	return deptree.NewComputer(p.runner, cfg.CargoHome, p.environ, p.computerOpts...)
}

func (p *Pipeline) preflight(ctx context.Context, cfg *buildenv.Config) error {
	if len(p.checks) == 0 {
		return nil
	}

	r, err := preflight.NewRunner(p.checks)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPrecondition, err)
	}

	vars := cfg.Vars()
	vars[expr.VarKernel] = p.kernelDir

	err = r.Run(ctx, vars)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPrecondition, err)
	}

	return nil
}
