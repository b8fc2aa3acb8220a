// Package artifact publishes the kernel's static library at a stable location
// and produces the link directives for it.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/hermitlink/pkg/buildenv"
	"github.com/macropower/hermitlink/pkg/directive"
	"github.com/macropower/hermitlink/pkg/execs"
	"github.com/macropower/hermitlink/pkg/log"
)

// DefaultLibrary is the kernel's static library name.
const DefaultLibrary = "hermit"

var (
	// ErrArtifactResolution is returned when the inner build reported success
	// but its output cannot be located.
	ErrArtifactResolution = errors.New("resolve artifact")

	// ErrPublish is returned when the symbolic link cannot be created.
	ErrPublish = errors.New("publish artifact")
)

// Reference is a non-owning alias from the published path to the artifact in
// the inner build's output tree.
type Reference struct {
	// Source is the artifact inside the inner build's output tree.
	Source string
	// Published is the symbolic link the outer build links against.
	Published string
	// SearchDir is the resolved directory holding Source.
	SearchDir string
	// Library is the library name used for linking.
	Library string
}

// Emit writes the link-search and link-lib directives.
func (r *Reference) Emit(w *directive.Writer) error {
	err := w.LinkSearchNative(r.SearchDir)
	if err != nil {
		return err
	}

	return w.LinkLibStatic(r.Library)
}

// FileName returns the archive name for library, e.g. "libhermit.a".
func FileName(library string) string {
	return "lib" + library + ".a"
}

// Publisher creates the symbolic link with "ln -sf".
type Publisher struct {
	runner  execs.Runner
	tracer  trace.Tracer
	library string
	environ []string
}

// NewPublisher creates a [Publisher] for library. An empty library means
// [DefaultLibrary].
func NewPublisher(runner execs.Runner, library string, environ []string) *Publisher {
	if library == "" {
		library = DefaultLibrary
	}

	return &Publisher{
		runner:  runner,
		tracer:  otel.Tracer("artifact-publisher"),
		library: library,
		environ: environ,
	}
}

// Resolve returns the canonical library directory for cfg. It must exist
// after a successful build.
func (p *Publisher) Resolve(cfg *buildenv.Config) (string, error) {
	dir, err := filepath.Abs(cfg.LibraryDir())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrArtifactResolution, err)
	}

	dir, err = filepath.EvalSymlinks(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrArtifactResolution, err)
	}

	return dir, nil
}

// Publish links the library into cfg's project root, replacing any previous
// link. The returned [Reference] must be refreshed after every build.
func (p *Publisher) Publish(ctx context.Context, cfg *buildenv.Config) (*Reference, error) {
	ctx, span := p.tracer.Start(ctx, "publish", trace.WithAttributes(
		attribute.String("library", p.library),
	))
	defer span.End()

	logger := log.WithContext(ctx)

	dir, err := p.Resolve(cfg)
	if err != nil {
		return nil, err
	}

	ref := &Reference{
		Source:    filepath.Join(dir, FileName(p.library)),
		Published: filepath.Join(cfg.ManifestDir, FileName(p.library)),
		SearchDir: dir,
		Library:   p.library,
	}

	info, err := os.Stat(ref.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactResolution, err)
	}

	logger.InfoContext(ctx, "kernel library available",
		slog.String("path", ref.Source),
		//nolint:gosec // G115: file sizes are non-negative.
		slog.String("size", humanize.Bytes(uint64(info.Size()))),
	)

	ln := execs.NewCommand("ln", p.environ)
	ln.AddArgs("-sf", ref.Source, ref.Published)

	_, err = p.runner.Exec(ctx, ln)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPublish, ref.Published, err)
	}

	logger.DebugContext(ctx, "published kernel library",
		slog.String("link", ref.Published),
		slog.String("target", ref.Source),
	)

	return ref, nil
}
