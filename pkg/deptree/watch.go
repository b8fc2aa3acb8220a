package deptree

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/hermitlink/pkg/directive"
	"github.com/macropower/hermitlink/pkg/execs"
	"github.com/macropower/hermitlink/pkg/kernel"
	"github.com/macropower/hermitlink/pkg/log"
	"github.com/macropower/hermitlink/pkg/toolchain"
)

// Defaults for [Computer].
var (
	DefaultManifests     = []string{kernel.ManifestFile, "hermit-builtins/" + kernel.ManifestFile}
	DefaultToolchainFile = "rust-toolchain.toml"
	DefaultEnv           = []string{"HERMIT_LOG_LEVEL_FILTER"}
)

// Kind selects the directive an [Entry] is emitted as.
type Kind int

const (
	// KindPath is a file or directory watched with rerun-if-changed.
	KindPath Kind = iota
	// KindEnv is an environment variable watched with rerun-if-env-changed.
	KindEnv
)

// Entry is a single rebuild trigger.
type Entry struct {
	Value string
	Kind  Kind
}

func (e Entry) String() string {
	if e.Kind == KindEnv {
		return directive.KeyRerunIfEnvChanged + "=" + e.Value
	}

	return directive.KeyRerunIfChanged + "=" + e.Value
}

// WatchSet is an insertion-ordered set of [Entry] values.
// The zero value is ready to use.
type WatchSet struct {
	seen    map[Entry]struct{}
	entries []Entry
}

// Add appends entries that are not yet in the set.
func (s *WatchSet) Add(entries ...Entry) {
	if s.seen == nil {
		s.seen = make(map[Entry]struct{})
	}

	for _, e := range entries {
		if _, ok := s.seen[e]; ok {
			continue
		}

		s.seen[e] = struct{}{}
		s.entries = append(s.entries, e)
	}
}

// AddPath adds a [KindPath] entry.
func (s *WatchSet) AddPath(path string) {
	s.Add(Entry{Kind: KindPath, Value: path})
}

// AddEnv adds a [KindEnv] entry.
func (s *WatchSet) AddEnv(name string) {
	s.Add(Entry{Kind: KindEnv, Value: name})
}

// Entries returns a copy of the entries in insertion order.
func (s *WatchSet) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)

	return out
}

// Paths returns the values of all [KindPath] entries.
func (s *WatchSet) Paths() []string {
	var out []string
	for _, e := range s.entries {
		if e.Kind == KindPath {
			out = append(out, e.Value)
		}
	}

	return out
}

// Len returns the number of entries.
func (s *WatchSet) Len() int {
	return len(s.entries)
}

// Strings renders every entry as its directive body, one per element.
func (s *WatchSet) Strings() []string {
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.String())
	}

	return out
}

// Emit writes one directive per entry.
func (s *WatchSet) Emit(w *directive.Writer) error {
	for _, e := range s.entries {
		var err error
		if e.Kind == KindEnv {
			err = w.RerunIfEnvChanged(e.Value)
		} else {
			err = w.RerunIfChanged(e.Value)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// EntriesFor returns the watch entries of a local dependency: its sources
// and manifest, plus its lock file and build script when they exist.
func EntriesFor(edge Edge) []Entry {
	entries := []Entry{
		{Kind: KindPath, Value: filepath.Join(edge.Path, "src")},
		{Kind: KindPath, Value: filepath.Join(edge.Path, kernel.ManifestFile)},
	}

	for _, name := range []string{"Cargo.lock", "build.rs"} {
		p := filepath.Join(edge.Path, name)
		if _, err := os.Stat(p); err == nil {
			entries = append(entries, Entry{Kind: KindPath, Value: p})
		}
	}

	return entries
}

// Computer runs the dependency-tree introspection and derives the
// [WatchSet].
type Computer struct {
	runner        execs.Runner
	tracer        trace.Tracer
	installRoot   string
	toolchainFile string
	environ       []string
	manifests     []string
	env           []string
}

// ComputerOpt configures a [Computer].
type ComputerOpt func(*Computer)

// WithManifests sets the manifests to query, relative to the kernel root.
// The kernel's top-level manifest must be among them to be watched.
func WithManifests(manifests ...string) ComputerOpt {
	return func(c *Computer) {
		if len(manifests) > 0 {
			c.manifests = manifests
		}
	}
}

// WithToolchainFile sets the toolchain pin file, relative to the kernel root.
// An empty name disables the entry.
func WithToolchainFile(name string) ComputerOpt {
	return func(c *Computer) {
		c.toolchainFile = name
	}
}

// WithEnv sets the environment variables that always trigger a rerun.
func WithEnv(names ...string) ComputerOpt {
	return func(c *Computer) {
		c.env = names
	}
}

// NewComputer creates a [Computer]. The installRoot and environ are passed to
// [toolchain.NewCommand].
func NewComputer(runner execs.Runner, installRoot string, environ []string, opts ...ComputerOpt) *Computer {
	c := &Computer{
		runner:        runner,
		tracer:        otel.Tracer("deptree-computer"),
		installRoot:   installRoot,
		environ:       environ,
		manifests:     DefaultManifests,
		toolchainFile: DefaultToolchainFile,
		env:           DefaultEnv,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Command returns the introspection command for manifest.
func (c *Computer) Command(src *kernel.Source, manifest string) *execs.Command {
	cmd := toolchain.NewCommand(c.installRoot, c.environ)
	cmd.Dir = src.Root()
	cmd.AddArgs("tree", "--manifest-path="+manifest, "--prefix=none", "--workspace")

	return cmd
}

// Edges queries a single manifest and returns its local dependencies.
func (c *Computer) Edges(ctx context.Context, src *kernel.Source, manifest string) ([]Edge, error) {
	res, err := c.runner.Exec(ctx, c.Command(src, manifest))
	if err != nil {
		return nil, fmt.Errorf("dependency tree of %s: %w", manifest, err)
	}

	return Parse(manifest, res.Stdout), nil
}

// Compute queries every configured manifest in order and returns the
// resulting [WatchSet]. A manifest is watched itself, followed by the entries
// of every local dependency it reaches. The toolchain pin file and the fixed
// environment variables come last.
//
// Sub-crate manifests that do not exist are skipped with a warning. Any
// failure of the introspection command is returned.
func (c *Computer) Compute(ctx context.Context, src *kernel.Source) (*WatchSet, error) {
	ctx, span := c.tracer.Start(ctx, "compute", trace.WithAttributes(
		attribute.StringSlice("manifests", c.manifests),
	))
	defer span.End()

	logger := log.WithContext(ctx)

	set := &WatchSet{}

	for _, rel := range c.manifests {
		manifest := src.Path(rel)
		if manifest != src.Manifest() {
			if _, err := os.Stat(manifest); err != nil {
				logger.WarnContext(ctx, "skipping missing manifest",
					slog.String("manifest", manifest),
					slog.Any("err", err),
				)

				continue
			}
		}

		edges, err := c.Edges(ctx, src, manifest)
		if err != nil {
			return nil, err
		}

		logger.DebugContext(ctx, "parsed dependency tree",
			slog.String("manifest", manifest),
			slog.Int("local", len(edges)),
		)

		set.AddPath(manifest)

		for _, edge := range edges {
			set.Add(EntriesFor(edge)...)
		}
	}

	if c.toolchainFile != "" {
		set.AddPath(src.Path(c.toolchainFile))
	}

	for _, name := range c.env {
		set.AddEnv(name)
	}

	span.SetAttributes(attribute.Int("entries", set.Len()))

	return set, nil
}
