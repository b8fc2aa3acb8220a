// Package kernelconfigs provides the KernelConfig configuration type.
//
// A KernelConfig is read from hermitlink.yaml or .hermitlink.yaml, found by
// walking up from the host package's directory.
package kernelconfigs

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/invopop/jsonschema"

	_ "embed"

	"github.com/macropower/hermitlink/api"
	"github.com/macropower/hermitlink/api/v1beta1"
	"github.com/macropower/hermitlink/pkg/artifact"
	"github.com/macropower/hermitlink/pkg/deptree"
	"github.com/macropower/hermitlink/pkg/kernel"
	"github.com/macropower/hermitlink/pkg/preflight"
	"github.com/macropower/hermitlink/pkg/yaml"
)

//go:generate go run ../../../internal/schemagen/main.go -o kernelconfigs.v1beta1.json

// Kind is the kind of [KernelConfig].
const Kind = "KernelConfig"

// DefaultTargetOS is the target OS the kernel is built for.
const DefaultTargetOS = "hermit"

var (
	// FileNames contains the valid names for kernel configuration files.
	FileNames = []string{
		".hermitlink.yaml",
		"hermitlink.yaml",
	}

	//go:embed kernelconfig.yaml
	defaultYAML []byte

	//go:embed kernelconfigs.v1beta1.json
	schemaJSON []byte

	// DefaultValidator validates kernel configuration against the JSON schema.
	DefaultValidator = yaml.MustNewValidator("/kernelconfigs.v1beta1.json", schemaJSON)

	// ValidKinds contains the valid kind values for kernel configurations.
	ValidKinds = []string{Kind}

	// ErrInvalid is returned by [KernelConfig.Validate].
	ErrInvalid = errors.New("invalid kernel config")

	// Compile-time interface checks.
	_ v1beta1.Object = (*KernelConfig)(nil)
)

// KernelConfig configures where the kernel lives and how it is built and
// watched.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type KernelConfig struct {
	// Kernel locates the kernel source tree and its build tool.
	Kernel *Kernel `json:"kernel,omitempty" jsonschema:"title=Kernel"`
	// Watch controls which files and variables trigger a rebuild.
	Watch *Watch `json:"watch,omitempty" jsonschema:"title=Watch"`
	// Preflight checks run before the kernel is built.
	Preflight []*preflight.Check `json:"preflight,omitempty" jsonschema:"title=Preflight"`

	v1beta1.TypeMeta `json:",inline"`

	// path is the file the config was loaded from, if any.
	path string
}

// Kernel locates the kernel source tree.
type Kernel struct {
	// Path is the kernel source root. Relative paths are resolved against the
	// directory containing the config file.
	Path string `json:"path,omitempty" jsonschema:"title=Path"`
	// Package is the workspace package implementing the build tool.
	Package string `json:"package,omitempty" jsonschema:"title=Package,minLength=1"`
	// Library is the static library name, without "lib" and ".a".
	Library string `json:"library,omitempty" jsonschema:"title=Library,minLength=1"`
	// TargetOS is the host target OS the kernel is built for. Other targets
	// are skipped.
	TargetOS string `json:"targetOS,omitempty" jsonschema:"title=Target OS,minLength=1"`
	// XtaskArgs are extra arguments appended to the build tool invocation.
	XtaskArgs []string `json:"xtaskArgs,omitempty" jsonschema:"title=Build Tool Arguments"`
}

// Watch controls the rebuild triggers.
type Watch struct {
	// Manifests are queried for local path dependencies, relative to the
	// kernel root.
	Manifests []string `json:"manifests,omitempty" jsonschema:"title=Manifests"`
	// ToolchainFile is the toolchain pin file, relative to the kernel root.
	ToolchainFile string `json:"toolchainFile,omitempty" jsonschema:"title=Toolchain File"`
	// Env lists environment variables that always trigger a rebuild.
	Env []string `json:"env,omitempty" jsonschema:"title=Environment Variables"`
}

// New creates a new [KernelConfig] with default values.
func New() *KernelConfig {
	c := &KernelConfig{
		TypeMeta: v1beta1.TypeMeta{
			APIVersion: v1beta1.APIVersion,
			Kind:       Kind,
		},
	}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults initializes unset fields to their default values.
func (c *KernelConfig) EnsureDefaults() {
	if c.Kernel == nil {
		c.Kernel = &Kernel{}
	}

	if c.Kernel.Package == "" {
		c.Kernel.Package = kernel.DefaultPackage
	}

	if c.Kernel.Library == "" {
		c.Kernel.Library = artifact.DefaultLibrary
	}

	if c.Kernel.TargetOS == "" {
		c.Kernel.TargetOS = DefaultTargetOS
	}

	if c.Watch == nil {
		c.Watch = &Watch{}
	}

	if c.Watch.ToolchainFile == "" {
		c.Watch.ToolchainFile = deptree.DefaultToolchainFile
	}

	if len(c.Watch.Manifests) == 0 {
		c.Watch.Manifests = append([]string(nil), deptree.DefaultManifests...)
	}

	if c.Watch.Env == nil {
		c.Watch.Env = append([]string(nil), deptree.DefaultEnv...)
	}
}

// Validate checks constraints the schema cannot express.
func (c *KernelConfig) Validate() error {
	err := c.Check(v1beta1.ValidAPIVersions, ValidKinds)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(c.Preflight))
	for i, check := range c.Preflight {
		if check == nil || check.Name == "" {
			return fmt.Errorf("%w: preflight[%d]: name is required", ErrInvalid, i)
		}

		if _, ok := seen[check.Name]; ok {
			return fmt.Errorf("%w: preflight[%d]: duplicate name %q", ErrInvalid, i, check.Name)
		}

		seen[check.Name] = struct{}{}
	}

	return nil
}

// SetPath records the file the config was loaded from.
func (c *KernelConfig) SetPath(path string) {
	c.path = path
}

// Path returns the file the config was loaded from, or an empty string.
func (c *KernelConfig) Path() string {
	return c.path
}

// KernelDir returns the kernel root, resolving relative paths against the
// config file's directory. It returns an empty string when unset.
func (c *KernelConfig) KernelDir() string {
	if c.Kernel == nil || c.Kernel.Path == "" {
		return ""
	}

	if filepath.IsAbs(c.Kernel.Path) || c.path == "" {
		return c.Kernel.Path
	}

	return filepath.Join(filepath.Dir(c.path), c.Kernel.Path)
}

func (c KernelConfig) JSONSchemaExtend(jss *jsonschema.Schema) {
	v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, ValidKinds)
}

// MarshalYAML serializes the config to YAML.
func (c KernelConfig) MarshalYAML() ([]byte, error) {
	type alias KernelConfig

	b, err := api.MarshalYAML(alias(c))
	if err != nil {
		return nil, fmt.Errorf("marshal kernel config: %w", err)
	}

	return b, nil
}

// WriteDefault writes the embedded default kernel config to path.
func WriteDefault(path string, force bool) error {
	err := api.WriteDefaultFile(path, defaultYAML, force, "kernel config")
	if err != nil {
		return fmt.Errorf("write default kernel config: %w", err)
	}

	return nil
}

// DefaultYAML returns the embedded default kernel config.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultYAML...)
}

// Find searches for a kernel config file starting from targetPath and walking
// up the directory tree until the filesystem root. It returns an empty string
// if none is found.
func Find(targetPath string) (string, error) {
	path, err := api.FindConfigFile(targetPath, FileNames)
	if err != nil {
		return "", fmt.Errorf("find kernel config: %w", err)
	}

	return path, nil
}
