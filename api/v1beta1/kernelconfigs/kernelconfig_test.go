package kernelconfigs_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/hermitlink/api/v1beta1"
	"github.com/macropower/hermitlink/api/v1beta1/kernelconfigs"
	"github.com/macropower/hermitlink/pkg/preflight"
	"github.com/macropower/hermitlink/pkg/yaml"
)

func TestNew(t *testing.T) {
	t.Parallel()

	c := kernelconfigs.New()

	assert.Equal(t, v1beta1.APIVersion, c.GetAPIVersion())
	assert.Equal(t, "KernelConfig", c.GetKind())
	assert.Equal(t, "xtask", c.Kernel.Package)
	assert.Equal(t, "hermit", c.Kernel.Library)
	assert.Equal(t, "hermit", c.Kernel.TargetOS)
	assert.Empty(t, c.Kernel.Path)
	assert.Equal(t, []string{"Cargo.toml", "hermit-builtins/Cargo.toml"}, c.Watch.Manifests)
	assert.Equal(t, "rust-toolchain.toml", c.Watch.ToolchainFile)
	assert.Equal(t, []string{"HERMIT_LOG_LEVEL_FILTER"}, c.Watch.Env)
	require.NoError(t, c.Validate())
}

func TestKernelConfig_EnsureDefaults(t *testing.T) {
	t.Parallel()

	c := &kernelconfigs.KernelConfig{
		Kernel: &kernelconfigs.Kernel{Package: "buildtool"},
		Watch:  &kernelconfigs.Watch{Env: []string{}},
	}
	c.EnsureDefaults()

	assert.Equal(t, "buildtool", c.Kernel.Package)
	assert.Equal(t, "hermit", c.Kernel.Library)
	assert.Empty(t, c.Watch.Env)
	assert.Len(t, c.Watch.Manifests, 2)
}

func TestKernelConfig_Validate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		mutate  func(c *kernelconfigs.KernelConfig)
		wantErr error
	}{
		"defaults": {
			mutate: func(*kernelconfigs.KernelConfig) {},
		},
		"wrong kind": {
			mutate:  func(c *kernelconfigs.KernelConfig) { c.Kind = "Configuration" },
			wantErr: v1beta1.ErrTypeMeta,
		},
		"unnamed check": {
			mutate: func(c *kernelconfigs.KernelConfig) {
				c.Preflight = []*preflight.Check{{Expr: "true"}}
			},
			wantErr: kernelconfigs.ErrInvalid,
		},
		"duplicate check": {
			mutate: func(c *kernelconfigs.KernelConfig) {
				c.Preflight = []*preflight.Check{{Name: "a", Expr: "true"}, {Name: "a", Expr: "true"}}
			},
			wantErr: kernelconfigs.ErrInvalid,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c := kernelconfigs.New()
			tc.mutate(c)

			err := c.Validate()
			if tc.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestKernelConfig_KernelDir(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		configPath string
		kernelPath string
		want       string
	}{
		"unset":                     {want: ""},
		"absolute":                  {configPath: "/p/hermitlink.yaml", kernelPath: "/src/kernel", want: "/src/kernel"},
		"relative to config file":   {configPath: "/p/app/hermitlink.yaml", kernelPath: "../kernel", want: "/p/kernel"},
		"relative without a config": {kernelPath: "kernel", want: "kernel"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c := kernelconfigs.New()
			c.Kernel.Path = tc.kernelPath
			c.SetPath(tc.configPath)

			assert.Equal(t, tc.want, c.KernelDir())
		})
	}
}

func TestDefaultYAML(t *testing.T) {
	t.Parallel()

	var data any
	require.NoError(t, yaml.NewDecoder(bytes.NewReader(kernelconfigs.DefaultYAML())).Decode(&data))
	require.NoError(t, kernelconfigs.DefaultValidator.Validate(data))

	c := kernelconfigs.New()
	require.NoError(t, yaml.NewDecoder(bytes.NewReader(kernelconfigs.DefaultYAML())).Decode(c))
	c.EnsureDefaults()
	require.NoError(t, c.Validate())

	require.Len(t, c.Preflight, 1)
	assert.Equal(t, "supported-arch", c.Preflight[0].Name)
	assert.Equal(t, "../kernel", c.Kernel.Path)
}

func TestKernelConfig_MarshalYAML(t *testing.T) {
	t.Parallel()

	c := kernelconfigs.New()
	c.Kernel.Path = "/src/kernel"

	b, err := c.MarshalYAML()
	require.NoError(t, err)

	var data any
	require.NoError(t, yaml.NewDecoder(bytes.NewReader(b)).Decode(&data))
	require.NoError(t, kernelconfigs.DefaultValidator.Validate(data))
	assert.Contains(t, string(b), "path: /src/kernel")
	assert.Contains(t, string(b), "kind: KernelConfig")
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "hermitlink.yaml")
	require.NoError(t, kernelconfigs.WriteDefault(path, false))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, kernelconfigs.DefaultYAML(), got)

	found, err := kernelconfigs.Find(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, path, found)
}
