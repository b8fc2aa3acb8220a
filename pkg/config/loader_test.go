package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/hermitlink/api/v1beta1/kernelconfigs"
	"github.com/macropower/hermitlink/pkg/config"
	"github.com/macropower/hermitlink/pkg/yaml"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestNewLoaderFromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	valid := writeFile(t, dir, "hermitlink.yaml", "apiVersion: hermitlink.macropower.dev/v1beta1\nkind: KernelConfig\n")

	tcs := map[string]struct {
		path    string
		wantErr bool
	}{
		"valid file":        {path: valid},
		"non-existent file": {path: filepath.Join(dir, "missing.yaml"), wantErr: true},
		"directory":         {path: dir, wantErr: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := config.NewLoaderFromFile(tc.path, kernelconfigs.New, kernelconfigs.DefaultValidator)
			if tc.wantErr {
				require.Error(t, err)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, got)
			}
		})
	}
}

func TestLoader_Validate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input   string
		errMsg  string
		wantErr bool
	}{
		"valid config": {
			input: `apiVersion: hermitlink.macropower.dev/v1beta1
kind: KernelConfig
kernel:
  path: ../kernel
preflight:
  - name: arch
    expr: arch == "x86_64"
`,
		},
		"invalid yaml": {
			input:   "apiVersion: [\n",
			wantErr: true,
		},
		"unknown field": {
			input: `apiVersion: hermitlink.macropower.dev/v1beta1
kind: KernelConfig
kernel:
  dir: ../kernel
`,
			wantErr: true,
			errMsg:  "$.kernel",
		},
		"wrong kind": {
			input: `apiVersion: hermitlink.macropower.dev/v1beta1
kind: Configuration
`,
			wantErr: true,
			errMsg:  "$.kind",
		},
		"check without expression": {
			input: `apiVersion: hermitlink.macropower.dev/v1beta1
kind: KernelConfig
preflight:
  - name: arch
`,
			wantErr: true,
			errMsg:  "$.preflight[0]",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			l := config.NewLoaderFromBytes([]byte(tc.input), kernelconfigs.New, kernelconfigs.DefaultValidator)

			err := l.Validate()
			if !tc.wantErr {
				require.NoError(t, err)

				return
			}

			var yamlErr *yaml.Error
			require.ErrorAs(t, err, &yamlErr)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	input := `apiVersion: hermitlink.macropower.dev/v1beta1
kind: KernelConfig
kernel:
  path: /src/kernel
  xtaskArgs: [--no-cpu-check]
watch:
  manifests: [Cargo.toml]
`

	cfg, err := config.NewLoaderFromBytes([]byte(input), kernelconfigs.New, nil).Load()
	require.NoError(t, err)

	assert.Equal(t, "hermitlink.macropower.dev/v1beta1", cfg.GetAPIVersion())
	assert.Equal(t, "KernelConfig", cfg.GetKind())
	assert.Equal(t, "/src/kernel", cfg.Kernel.Path)
	assert.Equal(t, []string{"--no-cpu-check"}, cfg.Kernel.XtaskArgs)
	assert.Equal(t, "xtask", cfg.Kernel.Package)
	assert.Equal(t, "hermit", cfg.Kernel.Library)
	assert.Equal(t, []string{"Cargo.toml"}, cfg.Watch.Manifests)
	assert.Equal(t, "rust-toolchain.toml", cfg.Watch.ToolchainFile)
	assert.Equal(t, []string{"HERMIT_LOG_LEVEL_FILTER"}, cfg.Watch.Env)
}

func TestLoader_LoadSyntaxError(t *testing.T) {
	t.Parallel()

	_, err := config.NewLoaderFromBytes([]byte("kernel: [\n"), kernelconfigs.New, nil, config.WithoutSource()).Load()
	require.Error(t, err)
}
