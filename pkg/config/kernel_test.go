package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/hermitlink/pkg/config"
)

const kernelConfig = `apiVersion: hermitlink.macropower.dev/v1beta1
kind: KernelConfig
kernel:
  path: ../kernel
`

func TestLoadKernelConfig(t *testing.T) {
	t.Parallel()

	t.Run("found walking up", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		path := writeFile(t, root, "hermitlink.yaml", kernelConfig)

		pkg := filepath.Join(root, "app")
		require.NoError(t, os.MkdirAll(pkg, 0o755))

		cfg, err := config.LoadKernelConfig("", pkg)
		require.NoError(t, err)
		assert.Equal(t, path, cfg.Path())
		assert.Equal(t, filepath.Join(filepath.Dir(root), "kernel"), cfg.KernelDir())
	})

	t.Run("explicit path", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, t.TempDir(), "custom.yaml", kernelConfig)

		cfg, err := config.LoadKernelConfig(path, "")
		require.NoError(t, err)
		assert.Equal(t, path, cfg.Path())
	})

	t.Run("explicit path missing", func(t *testing.T) {
		t.Parallel()

		_, err := config.LoadKernelConfig(filepath.Join(t.TempDir(), "missing.yaml"), "")
		require.ErrorIs(t, err, config.ErrKernelConfig)
	})

	t.Run("defaults without a file", func(t *testing.T) {
		t.Parallel()

		cfg, err := config.LoadKernelConfig("", "")
		require.NoError(t, err)
		assert.Empty(t, cfg.Path())
		assert.Empty(t, cfg.KernelDir())
		assert.Equal(t, "hermit", cfg.Kernel.TargetOS)
	})

	t.Run("invalid file", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, t.TempDir(), "hermitlink.yaml", "kind: KernelConfig\n")

		_, err := config.LoadKernelConfig(path, "")
		require.ErrorIs(t, err, config.ErrKernelConfig)
		assert.ErrorContains(t, err, path)
	})

	t.Run("duplicate check names", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, t.TempDir(), "hermitlink.yaml", kernelConfig+`preflight:
  - name: a
    expr: "true"
  - name: a
    expr: "false"
`)

		_, err := config.LoadKernelConfig(path, "")
		require.ErrorIs(t, err, config.ErrKernelConfig)
		assert.ErrorContains(t, err, "duplicate")
	})
}
