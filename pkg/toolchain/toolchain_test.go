package toolchain_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/hermitlink/pkg/toolchain"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	withTool := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(withTool, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(withTool, "bin", "cargo"), []byte("#!/bin/sh\n"), 0o755))

	withDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(withDir, "bin", "cargo"), 0o755))

	tcs := map[string]struct {
		root string
		want string
	}{
		"local installation preferred": {
			root: withTool,
			want: filepath.Join(withTool, "bin", "cargo"),
		},
		"falls back when missing": {
			root: t.TempDir(),
			want: "cargo",
		},
		"falls back when install root unset": {
			root: "",
			want: "cargo",
		},
		"directory with the tool name is not a tool": {
			root: withDir,
			want: "cargo",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, toolchain.Resolve(tc.root, toolchain.Tool))
		})
	}
}

func TestNewCommand(t *testing.T) {
	t.Parallel()

	cmd := toolchain.NewCommand("", []string{
		"CARGO=/usr/bin/cargo",
		"CARGO_HOME=/home/u/.cargo",
		"CARGO_FEATURE_TCP=1",
		"RUSTC=/usr/bin/rustc",
		"RUSTUP_TOOLCHAIN=nightly",
		"LD_LIBRARY_PATH=/toolchain/lib",
		"PATH=/usr/bin",
		"HERMIT_LOG_LEVEL_FILTER=debug",
		"MY_CARGO=kept",
	})

	assert.Equal(t, "cargo", cmd.Command)
	assert.Equal(t, []string{
		"HERMIT_LOG_LEVEL_FILTER=debug",
		"MY_CARGO=kept",
		"PATH=/usr/bin",
	}, cmd.GetEnv())
}
