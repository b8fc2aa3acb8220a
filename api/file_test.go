package api_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/hermitlink/api"
)

func TestReadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "hermitlink.yaml")
	require.NoError(t, os.WriteFile(file, []byte("kind: KernelConfig\n"), 0o600))

	tcs := map[string]struct {
		path    string
		want    string
		wantErr bool
	}{
		"regular file": {path: file, want: "kind: KernelConfig\n"},
		"directory":    {path: dir, wantErr: true},
		"missing":      {path: filepath.Join(dir, "missing.yaml"), wantErr: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := api.ReadFile(tc.path)
			if tc.wantErr {
				require.Error(t, err)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	nested := filepath.Join(root, "crates", "app")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	rootConfig := filepath.Join(root, "hermitlink.yaml")
	require.NoError(t, os.WriteFile(rootConfig, nil, 0o600))

	crates := filepath.Join(root, "crates")
	hidden := filepath.Join(crates, ".hermitlink.yaml")
	plain := filepath.Join(crates, "hermitlink.yaml")
	require.NoError(t, os.WriteFile(hidden, nil, 0o600))
	require.NoError(t, os.WriteFile(plain, nil, 0o600))

	names := []string{".hermitlink.yaml", "hermitlink.yaml"}

	tcs := map[string]struct {
		target string
		want   string
	}{
		"walks up to nearest directory": {target: nested, want: hidden},
		"first name wins":               {target: crates, want: hidden},
		"file target starts at its dir": {target: rootConfig, want: rootConfig},
		"root directory":                {target: root, want: rootConfig},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := api.FindConfigFile(tc.target, names)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("missing target", func(t *testing.T) {
		t.Parallel()

		_, err := api.FindConfigFile(filepath.Join(root, "missing"), names)
		require.Error(t, err)
	})

	t.Run("nothing found", func(t *testing.T) {
		t.Parallel()

		got, err := api.FindConfigFile(t.TempDir(), []string{"hermitlink-does-not-exist.yaml"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestWriteDefaultFile(t *testing.T) {
	t.Parallel()

	t.Run("creates missing file and directories", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "a", "hermitlink.yaml")
		require.NoError(t, api.WriteDefaultFile(path, []byte("new"), false, "config"))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(got))
	})

	t.Run("keeps existing file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "hermitlink.yaml")
		require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))
		require.NoError(t, api.WriteDefaultFile(path, []byte("new"), false, "config"))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "old", string(got))
	})

	t.Run("force backs up existing file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "hermitlink.yaml")
		require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))
		require.NoError(t, api.WriteDefaultFile(path, []byte("new"), true, "config"))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(got))

		backups, err := filepath.Glob(filepath.Join(dir, "hermitlink.yaml.*.old"))
		require.NoError(t, err)
		require.Len(t, backups, 1)

		old, err := os.ReadFile(backups[0])
		require.NoError(t, err)
		assert.Equal(t, "old", string(old))
	})

	t.Run("directory in the way", func(t *testing.T) {
		t.Parallel()

		require.Error(t, api.WriteDefaultFile(t.TempDir(), []byte("new"), true, "config"))
	})
}

func TestMarshalYAML(t *testing.T) {
	t.Parallel()

	got, err := api.MarshalYAML(map[string]string{"kind": "KernelConfig"})
	require.NoError(t, err)
	assert.Equal(t, "kind: KernelConfig\n", string(got))
}
