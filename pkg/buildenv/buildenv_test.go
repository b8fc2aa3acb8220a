package buildenv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/hermitlink/pkg/buildenv"
	"github.com/macropower/hermitlink/pkg/features"
)

func TestProfile_InnerName(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		profile buildenv.Profile
		want    string
	}{
		"debug maps to dev":      {profile: "debug", want: "dev"},
		"release is unchanged":   {profile: "release", want: "release"},
		"dev is unchanged":       {profile: "dev", want: "dev"},
		"custom is unchanged":    {profile: "bench-lto", want: "bench-lto"},
		"case sensitive":         {profile: "Debug", want: "Debug"},
		"empty maps to itself":   {profile: "", want: ""},
		"whitespace is retained": {profile: " debug", want: " debug"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := tc.profile.InnerName()
			assert.Equal(t, tc.want, got)
			// Deterministic.
			assert.Equal(t, got, tc.profile.InnerName())
		})
	}
}

func TestFromEnviron(t *testing.T) {
	t.Parallel()

	cfg := buildenv.FromEnviron([]string{
		"CARGO_CFG_TARGET_OS=hermit",
		"CARGO_CFG_TARGET_ARCH=x86_64",
		"PROFILE=debug",
		"OUT_DIR=/target/out",
		"CARGO_MANIFEST_DIR=/project",
		"CARGO_HOME=/home/u/.cargo",
		"CARGO_FEATURE_SMP=1",
		"CARGO_FEATURE_TCP=1",
		"CARGO_FEATURE_INSTRUMENT=1",
	})

	assert.Equal(t, "hermit", cfg.TargetOS)
	assert.Equal(t, "x86_64", cfg.TargetArch)
	assert.Equal(t, buildenv.ProfileDebug, cfg.Profile)
	assert.Equal(t, "/project", cfg.ManifestDir)
	assert.Equal(t, "/home/u/.cargo", cfg.CargoHome)
	assert.True(t, cfg.Instrument)
	assert.False(t, cfg.RandomizeLayout)
	assert.Equal(t, []features.Feature{features.SMP, features.TCP}, cfg.Features.Sorted())
	assert.Equal(t, "/target/out/hermit_kernel", cfg.OutputDir())
	assert.Equal(t, "/target/out/hermit_kernel/x86_64/debug", cfg.LibraryDir())
	require.NoError(t, cfg.Validate())

	vars := cfg.Vars()
	assert.Equal(t, "x86_64", vars["arch"])
	assert.Equal(t, []string{"smp", "tcp"}, vars["features"])
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	cfg := buildenv.FromEnviron([]string{
		"CARGO_CFG_TARGET_OS=hermit",
		"PROFILE=release",
	})

	err := cfg.Validate()
	require.ErrorIs(t, err, buildenv.ErrMissingVariable)
	assert.Contains(t, err.Error(), "CARGO_CFG_TARGET_ARCH")
	assert.Contains(t, err.Error(), "OUT_DIR")
	assert.Contains(t, err.Error(), "CARGO_MANIFEST_DIR")
	assert.NotContains(t, err.Error(), "PROFILE")
}
