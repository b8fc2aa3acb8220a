package cli_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/hermitlink/internal/cli"
)

func TestBindEnvVars(t *testing.T) {
	tcs := map[string]struct {
		envVars       map[string]string
		wantKernelDir string
		wantLogLevel  string
		args          []string
	}{
		"environment variables are bound when no args provided": {
			envVars: map[string]string{
				"HERMITLINK_LOG_LEVEL":  "debug",
				"HERMITLINK_KERNEL_DIR": "/src/kernel",
			},
			args:          []string{},
			wantLogLevel:  "debug",
			wantKernelDir: "/src/kernel",
		},
		"command line args take precedence over environment variables": {
			envVars: map[string]string{
				"HERMITLINK_LOG_LEVEL":  "debug",
				"HERMITLINK_KERNEL_DIR": "/src/kernel",
			},
			args:          []string{"--log-level", "error", "--kernel-dir", "../kernel"},
			wantLogLevel:  "error",
			wantKernelDir: "../kernel",
		},
		"partial environment variable override": {
			envVars: map[string]string{
				"HERMITLINK_KERNEL_DIR": "/src/kernel",
			},
			args:          []string{"--log-level", "warn"},
			wantLogLevel:  "warn",
			wantKernelDir: "/src/kernel",
		},
		"no environment variables uses defaults": {
			envVars:       map[string]string{},
			args:          []string{},
			wantLogLevel:  "info",
			wantKernelDir: "",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			for key, val := range tc.envVars {
				t.Setenv(key, val)
			}

			cmd := cli.NewRootCmd()
			cmd.SetArgs(tc.args)

			err := cmd.ParseFlags(tc.args)
			require.NoError(t, err)

			logLevel, err := cmd.Flags().GetString("log-level")
			require.NoError(t, err)
			assert.Equal(t, tc.wantLogLevel, logLevel)

			kernelDir, err := cmd.Flags().GetString("kernel-dir")
			require.NoError(t, err)
			assert.Equal(t, tc.wantKernelDir, kernelDir)
		})
	}
}

func TestFlagEnvName(t *testing.T) {
	t.Parallel()

	tcs := map[string]string{
		"log-level":    "HERMITLINK_LOG_LEVEL",
		"config":       "HERMITLINK_CONFIG",
		"xtask-args":   "HERMITLINK_XTASK_ARGS",
		"write-config": "HERMITLINK_WRITE_CONFIG",
	}

	for flag, want := range tcs {
		t.Run(flag, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, want, cli.FlagEnvName(flag))
		})
	}
}

func TestEnvironmentVariableUsageUpdate(t *testing.T) {
	t.Parallel()

	cmd := cli.NewRootCmd()

	logLevelFlag := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, logLevelFlag)
	assert.Contains(t, logLevelFlag.Usage, "$HERMITLINK_LOG_LEVEL")

	writeConfigFlag := cmd.Flags().Lookup("write-config")
	require.NotNil(t, writeConfigFlag)
	assert.Contains(t, writeConfigFlag.Usage, "$HERMITLINK_WRITE_CONFIG")
}
