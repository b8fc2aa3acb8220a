package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// envPrefix prefixes every flag's environment variable.
const envPrefix = "HERMITLINK"

type lookupFunc func(key string) (string, bool)

// bindEnvVars sets every flag of cmd that was not given on the command line
// from its HERMITLINK_<FLAG_NAME> environment variable, e.g. "kernel-dir"
// reads HERMITLINK_KERNEL_DIR. Precedence is flag, then environment, then
// default. The variable name is appended to each flag's usage.
func bindEnvVars(cmd *cobra.Command) {
	bindEnvVarsWith(cmd, os.LookupEnv)
}

func bindEnvVarsWith(cmd *cobra.Command, lookup lookupFunc) {
	bind := func(flag *pflag.Flag) {
		bindFlagToEnv(flag, lookup)
	}

	cmd.Flags().VisitAll(bind)
	cmd.PersistentFlags().VisitAll(bind)
}

func bindFlagToEnv(flag *pflag.Flag, lookup lookupFunc) {
	envName := FlagEnvName(flag.Name)

	if !strings.Contains(flag.Usage, envName) {
		flag.Usage = fmt.Sprintf("%s ($%s)", flag.Usage, envName)
	}

	if flag.Changed {
		return
	}

	value, ok := lookup(envName)
	if !ok {
		return
	}

	err := flag.Value.Set(value)
	if err != nil {
		// Keep the default rather than failing the build.
		slog.Error("set flag from environment variable",
			slog.String("flag", flag.Name),
			slog.String("env", envName),
			slog.String("value", value),
			slog.Any("err", err),
		)
	}
}

// FlagEnvName returns the environment variable bound to a flag name.
func FlagEnvName(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
