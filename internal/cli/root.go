package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/macropower/hermitlink/pkg/log"
	"github.com/macropower/hermitlink/pkg/version"
)

const (
	cmdName = "hermitlink"
	cmdDesc = `Build the Hermit kernel and link it into the current crate.`

	cmdExamples = `  # Run as a build script (reads CARGO_* variables from the environment):
  hermitlink

  # Use an explicit kernel checkout and extra xtask arguments:
  hermitlink --kernel-dir ../kernel --xtask-args "--no-pie"

  # Print only the rebuild triggers:
  hermitlink deps

  # Rebuild whenever the kernel sources change:
  hermitlink watch

  # Write a default configuration file and exit:
  hermitlink --write-config`
)

type RootArgs struct {
	LogLevel   string
	LogFormat  string
	ConfigPath string
	KernelDir  string
	XtaskArgs  string
}

func NewRootArgs() *RootArgs {
	return &RootArgs{}
}

func (ra *RootArgs) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVar(&ra.LogLevel, "log-level", "info", fmt.Sprintf("Log level, one of: %s", log.AllLevels))
	cmd.PersistentFlags().
		StringVar(&ra.LogFormat, "log-format", "text", fmt.Sprintf("Log format, one of: %s", log.AllFormats))
	cmd.PersistentFlags().
		StringVar(&ra.ConfigPath, "config", "", "Path to the hermitlink configuration file")
	cmd.PersistentFlags().
		StringVar(&ra.KernelDir, "kernel-dir", "", "Path to the kernel source tree, overrides kernel.path")
	cmd.PersistentFlags().
		StringVar(&ra.XtaskArgs, "xtask-args", "", "Extra arguments for the kernel build, split like a shell would")

	var err error

	err = cmd.RegisterFlagCompletionFunc("log-format",
		cobra.FixedCompletions(log.AllFormats, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.RegisterFlagCompletionFunc("log-level",
		cobra.FixedCompletions(log.AllLevels, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.MarkPersistentFlagFilename("config", "yaml", "yml")
	if err != nil {
		panic(fmt.Errorf("mark config flag: %w", err))
	}

	err = cmd.MarkPersistentFlagDirname("kernel-dir")
	if err != nil {
		panic(fmt.Errorf("mark kernel-dir flag: %w", err))
	}
}

func NewRootCmd() *cobra.Command {
	args := NewRootArgs()
	buildArgs := NewBuildArgs(args)

	buildCmd := NewBuildCmd(buildArgs)
	cmd := &cobra.Command{
		Use:               cmdName,
		Short:             cmdDesc,
		Example:           cmdExamples,
		PersistentPreRunE: setupLogging(args),
		Args:              cobra.NoArgs,
		RunE:              buildCmd.RunE,
		SilenceUsage:      true,
	}

	args.AddFlags(cmd)
	buildArgs.AddFlags(cmd)
	cmd.AddCommand(
		buildCmd,
		NewDepsCmd(args),
		NewWatchCmd(args),
	)

	bindEnvVars(cmd)

	return cmd
}

// setupLogging installs the default logger. Logs always go to standard error
// since standard output carries the build directives.
func setupLogging(ra *RootArgs) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		logHandler, err := log.CreateHandlerWithStrings(cmd.ErrOrStderr(), ra.LogLevel, ra.LogFormat)
		if err != nil {
			return fmt.Errorf("create log handler: %w", err)
		}

		slog.SetDefault(slog.New(logHandler))
		slog.Debug("starting", slog.String("version", version.String()))

		return nil
	}
}
