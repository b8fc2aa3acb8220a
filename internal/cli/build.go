package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"

	"github.com/macropower/hermitlink/api/v1beta1/kernelconfigs"
	"github.com/macropower/hermitlink/pkg/buildenv"
	"github.com/macropower/hermitlink/pkg/config"
	"github.com/macropower/hermitlink/pkg/directive"
	"github.com/macropower/hermitlink/pkg/execs"
	"github.com/macropower/hermitlink/pkg/pipeline"
)

// ErrXtaskArgs is returned when --xtask-args cannot be split.
var ErrXtaskArgs = errors.New("invalid xtask arguments")

type BuildArgs struct {
	*RootArgs

	WriteConfig bool
	ShowConfig  bool
}

func NewBuildArgs(rootArgs *RootArgs) *BuildArgs {
	return &BuildArgs{
		RootArgs: rootArgs,
	}
}

func (ba *BuildArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&ba.WriteConfig, "write-config", false, "Write the default configuration file and exit")
	cmd.Flags().BoolVar(&ba.ShowConfig, "show-config", false, "Print the active configuration and exit")
}

func NewBuildCmd(ba *BuildArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Default command, build and link the kernel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, ba)
		},
	}
	ba.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func runBuild(cmd *cobra.Command, ba *BuildArgs) error {
	env := newSession(cmd, ba.RootArgs)

	if ba.WriteConfig {
		return writeConfig(ba.RootArgs, env.cfg)
	}

	kc, err := env.kernelConfig()
	if err != nil {
		return err
	}

	if ba.ShowConfig {
		slog.Info("active configuration", slog.String("path", kc.Path()))

		b, err := kc.MarshalYAML()
		if err != nil {
			return fmt.Errorf("marshal config yaml: %w", err)
		}

		_, err = cmd.OutOrStdout().Write(b)
		if err != nil {
			return fmt.Errorf("write to stdout: %w", err)
		}

		return nil
	}

	_, err = env.pipeline(kc).Run(cmd.Context(), env.cfg)
	if err != nil {
		return fmt.Errorf("build kernel: %w", err)
	}

	return nil
}

// session holds what every subcommand reads from the process.
type session struct {
	cmd     *cobra.Command
	args    *RootArgs
	cfg     *buildenv.Config
	environ []string
}

func newSession(cmd *cobra.Command, ra *RootArgs) *session {
	environ := os.Environ()

	return &session{
		cmd:     cmd,
		args:    ra,
		cfg:     buildenv.FromEnviron(environ),
		environ: environ,
	}
}

// searchDir is where the config file search starts: the crate being built,
// or the working directory outside of a build.
func (s *session) searchDir() string {
	if s.cfg.ManifestDir != "" {
		return s.cfg.ManifestDir
	}

	wd, err := os.Getwd()
	if err != nil {
		return ""
	}

	return wd
}

func (s *session) kernelConfig() (*kernelconfigs.KernelConfig, error) {
	kc, err := config.LoadKernelConfig(s.args.ConfigPath, s.searchDir())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pipeline.ErrPrecondition, err)
	}

	extra, err := shellwords.Parse(s.args.XtaskArgs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", pipeline.ErrPrecondition, ErrXtaskArgs, err)
	}

	kc.Kernel.XtaskArgs = append(kc.Kernel.XtaskArgs, extra...)

	return kc, nil
}

func (s *session) pipeline(kc *kernelconfigs.KernelConfig, opts ...pipeline.Opt) *pipeline.Pipeline {
	opts = append([]pipeline.Opt{
		pipeline.WithKernelDir(s.args.KernelDir),
		pipeline.WithKernelConfig(kc),
		pipeline.WithBuildOutput(s.cmd.ErrOrStderr()),
	}, opts...)

	return pipeline.New(
		execs.NewExecutor(),
		directive.NewWriter(s.cmd.OutOrStdout()),
		s.environ,
		opts...,
	)
}

func writeConfig(ra *RootArgs, cfg *buildenv.Config) error {
	path := ra.ConfigPath
	if path == "" {
		dir := cfg.ManifestDir
		if dir == "" {
			dir = "."
		}

		path = filepath.Join(dir, kernelconfigs.FileNames[1])
	}

	err := kernelconfigs.WriteDefault(path, false)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	slog.Info("wrote default configuration", slog.String("path", path))

	return nil
}
