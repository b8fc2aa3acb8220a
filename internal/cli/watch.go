package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/macropower/hermitlink/pkg/pipeline"
)

type WatchArgs struct {
	*RootArgs

	Settle time.Duration
}

func NewWatchCmd(ra *RootArgs) *cobra.Command {
	wa := &WatchArgs{RootArgs: ra}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build the kernel, then rebuild whenever a rebuild trigger changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := newSession(cmd, ra)

			kc, err := env.kernelConfig()
			if err != nil {
				return err
			}

			w, err := pipeline.NewWatcher(env.pipeline(kc), pipeline.WithSettle(wa.Settle))
			if err != nil {
				return err //nolint:wrapcheck // Already descriptive.
			}

			err = w.Run(cmd.Context(), env.cfg)
			if err != nil {
				_ = w.Close()

				return fmt.Errorf("watch: %w", err)
			}

			return w.Close() //nolint:wrapcheck // Already descriptive.
		},
	}

	cmd.Flags().DurationVar(&wa.Settle, "settle", pipeline.DefaultSettle,
		"Quiet period after the last change before rebuilding")

	bindEnvVars(cmd)

	return cmd
}
