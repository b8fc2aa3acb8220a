package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewDepsCmd(ra *RootArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Print the rebuild triggers of the kernel without building it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := newSession(cmd, ra)

			kc, err := env.kernelConfig()
			if err != nil {
				return err
			}

			_, err = env.pipeline(kc).Deps(cmd.Context(), env.cfg)
			if err != nil {
				return fmt.Errorf("compute rebuild triggers: %w", err)
			}

			return nil
		},
	}

	bindEnvVars(cmd)

	return cmd
}
