package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Cyclone1070/devrun/internal/tool/policy"
)

func newCheckCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check COMMAND",
		Short: "Report whether a command would be allowed in the project",
		Long:  "Report whether a command would be allowed in the project. Exits 1 when it would be rejected.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := commandLine(args)
			err := a.sup.Gateway().Check(command, projectDir(cmd))
			var v *policy.ViolationError
			switch {
			case err == nil:
				fmt.Fprintf(cmd.OutOrStdout(), "allowed: %s\n", command)
				return nil
			case errors.As(err, &v):
				fmt.Fprintf(cmd.OutOrStdout(), "rejected: %s\n", v.Error())
				return &silentExit{code: 1}
			}
			return err
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}
