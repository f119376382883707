package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSeqCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "seq COMMAND...",
		Short:   "Run commands in order, stopping at the first failure",
		Example: `  $ devrun seq "npm ci" "npm run build" "npm test"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.seqAction(cmd, args)
		},
	}
	addRunFlags(cmd)
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func (a *app) seqAction(cmd *cobra.Command, commands []string) error {
	opts, err := runOptions(cmd)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	if !asJSON {
		opts.Stream = cmd.OutOrStdout()
	}

	seq, err := a.sup.Gateway().RunSequence(cmd.Context(), commands, opts)
	if seq == nil {
		return err
	}
	if asJSON {
		if encErr := writeJSON(cmd.OutOrStdout(), seq); encErr != nil {
			return encErr
		}
		return err
	}

	w := cmd.ErrOrStderr()
	for i, step := range seq.Steps {
		status := "ok"
		if step.Error != "" {
			status = step.Error
		}
		fmt.Fprintf(w, "devrun: [%d/%d] %s: %s\n", i+1, len(commands), step.Command, status)
	}
	if skipped := len(commands) - len(seq.Steps); skipped > 0 {
		fmt.Fprintf(w, "devrun: %d command(s) not run\n", skipped)
	}
	if c := seq.Commit; c != nil && c.Committed {
		fmt.Fprintf(w, "devrun: committed %s\n", c.Hash)
	}
	return err
}
