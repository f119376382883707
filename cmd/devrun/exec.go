package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/Cyclone1070/devrun/internal/tool/gateway"
	"github.com/Cyclone1070/devrun/internal/tool/service/executor"
)

// addRunFlags registers the flags shared by exec and seq. Flags must come
// before the command; everything from the first argument on belongs to it.
func addRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Duration("timeout", 0, "Timeout (default picked from the command)")
	flags.StringArrayP("env", "e", nil, "Set an environment variable (KEY=VALUE)")
	flags.StringArray("env-file", nil, "Load environment variables from a file")
	flags.Bool("commit", false, "Auto-commit after success when the project allows it")
	flags.StringP("message", "m", "", "Commit message overriding the project template")
	flags.Bool("json", false, "Print the result as JSON instead of streaming output")
}

func runOptions(cmd *cobra.Command) (gateway.RunOptions, error) {
	flags := cmd.Flags()
	timeout, _ := flags.GetDuration("timeout")
	envs, _ := flags.GetStringArray("env")
	envFiles, _ := flags.GetStringArray("env-file")
	commit, _ := flags.GetBool("commit")
	message, _ := flags.GetString("message")

	opts := gateway.RunOptions{
		WorkingDir:    projectDir(cmd),
		EnvFiles:      envFiles,
		Timeout:       timeout,
		Commit:        commit,
		CommitMessage: message,
	}
	if len(envs) > 0 {
		opts.Env = make(map[string]string, len(envs))
		for _, kv := range envs {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || k == "" {
				return opts, fmt.Errorf("invalid --env %q: want KEY=VALUE", kv)
			}
			opts.Env[k] = v
		}
	}
	return opts, nil
}

func newExecCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec [flags] -- COMMAND [ARGS...]",
		Short: "Run one allowlisted command",
		Example: `  $ devrun exec -- go test ./...
  $ devrun exec --timeout 10m --commit -- npm run build`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.execAction(cmd, args)
		},
	}
	addRunFlags(cmd)
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().String("mode", "auto", "Execution mode [auto, argv, shell]")
	cmd.Flags().Bool("bypass", false, "Skip the allowlist and metacharacter checks")
	return cmd
}

// commandLine rebuilds a command string. A single argument is taken as a
// complete command line; several are quoted individually.
func commandLine(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return shellescape.QuoteCommand(args)
}

func (a *app) execAction(cmd *cobra.Command, args []string) error {
	opts, err := runOptions(cmd)
	if err != nil {
		return err
	}
	modeFlag, _ := cmd.Flags().GetString("mode")
	if opts.Mode, err = executor.ParseMode(modeFlag); err != nil {
		return err
	}
	opts.Bypass, _ = cmd.Flags().GetBool("bypass")
	asJSON, _ := cmd.Flags().GetBool("json")
	if !asJSON {
		opts.Stream = cmd.OutOrStdout()
	}

	command := commandLine(args)
	res, err := a.sup.Gateway().Run(cmd.Context(), command, opts)
	if res == nil {
		return err
	}

	if asJSON {
		if encErr := writeJSON(cmd.OutOrStdout(), res); encErr != nil {
			return encErr
		}
	} else {
		a.summarize(cmd.ErrOrStderr(), res)
	}
	return err
}

// summarize reports what streaming output alone does not show.
func (a *app) summarize(w io.Writer, res *gateway.RunResult) {
	for _, note := range res.Notes {
		fmt.Fprintln(w, note)
	}
	if res.Truncated() {
		fmt.Fprintf(w, "devrun: output exceeded the capture limit of %s; only the tail was kept\n",
			units.BytesSize(float64(a.config.Exec.MaxStdoutBytes)))
	}
	if res.TimedOut {
		fmt.Fprintf(w, "devrun: timed out after %s\n", res.Duration.Round(time.Millisecond))
	}
	if c := res.Commit; c != nil {
		switch {
		case c.Committed:
			fmt.Fprintf(w, "devrun: committed %s\n", c.Hash)
		case c.Error != "":
			fmt.Fprintf(w, "devrun: auto-commit failed: %s\n", c.Error)
		case c.Skipped != "":
			fmt.Fprintf(w, "devrun: auto-commit skipped: %s\n", c.Skipped)
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
