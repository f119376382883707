// Package main provides the devrun command-line interface: gated command
// execution, sequences, policy checks, tool calls and the HTTP server.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Cyclone1070/devrun/internal/config"
	"github.com/Cyclone1070/devrun/internal/supervisor"
	"github.com/Cyclone1070/devrun/internal/tool/service/executor"
)

func main() {
	err := newApp().Execute()
	if err != nil {
		var exitErr *executor.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.ExitCode > 0 {
				os.Exit(exitErr.ExitCode)
			}
			os.Exit(1)
		}
		var silent *silentExit
		if errors.As(err, &silent) {
			os.Exit(silent.code)
		}
		logrus.Fatal(err)
	}
}

// silentExit ends the process with code without printing anything more.
type silentExit struct {
	code int
}

func (e *silentExit) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// app carries state shared by every subcommand once flags are parsed.
type app struct {
	config *config.Config
	log    *logrus.Logger
	sup    *supervisor.Supervisor
}

func newApp() *cobra.Command {
	a := &app{log: logrus.StandardLogger()}

	rootCmd := &cobra.Command{
		Use:   "devrun",
		Short: "Run workstation commands behind a project allowlist",
		Example: `  Run the tests of the current project:
  $ devrun exec -- npm test

  Run a build pipeline, stopping at the first failure:
  $ devrun seq "npm ci" "npm run build" "npm test"

  Serve the tool API:
  $ devrun serve --addr 127.0.0.1:7878`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to the config file (default: ~/.config/devrun/config.json)")
	rootCmd.PersistentFlags().String("log-level", "", "Set the logging level [trace, debug, info, warn, error]")
	rootCmd.PersistentFlags().String("log-format", "", "Set the logging format [text, json]")
	rootCmd.PersistentFlags().Bool("debug", false, "Debug mode")
	rootCmd.PersistentFlags().StringP("project", "C", ".", "Project directory commands run in")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.setup(cmd)
	}

	rootCmd.AddCommand(
		newExecCommand(a),
		newSeqCommand(a),
		newCheckCommand(a),
		newCallCommand(a),
		newToolsCommand(a),
		newServeCommand(a),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	loader := config.NewLoader()
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = loader.LoadFrom(path)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.config = cfg

	if err := a.configureLogging(cmd, cmd.ErrOrStderr()); err != nil {
		return err
	}
	a.sup = supervisor.New(cfg, supervisor.WithLogger(a.log))
	return nil
}

// configureLogging applies config first, then --log-level, --log-format and
// --debug on top.
func (a *app) configureLogging(cmd *cobra.Command, out io.Writer) error {
	level := a.config.Log.Level
	if l, _ := cmd.Flags().GetString("log-level"); l != "" {
		level = l
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		lvl = logrus.DebugLevel
	}
	a.log.SetLevel(lvl)
	a.log.SetOutput(out)

	format := a.config.Log.Format
	if f, _ := cmd.Flags().GetString("log-format"); f != "" {
		format = f
	}
	switch strings.ToLower(format) {
	case "json":
		a.log.SetFormatter(new(logrus.JSONFormatter))
	case "text":
		a.log.SetFormatter(new(logrus.TextFormatter))
	default:
		return fmt.Errorf("unsupported log-format: %q", format)
	}
	return nil
}

func projectDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("project")
	return dir
}
