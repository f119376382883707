package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Cyclone1070/devrun/internal/orchestrator/adapter"
)

func newCallCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "call TOOL [JSON-ARGS]",
		Short: "Invoke a tool with JSON arguments and print its JSON result",
		Example: `  $ devrun call run_command '{"command": "go vet ./..."}'
  $ echo '{"name": "web"}' | devrun call stop_server -`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tool, ok := adapter.Lookup(adapter.All(a.sup), args[0])
			if !ok {
				return fmt.Errorf("unknown tool %q (see `devrun tools`)", args[0])
			}

			raw := "{}"
			if len(args) == 2 {
				raw = args[1]
			}
			if raw == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				raw = string(data)
			}
			callArgs := map[string]any{}
			if strings.TrimSpace(raw) != "" {
				if err := json.Unmarshal([]byte(raw), &callArgs); err != nil {
					return fmt.Errorf("invalid JSON arguments: %w", err)
				}
			}

			out, err := tool.Execute(cmd.Context(), callArgs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newToolsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tools := adapter.All(a.sup)
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				defs := make([]adapter.ToolDefinition, 0, len(tools))
				for _, t := range tools {
					defs = append(defs, t.Definition())
				}
				return writeJSON(cmd.OutOrStdout(), defs)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 4, 8, 4, ' ', 0)
			fmt.Fprintln(w, "NAME\tDESCRIPTION")
			for _, t := range tools {
				fmt.Fprintf(w, "%s\t%s\n", t.Name(), t.Description())
			}
			return w.Flush()
		},
	}
	cmd.Flags().Bool("json", false, "Print the tool definitions as JSON")
	return cmd
}
