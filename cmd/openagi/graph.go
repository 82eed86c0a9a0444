package main

import (
	"fmt"

	"github.com/aretw0/openagi/internal/presentation/graph"
	"github.com/aretw0/openagi/pkg/domain"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [input text]",
	Short: "Export the workflow graph visualization",
	Long: `Outputs a Mermaid diagram of a workflow. By default the diagram shows the chain built
from the flags, like run and validate. With --workspace it shows a workspace from the shared
redis store. Nodes of the chain a run would use are highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		direction, _ := cmd.Flags().GetString("direction")
		if direction != graph.DirectionLR && direction != graph.DirectionTD {
			return fmt.Errorf("invalid direction %q: use %s or %s", direction, graph.DirectionLR, graph.DirectionTD)
		}

		var wf *domain.Workflow
		if id, _ := cmd.Flags().GetString("workspace"); id != "" {
			store, shared, cleanup, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()
			if shared == nil {
				return errNoSharedStore
			}
			if wf, err = store.Load(cmd.Context(), id); err != nil {
				return fmt.Errorf("error loading workspace '%s': %w", id, err)
			}
		} else if wf, err = chainFromFlags(cmd, args, cfg, cmd.InOrStdin()); err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(wf, direction, graph.Overlay(wf)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	addChainFlags(graphCmd)
	graphCmd.Flags().StringP("direction", "d", graph.DirectionLR, "Diagram direction (LR, TD)")
	graphCmd.Flags().StringP("workspace", "w", "", "Workspace id to load from the shared store")
}
