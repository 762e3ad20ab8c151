package main

import (
	"fmt"

	"github.com/aretw0/botflow/internal/cli"
	"github.com/aretw0/botflow/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [flow-file]",
	Short: "Export the flow as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph TD) of a flow file, a stored flow (--id) or the
current editor document. With --session, the path taken by that session is highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("session") {
			preferFileSessions()
		}
		b, err := openBackends()
		if err != nil {
			return err
		}
		defer b.Close()

		ctx := cmd.Context()
		sf, err := cli.ResolveFlow(ctx, b.Workspace(), flowSource(cmd, args))
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if sessionID, _ := cmd.Flags().GetString("session"); sessionID != "" {
			s, err := b.Sessions.Load(ctx, sessionID)
			if err != nil {
				return fmt.Errorf("failed to load session %q: %w", sessionID, err)
			}
			overlay = graph.OverlayFromSession(s)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(sf.FlowData, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Int64("id", 0, "Draw the stored flow of this id")
	graphCmd.Flags().String("session", "", "Highlight the path of this session")
}
