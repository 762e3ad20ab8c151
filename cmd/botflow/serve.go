package main

import (
	"fmt"
	"net"

	"github.com/aretw0/botflow/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for the flow editor",
	Long: `Serves the flow document, the stored flows and server-side test sessions as a
JSON API, plus /metrics, /healthz and the OpenAPI description.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}

		b, err := openBackends()
		if err != nil {
			return err
		}
		defer b.Close()

		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
		if err != nil {
			return fmt.Errorf("failed to listen on port %d: %w", cfg.Server.Port, err)
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		api := cli.NewAPIServer(cfg, b, logger)
		return cli.Serve(sigCtx, ln, api.Handler(), logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (overrides server.port)")
}
