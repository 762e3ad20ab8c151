package main

import (
	"os"

	"github.com/aretw0/botflow/internal/cli"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [flow-file]",
	Short: "Talk to a flow in the terminal",
	Long: `Runs a flow as the test bot would: bot messages are printed, questions wait for
a line of input. The flow comes from a JSON/YAML file, a stored flow (--id) or,
with neither, the current editor document.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		persist := flags.Changed("session") || flags.Changed("persist")
		if persist {
			preferFileSessions()
		}

		b, err := openBackends()
		if err != nil {
			return err
		}
		defer b.Close()

		opts := cli.ChatOptions{
			Source: flowSource(cmd, args),
			In:     cmd.InOrStdin(),
			Out:    cmd.OutOrStdout(),
		}
		opts.SessionID, _ = flags.GetString("session")
		opts.Persist = persist
		opts.JSON, _ = flags.GetBool("json")
		opts.TypingDelay, _ = flags.GetDuration("typing-delay")
		opts.Styled = !opts.JSON && cli.IsTerminal(os.Stdout)
		if plain, _ := flags.GetBool("plain"); plain {
			opts.Styled = false
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		return cli.RunChat(sigCtx, b, cli.NewEngine(cfg, logger, nil), opts, logger)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Int64("id", 0, "Chat with the stored flow of this id")
	chatCmd.Flags().String("session", "", "Session id; an unfinished session of this id is resumed")
	chatCmd.Flags().Bool("persist", false, "Save every turn to the session store")
	chatCmd.Flags().Bool("json", false, "Exchange JSON lines instead of text")
	chatCmd.Flags().Bool("plain", false, "Disable colours and markdown rendering")
	chatCmd.Flags().Duration("typing-delay", 0, "Pause before each bot message, e.g. 500ms")
}
