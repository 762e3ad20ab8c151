package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/botflow/internal/cli"
	"github.com/aretw0/botflow/internal/config"
	"github.com/aretw0/botflow/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "botflow",
	Short: "botflow builds and test-drives chatbot conversation flows",
	Long: `botflow stores chatbot flows made of start, message and question blocks,
serves them to the visual editor over HTTP and lets you talk to them in the terminal.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Path to botflow.yaml")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().String("store", "", "Flow store driver: memory, sqlite or redis")
	rootCmd.PersistentFlags().String("sessions", "", "Session store driver: memory, file or redis")
}

// loadConfig reads botflow.yaml and the environment, then applies the flags
// that were set explicitly.
func loadConfig(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")

	loaded, err := config.Load(path)
	if err != nil {
		return err
	}

	if flags.Changed("log-level") {
		loaded.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		loaded.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("store") {
		v, _ := flags.GetString("store")
		loaded.Store.Driver = config.Driver(v)
	}
	if flags.Changed("sessions") {
		v, _ := flags.GetString("sessions")
		loaded.Sessions.Driver = config.Driver(v)
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(loaded.Log.Level)
	if err != nil {
		return err
	}
	cfg = loaded
	logger = logging.New(level, logging.Format(loaded.Log.Format))
	return nil
}

// openBackends opens the configured stores. The caller closes them.
func openBackends() (*cli.Backends, error) {
	return cli.OpenBackends(cfg, logger)
}

// flowSource reads the optional positional file argument and --id flag.
func flowSource(cmd *cobra.Command, args []string) cli.FlowSource {
	var src cli.FlowSource
	if len(args) > 0 {
		src.Path = args[0]
	}
	src.ID, _ = cmd.Flags().GetInt64("id")
	return src
}

// preferFileSessions switches in-memory sessions to the file store, for
// commands whose sessions must outlive the process.
func preferFileSessions() {
	if cfg.Sessions.Driver == config.DriverMemory {
		cfg.Sessions.Driver = config.DriverFile
	}
}
