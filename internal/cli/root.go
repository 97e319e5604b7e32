package cli

import (
	"fmt"

	"github.com/alanmeadows/chatwidget/internal/config"
	"github.com/alanmeadows/chatwidget/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	appConfig  *config.Config

	rootCmd = &cobra.Command{
		Use:   "chatwidget",
		Short: "Chat with a support assistant from the terminal",
		Long: `chatwidget is a terminal front end for a hosted chat assistant.

It keeps a single conversation transcript, sends it to the configured
completion endpoint with every new message, and persists it between runs
so a conversation survives restarts. When the endpoint cannot be reached
a fixed fallback reply is shown instead.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSONC config file merged over the user config")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logging.Setup(verbose)
		// config set must work on a missing or broken config file.
		if cmd == configSetCmd {
			return nil
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		appConfig = cfg
		return nil
	}

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(stubCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
