package cli

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/alanmeadows/chatwidget/internal/chat"
)

var (
	historyJSONFlag bool
	clearYesFlag    bool
)

func init() {
	historyCmd.Flags().BoolVar(&historyJSONFlag, "json", false, "Print the transcript as JSON")
	clearCmd.Flags().BoolVarP(&clearYesFlag, "yes", "y", false, "Skip the confirmation prompt")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the saved conversation",
	Long: `Print the persisted transcript as a table, oldest message first.

A missing or unreadable transcript shows the greeting only.`,
	Example: `  chatwidget history
  chatwidget history --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, closeSession, err := openSession(cmd.Context(), appConfig)
		if err != nil {
			return err
		}
		defer closeSession()

		msgs := ctrl.State().Messages
		if historyJSONFlag {
			data, err := chat.Marshal(msgs)
			if err != nil {
				return fmt.Errorf("encoding transcript: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), historyTable(msgs))
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved conversation",
	Long: `Reset the conversation to the greeting and remove the persisted
transcript. Asks for confirmation unless --yes is given.`,
	Example: `  chatwidget clear
  chatwidget clear --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYesFlag {
			confirmed := false
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewConfirm().
						Title("Delete the saved conversation?").
						Affirmative("Delete").
						Negative("Keep").
						Value(&confirmed),
				),
			)
			if err := form.Run(); err != nil {
				return fmt.Errorf("form cancelled: %w", err)
			}
			if !confirmed {
				fmt.Fprintln(cmd.OutOrStdout(), "Kept the conversation.")
				return nil
			}
		}

		ctrl, closeSession, err := openSession(cmd.Context(), appConfig)
		if err != nil {
			return err
		}
		defer closeSession()

		ctrl.Clear()
		fmt.Fprintln(cmd.OutOrStdout(), "Conversation cleared.")
		return nil
	},
}
