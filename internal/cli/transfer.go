package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alanmeadows/chatwidget/internal/chat"
	"github.com/alanmeadows/chatwidget/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Write the conversation to a markdown file",
	Long: `Export the persisted transcript as markdown with YAML frontmatter.

The frontmatter carries the messages in machine-readable form, so the
file can be loaded again with 'chatwidget import'. The body is a readable
rendering of the same conversation.`,
	Example: `  chatwidget export ./support-chat.md`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, closeSession, err := openSession(cmd.Context(), appConfig)
		if err != nil {
			return err
		}
		defer closeSession()

		msgs := ctrl.State().Messages
		if err := store.ExportTranscript(args[0], msgs, time.Now()); err != nil {
			return fmt.Errorf("exporting transcript: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d messages to %s\n", len(msgs), args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Replace the conversation with an exported file",
	Long: `Load a transcript written by 'chatwidget export' and make it the
persisted conversation. The file is validated first; nothing is changed
when any message is invalid.`,
	Example: `  chatwidget import ./support-chat.md`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := store.ImportTranscript(args[0])
		if err != nil {
			return fmt.Errorf("importing transcript: %w", err)
		}

		st, closeStore, err := openStore(appConfig)
		if err != nil {
			return err
		}
		defer closeStore()

		if err := saveTranscript(cmd, st, appConfig.Storage.Key, doc.Messages); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d messages from %s\n", len(doc.Messages), args[0])
		return nil
	},
}

// saveTranscript writes msgs under key, clearing the key instead when msgs
// holds nothing beyond the greeting.
func saveTranscript(cmd *cobra.Command, st store.Store, key string, msgs []chat.Message) error {
	if len(msgs) < 2 {
		return st.Clear(cmd.Context(), key)
	}
	raw, err := chat.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encoding transcript: %w", err)
	}
	if err := st.Save(cmd.Context(), key, raw); err != nil {
		return fmt.Errorf("saving transcript: %w", err)
	}
	return nil
}
