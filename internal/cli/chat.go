package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alanmeadows/chatwidget/internal/config"
)

var chatEphemeral bool

func init() {
	chatCmd.Flags().BoolVar(&chatEphemeral, "ephemeral", false, "Keep the conversation in memory only")
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Open the conversation and read messages from standard input.

The persisted transcript is restored first, so a conversation carries on
where it left off. Each line is sent as a message and the assistant's
reply is printed when it arrives. Lines starting with a slash are
commands:

  /clear    start over from the greeting
  /history  print the whole transcript again
  /quit     leave (the transcript stays saved)`,
	Example: `  chatwidget chat
  chatwidget chat --ephemeral`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *appConfig
		if chatEphemeral {
			cfg.Storage.Backend = config.StorageMemory
		}

		ctrl, closeSession, err := openSession(cmd.Context(), &cfg)
		if err != nil {
			return err
		}
		defer closeSession()

		out := cmd.OutOrStdout()
		printTranscript(out, ctrl.State().Messages)
		printHint(out, "Type a message, or /help for commands.")

		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			switch line {
			case "":
				continue
			case "/quit", "/exit":
				return nil
			case "/clear":
				ctrl.Clear()
				printTranscript(out, ctrl.State().Messages)
				continue
			case "/history":
				printTranscript(out, ctrl.State().Messages)
				continue
			case "/help":
				printHint(out, "/clear  /history  /quit")
				continue
			}

			if !ctrl.Send(line) {
				printHint(out, "Still waiting for the previous reply.")
				continue
			}
			printHint(out, "…")
			ctrl.Wait()

			msgs := ctrl.State().Messages
			printMessage(out, msgs[len(msgs)-1])
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send one message and print the reply",
	Long: `Append a message to the persisted conversation, wait for the
assistant, and print its reply. Multiple arguments are joined with spaces.`,
	Example: `  chatwidget send "How do I reset my password?"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, closeSession, err := openSession(cmd.Context(), appConfig)
		if err != nil {
			return err
		}
		defer closeSession()

		if !ctrl.Send(strings.Join(args, " ")) {
			return fmt.Errorf("message is empty")
		}
		ctrl.Wait()

		msgs := ctrl.State().Messages
		fmt.Fprintln(cmd.OutOrStdout(), msgs[len(msgs)-1].Content)
		return nil
	},
}
