package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alanmeadows/chatwidget/internal/stub"
)

var (
	stubPort  int
	stubDelay time.Duration
)

func init() {
	stubCmd.Flags().IntVar(&stubPort, "port", 0, "Port to listen on (default from stub.port)")
	stubCmd.Flags().DurationVar(&stubDelay, "delay", 0, "Hold every reply for this long")
}

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Run a local completion endpoint for development",
	Long: `Serve POST /api/chat on localhost, answering in the completion wire
format by echoing the last user message. Point endpoint.url at it to try
the widget without a real backend. Stops on Ctrl-C.`,
	Example: `  chatwidget stub
  chatwidget stub --port 8080 --delay 2s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port := stubPort
		if port == 0 {
			port = appConfig.Stub.Port
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr := fmt.Sprintf("127.0.0.1:%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "Stub endpoint at http://%s/api/chat\n", addr)

		handler := stub.NewRouter(stub.Options{
			ReplyPrefix: appConfig.Stub.ReplyPrefix,
			Delay:       stubDelay,
		})
		return stub.Serve(ctx, addr, handler)
	},
}
