package logging

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	"golang.org/x/term"
)

// Setup installs a charmbracelet/log handler writing to stderr as the global
// slog logger. Terminals get colored text, anything else gets JSON.
func Setup(verbose bool) {
	slog.SetDefault(slog.New(NewHandler(os.Stderr, verbose, isTerminal(os.Stderr))))
}

// NewHandler builds the handler used by Setup. Debug records are kept only
// when verbose is set.
func NewHandler(w io.Writer, verbose, tty bool) *charmlog.Logger {
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		Prefix:          "chatwidget",
	})

	if verbose {
		handler.SetLevel(charmlog.DebugLevel)
	} else {
		handler.SetLevel(charmlog.InfoLevel)
	}

	if !tty {
		handler.SetFormatter(charmlog.JSONFormatter)
	}
	return handler
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
