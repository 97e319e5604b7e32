package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alanmeadows/chatwidget/internal/chat"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	userLabel      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	hintStyle      = lipgloss.NewStyle().Faint(true)
)

func roleLabel(r chat.Role) string {
	if r == chat.RoleUser {
		return userLabel.Render("You")
	}
	return assistantLabel.Render("Assistant")
}

func printMessage(w io.Writer, m chat.Message) {
	fmt.Fprintf(w, "%s: %s\n", roleLabel(m.Role), m.Content)
}

func printTranscript(w io.Writer, msgs []chat.Message) {
	for _, m := range msgs {
		printMessage(w, m)
	}
}

func printHint(w io.Writer, text string) {
	fmt.Fprintln(w, hintStyle.Render(text))
}

// historyTable renders msgs as a numbered table.
func historyTable(msgs []chat.Message) *table.Table {
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	rows := make([][]string, 0, len(msgs))
	for i, m := range msgs {
		rows = append(rows, []string{strconv.Itoa(i + 1), string(m.Role), oneLine(m.Content, 72)})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "ROLE", "MESSAGE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// oneLine collapses whitespace and truncates s to at most max runes.
func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
