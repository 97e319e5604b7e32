package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/alanmeadows/chatwidget/internal/chat"
)

const exportTitle = "chatwidget transcript"

// ExportedTranscript is a transcript read back from an export document.
type ExportedTranscript struct {
	Title      string
	ExportedAt time.Time
	Messages   []chat.Message
}

// transcriptMatter is the YAML frontmatter of an export document. It carries
// the machine-readable copy of the conversation; the markdown body is for
// people and is ignored on import.
type transcriptMatter struct {
	Title        string          `yaml:"title"`
	ExportedAt   string          `yaml:"exported_at"`
	MessageCount int             `yaml:"message_count"`
	Messages     []messageRecord `yaml:"messages"`
}

type messageRecord struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
}

// ExportTranscript writes msgs to path as markdown with YAML frontmatter.
func ExportTranscript(path string, msgs []chat.Message, exportedAt time.Time) error {
	matter := transcriptMatter{
		Title:        exportTitle,
		ExportedAt:   exportedAt.UTC().Format(time.RFC3339),
		MessageCount: len(msgs),
		Messages:     make([]messageRecord, 0, len(msgs)),
	}
	for _, m := range msgs {
		matter.Messages = append(matter.Messages, messageRecord{Role: string(m.Role), Content: m.Content})
	}

	fm, err := yaml.Marshal(matter)
	if err != nil {
		return fmt.Errorf("marshaling frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n\n")
	buf.WriteString(renderTranscript(msgs))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	return atomicWriteFile(path, buf.Bytes(), 0644)
}

// ImportTranscript reads an export document. Its messages must pass the same
// per-message rules as a persisted transcript; one bad message rejects the
// whole document.
func ImportTranscript(path string) (*ExportedTranscript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading transcript %s: %w", path, err)
	}

	var matter transcriptMatter
	if _, err := frontmatter.Parse(bytes.NewReader(data), &matter); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, chat.ErrInvalidTranscript, err)
	}
	if len(matter.Messages) == 0 {
		return nil, fmt.Errorf("%s: no messages in frontmatter", path)
	}

	msgs := make([]chat.Message, 0, len(matter.Messages))
	for _, r := range matter.Messages {
		msgs = append(msgs, chat.Message{Role: chat.Role(r.Role), Content: r.Content})
	}
	if err := chat.ValidateMessages(msgs); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if matter.MessageCount != 0 && matter.MessageCount != len(msgs) {
		return nil, fmt.Errorf("%s: message_count is %d but %d messages found", path, matter.MessageCount, len(msgs))
	}

	// A missing or malformed timestamp leaves ExportedAt zero.
	exportedAt, _ := time.Parse(time.RFC3339, matter.ExportedAt)

	return &ExportedTranscript{
		Title:      matter.Title,
		ExportedAt: exportedAt,
		Messages:   msgs,
	}, nil
}

func renderTranscript(msgs []chat.Message) string {
	var b strings.Builder
	b.WriteString("# Chat transcript\n")
	for _, m := range msgs {
		speaker := "Assistant"
		if m.Role == chat.RoleUser {
			speaker = "You"
		}
		fmt.Fprintf(&b, "\n**%s**\n\n%s\n", speaker, strings.TrimSpace(m.Content))
	}
	return b.String()
}
