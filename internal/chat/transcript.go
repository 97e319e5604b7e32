package chat

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultGreeting opens every fresh transcript.
const DefaultGreeting = "Hi there! I'm your assistant. Ask me anything about the product, pricing, or your account."

// DefaultFallbackMessage is appended when a completion request fails for any reason.
const DefaultFallbackMessage = "Sorry, I couldn't get a response just now. Please try again in a moment, or contact support if the problem continues."

// ErrInvalidTranscript is returned when persisted data does not match the
// transcript schema.
var ErrInvalidTranscript = errors.New("invalid transcript")

// Transcript is the ordered message list of one chat session. It always holds
// at least the greeting. Transcript is not safe for concurrent use; callers
// serialize access.
type Transcript struct {
	greeting string
	messages []Message
}

// NewTranscript returns a transcript holding only the greeting. An empty
// greeting selects DefaultGreeting.
func NewTranscript(greeting string) *Transcript {
	if greeting == "" {
		greeting = DefaultGreeting
	}
	t := &Transcript{greeting: greeting}
	t.Reset()
	return t
}

// Append adds msg to the end of the transcript.
func (t *Transcript) Append(msg Message) {
	t.messages = append(t.messages, msg)
}

// Reset replaces the transcript with the single greeting.
func (t *Transcript) Reset() {
	t.messages = []Message{AssistantMessage(t.greeting)}
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Messages returns a copy of the messages in chronological order.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Persistable reports whether the transcript holds more than the greeting.
// A lone greeting is never written so "never chatted" and "chatted and
// cleared" stay distinguishable.
func (t *Transcript) Persistable() bool {
	return len(t.messages) >= 2
}

// Marshal encodes the transcript in its persisted form.
func (t *Transcript) Marshal() ([]byte, error) {
	return Marshal(t.messages)
}

// Restore replaces the transcript with the decoded contents of raw. When raw
// fails validation the transcript falls back to the greeting and the
// validation error is returned.
func (t *Transcript) Restore(raw []byte) error {
	msgs, err := Unmarshal(raw)
	if err != nil {
		t.Reset()
		return err
	}
	t.messages = msgs
	return nil
}

// Marshal encodes msgs as a JSON array of {role, content} objects.
func Marshal(msgs []Message) ([]byte, error) {
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("encoding transcript: %w", err)
	}
	return data, nil
}

// MinPersistedMessages is the shortest transcript that is ever persisted:
// the greeting plus at least one exchanged message.
const MinPersistedMessages = 2

// Unmarshal decodes a persisted transcript. The input must be a JSON array of
// at least MinPersistedMessages elements, each with a known role and
// non-blank content; anything else is rejected as a whole.
func Unmarshal(raw []byte) ([]Message, error) {
	return decode(raw, MinPersistedMessages)
}

// DecodeMessages is Unmarshal without the persisted length floor: any
// non-empty array of valid messages is accepted.
func DecodeMessages(raw []byte) ([]Message, error) {
	return decode(raw, 1)
}

func decode(raw []byte, min int) ([]Message, error) {
	var msgs []Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTranscript, err)
	}
	if err := ValidateMessages(msgs); err != nil {
		return nil, err
	}
	if len(msgs) < min {
		return nil, fmt.Errorf("%w: %d message(s), want at least %d", ErrInvalidTranscript, len(msgs), min)
	}
	return msgs, nil
}

// ValidateMessages checks that msgs is non-empty and every message is valid.
// Errors wrap ErrInvalidTranscript.
func ValidateMessages(msgs []Message) error {
	if len(msgs) == 0 {
		return fmt.Errorf("%w: no messages", ErrInvalidTranscript)
	}
	for i, m := range msgs {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("%w: message %d: %v", ErrInvalidTranscript, i, err)
		}
	}
	return nil
}
