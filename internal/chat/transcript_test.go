package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTranscriptHoldsOnlyGreeting(t *testing.T) {
	tr := NewTranscript("")

	msgs := tr.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleAssistant, msgs[0].Role)
	assert.Equal(t, DefaultGreeting, msgs[0].Content)
	assert.False(t, tr.Persistable())
}

func TestNewTranscriptCustomGreeting(t *testing.T) {
	tr := NewTranscript("Welcome back")
	assert.Equal(t, []Message{AssistantMessage("Welcome back")}, tr.Messages())
}

func TestAppendKeepsOrder(t *testing.T) {
	tr := NewTranscript("hi")
	tr.Append(UserMessage("one"))
	tr.Append(AssistantMessage("two"))
	tr.Append(UserMessage("three"))

	assert.Equal(t, []Message{
		AssistantMessage("hi"),
		UserMessage("one"),
		AssistantMessage("two"),
		UserMessage("three"),
	}, tr.Messages())
	assert.Equal(t, 4, tr.Len())
	assert.True(t, tr.Persistable())
}

func TestMessagesReturnsCopy(t *testing.T) {
	tr := NewTranscript("hi")
	tr.Append(UserMessage("question"))

	msgs := tr.Messages()
	msgs[1].Content = "tampered"

	assert.Equal(t, "question", tr.Messages()[1].Content)
}

func TestResetReturnsToGreeting(t *testing.T) {
	tr := NewTranscript("hi")
	tr.Append(UserMessage("question"))
	tr.Reset()

	assert.Equal(t, []Message{AssistantMessage("hi")}, tr.Messages())
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	in := []Message{
		AssistantMessage("hi"),
		UserMessage("What does the pro plan include?"),
		AssistantMessage("Unlimited projects and priority support."),
	}

	raw, err := Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"role":"assistant","content":"hi"},
		{"role":"user","content":"What does the pro plan include?"},
		{"role":"assistant","content":"Unlimited projects and priority support."}
	]`, string(raw))

	out, err := Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestUnmarshalRejectsInvalidInput(t *testing.T) {
	cases := map[string]string{
		"not json":         `{oops`,
		"object":           `{"role":"user","content":"hi"}`,
		"null":             `null`,
		"empty array":      `[]`,
		"string elements":  `["hello","world"]`,
		"missing role":     `[{"content":"hi"}]`,
		"missing content":  `[{"role":"assistant"}]`,
		"unknown role":     `[{"role":"system","content":"hi"}]`,
		"blank content":    `[{"role":"user","content":"   "}]`,
		"numeric content":  `[{"role":"user","content":42}]`,
		"one bad of many":  `[{"role":"assistant","content":"hi"},{"role":"user","content":""}]`,
		"null element":     `[{"role":"assistant","content":"hi"},null]`,
		"numeric role":     `[{"role":1,"content":"hi"}]`,
		"trailing garbage": `[{"role":"assistant","content":"hi"}] extra`,
		"single element":   `[{"role":"user","content":"orphan"}]`,
		"lone greeting":    `[{"role":"assistant","content":"hi"}]`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal([]byte(raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTranscript)
		})
	}
}

func TestDecodeMessagesAcceptsSingleMessage(t *testing.T) {
	msgs, err := DecodeMessages([]byte(`[{"role":"assistant","content":"hi"}]`))
	require.NoError(t, err)
	assert.Equal(t, []Message{AssistantMessage("hi")}, msgs)

	_, err = DecodeMessages([]byte(`[]`))
	assert.ErrorIs(t, err, ErrInvalidTranscript)
	_, err = DecodeMessages([]byte(`[{"role":"system","content":"x"}]`))
	assert.ErrorIs(t, err, ErrInvalidTranscript)
}

func TestRestoreRejectsSingleMessage(t *testing.T) {
	tr := NewTranscript("hi")
	err := tr.Restore([]byte(`[{"role":"user","content":"orphan"}]`))
	require.ErrorIs(t, err, ErrInvalidTranscript)

	assert.Equal(t, []Message{AssistantMessage("hi")}, tr.Messages())
}

func TestRestoreValid(t *testing.T) {
	tr := NewTranscript("hi")
	err := tr.Restore([]byte(`[{"role":"assistant","content":"hi"},{"role":"user","content":"hello"}]`))
	require.NoError(t, err)

	assert.Equal(t, []Message{AssistantMessage("hi"), UserMessage("hello")}, tr.Messages())
}

func TestRestoreCorruptFallsBackToGreeting(t *testing.T) {
	tr := NewTranscript("hi")
	tr.Append(UserMessage("before"))

	err := tr.Restore([]byte(`[{"role":"user"}]`))
	require.ErrorIs(t, err, ErrInvalidTranscript)

	assert.Equal(t, []Message{AssistantMessage("hi")}, tr.Messages())
}

func TestMessageValidate(t *testing.T) {
	assert.NoError(t, UserMessage("ok").Validate())
	assert.NoError(t, AssistantMessage("ok").Validate())
	assert.Error(t, Message{Role: "bot", Content: "ok"}.Validate())
	assert.Error(t, UserMessage("").Validate())
	assert.Error(t, AssistantMessage("\n\t").Validate())
}
