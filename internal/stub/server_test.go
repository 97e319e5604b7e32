package stub

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alanmeadows/chatwidget/internal/chat"
	"github.com/alanmeadows/chatwidget/internal/completion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestChatEchoesLastUserMessage(t *testing.T) {
	h := NewRouter(Options{ReplyPrefix: "echo: "})

	rec := post(t, h, `{"messages":[
		{"role":"assistant","content":"Hi"},
		{"role":"user","content":"first"},
		{"role":"assistant","content":"ok"},
		{"role":"user","content":"second"}
	]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"response":"echo: second"}`, rec.Body.String())
}

func TestChatWithoutUserMessage(t *testing.T) {
	rec := post(t, NewRouter(Options{}), `{"messages":[{"role":"assistant","content":"Hi"}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"no user message in request"}`, rec.Body.String())
}

func TestChatRejectsInvalidBody(t *testing.T) {
	rec := post(t, NewRouter(Options{}), `not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestChatOnlyAcceptsPost(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	rec := httptest.NewRecorder()
	NewRouter(Options{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStubSpeaksCompletionProtocol(t *testing.T) {
	srv := httptest.NewServer(NewRouter(Options{ReplyPrefix: "You said: "}))
	defer srv.Close()

	client := completion.NewHTTPClient(completion.HTTPConfig{URL: srv.URL + "/api/chat", UserID: "u1"})
	reply, err := client.Complete(context.Background(), []chat.Message{
		chat.AssistantMessage(chat.DefaultGreeting),
		chat.UserMessage("Hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, chat.AssistantMessage("You said: Hello"), reply)
}

func TestServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, NewRouter(Options{})) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
