package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alanmeadows/chatwidget/internal/chat"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// DefaultTimeout bounds a single completion round trip at the transport.
const DefaultTimeout = 60 * time.Second

// maxResponseBytes caps how much of a reply body is read.
const maxResponseBytes = 1 << 20

// HTTPConfig configures an HTTPClient.
type HTTPConfig struct {
	// URL is the completion endpoint.
	URL string
	// UserID is sent as "userId" when set; an empty value means anonymous.
	UserID string
	// Timeout applies when Client is nil. Zero selects DefaultTimeout.
	Timeout time.Duration
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

// HTTPClient implements Client against a JSON-over-HTTP endpoint.
type HTTPClient struct {
	url    string
	userID string
	http   *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient from cfg.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	httpClient := cfg.Client
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &HTTPClient{
		url:    cfg.URL,
		userID: cfg.UserID,
		http:   httpClient,
	}
}

type completionRequest struct {
	Messages []chat.Message `json:"messages"`
	UserID   string         `json:"userId,omitempty"`
}

// Complete posts the transcript and returns the assistant reply.
func (c *HTTPClient) Complete(ctx context.Context, messages []chat.Message) (chat.Message, error) {
	requestID := uuid.NewString()

	body, err := json.Marshal(completionRequest{Messages: messages, UserID: c.userID})
	if err != nil {
		return chat.Message{}, &Failure{Kind: FailureTransport, RequestID: requestID, Err: fmt.Errorf("encoding request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return chat.Message{}, &Failure{Kind: FailureTransport, RequestID: requestID, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	slog.Debug("requesting completion", "request_id", requestID, "messages", len(messages))

	resp, err := c.http.Do(req)
	if err != nil {
		return chat.Message{}, &Failure{Kind: FailureTransport, RequestID: requestID, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return chat.Message{}, &Failure{Kind: FailureTransport, RequestID: requestID, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f := &Failure{Kind: FailureRejected, StatusCode: resp.StatusCode, RequestID: requestID}
		if gjson.ValidBytes(raw) {
			f.Message = gjson.GetBytes(raw, "message").String()
		}
		return chat.Message{}, f
	}

	reply, err := parseReply(raw)
	if err != nil {
		if f, ok := err.(*Failure); ok {
			f.RequestID = requestID
		}
		return chat.Message{}, err
	}

	slog.Debug("completion received", "request_id", requestID, "chars", len(reply.Content))
	return reply, nil
}

// parseReply accepts only {"success": true, "response": "<non-blank>"}.
func parseReply(raw []byte) (chat.Message, error) {
	if !gjson.ValidBytes(raw) {
		return chat.Message{}, &Failure{Kind: FailureMalformed, Message: "response is not valid JSON"}
	}
	body := gjson.ParseBytes(raw)
	if !body.IsObject() {
		return chat.Message{}, &Failure{Kind: FailureMalformed, Message: "response is not a JSON object"}
	}

	if body.Get("success").Type != gjson.True {
		return chat.Message{}, &Failure{Kind: FailureRejected, Message: body.Get("message").String()}
	}

	text := body.Get("response")
	if text.Type != gjson.String || strings.TrimSpace(text.Str) == "" {
		return chat.Message{}, &Failure{Kind: FailureMalformed, Message: "response text missing"}
	}
	return chat.AssistantMessage(text.Str), nil
}
