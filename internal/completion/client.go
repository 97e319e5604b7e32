// Package completion talks to the remote endpoint that produces assistant
// replies.
package completion

import (
	"context"
	"errors"
	"fmt"

	"github.com/alanmeadows/chatwidget/internal/chat"
)

// Client produces the next assistant message for a transcript.
type Client interface {
	// Complete sends the full transcript, which must end with the newly
	// appended user message, and returns the assistant reply. Every failure
	// is reported as a *Failure.
	Complete(ctx context.Context, messages []chat.Message) (chat.Message, error)
}

// ErrFailure matches every *Failure via errors.Is.
var ErrFailure = errors.New("completion failed")

// FailureKind records why a completion failed. Callers recover from every
// kind the same way; the kind is kept for logs.
type FailureKind string

const (
	// FailureTransport covers network errors and transport timeouts.
	FailureTransport FailureKind = "transport"
	// FailureRejected covers non-2xx statuses and {"success": false} bodies.
	FailureRejected FailureKind = "rejected"
	// FailureMalformed covers bodies that are not JSON or lack a reply.
	FailureMalformed FailureKind = "malformed"
)

// Failure is the single error type returned by Client implementations.
type Failure struct {
	Kind       FailureKind
	StatusCode int
	Message    string
	RequestID  string
	Err        error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("completion failed (%s)", f.Kind)
	if f.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", f.StatusCode)
	}
	if f.Message != "" {
		msg += ": " + f.Message
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func (f *Failure) Is(target error) bool {
	return target == ErrFailure
}
