// Package session implements the chat-session engine mounted by the widget.
//
// A Controller owns one transcript. It accepts user input, keeps at most one
// completion request in flight, applies replies in the order requests were
// issued and persists the transcript through a store.Store after every
// applied change. Each request is tagged with the generation current when it
// was issued; a reply whose tag no longer matches (because the session was
// cleared or closed meanwhile) is dropped.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/alanmeadows/chatwidget/internal/chat"
	"github.com/alanmeadows/chatwidget/internal/completion"
	"github.com/alanmeadows/chatwidget/internal/store"
)

// DefaultKey is the persistence key for the transcript.
const DefaultKey = "chatwidget:transcript:v1"

// Options configures a Controller. Zero values select defaults.
type Options struct {
	// Key is the persistence key. Defaults to DefaultKey.
	Key string
	// Greeting opens every fresh transcript. Defaults to chat.DefaultGreeting.
	Greeting string
	// FallbackMessage is appended when a completion fails.
	// Defaults to chat.DefaultFallbackMessage.
	FallbackMessage string
	// OnChange, when set, is called with a snapshot after every state change.
	// Calls are serialized and never go back in time: a snapshot older than
	// one already delivered is dropped. OnChange may read State but must not
	// call Send, Clear or Restore.
	OnChange func(State)
}

// State is a read-only snapshot of a session.
type State struct {
	Messages   []chat.Message
	Pending    bool
	Generation uint64
	// Version increases with every state change, including applied replies.
	Version uint64
}

// Controller is the session state machine. It is safe for concurrent use.
type Controller struct {
	client completion.Client
	store  store.Store
	opts   Options

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	transcript *chat.Transcript
	pending    bool
	generation uint64
	version    uint64
	closed     bool

	// persistMu serializes writes so the last write always carries the
	// latest state.
	persistMu sync.Mutex
	inflight  sync.WaitGroup

	notifyMu      sync.Mutex
	lastDelivered uint64
}

// New mounts a session: it restores the persisted transcript under opts.Key
// when one exists and validates, and starts from the greeting otherwise.
// ctx bounds the session's requests; Close cancels it.
func New(ctx context.Context, client completion.Client, st store.Store, opts Options) *Controller {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.FallbackMessage == "" {
		opts.FallbackMessage = chat.DefaultFallbackMessage
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Controller{
		client:     client,
		store:      st,
		opts:       opts,
		ctx:        ctx,
		cancel:     cancel,
		transcript: chat.NewTranscript(opts.Greeting),
	}

	c.mu.Lock()
	c.restoreLocked()
	c.mu.Unlock()
	return c
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	return State{
		Messages:   c.transcript.Messages(),
		Pending:    c.pending,
		Generation: c.generation,
		Version:    c.version,
	}
}

// Send appends text as a user message and requests the assistant reply in
// the background. It returns false, changing nothing, when text is blank, a
// request is already pending, or the controller is closed.
func (c *Controller) Send(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	c.mu.Lock()
	if c.closed || c.pending {
		closed, pending := c.closed, c.pending
		c.mu.Unlock()
		slog.Debug("send rejected", "closed", closed, "pending", pending)
		return false
	}
	c.transcript.Append(chat.UserMessage(text))
	c.generation++
	gen := c.generation
	c.pending = true
	c.version++
	history := c.transcript.Messages()
	c.inflight.Add(1)
	snapshot := c.stateLocked()
	c.mu.Unlock()

	c.notify(snapshot)
	go c.request(gen, history)
	return true
}

func (c *Controller) request(gen uint64, history []chat.Message) {
	defer c.inflight.Done()

	c.persist()

	reply, err := c.client.Complete(c.ctx, history)
	if err == nil {
		if verr := reply.Validate(); verr != nil || reply.Role != chat.RoleAssistant {
			err = &completion.Failure{Kind: completion.FailureMalformed, Message: "client returned an unusable reply"}
		}
	}
	if err != nil {
		reply = chat.AssistantMessage(c.opts.FallbackMessage)
	}

	c.mu.Lock()
	if gen != c.generation || c.closed {
		c.mu.Unlock()
		slog.Debug("discarding stale completion", "generation", gen, "error", err)
		return
	}
	if err != nil {
		slog.Warn("completion failed; showing fallback message", "generation", gen, "error", err)
	}
	c.transcript.Append(reply)
	c.pending = false
	c.version++
	snapshot := c.stateLocked()
	c.mu.Unlock()

	c.persist()
	c.notify(snapshot)
}

// Clear resets the transcript to the greeting, invalidates any in-flight
// request and removes the persisted transcript.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.transcript.Reset()
	c.pending = false
	c.generation++
	c.version++
	snapshot := c.stateLocked()
	c.mu.Unlock()

	c.persist()
	c.notify(snapshot)
}

// Restore reloads the transcript from the store. It returns false while a
// request is pending or after Close.
func (c *Controller) Restore() bool {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	if c.closed || c.pending {
		c.mu.Unlock()
		return false
	}
	c.restoreLocked()
	c.version++
	snapshot := c.stateLocked()
	c.mu.Unlock()

	c.notify(snapshot)
	return true
}

// restoreLocked loads the persisted transcript. Missing, unreadable and
// invalid data all leave the greeting in place.
func (c *Controller) restoreLocked() {
	c.transcript.Reset()

	raw, err := c.store.Load(c.ctx, c.opts.Key)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		slog.Warn("loading persisted transcript failed", "key", c.opts.Key, "error", err)
		return
	}

	if err := c.transcript.Restore(raw); err != nil {
		slog.Warn("discarding invalid persisted transcript", "key", c.opts.Key, "error", err)
		if err := c.store.Clear(c.ctx, c.opts.Key); err != nil {
			slog.Warn("clearing invalid persisted transcript failed", "key", c.opts.Key, "error", err)
		}
		return
	}
	slog.Debug("restored transcript", "key", c.opts.Key, "messages", c.transcript.Len())
}

// persist writes the controller's current transcript, not a copy taken by
// the caller, so a save racing a clear can never resurrect cleared history.
// A transcript holding only the greeting is cleared rather than saved.
// Failures are logged and otherwise ignored.
func (c *Controller) persist() {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	persistable := c.transcript.Persistable()
	var raw []byte
	var err error
	if persistable {
		raw, err = c.transcript.Marshal()
	}
	c.mu.Unlock()

	if err != nil {
		slog.Warn("encoding transcript failed", "error", err)
		return
	}

	ctx := context.WithoutCancel(c.ctx)
	if persistable {
		err = c.store.Save(ctx, c.opts.Key, raw)
	} else {
		err = c.store.Clear(ctx, c.opts.Key)
	}
	if err != nil {
		slog.Warn("persisting transcript failed", "key", c.opts.Key, "error", err)
	}
}

// notify delivers s unless a newer snapshot has already gone out. The
// goroutines making changes race between taking a snapshot and getting here.
func (c *Controller) notify(s State) {
	if c.opts.OnChange == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if s.Version <= c.lastDelivered {
		slog.Debug("dropping superseded state notification", "version", s.Version, "delivered", c.lastDelivered)
		return
	}
	c.lastDelivered = s.Version
	c.opts.OnChange(s)
}

// Wait blocks until no completion request is running.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// Close unmounts the session: it stops accepting input, cancels in-flight
// requests and waits for them to finish. Their replies are discarded. The
// persisted transcript is left as is.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.inflight.Wait()
}
