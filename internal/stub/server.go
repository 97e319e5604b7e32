// Package stub serves a local completion endpoint for developing against the
// widget without a real backend. It speaks the same wire format as the real
// endpoint and echoes the last user message.
package stub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alanmeadows/chatwidget/internal/chat"
)

// Options configures the stub endpoint.
type Options struct {
	// ReplyPrefix is prepended to the echoed user message.
	ReplyPrefix string
	// Delay holds every reply, to make the pending state visible.
	Delay time.Duration
}

type chatRequest struct {
	Messages []chat.Message `json:"messages"`
	UserID   string         `json:"userId,omitempty"`
}

type chatResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Message  string `json:"message,omitempty"`
}

// NewRouter wires the stub routes.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Post("/chat", handleChat(opts))
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

func handleChat(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSON(w, http.StatusBadRequest, chatResponse{Message: "invalid request body"})
			return
		}

		slog.Debug("stub request",
			"request_id", middleware.GetReqID(r.Context()),
			"messages", len(req.Messages),
			"user_id", req.UserID)

		last, ok := lastUserMessage(req.Messages)
		if !ok {
			respondJSON(w, http.StatusOK, chatResponse{Message: "no user message in request"})
			return
		}

		if opts.Delay > 0 {
			select {
			case <-time.After(opts.Delay):
			case <-r.Context().Done():
				return
			}
		}

		respondJSON(w, http.StatusOK, chatResponse{Success: true, Response: opts.ReplyPrefix + last.Content})
	}
}

func lastUserMessage(msgs []chat.Message) (chat.Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == chat.RoleUser && msgs[i].Validate() == nil {
			return msgs[i], true
		}
	}
	return chat.Message{}, false
}

func respondJSON(w http.ResponseWriter, status int, body chatResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("writing stub response failed", "error", err)
	}
}

// Serve runs handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	slog.Info("stub endpoint listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
