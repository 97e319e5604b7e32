package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/alanmeadows/chatwidget/internal/chat"
	"github.com/alanmeadows/chatwidget/internal/session"
)

// Config is the top-level chatwidget configuration.
type Config struct {
	Endpoint EndpointConfig `json:"endpoint"`
	Storage  StorageConfig  `json:"storage"`
	Widget   WidgetConfig   `json:"widget"`
	Stub     StubConfig     `json:"stub"`
}

// EndpointConfig describes the completion endpoint.
type EndpointConfig struct {
	URL     string `json:"url"`
	Timeout string `json:"timeout"`
	// UserID is sent with every request when set. Empty means anonymous.
	UserID string `json:"user_id,omitempty"`
}

// ParseTimeout returns the request timeout as a time.Duration.
func (e EndpointConfig) ParseTimeout() time.Duration {
	d, err := time.ParseDuration(e.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// StorageBackend selects where the transcript is persisted.
type StorageBackend string

const (
	StorageFile   StorageBackend = "file"
	StorageSQLite StorageBackend = "sqlite"
	StorageMemory StorageBackend = "memory"
)

// Valid reports whether b names a known backend.
func (b StorageBackend) Valid() bool {
	switch b {
	case StorageFile, StorageSQLite, StorageMemory:
		return true
	}
	return false
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	Backend StorageBackend `json:"backend"`
	Dir     string         `json:"dir,omitempty"`
	Key     string         `json:"key"`
}

// ResolveDir returns the storage directory, defaulting to
// $XDG_DATA_HOME/chatwidget (or ~/.local/share/chatwidget). A leading ~ is
// expanded.
func (s StorageConfig) ResolveDir() string {
	if s.Dir != "" {
		return expandHome(s.Dir)
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "chatwidget")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "chatwidget")
	}
	return filepath.Join(home, ".local", "share", "chatwidget")
}

func expandHome(path string) string {
	if path != "~" && !hasHomePrefix(path) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

func hasHomePrefix(path string) bool {
	return len(path) >= 2 && path[0] == '~' && (path[1] == '/' || path[1] == filepath.Separator)
}

// WidgetConfig holds the fixed texts shown by the widget.
type WidgetConfig struct {
	Greeting        string `json:"greeting"`
	FallbackMessage string `json:"fallback_message"`
}

// StubConfig configures the local development endpoint.
type StubConfig struct {
	Port        int    `json:"port"`
	ReplyPrefix string `json:"reply_prefix"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Endpoint: EndpointConfig{
			URL:     "http://localhost:4180/api/chat",
			Timeout: "60s",
		},
		Storage: StorageConfig{
			Backend: StorageFile,
			Key:     session.DefaultKey,
		},
		Widget: WidgetConfig{
			Greeting:        chat.DefaultGreeting,
			FallbackMessage: chat.DefaultFallbackMessage,
		},
		Stub: StubConfig{
			Port:        4180,
			ReplyPrefix: "You said: ",
		},
	}
}
