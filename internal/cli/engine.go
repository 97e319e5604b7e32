package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/alanmeadows/chatwidget/internal/completion"
	"github.com/alanmeadows/chatwidget/internal/config"
	"github.com/alanmeadows/chatwidget/internal/session"
	"github.com/alanmeadows/chatwidget/internal/store"
)

// sqliteFile is the database name used by the sqlite backend.
const sqliteFile = "chatwidget.db"

// openStore opens the configured persistence backend. The returned close
// function must be called when the store is no longer needed.
func openStore(cfg *config.Config) (store.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Backend {
	case config.StorageMemory:
		return store.NewMemoryStore(), noop, nil
	case config.StorageSQLite:
		s, err := store.NewSQLiteStore(filepath.Join(cfg.Storage.ResolveDir(), sqliteFile))
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, s.Close, nil
	case config.StorageFile, "":
		return store.NewFileStore(cfg.Storage.ResolveDir()), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func newClient(cfg *config.Config) completion.Client {
	return completion.NewHTTPClient(completion.HTTPConfig{
		URL:     cfg.Endpoint.URL,
		UserID:  cfg.Endpoint.UserID,
		Timeout: cfg.Endpoint.ParseTimeout(),
	})
}

func sessionOptions(cfg *config.Config) session.Options {
	return session.Options{
		Key:             cfg.Storage.Key,
		Greeting:        cfg.Widget.Greeting,
		FallbackMessage: cfg.Widget.FallbackMessage,
	}
}

// openSession mounts a controller over the configured store and endpoint.
// The returned function unmounts the controller and closes the store.
func openSession(ctx context.Context, cfg *config.Config) (*session.Controller, func(), error) {
	st, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	ctrl := session.New(ctx, newClient(cfg), st, sessionOptions(cfg))
	return ctrl, func() {
		ctrl.Close()
		if err := closeStore(); err != nil {
			slog.Warn("closing store failed", "error", err)
		}
	}, nil
}
