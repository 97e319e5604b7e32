package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore keeps one JSON file per key under a data directory.
type FileStore struct {
	dir         string
	lockTimeout time.Duration
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a FileStore rooted at dir. The directory is created on
// first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, lockTimeout: DefaultLockTimeout}
}

// Dir returns the data directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file backing key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, fileName(key))
}

func (s *FileStore) Save(ctx context.Context, key string, value []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating data directory %s: %w", s.dir, err)
	}
	path := s.Path(key)
	return WithLock(ctx, path, s.lockTimeout, func() error {
		if err := atomicWriteFile(path, value, 0600); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return nil
	})
}

func (s *FileStore) Load(ctx context.Context, key string) ([]byte, error) {
	path := s.Path(key)
	if !Exists(path) {
		return nil, ErrNotFound
	}

	var data []byte
	err := WithReadLock(ctx, path, s.lockTimeout, func() error {
		var err error
		data, err = os.ReadFile(path)
		return err
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func (s *FileStore) Clear(ctx context.Context, key string) error {
	path := s.Path(key)
	if !Exists(path) {
		return nil
	}
	return WithLock(ctx, path, s.lockTimeout, func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", path, err)
		}
		return nil
	})
}

// fileName maps a namespaced key such as "chatwidget:transcript:v1" to a
// portable file name.
func fileName(key string) string {
	r := strings.NewReplacer(":", "_", "/", "_", `\`, "_", " ", "_")
	return r.Replace(key) + ".json"
}

// atomicWriteFile writes data to a temp file then renames it into place,
// preventing partial writes on crash or disk-full.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Exists checks if a file exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
