package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Store contract, run against every backend ---

func testStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	const key = "chatwidget:transcript:v1"

	t.Run("load missing", func(t *testing.T) {
		_, err := s.Load(ctx, "chatwidget:missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save and load", func(t *testing.T) {
		value := []byte(`[{"role":"assistant","content":"hi"},{"role":"user","content":"hello"}]`)
		require.NoError(t, s.Save(ctx, key, value))

		got, err := s.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value, got)
	})

	t.Run("save overwrites", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, key, []byte(`first`)))
		require.NoError(t, s.Save(ctx, key, []byte(`second`)))

		got, err := s.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte(`second`), got)
	})

	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "chatwidget:a", []byte(`a`)))
		require.NoError(t, s.Save(ctx, "chatwidget:b", []byte(`b`)))
		require.NoError(t, s.Clear(ctx, "chatwidget:a"))

		_, err := s.Load(ctx, "chatwidget:a")
		assert.ErrorIs(t, err, ErrNotFound)
		got, err := s.Load(ctx, "chatwidget:b")
		require.NoError(t, err)
		assert.Equal(t, []byte(`b`), got)
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, key, []byte(`value`)))
		require.NoError(t, s.Clear(ctx, key))
		require.NoError(t, s.Clear(ctx, key))

		_, err := s.Load(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStoreContract(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestFileStoreContract(t *testing.T) {
	testStoreContract(t, NewFileStore(filepath.Join(t.TempDir(), "data")))
}

func TestSQLiteStoreContract(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "chatwidget.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	testStoreContract(t, s)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, s.Save(ctx, "k", value))
	value[0] = 'x'

	got, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got[0] = 'y'
	again, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatwidget.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "k", []byte("durable")))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("durable"), got)
}

// --- FileStore specifics ---

func TestFileStorePathSanitizesKey(t *testing.T) {
	s := NewFileStore("/data")
	assert.Equal(t, filepath.Join("/data", "chatwidget_transcript_v1.json"), s.Path("chatwidget:transcript:v1"))
	assert.Equal(t, filepath.Join("/data", "a_b.json"), s.Path("a/b"))
}

func TestFileStoreSaveCreatesDirectoryAndNoTempFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	s := NewFileStore(dir)

	require.NoError(t, s.Save(context.Background(), "k", []byte("v")))

	data, err := os.ReadFile(s.Path("k"))
	require.NoError(t, err)
	assert.Equal(t, "v", string(data))
	assert.False(t, Exists(s.Path("k")+".tmp"))
}

func TestFileStoreClearMissingDirectory(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "never-created"))
	assert.NoError(t, s.Clear(context.Background(), "k"))
}

func TestFileStoreSaveFailsWhenDirIsFile(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	s := NewFileStore(filepath.Join(blocker, "data"))
	err := s.Save(context.Background(), "k", []byte("v"))
	assert.Error(t, err)
}

// --- WithLock ---

func TestWithLockConcurrentAccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent")

	var counter int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := WithLock(context.Background(), path, 10*time.Second, func() error {
				val := atomic.LoadInt64(&counter)
				time.Sleep(time.Millisecond)
				atomic.StoreInt64(&counter, val+1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), atomic.LoadInt64(&counter))
}

func TestWithReadLockBasicOperation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readlocktest")

	called := false
	err := WithReadLock(context.Background(), path, DefaultLockTimeout, func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestWithLockTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeouttest")

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = WithLock(context.Background(), path, 10*time.Second, func() error {
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	called := false
	err := WithLock(context.Background(), path, 200*time.Millisecond, func() error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)

	close(release)
	<-done
}
