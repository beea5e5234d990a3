package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thedemonsid/quiz-app/models"
)

func docFromBytes(name string, data []byte) models.RawDocument {
	return models.NewRawDocumentFromReader(name, int64(len(data)), func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(string(data))), nil
	})
}

func TestStore_WritesArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	sm := NewFileStorageManager(dir, nil)

	stored, err := sm.Store(context.Background(), "req-1", docFromBytes("notes.pdf", []byte("%PDF-1.4 body")))
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(stored.Path))
	assert.True(t, strings.HasPrefix(stored.Key, "req-1_"))
	assert.True(t, strings.HasSuffix(stored.Key, "_notes.pdf"))
	assert.EqualValues(t, 13, stored.Size)

	data, err := os.ReadFile(stored.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))

	info, err := os.Stat(stored.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = os.Stat(stored.Path + partSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestStore_ConcurrentSameNameIsolated(t *testing.T) {
	sm := NewFileStorageManager(t.TempDir(), nil)

	const n = 16
	paths := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := []byte(strings.Repeat(string(rune('a'+i)), 1024))
			stored, err := sm.Store(context.Background(), "same-request", docFromBytes("quiz.pdf", body))
			if assert.NoError(t, err) {
				paths[i] = stored.Path
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i, p := range paths {
		require.NotEmpty(t, p)
		assert.False(t, seen[p], "path reused: %s", p)
		seen[p] = true

		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat(string(rune('a'+i)), 1024), string(data))
	}
}

func TestStore_PathTraversalStaysInDir(t *testing.T) {
	dir := t.TempDir()
	sm := NewFileStorageManager(dir, nil)

	for _, name := range []string{"../../etc/passwd", `..\..\windows\win.ini`, "/abs/path.pdf", "..", ""} {
		stored, err := sm.Store(context.Background(), "r", docFromBytes(name, []byte("x")))
		require.NoError(t, err, name)
		assert.Equal(t, dir, filepath.Dir(stored.Path), name)
	}
}

func TestStore_OpenFailureIsStorageError(t *testing.T) {
	sm := NewFileStorageManager(t.TempDir(), nil)
	doc := models.NewRawDocumentFromReader("a.pdf", 1, func() (io.ReadCloser, error) {
		return nil, os.ErrPermission
	})

	_, err := sm.Store(context.Background(), "r", doc)
	assert.ErrorIs(t, err, ErrStorage)
}

func TestStore_UnwritableDirIsStorageError(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	sm := NewFileStorageManager(filepath.Join(blocker, "uploads"), nil)
	_, err := sm.Store(context.Background(), "r", docFromBytes("a.pdf", []byte("x")))
	assert.ErrorIs(t, err, ErrStorage)
}

func TestStore_CanceledContext(t *testing.T) {
	sm := NewFileStorageManager(t.TempDir(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sm.Store(ctx, "r", docFromBytes("a.pdf", []byte("x")))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCleanup(t *testing.T) {
	sm := NewFileStorageManager(t.TempDir(), nil)
	stored, err := sm.Store(context.Background(), "r", docFromBytes("a.pdf", []byte("x")))
	require.NoError(t, err)

	sm.Cleanup(stored.Path)
	_, err = os.Stat(stored.Path)
	assert.True(t, os.IsNotExist(err))

	// Missing files and empty paths are ignored.
	sm.Cleanup(stored.Path)
	sm.Cleanup("")
}

func TestSweepStale(t *testing.T) {
	dir := t.TempDir()
	sm := NewFileStorageManager(dir, nil)

	old := time.Now().Add(-2 * time.Hour)
	for _, name := range []string{"old_a.pdf", "old_b.pdf" + partSuffix} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
		require.NoError(t, os.Chtimes(p, old, old))
	}
	fresh := filepath.Join(dir, "fresh.pdf")
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o700))

	removed, err := sm.SweepStale(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"fresh.pdf", "subdir"}, names)
}

func TestSweepStale_MissingDir(t *testing.T) {
	sm := NewFileStorageManager(filepath.Join(t.TempDir(), "nope"), nil)
	removed, err := sm.SweepStale(time.Minute)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestCheckWritable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	sm := NewFileStorageManager(dir, nil)
	require.NoError(t, sm.CheckWritable())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"notes.pdf", "notes.pdf"},
		{"my notes (final).pdf", "my_notes__final_.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\quiz.pdf`, "quiz.pdf"},
		{".hidden.pdf", "hidden.pdf"},
		{"...", "upload"},
		{"", "upload"},
		{"a/b/", "upload"},
		{strings.Repeat("x", 300) + ".pdf", strings.Repeat("x", 100)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.in))
		})
	}
}
