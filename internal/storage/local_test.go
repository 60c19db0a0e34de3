package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalStorage(t *testing.T) *LocalStorageProvider {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestLocalStorage_StoreAndOpen(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	obj, err := s.Store(ctx, strings.NewReader("hello world"), "greeting.TXT")
	require.NoError(t, err)
	assert.Equal(t, int64(11), obj.Size)
	assert.True(t, strings.HasSuffix(obj.Handle, ".txt"))
	assert.NoError(t, ValidateHandle(obj.Handle))

	rc, err := s.Open(ctx, obj.Handle)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	exists, err := s.Exists(ctx, obj.Handle)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalStorage_StoreEmpty(t *testing.T) {
	s := newTestLocalStorage(t)

	obj, err := s.Store(context.Background(), bytes.NewReader(nil), "empty")
	require.NoError(t, err)
	assert.Equal(t, int64(0), obj.Size)
}

func TestLocalStorage_SameNameGetsDistinctHandles(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	a, err := s.Store(ctx, strings.NewReader("a"), "report.pdf")
	require.NoError(t, err)
	b, err := s.Store(ctx, strings.NewReader("b"), "report.pdf")
	require.NoError(t, err)

	assert.NotEqual(t, a.Handle, b.Handle)
}

func TestLocalStorage_CanceledStoreLeavesNothing(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Store(ctx, strings.NewReader("partial"), "x.bin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	objects, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestLocalStorage_OpenMissing(t *testing.T) {
	s := newTestLocalStorage(t)

	_, err := s.Open(context.Background(), "2024/01/doesnotexist.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_DeleteIsIdempotent(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	obj, err := s.Store(ctx, strings.NewReader("bye"), "bye.txt")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, obj.Handle))
	require.NoError(t, s.Delete(ctx, obj.Handle))

	exists, err := s.Exists(ctx, obj.Handle)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorage_RejectsEscapingHandles(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	for _, handle := range []string{"../etc/passwd", "/abs/path", "a//b", `a\b`, ""} {
		_, err := s.Open(ctx, handle)
		assert.ErrorIs(t, err, ErrInvalidHandle, handle)
		assert.ErrorIs(t, s.Delete(ctx, handle), ErrInvalidHandle, handle)
	}
}

func TestLocalStorage_List(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	a, err := s.Store(ctx, strings.NewReader("a"), "a.txt")
	require.NoError(t, err)
	_, err = s.Store(ctx, strings.NewReader("bb"), "b.txt")
	require.NoError(t, err)

	// Leftover temp files are not blobs
	require.NoError(t, os.WriteFile(filepath.Join(s.baseDir, ".upload-123"), []byte("x"), 0644))

	objects, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, objects, 2)

	prefix := a.Handle[:len("2006/01/")]
	objects, err = s.List(ctx, prefix)
	require.NoError(t, err)
	assert.Len(t, objects, 2)

	objects, err = s.List(ctx, "1999/")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorageProvider{}, p)

	_, err = NewProvider(context.Background(), Config{Provider: "ftp"})
	assert.Error(t, err)
}
