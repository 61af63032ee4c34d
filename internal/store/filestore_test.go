package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	fs := NewFileStore(NewCodec(), 2*time.Second)
	return fs, filepath.Join(t.TempDir(), "orders.csv")
}

func TestWriteAllKeepsSingleBOM(t *testing.T) {
	fs, path := newTestFileStore(t)
	records := [][]string{{"reference", "name"}, {"CMD1", "Marie"}}

	// Repeated rewrites must never accumulate BOM bytes.
	for i := 0; i < 3; i++ {
		require.NoError(t, fs.WriteAll(path, records, true))
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, utf8BOM))
	assert.Equal(t, 1, bytes.Count(raw, utf8BOM))

	got, err := fs.ReadAll(path)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestWriteAllLeavesOriginalOnRenameFailure(t *testing.T) {
	fs, path := newTestFileStore(t)
	require.NoError(t, fs.WriteAll(path, [][]string{{"reference"}, {"CMD1"}}, true))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	fs.renameFn = func(oldpath, newpath string) error {
		return errors.New("simulated crash before rename")
	}
	err = fs.WriteAll(path, [][]string{{"reference"}, {"CMD2"}}, true)
	require.Error(t, err)

	after, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, before, after, "destination must be untouched")

	// The temp file is best-effort cleaned up.
	leftovers, globErr := filepath.Glob(filepath.Join(filepath.Dir(path), ".*.tmp"))
	require.NoError(t, globErr)
	assert.Empty(t, leftovers)
}

func TestAppendRowCreatesFileWithBOM(t *testing.T) {
	fs, path := newTestFileStore(t)

	require.NoError(t, fs.AppendRow(path, []string{"CMD1", "Marie"}))
	require.NoError(t, fs.AppendRow(path, []string{"CMD2", "Jean"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(raw, utf8BOM))
	assert.True(t, bytes.HasPrefix(raw, utf8BOM))

	got, err := fs.ReadAll(path)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestReadAllMissingFile(t *testing.T) {
	fs, path := newTestFileStore(t)
	_, err := fs.ReadAll(path)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadAllCorruptFile(t *testing.T) {
	fs, path := newTestFileStore(t)
	// An unterminated quote is beyond the codec's tolerance.
	require.NoError(t, os.WriteFile(path, []byte("a;\"b\nc;d\n"), 0o644))
	_, err := fs.ReadAll(path)
	assert.ErrorIs(t, err, ErrCorruptData)
}

func TestCreateRequiredFilesIdempotent(t *testing.T) {
	fs, path := newTestFileStore(t)
	headers := map[string][]string{path: {"reference", "name"}}

	require.NoError(t, fs.CreateRequiredFiles(headers))
	require.NoError(t, fs.AppendRow(path, []string{"CMD1", "Marie"}))

	// A second run must not overwrite the existing data.
	require.NoError(t, fs.CreateRequiredFiles(headers))
	got, err := fs.ReadAll(path)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestWithExclusiveLockTimesOut(t *testing.T) {
	fs, path := newTestFileStore(t)
	fs.lockTimeout = 200 * time.Millisecond

	holder := flock.New(path + ".lock")
	require.NoError(t, holder.Lock())
	defer holder.Unlock()

	err := fs.WithExclusiveLock(path, func() error { return nil })
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestWithExclusiveLockPropagatesError(t *testing.T) {
	fs, path := newTestFileStore(t)
	sentinel := errors.New("boom")
	err := fs.WithExclusiveLock(path, func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
}
