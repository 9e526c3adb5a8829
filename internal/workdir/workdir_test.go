package workdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesDirectory(t *testing.T) {
	root := t.TempDir()

	w, err := New(root, "run-1", nil)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(w.Path) || filepath.Dir(w.Path) == root)

	info, err := os.Stat(w.Path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.False(t, w.Released())
}

func TestCleanupRemovesDirectoryAndIsIdempotent(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, "run-2", nil)
	require.NoError(t, err)

	require.NoError(t, w.Cleanup())
	_, statErr := os.Stat(w.Path)
	assert.True(t, os.IsNotExist(statErr))
	assert.True(t, w.Released())

	// Second call is a no-op, not an error.
	require.NoError(t, w.Cleanup())
}

func TestCleanupRunsHookExactlyOnce(t *testing.T) {
	root := t.TempDir()
	calls := 0

	w, err := New(root, "run-3", func(w *Workdir) error {
		calls++
		return os.WriteFile(filepath.Join(filepath.Dir(w.Path), "marker.txt"), []byte("ok"), 0o644)
	})
	require.NoError(t, err)

	require.NoError(t, w.Cleanup())
	require.NoError(t, w.Cleanup())

	assert.Equal(t, 1, calls)

	marker := filepath.Join(root, "marker.txt")
	_, err = os.Stat(marker)
	assert.NoError(t, err, "cleanup hook should have run before directory removal")
}

func TestCleanupHookErrorStillRemovesDirectory(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, "run-4", func(w *Workdir) error {
		return assert.AnError
	})
	require.NoError(t, err)

	err = w.Cleanup()
	assert.Error(t, err)

	_, statErr := os.Stat(w.Path)
	assert.True(t, os.IsNotExist(statErr))
	assert.True(t, w.Released())
}
