package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyTreePreservesStructureAndContent(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("top"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("nested"), 0o644))

	dst := filepath.Join(t.TempDir(), "out")
	require.NoError(t, copyTree(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "top", string(data))

	data, err = os.ReadFile(filepath.Join(dst, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "nested", string(data))
}

func TestCopyThenRemoveDeletesSource(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "f.txt"), []byte("data"), 0o644))

	dst := filepath.Join(t.TempDir(), "out")
	require.NoError(t, copyThenRemove(src, dst))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(filepath.Join(dst, "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestCollectTrajectoryMissingSourceIsNotError(t *testing.T) {
	trajRoot := t.TempDir()
	logDir := t.TempDir()

	err := collectTrajectory(trajRoot, "nonexistent-hash", logDir)
	assert.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(logDir, "traj"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCollectTrajectoryMovesExistingSource(t *testing.T) {
	trajRoot := t.TempDir()
	keyHash := "somekeyhash12345"
	src := filepath.Join(trajRoot, keyHash)
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "call.json"), []byte("{}"), 0o644))

	logDir := t.TempDir()
	require.NoError(t, collectTrajectory(trajRoot, keyHash, logDir))

	data, err := os.ReadFile(filepath.Join(logDir, "traj", "call.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	_, statErr := os.Stat(src)
	assert.True(t, os.IsNotExist(statErr))
}

func TestChownTreeSetsModeBits(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "d"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(root, "d", "f.txt"), []byte("x"), 0o600))

	require.NoError(t, chownTree(root, os.Geteuid(), os.Getegid()))

	info, err := os.Stat(filepath.Join(root, "d"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	info, err = os.Stat(filepath.Join(root, "d", "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestWriteInstanceInput(t *testing.T) {
	instPath := t.TempDir()
	inst := Instance{Ident: "inst-1"}

	require.NoError(t, writeInstanceInput(instPath, inst))

	data, err := os.ReadFile(filepath.Join(instPath, "instance.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"repo\"")
}
