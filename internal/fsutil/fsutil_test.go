package fsutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c.txt")
	require.NoError(t, WriteFile(path, []byte("x")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestWriteIfChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.html")

	written, err := WriteIfChanged(path, []byte("one"))
	require.NoError(t, err)
	assert.True(t, written)

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	written, err = WriteIfChanged(path, []byte("one"))
	require.NoError(t, err)
	assert.False(t, written)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old), "unchanged content must not touch the file")

	written, err = WriteIfChanged(path, []byte("two"))
	require.NoError(t, err)
	assert.True(t, written)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.sh")
	require.NoError(t, os.WriteFile(src, []byte("#!/bin/sh\n"), 0o755))

	dst := filepath.Join(dir, "out", "nested", "dst.sh")
	require.NoError(t, CopyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(data))

	assert.Error(t, CopyFile(filepath.Join(dir, "missing"), dst))
}
