package persist

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileSystemStoreEmptyBasePath(t *testing.T) {
	_, err := NewFileSystemStore("")
	assert.Error(t, err, "Empty base path should be rejected")

	_, err = NewFileSystemStore("   ")
	assert.Error(t, err, "Whitespace base path should be rejected")
}

func TestFileSystemStorePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file permission bits are not meaningful on Windows")
	}

	baseDir := filepath.Join(t.TempDir(), "docs")
	store, err := NewFileSystemStore(baseDir)
	require.NoError(t, err)

	info, err := os.Stat(baseDir)
	require.NoError(t, err)
	assert.Equal(t, DirPermissions, info.Mode().Perm(), "Base directory should be owner-only")

	_, err = store.Save("app.yaml", []byte("key: value\n"), "")
	require.NoError(t, err)

	info, err = os.Stat(filepath.Join(baseDir, "app.yaml"))
	require.NoError(t, err)
	assert.Equal(t, FilePermissions, info.Mode().Perm(), "Documents should be owner-only")
}

func TestFileSystemStoreNestedDirectories(t *testing.T) {
	baseDir := t.TempDir()
	store, err := NewFileSystemStore(baseDir)
	require.NoError(t, err)

	_, err = store.Save("a/b/c.txt", []byte("nested"), "")
	require.NoError(t, err)

	data, err := store.Load("a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("nested"), data.Data)

	// Intermediate directories never show up as documents
	names, err := store.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b/c.txt"}, names)
}

func TestFileSystemStoreVersionIsContentHash(t *testing.T) {
	store, err := NewFileSystemStore(t.TempDir())
	require.NoError(t, err)

	version, err := store.Save("doc.txt", []byte("stable content"), "")
	require.NoError(t, err)
	assert.Len(t, version, 32, "Version should be an MD5 hex string")

	// Loading repeatedly yields the same version for the same bytes
	first, err := store.Load("doc.txt")
	require.NoError(t, err)
	second, err := store.Load("doc.txt")
	require.NoError(t, err)
	assert.Equal(t, version, first.Version)
	assert.Equal(t, first.Version, second.Version)

	// Saving identical bytes elsewhere yields the same version
	other, err := store.Save("copy.txt", []byte("stable content"), "")
	require.NoError(t, err)
	assert.Equal(t, version, other)
}

func TestWriteSecureFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secure.txt")

	require.NoError(t, writeSecureFile(path, []byte("first"), FilePermissions))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)

	// Overwrite replaces content atomically
	require.NoError(t, writeSecureFile(path, []byte("second"), FilePermissions))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	// No temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "Temp files should not remain after writing")
}
