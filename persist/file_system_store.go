package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"southwinds.dev/cloak/internal/debug"
)

const (
	FilePermissions os.FileMode = 0600
	DirPermissions  os.FileMode = 0700
)

// FileSystemStore implements Store for the local filesystem with optimistic
// concurrency control. Documents live under a base directory created with
// owner-only permissions; nested document names map to subdirectories.
type FileSystemStore struct {
	basePath string
}

// NewFileSystemStore initializes and returns a new instance of FileSystemStore
func NewFileSystemStore(basePath string) (*FileSystemStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	if err := os.MkdirAll(basePath, DirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create base directory %s: %w", basePath, err)
	}

	return &FileSystemStore{basePath: basePath}, nil
}

// NewFileSystemStoreFromConfig creates a FileSystemStore from StoreConfig
func NewFileSystemStoreFromConfig(config StoreConfig) (*FileSystemStore, error) {
	basePath, ok := config.Config["base_path"].(string)
	if !ok {
		return nil, fmt.Errorf("base_path is required for file system store")
	}

	return NewFileSystemStore(basePath)
}

// List returns the names of all stored documents matching the glob
// pattern. Patterns use doublestar syntax, so "**/*.yaml" finds YAML
// documents at any depth. An empty pattern matches everything.
func (fs *FileSystemStore) List(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "**"
	}

	matches, err := doublestar.Glob(os.DirFS(fs.basePath), pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid list pattern %q: %w", pattern, err)
	}

	var names []string
	for _, match := range matches {
		info, err := os.Stat(filepath.Join(fs.basePath, filepath.FromSlash(match)))
		if err != nil {
			debug.Print("List: failed to stat %s: %v\n", match, err)
			continue
		}
		if info.IsDir() {
			continue
		}
		names = append(names, match)
	}

	sort.Strings(names)
	return names, nil
}

// Load returns the named document with its content version and the file
// modification time. A missing document satisfies errors.Is with
// os.ErrNotExist.
func (fs *FileSystemStore) Load(name string) (*VersionedData, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	path := fs.documentPath(name)

	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document %s does not exist: %w", name, os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to stat document %s: %w", name, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", name, err)
	}

	debug.Print("Load: read %d bytes from %s\n", len(data), path)

	return &VersionedData{
		Data:      data,
		Version:   calculateVersion(data),
		Timestamp: fileInfo.ModTime(),
	}, nil
}

// Save writes a document with optimistic concurrency control. With a
// non-empty expectedVersion the write fails with a ConcurrencyError when
// the stored version has moved. The new content version is returned.
func (fs *FileSystemStore) Save(name string, data []byte, expectedVersion string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	if data == nil {
		return "", fmt.Errorf("document data cannot be nil")
	}
	path := fs.documentPath(name)

	// Validate expected version if provided
	if expectedVersion != "" {
		currentVersion, err := fs.getFileVersion(path)
		if err != nil {
			return "", fmt.Errorf("failed to check current version: %w", err)
		}
		if currentVersion != expectedVersion {
			return "", ConcurrencyError{
				Name:            name,
				ExpectedVersion: expectedVersion,
				ActualVersion:   currentVersion,
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), DirPermissions); err != nil {
		return "", fmt.Errorf("failed to create document directory: %w", err)
	}

	if err := writeSecureFile(path, data, FilePermissions); err != nil {
		return "", err
	}

	// Calculate and return new version based on what was actually written
	return calculateVersion(data), nil
}

func (fs *FileSystemStore) Exists(name string) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}
	return fileExists(fs.documentPath(name))
}

// Delete removes the named document. Deleting a missing document is an
// error that satisfies errors.Is with os.ErrNotExist.
func (fs *FileSystemStore) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	path := fs.documentPath(name)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("document %s does not exist: %w", name, os.ErrNotExist)
	} else if err != nil {
		return fmt.Errorf("failed to check document %s: %w", name, err)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", name, err)
	}

	return nil
}

func (fs *FileSystemStore) GetType() string {
	return string(StoreTypeFileSystem)
}

// Health and utilities
func (fs *FileSystemStore) Ping() error {
	_, err := os.Stat(fs.basePath)
	return err
}

func (fs *FileSystemStore) Close() error {
	return nil
}

func (fs *FileSystemStore) documentPath(name string) string {
	return filepath.Join(fs.basePath, filepath.FromSlash(name))
}

// Helper methods for versioning support
func (fs *FileSystemStore) getFileVersion(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil // File doesn't exist, version is empty
		}
		return "", err
	}
	return calculateVersion(data), nil
}

// writeSecureFile writes data through a temp file in the target directory,
// syncs it, sets restrictive permissions and renames it into place so a
// crash never leaves a partially written document behind.
func writeSecureFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err = tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err = tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err = tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err = os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
