package persist

import (
	"fmt"
	"path/filepath"
	"strings"
)

// NewStore factory function to create storage backends
func NewStore(config StoreConfig) (Store, error) {
	switch config.Type {
	case StoreTypeFileSystem:
		return NewFileSystemStoreFromConfig(config)

	case StoreTypeS3:
		return NewS3StoreFromConfig(config)

	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// validateName validates a document name for security. Names are relative,
// slash separated paths; anything that could escape the store root or
// confuse a backend is rejected.
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("document name cannot be empty")
	}

	if strings.ContainsAny(name, "\x00") {
		return fmt.Errorf("document name contains invalid characters")
	}

	if strings.Contains(name, "\\") {
		return fmt.Errorf("document name must use forward slashes")
	}

	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return fmt.Errorf("document name must be relative")
	}

	// Reject path traversal in any element
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return fmt.Errorf("document name contains directory traversal")
		}
	}

	// Length check
	if len(name) > 1024 {
		return fmt.Errorf("document name too long (max 1024 characters)")
	}

	return nil
}
