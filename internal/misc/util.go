package misc

import (
	"errors"
	"io/fs"
	"strings"
)

// IsNotFoundError reports whether err, from any store backend, means the
// requested document does not exist.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "does not exist") ||
		strings.Contains(errStr, "no such file") ||
		strings.Contains(errStr, "NoSuchKey")
}
