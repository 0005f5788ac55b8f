package cloak

import (
	"fmt"
	"strings"
)

const (
	encPrefix = "ENC("
	encSuffix = ")"
)

// EncryptProperty encrypts plaintext with e and wraps the result in the
// ENC( ) marker used inside configuration files.
func EncryptProperty(e Encryptor, plaintext string) (string, error) {
	encrypted, err := e.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	return encPrefix + encrypted + encSuffix, nil
}

// DecryptProperty unwraps a framed ENC( ) value and decrypts its content
// with e. Whitespace around the marker is tolerated. A value that does
// not carry both the open and the close marker fails with
// ErrInvalidFormat.
func DecryptProperty(e Encryptor, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, encPrefix) || !strings.HasSuffix(trimmed, encSuffix) {
		return "", fmt.Errorf("%w: value is not wrapped in %s%s", ErrInvalidFormat, encPrefix, encSuffix)
	}
	return e.Decrypt(trimmed[len(encPrefix) : len(trimmed)-len(encSuffix)])
}

// IsEncrypted reports whether value, after trimming surrounding
// whitespace, carries the ENC( ) marker. The empty string is never
// encrypted. The check is purely textual; a true result does not
// guarantee that the content will decrypt.
func IsEncrypted(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	return strings.HasPrefix(trimmed, encPrefix) && strings.HasSuffix(trimmed, encSuffix)
}
