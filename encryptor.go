// Package cloak encrypts and decrypts configuration values with keys
// derived from a password, following the ENC(...) convention established
// by the Jasypt Java library.
//
// Three cipher variants are provided. GCMEncryptor is the right choice
// for new deployments: AES-256-GCM with PBKDF2 key derivation and tamper
// detection. DESEncryptor and AESEncryptor reproduce, byte for byte, the
// output of Jasypt's default PBEWithMD5AndDES algorithm and its PBKDF2
// based AES-256-CBC algorithm, so values can be exchanged with Java
// services pinned to those. The two compatibility variants carry no
// integrity protection; that is inherent in their wire formats.
//
// Every variant implements Encryptor. The framing helpers
// (EncryptProperty, DecryptProperty, IsEncrypted) and the batch helpers
// (EncryptAll, DecryptAll, DecryptMap) work with any variant.
package cloak

import (
	"crypto/rand"
	"fmt"
	"io"
)

// Encryptor is the operation set shared by the cipher variants. An
// implementation holds the password it was constructed with and derives
// fresh key material for every call, so a single instance is safe for
// concurrent use.
//
// Encrypt returns the Base64 encoding of the variant's blob layout and
// Decrypt accepts the same. Both fail with ErrInvalidArgument on empty
// input. Decrypt additionally fails with ErrInvalidFormat when the blob
// structure is broken and with ErrDecryptionFailed when the cipher
// rejects the content.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(encoded string) (string, error)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}
