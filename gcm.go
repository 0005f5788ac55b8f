package cloak

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"

	"github.com/awnumar/memguard"

	"southwinds.dev/cloak/internal/kdf"
	"southwinds.dev/cloak/internal/misc"
)

// GCMEncryptor is the authenticated variant and the recommended default
// for new deployments. Keys are derived with PBKDF2-HMAC-SHA256 and
// values are sealed with AES-GCM, so any tampering with the blob, and any
// decryption attempt with the wrong password, fails the tag check
// deterministically.
//
// Blob layout: salt(saltSize) | nonce(12) | ciphertext | tag(16), Base64
// encoded. This format is not interoperable with the Java reference
// algorithms.
type GCMEncryptor struct {
	password   *memguard.Enclave
	iterations int
	saltSize   int
	keySize    int
}

var _ Encryptor = (*GCMEncryptor)(nil)

// NewGCMEncryptor creates the authenticated variant for the given
// password. All three options are accepted: WithIterations (default
// 10000), WithSaltSize (default 16) and WithKeySize (default 32; must be
// a valid AES key length of 16, 24 or 32 bytes).
func NewGCMEncryptor(password string, opts ...Option) (*GCMEncryptor, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: empty password", ErrInvalidArgument)
	}

	c := applyOptions(opts)
	if c.iterations < 0 || c.saltSize < 0 {
		return nil, fmt.Errorf("%w: iteration count and salt size must be at least 1", ErrInvalidArgument)
	}
	if c.iterations == 0 {
		c.iterations = misc.GCMIterations
	}
	if c.saltSize == 0 {
		c.saltSize = misc.GCMSaltSize
	}
	if c.keySize == 0 {
		c.keySize = misc.GCMKeySize
	}
	switch c.keySize {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: key size %d is not a valid AES key length", ErrInvalidArgument, c.keySize)
	}

	return &GCMEncryptor{
		password:   memguard.NewEnclave([]byte(password)),
		iterations: c.iterations,
		saltSize:   c.saltSize,
		keySize:    c.keySize,
	}, nil
}

// Encrypt seals plaintext under a fresh random salt and nonce and returns
// the Base64 blob.
func (e *GCMEncryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: empty plaintext", ErrInvalidArgument)
	}

	salt, err := randomBytes(e.saltSize)
	if err != nil {
		return "", err
	}
	nonce, err := randomBytes(misc.GCMNonceSize)
	if err != nil {
		return "", err
	}

	aead, err := e.newAEAD(salt)
	if err != nil {
		return "", err
	}

	// Seal appends the 16 byte tag after the ciphertext
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)

	// Combine: salt + nonce + ciphertext + tag
	blob := make([]byte, len(salt)+len(nonce)+len(sealed))
	copy(blob[:len(salt)], salt)
	copy(blob[len(salt):len(salt)+len(nonce)], nonce)
	copy(blob[len(salt)+len(nonce):], sealed)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt decodes a Base64 blob, re-derives the key from the recovered
// salt and opens the sealed content. A wrong password or a modified blob
// fails with ErrDecryptionFailed.
func (e *GCMEncryptor) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", fmt.Errorf("%w: empty encrypted value", ErrInvalidArgument)
	}

	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: value is not valid base64", ErrInvalidFormat)
	}
	minSize := e.saltSize + misc.GCMNonceSize + misc.GCMTagSize
	if len(blob) < minSize {
		return "", fmt.Errorf("%w: blob is %d bytes, below the %d byte minimum", ErrInvalidFormat, len(blob), minSize)
	}

	salt := blob[:e.saltSize]
	nonce := blob[e.saltSize : e.saltSize+misc.GCMNonceSize]
	sealed := blob[e.saltSize+misc.GCMNonceSize:]

	aead, err := e.newAEAD(salt)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecryptionFailed)
	}
	return string(plaintext), nil
}

// newAEAD derives the key for salt and builds the AES-GCM cipher.
func (e *GCMEncryptor) newAEAD(salt []byte) (cipher.AEAD, error) {
	pw, err := e.password.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open password enclave: %w", err)
	}
	defer pw.Destroy()

	key := kdf.PBKDF2SHA256(pw.Bytes(), salt, e.iterations, e.keySize)
	defer memguard.WipeBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return aead, nil
}
