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

// AESEncryptor is the strong compatibility variant, matching the Java
// reference library's PBKDF2 based algorithm: a single PBKDF2-HMAC-SHA256
// call produces 48 bytes, split into a 32 byte AES key and a 16 byte IV,
// and values are encrypted with AES-256-CBC under PKCS #7 padding.
//
// Like the DES variant the format carries no integrity tag, so tampering
// and wrong passwords surface as padding failures rather than a definite
// authentication error. Prefer GCMEncryptor when interoperability with
// the Java algorithm is not required.
//
// Blob layout: salt(saltSize) | ciphertext(multiple of 16), Base64
// encoded.
type AESEncryptor struct {
	password   *memguard.Enclave
	iterations int
	saltSize   int
}

var _ Encryptor = (*AESEncryptor)(nil)

// NewAESEncryptor creates the strong variant for the given password.
// WithIterations (default 1000) and WithSaltSize (default 16) are
// accepted; the key size is pinned to 32 bytes by the algorithm, so
// WithKeySize is rejected.
func NewAESEncryptor(password string, opts ...Option) (*AESEncryptor, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: empty password", ErrInvalidArgument)
	}

	c := applyOptions(opts)
	if c.keySize != 0 {
		return nil, fmt.Errorf("%w: the AES variant's key size is fixed at %d bytes", ErrInvalidArgument, misc.AESKeySize)
	}
	if c.iterations < 0 || c.saltSize < 0 {
		return nil, fmt.Errorf("%w: iteration count and salt size must be at least 1", ErrInvalidArgument)
	}
	if c.iterations == 0 {
		c.iterations = misc.PBEIterations
	}
	if c.saltSize == 0 {
		c.saltSize = misc.AESSaltSize
	}

	return &AESEncryptor{
		password:   memguard.NewEnclave([]byte(password)),
		iterations: c.iterations,
		saltSize:   c.saltSize,
	}, nil
}

// Encrypt encrypts plaintext under a fresh random salt and returns the
// Base64 blob.
func (e *AESEncryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: empty plaintext", ErrInvalidArgument)
	}

	salt, err := randomBytes(e.saltSize)
	if err != nil {
		return "", err
	}

	material, err := e.deriveKeyIV(salt)
	if err != nil {
		return "", err
	}
	defer memguard.WipeBytes(material)
	key, iv := material[:misc.AESKeySize], material[misc.AESKeySize:]

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	// Combine: salt + ciphertext
	blob := make([]byte, len(salt)+len(ciphertext))
	copy(blob[:len(salt)], salt)
	copy(blob[len(salt):], ciphertext)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt decodes and decrypts a Base64 blob produced by this variant in
// any compatible implementation. The instance's salt size must match the
// one used at encryption time, since the format does not record it.
func (e *AESEncryptor) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", fmt.Errorf("%w: empty encrypted value", ErrInvalidArgument)
	}

	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: value is not valid base64", ErrInvalidFormat)
	}
	if len(blob) < e.saltSize+aes.BlockSize {
		return "", fmt.Errorf("%w: blob is %d bytes, below the %d byte minimum", ErrInvalidFormat, len(blob), e.saltSize+aes.BlockSize)
	}

	salt := blob[:e.saltSize]
	ciphertext := blob[e.saltSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d is not a multiple of the AES block size", ErrInvalidFormat, len(ciphertext))
	}

	material, err := e.deriveKeyIV(salt)
	if err != nil {
		return "", err
	}
	defer memguard.WipeBytes(material)
	key, iv := material[:misc.AESKeySize], material[misc.AESKeySize:]

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

// deriveKeyIV derives key and IV in a single 48 byte PBKDF2 call, the
// split the Java algorithm mandates. Deriving them separately would
// produce different bytes and silently break interoperability.
func (e *AESEncryptor) deriveKeyIV(salt []byte) ([]byte, error) {
	pw, err := e.password.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open password enclave: %w", err)
	}
	defer pw.Destroy()

	return kdf.PBKDF2SHA256(pw.Bytes(), salt, e.iterations, misc.AESKeySize+misc.AESIVSize), nil
}
