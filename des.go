package cloak

import (
	"crypto/cipher"
	"crypto/des"
	"encoding/base64"
	"fmt"

	"github.com/awnumar/memguard"

	"southwinds.dev/cloak/internal/kdf"
	"southwinds.dev/cloak/internal/misc"
)

// DESEncryptor is the legacy compatibility variant. It reproduces the
// output of the Java reference library's default PBEWithMD5AndDES
// algorithm: the DES key and CBC initialization vector come from an
// iterated MD5 digest over password||salt, and values are encrypted with
// DES in CBC mode under PKCS #5 padding.
//
// DES is not a strong cipher by current standards and the format carries
// no integrity protection, so a tampered or wrong-password value is
// usually, but not always, rejected through a padding failure. Use this
// variant only to exchange values with deployments pinned to the Java
// default algorithm; prefer GCMEncryptor everywhere else.
//
// Blob layout: salt(8) | ciphertext(multiple of 8), Base64 encoded.
type DESEncryptor struct {
	password   *memguard.Enclave
	iterations int
}

var _ Encryptor = (*DESEncryptor)(nil)

// NewDESEncryptor creates the legacy variant for the given password. The
// only accepted option is WithIterations (default 1000, matching the
// Java reference); the salt is pinned to 8 bytes and the key size is a
// property of DES itself, so WithSaltSize and WithKeySize are rejected.
// The password is sealed in a memory enclave for the lifetime of the
// instance.
func NewDESEncryptor(password string, opts ...Option) (*DESEncryptor, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: empty password", ErrInvalidArgument)
	}

	c := applyOptions(opts)
	if c.saltSize != 0 {
		return nil, fmt.Errorf("%w: the DES variant's salt is fixed at %d bytes", ErrInvalidArgument, misc.DESSaltSize)
	}
	if c.keySize != 0 {
		return nil, fmt.Errorf("%w: the DES variant's key size is not configurable", ErrInvalidArgument)
	}
	if c.iterations < 0 {
		return nil, fmt.Errorf("%w: iteration count must be at least 1", ErrInvalidArgument)
	}
	if c.iterations == 0 {
		c.iterations = misc.PBEIterations
	}

	return &DESEncryptor{
		password:   memguard.NewEnclave([]byte(password)),
		iterations: c.iterations,
	}, nil
}

// Encrypt encrypts plaintext under a fresh random salt and returns the
// Base64 blob.
func (e *DESEncryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: empty plaintext", ErrInvalidArgument)
	}

	salt, err := randomBytes(misc.DESSaltSize)
	if err != nil {
		return "", err
	}

	material, err := e.deriveKeyIV(salt)
	if err != nil {
		return "", err
	}
	defer memguard.WipeBytes(material)
	key, iv := material[:des.BlockSize], material[des.BlockSize:]

	block, err := des.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create DES cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), des.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	// Combine: salt + ciphertext
	blob := make([]byte, len(salt)+len(ciphertext))
	copy(blob[:len(salt)], salt)
	copy(blob[len(salt):], ciphertext)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt decodes and decrypts a Base64 blob produced by this variant in
// any compatible implementation.
func (e *DESEncryptor) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", fmt.Errorf("%w: empty encrypted value", ErrInvalidArgument)
	}

	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: value is not valid base64", ErrInvalidFormat)
	}
	if len(blob) < misc.DESSaltSize+des.BlockSize {
		return "", fmt.Errorf("%w: blob is %d bytes, below the %d byte minimum", ErrInvalidFormat, len(blob), misc.DESSaltSize+des.BlockSize)
	}

	salt := blob[:misc.DESSaltSize]
	ciphertext := blob[misc.DESSaltSize:]
	if len(ciphertext)%des.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d is not a multiple of the DES block size", ErrInvalidFormat, len(ciphertext))
	}

	material, err := e.deriveKeyIV(salt)
	if err != nil {
		return "", err
	}
	defer memguard.WipeBytes(material)
	key, iv := material[:des.BlockSize], material[des.BlockSize:]

	block, err := des.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create DES cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, des.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

// deriveKeyIV runs the MD5 chain over the enclaved password and the salt.
// The first 8 bytes of the result are the DES key, the last 8 the IV.
func (e *DESEncryptor) deriveKeyIV(salt []byte) ([]byte, error) {
	pw, err := e.password.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open password enclave: %w", err)
	}
	defer pw.Destroy()

	return kdf.PBKDF1MD5(pw.Bytes(), salt, e.iterations), nil
}
