package cloak

import "errors"

// Sentinel errors returned by the cipher variants and the framing helpers.
// Call sites wrap these with additional context, so always test with
// errors.Is rather than direct comparison.
var (
	// ErrInvalidArgument reports a caller mistake: an empty password at
	// construction, an empty plaintext passed to Encrypt, an empty encoded
	// value passed to Decrypt, or a tuning option the variant does not
	// support.
	ErrInvalidArgument = errors.New("cloak: invalid argument")

	// ErrInvalidFormat reports structurally broken input: a framed value
	// without the ENC( ) marker, undecodable Base64, a blob shorter than
	// its minimum size, or a ciphertext that is not a whole number of
	// cipher blocks.
	ErrInvalidFormat = errors.New("cloak: invalid format")

	// ErrDecryptionFailed reports a cryptographic failure: an
	// authentication tag mismatch, invalid block padding, or any cipher
	// level error. With the DES and AES variants this is the usual symptom
	// of a wrong password.
	ErrDecryptionFailed = errors.New("cloak: decryption failed")
)
