package cloak

import (
	"bytes"
	"fmt"
)

// pkcs7Pad appends PKCS #7 padding so the result is a whole number of
// blockSize byte blocks. A full block of padding is added when the input
// is already aligned, which keeps the scheme reversible.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

// pkcs7Unpad validates and strips PKCS #7 padding. With an 8 byte block
// this is the PKCS #5 padding the DES variant's format requires.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: padded length %d is not a multiple of the block size", ErrDecryptionFailed, len(data))
	}

	padding := int(data[len(data)-1])
	if padding < 1 || padding > blockSize {
		return nil, fmt.Errorf("%w: invalid padding byte value %d", ErrDecryptionFailed, padding)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("%w: inconsistent padding bytes", ErrDecryptionFailed)
		}
	}
	return data[:len(data)-padding], nil
}
