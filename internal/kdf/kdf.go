// Package kdf implements the key derivation functions behind the cipher
// variants. Both functions are pure: the same password, salt and iteration
// count always produce the same bytes, and no state is carried between
// calls.
package kdf

import (
	"crypto/md5"
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF1MD5 derives 16 bytes of key material the way the Java reference
// PBEWithMD5AndDES algorithm does: hash password||salt once with MD5, then
// keep re-hashing the digest until iterations total digest applications
// have been performed. The first hash counts as iteration 1. Callers are
// expected to pass iterations >= 1.
//
// The result is conventionally split into an 8-byte DES key (first half)
// and an 8-byte IV (second half).
func PBKDF1MD5(password, salt []byte, iterations int) []byte {
	h := md5.New()
	h.Write(password)
	h.Write(salt)
	digest := h.Sum(nil)

	for i := 1; i < iterations; i++ {
		next := md5.Sum(digest)
		digest = next[:]
	}
	return digest
}

// PBKDF2SHA256 derives size bytes of key material from the password with
// PBKDF2 using HMAC-SHA256.
func PBKDF2SHA256(password, salt []byte, iterations, size int) []byte {
	return pbkdf2.Key(password, salt, iterations, size, sha256.New)
}
