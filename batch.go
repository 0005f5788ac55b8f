package cloak

import (
	"fmt"
	"regexp"
)

// encValuePattern matches a framed value with no close parenthesis inside
// the content, which is safe because Base64 text never contains one.
var encValuePattern = regexp.MustCompile(`ENC\([^)]*\)`)

// decValuePattern matches a DEC( ) staging marker awaiting encryption.
var decValuePattern = regexp.MustCompile(`DEC\([^)]*\)`)

// DecryptAll replaces every framed ENC( ) occurrence in input with its
// decrypted plaintext. An occurrence that fails to decrypt, because it
// was produced with a different password or variant or is not really an
// encrypted value, is left exactly as it was. The operation never fails
// as a whole, so documents mixing plaintext and ciphertext are processed
// best effort.
func DecryptAll(e Encryptor, input string) string {
	return encValuePattern.ReplaceAllStringFunc(input, func(match string) string {
		plaintext, err := DecryptProperty(e, match)
		if err != nil {
			return match
		}
		return plaintext
	})
}

// DecryptMap returns a copy of m in which every value satisfying
// IsEncrypted has been replaced by its decrypted plaintext. Plain values
// pass through untouched and encrypted values that fail to decrypt keep
// their original framed form. Like DecryptAll this never fails as a
// whole. The input map is not modified.
func DecryptMap(e Encryptor, m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if !IsEncrypted(v) {
			out[k] = v
			continue
		}
		plaintext, err := DecryptProperty(e, v)
		if err != nil {
			out[k] = v
			continue
		}
		out[k] = plaintext
	}
	return out
}

// EncryptAll replaces every DEC( ) staging marker in input with a framed
// encrypted value, the workflow used to prepare a configuration file for
// check-in. Unlike the decrypt helpers this is strict: the first marker
// that cannot be encrypted aborts the whole operation, because writing a
// half encrypted document back is worse than failing loudly. The error
// never echoes the staged plaintext.
func EncryptAll(e Encryptor, input string) (string, error) {
	var firstErr error
	out := decValuePattern.ReplaceAllStringFunc(input, func(match string) string {
		if firstErr != nil {
			return match
		}
		framed, err := EncryptProperty(e, match[len("DEC("):len(match)-1])
		if err != nil {
			firstErr = fmt.Errorf("failed to encrypt a DEC( ) marker: %w", err)
			return match
		}
		return framed
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
