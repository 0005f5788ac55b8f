package cloak

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDecryptAll(t *testing.T) {
	enc, err := NewGCMEncryptor(testPassword)
	if err != nil {
		t.Fatalf("Failed to create GCM encryptor: %v", err)
	}

	user, err := EncryptProperty(enc, "admin")
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}
	pass, err := EncryptProperty(enc, "s3cret")
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	input := fmt.Sprintf("user=%s\nhost=localhost\npass=%s\n", user, pass)
	want := "user=admin\nhost=localhost\npass=s3cret\n"
	if got := DecryptAll(enc, input); got != want {
		t.Errorf("DecryptAll produced %q, want %q", got, want)
	}
}

func TestDecryptAllSkipsFailures(t *testing.T) {
	enc, err := NewGCMEncryptor(testPassword)
	if err != nil {
		t.Fatalf("Failed to create GCM encryptor: %v", err)
	}
	good, err := EncryptProperty(enc, "ok")
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	// Undecryptable markers stay exactly as they were, decryptable ones
	// around them are still replaced.
	cases := []string{
		"ENC(not base64!)",
		"ENC()",
		"ENC(dGVzdA==)", // valid base64, too short to be a blob
	}
	for i, bad := range cases {
		t.Run(fmt.Sprintf("Case_%d", i), func(t *testing.T) {
			input := "a=" + good + " b=" + bad + " c=" + good
			want := "a=ok b=" + bad + " c=ok"
			if got := DecryptAll(enc, input); got != want {
				t.Errorf("DecryptAll produced %q, want %q", got, want)
			}
		})
	}
}

func TestDecryptAllLeavesPlainTextAlone(t *testing.T) {
	enc, err := NewGCMEncryptor(testPassword)
	if err != nil {
		t.Fatalf("Failed to create GCM encryptor: %v", err)
	}

	input := "no markers here, not even ENC or DEC words\n"
	if got := DecryptAll(enc, input); got != input {
		t.Errorf("DecryptAll modified marker-free input: %q", got)
	}
	if got := DecryptAll(enc, ""); got != "" {
		t.Errorf("DecryptAll modified empty input: %q", got)
	}
}

func TestDecryptMap(t *testing.T) {
	enc, err := NewGCMEncryptor(testPassword)
	if err != nil {
		t.Fatalf("Failed to create GCM encryptor: %v", err)
	}

	framed, err := EncryptProperty(enc, "s3cret")
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	input := map[string]string{
		"db.user":     "admin",
		"db.password": framed,
		"db.broken":   "ENC(not base64!)",
		"db.host":     "localhost",
	}
	got := DecryptMap(enc, input)

	want := map[string]string{
		"db.user":     "admin",
		"db.password": "s3cret",
		"db.broken":   "ENC(not base64!)",
		"db.host":     "localhost",
	}
	if len(got) != len(want) {
		t.Fatalf("Result has %d entries, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("Key %q: got %q, want %q", k, got[k], v)
		}
	}

	// The input map is never modified.
	if input["db.password"] != framed {
		t.Error("DecryptMap modified its input map")
	}
}

func TestDecryptMapNil(t *testing.T) {
	enc, err := NewGCMEncryptor(testPassword)
	if err != nil {
		t.Fatalf("Failed to create GCM encryptor: %v", err)
	}
	if got := DecryptMap(enc, nil); got == nil || len(got) != 0 {
		t.Errorf("DecryptMap(nil) = %v, want an empty map", got)
	}
}

func TestEncryptAll(t *testing.T) {
	enc, err := NewGCMEncryptor(testPassword)
	if err != nil {
		t.Fatalf("Failed to create GCM encryptor: %v", err)
	}

	input := "user=DEC(admin)\nhost=localhost\npass=DEC(s3cret)\n"
	got, err := EncryptAll(enc, input)
	if err != nil {
		t.Fatalf("Failed to encrypt markers: %v", err)
	}
	if strings.Contains(got, "DEC(") {
		t.Errorf("Output still contains a DEC( ) marker: %q", got)
	}
	if strings.Contains(got, "admin") || strings.Contains(got, "s3cret") {
		t.Errorf("Output still contains plaintext: %q", got)
	}

	// Round trip through the lenient decryptor restores the staged values.
	want := "user=admin\nhost=localhost\npass=s3cret\n"
	if decrypted := DecryptAll(enc, got); decrypted != want {
		t.Errorf("Round trip produced %q, want %q", decrypted, want)
	}
}

func TestEncryptAllReportsFailure(t *testing.T) {
	enc, err := NewGCMEncryptor(testPassword)
	if err != nil {
		t.Fatalf("Failed to create GCM encryptor: %v", err)
	}

	// The empty marker cannot be encrypted and the error must not echo
	// any staged plaintext from the rest of the input.
	_, err = EncryptAll(enc, "a=DEC(visible-secret) b=DEC()")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("EncryptAll: got %v, want ErrInvalidArgument", err)
	}
	if strings.Contains(err.Error(), "visible-secret") {
		t.Errorf("Error message leaks plaintext: %v", err)
	}
}
