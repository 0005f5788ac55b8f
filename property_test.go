package cloak

import (
	"errors"
	"strings"
	"testing"
)

func TestPropertyRoundTrip(t *testing.T) {
	for name, enc := range testVariants(t, testPassword) {
		t.Run(name, func(t *testing.T) {
			framed, err := EncryptProperty(enc, "db.password=s3cret")
			if err != nil {
				t.Fatalf("Failed to encrypt property: %v", err)
			}
			if !strings.HasPrefix(framed, "ENC(") || !strings.HasSuffix(framed, ")") {
				t.Fatalf("Framed value %q is missing the ENC( ) wrapper", framed)
			}
			if !IsEncrypted(framed) {
				t.Fatal("IsEncrypted returned false for a framed value")
			}

			decrypted, err := DecryptProperty(enc, framed)
			if err != nil {
				t.Fatalf("Failed to decrypt property: %v", err)
			}
			if decrypted != "db.password=s3cret" {
				t.Errorf("Decrypted %q, want %q", decrypted, "db.password=s3cret")
			}
		})
	}
}

func TestDecryptPropertyTrimsWhitespace(t *testing.T) {
	enc, err := NewGCMEncryptor(testPassword)
	if err != nil {
		t.Fatalf("Failed to create GCM encryptor: %v", err)
	}
	framed, err := EncryptProperty(enc, "padded")
	if err != nil {
		t.Fatalf("Failed to encrypt property: %v", err)
	}

	decrypted, err := DecryptProperty(enc, "  \t"+framed+" \n")
	if err != nil {
		t.Fatalf("Failed to decrypt padded property: %v", err)
	}
	if decrypted != "padded" {
		t.Errorf("Decrypted %q, want %q", decrypted, "padded")
	}
}

func TestDecryptPropertyRejectsUnframedInput(t *testing.T) {
	enc, err := NewGCMEncryptor(testPassword)
	if err != nil {
		t.Fatalf("Failed to create GCM encryptor: %v", err)
	}

	cases := []struct {
		name  string
		value string
	}{
		{"Plaintext", "not encrypted"},
		{"MissingSuffix", "ENC(missing"},
		{"MissingPrefix", "abc123)"},
		{"Empty", ""},
		{"WrongCase", "enc(abc123)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecryptProperty(enc, tc.value); !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("DecryptProperty: got %v, want ErrInvalidFormat", err)
			}
		})
	}
}

func TestIsEncrypted(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"ENC(abc123)", true},
		{"ENC()", true},
		{"  ENC(value)  ", true},
		{"\tENC(dGVzdA==)\n", true},
		{"plaintext", false},
		{"ENC(missing", false},
		{"missing)", false},
		{"enc(abc123)", false},
		{"", false},
		{"   ", false},
	}
	for i, tc := range cases {
		if got := IsEncrypted(tc.value); got != tc.want {
			t.Errorf("Case_%d: IsEncrypted(%q) = %v, want %v", i, tc.value, got, tc.want)
		}
	}
}
