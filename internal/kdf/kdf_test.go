package kdf

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex in test data: %v", err)
	}
	return b
}

func TestPBKDF1MD5(t *testing.T) {
	cases := []struct {
		name       string
		password   string
		saltHex    string
		iterations int
		wantHex    string
	}{
		{"SingleIteration", "secret", "0001020304050607", 1, "035fb8145b73cf111570dc936112be9c"},
		{"TwoIterations", "secret", "0001020304050607", 2, "3889155db1cf6b936fd6cb44a3651ce9"},
		{"DefaultIterations", "secret", "0001020304050607", 1000, "2464aa0a4c6ff939b3c4745f357a1091"},
		{"UnicodePassword", "contraseña", "8899aabbccddeeff", 1000, "dbfaecc3baac7ce796f583981b1f1e49"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PBKDF1MD5([]byte(tc.password), mustHex(t, tc.saltHex), tc.iterations)
			if want := mustHex(t, tc.wantHex); !bytes.Equal(got, want) {
				t.Errorf("PBKDF1MD5() = %x, want %x", got, want)
			}
		})
	}
}

func TestPBKDF1MD5OutputLength(t *testing.T) {
	out := PBKDF1MD5([]byte("p"), []byte("12345678"), 1000)
	if len(out) != 16 {
		t.Fatalf("output length = %d, want 16", len(out))
	}
}

func TestPBKDF1MD5Deterministic(t *testing.T) {
	a := PBKDF1MD5([]byte("p"), []byte("12345678"), 1000)
	b := PBKDF1MD5([]byte("p"), []byte("12345678"), 1000)
	if !bytes.Equal(a, b) {
		t.Fatal("same inputs produced different key material")
	}

	c := PBKDF1MD5([]byte("p"), []byte("12345678"), 999)
	if bytes.Equal(a, c) {
		t.Fatal("different iteration counts produced identical key material")
	}
}

func TestPBKDF2SHA256(t *testing.T) {
	// The 32-byte cases are the published PBKDF2-HMAC-SHA256 test vectors
	// for password "password" and salt "salt".
	cases := []struct {
		name       string
		password   string
		salt       []byte
		iterations int
		size       int
		wantHex    string
	}{
		{"C1", "password", []byte("salt"), 1, 32, "120fb6cffcf8b32c43e7225256c4f837a86548c92ccc35480805987cb70be17b"},
		{"C2", "password", []byte("salt"), 2, 32, "ae4d0c95af6b46d32d0adff928f06dd02a303f8ef3c251dfd6e2d85a95474c43"},
		{"C4096", "password", []byte("salt"), 4096, 32, "c5e478d59288c841aa530db6845c4c8d962893a001ce4e11a4963873aa98134a"},
		{"KeyAndIV48", "jasypt", mustHexSalt("7f697a2928c37b7b5ee204197f7b58a5"), 1000, 48,
			"e79709b589062354e7c8b34dc02fa1f38ddb40ed3e27e32bfdd3ccc0fd4c9a30a2b386d06289ca650bcea18e80840f24"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PBKDF2SHA256([]byte(tc.password), tc.salt, tc.iterations, tc.size)
			if want := mustHex(t, tc.wantHex); !bytes.Equal(got, want) {
				t.Errorf("PBKDF2SHA256() = %x, want %x", got, want)
			}
			if len(got) != tc.size {
				t.Errorf("output length = %d, want %d", len(got), tc.size)
			}
		})
	}
}

func mustHexSalt(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
