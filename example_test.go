package cloak_test

import (
	"fmt"
	"log"

	"southwinds.dev/cloak"
)

// Example demonstrates the round trip every variant shares: encrypt a
// value, wrap it in the ENC( ) marker and decrypt it back.
func Example() {
	enc, err := cloak.NewGCMEncryptor("boxOfRain")
	if err != nil {
		log.Fatal(err)
	}

	framed, err := cloak.EncryptProperty(enc, "db.password=s3cret")
	if err != nil {
		log.Fatal(err)
	}

	plaintext, err := cloak.DecryptProperty(enc, framed)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(plaintext)
	// Output: db.password=s3cret
}

// ExampleNewDESEncryptor decrypts a value produced by Jasypt's default
// PBEWithMD5AndDES configuration.
func ExampleNewDESEncryptor() {
	enc, err := cloak.NewDESEncryptor("jasypt")
	if err != nil {
		log.Fatal(err)
	}

	plaintext, err := enc.Decrypt("f+z4LdlSXqPo3bY/25+Ce8vqGwnSYg206ti8z7I0ks8=")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(plaintext)
	// Output: interoperability
}

// ExampleIsEncrypted shows the purely textual marker check.
func ExampleIsEncrypted() {
	fmt.Println(cloak.IsEncrypted("ENC(mh0oBqeIWQ==)"))
	fmt.Println(cloak.IsEncrypted("plain text"))
	// Output:
	// true
	// false
}

// ExampleDecryptAll replaces every decryptable ENC( ) marker inside a
// configuration document and leaves everything else alone.
func ExampleDecryptAll() {
	enc, err := cloak.NewGCMEncryptor("boxOfRain")
	if err != nil {
		log.Fatal(err)
	}

	framed, err := cloak.EncryptProperty(enc, "s3cret")
	if err != nil {
		log.Fatal(err)
	}

	config := "user=admin\npass=" + framed + "\n"
	fmt.Print(cloak.DecryptAll(enc, config))
	// Output:
	// user=admin
	// pass=s3cret
}

// ExampleEncryptAll stages plaintext with DEC( ) markers and encrypts
// them all in one pass, the usual workflow before committing a
// configuration file.
func ExampleEncryptAll() {
	enc, err := cloak.NewAESEncryptor("boxOfRain")
	if err != nil {
		log.Fatal(err)
	}

	staged := "pass=DEC(s3cret)\n"
	encrypted, err := cloak.EncryptAll(enc, staged)
	if err != nil {
		log.Fatal(err)
	}

	// The encrypted document round trips through the lenient decryptor.
	fmt.Print(cloak.DecryptAll(enc, encrypted))
	// Output:
	// pass=s3cret
}
