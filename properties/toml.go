package properties

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"

	"southwinds.dev/cloak"
)

// DecryptTOML decodes a TOML document, decrypts every encrypted string
// in it and re-encodes the result. Tables, nested tables and arrays of
// tables are walked recursively. Re-encoding normalises layout, so
// comments in the source document are not preserved.
func DecryptTOML(e cloak.Encryptor, data []byte) ([]byte, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse TOML document: %v", cloak.ErrInvalidFormat, err)
	}

	decrypted := decryptValue(e, doc)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(decrypted); err != nil {
		return nil, fmt.Errorf("failed to encode TOML document: %w", err)
	}
	return buf.Bytes(), nil
}
