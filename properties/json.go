package properties

import (
	"bytes"
	"encoding/json"
	"fmt"

	"southwinds.dev/cloak"
)

// DecryptJSON decodes a JSON document, decrypts every encrypted string
// in it and re-encodes the result with two space indentation. Numbers
// are kept as json.Number so they re-encode exactly as written.
func DecryptJSON(e cloak.Encryptor, data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON document: %v", cloak.ErrInvalidFormat, err)
	}

	decrypted := decryptValue(e, doc)

	out, err := json.MarshalIndent(decrypted, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON document: %w", err)
	}
	return append(out, '\n'), nil
}
