// Package properties decrypts configuration documents that carry framed
// ENC( ) values. Each format walker parses the document, decrypts every
// value that satisfies cloak.IsEncrypted and re-encodes the result.
//
// Decryption is lenient per value, the same contract as cloak.DecryptAll:
// a value that fails to decrypt keeps its framed form and the walk
// continues. Parse failures of the document itself are real errors and
// carry cloak.ErrInvalidFormat.
package properties

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"southwinds.dev/cloak"
)

// Parse reads a flat .properties style document into a map. Lines are
// key=value or key: value pairs with surrounding whitespace trimmed,
// lines starting with # or ! are comments and a key that repeats keeps
// its last value. A line without a separator becomes a key with an empty
// value.
func Parse(data []byte) (map[string]string, error) {
	out := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		sep := strings.IndexAny(line, "=:")
		if sep < 0 {
			out[line] = ""
			continue
		}
		key := strings.TrimSpace(line[:sep])
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(line[sep+1:])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to scan properties document: %v", cloak.ErrInvalidFormat, err)
	}
	return out, nil
}

// DecryptAuto picks the walker matching the file name extension. YAML,
// TOML and JSON documents go through their structured walkers; every
// other name is treated as flat text and processed with cloak.DecryptAll,
// which leaves the document layout untouched.
func DecryptAuto(e cloak.Encryptor, name string, data []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return DecryptYAML(e, data)
	case ".toml":
		return DecryptTOML(e, data)
	case ".json":
		return DecryptJSON(e, data)
	default:
		return []byte(cloak.DecryptAll(e, string(data))), nil
	}
}
