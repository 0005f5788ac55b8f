package properties

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"southwinds.dev/cloak"
)

// DecryptYAML walks the YAML node tree and decrypts every scalar value
// that satisfies cloak.IsEncrypted. The document is re-encoded from the
// same tree, so comments, key order and nesting survive. Mapping keys are
// identifiers and are never decrypted.
func DecryptYAML(e cloak.Encryptor, data []byte) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML document: %v", cloak.ErrInvalidFormat, err)
	}
	if root.Kind == 0 {
		// empty document
		return data, nil
	}

	decryptYAMLNode(e, &root)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, fmt.Errorf("failed to encode YAML document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML document: %w", err)
	}
	return buf.Bytes(), nil
}

func decryptYAMLNode(e cloak.Encryptor, n *yaml.Node) {
	switch n.Kind {
	case yaml.ScalarNode:
		if !cloak.IsEncrypted(n.Value) {
			return
		}
		plaintext, err := cloak.DecryptProperty(e, n.Value)
		if err != nil {
			return
		}
		n.SetString(plaintext)
	case yaml.MappingNode:
		// content alternates key, value
		for i := 1; i < len(n.Content); i += 2 {
			decryptYAMLNode(e, n.Content[i])
		}
	default:
		for _, child := range n.Content {
			decryptYAMLNode(e, child)
		}
	}
}
