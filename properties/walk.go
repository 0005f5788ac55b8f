package properties

import "southwinds.dev/cloak"

// decryptValue walks a generic decoded document and returns it with every
// encrypted string replaced by its plaintext. Values that fail to decrypt
// stay framed. The walk covers the shapes the TOML and JSON decoders
// produce for untyped targets, including the slice-of-tables form.
func decryptValue(e cloak.Encryptor, v any) any {
	switch val := v.(type) {
	case string:
		if !cloak.IsEncrypted(val) {
			return val
		}
		plaintext, err := cloak.DecryptProperty(e, val)
		if err != nil {
			return val
		}
		return plaintext
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = decryptValue(e, item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = decryptValue(e, item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			m := make(map[string]any, len(item))
			for k, sub := range item {
				m[k] = decryptValue(e, sub)
			}
			out[i] = m
		}
		return out
	default:
		return v
	}
}
