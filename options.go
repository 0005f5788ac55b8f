package cloak

// Option tunes a cipher variant at construction time. Each variant
// documents the options it accepts; passing one it does not support makes
// the constructor fail with ErrInvalidArgument, since a silently ignored
// tuning knob would change what the caller believes about the wire
// format.
type Option func(*config)

type config struct {
	iterations int
	saltSize   int
	keySize    int
}

// WithIterations sets the key derivation iteration count. All variants
// accept it. Values below one are rejected; zero keeps the variant
// default.
func WithIterations(n int) Option {
	return func(c *config) { c.iterations = n }
}

// WithSaltSize sets the salt length in bytes. Accepted by GCMEncryptor
// and AESEncryptor; the DES variant's salt is pinned to 8 bytes by its
// wire format.
func WithSaltSize(n int) Option {
	return func(c *config) { c.saltSize = n }
}

// WithKeySize sets the derived key length in bytes. Accepted only by
// GCMEncryptor, and only for the valid AES key lengths 16, 24 and 32.
func WithKeySize(n int) Option {
	return func(c *config) { c.keySize = n }
}

func applyOptions(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
