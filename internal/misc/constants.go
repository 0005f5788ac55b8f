package misc

const (
	// GCMIterations key derivation rounds for the authenticated variant
	GCMIterations = 10000
	GCMSaltSize   = 16
	GCMKeySize    = 32
	GCMNonceSize  = 12
	GCMTagSize    = 16

	// PBEIterations digest rounds for the two Java-compatible variants
	PBEIterations = 1000

	DESSaltSize = 8

	AESSaltSize = 16
	AESKeySize  = 32
	AESIVSize   = 16

	FilePermissions = 0600 // user read + write
	DirPermissions  = 0700 // user read + write + execute
)
