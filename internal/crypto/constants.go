package crypto

const (
	// Envelope layout: ephemeral P-256 public key || AES-GCM ciphertext || tag.
	EphemeralKeyLen = 65
	TagLen          = 16

	// KDF output is split into an AES-128 key and a 16-byte GCM nonce.
	aesKeyLen      = 16
	gcmIVLen       = 16
	kdfOutLen      = aesKeyLen + gcmIVLen
	minEnvelopeLen = EphemeralKeyLen + TagLen

	hmacSHA512Len = 64
	keccak256Len  = 32
)
