package crypto

import "errors"

var (
	ErrInvalidRecipient = errors.New("recipient key is not a P-256 public key")
	ErrInvalidEnvelope  = errors.New("malformed envelope")
	ErrDecryptionFailed = errors.New("envelope authentication failed")
	ErrInvalidKDFLength = errors.New("invalid kdf output length")
)
