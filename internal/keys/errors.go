package keys

import "errors"

var (
	ErrInvalidPrivateKey   = errors.New("invalid private key")
	ErrInvalidPublicKey    = errors.New("invalid public key")
	ErrInvalidDigestLength = errors.New("digest must be 32 bytes")
	ErrInvalidDigestFormat = errors.New("digest is not valid hex")
	ErrSigningFailed       = errors.New("signing failed")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrInvalidTweak        = errors.New("invalid tweak")
	ErrTweakOverflow       = errors.New("tweak is not less than the curve order")
)
