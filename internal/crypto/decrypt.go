package crypto

import (
	"crypto/ecdh"
	"fmt"
)

// AgreeFunc computes the raw ECDH shared secret between the recipient private key
// and the envelope's ephemeral public key. It lets the private half stay inside
// a hardware token.
type AgreeFunc func(ephemeral *ecdh.PublicKey) ([]byte, error)

// OpenEnvelope decrypts an envelope produced by SealEnvelope.
// Errors returned by agree are wrapped and passed through unchanged.
// Caller owns the returned plaintext and must zero it after use.
func OpenEnvelope(envelope []byte, agree AgreeFunc) ([]byte, error) {
	if len(envelope) < minEnvelopeLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidEnvelope, len(envelope))
	}

	ephemeralPub := envelope[:EphemeralKeyLen]
	ephemeral, err := ecdh.P256().NewPublicKey(ephemeralPub)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ephemeral key: %v", ErrInvalidEnvelope, err)
	}

	shared, err := agree(ephemeral)
	if err != nil {
		return nil, fmt.Errorf("failed to agree shared secret: %w", err)
	}
	defer clear(shared) // wipe shared secret from memory

	aesGCM, iv, err := envelopeCipher(shared, ephemeralPub)
	if err != nil {
		return nil, err
	}
	defer clear(iv)

	sealed := envelope[EphemeralKeyLen:]
	plaintext, err := aesGCM.Open(make([]byte, 0, len(sealed)-TagLen), iv, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
