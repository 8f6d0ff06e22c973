package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"fmt"
)

// SealEnvelope encrypts plaintext to the recipient P-256 key.
//
// A fresh ephemeral key pair is generated per call. The cofactor ECDH secret is
// stretched with X9.63-SHA256 (shared info = ephemeral public key) into an
// AES-128 key and a 16-byte GCM nonce. Output: ephemeral(65) || ciphertext || tag(16).
func SealEnvelope(recipient *ecdh.PublicKey, plaintext []byte) ([]byte, error) {
	if recipient == nil || recipient.Curve() != ecdh.P256() {
		return nil, ErrInvalidRecipient
	}

	ephemeral, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}

	shared, err := ephemeral.ECDH(recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to agree shared secret: %w", err)
	}
	defer clear(shared) // wipe shared secret from memory

	ephemeralPub := ephemeral.PublicKey().Bytes()

	aesGCM, iv, err := envelopeCipher(shared, ephemeralPub)
	if err != nil {
		return nil, err
	}
	defer clear(iv)

	out := make([]byte, 0, len(ephemeralPub)+len(plaintext)+TagLen)
	out = append(out, ephemeralPub...)
	return aesGCM.Seal(out, iv, plaintext, nil), nil
}

// envelopeCipher derives the AES-GCM instance and nonce for one envelope
func envelopeCipher(shared, ephemeralPub []byte) (cipher.AEAD, []byte, error) {
	keyIV, err := X963KDF(shared, ephemeralPub, kdfOutLen)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(keyIV[:aesKeyLen])

	// Create AES cipher
	block, err := aes.NewCipher(keyIV[:aesKeyLen])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	// Create GCM with the 16-byte KDF-derived nonce
	aesGCM, err := cipher.NewGCMWithNonceSize(block, gcmIVLen)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	iv := make([]byte, gcmIVLen)
	copy(iv, keyIV[aesKeyLen:])
	clear(keyIV[aesKeyLen:])
	return aesGCM, iv, nil
}
