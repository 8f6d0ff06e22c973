// Package keystore holds the non-exportable P-256 key pairs that protect
// stored ciphertexts. Each secret is addressed by the same reference id as
// its ciphertext and scoped to an access group.
package keystore

import (
	"crypto/ecdh"
	"errors"
)

var (
	ErrSecretNotFound = errors.New("hardware secret not found")
	ErrLocked         = errors.New("keystore is locked")
	ErrEmptyReference = errors.New("reference must not be empty")
)

// Keystore is a hardware-backed secret provider. The private half of every
// secret stays inside the provider, callers only get the public key and the
// result of a key agreement.
type Keystore interface {
	// Provision returns the public key of the secret for ref, creating it if absent.
	Provision(ref string) (*ecdh.PublicKey, error)

	// PublicKey returns the public key of an existing secret or ErrSecretNotFound.
	PublicKey(ref string) (*ecdh.PublicKey, error)

	// Agree runs cofactor ECDH between the secret for ref and peer.
	// Caller must zero the returned shared secret.
	Agree(ref string, peer *ecdh.PublicKey) ([]byte, error)

	// Delete removes the secret. A missing secret is not an error.
	Delete(ref string) error
}

// Label is the provider-side name of the secret for ref
func Label(accessGroup, ref string) string {
	if accessGroup == "" {
		return ref
	}
	return accessGroup + ":" + ref
}
