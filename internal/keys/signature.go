package keys

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

const (
	SignatureLen        = 65
	compactRecoveryBase = 27
)

// Signature is a recoverable ECDSA signature; V is the recovery id (0 or 1)
type Signature struct {
	R [32]byte
	S [32]byte
	V byte
}

// Bytes returns r || s || v
func (s Signature) Bytes() []byte {
	out := make([]byte, 0, SignatureLen)
	out = append(out, s.R[:]...)
	out = append(out, s.S[:]...)
	return append(out, s.V)
}

// Recover returns the 64-byte public key that produced sig over digest
func Recover(digest []byte, sig Signature) (PublicKey, error) {
	if len(digest) != DigestLen {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDigestLength, len(digest))
	}
	if sig.V > 1 {
		return nil, fmt.Errorf("%w: recovery id %d", ErrInvalidSignature, sig.V)
	}

	compact := make([]byte, 0, SignatureLen)
	compact = append(compact, compactRecoveryBase+sig.V)
	compact = append(compact, sig.R[:]...)
	compact = append(compact, sig.S[:]...)

	pub, _, err := ecdsa.RecoverCompact(compact, digest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return pub.SerializeUncompressed()[1:], nil
}
