package keys

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

const (
	PrivateKeyLen = 32
	DigestLen     = 32
)

// PrivateKey is a secp256k1 scalar in [1, n-1].
// Owners call Zero as soon as the key is no longer needed.
type PrivateKey struct {
	k [PrivateKeyLen]byte
}

// NewPrivateKey copies b and validates it as a secp256k1 scalar.
// b is not retained, the caller still owns (and must wipe) it.
func NewPrivateKey(b []byte) (*PrivateKey, error) {
	if len(b) != PrivateKeyLen {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPrivateKey, PrivateKeyLen, len(b))
	}

	p := &PrivateKey{}
	copy(p.k[:], b)
	if err := p.Validate(); err != nil {
		p.Zero()
		return nil, err
	}
	return p, nil
}

// Validate checks 0 < k < n
func (p *PrivateKey) Validate() error {
	var s secp256k1.ModNScalar
	defer s.Zero()

	if overflow := s.SetBytes(&p.k); overflow != 0 || s.IsZero() {
		return ErrInvalidPrivateKey
	}
	return nil
}

// Bytes returns a copy of the scalar. Caller must zero it after use.
func (p *PrivateKey) Bytes() []byte {
	out := make([]byte, PrivateKeyLen)
	copy(out, p.k[:])
	return out
}

// Zero wipes the scalar
func (p *PrivateKey) Zero() {
	clear(p.k[:])
}

// withLibraryKey hands fn a decred key built from p and wipes it afterwards
func (p *PrivateKey) withLibraryKey(fn func(*secp256k1.PrivateKey)) error {
	if err := p.Validate(); err != nil {
		return err
	}
	priv := secp256k1.PrivKeyFromBytes(p.k[:])
	defer priv.Zero()
	fn(priv)
	return nil
}

// PublicKey derives the public key: 33 bytes compressed,
// otherwise 64 bytes (uncompressed SEC1 without the 0x04 prefix).
func (p *PrivateKey) PublicKey(compressed bool) (PublicKey, error) {
	var out PublicKey
	err := p.withLibraryKey(func(priv *secp256k1.PrivateKey) {
		if compressed {
			out = priv.PubKey().SerializeCompressed()
			return
		}
		out = priv.PubKey().SerializeUncompressed()[1:]
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Sign produces a deterministic (RFC6979) low-S recoverable signature over a 32-byte digest
func (p *PrivateKey) Sign(digest []byte) (Signature, error) {
	if len(digest) != DigestLen {
		return Signature{}, fmt.Errorf("%w: got %d", ErrInvalidDigestLength, len(digest))
	}

	var compact []byte
	err := p.withLibraryKey(func(priv *secp256k1.PrivateKey) {
		compact = ecdsa.SignCompact(priv, digest, false)
	})
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	if len(compact) != SignatureLen {
		return Signature{}, fmt.Errorf("%w: unexpected signature length %d", ErrSigningFailed, len(compact))
	}

	// compact = [27 + recovery id] || R || S
	var sig Signature
	sig.V = compact[0] - compactRecoveryBase
	copy(sig.R[:], compact[1:33])
	copy(sig.S[:], compact[33:65])
	return sig, nil
}

// TweakAdd returns (k + tweak) mod n as a new key; p is left unchanged
func (p *PrivateKey) TweakAdd(tweak []byte) (*PrivateKey, error) {
	if len(tweak) != PrivateKeyLen {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidTweak, PrivateKeyLen, len(tweak))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var k, t secp256k1.ModNScalar
	defer k.Zero()
	defer t.Zero()

	if overflow := t.SetByteSlice(tweak); overflow {
		return nil, ErrTweakOverflow
	}
	k.SetBytes(&p.k)
	k.Add(&t)
	if k.IsZero() {
		return nil, ErrInvalidTweak
	}

	out := &PrivateKey{}
	k.PutBytes(&out.k)
	return out, nil
}
