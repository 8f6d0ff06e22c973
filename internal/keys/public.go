package keys

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	CompressedPublicKeyLen   = 33
	UncompressedPublicKeyLen = 64
)

// PublicKey is either a compressed SEC1 key (33 bytes)
// or an uncompressed x || y pair (64 bytes, no 0x04 prefix).
type PublicKey []byte

// ParsePublicKey validates a 33, 64 or 65 byte encoding and returns the point as 64 bytes.
func ParsePublicKey(b []byte) (PublicKey, error) {
	pub, err := parseLibraryKey(b)
	if err != nil {
		return nil, err
	}
	return pub.SerializeUncompressed()[1:], nil
}

func parseLibraryKey(b []byte) (*secp256k1.PublicKey, error) {
	in := b
	if len(b) == UncompressedPublicKeyLen {
		in = make([]byte, 0, UncompressedPublicKeyLen+1)
		in = append(in, secp256k1.PubKeyFormatUncompressed)
		in = append(in, b...)
	}

	pub, err := secp256k1.ParsePubKey(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return pub, nil
}

// IsCompressed reports whether the key is in 33-byte form
func (k PublicKey) IsCompressed() bool {
	return len(k) == CompressedPublicKeyLen
}

// Uncompressed returns the 64-byte form
func (k PublicKey) Uncompressed() (PublicKey, error) {
	if len(k) == UncompressedPublicKeyLen {
		return k, nil
	}
	return ParsePublicKey(k)
}

// Compressed returns the 33-byte form
func (k PublicKey) Compressed() (PublicKey, error) {
	if k.IsCompressed() {
		return k, nil
	}
	pub, err := parseLibraryKey(k)
	if err != nil {
		return nil, err
	}
	return pub.SerializeCompressed(), nil
}
