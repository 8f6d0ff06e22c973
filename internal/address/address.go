package address

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/AlexZinkM/keyvault/internal/common"
	"github.com/AlexZinkM/keyvault/internal/crypto"
	"github.com/AlexZinkM/keyvault/internal/keys"
)

const (
	Length    = 20
	HexLength = 2 * Length
)

var (
	ErrInvalidPublicKey = errors.New("invalid public key for address")
	ErrIncorrectLength  = errors.New("address has incorrect length")
	ErrInvalidFormat    = errors.New("address has invalid format")
	ErrInvalidChecksum  = errors.New("address checksum mismatch")
)

// Address is a 20-byte account address.
// Its canonical text form is the EIP-55 mixed-case checksum string.
type Address [Length]byte

// FromPublicKey hashes a 64-byte uncompressed public key (no 0x04 prefix)
// and keeps the low 20 bytes of the Keccak-256 digest.
func FromPublicKey(pub keys.PublicKey) (Address, error) {
	if len(pub) != keys.UncompressedPublicKeyLen {
		return Address{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPublicKey, keys.UncompressedPublicKeyLen, len(pub))
	}

	digest := crypto.Keccak256(pub)
	if len(digest) != 32 {
		return Address{}, fmt.Errorf("%w: unexpected digest length %d", ErrInvalidPublicKey, len(digest))
	}

	var a Address
	copy(a[:], digest[12:])
	return a, nil
}

// FromPrivateKey derives the address controlled by key
func FromPrivateKey(key *keys.PrivateKey) (Address, error) {
	pub, err := key.PublicKey(false)
	if err != nil {
		return Address{}, err
	}
	return FromPublicKey(pub)
}

// FromHex parses an address with or without the 0x prefix.
// All-lowercase and all-uppercase input skip checksum validation,
// mixed-case input must be a valid EIP-55 checksum.
func FromHex(s string) (Address, error) {
	body := common.TrimHexPrefix(s)
	if len(body) != HexLength {
		return Address{}, fmt.Errorf("%w: %d hex digits", ErrIncorrectLength, len(body))
	}

	raw, err := hex.DecodeString(body)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	var a Address
	copy(a[:], raw)

	if isMixedCase(body) && checksumHex(a[:]) != body {
		return Address{}, ErrInvalidChecksum
	}
	return a, nil
}

// ChecksumString returns the 0x-prefixed EIP-55 form of a 20-byte address
func ChecksumString(b []byte) (string, error) {
	if len(b) != Length {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", ErrIncorrectLength, Length, len(b))
	}
	return common.HexPrefix + checksumHex(b), nil
}

// String returns the EIP-55 checksum string
func (a Address) String() string {
	return common.HexPrefix + checksumHex(a[:])
}

// Bytes returns a copy of the raw address
func (a Address) Bytes() []byte {
	return append([]byte(nil), a[:]...)
}

// Equal compares checksum strings
func (a Address) Equal(other Address) bool {
	return a.String() == other.String()
}

// IsZero reports whether a is the all-zero address
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText implements encoding.TextMarshaler
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := FromHex(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// checksumHex applies EIP-55: a hex letter is uppercased when the matching
// nibble of Keccak-256(lowercase hex) is 8 or more.
func checksumHex(b []byte) string {
	lower := hex.EncodeToString(b)
	hash := crypto.Keccak256([]byte(lower))

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out)
}

func isMixedCase(s string) bool {
	return strings.ToLower(s) != s && strings.ToUpper(s) != s
}
