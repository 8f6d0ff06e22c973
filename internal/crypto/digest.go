package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // BIP32 fingerprints are defined over RIPEMD-160
	"golang.org/x/crypto/sha3"
)

// HMACSHA512 returns the 64-byte HMAC-SHA512 of data under key
func HMACSHA512(key, data []byte) []byte {
	mac := hmac.New(sha512.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// Keccak256 hashes the concatenation of data with the legacy (pre-SHA3) Keccak padding.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	return h.Sum(nil)
}

// Hash160 returns RIPEMD160(SHA256(data))
func Hash160(data []byte) []byte {
	sum := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(sum[:])
	return h.Sum(nil)
}
