package common

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	HexPrefix = "0x"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrUnexpectedLength is returned by DecodeFixedHex for well-formed hex of the wrong size
var ErrUnexpectedLength = errors.New("unexpected decoded length")

// Uint32ToBytes encodes v as 4 big-endian bytes
func Uint32ToBytes(v uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, v)
	return out
}

// EncodeHex returns the 0x-prefixed lowercase hex form of b
func EncodeHex(b []byte) string {
	return hexutil.Encode(b)
}

// DecodeHex decodes hex with or without the 0x prefix.
// Example: DecodeHex("0x00ff") = []byte{0x00, 0xff}, DecodeHex("00ff") = same
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if !HasHexPrefix(s) {
		s = HexPrefix + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex: %w", err)
	}
	return b, nil
}

// DecodeFixedHex decodes hex and checks the decoded length
func DecodeFixedHex(s string, size int) ([]byte, error) {
	b, err := DecodeHex(s)
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		clear(b)
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrUnexpectedLength, size, len(b))
	}
	return b, nil
}

// HasHexPrefix reports whether s starts with 0x or 0X
func HasHexPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// TrimHexPrefix drops a leading 0x or 0X
func TrimHexPrefix(s string) string {
	if HasHexPrefix(s) {
		return s[2:]
	}
	return s
}

// UTF8BOM returns a fresh copy of the UTF-8 byte order mark
func UTF8BOM() []byte {
	return append([]byte(nil), utf8BOM...)
}

// StripBOM skips UTF-8 BOM if present
func StripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}
