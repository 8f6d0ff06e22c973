package mnemonic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// Strength is the entropy size in bits
type Strength int

const (
	Words12 Strength = 128
	Words15 Strength = 160
	Words18 Strength = 192
	Words21 Strength = 224
	Words24 Strength = 256
)

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// StrengthForWords maps a word count to its entropy size
func StrengthForWords(words int) (Strength, error) {
	switch words {
	case 12:
		return Words12, nil
	case 15:
		return Words15, nil
	case 18:
		return Words18, nil
	case 21:
		return Words21, nil
	case 24:
		return Words24, nil
	default:
		return 0, fmt.Errorf("invalid word count: %d, must be 12, 15, 18, 21 or 24", words)
	}
}

// Generate returns a new English BIP39 mnemonic
func Generate(strength Strength) (string, error) {
	switch strength {
	case Words12, Words15, Words18, Words21, Words24:
	default:
		return "", fmt.Errorf("invalid mnemonic strength: %d, must be 128, 160, 192, 224 or 256", strength)
	}

	entropy, err := bip39.NewEntropy(int(strength))
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	defer clear(entropy)

	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	return phrase, nil
}

// Normalize collapses whitespace and lowercases the phrase
func Normalize(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}

// Validate checks word list membership and checksum
func Validate(phrase string) error {
	if _, err := bip39.MnemonicToByteArray(Normalize(phrase)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return nil
}

// ToSeed returns the 64-byte BIP39 seed with an empty passphrase.
// Caller must zero the seed after use.
func ToSeed(phrase string) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(Normalize(phrase), "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return seed, nil
}
