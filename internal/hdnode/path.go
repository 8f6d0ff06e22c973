package hdnode

import "fmt"

// BIP44 constants for the single supported path m/44'/60'/0'/0/{index}
const (
	// HardenedOffset is added to hardened child indices on the wire
	HardenedOffset uint32 = 0x80000000

	// BIP44Purpose BIP44 purpose level
	BIP44Purpose uint32 = 44

	// EthereumCoinType SLIP-0044 coin type
	EthereumCoinType uint32 = 60

	// DefaultAccount account level
	DefaultAccount uint32 = 0

	// ExternalChain receiving addresses
	ExternalChain uint32 = 0
)

// PathString renders the full derivation path of the external key at index
func PathString(index uint32) string {
	return fmt.Sprintf("m/%d'/%d'/%d'/%d/%d", BIP44Purpose, EthereumCoinType, DefaultAccount, ExternalChain, index)
}
