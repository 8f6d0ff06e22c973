package ethereum

import (
	"fmt"

	"github.com/AlexZinkM/keyvault/internal/address"
	"github.com/AlexZinkM/keyvault/internal/hdnode"
	"github.com/AlexZinkM/keyvault/internal/keys"
	"github.com/AlexZinkM/keyvault/internal/mnemonic"
)

// HDWallet derives external accounts m/44'/60'/0'/0/{index} from one seed.
// Keys are derived again on every call. Call Zero when done.
type HDWallet struct {
	root *hdnode.Node
}

// NewHDWallet builds the wallet from a BIP39 mnemonic with an empty passphrase
func NewHDWallet(phrase string) (*HDWallet, error) {
	seed, err := mnemonic.ToSeed(phrase)
	if err != nil {
		return nil, err
	}
	defer clear(seed) // wipe seed from memory

	return NewHDWalletFromSeed(seed)
}

// NewHDWalletFromSeed builds the wallet from a raw 16..64 byte seed. seed is not retained.
func NewHDWalletFromSeed(seed []byte) (*HDWallet, error) {
	root, err := hdnode.Root(seed)
	if err != nil {
		return nil, err
	}
	return &HDWallet{root: root}, nil
}

// PrivateKey of the external account at index. Caller must Zero it.
func (w *HDWallet) PrivateKey(index uint32) (*keys.PrivateKey, error) {
	if index >= hdnode.HardenedOffset {
		return nil, fmt.Errorf("%w: %d", hdnode.ErrInvalidChildIndex, index)
	}
	return w.root.ExternalPrivateKey(index)
}

// PublicKey returns the 64-byte uncompressed public key at index
func (w *HDWallet) PublicKey(index uint32) (keys.PublicKey, error) {
	key, err := w.PrivateKey(index)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	return key.PublicKey(false)
}

func (w *HDWallet) Address(index uint32) (address.Address, error) {
	pub, err := w.PublicKey(index)
	if err != nil {
		return address.Address{}, err
	}
	return address.FromPublicKey(pub)
}

// Sign signs a 32-byte digest with the key at index
func (w *HDWallet) Sign(index uint32, digest []byte) (keys.Signature, error) {
	if len(digest) != keys.DigestLen {
		return keys.Signature{}, fmt.Errorf("%w: got %d", keys.ErrInvalidDigestLength, len(digest))
	}

	key, err := w.PrivateKey(index)
	if err != nil {
		return keys.Signature{}, err
	}
	defer key.Zero()

	return key.Sign(digest)
}

// Zero wipes the root node
func (w *HDWallet) Zero() {
	if w.root != nil {
		w.root.Zero()
	}
}
