package hdnode

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/AlexZinkM/keyvault/internal/common"
	"github.com/AlexZinkM/keyvault/internal/crypto"
	"github.com/AlexZinkM/keyvault/internal/keys"
)

const (
	ChainCodeLen = 32

	MinSeedLen = 16
	MaxSeedLen = 64

	maxDepth = 0xff
)

var masterKeySalt = []byte("Bitcoin seed")

var (
	ErrSeedDerivationFailed = errors.New("seed derivation failed")
	ErrInvalidChildIndex    = errors.New("child index must be below the hardened offset")
	ErrDepthExceeded        = errors.New("maximum derivation depth exceeded")
)

// Node is one private BIP32 node. A node is never modified after construction,
// only wiped by its owner through Zero.
type Node struct {
	key               *keys.PrivateKey
	chainCode         [ChainCodeLen]byte
	depth             uint8
	parentFingerprint uint32
	childNumber       uint32
}

// Root builds the master node: HMAC-SHA512("Bitcoin seed", seed) split into key and chain code.
func Root(seed []byte) (*Node, error) {
	if len(seed) < MinSeedLen || len(seed) > MaxSeedLen {
		return nil, fmt.Errorf("%w: seed must be %d..%d bytes, got %d", ErrSeedDerivationFailed, MinSeedLen, MaxSeedLen, len(seed))
	}

	digest := crypto.HMACSHA512(masterKeySalt, seed)
	defer clear(digest) // wipe intermediate key material from memory

	key, err := keys.NewPrivateKey(digest[:32])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSeedDerivationFailed, err)
	}

	n := &Node{key: key}
	copy(n.chainCode[:], digest[32:])
	return n, nil
}

// DeriveChild derives the child at index. Hardened derivation hashes 0x00 || key,
// normal derivation hashes the compressed public key; both append the big-endian
// index with the hardened bit set as requested.
//
// The parent fingerprint is carried over from the receiver and childNumber is
// the plain index. Tweak errors are returned as-is, the next index is not tried.
func (n *Node) DeriveChild(index uint32, hardened bool) (*Node, error) {
	if index >= HardenedOffset {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChildIndex, index)
	}
	if n.depth == maxDepth {
		return nil, ErrDepthExceeded
	}

	data := make([]byte, 0, 1+keys.PrivateKeyLen+4)
	wireIndex := index
	if hardened {
		wireIndex |= HardenedOffset
		raw := n.key.Bytes()
		data = append(data, 0x00)
		data = append(data, raw...)
		clear(raw)
	} else {
		pub, err := n.key.PublicKey(true)
		if err != nil {
			return nil, err
		}
		data = append(data, pub...)
	}
	data = append(data, common.Uint32ToBytes(wireIndex)...)
	defer clear(data)

	digest := crypto.HMACSHA512(n.chainCode[:], data)
	defer clear(digest)

	childKey, err := n.key.TweakAdd(digest[:32])
	if err != nil {
		return nil, err
	}

	child := &Node{
		key:               childKey,
		depth:             n.depth + 1,
		parentFingerprint: n.parentFingerprint,
		childNumber:       index,
	}
	copy(child.chainCode[:], digest[32:])
	return child, nil
}

// DerivePath walks m/44'/60'/0'/0 from the receiver. Intermediate nodes are wiped.
func (n *Node) DerivePath() (*Node, error) {
	steps := []struct {
		index    uint32
		hardened bool
	}{
		{BIP44Purpose, true},
		{EthereumCoinType, true},
		{DefaultAccount, true},
		{ExternalChain, false},
	}

	current := n
	for _, step := range steps {
		next, err := current.DeriveChild(step.index, step.hardened)
		if current != n {
			current.Zero()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to derive path: %w", err)
		}
		current = next
	}
	return current, nil
}

// ExternalPrivateKey derives m/44'/60'/0'/0/index. Nothing is cached, every
// call derives again from the receiver. Caller must Zero the returned key.
func (n *Node) ExternalPrivateKey(index uint32) (*keys.PrivateKey, error) {
	chain, err := n.DerivePath()
	if err != nil {
		return nil, err
	}
	defer chain.Zero()

	child, err := chain.DeriveChild(index, false)
	if err != nil {
		return nil, fmt.Errorf("failed to derive external key %d: %w", index, err)
	}
	defer child.Zero()

	return child.PrivateKey(), nil
}

// PrivateKey returns a copy of the node key. Caller must Zero it.
func (n *Node) PrivateKey() *keys.PrivateKey {
	k := *n.key
	return &k
}

// PublicKey of the node key
func (n *Node) PublicKey(compressed bool) (keys.PublicKey, error) {
	return n.key.PublicKey(compressed)
}

// ChainCode returns a copy of the chain code
func (n *Node) ChainCode() []byte {
	return append([]byte(nil), n.chainCode[:]...)
}

func (n *Node) Depth() uint8 {
	return n.depth
}

func (n *Node) ParentFingerprint() uint32 {
	return n.parentFingerprint
}

func (n *Node) ChildNumber() uint32 {
	return n.childNumber
}

// Fingerprint is the BIP32 key identifier prefix (first 4 bytes of HASH160 of the
// compressed public key). Display only, derivation never reads it.
func (n *Node) Fingerprint() (uint32, error) {
	pub, err := n.key.PublicKey(true)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(crypto.Hash160(pub)[:4]), nil
}

// Zero wipes the key and chain code
func (n *Node) Zero() {
	if n.key != nil {
		n.key.Zero()
	}
	clear(n.chainCode[:])
}
