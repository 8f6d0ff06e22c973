package hdnode

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/keyvault/internal/address"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func keyHex(t *testing.T, n *Node) string {
	t.Helper()
	k := n.PrivateKey()
	defer k.Zero()
	return hex.EncodeToString(k.Bytes())
}

func TestBIP32Vector1(t *testing.T) {
	root, err := Root(mustHex(t, "000102030405060708090a0b0c0d0e0f"))
	require.NoError(t, err)

	assert.Equal(t, "e8f32e723decf4051aefac8e2c93c9c5b214313817cdb01a1494b917c8436b35", keyHex(t, root))
	assert.Equal(t, "873dff81c02f525623fd1fe5167eac3a55a049de3d314bb42ee227ffed37d508", hex.EncodeToString(root.ChainCode()))
	assert.Equal(t, uint8(0), root.Depth())
	assert.Equal(t, uint32(0), root.ParentFingerprint())
	assert.Equal(t, uint32(0), root.ChildNumber())

	fp, err := root.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x3442193e), fp)

	tests := []struct {
		name      string
		index     uint32
		hardened  bool
		key       string
		chainCode string
	}{
		{
			name:      "m/0H",
			index:     0,
			hardened:  true,
			key:       "edb2e14f9ee77d26dd93b4ecede8d16ed408ce149b6cd80b0715a2d911a0afea",
			chainCode: "47fdacbd0f1097043b78c63c20c34ef4ed9a111d980047ad16282c7ae6236141",
		},
		{
			name:      "m/0H/1",
			index:     1,
			hardened:  false,
			key:       "3c6cb8d0f6a264c91ea8b5030fadaa8e538b020f0a387421a12de9319dc93368",
			chainCode: "2a7857631386ba23dacac34180dd1983734e444fdbf774041578e9b6adb37c19",
		},
	}

	node := root
	for i, tt := range tests {
		child, err := node.DeriveChild(tt.index, tt.hardened)
		require.NoError(t, err, tt.name)

		assert.Equal(t, tt.key, keyHex(t, child), tt.name)
		assert.Equal(t, tt.chainCode, hex.EncodeToString(child.ChainCode()), tt.name)
		assert.Equal(t, uint8(i+1), child.Depth(), tt.name)
		assert.Equal(t, tt.index, child.ChildNumber(), tt.name)
		assert.Equal(t, uint32(0), child.ParentFingerprint(), "fingerprint is carried from the root")
		node = child
	}
}

func TestZeroSeedVectors(t *testing.T) {
	root, err := Root(make([]byte, 64))
	require.NoError(t, err)
	assert.Equal(t, "eafd15702fca3f80beb565e66f19e20bbad0a34b46bb12075cbf1c5d94bb27d2", keyHex(t, root))
	assert.Equal(t, "cda6a96b8a91317d82fa5c6353562cd530761cf1eec6e13cfa3858b0b130b0bd", hex.EncodeToString(root.ChainCode()))

	chain, err := root.DerivePath()
	require.NoError(t, err)
	assert.Equal(t, "be7e0f7aa519610c27f09344b0db1cd4f85a24658c8043a16a92528984cdef36", keyHex(t, chain))
	assert.Equal(t, "f49553d8490dfcb391b5290c9ad1fb280cd6e0058cfe934a0b36a16de3368f07", hex.EncodeToString(chain.ChainCode()))
	assert.Equal(t, uint8(4), chain.Depth())

	tests := []struct {
		index     uint32
		key       string
		chainCode string
		address   string
	}{
		{
			index:     0,
			key:       "761a3d94f077cebbbfb18e5e440049bb64530b0418888e4cdaa680fd7c4abe6a",
			chainCode: "f94534cde05bd902f0b8d65ea672ebff545dc4f0a199aefadc3fe9ac3b36b03c",
			address:   "0xb73F8Cc7b63C5Ed98d6F7C7ba59C8094972B1166",
		},
		{
			index:     1,
			key:       "df9e20233f36fb0b68edbb556a7af779c7d1706e10773950ebb23795c366a9ef",
			chainCode: "ddbbac61bd45c64f599dd90cd93ca4952b50c71674288af8b2369c3fbd8c64cd",
			address:   "0x202968E49C2C038470ED6988E577Fa5225Fb4ada",
		},
	}

	for _, tt := range tests {
		child, err := chain.DeriveChild(tt.index, false)
		require.NoError(t, err)
		assert.Equal(t, tt.key, keyHex(t, child))
		assert.Equal(t, tt.chainCode, hex.EncodeToString(child.ChainCode()))

		key, err := root.ExternalPrivateKey(tt.index)
		require.NoError(t, err)
		assert.Equal(t, tt.key, hex.EncodeToString(key.Bytes()))

		a, err := address.FromPrivateKey(key)
		require.NoError(t, err)
		assert.Equal(t, tt.address, a.String())
		key.Zero()
	}
}

func TestDerivationIsDeterministic(t *testing.T) {
	seed := mustHex(t, "fffcf9f6f3f0edeae7e4e1dedbd8d5d2cfccc9c6c3c0bdbab7b4b1aeaba8a5a29f9c999693908d8a8784817e7b7875726f6c696663605d5a5754514e4b484542")

	a, err := Root(seed)
	require.NoError(t, err)
	b, err := Root(seed)
	require.NoError(t, err)
	assert.Equal(t, keyHex(t, a), keyHex(t, b))

	k0, err := a.ExternalPrivateKey(0)
	require.NoError(t, err)
	k0again, err := b.ExternalPrivateKey(0)
	require.NoError(t, err)
	k1, err := a.ExternalPrivateKey(1)
	require.NoError(t, err)

	assert.Equal(t, k0.Bytes(), k0again.Bytes())
	assert.NotEqual(t, k0.Bytes(), k1.Bytes())

	hardened, err := a.DeriveChild(0, true)
	require.NoError(t, err)
	normal, err := a.DeriveChild(0, false)
	require.NoError(t, err)
	assert.NotEqual(t, keyHex(t, hardened), keyHex(t, normal))
}

func TestMatchesHDKeychain(t *testing.T) {
	seeds := []string{
		"000102030405060708090a0b0c0d0e0f",
		"5eb00bbddcf069084889a8ab9155568165f5c453ccb85e70811aaed6f6da5fc19a5ac40b389cd370d086206dec8aa6c43daea6690f20ad3d8d48b2d2ce9e38e4",
		"4b381541583be4423346c643850da4b320e46a87ae3d2a4e6da11eba819cd4acba45d239319ac14f863b8d5ab5a0d0c64d2e8a1e7d1457df2e5a3c51c73235be",
	}

	for _, s := range seeds {
		seed := mustHex(t, s)

		ref, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
		require.NoError(t, err)
		for _, step := range []uint32{
			hdkeychain.HardenedKeyStart + BIP44Purpose,
			hdkeychain.HardenedKeyStart + EthereumCoinType,
			hdkeychain.HardenedKeyStart + DefaultAccount,
			ExternalChain,
		} {
			ref, err = ref.Derive(step)
			require.NoError(t, err)
		}

		root, err := Root(seed)
		require.NoError(t, err)
		chain, err := root.DerivePath()
		require.NoError(t, err)
		assert.Equal(t, ref.ChainCode(), chain.ChainCode())

		for index := uint32(0); index < 5; index++ {
			refChild, err := ref.Derive(index)
			require.NoError(t, err)
			refKey, err := refChild.ECPrivKey()
			require.NoError(t, err)

			key, err := root.ExternalPrivateKey(index)
			require.NoError(t, err)
			assert.Equal(t, refKey.Serialize(), key.Bytes(), "index %d", index)
			key.Zero()
		}
	}
}

func TestRootSeedLength(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		wantErr bool
	}{
		{"empty", 0, true},
		{"too short", 15, true},
		{"minimum", 16, false},
		{"bip39", 64, false},
		{"too long", 65, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed := make([]byte, tt.length)
			for i := range seed {
				seed[i] = byte(i + 1)
			}
			_, err := Root(seed)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSeedDerivationFailed)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDeriveChildErrors(t *testing.T) {
	root, err := Root(make([]byte, 32))
	require.NoError(t, err)

	_, err = root.DeriveChild(HardenedOffset, false)
	assert.ErrorIs(t, err, ErrInvalidChildIndex)

	_, err = root.DeriveChild(HardenedOffset+1, true)
	assert.ErrorIs(t, err, ErrInvalidChildIndex)
}

func TestZero(t *testing.T) {
	root, err := Root(make([]byte, 64))
	require.NoError(t, err)

	root.Zero()
	assert.Equal(t, make([]byte, ChainCodeLen), root.ChainCode())

	_, err = root.DeriveChild(0, false)
	assert.Error(t, err)
}

func TestPathString(t *testing.T) {
	assert.Equal(t, "m/44'/60'/0'/0/0", PathString(0))
	assert.Equal(t, "m/44'/60'/0'/0/17", PathString(17))
}
