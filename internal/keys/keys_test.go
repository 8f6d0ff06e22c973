package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	curveOrderHex = "fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141"

	// external key at index 0 for a 64 zero-byte seed
	vectorKeyHex          = "761a3d94f077cebbbfb18e5e440049bb64530b0418888e4cdaa680fd7c4abe6a"
	vectorCompressedHex   = "0317d7fb7ecf5aa6d56e19773b9ab42639746ce05c96a1116b5510f183c75ecb89"
	vectorUncompressedHex = "17d7fb7ecf5aa6d56e19773b9ab42639746ce05c96a1116b5510f183c75ecb89" +
		"cadcbcbdb19c663be6b1cd7b46773a7d03568bca75faa5c533d6dd1c6f3fe6a9"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func scalar(v int64) []byte {
	out := make([]byte, 32)
	big.NewInt(v).FillBytes(out)
	return out
}

func mustKey(t *testing.T, b []byte) *PrivateKey {
	t.Helper()
	k, err := NewPrivateKey(b)
	require.NoError(t, err)
	return k
}

func TestNewPrivateKeyValidation(t *testing.T) {
	order := mustHex(t, curveOrderHex)
	orderMinusOne := new(big.Int).Sub(new(big.Int).SetBytes(order), big.NewInt(1)).FillBytes(make([]byte, 32))
	orderPlusOne := new(big.Int).Add(new(big.Int).SetBytes(order), big.NewInt(1)).FillBytes(make([]byte, 32))

	tests := []struct {
		name    string
		input   []byte
		wantErr bool
	}{
		{"one", scalar(1), false},
		{"n-1", orderMinusOne, false},
		{"vector key", mustHex(t, vectorKeyHex), false},
		{"zero", make([]byte, 32), true},
		{"n", order, true},
		{"n+1", orderPlusOne, true},
		{"short", make([]byte, 31), true},
		{"long", append(scalar(1), 0), true},
		{"nil", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := NewPrivateKey(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPrivateKey)
				assert.Nil(t, k)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, k.Bytes())
		})
	}
}

func TestNewPrivateKeyCopiesInput(t *testing.T) {
	raw := scalar(7)
	k := mustKey(t, raw)
	clear(raw)
	assert.Equal(t, scalar(7), k.Bytes())
}

func TestPublicKey(t *testing.T) {
	t.Run("generator", func(t *testing.T) {
		k := mustKey(t, scalar(1))

		compressed, err := k.PublicKey(true)
		require.NoError(t, err)
		assert.Equal(t, "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798", hex.EncodeToString(compressed))
		assert.True(t, compressed.IsCompressed())

		uncompressed, err := k.PublicKey(false)
		require.NoError(t, err)
		assert.Len(t, uncompressed, UncompressedPublicKeyLen)
		assert.Equal(t,
			"79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"+
				"483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8",
			hex.EncodeToString(uncompressed))
	})

	t.Run("derived vector", func(t *testing.T) {
		k := mustKey(t, mustHex(t, vectorKeyHex))

		compressed, err := k.PublicKey(true)
		require.NoError(t, err)
		assert.Equal(t, vectorCompressedHex, hex.EncodeToString(compressed))

		uncompressed, err := k.PublicKey(false)
		require.NoError(t, err)
		assert.Equal(t, vectorUncompressedHex, hex.EncodeToString(uncompressed))
	})

	t.Run("matches go-ethereum", func(t *testing.T) {
		raw := mustHex(t, vectorKeyHex)
		ref, err := gethcrypto.ToECDSA(raw)
		require.NoError(t, err)

		got, err := mustKey(t, raw).PublicKey(false)
		require.NoError(t, err)
		assert.Equal(t, gethcrypto.FromECDSAPub(&ref.PublicKey)[1:], []byte(got))
	})

	t.Run("zeroed key", func(t *testing.T) {
		k := mustKey(t, scalar(5))
		k.Zero()
		_, err := k.PublicKey(true)
		assert.ErrorIs(t, err, ErrInvalidPrivateKey)
	})
}

func TestPublicKeyConversions(t *testing.T) {
	compressed := PublicKey(mustHex(t, vectorCompressedHex))
	uncompressed := PublicKey(mustHex(t, vectorUncompressedHex))

	got, err := compressed.Uncompressed()
	require.NoError(t, err)
	assert.Equal(t, uncompressed, got)

	got, err = uncompressed.Compressed()
	require.NoError(t, err)
	assert.Equal(t, compressed, got)

	parsed, err := ParsePublicKey(append([]byte{0x04}, uncompressed...))
	require.NoError(t, err)
	assert.Equal(t, uncompressed, parsed)

	_, err = ParsePublicKey(make([]byte, 64))
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = ParsePublicKey([]byte{0x02, 0x01})
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestSign(t *testing.T) {
	satoshi := sha256.Sum256([]byte("Satoshi Nakamoto"))

	tests := []struct {
		name   string
		key    []byte
		digest []byte
		r      string
		s      string
		v      byte
	}{
		{
			name:   "rfc6979 key one",
			key:    scalar(1),
			digest: satoshi[:],
			r:      "934b1ea10a4b3c1757e2b0c017d0b6143ce3c9a7e6a4a49860d7a6ab210ee3d8",
			s:      "2442ce9d2b916064108014783e923ec36b49743e2ffa1c4496f01a512aafd9e5",
			v:      1,
		},
		{
			name:   "derived key zero digest",
			key:    mustHex(t, vectorKeyHex),
			digest: make([]byte, 32),
			r:      "a772e6376c29998a4f9eb2467a4492322f49c2f264db5ecb42999b923eae56d8",
			s:      "6c224f31344e8e28325e23cf3cb351fc5f1f6504c6ce323e43533f3ecd11fc02",
			v:      1,
		},
		{
			name:   "second derived key zero digest",
			key:    mustHex(t, "df9e20233f36fb0b68edbb556a7af779c7d1706e10773950ebb23795c366a9ef"),
			digest: make([]byte, 32),
			r:      "c6509a5480ab77226fead205ca6b43eedf7c35bad354df187ca0b146ac74a461",
			s:      "1d87a8399dac90218ce277b27e56f247ec7a5cf88303427e67bc176dde75f7d2",
			v:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := mustKey(t, tt.key)

			sig, err := k.Sign(tt.digest)
			require.NoError(t, err)
			assert.Equal(t, tt.r, hex.EncodeToString(sig.R[:]))
			assert.Equal(t, tt.s, hex.EncodeToString(sig.S[:]))
			assert.Equal(t, tt.v, sig.V)

			again, err := k.Sign(tt.digest)
			require.NoError(t, err)
			assert.Equal(t, sig, again, "signing is deterministic")

			pub, err := k.PublicKey(false)
			require.NoError(t, err)
			recovered, err := Recover(tt.digest, sig)
			require.NoError(t, err)
			assert.Equal(t, pub, recovered)
		})
	}
}

func TestSignMatchesGoEthereum(t *testing.T) {
	raw := mustHex(t, vectorKeyHex)
	ref, err := gethcrypto.ToECDSA(raw)
	require.NoError(t, err)
	k := mustKey(t, raw)

	for i := 0; i < 8; i++ {
		digest := gethcrypto.Keccak256([]byte{byte(i)})

		want, err := gethcrypto.Sign(digest, ref)
		require.NoError(t, err)

		sig, err := k.Sign(digest)
		require.NoError(t, err)
		assert.Equal(t, want, sig.Bytes())

		pub, err := gethcrypto.SigToPub(digest, sig.Bytes())
		require.NoError(t, err)
		assert.Equal(t, gethcrypto.PubkeyToAddress(ref.PublicKey), gethcrypto.PubkeyToAddress(*pub))
	}
}

func TestSignLowS(t *testing.T) {
	halfOrder := new(big.Int).Rsh(secp256k1.Params().N, 1)
	k := mustKey(t, mustHex(t, vectorKeyHex))

	for i := 0; i < 16; i++ {
		digest := sha256.Sum256([]byte{byte(i)})
		sig, err := k.Sign(digest[:])
		require.NoError(t, err)
		assert.LessOrEqual(t, new(big.Int).SetBytes(sig.S[:]).Cmp(halfOrder), 0)
		assert.LessOrEqual(t, sig.V, byte(1))
	}
}

func TestSignErrors(t *testing.T) {
	k := mustKey(t, scalar(1))

	_, err := k.Sign(make([]byte, 31))
	assert.ErrorIs(t, err, ErrInvalidDigestLength)

	_, err = k.Sign(make([]byte, 33))
	assert.ErrorIs(t, err, ErrInvalidDigestLength)

	k.Zero()
	_, err = k.Sign(make([]byte, 32))
	assert.ErrorIs(t, err, ErrSigningFailed)
}

func TestTweakAdd(t *testing.T) {
	order := mustHex(t, curveOrderHex)
	orderMinusOne := new(big.Int).Sub(new(big.Int).SetBytes(order), big.NewInt(1)).FillBytes(make([]byte, 32))

	t.Run("adds", func(t *testing.T) {
		k := mustKey(t, scalar(1))
		got, err := k.TweakAdd(scalar(1))
		require.NoError(t, err)
		assert.Equal(t, scalar(2), got.Bytes())
		assert.Equal(t, scalar(1), k.Bytes(), "receiver is unchanged")
	})

	t.Run("wraps modulo n", func(t *testing.T) {
		k := mustKey(t, orderMinusOne)
		got, err := k.TweakAdd(scalar(2))
		require.NoError(t, err)
		assert.Equal(t, scalar(1), got.Bytes())
	})

	t.Run("zero tweak", func(t *testing.T) {
		k := mustKey(t, scalar(9))
		got, err := k.TweakAdd(make([]byte, 32))
		require.NoError(t, err)
		assert.Equal(t, scalar(9), got.Bytes())
	})

	t.Run("tweak equal to n overflows", func(t *testing.T) {
		k := mustKey(t, scalar(1))
		_, err := k.TweakAdd(order)
		assert.ErrorIs(t, err, ErrTweakOverflow)
	})

	t.Run("sum is zero", func(t *testing.T) {
		k := mustKey(t, scalar(1))
		_, err := k.TweakAdd(orderMinusOne)
		assert.ErrorIs(t, err, ErrInvalidTweak)
	})

	t.Run("bad tweak length", func(t *testing.T) {
		k := mustKey(t, scalar(1))
		_, err := k.TweakAdd(make([]byte, 16))
		assert.ErrorIs(t, err, ErrInvalidTweak)
	})
}

func TestSignatureBytes(t *testing.T) {
	k := mustKey(t, scalar(3))
	sig, err := k.Sign(make([]byte, 32))
	require.NoError(t, err)

	b := sig.Bytes()
	require.Len(t, b, SignatureLen)
	assert.Equal(t, sig.R[:], b[:32])
	assert.Equal(t, sig.S[:], b[32:64])
	assert.Equal(t, sig.V, b[64])
	assert.LessOrEqual(t, b[64], byte(1))
}

func TestRecoverErrors(t *testing.T) {
	_, err := Recover(make([]byte, 10), Signature{})
	assert.ErrorIs(t, err, ErrInvalidDigestLength)

	_, err = Recover(make([]byte, 32), Signature{V: 2})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = Recover(make([]byte, 32), Signature{})
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
