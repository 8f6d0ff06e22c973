//go:build cgo

package hsm

import (
	"crypto/ecdh"
	"crypto/rand"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/AlexZinkM/keyvault/internal/keystore"
)

// openSoftHSM needs an initialized SoftHSM2 token, e.g.
//
//	softhsm2-util --init-token --free --label keyvault-test --pin 1234 --so-pin 1234
//	SOFTHSM2_LIB=/usr/lib/softhsm/libsofthsm2.so SOFTHSM2_PIN=1234 go test ./internal/keystore/hsm/
func openSoftHSM(t *testing.T) *Keystore {
	t.Helper()

	lib := os.Getenv("SOFTHSM2_LIB")
	if lib == "" {
		t.Skip("SOFTHSM2_LIB not set")
	}

	ks, err := Open(Config{
		LibraryPath: lib,
		TokenLabel:  os.Getenv("SOFTHSM2_TOKEN_LABEL"),
		AccessGroup: "keyvault-test",
		PIN:         []byte(os.Getenv("SOFTHSM2_PIN")),
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ks.Close() })
	return ks
}

func TestSoftHSMLifecycle(t *testing.T) {
	ks := openSoftHSM(t)
	ref := uuid.NewString()
	t.Cleanup(func() { _ = ks.Delete(ref) })

	_, err := ks.PublicKey(ref)
	assert.ErrorIs(t, err, keystore.ErrSecretNotFound)

	pub, err := ks.Provision(ref)
	require.NoError(t, err)

	again, err := ks.Provision(ref)
	require.NoError(t, err)
	assert.True(t, pub.Equal(again), "provision reuses the existing secret")

	peer, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	want, err := peer.ECDH(pub)
	require.NoError(t, err)

	got, err := ks.Agree(ref, peer.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, ks.Delete(ref))
	_, err = ks.PublicKey(ref)
	assert.ErrorIs(t, err, keystore.ErrSecretNotFound)
	assert.NoError(t, ks.Delete(ref))
}

func TestOpenWithoutLibrary(t *testing.T) {
	_, err := Open(Config{}, nil)
	assert.ErrorIs(t, err, ErrNoLibrary)
}

func TestDecodeECPoint(t *testing.T) {
	raw := make([]byte, 65)
	raw[0] = 0x04

	got, err := decodeECPoint(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	wrapped := append([]byte{0x04, 0x41}, raw...)
	got, err = decodeECPoint(wrapped)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = decodeECPoint([]byte{0x30, 0x01})
	assert.Error(t, err)
}
