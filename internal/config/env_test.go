package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDefaults(t *testing.T) {
	require.NoError(t, Init())
	c := Get()
	assert.Equal(t, BackendMemory, c.KeystoreBackend)
	assert.Equal(t, "keyvault", GetAccessGroup())
	assert.Equal(t, "./data/ciphertexts", GetStorePath())
	assert.Equal(t, "./data/accounts", GetAccountsDir())
	assert.Equal(t, "info", c.LogLevel)
}

func TestInitFromEnvironment(t *testing.T) {
	t.Setenv("KEYSTORE_BACKEND", "pkcs11")
	t.Setenv("PKCS11_LIBRARY", "/usr/lib/softhsm/libsofthsm2.so")
	t.Setenv("PKCS11_TOKEN_LABEL", "wallet")
	t.Setenv("STORE_PATH", "/var/lib/keyvault/ct")
	t.Setenv("METRICS_FILE", "/var/lib/node_exporter/keyvault.prom")

	require.NoError(t, Init())
	assert.Equal(t, BackendPKCS11, GetKeystoreBackend())
	assert.Equal(t, "/usr/lib/softhsm/libsofthsm2.so", GetPKCS11Library())
	assert.Equal(t, "wallet", GetPKCS11TokenLabel())
	assert.Equal(t, "/var/lib/keyvault/ct", GetStorePath())
	assert.Equal(t, "/var/lib/node_exporter/keyvault.prom", Get().MetricsFile)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{KeystoreBackend: BackendMemory, StorePath: "s", AccountsDir: "a"}, false},
		{"pkcs11 with library", Config{KeystoreBackend: BackendPKCS11, PKCS11Library: "lib.so", StorePath: "s", AccountsDir: "a"}, false},
		{"pkcs11 without library", Config{KeystoreBackend: BackendPKCS11, StorePath: "s", AccountsDir: "a"}, true},
		{"unknown backend", Config{KeystoreBackend: "keychain", StorePath: "s", AccountsDir: "a"}, true},
		{"no store path", Config{KeystoreBackend: BackendMemory, AccountsDir: "a"}, true},
		{"no accounts dir", Config{KeystoreBackend: BackendMemory, StorePath: "s"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
