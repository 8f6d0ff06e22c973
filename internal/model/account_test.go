package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRecordReference(t *testing.T) {
	pk := AccountRecord{Kind: KindPrivateKey, PrivateKey: &PrivateKeyAccount{Address: "0xb73F8Cc7b63C5Ed98d6F7C7ba59C8094972B1166"}}
	assert.Equal(t, "0xb73F8Cc7b63C5Ed98d6F7C7ba59C8094972B1166", pk.Reference())

	seed := AccountRecord{Kind: KindSeedPhrase, SeedPhrase: &SeedPhraseAccount{ID: "7d444840-9dc0-11d1-b245-5ffdce74fad2"}}
	assert.Equal(t, "7d444840-9dc0-11d1-b245-5ffdce74fad2", seed.Reference())

	broken := AccountRecord{Kind: KindSeedPhrase}
	assert.Empty(t, broken.Reference())
}

func TestSeedPhraseAccountJSON(t *testing.T) {
	rec := SeedPhraseAccount{
		ID: "id-1",
		Addresses: map[uint32]PrivateKeyAccount{
			0: {Address: "0xb73F8Cc7b63C5Ed98d6F7C7ba59C8094972B1166"},
		},
		CreatedAt: "2026-01-02T03:04:05Z",
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "id-1",
		"addresses": {"0": {"eip55Address": "0xb73F8Cc7b63C5Ed98d6F7C7ba59C8094972B1166", "createdAt": ""}},
		"createdAt": "2026-01-02T03:04:05Z"
	}`, string(data))
}
