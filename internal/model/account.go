package model

// AccountKind tells the two record shapes apart on disk
type AccountKind string

const (
	KindPrivateKey AccountKind = "privateKey"
	KindSeedPhrase AccountKind = "seedPhrase"
)

// PrivateKeyAccount is the public record of one address.
// The key itself lives only as ciphertext under the address reference.
type PrivateKeyAccount struct {
	Address   string `json:"eip55Address"`
	QR        string `json:"QR,omitempty"` // base64 PNG of the address
	CreatedAt string `json:"createdAt"`
}

// SeedPhraseAccount is the public record of a stored mnemonic.
// Addresses maps external indices (m/44'/60'/0'/0/{index}) to derived accounts.
type SeedPhraseAccount struct {
	ID        string                       `json:"id"`
	Addresses map[uint32]PrivateKeyAccount `json:"addresses"`
	CreatedAt string                       `json:"createdAt"`
}

// AccountRecord is the file format of the account directory
type AccountRecord struct {
	Kind       AccountKind        `json:"kind"`
	PrivateKey *PrivateKeyAccount `json:"privateKey,omitempty"`
	SeedPhrase *SeedPhraseAccount `json:"seedPhrase,omitempty"`
}

// Reference returns the custody reference id of the record
func (r *AccountRecord) Reference() string {
	switch r.Kind {
	case KindPrivateKey:
		if r.PrivateKey != nil {
			return r.PrivateKey.Address
		}
	case KindSeedPhrase:
		if r.SeedPhrase != nil {
			return r.SeedPhrase.ID
		}
	}
	return ""
}
