package model

// MnemonicResponse represents output of `mnemonic generate`
type MnemonicResponse struct {
	Mnemonic string `json:"mnemonic"`
	Words    int    `json:"words"`
}

// ImportResponse represents output of `key import` and `seed import`
type ImportResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Reference string `json:"reference"`
	Address   string `json:"address,omitempty"`
}

// AddressResponse represents output of `seed address`
type AddressResponse struct {
	Reference string `json:"reference"`
	Index     uint32 `json:"index"`
	Path      string `json:"path"`
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
}

// SignResponse represents output of the sign commands
type SignResponse struct {
	Address   string `json:"address"`
	R         string `json:"r"`
	S         string `json:"s"`
	V         uint8  `json:"v"`
	Signature string `json:"signature"` // r || s || v
}

// RevealResponse represents output of the reveal commands
type RevealResponse struct {
	Reference string `json:"reference"`
	Secret    string `json:"secret"`
}

// DeleteResponse represents output of `delete`
type DeleteResponse struct {
	Success   bool   `json:"success"`
	Reference string `json:"reference"`
}

// DeleteAllResponse represents output of `delete --all`
type DeleteAllResponse struct {
	Success bool     `json:"success"`
	Deleted []string `json:"deleted"`
}

// RewrapResponse represents output of `rewrap`
type RewrapResponse struct {
	Rewrapped []string `json:"rewrapped"`
}

// QRResponse represents output of `qr`
type QRResponse struct {
	Address string `json:"address"`
	File    string `json:"file"`
}
