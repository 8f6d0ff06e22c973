package handler

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlexZinkM/keyvault/ethereum"
	"github.com/AlexZinkM/keyvault/internal/address"
	"github.com/AlexZinkM/keyvault/internal/common"
	"github.com/AlexZinkM/keyvault/internal/hdnode"
	"github.com/AlexZinkM/keyvault/internal/keys"
	"github.com/AlexZinkM/keyvault/internal/mnemonic"
	"github.com/AlexZinkM/keyvault/internal/model"
)

// Rewrapper refreshes stored ciphertexts, see custody.Custody
type Rewrapper interface {
	Rewrap(ref string) error
	References() ([]string, error)
}

// SecretReader reads one hidden line of input, see config.ReadSecret
type SecretReader func(prompt string) ([]byte, error)

// AccountHandler runs account commands and writes JSON responses to out
type AccountHandler struct {
	accounts   *ethereum.Accounts
	custody    Rewrapper
	readSecret SecretReader
	out        io.Writer
}

func NewAccountHandler(accounts *ethereum.Accounts, custody Rewrapper, readSecret SecretReader, out io.Writer) *AccountHandler {
	return &AccountHandler{
		accounts:   accounts,
		custody:    custody,
		readSecret: readSecret,
		out:        out,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteError writes the ErrorResponse for err
func WriteError(w io.Writer, err error) {
	_ = writeJSON(w, model.ErrorResponse{
		Error: err.Error(),
		Code:  ethereum.ErrorCode(err),
	})
}

// GenerateMnemonic prints a new mnemonic of words words. Nothing is stored.
func GenerateMnemonic(w io.Writer, words int) error {
	strength, err := mnemonic.StrengthForWords(words)
	if err != nil {
		return err
	}
	phrase, err := mnemonic.Generate(strength)
	if err != nil {
		return err
	}
	return writeJSON(w, model.MnemonicResponse{Mnemonic: phrase, Words: words})
}

// ImportSeed reads a mnemonic from hidden input and stores it
func (h *AccountHandler) ImportSeed() error {
	phrase, err := h.readSecret("Enter mnemonic: ")
	if err != nil {
		return err
	}
	defer clear(phrase) // Always clear mnemonic from memory

	ref, err := h.accounts.DeriveAndStoreSeed(phrase)
	if err != nil {
		return err
	}

	first, _, err := h.accounts.SeedAddress(ref, 0)
	if err != nil {
		return err
	}

	return writeJSON(h.out, model.ImportResponse{
		Success:   true,
		Message:   "Seed phrase imported successfully",
		Reference: ref,
		Address:   first.String(),
	})
}

// SeedAddress prints the address and public key at index of the stored mnemonic ref
func (h *AccountHandler) SeedAddress(ref string, index uint32) error {
	addr, pub, err := h.accounts.SeedAddress(ref, index)
	if err != nil {
		return err
	}
	return writeJSON(h.out, model.AddressResponse{
		Reference: ref,
		Index:     index,
		Path:      hdnode.PathString(index),
		Address:   addr.String(),
		PublicKey: common.EncodeHex(pub),
	})
}

// SeedSign signs a hex digest with the key at index of the stored mnemonic ref
func (h *AccountHandler) SeedSign(ref string, index uint32, digestHex string) error {
	digest, err := decodeDigest(digestHex)
	if err != nil {
		return err
	}

	sig, err := h.accounts.SignDigestWithSeed(ref, index, digest)
	if err != nil {
		return err
	}

	var addr string
	if pub, err := keys.Recover(digest, sig); err == nil {
		if a, err := address.FromPublicKey(pub); err == nil {
			addr = a.String()
		}
	}
	return writeJSON(h.out, signResponse(addr, sig))
}

// SeedReveal prints the stored mnemonic ref
func (h *AccountHandler) SeedReveal(ref string) error {
	return h.accounts.RevealMnemonic(ref, func(phrase []byte) error {
		return writeJSON(h.out, model.RevealResponse{Reference: ref, Secret: string(phrase)})
	})
}

// ImportKey reads a hex private key from hidden input and stores it
func (h *AccountHandler) ImportKey() error {
	input, err := h.readSecret("Enter private key (hex): ")
	if err != nil {
		return err
	}
	defer clear(input)

	raw, err := decodeSecretHex(input)
	if err != nil {
		return err
	}
	defer clear(raw) // Always clear private key from memory

	addr, err := h.accounts.ImportPrivateKey(raw)
	if err != nil {
		return err
	}

	return writeJSON(h.out, model.ImportResponse{
		Success:   true,
		Message:   "Private key imported successfully",
		Reference: addr.String(),
		Address:   addr.String(),
	})
}

// KeySign signs a hex digest with the imported key of addr
func (h *AccountHandler) KeySign(addr, digestHex string) error {
	digest, err := decodeDigest(digestHex)
	if err != nil {
		return err
	}

	a, err := address.FromHex(addr)
	if err != nil {
		return err
	}

	sig, err := h.accounts.SignDigest(a.String(), digest)
	if err != nil {
		return err
	}
	return writeJSON(h.out, signResponse(a.String(), sig))
}

// KeyReveal prints the imported private key of addr as hex
func (h *AccountHandler) KeyReveal(addr string) error {
	return h.accounts.RevealPrivateKey(addr, func(key []byte) error {
		return writeJSON(h.out, model.RevealResponse{Reference: addr, Secret: common.EncodeHex(key)})
	})
}

// Delete removes the secret, ciphertext and record of ref
func (h *AccountHandler) Delete(ref string) error {
	if err := h.accounts.Delete(ref); err != nil {
		return err
	}
	return writeJSON(h.out, model.DeleteResponse{Success: true, Reference: ref})
}

// DeleteAll removes every stored reference and account record
func (h *AccountHandler) DeleteAll() error {
	deleted, err := h.accounts.DeleteAll()
	if err != nil {
		return err
	}
	if deleted == nil {
		deleted = []string{}
	}
	return writeJSON(h.out, model.DeleteAllResponse{Success: true, Deleted: deleted})
}

// Rewrap refreshes the ciphertext of ref, or of every stored reference when all is set
func (h *AccountHandler) Rewrap(ref string, all bool) error {
	var refs []string
	switch {
	case all:
		var err error
		if refs, err = h.custody.References(); err != nil {
			return err
		}
	case ref != "":
		if a, err := address.FromHex(ref); err == nil {
			ref = a.String()
		}
		refs = []string{ref}
	default:
		return errors.New("either a reference or --all is required")
	}

	done := make([]string, 0, len(refs))
	for _, r := range refs {
		if err := h.custody.Rewrap(r); err != nil {
			return fmt.Errorf("failed to rewrap %s: %w", r, err)
		}
		done = append(done, r)
	}
	return writeJSON(h.out, model.RewrapResponse{Rewrapped: done})
}

// List prints every account record
func (h *AccountHandler) List() error {
	records, err := h.accounts.List()
	if err != nil {
		return err
	}
	if records == nil {
		records = []*model.AccountRecord{}
	}
	return writeJSON(h.out, records)
}

// QR writes the PNG QR code of addr to file. The address must be well formed but
// does not have to be stored.
func QR(w io.Writer, addr, file string, size int) error {
	a, err := address.FromHex(addr)
	if err != nil {
		return err
	}

	png, err := ethereum.AddressQR(a, size)
	if err != nil {
		return err
	}
	if err := os.WriteFile(file, png, 0644); err != nil {
		return fmt.Errorf("failed to write QR code: %w", err)
	}
	return writeJSON(w, model.QRResponse{Address: a.String(), File: file})
}

func signResponse(addr string, sig keys.Signature) model.SignResponse {
	return model.SignResponse{
		Address:   addr,
		R:         common.EncodeHex(sig.R[:]),
		S:         common.EncodeHex(sig.S[:]),
		V:         sig.V,
		Signature: common.EncodeHex(sig.Bytes()),
	}
}

func decodeDigest(s string) ([]byte, error) {
	digest, err := common.DecodeFixedHex(s, keys.DigestLen)
	switch {
	case errors.Is(err, common.ErrUnexpectedLength):
		return nil, fmt.Errorf("%w: %w", keys.ErrInvalidDigestLength, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", keys.ErrInvalidDigestFormat, err)
	}
	return digest, nil
}

// decodeSecretHex decodes hex without passing the secret through a string
func decodeSecretHex(input []byte) ([]byte, error) {
	body := bytes.TrimSpace(input)
	if len(body) >= 2 && body[0] == '0' && (body[1] == 'x' || body[1] == 'X') {
		body = body[2:]
	}

	out := make([]byte, hex.DecodedLen(len(body)))
	if _, err := hex.Decode(out, body); err != nil {
		clear(out)
		return nil, fmt.Errorf("%w: key is not valid hex", keys.ErrInvalidPrivateKey)
	}
	return out, nil
}
