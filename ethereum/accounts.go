// Package ethereum composes derivation, addresses and custody into account
// operations keyed by checksum address (imported keys) or UUID (mnemonics).
package ethereum

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AlexZinkM/keyvault/internal/address"
	"github.com/AlexZinkM/keyvault/internal/directory"
	"github.com/AlexZinkM/keyvault/internal/hdnode"
	"github.com/AlexZinkM/keyvault/internal/keys"
	"github.com/AlexZinkM/keyvault/internal/mnemonic"
	"github.com/AlexZinkM/keyvault/internal/model"
)

// Custodian is the part of custody.Custody the accounts need
type Custodian interface {
	Encrypt(plaintext []byte, ref string) ([]byte, error)
	Decrypt(ref string, fn func(plaintext []byte) error) error
	Exists(ref string) (bool, error)
	Delete(ref string) error
	References() ([]string, error)
}

// Records is the public account record store, see directory.Directory.
// Create must refuse to replace an existing record.
type Records interface {
	Create(rec *model.AccountRecord) error
	Write(rec *model.AccountRecord) error
	Read(ref string) (*model.AccountRecord, error)
	List() ([]*model.AccountRecord, error)
	Delete(ref string) error
	DeleteAll() error
}

type Accounts struct {
	custody Custodian
	records Records
	logger  *zap.Logger
	now     func() time.Time
}

func NewAccounts(c Custodian, records Records, logger *zap.Logger) *Accounts {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accounts{
		custody: c,
		records: records,
		logger:  logger,
		now:     time.Now,
	}
}

func (a *Accounts) createdAt() string {
	return a.now().UTC().Format(time.RFC3339)
}

func (a *Accounts) accountFor(addr address.Address) model.PrivateKeyAccount {
	acc := model.PrivateKeyAccount{
		Address:   addr.String(),
		CreatedAt: a.createdAt(),
	}
	qr, err := generateQRCode(addr)
	if err != nil {
		a.logger.Warn("failed to generate QR code", zap.String("address", acc.Address), zap.Error(err))
		return acc
	}
	acc.QR = qr
	return acc
}

// rollback removes a custody entry whose account record could not be written
func (a *Accounts) rollback(ref string, cause error) error {
	if err := a.custody.Delete(ref); err != nil {
		a.logger.Error("failed to roll back custody entry", zap.String("reference", ref), zap.Error(err))
		return errors.Join(cause, err)
	}
	return cause
}

// ImportPrivateKey validates raw as a secp256k1 scalar and stores it under its
// checksum address. raw is not retained; the caller still wipes it.
func (a *Accounts) ImportPrivateKey(raw []byte) (address.Address, error) {
	key, err := keys.NewPrivateKey(raw)
	if err != nil {
		return address.Address{}, err
	}
	defer key.Zero()

	addr, err := address.FromPrivateKey(key)
	if err != nil {
		return address.Address{}, err
	}
	ref := addr.String()

	exists, err := a.custody.Exists(ref)
	if err != nil {
		return address.Address{}, err
	}
	if exists {
		return address.Address{}, fmt.Errorf("%w: %s", ErrAlreadyImported, ref)
	}

	plaintext := key.Bytes()
	defer clear(plaintext) // wipe key copy from memory

	if _, err := a.custody.Encrypt(plaintext, ref); err != nil {
		return address.Address{}, err
	}

	acc := a.accountFor(addr)
	rec := &model.AccountRecord{Kind: model.KindPrivateKey, PrivateKey: &acc}
	if err := a.records.Create(rec); err != nil {
		return address.Address{}, a.rollback(ref, fmt.Errorf("failed to create account record: %w", err))
	}

	a.logger.Info("private key imported", zap.String("address", ref))
	return addr, nil
}

// withPrivateKey decrypts the key stored under the checksum form of ref and
// checks that it still controls that address before handing it to fn
func (a *Accounts) withPrivateKey(ref string, fn func(key *keys.PrivateKey, raw []byte) error) error {
	addr, err := address.FromHex(ref)
	if err != nil {
		return err
	}
	ref = addr.String()

	return a.custody.Decrypt(ref, func(plaintext []byte) error {
		key, err := keys.NewPrivateKey(plaintext)
		if err != nil {
			return err
		}
		defer key.Zero()

		derived, err := address.FromPrivateKey(key)
		if err != nil {
			return err
		}
		if !derived.Equal(addr) {
			a.logger.Error("stored key does not match its reference", zap.String("address", ref))
			return fmt.Errorf("%w: %s", ErrAddressMismatch, ref)
		}
		return fn(key, plaintext)
	})
}

// SignDigest signs a 32-byte digest with the imported key of the address ref
func (a *Accounts) SignDigest(ref string, digest []byte) (keys.Signature, error) {
	if len(digest) != keys.DigestLen {
		return keys.Signature{}, fmt.Errorf("%w: got %d", keys.ErrInvalidDigestLength, len(digest))
	}

	var sig keys.Signature
	err := a.withPrivateKey(ref, func(key *keys.PrivateKey, _ []byte) error {
		var err error
		sig, err = key.Sign(digest)
		return err
	})
	if err != nil {
		return keys.Signature{}, err
	}
	return sig, nil
}

// RevealPrivateKey hands the raw 32-byte key of the address ref to fn.
// The slice is wiped when fn returns and must not be retained.
func (a *Accounts) RevealPrivateKey(ref string, fn func(key []byte) error) error {
	return a.withPrivateKey(ref, func(_ *keys.PrivateKey, raw []byte) error {
		return fn(raw)
	})
}

// DeriveAndStoreSeed validates the mnemonic, derives its root node and stores
// the normalized phrase under a new UUID reference, which is returned.
func (a *Accounts) DeriveAndStoreSeed(phrase []byte) (string, error) {
	if err := mnemonic.Validate(string(phrase)); err != nil {
		return "", err
	}

	normalized := []byte(mnemonic.Normalize(string(phrase)))
	defer clear(normalized)

	wallet, err := NewHDWallet(string(normalized))
	if err != nil {
		return "", err
	}
	defer wallet.Zero()

	first, err := wallet.Address(0)
	if err != nil {
		return "", err
	}

	ref := uuid.NewString()
	if _, err := a.custody.Encrypt(normalized, ref); err != nil {
		return "", err
	}

	rec := &model.AccountRecord{
		Kind: model.KindSeedPhrase,
		SeedPhrase: &model.SeedPhraseAccount{
			ID:        ref,
			Addresses: map[uint32]model.PrivateKeyAccount{0: a.accountFor(first)},
			CreatedAt: a.createdAt(),
		},
	}
	if err := a.records.Create(rec); err != nil {
		return "", a.rollback(ref, fmt.Errorf("failed to create account record: %w", err))
	}

	a.logger.Info("seed phrase stored", zap.String("reference", ref), zap.String("address", first.String()))
	return ref, nil
}

// withSeedWallet decrypts the mnemonic stored under ref and hands fn a wallet built from it
func (a *Accounts) withSeedWallet(ref string, fn func(w *HDWallet) error) error {
	if err := uuid.Validate(ref); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidSeedReference, ref)
	}

	return a.custody.Decrypt(ref, func(plaintext []byte) error {
		wallet, err := NewHDWallet(string(plaintext))
		if err != nil {
			return err
		}
		defer wallet.Zero()

		return fn(wallet)
	})
}

// SeedAddress derives the address and public key at index of the stored
// mnemonic ref and adds the address to the account record.
func (a *Accounts) SeedAddress(ref string, index uint32) (address.Address, keys.PublicKey, error) {
	if index >= hdnode.HardenedOffset {
		return address.Address{}, nil, fmt.Errorf("%w: %d", hdnode.ErrInvalidChildIndex, index)
	}

	var (
		addr address.Address
		pub  keys.PublicKey
	)
	err := a.withSeedWallet(ref, func(w *HDWallet) error {
		var err error
		if pub, err = w.PublicKey(index); err != nil {
			return err
		}
		addr, err = address.FromPublicKey(pub)
		return err
	})
	if err != nil {
		return address.Address{}, nil, err
	}

	if err := a.recordSeedAddress(ref, index, addr); err != nil {
		return address.Address{}, nil, err
	}
	return addr, pub, nil
}

func (a *Accounts) recordSeedAddress(ref string, index uint32, addr address.Address) error {
	rec, err := a.records.Read(ref)
	if errors.Is(err, directory.ErrRecordNotFound) {
		rec = &model.AccountRecord{
			Kind:       model.KindSeedPhrase,
			SeedPhrase: &model.SeedPhraseAccount{ID: ref, CreatedAt: a.createdAt()},
		}
	} else if err != nil {
		return fmt.Errorf("failed to read account record: %w", err)
	}
	if rec.SeedPhrase == nil {
		return fmt.Errorf("%w: %s is not a seed phrase record", ErrInvalidSeedReference, ref)
	}

	if existing, ok := rec.SeedPhrase.Addresses[index]; ok && existing.Address == addr.String() {
		return nil
	}

	addresses := make(map[uint32]model.PrivateKeyAccount, len(rec.SeedPhrase.Addresses)+1)
	maps.Copy(addresses, rec.SeedPhrase.Addresses)
	addresses[index] = a.accountFor(addr)
	rec.SeedPhrase.Addresses = addresses

	if err := a.records.Write(rec); err != nil {
		return fmt.Errorf("failed to write account record: %w", err)
	}
	a.logger.Debug("seed address recorded", zap.String("reference", ref), zap.Uint32("index", index), zap.String("address", addr.String()))
	return nil
}

// SignDigestWithSeed signs a 32-byte digest with the key at index of the stored mnemonic ref
func (a *Accounts) SignDigestWithSeed(ref string, index uint32, digest []byte) (keys.Signature, error) {
	if len(digest) != keys.DigestLen {
		return keys.Signature{}, fmt.Errorf("%w: got %d", keys.ErrInvalidDigestLength, len(digest))
	}

	var sig keys.Signature
	err := a.withSeedWallet(ref, func(w *HDWallet) error {
		var err error
		sig, err = w.Sign(index, digest)
		return err
	})
	if err != nil {
		return keys.Signature{}, err
	}
	return sig, nil
}

// RevealMnemonic hands the stored mnemonic to fn. The slice is wiped when fn returns.
func (a *Accounts) RevealMnemonic(ref string, fn func(phrase []byte) error) error {
	if err := uuid.Validate(ref); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidSeedReference, ref)
	}
	return a.custody.Decrypt(ref, fn)
}

// Delete removes the secret and ciphertext of ref, then its account record.
// Address references are matched in any case. The record is kept if custody
// deletion is incomplete so the operation can be retried.
func (a *Accounts) Delete(ref string) error {
	if addr, err := address.FromHex(ref); err == nil {
		ref = addr.String()
	}

	if err := a.custody.Delete(ref); err != nil {
		return err
	}
	if err := a.records.Delete(ref); err != nil {
		return err
	}

	a.logger.Info("account deleted", zap.String("reference", ref))
	return nil
}

// DeleteAll deletes every stored reference and account record. Records are
// only cleared once every custody entry is gone; on partial failure the
// records of the failed references are kept so the operation can be retried.
func (a *Accounts) DeleteAll() ([]string, error) {
	refs, err := a.custody.References()
	if err != nil {
		return nil, err
	}
	records, err := a.records.List()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(refs)+len(records))
	for _, ref := range refs {
		seen[ref] = struct{}{}
	}
	for _, rec := range records {
		if ref := rec.Reference(); ref != "" {
			if _, ok := seen[ref]; !ok {
				seen[ref] = struct{}{}
				refs = append(refs, ref)
			}
		}
	}
	slices.Sort(refs)

	var (
		deleted []string
		errs    []error
	)
	for _, ref := range refs {
		if err := a.custody.Delete(ref); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted = append(deleted, ref)
	}

	if len(errs) > 0 {
		for _, ref := range deleted {
			if err := a.records.Delete(ref); err != nil {
				errs = append(errs, err)
			}
		}
		return deleted, errors.Join(errs...)
	}
	if err := a.records.DeleteAll(); err != nil {
		return deleted, err
	}

	a.logger.Info("all accounts deleted", zap.Int("count", len(deleted)))
	return deleted, nil
}

// List returns every account record
func (a *Accounts) List() ([]*model.AccountRecord, error) {
	return a.records.List()
}
