// Package custody stores private material as envelope ciphertext under a
// per-reference hardware secret. Plaintext only leaves Decrypt through a
// callback and is wiped when the callback returns.
//
// Per reference the state moves Absent -> secret provisioned -> ciphertext
// stored, and Delete returns it to Absent.
package custody

import (
	"crypto/ecdh"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/AlexZinkM/keyvault/internal/crypto"
	"github.com/AlexZinkM/keyvault/internal/keystore"
	"github.com/AlexZinkM/keyvault/internal/metrics"
	"github.com/AlexZinkM/keyvault/internal/store"
)

const (
	opEncrypt = "encrypt"
	opDecrypt = "decrypt"
	opDelete  = "delete"
	opRewrap  = "rewrap"
)

type Custody struct {
	keystore keystore.Keystore
	store    store.Store
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

type Option func(*Custody)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Custody) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Custody) { c.metrics = m }
}

func New(ks keystore.Keystore, st store.Store, opts ...Option) *Custody {
	c := &Custody{
		keystore: ks,
		store:    st,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encrypt seals plaintext under the hardware secret for ref, provisioning the
// secret on first use, and stores the envelope under ref (overwriting).
// If the store write fails the secret stays provisioned.
func (c *Custody) Encrypt(plaintext []byte, ref string) (envelope []byte, err error) {
	defer func() { c.metrics.Observe(opEncrypt, err) }()

	return c.seal(plaintext, ref)
}

func (c *Custody) seal(plaintext []byte, ref string) ([]byte, error) {
	if ref == "" {
		return nil, ErrInvalidReference
	}

	pub, err := c.recipient(ref)
	if err != nil {
		return nil, err
	}

	envelope, err := crypto.SealEnvelope(pub, plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryptionFailed, err)
	}

	if err := c.store.Put(ref, envelope); err != nil {
		c.logger.Error("failed to persist ciphertext", zap.String("reference", ref), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	c.logger.Debug("secret encrypted", zap.String("reference", ref))
	return envelope, nil
}

func (c *Custody) recipient(ref string) (*ecdh.PublicKey, error) {
	pub, err := c.keystore.PublicKey(ref)
	if errors.Is(err, keystore.ErrSecretNotFound) {
		pub, err = c.keystore.Provision(ref)
		if err == nil {
			c.logger.Info("hardware secret provisioned", zap.String("reference", ref))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPublicKeyUnavailable, err)
	}
	return pub, nil
}

// Decrypt opens the envelope stored under ref and passes the plaintext to fn.
// The plaintext is memory-locked while fn runs and zeroed afterwards, even if
// fn panics. fn's error is returned unchanged.
func (c *Custody) Decrypt(ref string, fn func(plaintext []byte) error) (err error) {
	defer func() { c.metrics.Observe(opDecrypt, err) }()

	plaintext, err := c.open(ref)
	if err != nil {
		return err
	}
	return withScopedSecret(c.logger, plaintext, fn)
}

func (c *Custody) open(ref string) ([]byte, error) {
	if ref == "" {
		return nil, ErrInvalidReference
	}

	envelope, err := c.store.Get(ref)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrReferenceNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	plaintext, err := crypto.OpenEnvelope(envelope, func(ephemeral *ecdh.PublicKey) ([]byte, error) {
		shared, err := c.keystore.Agree(ref, ephemeral)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSecretUnavailable, err)
		}
		return shared, nil
	})
	if errors.Is(err, ErrSecretUnavailable) {
		return nil, err
	}
	if err != nil {
		c.logger.Warn("failed to open envelope", zap.String("reference", ref), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// Exists reports whether a ciphertext is stored under ref
func (c *Custody) Exists(ref string) (bool, error) {
	if ref == "" {
		return false, ErrInvalidReference
	}
	ok, err := c.store.Has(ref)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return ok, nil
}

// Delete removes the ciphertext and then the hardware secret. Both are always
// attempted; a part that is already absent counts as deleted.
func (c *Custody) Delete(ref string) (err error) {
	defer func() { c.metrics.Observe(opDelete, err) }()

	if ref == "" {
		return ErrInvalidReference
	}

	ctErr := c.store.Delete(ref)
	if errors.Is(ctErr, store.ErrNotFound) {
		ctErr = nil
	}
	secErr := c.keystore.Delete(ref)
	if errors.Is(secErr, keystore.ErrSecretNotFound) {
		secErr = nil
	}

	if ctErr != nil || secErr != nil {
		c.logger.Warn("delete incomplete",
			zap.String("reference", ref),
			zap.NamedError("ciphertext_error", ctErr),
			zap.NamedError("secret_error", secErr))
		return &DeleteIncompleteError{Reference: ref, Ciphertext: ctErr, Secret: secErr}
	}

	c.logger.Info("reference deleted", zap.String("reference", ref))
	return nil
}

// Rewrap re-encrypts the stored plaintext under the same hardware secret
// with a fresh ephemeral key. It counts as one rewrap, not a decrypt plus an encrypt.
func (c *Custody) Rewrap(ref string) (err error) {
	defer func() { c.metrics.Observe(opRewrap, err) }()

	plaintext, err := c.open(ref)
	if err != nil {
		return err
	}
	return withScopedSecret(c.logger, plaintext, func(plaintext []byte) error {
		_, err := c.seal(plaintext, ref)
		return err
	})
}

// References lists every reference that has a stored ciphertext
func (c *Custody) References() ([]string, error) {
	refs, err := c.store.References()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return refs, nil
}
