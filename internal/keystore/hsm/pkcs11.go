//go:build cgo

package hsm

import (
	"crypto/ecdh"
	"encoding/asn1"
	"errors"
	"fmt"
	"sync"

	"github.com/miekg/pkcs11"
	"go.uber.org/zap"

	"github.com/AlexZinkM/keyvault/internal/keystore"
)

// DER encoding of the prime256v1 OID, used as CKA_EC_PARAMS
var p256Params = []byte{0x06, 0x08, 0x2a, 0x86, 0x48, 0xce, 0x3d, 0x03, 0x01, 0x07}

const sharedSecretLen = 32

// Keystore keeps one logged-in read/write session. PKCS#11 sessions are not
// safe for concurrent use, every call holds mu.
type Keystore struct {
	mu          sync.Mutex
	ctx         *pkcs11.Ctx
	session     pkcs11.SessionHandle
	accessGroup string
	logger      *zap.Logger
}

var _ keystore.Keystore = (*Keystore)(nil)

// Open loads the module, finds the token and logs in
func Open(cfg Config, logger *zap.Logger) (*Keystore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LibraryPath == "" {
		return nil, ErrNoLibrary
	}

	ctx := pkcs11.New(cfg.LibraryPath)
	if ctx == nil {
		return nil, fmt.Errorf("failed to load pkcs11 library: %s", cfg.LibraryPath)
	}
	if err := ctx.Initialize(); err != nil {
		ctx.Destroy()
		return nil, fmt.Errorf("failed to initialize pkcs11: %w", err)
	}

	ks := &Keystore{ctx: ctx, accessGroup: cfg.AccessGroup, logger: logger}
	if err := ks.login(cfg); err != nil {
		ks.finalize()
		return nil, err
	}

	logger.Info("pkcs11 keystore opened",
		zap.String("library", cfg.LibraryPath),
		zap.String("token", cfg.TokenLabel),
		zap.String("access_group", cfg.AccessGroup))
	return ks, nil
}

func (k *Keystore) login(cfg Config) error {
	slot, err := k.findSlot(cfg.TokenLabel)
	if err != nil {
		return err
	}

	session, err := k.ctx.OpenSession(slot, pkcs11.CKF_SERIAL_SESSION|pkcs11.CKF_RW_SESSION)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	k.session = session

	if err := k.ctx.Login(session, pkcs11.CKU_USER, string(cfg.PIN)); err != nil {
		var perr pkcs11.Error
		if !errors.As(err, &perr) || perr != pkcs11.CKR_USER_ALREADY_LOGGED_IN {
			return fmt.Errorf("failed to login: %w", err)
		}
	}
	return nil
}

func (k *Keystore) findSlot(label string) (uint, error) {
	slots, err := k.ctx.GetSlotList(true)
	if err != nil {
		return 0, fmt.Errorf("failed to list slots: %w", err)
	}
	if len(slots) == 0 {
		return 0, ErrTokenNotFound
	}
	if label == "" {
		return slots[0], nil
	}

	for _, slot := range slots {
		info, err := k.ctx.GetTokenInfo(slot)
		if err != nil {
			continue
		}
		if info.Label == label {
			return slot, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrTokenNotFound, label)
}

// Close logs out and releases the module
func (k *Keystore) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.ctx == nil {
		return nil
	}
	_ = k.ctx.Logout(k.session)
	_ = k.ctx.CloseSession(k.session)
	k.finalize()
	return nil
}

func (k *Keystore) finalize() {
	_ = k.ctx.Finalize()
	k.ctx.Destroy()
	k.ctx = nil
}

func (k *Keystore) Provision(ref string) (*ecdh.PublicKey, error) {
	if ref == "" {
		return nil, keystore.ErrEmptyReference
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	label := keystore.Label(k.accessGroup, ref)
	if pub, err := k.publicKey(label); err == nil {
		return pub, nil
	} else if !errors.Is(err, keystore.ErrSecretNotFound) {
		return nil, err
	}

	pubTemplate := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_PUBLIC_KEY),
		pkcs11.NewAttribute(pkcs11.CKA_KEY_TYPE, pkcs11.CKK_EC),
		pkcs11.NewAttribute(pkcs11.CKA_EC_PARAMS, p256Params),
		pkcs11.NewAttribute(pkcs11.CKA_TOKEN, true),
		pkcs11.NewAttribute(pkcs11.CKA_LABEL, label),
	}
	privTemplate := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_PRIVATE_KEY),
		pkcs11.NewAttribute(pkcs11.CKA_KEY_TYPE, pkcs11.CKK_EC),
		pkcs11.NewAttribute(pkcs11.CKA_TOKEN, true),
		pkcs11.NewAttribute(pkcs11.CKA_PRIVATE, true),
		pkcs11.NewAttribute(pkcs11.CKA_SENSITIVE, true),
		pkcs11.NewAttribute(pkcs11.CKA_EXTRACTABLE, false),
		pkcs11.NewAttribute(pkcs11.CKA_DERIVE, true),
		pkcs11.NewAttribute(pkcs11.CKA_LABEL, label),
	}

	pubHandle, _, err := k.ctx.GenerateKeyPair(k.session,
		[]*pkcs11.Mechanism{pkcs11.NewMechanism(pkcs11.CKM_EC_KEY_PAIR_GEN, nil)},
		pubTemplate, privTemplate)
	if err != nil {
		return nil, wrapTokenError("failed to generate key pair", err)
	}

	k.logger.Debug("provisioned secret", zap.String("label", label))
	return k.readPublicKey(pubHandle)
}

func (k *Keystore) PublicKey(ref string) (*ecdh.PublicKey, error) {
	if ref == "" {
		return nil, keystore.ErrEmptyReference
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	return k.publicKey(keystore.Label(k.accessGroup, ref))
}

func (k *Keystore) publicKey(label string) (*ecdh.PublicKey, error) {
	handle, err := k.findObject(pkcs11.CKO_PUBLIC_KEY, label)
	if err != nil {
		return nil, err
	}
	return k.readPublicKey(handle)
}

func (k *Keystore) readPublicKey(handle pkcs11.ObjectHandle) (*ecdh.PublicKey, error) {
	attrs, err := k.ctx.GetAttributeValue(k.session, handle, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_EC_POINT, nil),
	})
	if err != nil {
		return nil, wrapTokenError("failed to read public key", err)
	}
	if len(attrs) == 0 || len(attrs[0].Value) == 0 {
		return nil, errors.New("public key attribute is empty")
	}

	point, err := decodeECPoint(attrs[0].Value)
	if err != nil {
		return nil, err
	}
	return ecdh.P256().NewPublicKey(point)
}

// decodeECPoint unwraps CKA_EC_POINT, which most tokens return as a DER OCTET STRING
func decodeECPoint(value []byte) ([]byte, error) {
	if len(value) == 65 && value[0] == 0x04 {
		return value, nil
	}
	var point []byte
	if _, err := asn1.Unmarshal(value, &point); err != nil {
		return nil, fmt.Errorf("failed to decode ec point: %w", err)
	}
	return point, nil
}

func (k *Keystore) Agree(ref string, peer *ecdh.PublicKey) ([]byte, error) {
	if ref == "" {
		return nil, keystore.ErrEmptyReference
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	priv, err := k.findObject(pkcs11.CKO_PRIVATE_KEY, keystore.Label(k.accessGroup, ref))
	if err != nil {
		return nil, err
	}

	secretTemplate := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_SECRET_KEY),
		pkcs11.NewAttribute(pkcs11.CKA_KEY_TYPE, pkcs11.CKK_GENERIC_SECRET),
		pkcs11.NewAttribute(pkcs11.CKA_VALUE_LEN, sharedSecretLen),
		pkcs11.NewAttribute(pkcs11.CKA_TOKEN, false),
		pkcs11.NewAttribute(pkcs11.CKA_SENSITIVE, false),
		pkcs11.NewAttribute(pkcs11.CKA_EXTRACTABLE, true),
	}

	derived, err := k.derive(pkcs11.CKM_ECDH1_COFACTOR_DERIVE, priv, peer.Bytes(), secretTemplate)
	var perr pkcs11.Error
	if errors.As(err, &perr) && perr == pkcs11.CKR_MECHANISM_INVALID {
		// P-256 has cofactor 1, plain ECDH yields the same secret
		derived, err = k.derive(pkcs11.CKM_ECDH1_DERIVE, priv, peer.Bytes(), secretTemplate)
	}
	if err != nil {
		return nil, wrapTokenError("failed to derive shared secret", err)
	}
	defer func() {
		if err := k.ctx.DestroyObject(k.session, derived); err != nil {
			k.logger.Warn("failed to destroy derived secret", zap.Error(err))
		}
	}()

	attrs, err := k.ctx.GetAttributeValue(k.session, derived, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_VALUE, nil),
	})
	if err != nil {
		return nil, wrapTokenError("failed to read shared secret", err)
	}
	if len(attrs) == 0 || len(attrs[0].Value) != sharedSecretLen {
		return nil, errors.New("shared secret has unexpected length")
	}

	shared := make([]byte, sharedSecretLen)
	copy(shared, attrs[0].Value)
	clear(attrs[0].Value)
	return shared, nil
}

func (k *Keystore) derive(mechanism uint, base pkcs11.ObjectHandle, peer []byte, template []*pkcs11.Attribute) (pkcs11.ObjectHandle, error) {
	params := pkcs11.NewECDH1DeriveParams(pkcs11.CKD_NULL, nil, peer)
	return k.ctx.DeriveKey(k.session, []*pkcs11.Mechanism{pkcs11.NewMechanism(mechanism, params)}, base, template)
}

// Delete destroys both halves of the key pair. Missing objects are skipped.
func (k *Keystore) Delete(ref string) error {
	if ref == "" {
		return keystore.ErrEmptyReference
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	label := keystore.Label(k.accessGroup, ref)
	var errs []error
	for _, class := range []uint{pkcs11.CKO_PRIVATE_KEY, pkcs11.CKO_PUBLIC_KEY} {
		handle, err := k.findObject(class, label)
		if errors.Is(err, keystore.ErrSecretNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := k.ctx.DestroyObject(k.session, handle); err != nil {
			errs = append(errs, wrapTokenError("failed to destroy object", err))
		}
	}
	return errors.Join(errs...)
}

func (k *Keystore) findObject(class uint, label string) (pkcs11.ObjectHandle, error) {
	template := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, class),
		pkcs11.NewAttribute(pkcs11.CKA_LABEL, label),
	}
	if err := k.ctx.FindObjectsInit(k.session, template); err != nil {
		return 0, wrapTokenError("failed to init object search", err)
	}
	defer func() { _ = k.ctx.FindObjectsFinal(k.session) }()

	handles, _, err := k.ctx.FindObjects(k.session, 1)
	if err != nil {
		return 0, wrapTokenError("failed to find object", err)
	}
	if len(handles) == 0 {
		return 0, fmt.Errorf("%w: %s", keystore.ErrSecretNotFound, label)
	}
	return handles[0], nil
}

// wrapTokenError maps login-state failures to keystore.ErrLocked
func wrapTokenError(msg string, err error) error {
	var perr pkcs11.Error
	if errors.As(err, &perr) {
		switch perr {
		case pkcs11.CKR_USER_NOT_LOGGED_IN, pkcs11.CKR_PIN_EXPIRED, pkcs11.CKR_SESSION_HANDLE_INVALID, pkcs11.CKR_TOKEN_NOT_PRESENT:
			return fmt.Errorf("%s: %w: %w", msg, keystore.ErrLocked, err)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
