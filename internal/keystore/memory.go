package keystore

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"
	"sync"
)

// Memory is an in-process Keystore for development and tests.
// Keys live in process memory and disappear on exit.
type Memory struct {
	mu          sync.RWMutex
	accessGroup string
	locked      bool
	secrets     map[string]*ecdh.PrivateKey
}

var _ Keystore = (*Memory)(nil)

// NewMemory returns an unlocked in-memory keystore
func NewMemory(accessGroup string) *Memory {
	return &Memory{
		accessGroup: accessGroup,
		secrets:     make(map[string]*ecdh.PrivateKey),
	}
}

// Lock makes every operation except Delete fail with ErrLocked,
// like a device keychain while the device is locked.
func (m *Memory) Lock() {
	m.mu.Lock()
	m.locked = true
	m.mu.Unlock()
}

func (m *Memory) Unlock() {
	m.mu.Lock()
	m.locked = false
	m.mu.Unlock()
}

func (m *Memory) Provision(ref string) (*ecdh.PublicKey, error) {
	if ref == "" {
		return nil, ErrEmptyReference
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked {
		return nil, ErrLocked
	}

	label := Label(m.accessGroup, ref)
	if priv, ok := m.secrets[label]; ok {
		return priv.PublicKey(), nil
	}

	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	m.secrets[label] = priv
	return priv.PublicKey(), nil
}

func (m *Memory) PublicKey(ref string) (*ecdh.PublicKey, error) {
	priv, err := m.lookup(ref)
	if err != nil {
		return nil, err
	}
	return priv.PublicKey(), nil
}

func (m *Memory) Agree(ref string, peer *ecdh.PublicKey) ([]byte, error) {
	priv, err := m.lookup(ref)
	if err != nil {
		return nil, err
	}

	shared, err := priv.ECDH(peer)
	if err != nil {
		return nil, fmt.Errorf("failed to agree shared secret: %w", err)
	}
	return shared, nil
}

func (m *Memory) Delete(ref string) error {
	if ref == "" {
		return ErrEmptyReference
	}

	m.mu.Lock()
	delete(m.secrets, Label(m.accessGroup, ref))
	m.mu.Unlock()
	return nil
}

// Len is the number of provisioned secrets
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.secrets)
}

func (m *Memory) lookup(ref string) (*ecdh.PrivateKey, error) {
	if ref == "" {
		return nil, ErrEmptyReference
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.locked {
		return nil, ErrLocked
	}
	priv, ok := m.secrets[Label(m.accessGroup, ref)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, ref)
	}
	return priv, nil
}
