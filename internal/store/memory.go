package store

import (
	"fmt"
	"slices"
	"sync"
)

// Memory is an in-process Store
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Put(ref string, ciphertext []byte) error {
	if ref == "" {
		return ErrEmptyReference
	}

	m.mu.Lock()
	m.data[ref] = slices.Clone(ciphertext)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(ref string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return slices.Clone(v), nil
}

func (m *Memory) Has(ref string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.data[ref]
	return ok, nil
}

func (m *Memory) Delete(ref string) error {
	if ref == "" {
		return ErrEmptyReference
	}

	m.mu.Lock()
	delete(m.data, ref)
	m.mu.Unlock()
	return nil
}

func (m *Memory) References() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	refs := make([]string, 0, len(m.data))
	for ref := range m.data {
		refs = append(refs, ref)
	}
	slices.Sort(refs)
	return refs, nil
}

// Len returns the number of stored ciphertexts
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
